package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"gopherchat/internal/model"
	"gopherchat/internal/platform/rabbitmq"
)

var errBadPayload = errors.New("bad event payload")

type AuditRepository interface {
	Create(ctx context.Context, event *model.AuditEvent) error
}

// AuditPersistWorker drains the event queue into the audit_events table.
type AuditPersistWorker struct {
	conn      *amqp.Connection
	repo      AuditRepository
	queueName string
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewAuditPersistWorker(conn *amqp.Connection, repo AuditRepository, queueName string, logger *slog.Logger) *AuditPersistWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditPersistWorker{
		conn:      conn,
		repo:      repo,
		queueName: queueName,
		logger:    logger.With("component", "audit_worker"),
	}
}

func (w *AuditPersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if _, err := rabbitmq.DeclareEventQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				w.dispatch(workerCtx, d)
			}
		}
	}()

	return nil
}

func (w *AuditPersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *AuditPersistWorker) dispatch(ctx context.Context, d amqp.Delivery) {
	err := w.Handle(ctx, d.Body)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, errBadPayload):
		w.logger.Warn("drop undecodable event", "error", err)
		_ = d.Nack(false, false)
	default:
		// Storage hiccup: hand the event back once, then drop it.
		w.logger.Error("persist event failed", "error", err, "redelivered", d.Redelivered)
		_ = d.Nack(false, !d.Redelivered)
	}
}

// Handle decodes one event body and stores it.
func (w *AuditPersistWorker) Handle(ctx context.Context, body []byte) error {
	var event model.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: %w", errBadPayload, err)
	}
	if event.Type == "" {
		return fmt.Errorf("%w: missing type", errBadPayload)
	}

	return w.repo.Create(ctx, &model.AuditEvent{
		Type:       event.Type,
		UserID:     event.UserID,
		Detail:     event.Detail,
		OccurredAt: event.OccurredAt,
	})
}
