package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gopherchat/internal/ai"
	"gopherchat/internal/metrics"
	"gopherchat/internal/model"
	"gopherchat/internal/session"
)

type TurnState string

const (
	TurnReceived           TurnState = "received"
	TurnUserPersisted      TurnState = "user_persisted"
	TurnContextBuilt       TurnState = "context_built"
	TurnBackendInvoked     TurnState = "backend_invoked"
	TurnAssistantPersisted TurnState = "assistant_persisted"
	TurnCompleted          TurnState = "completed"
	TurnFailed             TurnState = "failed"
)

// Generator is the text-generation backend. Model, token limit and
// temperature are fixed when it is constructed.
type Generator interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
}

// TurnResult is returned whenever a reply was generated. Persisted is false
// when the assistant entry could not be stored; State is then TurnFailed.
type TurnResult struct {
	Reply     string
	Persisted bool
	State     TurnState
}

type ChatService struct {
	transcripts   *TranscriptStore
	contextWindow *ContextWindowBuilder
	generator     Generator
	windowSize    int
	locks         *turnLocks
	publisher     EventPublisher
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

func NewChatService(
	transcripts *TranscriptStore,
	contextWindow *ContextWindowBuilder,
	generator Generator,
	windowSize int,
	publisher EventPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *ChatService {
	if windowSize <= 0 {
		windowSize = DefaultContextWindow
	}
	return &ChatService{
		transcripts:   transcripts,
		contextWindow: contextWindow,
		generator:     generator,
		windowSize:    windowSize,
		locks:         newTurnLocks(),
		publisher:     publisher,
		metrics:       m,
		logger:        loggerOrDefault(logger),
	}
}

// HandleTurn runs one chat turn for the session's user. Turns of the same user
// run one at a time. A failed backend call leaves the stored user message in
// place.
func (s *ChatService) HandleTurn(ctx context.Context, sess *session.Session, userMessage string) (*TurnResult, error) {
	if sess == nil || sess.UserID == 0 {
		return nil, ErrUnauthenticated
	}
	if strings.TrimSpace(userMessage) == "" {
		s.metrics.ObserveTurn(metrics.OutcomeValidation)
		return nil, invalid("No message provided")
	}

	release, err := s.locks.acquire(ctx, sess.UserID)
	if err != nil {
		s.metrics.ObserveTurn(metrics.OutcomeBackend)
		return nil, backendError(fmt.Errorf("wait for previous turn: %w", err))
	}
	defer release()

	turn := &turnTracker{state: TurnReceived, userID: sess.UserID, logger: s.logger}
	// Persistence is never abandoned half way because the client went away.
	storeCtx := context.WithoutCancel(ctx)

	if err := s.transcripts.Append(storeCtx, sess.UserID, model.RoleUser, userMessage); err != nil {
		return nil, s.fail(ctx, turn, metrics.OutcomeStorage, err)
	}
	turn.advance(ctx, TurnUserPersisted)

	prompt, err := s.contextWindow.Build(storeCtx, sess.UserID, s.windowSize)
	if err != nil {
		return nil, s.fail(ctx, turn, metrics.OutcomeStorage, err)
	}
	turn.advance(ctx, TurnContextBuilt)

	started := time.Now()
	reply, err := s.generator.Complete(ctx, prompt)
	s.metrics.ObserveBackend(time.Since(started))
	if err != nil {
		return nil, s.fail(ctx, turn, metrics.OutcomeBackend, backendError(err))
	}
	turn.advance(ctx, TurnBackendInvoked)

	if err := s.transcripts.Append(storeCtx, sess.UserID, model.RoleAssistant, reply); err != nil {
		// The reply is still handed back; the caller is told it was not stored.
		_ = s.fail(ctx, turn, metrics.OutcomeAssistantUnstored, err)
		return &TurnResult{Reply: reply, Persisted: false, State: turn.state}, nil
	}
	turn.advance(ctx, TurnAssistantPersisted)
	turn.advance(ctx, TurnCompleted)

	s.metrics.ObserveTurn(metrics.OutcomeCompleted)
	publishEvent(ctx, s.publisher, s.logger, model.EventTurnCompleted, sess.UserID, "")
	return &TurnResult{Reply: reply, Persisted: true, State: turn.state}, nil
}

func (s *ChatService) History(ctx context.Context, sess *session.Session) ([]model.TranscriptEntry, error) {
	if sess == nil || sess.UserID == 0 {
		return nil, ErrUnauthenticated
	}
	return s.transcripts.All(ctx, sess.UserID)
}

func (s *ChatService) ClearHistory(ctx context.Context, sess *session.Session) error {
	if sess == nil || sess.UserID == 0 {
		return ErrUnauthenticated
	}
	release, err := s.locks.acquire(ctx, sess.UserID)
	if err != nil {
		return storageError(fmt.Errorf("wait for previous turn: %w", err))
	}
	defer release()
	return s.transcripts.Clear(context.WithoutCancel(ctx), sess.UserID)
}

func (s *ChatService) fail(ctx context.Context, turn *turnTracker, outcome string, err error) error {
	from := turn.state
	turn.advance(ctx, TurnFailed)
	s.metrics.ObserveTurn(outcome)
	s.logger.ErrorContext(ctx, "chat turn failed", "user_id", turn.userID, "from_state", from, "outcome", outcome, "error", err)
	publishEvent(ctx, s.publisher, s.logger, model.EventTurnFailed, turn.userID, outcome)
	return err
}

type turnTracker struct {
	state  TurnState
	userID uint
	logger *slog.Logger
}

func (t *turnTracker) advance(ctx context.Context, next TurnState) {
	t.logger.DebugContext(ctx, "chat turn transition", "user_id", t.userID, "from", t.state, "to", next)
	t.state = next
}
