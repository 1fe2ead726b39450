package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"gopherchat/internal/ai"
	appsvc "gopherchat/internal/app"
	"gopherchat/internal/config"
	"gopherchat/internal/metrics"
	"gopherchat/internal/platform/database"
	mysqlClient "gopherchat/internal/platform/mysql"
	postgresClient "gopherchat/internal/platform/postgres"
	rabbitmqClient "gopherchat/internal/platform/rabbitmq"
	redisClient "gopherchat/internal/platform/redis"
	sqliteClient "gopherchat/internal/platform/sqlite"
	"gopherchat/internal/repository"
	"gopherchat/internal/session"
	"gopherchat/internal/worker"
)

// App owns every long-lived resource. It is built once at process start and
// closed at shutdown; handlers receive what they need from it.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	DB      *gorm.DB
	Redis   *redis.Client
	MQConn  *amqp.Connection
	Metrics *metrics.Metrics

	Sessions    session.Store
	Generator   appsvc.Generator
	Publisher   appsvc.EventPublisher
	AuditWorker *worker.AuditPersistWorker

	// BcryptCost of zero means bcrypt.DefaultCost.
	BcryptCost int

	StartedAt time.Time

	eventPublisher *rabbitmqClient.EventPublisher
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	logger := NewLogger(cfg.App)
	slog.SetDefault(logger)

	a := &App{
		Config:    cfg,
		Logger:    logger,
		Metrics:   metrics.New(),
		StartedAt: time.Now(),
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DB = db
	if err := repository.Migrate(db); err != nil {
		_ = a.Close()
		return nil, err
	}

	if cfg.Redis.Enabled {
		redisCli, err := redisClient.New(ctx, cfg.Redis)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.Redis = redisCli
		a.Sessions = session.NewRedisStore(redisCli)
	} else {
		a.Sessions = session.NewMemoryStore()
	}

	if cfg.RabbitMQ.Enabled {
		mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.EventQueue)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.MQConn = mqConn
		a.eventPublisher = rabbitmqClient.NewEventPublisher(mqConn, cfg.RabbitMQ.EventQueue)
		a.Publisher = a.eventPublisher

		a.AuditWorker = worker.NewAuditPersistWorker(mqConn, repository.NewAuditRepository(db), cfg.RabbitMQ.EventQueue, logger)
		if err := a.AuditWorker.Start(ctx); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("start audit worker failed: %w", err)
		}
	}

	a.Generator = ai.NewOpenAICompatibleClient(ai.ChatConfig{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLMTimeout(),
	})
	if cfg.LLM.APIKey == "" {
		logger.Warn("llm api key is empty; chat turns will fail at the backend")
	}

	logger.Info("bootstrap complete",
		"db_driver", cfg.Database.Driver,
		"redis", cfg.Redis.Enabled,
		"rabbitmq", cfg.RabbitMQ.Enabled,
		"model", cfg.LLM.Model,
	)
	return a, nil
}

func openDatabase(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	switch cfg.Database.Driver {
	case "mysql":
		return mysqlClient.New(ctx, cfg.MySQLDSN())
	case "postgres":
		return postgresClient.New(ctx, cfg.PostgresDSN())
	case "sqlite":
		return sqliteClient.New(ctx, cfg.Database.SQLite.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

func (a *App) Close() error {
	var errs []error
	if a.AuditWorker != nil {
		a.AuditWorker.Close()
	}
	if a.eventPublisher != nil {
		if err := a.eventPublisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := database.Close(a.DB); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
