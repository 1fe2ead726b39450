package bootstrap

import (
	"log/slog"
	"os"

	"gopherchat/internal/config"
)

// NewLogger prints text in dev and JSON everywhere else.
func NewLogger(cfg config.AppConfig) *slog.Logger {
	level := slog.LevelInfo
	if cfg.GinMode == "debug" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Env == "dev" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler).With("app", cfg.Name, "env", cfg.Env)
}
