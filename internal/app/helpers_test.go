package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"gopherchat/internal/ai"
	"gopherchat/internal/model"
	"gopherchat/internal/platform/sqlite"
	"gopherchat/internal/repository"
	"gopherchat/internal/session"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fixture struct {
	db          *gorm.DB
	users       *repository.UserRepository
	transcripts *repository.TranscriptRepository
	credentials *CredentialStore
	auth        *SessionAuthenticator
	sessions    *session.MemoryStore
	events      *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	f := &fixture{
		db:          db,
		users:       repository.NewUserRepository(db),
		transcripts: repository.NewTranscriptRepository(db),
		sessions:    session.NewMemoryStore(),
		events:      &recordingPublisher{},
	}
	f.credentials = NewCredentialStore(f.users, bcrypt.MinCost, f.events, discardLogger)
	f.auth = NewSessionAuthenticator(f.credentials, f.sessions, "test-secret", time.Hour, nil, discardLogger)
	return f
}

func (f *fixture) register(t *testing.T, username, password string) uint {
	t.Helper()
	id, err := f.credentials.Register(context.Background(), username, password)
	require.NoError(t, err)
	return id
}

func (f *fixture) transcriptStore(repo TranscriptRepository) *TranscriptStore {
	if repo == nil {
		repo = f.transcripts
	}
	return NewTranscriptStore(repo, nil, f.events, discardLogger)
}

func (f *fixture) chatService(repo TranscriptRepository, gen Generator) *ChatService {
	store := f.transcriptStore(repo)
	return NewChatService(store, NewContextWindowBuilder(store), gen, DefaultContextWindow, f.events, nil, discardLogger)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event model.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// stubGenerator returns reply (or err) and records every prompt it saw.
type stubGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts [][]ai.ChatMessage
}

func (g *stubGenerator) Complete(_ context.Context, messages []ai.ChatMessage) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	copied := append([]ai.ChatMessage(nil), messages...)
	g.prompts = append(g.prompts, copied)
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

// flakyTranscripts wraps a real repository and fails Create calls whose role
// matches failRole.
type flakyTranscripts struct {
	TranscriptRepository
	failRole string
}

func (r *flakyTranscripts) Create(ctx context.Context, entry *model.TranscriptEntry) error {
	if entry.Role == r.failRole {
		return errors.New("disk full")
	}
	return r.TranscriptRepository.Create(ctx, entry)
}
