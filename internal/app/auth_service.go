package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"gopherchat/internal/metrics"
	"gopherchat/internal/pkg/jwtutil"
	"gopherchat/internal/session"
)

// AuthResult is either Authorized (Session set) or Denied (Reason set).
type AuthResult struct {
	Session *session.Session
	Reason  error
}

func Authorized(s *session.Session) AuthResult {
	return AuthResult{Session: s}
}

func Denied(reason error) AuthResult {
	return AuthResult{Reason: reason}
}

func (r AuthResult) Authorized() bool {
	return r.Session != nil && r.Reason == nil
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Session   session.Session
}

// SessionAuthenticator turns verified credentials into sessions and gates
// every user-scoped operation on one.
type SessionAuthenticator struct {
	credentials *CredentialStore
	sessions    session.Store
	jwtSecret   string
	sessionTTL  time.Duration
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func NewSessionAuthenticator(
	credentials *CredentialStore,
	sessions session.Store,
	jwtSecret string,
	sessionTTL time.Duration,
	m *metrics.Metrics,
	logger *slog.Logger,
) *SessionAuthenticator {
	if sessionTTL <= 0 {
		sessionTTL = 2 * time.Hour
	}
	return &SessionAuthenticator{
		credentials: credentials,
		sessions:    sessions,
		jwtSecret:   jwtSecret,
		sessionTTL:  sessionTTL,
		metrics:     m,
		logger:      loggerOrDefault(logger),
	}
}

func (a *SessionAuthenticator) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, invalid("username and password required")
	}

	userID, ok, err := a.credentials.Verify(ctx, username, password)
	if err != nil {
		return nil, err
	}
	a.metrics.ObserveLogin(ok)
	if !ok {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	sess := session.Session{
		ID:        session.NewID(),
		UserID:    userID,
		Username:  strings.TrimSpace(username),
		CreatedAt: now,
		ExpiresAt: now.Add(a.sessionTTL),
	}
	token, expiresAt, err := jwtutil.GenerateToken(a.jwtSecret, a.sessionTTL, sess.ID, sess.UserID, sess.Username)
	if err != nil {
		return nil, err
	}
	sess.ExpiresAt = expiresAt
	if err := a.sessions.Create(ctx, sess); err != nil {
		return nil, storageError(err)
	}

	a.logger.InfoContext(ctx, "session established", "user_id", userID)
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Session: sess}, nil
}

// Logout removes the session. Unknown or already removed sessions are fine.
func (a *SessionAuthenticator) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := a.sessions.Delete(context.WithoutCancel(ctx), sessionID); err != nil {
		return storageError(err)
	}
	return nil
}

// Authenticate resolves a bearer token to its live session. A bad signature,
// an expired token and a logged-out session are all the same Denied result.
func (a *SessionAuthenticator) Authenticate(ctx context.Context, token string) AuthResult {
	token = strings.TrimSpace(token)
	if token == "" {
		return Denied(ErrUnauthenticated)
	}

	claims, err := jwtutil.ParseToken(a.jwtSecret, token)
	if err != nil {
		return Denied(ErrUnauthenticated)
	}

	sess, err := a.sessions.Get(ctx, claims.SessionID())
	if err != nil {
		return Denied(storageError(err))
	}
	if sess == nil || sess.UserID != claims.UserID {
		return Denied(ErrUnauthenticated)
	}
	return Authorized(sess)
}

func (a *SessionAuthenticator) RequireSession(ctx context.Context, token string) (*session.Session, error) {
	result := a.Authenticate(ctx, token)
	if !result.Authorized() {
		return nil, result.Reason
	}
	return result.Session, nil
}
