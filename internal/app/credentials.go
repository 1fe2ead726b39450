package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"gopherchat/internal/model"
	"gopherchat/internal/repository"
)

const (
	minPasswordLength = 6
	maxPasswordBytes  = 72 // bcrypt ignores anything longer
	maxUsernameLength = 64
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByID(ctx context.Context, id uint) (*model.User, error)
}

// CredentialStore owns username/password-hash records.
type CredentialStore struct {
	users      UserRepository
	bcryptCost int
	publisher  EventPublisher
	logger     *slog.Logger

	dummyOnce sync.Once
	dummyHash []byte
}

func NewCredentialStore(users UserRepository, bcryptCost int, publisher EventPublisher, logger *slog.Logger) *CredentialStore {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &CredentialStore{
		users:      users,
		bcryptCost: bcryptCost,
		publisher:  publisher,
		logger:     loggerOrDefault(logger),
	}
}

func (s *CredentialStore) Register(ctx context.Context, username, password string) (uint, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return 0, invalid("username and password required")
	}
	if utf8.RuneCountInString(username) > maxUsernameLength {
		return 0, invalid(fmt.Sprintf("username must be at most %d characters", maxUsernameLength))
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return 0, invalid(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if len(password) > maxPasswordBytes {
		return 0, invalid(fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
	}

	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return 0, storageError(err)
	}
	if existing != nil {
		return 0, ErrDuplicateUsername
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return 0, fmt.Errorf("hash password failed: %w", err)
	}

	user := &model.User{
		Username:     username,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return 0, ErrDuplicateUsername
		}
		return 0, storageError(err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	publishEvent(ctx, s.publisher, s.logger, model.EventUserRegistered, user.ID, "")
	return user.ID, nil
}

// Verify reports the user id when password matches the stored hash. Unknown
// usernames and wrong passwords both return (0, false, nil) and cost one
// bcrypt comparison each. The error is reserved for storage failures.
func (s *CredentialStore) Verify(ctx context.Context, username, password string) (uint, bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return 0, false, nil
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return 0, false, storageError(err)
	}
	if user == nil || user.PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		return 0, false, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return 0, false, nil
	}
	return user.ID, true, nil
}

func (s *CredentialStore) GetUser(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storageError(err)
	}
	return user, nil
}

func (s *CredentialStore) dummy() []byte {
	s.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.bcryptCost)
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}
