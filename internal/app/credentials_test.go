package app

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherchat/internal/model"
)

func TestRegisterThenVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.register(t, "alice", "secret1")

	got, ok, err := f.credentials.Verify(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id, got)
	assert.Equal(t, []string{model.EventUserRegistered}, f.events.types())
}

func TestRegister_StoresHashNotPassword(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "secret1")

	user, err := f.users.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", user.PasswordHash)
	assert.True(t, strings.HasPrefix(user.PasswordHash, "$2"))
}

func TestRegister_Duplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.register(t, "alice", "secret1")

	_, err := f.credentials.Register(ctx, "alice", "another1")
	require.ErrorIs(t, err, ErrDuplicateUsername)

	got, ok, err := f.credentials.Verify(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, first, got)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name     string
		username string
		password string
	}{
		{"missing username", "", "secret1"},
		{"blank username", "   ", "secret1"},
		{"missing password", "alice", ""},
		{"short password", "alice", "12345"},
		{"too long for bcrypt", "alice", strings.Repeat("x", 73)},
		{"long username", strings.Repeat("u", 65), "secret1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.credentials.Register(context.Background(), tc.username, tc.password)
			require.ErrorIs(t, err, ErrValidation)
		})
	}

	user, err := f.users.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestVerify_MismatchesAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "secret1")

	wrongID, wrongOK, wrongErr := f.credentials.Verify(ctx, "alice", "wrong-pass")
	ghostID, ghostOK, ghostErr := f.credentials.Verify(ctx, "ghost", "secret1")

	assert.Equal(t, wrongID, ghostID)
	assert.Equal(t, wrongOK, ghostOK)
	assert.Equal(t, wrongErr, ghostErr)
	assert.False(t, wrongOK)
	assert.NoError(t, wrongErr)
}
