package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin_EstablishesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "alice", "secret1")

	res, err := f.auth.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, id, res.Session.UserID)
	assert.Equal(t, "alice", res.Session.Username)

	sess, err := f.auth.RequireSession(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, id, sess.UserID)
}

func TestLogin_FailuresLookTheSame(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "secret1")

	_, wrongPass := f.auth.Login(ctx, "alice", "nope-nope")
	_, unknownUser := f.auth.Login(ctx, "mallory", "secret1")

	require.ErrorIs(t, wrongPass, ErrUnauthenticated)
	require.ErrorIs(t, unknownUser, ErrUnauthenticated)
	assert.Equal(t, wrongPass.Error(), unknownUser.Error())
	assert.Equal(t, 0, f.sessions.Len())
}

func TestLogin_MissingFields(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Login(context.Background(), "", "secret1")
	require.ErrorIs(t, err, ErrValidation)
}

func TestLogout_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "secret1")
	res, err := f.auth.Login(ctx, "alice", "secret1")
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(ctx, res.Session.ID))
	require.NoError(t, f.auth.Logout(ctx, res.Session.ID))

	result := f.auth.Authenticate(ctx, res.Token)
	assert.False(t, result.Authorized())
	assert.ErrorIs(t, result.Reason, ErrUnauthenticated)
}

func TestAuthenticate_RejectsBadTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, token := range []string{"", "garbage", "a.b.c"} {
		result := f.auth.Authenticate(ctx, token)
		assert.False(t, result.Authorized(), token)
		assert.ErrorIs(t, result.Reason, ErrUnauthenticated, token)
	}
}

func TestAuthenticate_RejectsTokenFromOtherSecret(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "secret1")
	res, err := f.auth.Login(ctx, "alice", "secret1")
	require.NoError(t, err)

	other := NewSessionAuthenticator(f.credentials, f.sessions, "different-secret", 0, nil, discardLogger)
	assert.False(t, other.Authenticate(ctx, res.Token).Authorized())
}
