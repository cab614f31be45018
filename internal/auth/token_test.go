package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	svc, err := NewTokenService("secret", time.Hour)
	require.NoError(t, err)

	tok, err := svc.Generate(1001)
	require.NoError(t, err)

	claims, err := svc.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), claims.Identity().UserID)
	assert.NotEmpty(t, claims.Identity().TokenID)
}

func TestValidateRejectsForeignAndExpiredTokens(t *testing.T) {
	a, _ := NewTokenService("secret-a", time.Hour)
	b, _ := NewTokenService("secret-b", time.Hour)

	tok, err := a.Generate(7)
	require.NoError(t, err)
	_, err = b.Validate(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	a.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := a.Generate(7)
	require.NoError(t, err)
	a.now = time.Now
	_, err = a.Validate(old)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestEmptySecretRejected(t *testing.T) {
	_, err := NewTokenService("", time.Hour)
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{UserID: 42})
	id, ok := IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(42), id.UserID)
}
