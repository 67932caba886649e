package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenManager(t *testing.T) {
	t.Parallel()
	profile := Profile{UserID: "2", Email: "user@library.com", Name: "John Reader", Role: RoleUser}

	t.Run("issue and parse", func(t *testing.T) {
		t.Parallel()
		m := NewTokenManager(Config{Secret: "s3cret", TTL: time.Hour})
		token, exp, err := m.Issue(profile)
		require.NoError(t, err)
		require.NotEmpty(t, token)
		require.True(t, exp.After(time.Now()))

		claims, err := m.Parse(token)
		require.NoError(t, err)
		require.Equal(t, profile, claims.Profile)
		require.Equal(t, profile.UserID, claims.Subject)
	})

	t.Run("wrong key", func(t *testing.T) {
		t.Parallel()
		token, _, err := NewTokenManager(Config{Secret: "a", TTL: time.Hour}).Issue(profile)
		require.NoError(t, err)
		_, err = NewTokenManager(Config{Secret: "b", TTL: time.Hour}).Parse(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		t.Parallel()
		m := NewTokenManager(Config{Secret: "s3cret", TTL: time.Minute})
		m.now = func() time.Time { return time.Now().Add(-time.Hour) }
		token, _, err := m.Issue(profile)
		require.NoError(t, err)

		m.now = time.Now
		_, err = m.Parse(token)
		require.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("garbage", func(t *testing.T) {
		t.Parallel()
		_, err := NewTokenManager(Config{Secret: "s3cret", TTL: time.Hour}).Parse("not.a.token")
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestAuthContext(t *testing.T) {
	_, ok := GetAuthContext(context.Background())
	require.False(t, ok)

	ctx := SetAuthContext(context.Background(), Profile{UserID: "1", Role: RoleAdmin})
	p, ok := GetAuthContext(ctx)
	require.True(t, ok)
	require.True(t, p.IsAdmin())
}
