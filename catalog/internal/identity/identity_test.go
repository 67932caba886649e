package identity_test

import (
	"context"
	"testing"

	"github.com/Astemirdum/bookish-library/catalog/internal/errs"
	"github.com/Astemirdum/bookish-library/catalog/internal/identity"
	"github.com/Astemirdum/bookish-library/catalog/internal/model"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newDirectory(t *testing.T) *identity.Directory {
	t.Helper()
	d := identity.NewDirectory(zap.NewNop(), bcrypt.MinCost)
	require.NoError(t, d.Seed(identity.DemoAccounts()))
	return d
}

func TestDirectory_Login(t *testing.T) {
	t.Parallel()
	d := newDirectory(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		wantRole model.Role
		wantErr  error
	}{
		{name: "admin", email: "admin@library.com", password: "admin123", wantRole: model.RoleAdmin},
		{name: "user mixed case", email: " User@Library.com", password: "user123", wantRole: model.RoleUser},
		{name: "wrong password", email: "user@library.com", password: "nope", wantErr: errs.ErrInvalidCredentials},
		{name: "unknown", email: "ghost@library.com", password: "user123", wantErr: errs.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			user, err := d.Login(ctx, tt.email, tt.password)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantRole, user.Role)

			got, err := d.Get(ctx, user.ID)
			require.NoError(t, err)
			require.Equal(t, user, got)
		})
	}
}

func TestDirectory_Register(t *testing.T) {
	t.Parallel()
	d := newDirectory(t)
	ctx := context.Background()

	user, err := d.Register(ctx, "reader@library.com", "secret1", "New Reader")
	require.NoError(t, err)
	require.Equal(t, model.RoleUser, user.Role)
	require.NotEmpty(t, user.ID)

	logged, err := d.Login(ctx, "reader@library.com", "secret1")
	require.NoError(t, err)
	require.Equal(t, user.ID, logged.ID)

	_, err = d.Register(ctx, "READER@library.com", "other12", "Dup")
	require.ErrorIs(t, err, errs.ErrEmailTaken)

	_, err = d.Get(ctx, "missing")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDirectory_IDsSurviveRestart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	before, after := newDirectory(t), newDirectory(t)

	for _, a := range identity.DemoAccounts() {
		u1, err := before.Login(ctx, a.Email, a.Password)
		require.NoError(t, err)
		u2, err := after.Login(ctx, a.Email, a.Password)
		require.NoError(t, err)
		require.Equal(t, u1.ID, u2.ID, a.Email)
		require.Equal(t, identity.UserID(a.Email), u1.ID)
	}

	r1, err := before.Register(ctx, "reader@library.com", "secret1", "New Reader")
	require.NoError(t, err)
	r2, err := after.Register(ctx, " Reader@Library.com", "secret1", "New Reader")
	require.NoError(t, err)
	require.Equal(t, r1.ID, r2.ID)

	admin, err := before.Login(ctx, "admin@library.com", "admin123")
	require.NoError(t, err)
	require.NotEqual(t, admin.ID, r1.ID)
}
