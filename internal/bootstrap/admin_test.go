package bootstrap_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"ridedesk/internal/bootstrap"
	"ridedesk/internal/config"
	"ridedesk/internal/models"
	"ridedesk/internal/security"
	"ridedesk/internal/service/memstore"
)

func TestEnsureAdminCreatesOnce(t *testing.T) {
	ctx := context.Background()
	users := memstore.New().Users()
	cfg := config.AdminConfig{Email: " Root@Example.com ", Password: "s3cret-pass", FirstName: "Admin"}

	require.NoError(t, bootstrap.EnsureAdmin(ctx, cfg, users, zerolog.Nop()))
	admin, err := users.FindByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	require.Equal(t, models.UserRoleAdmin, admin.Role)
	require.Equal(t, models.UserStatusVerified, admin.Status)

	ok, err := security.VerifyPassword("s3cret-pass", admin.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, bootstrap.EnsureAdmin(ctx, cfg, users, zerolog.Nop()))
	all, err := users.List(ctx, models.UserFilter{Role: models.UserRoleAdmin})
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestEnsureAdminGuards(t *testing.T) {
	ctx := context.Background()
	users := memstore.New().Users()

	require.NoError(t, bootstrap.EnsureAdmin(ctx, config.AdminConfig{}, users, zerolog.Nop()))
	require.Error(t, bootstrap.EnsureAdmin(ctx, config.AdminConfig{Email: "root@example.com"}, users, zerolog.Nop()))

	require.NoError(t, users.Create(ctx, models.User{
		ID:     "c1",
		Email:  "client@example.com",
		Role:   models.UserRoleClient,
		Status: models.UserStatusVerified,
	}))
	err := bootstrap.EnsureAdmin(ctx, config.AdminConfig{Email: "client@example.com", Password: "whatever1"}, users, zerolog.Nop())
	require.ErrorIs(t, err, bootstrap.ErrNotAdmin)
}
