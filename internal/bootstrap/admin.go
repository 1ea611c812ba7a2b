package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"ridedesk/internal/config"
	"ridedesk/internal/ids"
	"ridedesk/internal/models"
	"ridedesk/internal/repository"
	"ridedesk/internal/security"
)

var ErrNotAdmin = errors.New("bootstrap email belongs to a non-admin account")

type AdminStore interface {
	FindByEmail(ctx context.Context, email string) (models.User, error)
	Create(ctx context.Context, user models.User) error
}

// EnsureAdmin creates the configured admin account on first start. It does
// nothing when no admin email is configured or the account already exists.
func EnsureAdmin(ctx context.Context, cfg config.AdminConfig, users AdminStore, logger zerolog.Logger) error {
	email := strings.ToLower(strings.TrimSpace(cfg.Email))
	if email == "" {
		logger.Debug().Msg("admin bootstrap skipped: no email configured")
		return nil
	}
	if strings.TrimSpace(cfg.Password) == "" {
		return fmt.Errorf("admin bootstrap missing password for %s", email)
	}

	existing, err := users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != models.UserRoleAdmin {
			return fmt.Errorf("%w: %s", ErrNotAdmin, email)
		}
		return nil
	case !errors.Is(err, repository.ErrUserNotFound):
		return fmt.Errorf("bootstrap lookup user: %w", err)
	}

	hashed, err := security.HashPassword(cfg.Password)
	if err != nil {
		return fmt.Errorf("bootstrap hash password: %w", err)
	}

	user := models.User{
		ID:           ids.New(),
		Email:        email,
		FirstName:    cfg.FirstName,
		LastName:     cfg.LastName,
		PasswordHash: hashed,
		Provider:     models.ProviderPassword,
		Role:         models.UserRoleAdmin,
		Status:       models.UserStatusVerified,
	}
	if err := users.Create(ctx, user); err != nil {
		return fmt.Errorf("bootstrap create user: %w", err)
	}

	logger.Info().Str("user_id", user.ID).Str("email", email).Msg("bootstrap admin user created")
	return nil
}
