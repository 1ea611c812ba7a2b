package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"ridedesk/internal/config"
	"ridedesk/internal/identity"
	"ridedesk/internal/ids"
	"ridedesk/internal/kyc"
	"ridedesk/internal/media/capture"
	"ridedesk/internal/models"
	"ridedesk/internal/security"
	"ridedesk/internal/service"
	"ridedesk/internal/service/memstore"
)

type fakeIdentity struct {
	tokens  map[string]identity.Token
	deleted []string
	err     error
}

func (f *fakeIdentity) VerifyIDToken(_ context.Context, idToken string) (identity.Token, error) {
	tok, ok := f.tokens[idToken]
	if !ok {
		return identity.Token{}, identity.ErrInvalidIDToken
	}
	return tok, nil
}

func (f *fakeIdentity) DeleteUser(_ context.Context, uid string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, uid)
	return nil
}

type passthroughNormalizer struct{}

func (passthroughNormalizer) Normalize(data []byte, _ string, _ capture.Spec) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty frame")
	}
	return data, nil
}

type fakeEvaluator struct {
	outcome kyc.Outcome
	err     error
	got     kyc.Submission
}

func (f *fakeEvaluator) Evaluate(_ context.Context, sub kyc.Submission) (kyc.Outcome, error) {
	f.got = sub
	return f.outcome, f.err
}

type fixture struct {
	store         *memstore.Store
	identity      *fakeIdentity
	evaluator     *fakeEvaluator
	tokens        *security.TokenIssuer
	auth          *service.AuthService
	users         *service.UserService
	verification  *service.VerificationService
	orders        *service.OrderService
	menu          *service.MenuService
	notifications *service.NotificationService
	dashboard     *service.DashboardService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memstore.New()
	log := zerolog.Nop()
	ident := &fakeIdentity{tokens: map[string]identity.Token{}}
	evaluator := &fakeEvaluator{outcome: kyc.Outcome{
		Status:   models.VerificationUnderReview,
		Decision: kyc.DecisionPassed,
	}}
	tokens := security.NewTokenIssuer("test-secret", 15*time.Minute)
	numbers, err := ids.NewOrderNumbers(1)
	require.NoError(t, err)

	notifications := service.NewNotificationService(store.Notifications(), store.Events(), log)
	f := &fixture{
		store:         store,
		identity:      ident,
		evaluator:     evaluator,
		tokens:        tokens,
		notifications: notifications,
		auth: service.NewAuthService(store.Users(), store.Sessions(), ident, tokens, config.SecurityConfig{
			JWTRefreshTTL: time.Hour,
			MaxSessions:   2,
		}, log),
		users: service.NewUserService(store.Users(), store.Sessions(), store.Verifications(), store, ident, store.Queue(), notifications, store.Events(), log),
		verification: service.NewVerificationService(
			store.Users(), store.Drafts(), store.Objects(), passthroughNormalizer{}, evaluator,
			store.Verifications(), notifications, store.Events(), time.Second, log,
		),
		orders:    service.NewOrderService(store.Orders(), store.Menu(), numbers, store.Events(), log),
		menu:      service.NewMenuService(store.Menu(), store.Events(), log),
		dashboard: service.NewDashboardService(store.Users(), store.Orders(), store.Verifications(), store.Notifications()),
	}
	return f
}

func (f *fixture) seedUser(t *testing.T, email string, role models.UserRole, status models.UserStatus) models.User {
	t.Helper()
	user := models.User{
		ID:        ids.New(),
		Email:     email,
		FirstName: "Test",
		LastName:  string(role),
		Provider:  models.ProviderPassword,
		Role:      role,
		Status:    status,
	}
	require.NoError(t, f.store.Users().Create(context.Background(), user))
	return user
}
