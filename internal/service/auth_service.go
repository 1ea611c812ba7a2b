package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ridedesk/internal/config"
	"ridedesk/internal/identity"
	"ridedesk/internal/ids"
	"ridedesk/internal/models"
	"ridedesk/internal/repository"
	"ridedesk/internal/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserSuspended      = errors.New("user suspended")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password too short")
	ErrInvalidRole        = errors.New("invalid role")
	ErrEmailNotVerified   = errors.New("federated email not verified")
)

const minPasswordLength = 8

type AuthService struct {
	users    UserStore
	sessions SessionStore
	identity identity.Provider
	tokens   *security.TokenIssuer
	cfg      config.SecurityConfig
	log      zerolog.Logger
	now      func() time.Time
}

func NewAuthService(
	users UserStore,
	sessions SessionStore,
	provider identity.Provider,
	tokens *security.TokenIssuer,
	cfg config.SecurityConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		identity: provider,
		tokens:   tokens,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

type RegisterInput struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	Phone      string
	Role       models.UserRole
	DeviceID   string
	DeviceName string
	IPAddress  string
	UserAgent  string
}

type AuthResult struct {
	AccessToken  string
	RefreshToken string
	User         models.User
	DeviceID     string
}

// Register creates a password account. Drivers start unverified and must pass
// the verification wizard; clients are usable immediately.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return AuthResult{}, err
	}
	if len(input.Password) < minPasswordLength {
		return AuthResult{}, ErrWeakPassword
	}

	role := input.Role
	if role == "" {
		role = models.UserRoleClient
	}
	status := models.UserStatusVerified
	switch role {
	case models.UserRoleClient:
	case models.UserRoleDriver:
		status = models.UserStatusUnverified
	default:
		return AuthResult{}, ErrInvalidRole
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return AuthResult{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return AuthResult{}, err
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return AuthResult{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Email:        email,
		Phone:        strings.TrimSpace(input.Phone),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		PasswordHash: passwordHash,
		Provider:     models.ProviderPassword,
		Role:         role,
		Status:       status,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return AuthResult{}, ErrEmailTaken
		}
		return AuthResult{}, err
	}

	s.log.Info().Str("user_id", user.ID).Str("role", string(role)).Msg("user registered")
	return s.createSession(ctx, user, sessionInput{
		DeviceID:   input.DeviceID,
		DeviceName: input.DeviceName,
		IPAddress:  input.IPAddress,
		UserAgent:  input.UserAgent,
	})
}

type LoginInput struct {
	Email      string
	Password   string
	DeviceID   string
	DeviceName string
	IPAddress  string
	UserAgent  string
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !ok {
		return AuthResult{}, ErrInvalidCredentials
	}
	if user.Status == models.UserStatusSuspended {
		return AuthResult{}, ErrUserSuspended
	}

	return s.createSession(ctx, user, sessionInput{
		DeviceID:   input.DeviceID,
		DeviceName: input.DeviceName,
		IPAddress:  input.IPAddress,
		UserAgent:  input.UserAgent,
	})
}

type OAuthInput struct {
	IDToken    string
	DeviceID   string
	DeviceName string
	IPAddress  string
	UserAgent  string
}

// OAuthLogin exchanges a federated ID token for a session. First-time users become
// verified clients. Linked accounts keep their role and status.
func (s *AuthService) OAuthLogin(ctx context.Context, input OAuthInput) (AuthResult, error) {
	token, err := s.identity.VerifyIDToken(ctx, input.IDToken)
	if err != nil {
		if errors.Is(err, identity.ErrDisabled) {
			return AuthResult{}, err
		}
		return AuthResult{}, ErrInvalidCredentials
	}

	user, err := s.users.FindByFirebaseUID(ctx, token.UID)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrUserNotFound):
		user, err = s.linkOrCreate(ctx, token)
		if err != nil {
			return AuthResult{}, err
		}
	default:
		return AuthResult{}, err
	}

	if user.Status == models.UserStatusSuspended {
		return AuthResult{}, ErrUserSuspended
	}

	return s.createSession(ctx, user, sessionInput{
		DeviceID:   input.DeviceID,
		DeviceName: input.DeviceName,
		IPAddress:  input.IPAddress,
		UserAgent:  input.UserAgent,
	})
}

func (s *AuthService) linkOrCreate(ctx context.Context, token identity.Token) (models.User, error) {
	email := strings.ToLower(strings.TrimSpace(token.Email))
	existing, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		if !token.EmailVerified {
			return models.User{}, ErrEmailNotVerified
		}
		if err := s.users.LinkFirebaseUID(ctx, existing.ID, token.UID); err != nil {
			return models.User{}, err
		}
		uid := token.UID
		existing.FirebaseUID = &uid
		return existing, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, err
	}

	first, last := splitName(token.Name)
	uid := token.UID
	user := models.User{
		ID:          ids.New(),
		Email:       email,
		FirstName:   first,
		LastName:    last,
		Provider:    models.ProviderGoogle,
		FirebaseUID: &uid,
		Role:        models.UserRoleClient,
		Status:      models.UserStatusVerified,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return models.User{}, err
	}
	s.log.Info().Str("user_id", user.ID).Msg("oauth user created")
	return user, nil
}

type RefreshInput struct {
	UserID       string
	RefreshToken string
	DeviceID     string
}

func (s *AuthService) Refresh(ctx context.Context, input RefreshInput) (AuthResult, error) {
	user, err := s.users.GetByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}
	if user.Status == models.UserStatusSuspended {
		return AuthResult{}, ErrUserSuspended
	}

	session, err := s.sessions.FindByRefreshHash(ctx, input.UserID, security.HashRefreshToken(input.RefreshToken))
	if err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}
	if session.DeviceID != input.DeviceID {
		return AuthResult{}, ErrInvalidCredentials
	}
	if session.ExpiresAt.Before(s.now()) {
		_ = s.sessions.DeleteByID(ctx, session.ID)
		return AuthResult{}, ErrInvalidCredentials
	}

	refreshToken, newHash, err := security.GenerateRefreshToken(64)
	if err != nil {
		return AuthResult{}, err
	}
	session.RefreshTokenHash = newHash
	session.ExpiresAt = s.now().Add(s.cfg.JWTRefreshTTL)
	if err := s.sessions.Create(ctx, session); err != nil {
		return AuthResult{}, err
	}

	accessToken, err := s.tokens.Issue(user.ID, session.ID, session.DeviceID, string(user.Role))
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
		DeviceID:     session.DeviceID,
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, userID string, deviceID string) error {
	return s.sessions.DeleteByDevice(ctx, userID, deviceID)
}

func (s *AuthService) Sessions(ctx context.Context, userID string) ([]models.Session, error) {
	return s.sessions.ListByUser(ctx, userID)
}

type sessionInput struct {
	DeviceID   string
	DeviceName string
	IPAddress  string
	UserAgent  string
}

func (s *AuthService) createSession(ctx context.Context, user models.User, input sessionInput) (AuthResult, error) {
	deviceID := input.DeviceID
	if deviceID == "" {
		deviceID = ids.New()
	}
	deviceName := input.DeviceName
	if deviceName == "" {
		deviceName = "Unknown Device"
	}

	refreshToken, refreshHash, err := security.GenerateRefreshToken(64)
	if err != nil {
		return AuthResult{}, err
	}

	session := models.Session{
		ID:               ids.New(),
		UserID:           user.ID,
		DeviceID:         deviceID,
		DeviceName:       deviceName,
		RefreshTokenHash: refreshHash,
		IPAddress:        input.IPAddress,
		UserAgent:        input.UserAgent,
		ExpiresAt:        s.now().Add(s.cfg.JWTRefreshTTL),
	}

	accessToken, err := s.tokens.Issue(user.ID, session.ID, deviceID, string(user.Role))
	if err != nil {
		return AuthResult{}, err
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return AuthResult{}, err
	}
	if err := s.enforceSessionLimit(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("enforce session limit failed")
	}

	return AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
		DeviceID:     deviceID,
	}, nil
}

func (s *AuthService) enforceSessionLimit(ctx context.Context, userID string) error {
	if s.cfg.MaxSessions <= 0 {
		return nil
	}
	count, err := s.sessions.CountByUser(ctx, userID)
	if err != nil {
		return err
	}
	if count <= s.cfg.MaxSessions {
		return nil
	}
	return s.sessions.DeleteOldestSessions(ctx, userID, s.cfg.MaxSessions)
}

func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(strings.ToLower(raw))
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func splitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	first, last, _ := strings.Cut(full, " ")
	return first, strings.TrimSpace(last)
}
