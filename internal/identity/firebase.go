package identity

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/auth"
	"google.golang.org/api/option"

	"ridedesk/internal/config"
)

var (
	ErrInvalidIDToken = errors.New("invalid id token")
	ErrDisabled       = errors.New("identity provider not configured")
)

// Token is the verified subset of a federated ID token.
type Token struct {
	UID           string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// Provider verifies federated sign-ins and removes federated accounts.
type Provider interface {
	VerifyIDToken(ctx context.Context, idToken string) (Token, error)
	DeleteUser(ctx context.Context, uid string) error
}

type FirebaseProvider struct {
	client *auth.Client
}

// NewProvider returns a Firebase-backed provider, or a disabled one when no project is configured.
func NewProvider(ctx context.Context, cfg config.FirebaseConfig) (Provider, error) {
	if cfg.ProjectID == "" {
		return Disabled{}, nil
	}

	var opts []option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	return &FirebaseProvider{client: client}, nil
}

func (p *FirebaseProvider) VerifyIDToken(ctx context.Context, idToken string) (Token, error) {
	token, err := p.client.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}

	out := Token{UID: token.UID}
	out.Email, _ = token.Claims["email"].(string)
	out.EmailVerified, _ = token.Claims["email_verified"].(bool)
	out.Name, _ = token.Claims["name"].(string)
	out.Picture, _ = token.Claims["picture"].(string)
	if out.Email == "" {
		return Token{}, fmt.Errorf("%w: email claim missing", ErrInvalidIDToken)
	}
	return out, nil
}

// DeleteUser removes the federated account. A missing account is not an error.
func (p *FirebaseProvider) DeleteUser(ctx context.Context, uid string) error {
	if uid == "" {
		return nil
	}
	if err := p.client.DeleteUser(ctx, uid); err != nil {
		if auth.IsUserNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete firebase user: %w", err)
	}
	return nil
}

// Disabled rejects every sign-in and treats deletes as already done.
type Disabled struct{}

func (Disabled) VerifyIDToken(context.Context, string) (Token, error) {
	return Token{}, ErrDisabled
}

func (Disabled) DeleteUser(context.Context, string) error {
	return nil
}
