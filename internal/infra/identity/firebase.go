// Package identity resolves auth backend ID tokens and provides a local account
// directory for development clients.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/arklim/homescout-onboarding/internal/core/domain"
	"github.com/arklim/homescout-onboarding/internal/core/port"
	"github.com/arklim/homescout-onboarding/internal/infra/config"
)

// ErrUnverifiedToken is returned when the hosted backend rejects an ID token.
var ErrUnverifiedToken = errors.New("identity: token verification failed")

// tokenClient is the subset of *auth.Client used by FirebaseVerifier.
type tokenClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
}

// FirebaseVerifier verifies ID tokens issued by Firebase Authentication.
type FirebaseVerifier struct {
	client tokenClient
	logger *zap.Logger
}

// NewFirebaseVerifier initialises a Firebase app from the identity settings.
func NewFirebaseVerifier(ctx context.Context, cfg config.IdentitySettings, logger *zap.Logger) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if cfg.FirebaseCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialsFile))
	}

	var appConfig *firebase.Config
	if cfg.FirebaseProjectID != "" {
		appConfig = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}

	app, err := firebase.NewApp(ctx, appConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase: initialise app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: auth client: %w", err)
	}

	return newFirebaseVerifier(client, logger), nil
}

func newFirebaseVerifier(client tokenClient, logger *zap.Logger) *FirebaseVerifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FirebaseVerifier{client: client, logger: logger}
}

// VerifyIDToken validates idToken and loads the account profile behind it.
func (v *FirebaseVerifier) VerifyIDToken(ctx context.Context, idToken string) (domain.Session, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return domain.Session{}, ErrUnverifiedToken
	}

	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %w", ErrUnverifiedToken, err)
	}

	session := domain.Session{
		User: domain.User{
			ID:    token.UID,
			Email: claimString(token.Claims, "email"),
		},
		Confirmed:   claimBool(token.Claims, "email_verified"),
		AccessToken: idToken,
	}
	if token.Expires > 0 {
		session.ExpiresAt = time.Unix(token.Expires, 0).UTC()
	}
	session.User.DisplayName = claimString(token.Claims, "name")

	record, err := v.client.GetUser(ctx, token.UID)
	if err != nil {
		// The token is valid; the profile lookup only enriches it.
		v.logger.Warn("firebase user lookup failed", zap.String("user_id", token.UID), zap.Error(err))
		return session, nil
	}
	if record.UserInfo != nil {
		if record.Email != "" {
			session.User.Email = record.Email
		}
		if record.DisplayName != "" {
			session.User.DisplayName = record.DisplayName
		}
	}
	if record.UserMetadata != nil && record.UserMetadata.CreationTimestamp > 0 {
		session.User.CreatedAt = time.UnixMilli(record.UserMetadata.CreationTimestamp).UTC()
	}
	session.Confirmed = session.Confirmed || record.EmailVerified

	return session, nil
}

func claimString(claims map[string]interface{}, key string) string {
	if value, ok := claims[key].(string); ok {
		return value
	}
	return ""
}

func claimBool(claims map[string]interface{}, key string) bool {
	if value, ok := claims[key].(bool); ok {
		return value
	}
	return false
}

var _ port.IdentityVerifier = (*FirebaseVerifier)(nil)
