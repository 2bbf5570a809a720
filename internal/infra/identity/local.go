package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/homescout-onboarding/internal/core/domain"
	"github.com/arklim/homescout-onboarding/internal/core/port"
	"github.com/arklim/homescout-onboarding/internal/infra/logger"
	"github.com/arklim/homescout-onboarding/internal/infra/security"
	"github.com/arklim/homescout-onboarding/internal/repository"
)

const (
	accountKeyPrefix = "account:"
	sessionKey       = "auth_session"
)

var (
	// ErrAccountExists is returned by SignUp for an email that is already registered.
	ErrAccountExists = errors.New("identity: account already exists")
	// ErrInvalidCredentials is returned by SignIn for an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("identity: invalid email or password")
)

type localAccount struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name,omitempty"`
	PasswordHash string    `json:"password_hash"`
	Confirmed    bool      `json:"confirmed"`
	CreatedAt    time.Time `json:"created_at"`
}

func (a localAccount) user() domain.User {
	return domain.User{ID: a.ID, Email: a.Email, DisplayName: a.DisplayName, CreatedAt: a.CreatedAt}
}

// LocalAuthGateway is an account directory kept in a KeyValueStore. It signs
// sessions with a DevTokenManager so the API can verify them with the dev provider.
type LocalAuthGateway struct {
	store               port.KeyValueStore
	tokens              *security.DevTokenManager
	policy              security.PasswordPolicy
	params              security.Argon2Params
	requireConfirmation bool
	logger              *zap.Logger
	now                 func() time.Time
}

// LocalOption customises a LocalAuthGateway.
type LocalOption func(*LocalAuthGateway)

// WithPasswordPolicy overrides the sign-up password policy.
func WithPasswordPolicy(policy security.PasswordPolicy) LocalOption {
	return func(g *LocalAuthGateway) { g.policy = policy }
}

// WithArgon2Params overrides the hashing cost.
func WithArgon2Params(params security.Argon2Params) LocalOption {
	return func(g *LocalAuthGateway) { g.params = params }
}

// WithEmailConfirmation makes new accounts start unconfirmed until Confirm is called.
func WithEmailConfirmation(required bool) LocalOption {
	return func(g *LocalAuthGateway) { g.requireConfirmation = required }
}

// WithClock overrides the clock used for account creation times.
func WithClock(now func() time.Time) LocalOption {
	return func(g *LocalAuthGateway) {
		if now != nil {
			g.now = now
		}
	}
}

// NewLocalAuthGateway constructs a gateway over store.
func NewLocalAuthGateway(store port.KeyValueStore, tokens *security.DevTokenManager, logger *zap.Logger, opts ...LocalOption) *LocalAuthGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &LocalAuthGateway{
		store:               store,
		tokens:              tokens,
		policy:              security.DefaultPasswordPolicy(),
		params:              security.DefaultArgon2Params(),
		requireConfirmation: true,
		logger:              logger,
		now:                 time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *LocalAuthGateway) SignUp(ctx context.Context, email, password, displayName string) (domain.Session, error) {
	email = normalizeEmail(email)
	if email == "" {
		return domain.Session{}, &domain.ValidationError{Field: "email", Message: "email is required"}
	}
	if err := g.policy.Validate(password, email, displayName); err != nil {
		return domain.Session{}, err
	}

	if _, err := g.loadAccount(ctx, email); err == nil {
		return domain.Session{}, ErrAccountExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.Session{}, err
	}

	hash, err := security.HashPassword(password, g.params)
	if err != nil {
		return domain.Session{}, fmt.Errorf("hash password: %w", err)
	}

	account := localAccount{
		ID:           uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+email)).String(),
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: hash,
		Confirmed:    !g.requireConfirmation,
		CreatedAt:    g.now().UTC(),
	}
	if err := g.saveAccount(ctx, account); err != nil {
		return domain.Session{}, err
	}

	g.logger.Info("local account created",
		zap.String("user_id", account.ID),
		zap.String("email", logger.MaskEmail(email)),
		zap.Bool("confirmed", account.Confirmed),
	)
	return g.startSession(ctx, account)
}

func (g *LocalAuthGateway) SignIn(ctx context.Context, email, password string) (domain.Session, error) {
	account, err := g.loadAccount(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.Session{}, err
	}

	ok, err := security.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		return domain.Session{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return domain.Session{}, ErrInvalidCredentials
	}
	return g.startSession(ctx, account)
}

// RestoreSession returns the stored session. An expired or unreadable token is
// cleared and reported as an error.
func (g *LocalAuthGateway) RestoreSession(ctx context.Context) (domain.Session, error) {
	raw, err := g.store.Get(ctx, sessionKey)
	if err != nil {
		return domain.Session{}, err
	}

	session, err := g.tokens.VerifyIDToken(ctx, string(raw))
	if err != nil {
		if delErr := g.store.Delete(ctx, sessionKey); delErr != nil {
			g.logger.Warn("failed to clear stale session", zap.Error(delErr))
		}
		return domain.Session{}, err
	}
	return session, nil
}

// AccessToken returns the stored session token, or "" when signed out.
func (g *LocalAuthGateway) AccessToken(ctx context.Context) string {
	raw, err := g.store.Get(ctx, sessionKey)
	if err != nil {
		return ""
	}
	return string(raw)
}

func (g *LocalAuthGateway) SignOut(ctx context.Context) error {
	if err := g.store.Delete(ctx, sessionKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Confirm marks the account's email as confirmed. When the stored session belongs
// to that account it is re-issued so the next restore sees the confirmation.
func (g *LocalAuthGateway) Confirm(ctx context.Context, email string) (domain.User, error) {
	account, err := g.loadAccount(ctx, normalizeEmail(email))
	if err != nil {
		return domain.User{}, err
	}
	if account.Confirmed {
		return account.user(), nil
	}

	account.Confirmed = true
	if err := g.saveAccount(ctx, account); err != nil {
		return domain.User{}, err
	}

	if current, err := g.RestoreSession(ctx); err == nil && current.User.ID == account.ID {
		if _, err := g.startSession(ctx, account); err != nil {
			return domain.User{}, err
		}
	}
	return account.user(), nil
}

func (g *LocalAuthGateway) startSession(ctx context.Context, account localAccount) (domain.Session, error) {
	token, expiresAt, err := g.tokens.Issue(security.IDTokenOptions{User: account.user(), EmailVerified: account.Confirmed})
	if err != nil {
		return domain.Session{}, err
	}
	if err := g.store.Set(ctx, sessionKey, []byte(token)); err != nil {
		return domain.Session{}, fmt.Errorf("store session: %w", err)
	}
	return domain.Session{
		User:        account.user(),
		Confirmed:   account.Confirmed,
		AccessToken: token,
		ExpiresAt:   expiresAt,
	}, nil
}

func (g *LocalAuthGateway) loadAccount(ctx context.Context, email string) (localAccount, error) {
	if email == "" {
		return localAccount{}, repository.ErrNotFound
	}
	raw, err := g.store.Get(ctx, accountKeyPrefix+email)
	if err != nil {
		return localAccount{}, err
	}
	var account localAccount
	if err := json.Unmarshal(raw, &account); err != nil {
		return localAccount{}, fmt.Errorf("decode account: %w", err)
	}
	return account, nil
}

func (g *LocalAuthGateway) saveAccount(ctx context.Context, account localAccount) error {
	raw, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("encode account: %w", err)
	}
	if err := g.store.Set(ctx, accountKeyPrefix+account.Email, raw); err != nil {
		return fmt.Errorf("store account: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ port.AuthGateway = (*LocalAuthGateway)(nil)
