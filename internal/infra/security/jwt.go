package security

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/arklim/homescout-onboarding/internal/core/domain"
	"github.com/arklim/homescout-onboarding/internal/core/port"
)

// ErrInvalidToken indicates a bearer token that failed signature, issuer or expiry checks.
var ErrInvalidToken = errors.New("jwt: invalid token")

const defaultIDTokenTTL = time.Hour

// IDTokenClaims mirror the identity claims a hosted auth backend puts in its ID tokens.
type IDTokenClaims struct {
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name,omitempty"`
	AuthTime      int64  `json:"auth_time,omitempty"`
	jwt.RegisteredClaims
}

// IDTokenOptions configures a token minted by DevTokenManager.
type IDTokenOptions struct {
	User          domain.User
	EmailVerified bool
	TTL           time.Duration
}

// DevTokenManager issues and verifies HS256 ID tokens for local development,
// standing in for the hosted identity provider.
type DevTokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewDevTokenManager constructs a manager. secret must not be empty.
func NewDevTokenManager(secret, issuer string, ttl time.Duration) (*DevTokenManager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("jwt: signing secret is required")
	}
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		return nil, fmt.Errorf("jwt: issuer is required")
	}
	if ttl <= 0 {
		ttl = defaultIDTokenTTL
	}
	return &DevTokenManager{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// WithClock overrides the clock, used in tests.
func (m *DevTokenManager) WithClock(now func() time.Time) *DevTokenManager {
	if now != nil {
		m.now = now
	}
	return m
}

// Issue signs an ID token for opts.User and returns it with its expiry.
func (m *DevTokenManager) Issue(opts IDTokenOptions) (string, time.Time, error) {
	userID := strings.TrimSpace(opts.User.ID)
	if userID == "" {
		return "", time.Time{}, fmt.Errorf("jwt: user id is required")
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = m.ttl
	}

	now := m.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(ttl)
	claims := IDTokenClaims{
		Email:         opts.User.Email,
		EmailVerified: opts.EmailVerified,
		Name:          opts.User.DisplayName,
		AuthTime:      now.Unix(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.issuer},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if !opts.User.CreatedAt.IsZero() {
		claims.AuthTime = opts.User.CreatedAt.Unix()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// VerifyIDToken parses and validates idToken and returns the session it describes.
func (m *DevTokenManager) VerifyIDToken(_ context.Context, idToken string) (domain.Session, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return domain.Session{}, ErrInvalidToken
	}

	var claims IDTokenClaims
	_, err := jwt.ParseWithClaims(idToken, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return domain.Session{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	session := domain.Session{
		User: domain.User{
			ID:          claims.Subject,
			Email:       claims.Email,
			DisplayName: claims.Name,
		},
		Confirmed:   claims.EmailVerified,
		AccessToken: idToken,
	}
	if claims.AuthTime > 0 {
		session.User.CreatedAt = time.Unix(claims.AuthTime, 0).UTC()
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return session, nil
}

var _ port.IdentityVerifier = (*DevTokenManager)(nil)
