package port

import (
	"context"

	"github.com/arklim/homescout-onboarding/internal/core/domain"
)

// IdentityVerifier resolves a bearer ID token issued by the auth backend.
type IdentityVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (domain.Session, error)
}
