package identity

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/arklim/homescout-onboarding/internal/core/port"
	"github.com/arklim/homescout-onboarding/internal/infra/config"
	"github.com/arklim/homescout-onboarding/internal/infra/security"
)

// NewVerifier builds the ID-token verifier selected by cfg.Provider.
// The "none" provider returns a nil verifier; callers then trust X-User-ID.
func NewVerifier(ctx context.Context, cfg config.IdentitySettings, logger *zap.Logger) (port.IdentityVerifier, error) {
	switch cfg.Provider {
	case "firebase":
		verifier, err := NewFirebaseVerifier(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return verifier, nil
	case "dev":
		manager, err := security.NewDevTokenManager(cfg.DevSecret, cfg.DevIssuer, cfg.DevTokenTTL)
		if err != nil {
			return nil, err
		}
		return manager, nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown identity provider %q", cfg.Provider)
	}
}
