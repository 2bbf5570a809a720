package identity

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/arklim/homescout-onboarding/internal/infra/config"
	"github.com/arklim/homescout-onboarding/internal/infra/security"
)

func TestNewVerifierSelectsProvider(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	verifier, err := NewVerifier(ctx, config.IdentitySettings{Provider: "none"}, logger)
	if err != nil || verifier != nil {
		t.Fatalf("expected nil verifier for none provider, got %v err=%v", verifier, err)
	}

	verifier, err = NewVerifier(ctx, config.IdentitySettings{Provider: "dev", DevSecret: "s3cret", DevIssuer: "homescout-dev"}, logger)
	if err != nil {
		t.Fatalf("dev verifier: %v", err)
	}
	if _, ok := verifier.(*security.DevTokenManager); !ok {
		t.Fatalf("expected dev token manager, got %T", verifier)
	}

	if _, err := NewVerifier(ctx, config.IdentitySettings{Provider: "dev"}, logger); err == nil {
		t.Fatalf("expected error for dev provider without secret")
	}
	if _, err := NewVerifier(ctx, config.IdentitySettings{Provider: "saml"}, logger); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}
