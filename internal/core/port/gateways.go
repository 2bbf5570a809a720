package port

import (
	"context"

	"github.com/arklim/homescout-onboarding/internal/core/domain"
)

// AuthGateway performs the network side of authentication for a client.
// RestoreSession returns repository.ErrNotFound when no session is stored.
type AuthGateway interface {
	SignUp(ctx context.Context, email, password, displayName string) (domain.Session, error)
	SignIn(ctx context.Context, email, password string) (domain.Session, error)
	RestoreSession(ctx context.Context) (domain.Session, error)
	SignOut(ctx context.Context) error
}

// PreferencesGateway is the client view of the preferences API. Get returns
// repository.ErrNotFound when the user has not saved preferences yet.
type PreferencesGateway interface {
	Get(ctx context.Context, userID string) (*domain.UserPreferences, error)
	Save(ctx context.Context, userID string, input domain.PreferencesInput) (*domain.UserPreferences, error)
	Exists(ctx context.Context, userID string) (bool, error)
}
