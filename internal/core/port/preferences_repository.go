package port

import (
	"context"

	"github.com/arklim/homescout-onboarding/internal/core/domain"
)

// PreferencesRepository exposes persistence behavior for user search preferences.
type PreferencesRepository interface {
	GetByUserID(ctx context.Context, userID string) (*domain.UserPreferences, error)
	// Upsert inserts or updates the single row keyed by prefs.UserID and returns the
	// stored row. created is true when no row existed before.
	Upsert(ctx context.Context, prefs domain.UserPreferences) (stored *domain.UserPreferences, created bool, err error)
	Exists(ctx context.Context, userID string) (bool, error)
}
