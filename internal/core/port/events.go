package port

import (
	"context"

	"github.com/arklim/homescout-onboarding/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishPreferencesSaved(ctx context.Context, event domain.PreferencesSavedEvent) error
	PublishOnboardingCompleted(ctx context.Context, event domain.OnboardingCompletedEvent) error
}
