package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/homescout-onboarding/internal/core/domain"
	"github.com/arklim/homescout-onboarding/internal/core/port"
)

// StubPublisher logs events instead of sending them. Used when no brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a logging event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, fields ...zap.Field) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	p.logger.Info("stub event published", append([]zap.Field{
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
	}, fields...)...)
}

func (p *StubPublisher) PublishPreferencesSaved(_ context.Context, event domain.PreferencesSavedEvent) error {
	p.logEvent(EventPreferencesSaved, event.UserID, event.SavedAt,
		zap.String("preferences_id", event.PreferencesID),
		zap.Bool("created", event.Created),
	)
	return nil
}

func (p *StubPublisher) PublishOnboardingCompleted(_ context.Context, event domain.OnboardingCompletedEvent) error {
	p.logEvent(EventOnboardingComplete, event.UserID, event.CompletedAt,
		zap.String("installation_id", event.InstallationID),
		zap.Bool("skipped", event.Skipped),
	)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
