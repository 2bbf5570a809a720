package usecase

import (
	"context"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/homescout-onboarding/internal/core/domain"
	"github.com/arklim/homescout-onboarding/internal/core/port"
)

const maxInstallationIDLength = 128

// InstallationOnboarding serves the navigation state of many installations from
// one shared store, one record per installation id.
type InstallationOnboarding struct {
	navigator *Navigator
	events    port.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// NewInstallationOnboarding constructs the service. events may be nil.
func NewInstallationOnboarding(navigator *Navigator, events port.EventPublisher, logger *zap.Logger) *InstallationOnboarding {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstallationOnboarding{
		navigator: navigator,
		events:    events,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// WithClock overrides the clock used for event timestamps.
func (s *InstallationOnboarding) WithClock(now func() time.Time) *InstallationOnboarding {
	if now != nil {
		s.now = now
	}
	return s
}

// State returns the unexpired navigation state of the installation.
func (s *InstallationOnboarding) State(ctx context.Context, installationID string) (domain.NavigationState, error) {
	nav, err := s.scoped(installationID)
	if err != nil {
		return domain.NoNavigationState(), err
	}
	return nav.State(ctx), nil
}

// ShouldRedirect reports whether userID must be sent to the preferences screen on this installation.
func (s *InstallationOnboarding) ShouldRedirect(ctx context.Context, installationID, userID string) (bool, error) {
	nav, err := s.scoped(installationID)
	if err != nil {
		return false, err
	}
	return nav.ShouldRedirectToPreferences(ctx, userID), nil
}

// EnterPreferencesScreen records that userID opened the preferences screen.
func (s *InstallationOnboarding) EnterPreferencesScreen(ctx context.Context, installationID, userID string) error {
	nav, err := s.scoped(installationID)
	if err != nil {
		return err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrSignInRequired
	}
	nav.EnterPreferencesScreen(ctx, userID)
	return nil
}

// CompletePreferences records a save or skip and announces the completed onboarding.
func (s *InstallationOnboarding) CompletePreferences(ctx context.Context, installationID, userID string, skipped bool) error {
	nav, err := s.scoped(installationID)
	if err != nil {
		return err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrSignInRequired
	}
	nav.CompletePreferences(ctx, userID, skipped)

	if s.events == nil {
		return nil
	}
	event := domain.OnboardingCompletedEvent{
		EventID:        s.newID(),
		UserID:         userID,
		InstallationID: strings.TrimSpace(installationID),
		Skipped:        skipped,
		CompletedAt:    s.now().UTC(),
	}
	if err := s.events.PublishOnboardingCompleted(ctx, event); err != nil {
		s.logger.Warn("failed to publish onboarding completed event",
			zap.String("user_id", userID),
			zap.String("installation_id", event.InstallationID),
			zap.Error(err),
		)
	}
	return nil
}

// MarkScreen records the screen the installation is showing.
func (s *InstallationOnboarding) MarkScreen(ctx context.Context, installationID string, screen domain.Screen) error {
	nav, err := s.scoped(installationID)
	if err != nil {
		return err
	}
	if screen == domain.ScreenNone {
		return &domain.ValidationError{Field: "screen", Message: "screen is required"}
	}
	nav.MarkScreen(ctx, screen)
	return nil
}

// Reset deletes the installation's navigation record.
func (s *InstallationOnboarding) Reset(ctx context.Context, installationID string) error {
	nav, err := s.scoped(installationID)
	if err != nil {
		return err
	}
	nav.Reset(ctx)
	return nil
}

func (s *InstallationOnboarding) scoped(installationID string) (*Navigator, error) {
	installationID = strings.TrimSpace(installationID)
	if installationID == "" {
		return nil, ErrInstallationRequired
	}
	if len(installationID) > maxInstallationIDLength || strings.ContainsAny(installationID, " \t\r\n:") {
		return nil, &domain.ValidationError{Field: "installation_id", Message: "installation id is malformed"}
	}
	return s.navigator.WithKey(installationID), nil
}
