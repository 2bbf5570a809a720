package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/homescout-onboarding/internal/core/domain"
	"github.com/arklim/homescout-onboarding/internal/core/port"
	"github.com/arklim/homescout-onboarding/internal/repository"
)

// PreferencesService implements the save/load contract for user search preferences.
type PreferencesService struct {
	repo   port.PreferencesRepository
	events port.EventPublisher
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// NewPreferencesService constructs PreferencesService. events may be nil.
func NewPreferencesService(repo port.PreferencesRepository, events port.EventPublisher, logger *zap.Logger) *PreferencesService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PreferencesService{
		repo:   repo,
		events: events,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *PreferencesService) WithClock(now func() time.Time) *PreferencesService {
	if now != nil {
		s.now = now
	}
	return s
}

// GetPreferences returns the stored preferences. found is false, with a nil error,
// when the user has not saved preferences yet.
func (s *PreferencesService) GetPreferences(ctx context.Context, userID string) (*domain.UserPreferences, bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, false, ErrSignInRequired
	}

	prefs, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, &domain.TransientStorageError{Op: "get preferences", Err: err}
	}
	return prefs, true, nil
}

// SavePreferences validates input and upserts the single preferences row for userID.
func (s *PreferencesService) SavePreferences(ctx context.Context, userID string, input domain.PreferencesInput) (*domain.UserPreferences, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrSignInRequired
	}

	input = input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	prefs := input.Apply(userID)
	prefs.ID = s.newID()
	prefs.CreatedAt = now
	prefs.UpdatedAt = now

	stored, created, err := s.repo.Upsert(ctx, prefs)
	if err != nil {
		return nil, &domain.TransientStorageError{Op: "save preferences", Err: err}
	}

	s.logger.Info("preferences saved",
		zap.String("user_id", userID),
		zap.String("preferences_id", stored.ID),
		zap.Bool("created", created),
	)

	s.publishSaved(ctx, stored, created)
	return stored, nil
}

// CheckExists reports whether the user has saved preferences. Faults read as false.
func (s *PreferencesService) CheckExists(ctx context.Context, userID string) bool {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false
	}

	exists, err := s.repo.Exists(ctx, userID)
	if err != nil {
		s.logger.Warn("preferences existence check failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return false
	}
	return exists
}

func (s *PreferencesService) publishSaved(ctx context.Context, prefs *domain.UserPreferences, created bool) {
	if s.events == nil {
		return
	}
	event := domain.PreferencesSavedEvent{
		EventID:           s.newID(),
		UserID:            prefs.UserID,
		PreferencesID:     prefs.ID,
		PreferredLocation: prefs.PreferredLocation,
		Created:           created,
		SavedAt:           prefs.UpdatedAt,
	}
	if err := s.events.PublishPreferencesSaved(ctx, event); err != nil {
		s.logger.Warn("failed to publish preferences saved event",
			zap.String("user_id", prefs.UserID),
			zap.Error(err),
		)
	}
}
