package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/arklim/homescout-onboarding/internal/core/domain"
	"github.com/arklim/homescout-onboarding/internal/repository"
)

type stubPreferencesRepository struct {
	mu        sync.Mutex
	rows      map[string]domain.UserPreferences
	getErr    error
	saveErr   error
	existsErr error

	upsertCalls int
}

func newStubPreferencesRepository() *stubPreferencesRepository {
	return &stubPreferencesRepository{rows: make(map[string]domain.UserPreferences)}
}

func (s *stubPreferencesRepository) GetByUserID(_ context.Context, userID string) (*domain.UserPreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	row, ok := s.rows[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &row, nil
}

func (s *stubPreferencesRepository) Upsert(_ context.Context, prefs domain.UserPreferences) (*domain.UserPreferences, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertCalls++
	if s.saveErr != nil {
		return nil, false, s.saveErr
	}
	existing, ok := s.rows[prefs.UserID]
	if ok {
		prefs.ID = existing.ID
		prefs.CreatedAt = existing.CreatedAt
	}
	s.rows[prefs.UserID] = prefs
	stored := prefs
	return &stored, !ok, nil
}

func (s *stubPreferencesRepository) Exists(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existsErr != nil {
		return false, s.existsErr
	}
	_, ok := s.rows[userID]
	return ok, nil
}

type stubEventPublisher struct {
	saved     []domain.PreferencesSavedEvent
	completed []domain.OnboardingCompletedEvent
	err       error
}

func (s *stubEventPublisher) PublishPreferencesSaved(_ context.Context, event domain.PreferencesSavedEvent) error {
	s.saved = append(s.saved, event)
	return s.err
}

func (s *stubEventPublisher) PublishOnboardingCompleted(_ context.Context, event domain.OnboardingCompletedEvent) error {
	s.completed = append(s.completed, event)
	return s.err
}

// faultyStore fails every operation with err.
type faultyStore struct {
	err error
}

func (s faultyStore) Get(context.Context, string) ([]byte, error) { return nil, s.err }
func (s faultyStore) Set(context.Context, string, []byte) error   { return s.err }
func (s faultyStore) Delete(context.Context, string) error        { return s.err }

type stubAuthGateway struct {
	signUpSession  domain.Session
	signInSession  domain.Session
	restoreSession domain.Session
	err            error
	restoreErr     error
	signOutErr     error

	calls []string
}

func (s *stubAuthGateway) SignUp(_ context.Context, email, _, _ string) (domain.Session, error) {
	s.calls = append(s.calls, "sign_up:"+email)
	if s.err != nil {
		return domain.Session{}, s.err
	}
	return s.signUpSession, nil
}

func (s *stubAuthGateway) SignIn(_ context.Context, email, _ string) (domain.Session, error) {
	s.calls = append(s.calls, "sign_in:"+email)
	if s.err != nil {
		return domain.Session{}, s.err
	}
	return s.signInSession, nil
}

func (s *stubAuthGateway) RestoreSession(context.Context) (domain.Session, error) {
	s.calls = append(s.calls, "restore")
	if s.restoreErr != nil {
		return domain.Session{}, s.restoreErr
	}
	return s.restoreSession, nil
}

func (s *stubAuthGateway) SignOut(context.Context) error {
	s.calls = append(s.calls, "sign_out")
	return s.signOutErr
}

// stubPreferencesGateway adapts a PreferencesService into the client gateway and
// lets tests run a hook while a save is in flight.
type stubPreferencesGateway struct {
	service           *PreferencesService
	beforeSaveReturns func()
	existsErr         error
}

func (s *stubPreferencesGateway) Get(ctx context.Context, userID string) (*domain.UserPreferences, error) {
	prefs, found, err := s.service.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, repository.ErrNotFound
	}
	return prefs, nil
}

func (s *stubPreferencesGateway) Save(ctx context.Context, userID string, input domain.PreferencesInput) (*domain.UserPreferences, error) {
	saved, err := s.service.SavePreferences(ctx, userID, input)
	if s.beforeSaveReturns != nil {
		s.beforeSaveReturns()
	}
	return saved, err
}

func (s *stubPreferencesGateway) Exists(ctx context.Context, userID string) (bool, error) {
	if s.existsErr != nil {
		return false, s.existsErr
	}
	return s.service.CheckExists(ctx, userID), nil
}

var errStubBackend = errors.New("backend unavailable")
