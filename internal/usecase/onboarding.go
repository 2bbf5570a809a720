package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/arklim/homescout-onboarding/internal/core/domain"
	"github.com/arklim/homescout-onboarding/internal/core/port"
	appLogger "github.com/arklim/homescout-onboarding/internal/infra/logger"
	"github.com/arklim/homescout-onboarding/internal/repository"
)

// OnboardingFlow coordinates the client side of sign-up, sign-in and preference capture.
// Within one action the order is always: clear stale state, call the backend,
// update AuthState, then update the Navigator.
type OnboardingFlow struct {
	auth        *AuthState
	navigator   *Navigator
	gateway     port.AuthGateway
	preferences port.PreferencesGateway
	logger      *zap.Logger
}

// NewOnboardingFlow wires the flow collaborators.
func NewOnboardingFlow(auth *AuthState, navigator *Navigator, gateway port.AuthGateway, preferences port.PreferencesGateway, logger *zap.Logger) *OnboardingFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OnboardingFlow{
		auth:        auth,
		navigator:   navigator,
		gateway:     gateway,
		preferences: preferences,
		logger:      logger,
	}
}

// SignUp registers a new account and puts the user on the preferences screen.
func (f *OnboardingFlow) SignUp(ctx context.Context, email, password, displayName string) (domain.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return domain.Session{}, &domain.ValidationError{Field: "email", Message: "email and password are required"}
	}

	f.auth.ClearAllUserData()
	f.navigator.Reset(ctx)

	f.auth.SetLoading(true)
	defer f.auth.SetLoading(false)

	session, err := f.gateway.SignUp(ctx, email, password, strings.TrimSpace(displayName))
	if err != nil {
		return domain.Session{}, f.authFailure("sign up", email, err)
	}

	f.applySession(session)
	f.navigator.EnterPreferencesScreen(ctx, session.User.ID)

	f.logger.Info("user signed up",
		zap.String("user_id", session.User.ID),
		zap.String("email", appLogger.MaskEmail(email)),
		zap.Bool("confirmed", session.Confirmed),
	)
	return session, nil
}

// SignIn authenticates an existing account. Users without stored preferences are
// sent to the preferences screen unless they already finished or skipped it.
func (f *OnboardingFlow) SignIn(ctx context.Context, email, password string) (domain.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return domain.Session{}, &domain.ValidationError{Field: "email", Message: "email and password are required"}
	}

	f.auth.ClearError()
	f.auth.SetLoading(true)
	defer f.auth.SetLoading(false)

	session, err := f.gateway.SignIn(ctx, email, password)
	if err != nil {
		return domain.Session{}, f.authFailure("sign in", email, err)
	}

	f.applySession(session)
	f.syncPreferencesStep(ctx, session.User.ID)

	f.logger.Info("user signed in",
		zap.String("user_id", session.User.ID),
		zap.Bool("confirmed", session.Confirmed),
	)
	return session, nil
}

// RestoreSession resumes a stored session at start-up. It returns a nil user and
// no error when there is nothing to restore.
func (f *OnboardingFlow) RestoreSession(ctx context.Context) (*domain.User, error) {
	f.auth.SetLoading(true)
	defer f.auth.SetLoading(false)

	session, err := f.gateway.RestoreSession(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			f.auth.HandleEvent(domain.AuthEvent{Kind: domain.AuthEventNoInitialSession})
			return nil, nil
		}
		f.auth.SignOut()
		return nil, f.authFailure("restore session", "", err)
	}

	user := session.User
	f.auth.HandleEvent(domain.AuthEvent{
		Kind:      domain.AuthEventInitialSession,
		User:      &user,
		Confirmed: session.Confirmed,
	})
	return f.auth.CurrentUser(), nil
}

// SignOut ends the backend session and clears the local auth state. The
// navigation record is kept so a skipped onboarding stays skipped.
func (f *OnboardingFlow) SignOut(ctx context.Context) error {
	err := f.gateway.SignOut(ctx)
	f.auth.HandleEvent(domain.AuthEvent{Kind: domain.AuthEventSignedOut})
	if err != nil {
		f.logger.Warn("backend sign out failed", zap.Error(err))
		return fmt.Errorf("%w: sign out: %w", ErrAuthentication, err)
	}
	return nil
}

// SavePreferences stores the current user's preferences and completes onboarding.
// A response that arrives after the effective user changed is discarded with ErrStaleResponse.
func (f *OnboardingFlow) SavePreferences(ctx context.Context, input domain.PreferencesInput) (*domain.UserPreferences, error) {
	user := f.auth.CurrentUser()
	if user == nil {
		return nil, ErrSignInRequired
	}
	userID := user.ID

	input = input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, err
	}

	saved, err := f.preferences.Save(ctx, userID, input)
	if err != nil {
		f.logger.Warn("saving preferences failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	if !f.isCurrentUser(userID) {
		f.logger.Info("discarding preferences response for previous user", zap.String("user_id", userID))
		return nil, ErrStaleResponse
	}

	f.navigator.CompletePreferences(ctx, userID, false)
	return saved, nil
}

// SkipPreferences records that the current user declined to set preferences.
func (f *OnboardingFlow) SkipPreferences(ctx context.Context) error {
	user := f.auth.CurrentUser()
	if user == nil {
		return ErrSignInRequired
	}
	f.navigator.CompletePreferences(ctx, user.ID, true)
	return nil
}

// NextScreen returns the screen the client should show for the current state.
func (f *OnboardingFlow) NextScreen(ctx context.Context) domain.Screen {
	snap := f.auth.Snapshot()
	user := snap.CurrentUser()
	if user == nil {
		return domain.ScreenSignIn
	}
	if f.navigator.ShouldRedirectToPreferences(ctx, user.ID) {
		return domain.ScreenPropertyPreferences
	}
	if snap.IsWaitingForConfirmation {
		return domain.ScreenConfirmEmail
	}
	return domain.ScreenSearch
}

func (f *OnboardingFlow) applySession(session domain.Session) {
	user := session.User
	f.auth.ClearError()
	if session.Confirmed {
		f.auth.SetUser(&user)
		return
	}
	f.auth.SetUnconfirmedUser(&user)
}

// syncPreferencesStep reconciles the navigation record with the server-side
// preferences after a sign-in.
func (f *OnboardingFlow) syncPreferencesStep(ctx context.Context, userID string) {
	exists, err := f.preferences.Exists(ctx, userID)
	if err != nil {
		f.logger.Warn("preferences existence check failed", zap.String("user_id", userID), zap.Error(err))
		exists = false
	}

	state := f.navigator.State(ctx)
	if exists {
		if state.RequiresPreferences(userID) {
			f.navigator.CompletePreferences(ctx, userID, false)
		}
		return
	}
	if state.Kind == domain.NavigationPreferencesDone && state.UserID == userID {
		return
	}
	f.navigator.EnterPreferencesScreen(ctx, userID)
}

func (f *OnboardingFlow) isCurrentUser(userID string) bool {
	current := f.auth.CurrentUser()
	return current != nil && current.ID == userID
}

func (f *OnboardingFlow) authFailure(op, email string, err error) error {
	f.auth.SetError(err.Error())
	fields := []zap.Field{zap.String("op", op), zap.Error(err)}
	if email != "" {
		fields = append(fields, zap.String("email", appLogger.MaskEmail(email)))
	}
	f.logger.Warn("authentication failed", fields...)
	return fmt.Errorf("%w: %s: %w", ErrAuthentication, op, err)
}
