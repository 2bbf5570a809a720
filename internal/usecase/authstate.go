package usecase

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/arklim/homescout-onboarding/internal/core/domain"
	appLogger "github.com/arklim/homescout-onboarding/internal/infra/logger"
)

// AuthSnapshot is a consistent, read-only view of the authentication state.
type AuthSnapshot struct {
	User                     *domain.User
	UnconfirmedUser          *domain.User
	IsLoading                bool
	Error                    string
	IsAuthenticated          bool
	IsWaitingForConfirmation bool
}

// CurrentUser returns the confirmed user, falling back to the unconfirmed one.
func (s AuthSnapshot) CurrentUser() *domain.User {
	if s.User != nil {
		return s.User
	}
	return s.UnconfirmedUser
}

type authFields struct {
	user        *domain.User
	unconfirmed *domain.User
	loading     bool
	err         string
}

// AuthState holds the client's authentication state. Every mutation is applied
// atomically and delivered to subscribers before the mutating call returns.
// Subscribers must not call back into the setters.
type AuthState struct {
	mu     sync.RWMutex
	fields authFields

	// notifyMu serialises mutation plus delivery so subscribers see snapshots in order.
	notifyMu    sync.Mutex
	subscribers map[uint64]func(AuthSnapshot)
	nextSubID   uint64

	logger *zap.Logger
}

// NewAuthState constructs an empty, signed-out state.
func NewAuthState(logger *zap.Logger) *AuthState {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthState{
		subscribers: make(map[uint64]func(AuthSnapshot)),
		logger:      logger,
	}
}

// Subscribe registers fn for every subsequent mutation and returns a cancel function.
func (a *AuthState) Subscribe(fn func(AuthSnapshot)) func() {
	if fn == nil {
		return func() {}
	}

	a.notifyMu.Lock()
	id := a.nextSubID
	a.nextSubID++
	a.subscribers[id] = fn
	a.notifyMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.notifyMu.Lock()
			delete(a.subscribers, id)
			a.notifyMu.Unlock()
		})
	}
}

// Snapshot returns the current state.
func (a *AuthState) Snapshot() AuthSnapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return snapshotOf(a.fields)
}

// CurrentUser returns the effective current user or nil.
func (a *AuthState) CurrentUser() *domain.User {
	return a.Snapshot().CurrentUser()
}

// IsAuthenticated reports whether a confirmed user is signed in.
func (a *AuthState) IsAuthenticated() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.fields.user != nil
}

// SetUser stores a confirmed user and clears any unconfirmed one. nil clears the confirmed user.
func (a *AuthState) SetUser(user *domain.User) {
	a.mutate(func(f *authFields) {
		f.user = cloneUser(user)
		if f.user != nil {
			f.unconfirmed = nil
		}
	})
}

// SetUnconfirmedUser stores a user awaiting email confirmation and clears the confirmed one.
func (a *AuthState) SetUnconfirmedUser(user *domain.User) {
	a.mutate(func(f *authFields) {
		f.unconfirmed = cloneUser(user)
		if f.unconfirmed != nil {
			f.user = nil
		}
	})
}

// SetLoading flags an in-flight auth operation.
func (a *AuthState) SetLoading(loading bool) {
	a.mutate(func(f *authFields) {
		f.loading = loading
	})
}

// SetError records a user-visible error message. An empty message clears it.
func (a *AuthState) SetError(message string) {
	a.mutate(func(f *authFields) {
		f.err = strings.TrimSpace(message)
	})
}

// ClearError removes the last error message.
func (a *AuthState) ClearError() {
	a.SetError("")
}

// SignOut resets every field to the signed-out state.
func (a *AuthState) SignOut() {
	a.mutate(func(f *authFields) {
		*f = authFields{}
	})
}

// ClearAllUserData drops any cached identity before a fresh sign-up.
func (a *AuthState) ClearAllUserData() {
	a.logger.Debug("clearing cached user data")
	a.SignOut()
}

// HandleEvent applies a session event from the auth backend.
func (a *AuthState) HandleEvent(event domain.AuthEvent) {
	switch event.Kind {
	case domain.AuthEventTokenRefreshed:
		return
	case domain.AuthEventNoInitialSession, domain.AuthEventSignedOut:
		a.SignOut()
	case domain.AuthEventInitialSession, domain.AuthEventSignedIn:
		if event.User == nil || event.User.IsZero() {
			if event.Kind == domain.AuthEventInitialSession {
				a.SignOut()
				return
			}
			a.logger.Warn("signed-in event without user")
			return
		}
		user := cloneUser(event.User)
		a.mutate(func(f *authFields) {
			f.loading = false
			f.err = ""
			if event.Confirmed {
				f.user, f.unconfirmed = user, nil
				return
			}
			f.user, f.unconfirmed = nil, user
		})
	case domain.AuthEventUserUpdated:
		if event.User == nil || event.User.IsZero() {
			return
		}
		user := cloneUser(event.User)
		a.mutate(func(f *authFields) {
			switch {
			case f.user != nil && f.user.ID == user.ID:
				f.user = user
			case f.unconfirmed != nil && f.unconfirmed.ID == user.ID:
				if event.Confirmed {
					f.user, f.unconfirmed = user, nil
					return
				}
				f.unconfirmed = user
			}
		})
	default:
		a.logger.Warn("ignoring unknown auth event", zap.String("kind", string(event.Kind)))
	}
}

func (a *AuthState) mutate(fn func(*authFields)) {
	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()

	a.mu.Lock()
	fn(&a.fields)
	snap := snapshotOf(a.fields)
	a.mu.Unlock()

	if user := snap.CurrentUser(); user != nil {
		a.logger.Debug("auth state updated",
			zap.String("user_id", user.ID),
			zap.String("email", appLogger.MaskEmail(user.Email)),
			zap.Bool("authenticated", snap.IsAuthenticated),
		)
	}

	for id, sub := range a.subscribers {
		a.deliver(id, sub, snap)
	}
}

func (a *AuthState) deliver(id uint64, fn func(AuthSnapshot), snap AuthSnapshot) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("auth state subscriber panicked",
				zap.Uint64("subscriber", id),
				zap.Any("panic", r),
			)
		}
	}()
	fn(snap)
}

func snapshotOf(f authFields) AuthSnapshot {
	return AuthSnapshot{
		User:                     cloneUser(f.user),
		UnconfirmedUser:          cloneUser(f.unconfirmed),
		IsLoading:                f.loading,
		Error:                    f.err,
		IsAuthenticated:          f.user != nil,
		IsWaitingForConfirmation: f.user == nil && f.unconfirmed != nil,
	}
}

func cloneUser(user *domain.User) *domain.User {
	if user == nil || user.IsZero() {
		return nil
	}
	copy := *user
	return &copy
}
