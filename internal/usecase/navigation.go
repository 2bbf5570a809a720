package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/homescout-onboarding/internal/core/domain"
	"github.com/arklim/homescout-onboarding/internal/core/port"
	"github.com/arklim/homescout-onboarding/internal/repository"
)

// DefaultNavigationKey is the well-known key the navigation record lives under.
const DefaultNavigationKey = "navigation_state"

// screenKeySuffix names the companion key holding the last reported screen.
const screenKeySuffix = ":screen"

// NavigationRecorder receives navigator outcomes for instrumentation.
type NavigationRecorder interface {
	RecordRedirectDecision(redirect bool)
	RecordStorageFault(op string)
	RecordExpired()
}

type noopNavigationRecorder struct{}

func (noopNavigationRecorder) RecordRedirectDecision(bool) {}
func (noopNavigationRecorder) RecordStorageFault(string)   {}
func (noopNavigationRecorder) RecordExpired()              {}

// Navigator is the onboarding state machine. It never returns errors: storage
// faults are logged, reads fail open to the empty state and failed writes leave
// the previous record in place.
type Navigator struct {
	store    port.KeyValueStore
	key      string
	logger   *zap.Logger
	recorder NavigationRecorder
	now      func() time.Time
}

// NewNavigator constructs a navigator persisting into store.
func NewNavigator(store port.KeyValueStore, logger *zap.Logger) *Navigator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Navigator{
		store:    store,
		key:      DefaultNavigationKey,
		logger:   logger,
		recorder: noopNavigationRecorder{},
		now:      time.Now,
	}
}

// WithKey returns a navigator bound to a different record key.
func (n *Navigator) WithKey(key string) *Navigator {
	key = strings.TrimSpace(key)
	if key == "" {
		return n
	}
	clone := *n
	clone.key = key
	return &clone
}

// WithClock overrides the internal clock, used in tests.
func (n *Navigator) WithClock(now func() time.Time) *Navigator {
	if now != nil {
		n.now = now
	}
	return n
}

// WithRecorder attaches an instrumentation sink.
func (n *Navigator) WithRecorder(recorder NavigationRecorder) *Navigator {
	if recorder != nil {
		n.recorder = recorder
	}
	return n
}

// Key returns the record key this navigator reads and writes.
func (n *Navigator) Key() string {
	return n.key
}

// EnterPreferencesScreen marks the preferences screen as the active step for userID.
func (n *Navigator) EnterPreferencesScreen(ctx context.Context, userID string) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		n.logger.Debug("skip entering preferences screen without user id", zap.String("key", n.key))
		return
	}
	n.write(ctx, domain.AwaitingPreferences(userID, n.now().UTC()))
}

// CompletePreferences records that userID saved (skipped=false) or declined (skipped=true) preferences.
func (n *Navigator) CompletePreferences(ctx context.Context, userID string, skipped bool) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		n.logger.Debug("skip completing preferences without user id", zap.String("key", n.key))
		return
	}
	n.write(ctx, domain.PreferencesDone(userID, skipped, n.now().UTC()))
}

// MarkScreen records the current screen without changing the onboarding step.
// The mark lives under its own key, so it neither rewrites the onboarding flags
// nor extends the record's lifetime.
func (n *Navigator) MarkScreen(ctx context.Context, screen domain.Screen) {
	if screen == domain.ScreenNone {
		return
	}
	payload, err := json.Marshal(domain.ScreenMark{
		CurrentScreen: string(screen),
		Timestamp:     n.now().UTC().UnixMilli(),
	})
	if err != nil {
		n.fault("encode", err)
		return
	}
	if err := n.store.Set(ctx, n.screenKey(), payload); err != nil {
		n.fault("write", err)
	}
}

// ShouldRedirectToPreferences reports whether userID must be sent back to the preferences screen.
func (n *Navigator) ShouldRedirectToPreferences(ctx context.Context, userID string) bool {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		n.recorder.RecordRedirectDecision(false)
		return false
	}

	redirect := n.record(ctx).RequiresPreferences(userID)
	n.recorder.RecordRedirectDecision(redirect)
	return redirect
}

// State returns the current, unexpired navigation state. Expired or unreadable
// records are deleted and reported as the empty state. A screen mark at least as
// recent as the record overrides the record's screen.
func (n *Navigator) State(ctx context.Context) domain.NavigationState {
	state := n.record(ctx)
	mark, ok := n.screenMark(ctx)
	if !ok {
		return state
	}
	if state.IsZero() {
		state.Timestamp = mark.MarkedAt()
	} else if mark.MarkedAt().Before(state.Timestamp) {
		return state
	}
	state.Screen = domain.ParseScreen(mark.CurrentScreen)
	return state
}

// Reset deletes the navigation record and the screen mark.
func (n *Navigator) Reset(ctx context.Context) {
	n.remove(ctx, n.key)
	n.remove(ctx, n.screenKey())
}

func (n *Navigator) record(ctx context.Context) domain.NavigationState {
	raw, err := n.store.Get(ctx, n.key)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			n.fault("read", err)
		}
		return domain.NoNavigationState()
	}

	var record domain.NavigationRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		n.logger.Warn("discarding unreadable navigation state",
			zap.String("key", n.key),
			zap.Error(err),
		)
		n.remove(ctx, n.key)
		return domain.NoNavigationState()
	}

	state := record.State()
	if state.Expired(n.now()) {
		n.logger.Debug("navigation state expired",
			zap.String("key", n.key),
			zap.Time("timestamp", state.Timestamp),
		)
		n.recorder.RecordExpired()
		n.remove(ctx, n.key)
		return domain.NoNavigationState()
	}
	return state
}

func (n *Navigator) screenMark(ctx context.Context) (domain.ScreenMark, bool) {
	key := n.screenKey()
	raw, err := n.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			n.fault("read", err)
		}
		return domain.ScreenMark{}, false
	}

	var mark domain.ScreenMark
	if err := json.Unmarshal(raw, &mark); err != nil {
		n.logger.Warn("discarding unreadable screen mark", zap.String("key", key), zap.Error(err))
		n.remove(ctx, key)
		return domain.ScreenMark{}, false
	}
	if n.now().Sub(mark.MarkedAt()) >= domain.NavigationStateTTL {
		n.remove(ctx, key)
		return domain.ScreenMark{}, false
	}
	return mark, true
}

func (n *Navigator) screenKey() string {
	return n.key + screenKeySuffix
}

func (n *Navigator) write(ctx context.Context, state domain.NavigationState) {
	payload, err := json.Marshal(state.Record())
	if err != nil {
		n.fault("encode", err)
		return
	}
	if err := n.store.Set(ctx, n.key, payload); err != nil {
		n.fault("write", err)
		return
	}
	n.logger.Debug("navigation state written",
		zap.String("key", n.key),
		zap.String("state", state.Kind.String()),
		zap.String("user_id", state.UserID),
	)
}

func (n *Navigator) remove(ctx context.Context, key string) {
	if err := n.store.Delete(ctx, key); err != nil {
		n.fault("delete", err)
	}
}

func (n *Navigator) fault(op string, err error) {
	n.recorder.RecordStorageFault(op)
	n.logger.Warn("navigation state storage fault",
		zap.String("key", n.key),
		zap.Error(&domain.TransientStorageError{Op: op + " navigation state", Err: err}),
	)
}
