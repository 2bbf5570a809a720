package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/arklim/homescout-onboarding/internal/core/domain"
	"github.com/arklim/homescout-onboarding/internal/repository"
	"github.com/arklim/homescout-onboarding/internal/repository/memory"
)

type recordingNavigationRecorder struct {
	redirects []bool
	faults    []string
	expired   int
}

func (r *recordingNavigationRecorder) RecordRedirectDecision(redirect bool) {
	r.redirects = append(r.redirects, redirect)
}

func (r *recordingNavigationRecorder) RecordStorageFault(op string) {
	r.faults = append(r.faults, op)
}

func (r *recordingNavigationRecorder) RecordExpired() { r.expired++ }

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestNavigator(t *testing.T) (*Navigator, *memory.KeyValueStore, *testClock) {
	t.Helper()
	store := memory.NewKeyValueStore()
	clock := &testClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	nav := NewNavigator(store, zaptest.NewLogger(t)).WithClock(clock.Now)
	return nav, store, clock
}

func TestNavigatorEnterPreferencesScreenRedirects(t *testing.T) {
	ctx := context.Background()
	nav, _, _ := newTestNavigator(t)

	nav.EnterPreferencesScreen(ctx, "u1")
	if !nav.ShouldRedirectToPreferences(ctx, "u1") {
		t.Fatalf("expected redirect after entering preferences screen")
	}

	nav.EnterPreferencesScreen(ctx, "u1")
	if !nav.ShouldRedirectToPreferences(ctx, "u1") {
		t.Fatalf("expected repeated enter to keep redirect")
	}
}

func TestNavigatorCompletePreferencesStopsRedirect(t *testing.T) {
	ctx := context.Background()
	nav, _, _ := newTestNavigator(t)

	nav.EnterPreferencesScreen(ctx, "u1")
	nav.CompletePreferences(ctx, "u1", false)
	if nav.ShouldRedirectToPreferences(ctx, "u1") {
		t.Fatalf("expected no redirect after completing preferences")
	}

	state := nav.State(ctx)
	if state.Kind != domain.NavigationPreferencesDone || state.Skipped {
		t.Fatalf("expected saved completion, got %+v", state)
	}
}

func TestNavigatorSkippedIsSticky(t *testing.T) {
	ctx := context.Background()
	nav, _, clock := newTestNavigator(t)

	nav.EnterPreferencesScreen(ctx, "u1")
	nav.CompletePreferences(ctx, "u1", true)

	for i := 0; i < 3; i++ {
		clock.Advance(time.Hour)
		_ = nav.State(ctx)
		if nav.ShouldRedirectToPreferences(ctx, "u1") {
			t.Fatalf("expected skipped preferences to suppress redirect on read %d", i)
		}
	}

	if state := nav.State(ctx); !state.Skipped {
		t.Fatalf("expected skipped flag to persist, got %+v", state)
	}
}

func TestNavigatorUserMismatch(t *testing.T) {
	ctx := context.Background()
	nav, _, _ := newTestNavigator(t)

	nav.EnterPreferencesScreen(ctx, "u1")
	if nav.ShouldRedirectToPreferences(ctx, "u2") {
		t.Fatalf("expected no redirect for a different user")
	}
	if !nav.ShouldRedirectToPreferences(ctx, "u1") {
		t.Fatalf("expected record for u1 to survive the mismatched query")
	}
}

func TestNavigatorEmptyUserID(t *testing.T) {
	ctx := context.Background()
	nav, store, _ := newTestNavigator(t)

	nav.EnterPreferencesScreen(ctx, "  ")
	if _, err := store.Get(ctx, DefaultNavigationKey); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected no record for empty user id, got %v", err)
	}
	if nav.ShouldRedirectToPreferences(ctx, "") {
		t.Fatalf("expected no redirect for empty user id")
	}
}

func TestNavigatorExpiredRecordIsDeleted(t *testing.T) {
	ctx := context.Background()
	nav, store, clock := newTestNavigator(t)
	recorder := &recordingNavigationRecorder{}
	nav.WithRecorder(recorder)

	nav.EnterPreferencesScreen(ctx, "u1")
	clock.Advance(domain.NavigationStateTTL)

	if nav.ShouldRedirectToPreferences(ctx, "u1") {
		t.Fatalf("expected record at exactly the ttl to be expired")
	}
	if _, err := store.Get(ctx, DefaultNavigationKey); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected expired record to be deleted, got %v", err)
	}
	if recorder.expired != 1 {
		t.Fatalf("expected one expiry recorded, got %d", recorder.expired)
	}
}

func TestNavigatorScenarios(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh install", func(t *testing.T) {
		nav, _, _ := newTestNavigator(t)
		if nav.ShouldRedirectToPreferences(ctx, "u1") {
			t.Fatalf("expected no redirect without a record")
		}
		if state := nav.State(ctx); state.Kind != domain.NavigationNone {
			t.Fatalf("expected empty state, got %+v", state)
		}
	})

	t.Run("enter then complete", func(t *testing.T) {
		nav, _, _ := newTestNavigator(t)
		nav.EnterPreferencesScreen(ctx, "u1")
		if !nav.ShouldRedirectToPreferences(ctx, "u1") {
			t.Fatalf("expected redirect while awaiting preferences")
		}
		nav.CompletePreferences(ctx, "u1", false)
		if nav.ShouldRedirectToPreferences(ctx, "u1") {
			t.Fatalf("expected no redirect after completion")
		}
	})

	t.Run("expires after a day", func(t *testing.T) {
		nav, _, clock := newTestNavigator(t)
		nav.EnterPreferencesScreen(ctx, "u1")
		clock.Advance(25 * time.Hour)
		if nav.ShouldRedirectToPreferences(ctx, "u1") {
			t.Fatalf("expected expired record to be ignored")
		}
	})
}

func TestNavigatorStorageFaultsFailOpen(t *testing.T) {
	ctx := context.Background()
	recorder := &recordingNavigationRecorder{}
	nav := NewNavigator(faultyStore{err: errStubBackend}, zaptest.NewLogger(t)).WithRecorder(recorder)

	nav.EnterPreferencesScreen(ctx, "u1")
	nav.CompletePreferences(ctx, "u1", true)
	nav.Reset(ctx)
	if nav.ShouldRedirectToPreferences(ctx, "u1") {
		t.Fatalf("expected storage faults to fail open")
	}

	want := []string{"write", "write", "delete", "delete", "read"}
	if len(recorder.faults) != len(want) {
		t.Fatalf("expected faults %v, got %v", want, recorder.faults)
	}
	for i := range want {
		if recorder.faults[i] != want[i] {
			t.Fatalf("expected faults %v, got %v", want, recorder.faults)
		}
	}
	if len(recorder.redirects) != 1 || recorder.redirects[0] {
		t.Fatalf("expected a single negative redirect decision, got %v", recorder.redirects)
	}
}

func TestNavigatorFailedWriteKeepsPreviousRecord(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKeyValueStore()
	nav := NewNavigator(store, zaptest.NewLogger(t))
	nav.EnterPreferencesScreen(ctx, "u1")

	broken := NewNavigator(&failingWriteStore{KeyValueStore: store}, zaptest.NewLogger(t))
	broken.CompletePreferences(ctx, "u1", false)

	if !broken.ShouldRedirectToPreferences(ctx, "u1") {
		t.Fatalf("expected previous record to remain after failed write")
	}
}

func TestNavigatorUnreadableRecordIsDiscarded(t *testing.T) {
	ctx := context.Background()
	nav, store, _ := newTestNavigator(t)

	if err := store.Set(ctx, DefaultNavigationKey, []byte("{not json")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if nav.ShouldRedirectToPreferences(ctx, "u1") {
		t.Fatalf("expected unreadable record to be treated as absent")
	}
	if _, err := store.Get(ctx, DefaultNavigationKey); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected unreadable record to be deleted, got %v", err)
	}
}

func TestNavigatorPersistedRecordShape(t *testing.T) {
	ctx := context.Background()
	nav, store, clock := newTestNavigator(t)

	nav.EnterPreferencesScreen(ctx, "u1")
	raw, err := store.Get(ctx, DefaultNavigationKey)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if doc["currentScreen"] != "property-preferences" {
		t.Fatalf("unexpected currentScreen: %v", doc["currentScreen"])
	}
	if doc["isOnPreferencesScreen"] != true || doc["hasCompletedPreferences"] != false || doc["preferencesSkipped"] != false {
		t.Fatalf("unexpected flags: %v", doc)
	}
	if doc["userId"] != "u1" {
		t.Fatalf("unexpected userId: %v", doc["userId"])
	}
	if ts, ok := doc["timestamp"].(float64); !ok || int64(ts) != clock.now.UnixMilli() {
		t.Fatalf("expected epoch millisecond timestamp, got %v", doc["timestamp"])
	}
}

func TestNavigatorReadsLegacyRecordWithBothFlags(t *testing.T) {
	ctx := context.Background()
	nav, store, clock := newTestNavigator(t)

	payload := []byte(`{"currentScreen":"property-preferences","isOnPreferencesScreen":true,"userId":"u1","hasCompletedPreferences":true,"preferencesSkipped":false,"timestamp":` +
		jsonInt(clock.now.UnixMilli()) + `}`)
	if err := store.Set(ctx, DefaultNavigationKey, payload); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if nav.ShouldRedirectToPreferences(ctx, "u1") {
		t.Fatalf("expected completion to win over the awaiting flag")
	}
}

func TestNavigatorMarkScreenKeepsTimestamp(t *testing.T) {
	ctx := context.Background()
	nav, _, clock := newTestNavigator(t)

	nav.EnterPreferencesScreen(ctx, "u1")
	nav.CompletePreferences(ctx, "u1", false)
	written := nav.State(ctx).Timestamp

	clock.Advance(time.Hour)
	nav.MarkScreen(ctx, domain.ScreenSearch)

	state := nav.State(ctx)
	if state.Screen != domain.ScreenSearch {
		t.Fatalf("expected search screen, got %q", state.Screen)
	}
	if !state.Timestamp.Equal(written) {
		t.Fatalf("expected timestamp %v to be kept, got %v", written, state.Timestamp)
	}
	if state.Kind != domain.NavigationPreferencesDone {
		t.Fatalf("expected onboarding step to be kept, got %s", state.Kind)
	}
}

func TestNavigatorMarkScreenDoesNotUndoConcurrentCompletion(t *testing.T) {
	ctx := context.Background()
	nav, store, _ := newTestNavigator(t)
	nav.EnterPreferencesScreen(ctx, "u1")

	// another request completes onboarding while the screen mark is in flight
	racing := &interleavingStore{KeyValueStore: store}
	racing.before = func() { nav.CompletePreferences(ctx, "u1", false) }
	NewNavigator(racing, zaptest.NewLogger(t)).WithClock(nav.now).MarkScreen(ctx, domain.ScreenSearch)

	if !racing.fired {
		t.Fatalf("expected the completion to run during the screen mark")
	}
	if nav.ShouldRedirectToPreferences(ctx, "u1") {
		t.Fatalf("expected completion to survive the concurrent screen mark")
	}
	state := nav.State(ctx)
	if state.Kind != domain.NavigationPreferencesDone || state.UserID != "u1" {
		t.Fatalf("expected completed onboarding for u1, got %+v", state)
	}
	if state.Screen != domain.ScreenSearch {
		t.Fatalf("expected search screen, got %q", state.Screen)
	}
}

func TestNavigatorLaterTransitionOverridesScreenMark(t *testing.T) {
	ctx := context.Background()
	nav, _, clock := newTestNavigator(t)

	nav.MarkScreen(ctx, domain.ScreenWishlist)
	if state := nav.State(ctx); state.Kind != domain.NavigationNone || state.Screen != domain.ScreenWishlist {
		t.Fatalf("expected screen-only state, got %+v", state)
	}

	clock.Advance(time.Minute)
	nav.EnterPreferencesScreen(ctx, "u1")
	if state := nav.State(ctx); state.Screen != domain.ScreenPropertyPreferences {
		t.Fatalf("expected the newer transition screen, got %q", state.Screen)
	}

	nav.Reset(ctx)
	if state := nav.State(ctx); !state.IsZero() {
		t.Fatalf("expected reset to clear the screen mark, got %+v", state)
	}
}

func TestNavigatorCompleteWithoutUserKeepsRecord(t *testing.T) {
	ctx := context.Background()
	nav, _, _ := newTestNavigator(t)

	nav.EnterPreferencesScreen(ctx, "u1")
	nav.CompletePreferences(ctx, "  ", true)

	if !nav.ShouldRedirectToPreferences(ctx, "u1") {
		t.Fatalf("expected a blank user id to leave the awaiting record untouched")
	}
}

func TestNavigatorWithKeyIsolatesRecords(t *testing.T) {
	ctx := context.Background()
	nav, _, _ := newTestNavigator(t)

	first := nav.WithKey("install-a")
	second := nav.WithKey("install-b")
	first.EnterPreferencesScreen(ctx, "u1")

	if !first.ShouldRedirectToPreferences(ctx, "u1") {
		t.Fatalf("expected redirect on the first installation")
	}
	if second.ShouldRedirectToPreferences(ctx, "u1") {
		t.Fatalf("expected the second installation to be unaffected")
	}
	if nav.Key() != DefaultNavigationKey {
		t.Fatalf("expected parent navigator key to be unchanged, got %q", nav.Key())
	}
}

// interleavingStore runs before once, ahead of the first operation it serves.
type interleavingStore struct {
	*memory.KeyValueStore
	before func()
	fired  bool
}

func (s *interleavingStore) fire() {
	if s.fired || s.before == nil {
		return
	}
	s.fired = true
	s.before()
}

func (s *interleavingStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.fire()
	return s.KeyValueStore.Get(ctx, key)
}

func (s *interleavingStore) Set(ctx context.Context, key string, value []byte) error {
	s.fire()
	return s.KeyValueStore.Set(ctx, key, value)
}

type failingWriteStore struct {
	*memory.KeyValueStore
}

func (s *failingWriteStore) Set(context.Context, string, []byte) error {
	return errStubBackend
}

func jsonInt(v int64) string {
	raw, _ := json.Marshal(v)
	return string(raw)
}
