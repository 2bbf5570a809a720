package domain

import (
	"strings"
	"time"
)

// NavigationStateTTL bounds how long a persisted navigation record may drive redirects.
const NavigationStateTTL = 24 * time.Hour

// Screen names a client screen tracked by the navigation state.
type Screen string

const (
	ScreenNone                Screen = ""
	ScreenSignIn              Screen = "sign-in"
	ScreenConfirmEmail        Screen = "confirm-email"
	ScreenPropertyPreferences Screen = "property-preferences"
	ScreenSearch              Screen = "search"
	ScreenWishlist            Screen = "wishlist"
	ScreenProfile             Screen = "profile"
)

// ParseScreen normalises a screen label. Unknown labels are kept verbatim so older
// clients can still round-trip them.
func ParseScreen(value string) Screen {
	return Screen(strings.ToLower(strings.TrimSpace(value)))
}

// NavigationKind enumerates the onboarding states a NavigationState can be in.
type NavigationKind int

const (
	// NavigationNone means no record exists or the record expired.
	NavigationNone NavigationKind = iota
	// NavigationAwaitingPreferences means the preferences screen is the active, uncompleted step.
	NavigationAwaitingPreferences
	// NavigationPreferencesDone means the user saved or skipped preferences.
	NavigationPreferencesDone
)

func (k NavigationKind) String() string {
	switch k {
	case NavigationAwaitingPreferences:
		return "awaiting_preferences"
	case NavigationPreferencesDone:
		return "preferences_done"
	default:
		return "none"
	}
}

// NavigationState is the onboarding position of a single installation.
// Skipped is only meaningful when Kind is NavigationPreferencesDone.
type NavigationState struct {
	Kind      NavigationKind
	UserID    string
	Skipped   bool
	Screen    Screen
	Timestamp time.Time
}

// NoNavigationState returns the empty state.
func NoNavigationState() NavigationState {
	return NavigationState{Kind: NavigationNone}
}

// AwaitingPreferences builds the state written when the preferences screen is entered.
func AwaitingPreferences(userID string, at time.Time) NavigationState {
	return NavigationState{
		Kind:      NavigationAwaitingPreferences,
		UserID:    userID,
		Screen:    ScreenPropertyPreferences,
		Timestamp: at,
	}
}

// PreferencesDone builds the state written when preferences are saved or skipped.
func PreferencesDone(userID string, skipped bool, at time.Time) NavigationState {
	return NavigationState{
		Kind:      NavigationPreferencesDone,
		UserID:    userID,
		Skipped:   skipped,
		Screen:    ScreenPropertyPreferences,
		Timestamp: at,
	}
}

// IsZero reports whether the state carries no record.
func (s NavigationState) IsZero() bool {
	return s.Kind == NavigationNone && s.Screen == ScreenNone
}

// Expired reports whether the record is too old to drive redirect decisions.
func (s NavigationState) Expired(now time.Time) bool {
	if s.Timestamp.IsZero() {
		return true
	}
	return now.Sub(s.Timestamp) >= NavigationStateTTL
}

// RequiresPreferences reports whether userID should be sent back to the preferences screen.
func (s NavigationState) RequiresPreferences(userID string) bool {
	if userID == "" || s.UserID != userID {
		return false
	}
	return s.Kind == NavigationAwaitingPreferences
}

// Record converts the state into its persisted wire form.
func (s NavigationState) Record() NavigationRecord {
	rec := NavigationRecord{
		CurrentScreen: string(s.Screen),
		Timestamp:     s.Timestamp.UnixMilli(),
	}
	if s.UserID != "" {
		userID := s.UserID
		rec.UserID = &userID
	}
	switch s.Kind {
	case NavigationAwaitingPreferences:
		rec.IsOnPreferencesScreen = true
	case NavigationPreferencesDone:
		rec.HasCompletedPreferences = true
		rec.PreferencesSkipped = s.Skipped
	}
	return rec
}

// NavigationRecord is the JSON document stored under the navigation key.
type NavigationRecord struct {
	CurrentScreen           string  `json:"currentScreen"`
	IsOnPreferencesScreen   bool    `json:"isOnPreferencesScreen"`
	UserID                  *string `json:"userId,omitempty"`
	HasCompletedPreferences bool    `json:"hasCompletedPreferences"`
	PreferencesSkipped      bool    `json:"preferencesSkipped"`
	Timestamp               int64   `json:"timestamp"`
}

// State decodes the record. Completion wins over the awaiting flag, and a skipped
// flag on its own is read as a finished (skipped) onboarding.
func (r NavigationRecord) State() NavigationState {
	state := NavigationState{
		Screen:    ParseScreen(r.CurrentScreen),
		Timestamp: time.UnixMilli(r.Timestamp).UTC(),
	}
	if r.UserID != nil {
		state.UserID = strings.TrimSpace(*r.UserID)
	}

	switch {
	case r.HasCompletedPreferences || r.PreferencesSkipped:
		state.Kind = NavigationPreferencesDone
		state.Skipped = r.PreferencesSkipped
	case r.IsOnPreferencesScreen:
		state.Kind = NavigationAwaitingPreferences
	default:
		state.Kind = NavigationNone
	}
	return state
}

// ScreenMark is the JSON document recording the last screen a client reported.
// It is stored apart from the NavigationRecord so screen tracking never rewrites
// the onboarding flags.
type ScreenMark struct {
	CurrentScreen string `json:"currentScreen"`
	Timestamp     int64  `json:"timestamp"`
}

// MarkedAt returns the mark time.
func (m ScreenMark) MarkedAt() time.Time {
	return time.UnixMilli(m.Timestamp).UTC()
}
