package domain

import "time"

// PreferencesSavedEvent represents the payload for onboarding.preferences.saved messages.
type PreferencesSavedEvent struct {
	EventID           string
	UserID            string
	PreferencesID     string
	PreferredLocation string
	Created           bool
	SavedAt           time.Time
	Metadata          map[string]any
}

// OnboardingCompletedEvent represents the payload for onboarding.completed messages.
type OnboardingCompletedEvent struct {
	EventID        string
	UserID         string
	InstallationID string
	Skipped        bool
	CompletedAt    time.Time
	Metadata       map[string]any
}
