package domain

import "time"

// User is the identity record handed out by the auth backend.
type User struct {
	ID          string
	Email       string
	DisplayName string
	CreatedAt   time.Time
}

// IsZero reports whether the user carries no identifier.
func (u User) IsZero() bool {
	return u.ID == ""
}

// AuthEventKind enumerates the session events emitted by the auth backend.
type AuthEventKind string

const (
	AuthEventInitialSession   AuthEventKind = "INITIAL_SESSION"
	AuthEventNoInitialSession AuthEventKind = "INITIAL_SESSION_ABSENT"
	AuthEventSignedIn         AuthEventKind = "SIGNED_IN"
	AuthEventSignedOut        AuthEventKind = "SIGNED_OUT"
	AuthEventTokenRefreshed   AuthEventKind = "TOKEN_REFRESHED"
	AuthEventUserUpdated      AuthEventKind = "USER_UPDATED"
)

// AuthEvent is a single notification from the auth backend's session listener.
// Confirmed is false while the user's email address is still pending confirmation.
type AuthEvent struct {
	Kind      AuthEventKind
	User      *User
	Confirmed bool
}

// Session is the result of a successful sign-in, sign-up or session restore.
type Session struct {
	User        User
	Confirmed   bool
	AccessToken string
	ExpiresAt   time.Time
}
