package usecase

import "errors"

var (
	// ErrSignInRequired indicates the operation needs an effective current user.
	ErrSignInRequired = errors.New("sign in required")
	// ErrAuthentication indicates a sign-in, sign-up or session fault reported by the auth backend.
	ErrAuthentication = errors.New("authentication failed")
	// ErrStaleResponse indicates a response arrived after the effective user changed and was discarded.
	ErrStaleResponse = errors.New("response discarded: user changed")
	// ErrInstallationRequired indicates the caller did not identify its installation.
	ErrInstallationRequired = errors.New("installation id is required")
)
