package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrInvalidKey signals an empty or malformed storage key.
	ErrInvalidKey = errors.New("repository: invalid key")
)
