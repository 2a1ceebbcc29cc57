package domain

import "errors"

var (
	// ErrNotFound is returned when a referenced template or session does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrAuthRequired indicates no authenticated user. Background triggers treat
	// operations returning it as no-ops rather than failures.
	ErrAuthRequired = errors.New("no authenticated user")
	// ErrStorageUnavailable indicates the platform lacks persistent storage.
	// Callers degrade to remote-only mode.
	ErrStorageUnavailable = errors.New("local storage unavailable")
	// ErrRemoteUnavailable covers transport failures and timeouts against the
	// backend. Reads fall back to cache; optimistic writes keep local state.
	ErrRemoteUnavailable = errors.New("remote backend unavailable")
	// ErrActiveSessionConflict is returned when the mark-others-completed step
	// fails and a new session must not be created or activated.
	ErrActiveSessionConflict = errors.New("could not complete prior active session")
)
