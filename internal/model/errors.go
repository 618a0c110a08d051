package model

import "errors"

// Common errors used across the application
var (
	// Precondition errors. The messages are shown verbatim to users.
	ErrNotAuthenticated = errors.New("Not authenticated") //nolint:staticcheck
	ErrNoGroupSelected  = errors.New("No group selected") //nolint:staticcheck

	// Auth errors
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Storage errors
	ErrNotFound = errors.New("not found")

	// Preference errors
	ErrInvalidDisplayMode = errors.New("invalid non-member display mode")
)
