package ui

import "errors"

// Package errors.
var (
	// ErrConfig is returned by Submit when the configuration is invalid.
	ErrConfig = errors.New("ui: configuration error")

	// ErrInvalidVariant is returned for an unknown variant name.
	ErrInvalidVariant = errors.New("ui: invalid variant")

	// ErrClosed is returned after the app has been closed.
	ErrClosed = errors.New("ui: app closed")
)
