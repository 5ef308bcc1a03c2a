package web

import "errors"

// Package errors.
var (
	// ErrNoAppFactory is returned when a server is created without NewApp.
	ErrNoAppFactory = errors.New("web: NewApp is required")

	// ErrServerClosed is returned when a closed server is started again.
	ErrServerClosed = errors.New("web: server closed")
)
