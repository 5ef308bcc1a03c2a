package rtc

import "errors"

// Package errors shared by all engines.
var (
	// ErrNotJoined is returned when an operation requires a joined client.
	ErrNotJoined = errors.New("rtc: client has not joined a channel")

	// ErrAlreadyJoined is returned when Join is called twice without Leave.
	ErrAlreadyJoined = errors.New("rtc: client already joined")

	// ErrClientClosed is returned when a client is used after Leave.
	ErrClientClosed = errors.New("rtc: client closed")

	// ErrTrackClosed is returned when a closed local track is used.
	ErrTrackClosed = errors.New("rtc: track closed")

	// ErrUserNotPublished is returned when subscribing to media a remote user
	// does not publish.
	ErrUserNotPublished = errors.New("rtc: remote user has not published this media")

	// ErrInvalidAppID is returned when the engine rejects the application id.
	ErrInvalidAppID = errors.New("rtc: invalid application id")

	// ErrInvalidChannel is returned for an empty channel name.
	ErrInvalidChannel = errors.New("rtc: invalid channel name")

	// ErrCaptureDenied is returned when a capture device is unavailable or
	// access to it was refused.
	ErrCaptureDenied = errors.New("rtc: capture device unavailable")

	// ErrInvalidRelay is returned for a relay configuration without a URL.
	ErrInvalidRelay = errors.New("rtc: invalid relay configuration")

	// ErrUIDConflict is returned when the requested uid is already in use.
	ErrUIDConflict = errors.New("rtc: uid already in channel")
)
