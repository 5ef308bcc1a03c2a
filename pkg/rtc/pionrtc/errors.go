package pionrtc

import "errors"

// Package errors.
var (
	// ErrNoGateway is returned when an engine is created without a gateway URL.
	ErrNoGateway = errors.New("pionrtc: gateway url is required")

	// ErrGatewayClosed is returned when the gateway connection is lost.
	ErrGatewayClosed = errors.New("pionrtc: gateway connection closed")

	// ErrRequestFailed wraps an error reported by the gateway.
	ErrRequestFailed = errors.New("pionrtc: request failed")

	// ErrForeignTrack is returned for tracks not created by this engine.
	ErrForeignTrack = errors.New("pionrtc: track does not belong to this engine")

	// ErrUnknownUser is returned when subscribing to a user this client has
	// not seen.
	ErrUnknownUser = errors.New("pionrtc: unknown remote user")

	// ErrCodecMismatch is returned when a client asks for a different video
	// codec than the engine's capture tracks use.
	ErrCodecMismatch = errors.New("pionrtc: client codec differs from engine codec")
)
