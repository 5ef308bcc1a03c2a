package config

import "errors"

// Package errors.
var (
	// ErrMissingAppID is returned when VIDEOROOM_APP_ID is not set.
	ErrMissingAppID = errors.New("config: application id is not configured")

	// ErrInvalidVariant is returned for an unknown UI variant.
	ErrInvalidVariant = errors.New("config: invalid ui variant")

	// ErrInvalidSDK is returned for an unknown SDK engine name.
	ErrInvalidSDK = errors.New("config: invalid sdk")

	// ErrMissingGateway is returned when the pion SDK has no gateway URL.
	ErrMissingGateway = errors.New("config: gateway url is required for the pion sdk")
)
