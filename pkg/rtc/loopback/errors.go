package loopback

import "errors"

// Package errors.
var (
	// ErrNoNetwork is returned when an engine is created without a Network.
	ErrNoNetwork = errors.New("loopback: network is required")

	// ErrForeignTrack is returned when a track from another engine is
	// published or a foreign RemoteUser is subscribed to.
	ErrForeignTrack = errors.New("loopback: track or user not created by this engine")

	// ErrUnknownUser is returned when subscribing to a user that is no longer
	// in the channel.
	ErrUnknownUser = errors.New("loopback: remote user not in channel")
)
