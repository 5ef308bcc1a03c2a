package loopback

import (
	"context"

	"github.com/backkem/videoroom/pkg/rtc"
	"github.com/google/uuid"
	"github.com/pion/logging"
)

// EngineConfig configures an Engine.
type EngineConfig struct {
	// Network is the medium shared with other engines. Required.
	Network *Network

	// DenyMicrophone and DenyCamera simulate refused device access.
	DenyMicrophone bool
	DenyCamera     bool

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Engine implements rtc.Engine on top of a Network.
type Engine struct {
	config EngineConfig
	log    logging.LeveledLogger
}

var _ rtc.Engine = (*Engine)(nil)

// NewEngine creates an engine attached to config.Network.
func NewEngine(config EngineConfig) (*Engine, error) {
	if config.Network == nil {
		return nil, ErrNoNetwork
	}
	e := &Engine{config: config}
	if config.LoggerFactory != nil {
		e.log = config.LoggerFactory.NewLogger("loopback")
	}
	return e, nil
}

// Network returns the network the engine is attached to.
func (e *Engine) Network() *Network {
	return e.config.Network
}

// CreateClient implements rtc.Engine.
func (e *Engine) CreateClient(cfg rtc.ClientConfig) (rtc.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newClient(e, cfg), nil
}

// CreateMicrophoneAudioTrack implements rtc.Engine.
func (e *Engine) CreateMicrophoneAudioTrack(ctx context.Context) (rtc.LocalTrack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.config.DenyMicrophone {
		return nil, rtc.ErrCaptureDenied
	}
	return newLocalTrack("mic-"+uuid.NewString(), rtc.MediaKindAudio, "microphone"), nil
}

// CreateCameraVideoTrack implements rtc.Engine.
func (e *Engine) CreateCameraVideoTrack(ctx context.Context) (rtc.LocalTrack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.config.DenyCamera {
		return nil, rtc.ErrCaptureDenied
	}
	return newLocalTrack("cam-"+uuid.NewString(), rtc.MediaKindVideo, "camera"), nil
}
