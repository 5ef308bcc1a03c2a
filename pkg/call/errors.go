package call

import "errors"

// Package errors.
var (
	// ErrNoEngine is returned when a Controller is created without an engine.
	ErrNoEngine = errors.New("call: rtc engine is required")

	// ErrMissingAppID is returned when no application id is configured.
	ErrMissingAppID = errors.New("call: application id is not configured")

	// ErrEmptyChannel is returned when entering a channel with an empty name.
	ErrEmptyChannel = errors.New("call: channel name is empty")

	// ErrClosed is returned when the controller has been closed.
	ErrClosed = errors.New("call: controller closed")
)

// InitError reports the initialization step that failed.
type InitError struct {
	Step Step
	Err  error
}

func (e *InitError) Error() string {
	return "call: " + e.Step.String() + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// Step names one stage of session initialization.
type Step uint8

const (
	StepCreateClient Step = iota
	StepRelay
	StepMicrophone
	StepCamera
	StepPreview
	StepJoin
	StepPublish
)

// String returns the name of the step.
func (s Step) String() string {
	switch s {
	case StepCreateClient:
		return "create-client"
	case StepRelay:
		return "relay"
	case StepMicrophone:
		return "microphone"
	case StepCamera:
		return "camera"
	case StepPreview:
		return "preview"
	case StepJoin:
		return "join"
	case StepPublish:
		return "publish"
	default:
		return "unknown"
	}
}
