package call

import "github.com/backkem/videoroom/pkg/rtc"

// Observer receives session lifecycle notifications, typically to update
// metrics. Methods are called from session goroutines and must not block.
type Observer interface {
	SessionStarted()
	SessionEnded()

	// InitFinished reports the outcome of initialization. err is nil on
	// success; otherwise step is the step that failed.
	InitFinished(step Step, err error)

	// RemoteEvent is called for every SDK callback handled.
	RemoteEvent(name string)

	// SubscribeFailed is called when subscribing to remote media fails.
	SubscribeFailed(kind rtc.MediaKind)

	// ParticipantDelta reports a change in the number of remote participants.
	ParticipantDelta(delta int)
}

type nopObserver struct{}

func (nopObserver) SessionStarted()               {}
func (nopObserver) SessionEnded()                 {}
func (nopObserver) InitFinished(Step, error)      {}
func (nopObserver) RemoteEvent(string)            {}
func (nopObserver) SubscribeFailed(rtc.MediaKind) {}
func (nopObserver) ParticipantDelta(int)          {}
