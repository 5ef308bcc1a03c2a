package rtc

import "context"

// Surface is a rectangular region of the UI a track can be played into.
// Audio tracks are played with a nil Surface.
type Surface interface {
	SurfaceID() string
}

// Track is a media handle, either captured locally or received from a
// remote participant.
type Track interface {
	ID() string
	Kind() MediaKind

	// Play starts rendering the track into s. Calling Play again moves the
	// track to the new surface.
	Play(s Surface) error

	// Stop stops rendering. The track stays usable.
	Stop()
}

// LocalTrack is a capture handle owned by the application.
type LocalTrack interface {
	Track

	// Close releases the capture device. A closed track cannot be published.
	Close()
}

// RemoteUser is the engine's view of another participant. The engine owns
// the value; tracks become non-nil after a successful Subscribe.
type RemoteUser interface {
	UID() UID
	HasAudio() bool
	HasVideo() bool
	AudioTrack() Track
	VideoTrack() Track
}

// Handlers are the lifecycle callbacks an application registers on a Client.
// Nil fields are ignored. Callbacks for one client are delivered in order and
// never concurrently with each other.
type Handlers struct {
	OnUserPublished   func(user RemoteUser, kind MediaKind)
	OnUserUnpublished func(user RemoteUser, kind MediaKind)
	OnUserLeft        func(user RemoteUser)
}

// Client is a connection to one channel.
type Client interface {
	// SetRelay configures a TURN relay. Must be called before Join.
	SetRelay(ctx context.Context, relay RelayConfig) error

	// On registers callbacks. Later registrations replace earlier ones.
	On(h Handlers)

	// RemoveAllListeners drops all registered callbacks.
	RemoveAllListeners()

	// Join enters the channel. An empty token means no token; an empty uid
	// lets the engine pick one. Returns the uid in effect.
	Join(ctx context.Context, appID, channel, token string, uid UID) (UID, error)

	// Publish makes local tracks available to the channel.
	Publish(ctx context.Context, tracks ...LocalTrack) error

	// Unpublish withdraws previously published tracks.
	Unpublish(ctx context.Context, tracks ...LocalTrack) error

	// Subscribe requests delivery of a remote user's media and returns the
	// playback handle.
	Subscribe(ctx context.Context, user RemoteUser, kind MediaKind) (Track, error)

	// Leave exits the channel. The client cannot be reused.
	Leave(ctx context.Context) error
}

// Engine creates clients and local capture handles.
type Engine interface {
	CreateClient(cfg ClientConfig) (Client, error)
	CreateMicrophoneAudioTrack(ctx context.Context) (LocalTrack, error)
	CreateCameraVideoTrack(ctx context.Context) (LocalTrack, error)
}
