package loopback

import (
	"sync"

	"github.com/backkem/videoroom/pkg/rtc"
)

// LocalTrack is a simulated capture handle.
type LocalTrack struct {
	id     string
	kind   rtc.MediaKind
	device string

	mu      sync.Mutex
	surface rtc.Surface
	playing bool
	closed  bool
}

func newLocalTrack(id string, kind rtc.MediaKind, device string) *LocalTrack {
	return &LocalTrack{id: id, kind: kind, device: device}
}

// ID implements rtc.Track.
func (t *LocalTrack) ID() string { return t.id }

// Kind implements rtc.Track.
func (t *LocalTrack) Kind() rtc.MediaKind { return t.kind }

// Device returns the name of the simulated capture device.
func (t *LocalTrack) Device() string { return t.device }

// Play implements rtc.Track.
func (t *LocalTrack) Play(s rtc.Surface) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return rtc.ErrTrackClosed
	}
	t.surface = s
	t.playing = true
	return nil
}

// Stop implements rtc.Track.
func (t *LocalTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.surface = nil
	t.playing = false
}

// Close implements rtc.LocalTrack.
func (t *LocalTrack) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.surface = nil
	t.playing = false
	t.closed = true
}

// Surface returns the surface the track is playing into, or nil.
func (t *LocalTrack) Surface() rtc.Surface {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.surface
}

// Playing reports whether Play was called since the last Stop.
func (t *LocalTrack) Playing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing
}

// Closed reports whether Close was called.
func (t *LocalTrack) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// RemoteTrack is the playback handle a subscriber gets for a published
// LocalTrack.
type RemoteTrack struct {
	id     string
	source *LocalTrack

	mu      sync.Mutex
	surface rtc.Surface
	playing bool
}

// ID implements rtc.Track.
func (t *RemoteTrack) ID() string { return t.id }

// Kind implements rtc.Track.
func (t *RemoteTrack) Kind() rtc.MediaKind { return t.source.kind }

// Source returns the publisher's capture handle.
func (t *RemoteTrack) Source() *LocalTrack { return t.source }

// Play implements rtc.Track.
func (t *RemoteTrack) Play(s rtc.Surface) error {
	if t.source.Closed() {
		return rtc.ErrTrackClosed
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.surface = s
	t.playing = true
	return nil
}

// Stop implements rtc.Track.
func (t *RemoteTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.surface = nil
	t.playing = false
}

// Surface returns the surface the track is playing into, or nil.
func (t *RemoteTrack) Surface() rtc.Surface {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.surface
}

// Playing reports whether Play was called since the last Stop.
func (t *RemoteTrack) Playing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing
}

// remoteUser is one client's view of another member. The same value is
// handed to every callback about that member.
type remoteUser struct {
	uid rtc.UID

	mu         sync.Mutex
	published  map[rtc.MediaKind]*LocalTrack
	subscribed map[rtc.MediaKind]*RemoteTrack
}

func newRemoteUser(uid rtc.UID) *remoteUser {
	return &remoteUser{
		uid:        uid,
		published:  make(map[rtc.MediaKind]*LocalTrack),
		subscribed: make(map[rtc.MediaKind]*RemoteTrack),
	}
}

func (u *remoteUser) UID() rtc.UID { return u.uid }

func (u *remoteUser) HasAudio() bool { return u.hasKind(rtc.MediaKindAudio) }

func (u *remoteUser) HasVideo() bool { return u.hasKind(rtc.MediaKindVideo) }

func (u *remoteUser) AudioTrack() rtc.Track { return u.track(rtc.MediaKindAudio) }

func (u *remoteUser) VideoTrack() rtc.Track { return u.track(rtc.MediaKindVideo) }

func (u *remoteUser) hasKind(kind rtc.MediaKind) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.published[kind] != nil
}

// track returns a nil interface, not a typed nil, when unsubscribed.
func (u *remoteUser) track(kind rtc.MediaKind) rtc.Track {
	u.mu.Lock()
	defer u.mu.Unlock()
	if t := u.subscribed[kind]; t != nil {
		return t
	}
	return nil
}

func (u *remoteUser) setPublished(kind rtc.MediaKind, t *LocalTrack) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.published[kind] = t
}

// clearPublished forgets the published source and stops the subscription
// for kind.
func (u *remoteUser) clearPublished(kind rtc.MediaKind) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.published, kind)
	if t := u.subscribed[kind]; t != nil {
		t.Stop()
		delete(u.subscribed, kind)
	}
}

func (u *remoteUser) clearAll() {
	u.mu.Lock()
	defer u.mu.Unlock()
	for kind, t := range u.subscribed {
		t.Stop()
		delete(u.subscribed, kind)
	}
	for kind := range u.published {
		delete(u.published, kind)
	}
}

func (u *remoteUser) subscribe(kind rtc.MediaKind, subscriber rtc.UID) (*RemoteTrack, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	src := u.published[kind]
	if src == nil {
		return nil, rtc.ErrUserNotPublished
	}
	if t := u.subscribed[kind]; t != nil && t.source == src {
		return t, nil
	}
	t := &RemoteTrack{id: src.id + "@" + string(subscriber), source: src}
	u.subscribed[kind] = t
	return t, nil
}
