package pionrtc

import (
	"sync"

	"github.com/backkem/videoroom/pkg/rtc"
)

// remoteUser is the client's view of another participant.
type remoteUser struct {
	uid rtc.UID

	mu       sync.Mutex
	hasAudio bool
	hasVideo bool
	audio    *RemoteTrack
	video    *RemoteTrack
}

var _ rtc.RemoteUser = (*remoteUser)(nil)

func newRemoteUser(uid rtc.UID) *remoteUser {
	return &remoteUser{uid: uid}
}

func (u *remoteUser) UID() rtc.UID { return u.uid }

func (u *remoteUser) HasAudio() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.hasAudio
}

func (u *remoteUser) HasVideo() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.hasVideo
}

func (u *remoteUser) AudioTrack() rtc.Track {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.audio == nil {
		return nil
	}
	return u.audio
}

func (u *remoteUser) VideoTrack() rtc.Track {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.video == nil {
		return nil
	}
	return u.video
}

func (u *remoteUser) has(kind rtc.MediaKind) bool {
	if kind == rtc.MediaKindAudio {
		return u.HasAudio()
	}
	return u.HasVideo()
}

func (u *remoteUser) setPublished(kind rtc.MediaKind, on bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if kind == rtc.MediaKindAudio {
		u.hasAudio = on
	} else {
		u.hasVideo = on
	}
}

func (u *remoteUser) setTrack(kind rtc.MediaKind, t *RemoteTrack) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if kind == rtc.MediaKindAudio {
		u.audio = t
	} else {
		u.video = t
	}
}
