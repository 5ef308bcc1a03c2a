package pionrtc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/backkem/videoroom/pkg/rtc"
	"github.com/pion/logging"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

// SampleSink is a surface that accepts local preview samples.
type SampleSink interface {
	rtc.Surface
	WriteSample(s media.Sample) error
}

// RTPSink is a surface that accepts packets of a remote track.
type RTPSink interface {
	rtc.Surface
	WriteRTP(p *rtp.Packet) error
}

// playback is the surface bookkeeping shared by local and remote tracks.
type playback struct {
	mu      sync.Mutex
	surface rtc.Surface
	playing bool
}

func (p *playback) play(s rtc.Surface) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.surface = s
	p.playing = true
}

func (p *playback) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.surface = nil
	p.playing = false
}

func (p *playback) current() (rtc.Surface, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.surface, p.playing
}

// LocalTrack is a capture handle backed by a SampleSource. Samples are
// written to the pion track, and to the preview surface when it is a
// SampleSink.
type LocalTrack struct {
	playback

	id     string
	kind   rtc.MediaKind
	track  *webrtc.TrackLocalStaticSample
	log    logging.LeveledLogger
	cancel context.CancelFunc
	done   chan struct{}

	closeMu sync.Mutex
	closed  bool
}

var _ rtc.LocalTrack = (*LocalTrack)(nil)

func newLocalTrack(id string, kind rtc.MediaKind, track *webrtc.TrackLocalStaticSample, source SampleSource, log logging.LeveledLogger) *LocalTrack {
	ctx, cancel := context.WithCancel(context.Background())
	t := &LocalTrack{
		id:     id,
		kind:   kind,
		track:  track,
		log:    log,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go t.pump(ctx, source)
	return t
}

func (t *LocalTrack) pump(ctx context.Context, source SampleSource) {
	defer close(t.done)
	for {
		sample, err := source.NextSample(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) && t.log != nil {
				t.log.Warnf("%s capture stopped: %v", t.kind, err)
			}
			return
		}
		if err := t.track.WriteSample(sample); err != nil && t.log != nil {
			t.log.Debugf("write %s sample: %v", t.kind, err)
		}
		if s, playing := t.current(); playing {
			if sink, ok := s.(SampleSink); ok {
				_ = sink.WriteSample(sample)
			}
		}
	}
}

// ID implements rtc.Track.
func (t *LocalTrack) ID() string { return t.id }

// Kind implements rtc.Track.
func (t *LocalTrack) Kind() rtc.MediaKind { return t.kind }

// Track returns the underlying pion track.
func (t *LocalTrack) Track() *webrtc.TrackLocalStaticSample { return t.track }

// Play implements rtc.Track.
func (t *LocalTrack) Play(s rtc.Surface) error {
	if t.Closed() {
		return rtc.ErrTrackClosed
	}
	t.play(s)
	return nil
}

// Stop implements rtc.Track.
func (t *LocalTrack) Stop() { t.stop() }

// Close implements rtc.LocalTrack. It stops the capture goroutine.
func (t *LocalTrack) Close() {
	t.closeMu.Lock()
	if t.closed {
		t.closeMu.Unlock()
		return
	}
	t.closed = true
	t.closeMu.Unlock()

	t.stop()
	t.cancel()
	<-t.done
}

// Closed reports whether Close was called.
func (t *LocalTrack) Closed() bool {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()
	return t.closed
}

// RemoteTrack is the playback handle for a subscribed remote track. It is
// created by Subscribe and attached once the pion track arrives.
type RemoteTrack struct {
	playback

	uid  rtc.UID
	kind rtc.MediaKind

	attachMu sync.Mutex
	remote   *webrtc.TrackRemote
	attached chan struct{}
	ended    bool
}

var _ rtc.Track = (*RemoteTrack)(nil)

func newRemoteTrack(uid rtc.UID, kind rtc.MediaKind) *RemoteTrack {
	return &RemoteTrack{uid: uid, kind: kind, attached: make(chan struct{})}
}

// ID implements rtc.Track.
func (t *RemoteTrack) ID() string { return fmt.Sprintf("%s-%s", t.uid, t.kind) }

// Kind implements rtc.Track.
func (t *RemoteTrack) Kind() rtc.MediaKind { return t.kind }

// UID returns the publisher's uid.
func (t *RemoteTrack) UID() rtc.UID { return t.uid }

// Play implements rtc.Track. Playing before the media arrives is allowed.
func (t *RemoteTrack) Play(s rtc.Surface) error {
	t.play(s)
	return nil
}

// Stop implements rtc.Track.
func (t *RemoteTrack) Stop() { t.stop() }

// Attached is closed once the pion track has arrived.
func (t *RemoteTrack) Attached() <-chan struct{} { return t.attached }

// Remote returns the pion track, or nil before it arrived.
func (t *RemoteTrack) Remote() *webrtc.TrackRemote {
	t.attachMu.Lock()
	defer t.attachMu.Unlock()
	return t.remote
}

// attach binds the pion track. Returns false if already attached or ended.
func (t *RemoteTrack) attach(remote *webrtc.TrackRemote) bool {
	t.attachMu.Lock()
	defer t.attachMu.Unlock()
	if t.remote != nil || t.ended {
		return false
	}
	t.remote = remote
	close(t.attached)
	return true
}

// end marks the track as withdrawn. Packets still in flight are dropped.
func (t *RemoteTrack) end() {
	t.attachMu.Lock()
	t.ended = true
	t.attachMu.Unlock()
	t.stop()
}

func (t *RemoteTrack) isEnded() bool {
	t.attachMu.Lock()
	defer t.attachMu.Unlock()
	return t.ended
}

// forward reads packets until the pion track ends and hands them to the
// surface while playing.
func (t *RemoteTrack) forward(remote *webrtc.TrackRemote) {
	for {
		pkt, _, err := remote.ReadRTP()
		if err != nil {
			return
		}
		if t.isEnded() {
			continue
		}
		if s, playing := t.current(); playing {
			if sink, ok := s.(RTPSink); ok {
				_ = sink.WriteRTP(pkt)
			}
		}
	}
}
