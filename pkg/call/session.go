package call

import (
	"context"
	"errors"
	"sync"

	"github.com/backkem/videoroom/pkg/render"
	"github.com/backkem/videoroom/pkg/rtc"
	"github.com/pion/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const eventQueueSize = 64

type eventType int

const (
	eventPublished eventType = iota
	eventUnpublished
	eventLeft
)

func (t eventType) String() string {
	switch t {
	case eventPublished:
		return "user-published"
	case eventUnpublished:
		return "user-unpublished"
	case eventLeft:
		return "user-left"
	default:
		return "unknown"
	}
}

type remoteEvent struct {
	typ  eventType
	user rtc.RemoteUser
	kind rtc.MediaKind
}

// Session is one attempt to be in a channel.
type Session struct {
	ctrl    *Controller
	gen     uint64
	channel string
	prev    *Session
	log     logging.LeveledLogger

	ctx     context.Context
	cancel  context.CancelFunc
	ready   chan struct{}
	done    chan struct{}
	stopped chan struct{}
	events  chan remoteEvent

	roster *Roster

	// Owned by the session goroutine.
	client rtc.Client
	mic    rtc.LocalTrack
	cam    rtc.LocalTrack
	audio  map[rtc.UID]rtc.Track

	mu    sync.RWMutex
	state State
	err   error
	uid   rtc.UID
}

func newSession(ctrl *Controller, gen uint64, channel string, prev *Session) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		ctrl:    ctrl,
		gen:     gen,
		channel: channel,
		prev:    prev,
		log:     ctrl.log,
		ctx:     ctx,
		cancel:  cancel,
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		events:  make(chan remoteEvent, eventQueueSize),
		roster:  NewRoster(),
		audio:   make(map[rtc.UID]rtc.Track),
		state:   StateConnecting,
	}
}

// Channel returns the channel name this session targets.
func (s *Session) Channel() string { return s.channel }

// Generation returns the controller generation of this session.
func (s *Session) Generation() uint64 { return s.gen }

// Ready is closed once initialization has finished, successfully or not.
func (s *Session) Ready() <-chan struct{} { return s.ready }

// Done is closed once teardown has finished.
func (s *Session) Done() <-chan struct{} { return s.done }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err returns the initialization error, if any. It is an *InitError.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// UID returns the uid assigned on join, or "" before joining.
func (s *Session) UID() rtc.UID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uid
}

// Participants returns a snapshot of the remote roster.
func (s *Session) Participants() []Participant {
	return s.roster.Snapshot()
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.ctrl.notify(s.gen)
}

func (s *Session) run() {
	defer close(s.done)

	// The previous session has been cancelled; its teardown is bounded by
	// the leave timeout.
	if s.prev != nil {
		<-s.prev.Done()
		s.prev = nil
	}

	obs := s.ctrl.observer
	obs.SessionStarted()
	defer obs.SessionEnded()

	ctx, span := s.ctrl.tracer.Start(s.ctx, "call.session",
		trace.WithAttributes(attribute.String("channel", s.channel)))
	defer span.End()

	err := s.initialize(ctx)
	close(s.ready)

	switch {
	case err == nil:
		obs.InitFinished(StepPublish, nil)
		if s.log != nil {
			s.log.Infof("joined channel %q as %s", s.channel, s.UID())
		}
		s.setState(StateConnected)
		s.loop(ctx)
		s.teardown()
		s.setState(StateClosed)

	case s.ctx.Err() != nil:
		if s.log != nil {
			s.log.Debugf("session %d cancelled during initialization", s.gen)
		}
		s.teardown()
		s.setState(StateClosed)

	default:
		var ie *InitError
		if errors.As(err, &ie) {
			obs.InitFinished(ie.Step, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if s.log != nil {
			s.log.Errorf("session %d: %v", s.gen, err)
		}
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		s.teardown()
		s.setState(StateFailed)
	}
}

func (s *Session) initialize(ctx context.Context) error {
	steps := []struct {
		step Step
		fn   func(context.Context) error
	}{
		{StepCreateClient, s.createClient},
		{StepRelay, s.configureRelay},
		{StepMicrophone, s.openMicrophone},
		{StepCamera, s.openCamera},
		{StepPreview, s.bindPreview},
		{StepJoin, s.join},
		{StepPublish, s.publish},
	}
	for _, st := range steps {
		if err := ctx.Err(); err != nil {
			return &InitError{Step: st.step, Err: err}
		}
		sctx, span := s.ctrl.tracer.Start(ctx, "call."+st.step.String())
		err := st.fn(sctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if err != nil {
			return &InitError{Step: st.step, Err: err}
		}
	}
	return nil
}

func (s *Session) createClient(context.Context) error {
	client, err := s.ctrl.config.Engine.CreateClient(s.ctrl.config.Client)
	if err != nil {
		return err
	}
	s.client = client
	return nil
}

func (s *Session) configureRelay(ctx context.Context) error {
	relay := s.ctrl.config.Relay
	if relay == nil {
		if s.log != nil {
			s.log.Debug("no relay configured")
		}
		return nil
	}
	return s.client.SetRelay(ctx, *relay)
}

func (s *Session) openMicrophone(ctx context.Context) error {
	t, err := s.ctrl.config.Engine.CreateMicrophoneAudioTrack(ctx)
	if err != nil {
		return err
	}
	s.mic = t
	return nil
}

func (s *Session) openCamera(ctx context.Context) error {
	t, err := s.ctrl.config.Engine.CreateCameraVideoTrack(ctx)
	if err != nil {
		return err
	}
	s.cam = t
	return nil
}

func (s *Session) bindPreview(context.Context) error {
	return s.ctrl.renderer.Bind(render.LocalRegion(), s.cam)
}

func (s *Session) join(ctx context.Context) error {
	s.client.On(rtc.Handlers{
		OnUserPublished: func(u rtc.RemoteUser, k rtc.MediaKind) {
			s.push(remoteEvent{typ: eventPublished, user: u, kind: k})
		},
		OnUserUnpublished: func(u rtc.RemoteUser, k rtc.MediaKind) {
			s.push(remoteEvent{typ: eventUnpublished, user: u, kind: k})
		},
		OnUserLeft: func(u rtc.RemoteUser) {
			s.push(remoteEvent{typ: eventLeft, user: u})
		},
	})

	cfg := s.ctrl.config
	uid, err := s.client.Join(ctx, cfg.AppID, s.channel, cfg.Token, cfg.UID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.uid = uid
	s.mu.Unlock()
	return nil
}

func (s *Session) publish(ctx context.Context) error {
	return s.client.Publish(ctx, s.mic, s.cam)
}

// push queues an SDK callback for the session goroutine. Callbacks arriving
// after teardown started are dropped.
func (s *Session) push(ev remoteEvent) {
	select {
	case s.events <- ev:
	case <-s.stopped:
	}
}

func (s *Session) loop(ctx context.Context) {
	for {
		select {
		case ev := <-s.events:
			s.handle(ctx, ev)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) handle(ctx context.Context, ev remoteEvent) {
	obs := s.ctrl.observer
	obs.RemoteEvent(ev.typ.String())
	uid := ev.user.UID()

	switch ev.typ {
	case eventPublished:
		track, err := s.client.Subscribe(ctx, ev.user, ev.kind)
		if err != nil {
			obs.SubscribeFailed(ev.kind)
			if s.log != nil {
				s.log.Warnf("subscribe %s %s: %v", uid, ev.kind, err)
			}
			return
		}
		switch ev.kind {
		case rtc.MediaKindVideo:
			if s.roster.Add(ev.user) {
				obs.ParticipantDelta(1)
			}
			if err := s.ctrl.renderer.Bind(render.RemoteRegion(uid), track); err != nil && s.log != nil {
				s.log.Warnf("play video of %s: %v", uid, err)
			}
		case rtc.MediaKindAudio:
			if err := track.Play(nil); err != nil {
				if s.log != nil {
					s.log.Warnf("play audio of %s: %v", uid, err)
				}
				return
			}
			s.audio[uid] = track
		}

	case eventUnpublished:
		switch ev.kind {
		case rtc.MediaKindVideo:
			s.removeParticipant(uid)
		case rtc.MediaKindAudio:
			s.stopAudio(uid)
		}

	case eventLeft:
		s.removeParticipant(uid)
		s.stopAudio(uid)
	}

	s.ctrl.notify(s.gen)
}

func (s *Session) removeParticipant(uid rtc.UID) {
	if s.roster.Remove(uid) {
		s.ctrl.observer.ParticipantDelta(-1)
	}
	s.ctrl.renderer.Release(render.RemoteRegion(uid).ID)
}

func (s *Session) stopAudio(uid rtc.UID) {
	if t, ok := s.audio[uid]; ok {
		t.Stop()
		delete(s.audio, uid)
	}
}

func (s *Session) teardown() {
	close(s.stopped)

	if s.client != nil {
		s.client.RemoveAllListeners()
	}
	if s.mic != nil {
		s.mic.Close()
	}
	if s.cam != nil {
		s.cam.Close()
	}

	for uid := range s.audio {
		s.stopAudio(uid)
	}
	for _, uid := range s.roster.UIDs() {
		s.ctrl.renderer.Release(render.RemoteRegion(uid).ID)
	}
	s.ctrl.renderer.Release(render.LocalRegionID)
	if n := s.roster.Clear(); n > 0 {
		s.ctrl.observer.ParticipantDelta(-n)
	}

	if s.client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.ctrl.config.LeaveTimeout)
	defer cancel()
	if err := s.client.Leave(ctx); err != nil && s.log != nil {
		s.log.Warnf("leave channel %q: %v", s.channel, err)
	}
}
