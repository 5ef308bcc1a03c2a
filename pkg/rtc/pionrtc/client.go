package pionrtc

import (
	"context"
	"errors"
	"sync"

	"github.com/backkem/videoroom/pkg/rtc"
	"github.com/backkem/videoroom/pkg/rtc/internal/dispatch"
	"github.com/pion/logging"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"
)

type subKey struct {
	uid  rtc.UID
	kind rtc.MediaKind
}

// Client implements rtc.Client over one PeerConnection and one gateway
// connection.
type Client struct {
	engine *Engine
	config rtc.ClientConfig
	api    *webrtc.API
	log    logging.LeveledLogger

	// events delivers handler callbacks; signals serializes gateway offers
	// so the read loop never blocks on negotiation.
	events  *dispatch.Queue
	signals *dispatch.Queue

	// negMu serializes offer/answer exchanges.
	negMu   sync.Mutex
	wg      sync.WaitGroup
	closing chan struct{}

	mu       sync.Mutex
	handlers rtc.Handlers
	relay    *rtc.RelayConfig
	joined   bool
	closed   bool
	channel  string
	uid      rtc.UID
	gw       *gateway
	pc       *webrtc.PeerConnection
	peers    map[rtc.UID]*remoteUser
	senders  map[string]*webrtc.RTPSender
	subs     map[subKey]*RemoteTrack
	orphans  map[subKey]*webrtc.TrackRemote
}

var _ rtc.Client = (*Client)(nil)

func newClient(e *Engine, cfg rtc.ClientConfig, api *webrtc.API) *Client {
	return &Client{
		engine:  e,
		config:  cfg,
		api:     api,
		log:     e.log,
		events:  dispatch.New(),
		signals: dispatch.New(),
		closing: make(chan struct{}),
		peers:   make(map[rtc.UID]*remoteUser),
		senders: make(map[string]*webrtc.RTPSender),
		subs:    make(map[subKey]*RemoteTrack),
		orphans: make(map[subKey]*webrtc.TrackRemote),
	}
}

// SetRelay implements rtc.Client.
func (c *Client) SetRelay(ctx context.Context, relay rtc.RelayConfig) error {
	if err := relay.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return rtc.ErrClientClosed
	}
	if c.joined || c.pc != nil {
		return rtc.ErrAlreadyJoined
	}
	c.relay = &relay
	return nil
}

// On implements rtc.Client.
func (c *Client) On(h rtc.Handlers) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = h
}

// RemoveAllListeners implements rtc.Client.
func (c *Client) RemoveAllListeners() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = rtc.Handlers{}
}

// Join implements rtc.Client. It connects to the gateway, creates the
// PeerConnection and asks the gateway to admit the client to channel.
func (c *Client) Join(ctx context.Context, appID, channel, token string, uid rtc.UID) (rtc.UID, error) {
	if appID == "" {
		return "", rtc.ErrInvalidAppID
	}
	if channel == "" {
		return "", rtc.ErrInvalidChannel
	}

	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return "", rtc.ErrClientClosed
	case c.joined || c.pc != nil:
		c.mu.Unlock()
		return "", rtc.ErrAlreadyJoined
	}
	relay := c.relay
	c.mu.Unlock()

	pc, err := c.api.NewPeerConnection(iceConfiguration(relay))
	if err != nil {
		return "", err
	}
	pc.OnTrack(c.onTrack)
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		if c.log != nil {
			c.log.Debugf("peer connection %s", s)
		}
	})

	gw, err := dialGateway(ctx, c.engine.dialer, c.engine.config.GatewayURL, c.onMessage, c.log)
	if err != nil {
		_ = pc.Close()
		return "", err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = gw.close()
		_ = pc.Close()
		return "", rtc.ErrClientClosed
	}
	c.pc = pc
	c.gw = gw
	c.mu.Unlock()

	resp, err := gw.request(ctx, Message{
		Type:    TypeJoin,
		AppID:   appID,
		Channel: channel,
		Token:   token,
		UID:     uid,
	})
	if err != nil {
		c.mu.Lock()
		c.pc, c.gw = nil, nil
		c.mu.Unlock()
		_ = gw.close()
		_ = pc.Close()
		return "", err
	}

	c.mu.Lock()
	c.joined = true
	c.channel = channel
	c.uid = resp.UID
	c.mu.Unlock()
	if c.log != nil {
		c.log.Infof("joined %q as %s", channel, resp.UID)
	}
	return resp.UID, nil
}

// Publish implements rtc.Client.
func (c *Client) Publish(ctx context.Context, tracks ...rtc.LocalTrack) error {
	locals, err := c.ownTracks(tracks)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if !c.joined {
		c.mu.Unlock()
		return rtc.ErrNotJoined
	}
	pc := c.pc
	var infos []TrackInfo
	for _, t := range locals {
		if _, ok := c.senders[t.id]; ok {
			continue
		}
		sender, err := pc.AddTrack(t.track)
		if err != nil {
			c.mu.Unlock()
			return err
		}
		c.senders[t.id] = sender
		c.wg.Add(1)
		go c.drainRTCP(sender)
		infos = append(infos, TrackInfo{ID: t.id, Kind: t.kind.String()})
	}
	c.mu.Unlock()

	if len(infos) == 0 {
		return nil
	}
	_, err = c.negotiate(ctx, Message{Type: TypePublish, Tracks: infos})
	return err
}

// Unpublish implements rtc.Client.
func (c *Client) Unpublish(ctx context.Context, tracks ...rtc.LocalTrack) error {
	locals, err := c.ownTracks(tracks)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if !c.joined {
		c.mu.Unlock()
		return rtc.ErrNotJoined
	}
	var infos []TrackInfo
	for _, t := range locals {
		sender, ok := c.senders[t.id]
		if !ok {
			continue
		}
		delete(c.senders, t.id)
		if err := c.pc.RemoveTrack(sender); err != nil {
			c.mu.Unlock()
			return err
		}
		infos = append(infos, TrackInfo{ID: t.id, Kind: t.kind.String()})
	}
	c.mu.Unlock()

	if len(infos) == 0 {
		return nil
	}
	_, err = c.negotiate(ctx, Message{Type: TypeUnpublish, Tracks: infos})
	return err
}

func (c *Client) ownTracks(tracks []rtc.LocalTrack) ([]*LocalTrack, error) {
	locals := make([]*LocalTrack, 0, len(tracks))
	for _, t := range tracks {
		lt, ok := t.(*LocalTrack)
		if !ok {
			return nil, ErrForeignTrack
		}
		if lt.Closed() {
			return nil, rtc.ErrTrackClosed
		}
		locals = append(locals, lt)
	}
	return locals, nil
}

// drainRTCP reads sender reports so the interceptors keep working.
func (c *Client) drainRTCP(sender *webrtc.RTPSender) {
	defer c.wg.Done()
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}

// negotiate sends a complete offer inside msg and applies the answer.
func (c *Client) negotiate(ctx context.Context, msg Message) (Message, error) {
	c.negMu.Lock()
	defer c.negMu.Unlock()

	c.mu.Lock()
	pc, gw := c.pc, c.gw
	c.mu.Unlock()
	if pc == nil || gw == nil {
		return Message{}, rtc.ErrNotJoined
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return Message{}, err
	}
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		return Message{}, err
	}
	select {
	case <-gathered:
	case <-c.closing:
		return Message{}, rtc.ErrClientClosed
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}

	msg.SDP = pc.LocalDescription().SDP
	resp, err := gw.request(ctx, msg)
	if err != nil {
		return resp, err
	}
	if resp.SDP != "" {
		answer := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: resp.SDP}
		if err := pc.SetRemoteDescription(answer); err != nil {
			return resp, err
		}
	}
	return resp, nil
}

// handleOffer answers a renegotiation started by the gateway.
func (c *Client) handleOffer(sdp string) {
	c.negMu.Lock()
	defer c.negMu.Unlock()

	c.mu.Lock()
	pc, gw := c.pc, c.gw
	c.mu.Unlock()
	if pc == nil || gw == nil {
		return
	}

	err := func() error {
		offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}
		if err := pc.SetRemoteDescription(offer); err != nil {
			return err
		}
		answer, err := pc.CreateAnswer(nil)
		if err != nil {
			return err
		}
		gathered := webrtc.GatheringCompletePromise(pc)
		if err := pc.SetLocalDescription(answer); err != nil {
			return err
		}
		select {
		case <-gathered:
		case <-c.closing:
			return rtc.ErrClientClosed
		}
		return gw.send(Message{Type: TypeAnswer, SDP: pc.LocalDescription().SDP})
	}()
	if err != nil && c.log != nil {
		c.log.Warnf("answer gateway offer: %v", err)
	}
}

// Subscribe implements rtc.Client. The returned handle can be played at
// once; media flows once the gateway has added the track.
func (c *Client) Subscribe(ctx context.Context, user rtc.RemoteUser, kind rtc.MediaKind) (rtc.Track, error) {
	if !kind.IsValid() {
		return nil, rtc.ErrUserNotPublished
	}

	c.mu.Lock()
	if !c.joined {
		c.mu.Unlock()
		return nil, rtc.ErrNotJoined
	}
	peer := c.peers[user.UID()]
	if peer == nil {
		c.mu.Unlock()
		return nil, ErrUnknownUser
	}
	if !peer.has(kind) {
		c.mu.Unlock()
		return nil, rtc.ErrUserNotPublished
	}
	key := subKey{uid: peer.uid, kind: kind}
	if t, ok := c.subs[key]; ok {
		c.mu.Unlock()
		return t, nil
	}
	t := newRemoteTrack(peer.uid, kind)
	c.subs[key] = t
	peer.setTrack(kind, t)
	remote := c.orphans[key]
	delete(c.orphans, key)
	gw := c.gw
	c.mu.Unlock()

	if remote != nil {
		c.attach(t, remote)
	}

	if _, err := gw.request(ctx, Message{Type: TypeSubscribe, UID: peer.uid, Kind: kind.String()}); err != nil {
		c.mu.Lock()
		if c.subs[key] == t {
			delete(c.subs, key)
			peer.setTrack(kind, nil)
		}
		c.mu.Unlock()
		t.end()
		return nil, err
	}
	return t, nil
}

// onTrack matches an incoming pion track to its subscription. Tracks that
// arrive before Subscribe returns are parked.
func (c *Client) onTrack(remote *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
	kind := rtc.MediaKindVideo
	if remote.Kind() == webrtc.RTPCodecTypeAudio {
		kind = rtc.MediaKindAudio
	}
	key := subKey{uid: rtc.UID(remote.StreamID()), kind: kind}

	c.mu.Lock()
	t := c.subs[key]
	if t == nil {
		c.orphans[key] = remote
	}
	c.mu.Unlock()

	if t == nil {
		if c.log != nil {
			c.log.Debugf("parking %s track from %s", kind, key.uid)
		}
		return
	}
	c.attach(t, remote)
}

func (c *Client) attach(t *RemoteTrack, remote *webrtc.TrackRemote) {
	if !t.attach(remote) {
		return
	}
	if t.kind == rtc.MediaKindVideo {
		c.requestKeyframe(remote)
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		t.forward(remote)
	}()
}

func (c *Client) requestKeyframe(remote *webrtc.TrackRemote) {
	c.mu.Lock()
	pc := c.pc
	c.mu.Unlock()
	if pc == nil {
		return
	}
	pli := []rtcp.Packet{&rtcp.PictureLossIndication{MediaSSRC: uint32(remote.SSRC())}}
	if err := pc.WriteRTCP(pli); err != nil && c.log != nil {
		c.log.Debugf("send PLI: %v", err)
	}
}

// onMessage runs on the gateway read loop.
func (c *Client) onMessage(msg Message) {
	switch msg.Type {
	case TypeUserPublished:
		kind, err := rtc.ParseMediaKind(msg.Kind)
		if err != nil {
			c.warnf("user-published: %v", err)
			return
		}
		c.mu.Lock()
		p := c.peer(msg.UID)
		p.setPublished(kind, true)
		c.mu.Unlock()
		c.events.Post(func() {
			if h := c.currentHandlers(); h.OnUserPublished != nil {
				h.OnUserPublished(p, kind)
			}
		})

	case TypeUserUnpublished:
		kind, err := rtc.ParseMediaKind(msg.Kind)
		if err != nil {
			c.warnf("user-unpublished: %v", err)
			return
		}
		c.mu.Lock()
		p := c.peer(msg.UID)
		p.setPublished(kind, false)
		c.dropSubscription(subKey{uid: msg.UID, kind: kind})
		c.mu.Unlock()
		c.events.Post(func() {
			if h := c.currentHandlers(); h.OnUserUnpublished != nil {
				h.OnUserUnpublished(p, kind)
			}
		})

	case TypeUserLeft:
		c.mu.Lock()
		p := c.peers[msg.UID]
		delete(c.peers, msg.UID)
		if p == nil {
			p = newRemoteUser(msg.UID)
		}
		p.setPublished(rtc.MediaKindAudio, false)
		p.setPublished(rtc.MediaKindVideo, false)
		c.dropSubscription(subKey{uid: msg.UID, kind: rtc.MediaKindAudio})
		c.dropSubscription(subKey{uid: msg.UID, kind: rtc.MediaKindVideo})
		c.mu.Unlock()
		c.events.Post(func() {
			if h := c.currentHandlers(); h.OnUserLeft != nil {
				h.OnUserLeft(p)
			}
		})

	case TypeOffer:
		sdp := msg.SDP
		c.signals.Post(func() { c.handleOffer(sdp) })

	default:
		c.warnf("unexpected gateway message %q", msg.Type)
	}
}

// dropSubscription ends a subscription. Caller holds c.mu.
func (c *Client) dropSubscription(key subKey) {
	delete(c.orphans, key)
	if t, ok := c.subs[key]; ok {
		delete(c.subs, key)
		t.end()
	}
	if p := c.peers[key.uid]; p != nil {
		p.setTrack(key.kind, nil)
	}
}

// peer returns the remote user for uid, creating it. Caller holds c.mu.
func (c *Client) peer(uid rtc.UID) *remoteUser {
	p := c.peers[uid]
	if p == nil {
		p = newRemoteUser(uid)
		c.peers[uid] = p
	}
	return p
}

func (c *Client) currentHandlers() rtc.Handlers {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handlers
}

func (c *Client) warnf(format string, args ...interface{}) {
	if c.log != nil {
		c.log.Warnf(format, args...)
	}
}

// Leave implements rtc.Client. Calling Leave more than once is harmless.
func (c *Client) Leave(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	joined := c.joined
	c.joined = false
	pc, gw := c.pc, c.gw
	for key := range c.subs {
		c.dropSubscription(key)
	}
	c.peers = make(map[rtc.UID]*remoteUser)
	c.mu.Unlock()
	close(c.closing)

	var errs []error
	if joined && gw != nil {
		if _, err := gw.request(ctx, Message{Type: TypeLeave}); err != nil && c.log != nil {
			c.log.Debugf("leave request: %v", err)
		}
	}
	if pc != nil {
		errs = append(errs, pc.Close())
	}
	if gw != nil {
		errs = append(errs, gw.close())
	}
	c.signals.Close()
	c.events.Close()
	<-c.signals.Stopped()
	c.wg.Wait()
	return errors.Join(errs...)
}

// UID returns the uid assigned by Join.
func (c *Client) UID() rtc.UID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uid
}

// Channel returns the joined channel name.
func (c *Client) Channel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// PeerConnection returns the underlying PeerConnection, or nil before Join.
func (c *Client) PeerConnection() *webrtc.PeerConnection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pc
}
