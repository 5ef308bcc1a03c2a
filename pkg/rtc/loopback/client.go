package loopback

import (
	"context"
	"sync"

	"github.com/backkem/videoroom/pkg/rtc"
	"github.com/backkem/videoroom/pkg/rtc/internal/dispatch"
	"github.com/pion/logging"
)

// Client implements rtc.Client for a loopback Network.
type Client struct {
	engine  *Engine
	network *Network
	config  rtc.ClientConfig
	log     logging.LeveledLogger
	events  *dispatch.Queue

	mu        sync.Mutex
	handlers  rtc.Handlers
	relay     *rtc.RelayConfig
	joined    bool
	closed    bool
	channel   string
	uid       rtc.UID
	published map[rtc.MediaKind]*LocalTrack
	peers     map[rtc.UID]*remoteUser
}

var _ rtc.Client = (*Client)(nil)

func newClient(e *Engine, cfg rtc.ClientConfig) *Client {
	return &Client{
		engine:    e,
		network:   e.config.Network,
		config:    cfg,
		log:       e.log,
		events:    dispatch.New(),
		published: make(map[rtc.MediaKind]*LocalTrack),
		peers:     make(map[rtc.UID]*remoteUser),
	}
}

// SetRelay implements rtc.Client. The loopback network never needs a relay;
// the configuration is validated and kept for inspection.
func (c *Client) SetRelay(ctx context.Context, relay rtc.RelayConfig) error {
	if err := relay.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return rtc.ErrClientClosed
	}
	if c.joined {
		return rtc.ErrAlreadyJoined
	}
	c.relay = &relay
	return nil
}

// Relay returns the relay set with SetRelay, or nil.
func (c *Client) Relay() *rtc.RelayConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.relay
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

// Join implements rtc.Client.
func (c *Client) Join(ctx context.Context, appID, channel, token string, uid rtc.UID) (rtc.UID, error) {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return "", rtc.ErrClientClosed
	case c.joined:
		c.mu.Unlock()
		return "", rtc.ErrAlreadyJoined
	}
	c.mu.Unlock()

	return c.network.join(ctx, c, appID, channel, uid)
}

func (c *Client) setJoined(channel string, uid rtc.UID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.joined = true
	c.channel = channel
	c.uid = uid
}

// Publish implements rtc.Client.
func (c *Client) Publish(ctx context.Context, tracks ...rtc.LocalTrack) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	locals := make([]*LocalTrack, 0, len(tracks))
	for _, t := range tracks {
		lt, ok := t.(*LocalTrack)
		if !ok {
			return ErrForeignTrack
		}
		if lt.Closed() {
			return rtc.ErrTrackClosed
		}
		locals = append(locals, lt)
	}

	c.mu.Lock()
	if !c.joined {
		c.mu.Unlock()
		return rtc.ErrNotJoined
	}
	channel := c.channel
	for _, lt := range locals {
		c.published[lt.kind] = lt
	}
	c.mu.Unlock()

	for _, lt := range locals {
		c.network.publish(c, channel, lt)
	}
	return nil
}

// Unpublish implements rtc.Client.
func (c *Client) Unpublish(ctx context.Context, tracks ...rtc.LocalTrack) error {
	c.mu.Lock()
	if !c.joined {
		c.mu.Unlock()
		return rtc.ErrNotJoined
	}
	channel := c.channel
	var kinds []rtc.MediaKind
	for _, t := range tracks {
		if cur := c.published[t.Kind()]; cur != nil && rtc.Track(cur) == t {
			delete(c.published, t.Kind())
			kinds = append(kinds, t.Kind())
		}
	}
	c.mu.Unlock()

	for _, kind := range kinds {
		c.network.unpublish(c, channel, kind)
	}
	return nil
}

// Subscribe implements rtc.Client.
func (c *Client) Subscribe(ctx context.Context, user rtc.RemoteUser, kind rtc.MediaKind) (rtc.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ru, ok := user.(*remoteUser)
	if !ok {
		return nil, ErrForeignTrack
	}

	c.mu.Lock()
	if !c.joined {
		c.mu.Unlock()
		return nil, rtc.ErrNotJoined
	}
	if c.peers[ru.uid] != ru {
		c.mu.Unlock()
		return nil, ErrUnknownUser
	}
	self := c.uid
	c.mu.Unlock()

	return ru.subscribe(kind, self)
}

// Leave implements rtc.Client. Calling Leave more than once is harmless.
func (c *Client) Leave(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	wasJoined := c.joined
	channel := c.channel
	c.closed = true
	c.joined = false
	c.published = make(map[rtc.MediaKind]*LocalTrack)
	peers := c.peers
	c.peers = make(map[rtc.UID]*remoteUser)
	c.mu.Unlock()

	if wasJoined {
		c.network.leave(c, channel)
	}
	for _, p := range peers {
		p.clearAll()
	}
	c.events.Close()
	return nil
}

// UID returns the uid assigned by Join.
func (c *Client) UID() rtc.UID {
	return c.uidValue()
}

// Channel returns the joined channel name.
func (c *Client) Channel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// Joined reports whether the client is in a channel.
func (c *Client) Joined() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.joined
}

func (c *Client) uidValue() rtc.UID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uid
}

func (c *Client) publishedTracks() map[rtc.MediaKind]*LocalTrack {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[rtc.MediaKind]*LocalTrack, len(c.published))
	for k, t := range c.published {
		out[k] = t
	}
	return out
}

func (c *Client) peer(uid rtc.UID) *remoteUser {
	c.mu.Lock()
	defer c.mu.Unlock()
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

// The deliver functions run with the network lock held. They update the
// peer view synchronously and queue the callback.

func (c *Client) deliverPublished(from rtc.UID, kind rtc.MediaKind, t *LocalTrack) {
	p := c.peer(from)
	p.setPublished(kind, t)
	c.events.Post(func() {
		if h := c.currentHandlers(); h.OnUserPublished != nil {
			h.OnUserPublished(p, kind)
		}
	})
}

func (c *Client) deliverUnpublished(from rtc.UID, kind rtc.MediaKind) {
	p := c.peer(from)
	p.clearPublished(kind)
	c.events.Post(func() {
		if h := c.currentHandlers(); h.OnUserUnpublished != nil {
			h.OnUserUnpublished(p, kind)
		}
	})
}

func (c *Client) deliverLeft(from rtc.UID) {
	c.mu.Lock()
	p := c.peers[from]
	delete(c.peers, from)
	c.mu.Unlock()
	if p == nil {
		p = newRemoteUser(from)
	}
	p.clearAll()
	c.events.Post(func() {
		if h := c.currentHandlers(); h.OnUserLeft != nil {
			h.OnUserLeft(p)
		}
	})
}
