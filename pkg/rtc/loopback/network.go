package loopback

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/backkem/videoroom/pkg/rtc"
	"github.com/pion/logging"
)

// NetworkConfig configures a Network.
type NetworkConfig struct {
	// AppID, when set, is the only application id Join accepts.
	// When empty any non-empty id is accepted.
	AppID string

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Network is the shared medium of a set of loopback engines. Channels are
// created on first join and removed when the last member leaves.
type Network struct {
	config NetworkConfig
	log    logging.LeveledLogger

	mu       sync.Mutex
	channels map[string]*channel
	nextUID  uint64
	joinHook func(appID, channel string) error
	gate     chan struct{}
}

type channel struct {
	name    string
	members map[rtc.UID]*Client
}

// NewNetwork creates an empty network.
func NewNetwork(config NetworkConfig) *Network {
	n := &Network{
		config:   config,
		channels: make(map[string]*channel),
	}
	if config.LoggerFactory != nil {
		n.log = config.LoggerFactory.NewLogger("loopback")
	}
	return n
}

// SetJoinHook installs fn to run before every join. A non-nil error from fn
// fails the join. Pass nil to remove the hook.
func (n *Network) SetJoinHook(fn func(appID, channel string) error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.joinHook = fn
}

// HoldJoins makes every subsequent Join block until release is called or
// the joining context ends.
func (n *Network) HoldJoins() (release func()) {
	gate := make(chan struct{})
	n.mu.Lock()
	n.gate = gate
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			if n.gate == gate {
				n.gate = nil
			}
			n.mu.Unlock()
			close(gate)
		})
	}
}

// Members returns the uids currently in the named channel, sorted.
func (n *Network) Members(name string) []rtc.UID {
	n.mu.Lock()
	defer n.mu.Unlock()
	ch := n.channels[name]
	if ch == nil {
		return nil
	}
	uids := make([]rtc.UID, 0, len(ch.members))
	for uid := range ch.members {
		uids = append(uids, uid)
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	return uids
}

// Channels returns the names of channels with at least one member, sorted.
func (n *Network) Channels() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	names := make([]string, 0, len(n.channels))
	for name := range n.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (n *Network) join(ctx context.Context, c *Client, appID, name string, uid rtc.UID) (rtc.UID, error) {
	n.mu.Lock()
	hook := n.joinHook
	gate := n.gate
	n.mu.Unlock()

	if hook != nil {
		if err := hook(appID, name); err != nil {
			return "", err
		}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if appID == "" || (n.config.AppID != "" && appID != n.config.AppID) {
		return "", rtc.ErrInvalidAppID
	}
	if name == "" {
		return "", rtc.ErrInvalidChannel
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	ch := n.channels[name]
	if ch == nil {
		ch = &channel{name: name, members: make(map[rtc.UID]*Client)}
		n.channels[name] = ch
	}

	if uid == "" {
		for {
			n.nextUID++
			uid = rtc.UID(strconv.FormatUint(n.nextUID, 10))
			if ch.members[uid] == nil {
				break
			}
		}
	} else if ch.members[uid] != nil {
		return "", rtc.ErrUIDConflict
	}

	c.setJoined(name, uid)

	// The newcomer learns about media already in the channel.
	for _, m := range ch.members {
		for kind, t := range m.publishedTracks() {
			c.deliverPublished(m.uidValue(), kind, t)
		}
	}
	ch.members[uid] = c

	if n.log != nil {
		n.log.Debugf("uid %s joined channel %q (%d members)", uid, name, len(ch.members))
	}
	return uid, nil
}

func (n *Network) publish(c *Client, name string, t *LocalTrack) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ch := n.channels[name]
	if ch == nil {
		return
	}
	from := c.uidValue()
	for uid, m := range ch.members {
		if uid != from {
			m.deliverPublished(from, t.kind, t)
		}
	}
}

func (n *Network) unpublish(c *Client, name string, kind rtc.MediaKind) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ch := n.channels[name]
	if ch == nil {
		return
	}
	from := c.uidValue()
	for uid, m := range ch.members {
		if uid != from {
			m.deliverUnpublished(from, kind)
		}
	}
}

func (n *Network) leave(c *Client, name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ch := n.channels[name]
	if ch == nil {
		return
	}
	from := c.uidValue()
	if ch.members[from] != c {
		return
	}
	delete(ch.members, from)
	for _, m := range ch.members {
		m.deliverLeft(from)
	}
	if len(ch.members) == 0 {
		delete(n.channels, name)
	}

	if n.log != nil {
		n.log.Debugf("uid %s left channel %q", from, name)
	}
}
