package call

import (
	"context"
	"sync"
	"time"

	"github.com/backkem/videoroom/pkg/render"
	"github.com/backkem/videoroom/pkg/rtc"
	"github.com/pion/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// DefaultLeaveTimeout bounds how long teardown waits for the SDK to leave.
const DefaultLeaveTimeout = 5 * time.Second

const tracerName = "github.com/backkem/videoroom/pkg/call"

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	// Engine creates clients and local tracks. Required.
	Engine rtc.Engine

	// AppID identifies the application to the SDK. Required.
	AppID string

	// Token is the optional join token.
	Token string

	// UID requests a specific uid. Empty lets the SDK assign one.
	UID rtc.UID

	// Client configures created clients. Zero value means defaults.
	Client rtc.ClientConfig

	// Relay is applied to every client before joining. Nil skips relay
	// configuration.
	Relay *rtc.RelayConfig

	// Renderer receives the media regions. If nil, a new one is created.
	Renderer *render.Renderer

	// Observer receives lifecycle notifications. Optional.
	Observer Observer

	// TracerProvider creates the session tracer. If nil, the global
	// provider is used.
	TracerProvider trace.TracerProvider

	// LeaveTimeout bounds the SDK leave during teardown.
	// Defaults to DefaultLeaveTimeout.
	LeaveTimeout time.Duration

	// OnChange is called whenever the current session changes state or its
	// roster changes. It is called from session goroutines and must not
	// block.
	OnChange func()

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Controller drives call sessions. It is safe for concurrent use.
type Controller struct {
	config   ControllerConfig
	renderer *render.Renderer
	observer Observer
	tracer   trace.Tracer
	log      logging.LeveledLogger

	mu      sync.Mutex
	gen     uint64
	current *Session
	closed  bool
}

// NewController validates the configuration and creates a Controller.
func NewController(config ControllerConfig) (*Controller, error) {
	if config.Engine == nil {
		return nil, ErrNoEngine
	}
	if config.AppID == "" {
		return nil, ErrMissingAppID
	}
	if config.Client == (rtc.ClientConfig{}) {
		config.Client = rtc.DefaultClientConfig()
	}
	if err := config.Client.Validate(); err != nil {
		return nil, err
	}
	if config.Relay != nil {
		if err := config.Relay.Validate(); err != nil {
			return nil, err
		}
	}
	if config.LeaveTimeout <= 0 {
		config.LeaveTimeout = DefaultLeaveTimeout
	}

	c := &Controller{
		config:   config,
		renderer: config.Renderer,
		observer: config.Observer,
	}
	if c.renderer == nil {
		c.renderer = render.NewRenderer(render.Config{LoggerFactory: config.LoggerFactory})
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	tp := config.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	c.tracer = tp.Tracer(tracerName)
	if config.LoggerFactory != nil {
		c.log = config.LoggerFactory.NewLogger("call")
	}
	return c, nil
}

// Enter starts a session for channel. Any current session is cancelled; the
// new session waits for it to finish tearing down before using the SDK.
// Enter does not block on the network.
func (c *Controller) Enter(channel string) (*Session, error) {
	if channel == "" {
		return nil, ErrEmptyChannel
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	prev := c.current
	c.gen++
	s := newSession(c, c.gen, channel, prev)
	c.current = s
	c.mu.Unlock()

	if prev != nil {
		if c.log != nil && prev.State().IsActive() {
			c.log.Debugf("replacing active session %d on %q", prev.gen, prev.channel)
		}
		prev.cancel()
	}
	if c.log != nil {
		c.log.Infof("entering channel %q (session %d)", channel, s.gen)
	}
	go s.run()
	c.notify(s.gen)
	return s, nil
}

// Leave cancels the current session and waits for its teardown, or for ctx
// to be done. Leaving with no session is a no-op.
func (c *Controller) Leave(ctx context.Context) error {
	c.mu.Lock()
	s := c.current
	c.current = nil
	c.gen++
	c.mu.Unlock()

	if s == nil {
		return nil
	}
	if c.log != nil {
		c.log.Infof("leaving channel %q (session %d)", s.channel, s.gen)
	}
	s.cancel()
	c.fireChange()

	select {
	case <-s.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close leaves the current session and rejects further Enter calls.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*c.config.LeaveTimeout)
	defer cancel()
	err := c.Leave(ctx)
	c.renderer.ReleaseAll()
	return err
}

// Session returns the current session, or nil.
func (c *Controller) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Participants returns the current session's roster, or nil.
func (c *Controller) Participants() []Participant {
	s := c.Session()
	if s == nil {
		return nil
	}
	return s.Participants()
}

// Renderer returns the renderer sessions bind regions on.
func (c *Controller) Renderer() *render.Renderer {
	return c.renderer
}

func (c *Controller) isCurrent(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil && c.gen == gen
}

// notify forwards a change from session gen if it is still current.
func (c *Controller) notify(gen uint64) {
	if c.isCurrent(gen) {
		c.fireChange()
	}
}

func (c *Controller) fireChange() {
	if c.config.OnChange != nil {
		c.config.OnChange()
	}
}
