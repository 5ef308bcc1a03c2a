package ui

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/backkem/videoroom/pkg/call"
	"github.com/backkem/videoroom/pkg/config"
	"github.com/pion/logging"
)

// Config configures an App.
type Config struct {
	// Variant selects the UI flavour. Defaults to VariantCall.
	Variant Variant

	// ConfigErr, when set, puts the App on the configuration-error screen.
	ConfigErr error

	// Call configures the session controller. Its OnChange is chained after
	// the App's own notification.
	Call call.ControllerConfig

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// App is the view state of one browser. It is safe for concurrent use.
type App struct {
	variant   Variant
	configErr error
	ctrl      *call.Controller
	log       logging.LeveledLogger

	// opMu serializes Submit, Leave and Close so the call state and the
	// controller's session change together.
	opMu sync.Mutex

	mu      sync.RWMutex
	inCall  bool
	channel string
	closed  bool

	subMu   sync.Mutex
	subs    map[uint64]func()
	nextSub uint64
}

// NewApp creates an App. A controller that cannot be created (for example
// because the application id is missing) is reported on the
// configuration-error screen rather than as an error.
func NewApp(cfg Config) *App {
	if cfg.Variant == "" {
		cfg.Variant = VariantCall
	}
	a := &App{
		variant:   cfg.Variant,
		configErr: cfg.ConfigErr,
		subs:      make(map[uint64]func()),
	}
	if cfg.LoggerFactory != nil {
		a.log = cfg.LoggerFactory.NewLogger("ui")
	}
	if a.configErr != nil {
		a.logConfigError()
		return a
	}

	callCfg := cfg.Call
	next := callCfg.OnChange
	callCfg.OnChange = func() {
		a.changed()
		if next != nil {
			next()
		}
	}
	if callCfg.LoggerFactory == nil {
		callCfg.LoggerFactory = cfg.LoggerFactory
	}
	ctrl, err := call.NewController(callCfg)
	if err != nil {
		a.configErr = err
		a.logConfigError()
		return a
	}
	a.ctrl = ctrl
	return a
}

func (a *App) logConfigError() {
	if a.log != nil {
		a.log.Errorf("configuration error: %v", a.configErr)
	}
}

// Variant returns the UI variant.
func (a *App) Variant() Variant { return a.variant }

// ConfigErr returns the configuration error, if any.
func (a *App) ConfigErr() error { return a.configErr }

// Controller returns the call controller, or nil on configuration error.
func (a *App) Controller() *call.Controller { return a.ctrl }

// InCall reports whether the App shows the call screen.
func (a *App) InCall() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.inCall
}

// Channel returns the current channel, or "" when not in a call.
func (a *App) Channel() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.channel
}

// Submit handles a room-entry form submission. Input that normalizes to the
// empty string is ignored and Submit returns false. Otherwise the App enters
// the call with the normalized input as channel name; submitting while in a
// call switches channels.
func (a *App) Submit(input string) (bool, error) {
	if a.configErr != nil {
		return false, fmt.Errorf("%w: %v", ErrConfig, a.configErr)
	}
	channel, ok := a.variant.normalize(input)
	if !ok {
		return false, nil
	}

	a.opMu.Lock()
	defer a.opMu.Unlock()

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return false, ErrClosed
	}
	if a.inCall && a.channel == channel {
		a.mu.Unlock()
		return true, nil
	}
	a.inCall = true
	a.channel = channel
	a.mu.Unlock()

	if _, err := a.ctrl.Enter(channel); err != nil {
		a.mu.Lock()
		a.inCall = false
		a.channel = ""
		a.mu.Unlock()
		return false, err
	}
	if a.log != nil {
		a.log.Debugf("entered channel %q", channel)
	}
	a.changed()
	return true, nil
}

// Leave ends the call and returns to the form.
func (a *App) Leave(ctx context.Context) error {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	a.mu.Lock()
	wasInCall := a.inCall
	a.inCall = false
	a.channel = ""
	a.mu.Unlock()

	if a.ctrl == nil || !wasInCall {
		return nil
	}
	err := a.ctrl.Leave(ctx)
	a.changed()
	return err
}

// Close leaves any call and releases the controller.
func (a *App) Close() error {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.inCall = false
	a.channel = ""
	a.mu.Unlock()

	if a.ctrl == nil {
		return nil
	}
	return a.ctrl.Close()
}

// Subscribe registers fn to be called whenever the view may have changed.
// fn must not block. The returned function unregisters it.
func (a *App) Subscribe(fn func()) (cancel func()) {
	a.subMu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	a.subMu.Unlock()

	return func() {
		a.subMu.Lock()
		delete(a.subs, id)
		a.subMu.Unlock()
	}
}

func (a *App) changed() {
	a.subMu.Lock()
	fns := make([]func(), 0, len(a.subs))
	for _, fn := range a.subs {
		fns = append(fns, fn)
	}
	a.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// View returns a snapshot of the current screen.
func (a *App) View() View {
	txt := a.variant.texts()
	v := View{
		Variant: a.variant,
		Title:   txt.Title,
	}

	if a.configErr != nil {
		v.Screen = ScreenConfigError
		v.Message = configMessage(a.configErr)
		return v
	}

	a.mu.RLock()
	inCall, channel := a.inCall, a.channel
	a.mu.RUnlock()

	if !inCall {
		v.Screen = ScreenForm
		v.Heading = txt.Heading
		v.Placeholder = txt.Placeholder
		v.SubmitLabel = txt.SubmitLabel
		return v
	}

	v.Screen = ScreenCall
	v.ChannelLabel = txt.ChannelLabel
	v.Channel = channel
	v.ParticipantCount = len(a.ctrl.Participants()) + 1
	v.Controls = a.controls()

	for _, b := range a.ctrl.Renderer().Bindings() {
		v.Regions = append(v.Regions, RegionView{
			ID:    b.Region.ID,
			Class: b.Region.Kind.String(),
			UID:   string(b.Region.UID),
			Track: b.Track.ID(),
		})
	}

	if s := a.ctrl.Session(); s != nil {
		v.State = s.State().String()
		if err := s.Err(); err != nil && a.variant.surfacesErrors() {
			v.Error = JoinFailedMessage
		}
	}
	return v
}

func (a *App) controls() []Control {
	if a.variant == VariantRoom {
		return []Control{
			{Name: "mute", Label: "Mute", Disabled: true},
			{Name: "camera", Label: "Camera", Disabled: true},
			{Name: "leave", Label: "Leave Call"},
		}
	}
	return []Control{{Name: "leave", Label: "Leave Call"}}
}

func configMessage(err error) string {
	if errors.Is(err, config.ErrMissingAppID) || errors.Is(err, call.ErrMissingAppID) {
		return MissingAppIDMessage
	}
	return err.Error()
}
