package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/backkem/videoroom/pkg/rtc"
	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every variable read by Load.
const EnvPrefix = "VIDEOROOM_"

// NoToken is the token value that explicitly means "join without a token".
const NoToken = "null"

// UI variants.
const (
	VariantCall = "call"
	VariantRoom = "room"
)

// SDK engines.
const (
	SDKLoopback = "loopback"
	SDKPion     = "pion"
)

// TURNConfig holds the optional relay settings.
type TURNConfig struct {
	ServerURL string `env:"SERVER_URL"`
	Username  string `env:"USERNAME"`
	Password  string `env:"PASSWORD"`
	UDPPort   int    `env:"UDP_PORT"`
	TCPPort   int    `env:"TCP_PORT"`
	Force     bool   `env:"FORCE" envDefault:"true"`
}

// Config is the process configuration.
type Config struct {
	AppID string `env:"APP_ID"`
	Token string `env:"TOKEN"`

	TURN TURNConfig `envPrefix:"TURN_"`

	ClientMode rtc.ClientMode `env:"CLIENT_MODE" envDefault:"rtc"`
	Codec      rtc.Codec      `env:"CODEC" envDefault:"vp8"`

	Listen             string        `env:"LISTEN" envDefault:":8080"`
	Variant            string        `env:"UI_VARIANT" envDefault:"call"`
	SDK                string        `env:"SDK" envDefault:"loopback"`
	GatewayURL         string        `env:"GATEWAY_URL"`
	MetricsPath        string        `env:"METRICS_PATH" envDefault:"/metrics"`
	SessionIdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"10m"`

	MDNS         bool   `env:"MDNS"`
	MDNSInstance string `env:"MDNS_INSTANCE" envDefault:"videoroom"`

	TLSDomains  []string `env:"TLS_DOMAINS" envSeparator:","`
	TLSCacheDir string   `env:"TLS_CACHE_DIR" envDefault:"autocert-cache"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	return load(env.Options{Prefix: EnvPrefix})
}

// LoadFrom reads the configuration from the given variables instead of the
// process environment. Keys carry the prefix.
func LoadFrom(vars map[string]string) (*Config, error) {
	return load(env.Options{Prefix: EnvPrefix, Environment: vars})
}

func load(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	cfg.AppID = strings.TrimSpace(cfg.AppID)
	if cfg.Token == NoToken {
		cfg.Token = ""
	}
	return &cfg, nil
}

// Validate reports the first configuration problem, if any. A missing
// application id is checked last, so ErrMissingAppID means everything else
// is usable.
func (c *Config) Validate() error {
	switch c.Variant {
	case VariantCall, VariantRoom:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidVariant, c.Variant)
	}
	switch c.SDK {
	case SDKLoopback:
	case SDKPion:
		if c.GatewayURL == "" {
			return ErrMissingGateway
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSDK, c.SDK)
	}
	if err := c.ClientConfig().Validate(); err != nil {
		return err
	}
	if r := c.Relay(); r != nil {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	if c.AppID == "" {
		return ErrMissingAppID
	}
	return nil
}

// ClientConfig returns the SDK client configuration.
func (c *Config) ClientConfig() rtc.ClientConfig {
	return rtc.ClientConfig{Mode: c.ClientMode, Codec: c.Codec}
}

// Relay returns the relay configuration, or nil when no relay URL is set.
func (c *Config) Relay() *rtc.RelayConfig {
	if c.TURN.ServerURL == "" {
		return nil
	}
	return &rtc.RelayConfig{
		URL:        c.TURN.ServerURL,
		Username:   c.TURN.Username,
		Password:   c.TURN.Password,
		UDPPort:    c.TURN.UDPPort,
		TCPPort:    c.TURN.TCPPort,
		ForceRelay: c.TURN.Force,
	}
}

// TLSEnabled reports whether ACME certificates should be requested.
func (c *Config) TLSEnabled() bool {
	return len(c.TLSDomains) > 0
}
