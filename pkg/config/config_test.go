package config

import (
	"errors"
	"testing"
	"time"

	"github.com/backkem/videoroom/pkg/rtc"
	"github.com/google/go-cmp/cmp"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("VIDEOROOM_APP_ID", "app-1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := &Config{
		AppID:              "app-1",
		TURN:               TURNConfig{Force: true},
		ClientMode:         rtc.ClientModeRTC,
		Codec:              rtc.CodecVP8,
		Listen:             ":8080",
		Variant:            VariantCall,
		SDK:                SDKLoopback,
		MetricsPath:        "/metrics",
		SessionIdleTimeout: 10 * time.Minute,
		MDNSInstance:       "videoroom",
		TLSCacheDir:        "autocert-cache",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if cfg.Relay() != nil {
		t.Errorf("Relay() = %+v, want nil", cfg.Relay())
	}
}

func TestLoad_AllVariables(t *testing.T) {
	vars := map[string]string{
		"VIDEOROOM_APP_ID":               "app-1",
		"VIDEOROOM_TOKEN":                "secret",
		"VIDEOROOM_TURN_SERVER_URL":      "turn.example.com",
		"VIDEOROOM_TURN_USERNAME":        "user",
		"VIDEOROOM_TURN_PASSWORD":        "pass",
		"VIDEOROOM_TURN_UDP_PORT":        "3478",
		"VIDEOROOM_TURN_TCP_PORT":        "443",
		"VIDEOROOM_TURN_FORCE":           "false",
		"VIDEOROOM_CLIENT_MODE":          "live",
		"VIDEOROOM_CODEC":                "h264",
		"VIDEOROOM_LISTEN":               "127.0.0.1:9000",
		"VIDEOROOM_UI_VARIANT":           "room",
		"VIDEOROOM_SDK":                  "pion",
		"VIDEOROOM_GATEWAY_URL":          "ws://gw/ws",
		"VIDEOROOM_METRICS_PATH":         "/m",
		"VIDEOROOM_SESSION_IDLE_TIMEOUT": "30s",
		"VIDEOROOM_MDNS":                 "true",
		"VIDEOROOM_MDNS_INSTANCE":        "lobby",
		"VIDEOROOM_TLS_DOMAINS":          "a.example.com,b.example.com",
		"VIDEOROOM_TLS_CACHE_DIR":        "/tmp/certs",
		"VIDEOROOM_OTEL_ENDPOINT":        "localhost:4318",
	}
	cfg, err := LoadFrom(vars)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	wantRelay := &rtc.RelayConfig{
		URL:      "turn.example.com",
		Username: "user",
		Password: "pass",
		UDPPort:  3478,
		TCPPort:  443,
	}
	if diff := cmp.Diff(wantRelay, cfg.Relay()); diff != "" {
		t.Errorf("Relay() mismatch (-want +got):\n%s", diff)
	}
	wantClient := rtc.ClientConfig{Mode: rtc.ClientModeLive, Codec: rtc.CodecH264}
	if got := cfg.ClientConfig(); got != wantClient {
		t.Errorf("ClientConfig() = %+v, want %+v", got, wantClient)
	}
	if cfg.Token != "secret" {
		t.Errorf("Token = %q, want secret", cfg.Token)
	}
	if cfg.SessionIdleTimeout != 30*time.Second {
		t.Errorf("SessionIdleTimeout = %v, want 30s", cfg.SessionIdleTimeout)
	}
	if diff := cmp.Diff([]string{"a.example.com", "b.example.com"}, cfg.TLSDomains); diff != "" {
		t.Errorf("TLSDomains mismatch (-want +got):\n%s", diff)
	}
	if !cfg.TLSEnabled() {
		t.Error("TLSEnabled() = false, want true")
	}
}

func TestLoad_NullToken(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"null", ""},
		{"", ""},
		{"abc", "abc"},
		{"NULL", "NULL"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			cfg, err := LoadFrom(map[string]string{"VIDEOROOM_TOKEN": tt.raw})
			if err != nil {
				t.Fatalf("LoadFrom() error = %v", err)
			}
			if cfg.Token != tt.want {
				t.Errorf("Token = %q, want %q", cfg.Token, tt.want)
			}
		})
	}
}

func TestLoad_ParseError(t *testing.T) {
	_, err := LoadFrom(map[string]string{"VIDEOROOM_TURN_UDP_PORT": "not-a-port"})
	if err == nil {
		t.Fatal("LoadFrom() error = nil, want parse error")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := LoadFrom(map[string]string{"VIDEOROOM_APP_ID": "app"})
		if err != nil {
			t.Fatalf("LoadFrom() error = %v", err)
		}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"missing app id", func(c *Config) { c.AppID = "" }, ErrMissingAppID},
		{"bad variant", func(c *Config) { c.Variant = "kiosk" }, ErrInvalidVariant},
		{"bad sdk", func(c *Config) { c.SDK = "agora" }, ErrInvalidSDK},
		{"pion without gateway", func(c *Config) { c.SDK = SDKPion }, ErrMissingGateway},
		{"bad relay port", func(c *Config) {
			c.TURN.ServerURL = "turn.example.com"
			c.TURN.UDPPort = 70000
		}, rtc.ErrInvalidRelay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_BadCodec(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"VIDEOROOM_APP_ID": "app", "VIDEOROOM_CODEC": "av1"})
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() error = nil, want codec error")
	}
}

func TestLoad_WhitespaceAppIDIsMissing(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"VIDEOROOM_APP_ID": "   "})
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if err := cfg.Validate(); !errors.Is(err, ErrMissingAppID) {
		t.Errorf("Validate() error = %v, want %v", err, ErrMissingAppID)
	}
}

func TestValidate_MissingAppIDReportedLast(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"VIDEOROOM_UI_VARIANT": "kiosk"})
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidVariant) {
		t.Errorf("Validate() error = %v, want %v", err, ErrInvalidVariant)
	}
}
