package rtc

import (
	"fmt"
	"strings"
)

// UID identifies a participant within a channel. It is assigned by the
// engine unless the application asks for a specific one.
type UID string

// MediaKind tags a track as audio or video.
type MediaKind uint8

const (
	MediaKindAudio MediaKind = iota + 1
	MediaKindVideo
)

// String returns the wire name of the media kind.
func (k MediaKind) String() string {
	switch k {
	case MediaKindAudio:
		return "audio"
	case MediaKindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// IsValid returns true for audio and video.
func (k MediaKind) IsValid() bool {
	return k == MediaKindAudio || k == MediaKindVideo
}

// ParseMediaKind converts a wire name back to a MediaKind.
func ParseMediaKind(s string) (MediaKind, error) {
	switch strings.ToLower(s) {
	case "audio":
		return MediaKindAudio, nil
	case "video":
		return MediaKindVideo, nil
	default:
		return 0, fmt.Errorf("rtc: unknown media kind %q", s)
	}
}

// ClientMode selects the channel profile.
type ClientMode string

const (
	// ClientModeRTC is the communication profile: every member may publish.
	ClientModeRTC ClientMode = "rtc"
	// ClientModeLive is the broadcast profile.
	ClientModeLive ClientMode = "live"
)

// Codec selects the video codec used for published tracks.
type Codec string

const (
	CodecVP8  Codec = "vp8"
	CodecVP9  Codec = "vp9"
	CodecH264 Codec = "h264"
)

// ClientConfig holds options passed to Engine.CreateClient.
type ClientConfig struct {
	Mode  ClientMode
	Codec Codec
}

// DefaultClientConfig returns the communication profile with VP8.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{Mode: ClientModeRTC, Codec: CodecVP8}
}

// Validate checks the mode and codec values.
func (c ClientConfig) Validate() error {
	switch c.Mode {
	case ClientModeRTC, ClientModeLive:
	default:
		return fmt.Errorf("rtc: unsupported client mode %q", c.Mode)
	}
	switch c.Codec {
	case CodecVP8, CodecVP9, CodecH264:
	default:
		return fmt.Errorf("rtc: unsupported codec %q", c.Codec)
	}
	return nil
}

// RelayConfig describes a TURN relay used when direct paths fail.
type RelayConfig struct {
	// URL is the relay host, with or without a turn: scheme.
	URL      string
	Username string
	Password string

	// UDPPort and TCPPort select which transports the relay is reached on.
	// Zero disables that transport.
	UDPPort int
	TCPPort int

	// ForceRelay restricts connectivity to relayed candidates.
	ForceRelay bool
}

// Validate checks that the relay has a URL and at least one usable port.
func (r RelayConfig) Validate() error {
	if r.URL == "" {
		return ErrInvalidRelay
	}
	if r.UDPPort < 0 || r.UDPPort > 65535 || r.TCPPort < 0 || r.TCPPort > 65535 {
		return fmt.Errorf("%w: port out of range", ErrInvalidRelay)
	}
	return nil
}

// Host returns the relay host with any scheme prefix removed.
func (r RelayConfig) Host() string {
	host := r.URL
	for _, prefix := range []string{"turns:", "turn:", "stun:"} {
		host = strings.TrimPrefix(host, prefix)
	}
	return strings.TrimSuffix(host, "/")
}

// URLs returns the turn: URLs for each configured transport. When neither
// port is set the host is returned with the default port.
func (r RelayConfig) URLs() []string {
	host := r.Host()
	var urls []string
	if r.UDPPort > 0 {
		urls = append(urls, fmt.Sprintf("turn:%s:%d?transport=udp", host, r.UDPPort))
	}
	if r.TCPPort > 0 {
		urls = append(urls, fmt.Sprintf("turn:%s:%d?transport=tcp", host, r.TCPPort))
	}
	if len(urls) == 0 {
		urls = append(urls, "turn:"+host)
	}
	return urls
}
