package pionrtc

import (
	"context"
	"fmt"

	"github.com/backkem/videoroom/pkg/rtc"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pion/interceptor"
	"github.com/pion/logging"
	"github.com/pion/webrtc/v4"
)

// Payload types offered for each codec.
const (
	payloadTypeOpus = 111
	payloadTypeVP8  = 96
	payloadTypeVP9  = 98
	payloadTypeH264 = 102
)

// streamID is the stream id of locally captured tracks. The gateway rewrites
// it to the publisher's uid when forwarding.
const streamID = "videoroom"

// EngineConfig configures an Engine.
type EngineConfig struct {
	// GatewayURL is the websocket URL of the conference gateway. Required.
	GatewayURL string

	// Dialer is used to reach the gateway. Defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// Microphone and Camera feed the local capture tracks. A nil source
	// makes the corresponding Create call fail with rtc.ErrCaptureDenied.
	Microphone SampleSource
	Camera     SampleSource

	// Codec is the video codec of camera tracks. Defaults to VP8.
	Codec rtc.Codec

	// SettingEngine tunes ICE and transport behavior. Optional.
	SettingEngine *webrtc.SettingEngine

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Engine implements rtc.Engine on pion/webrtc.
type Engine struct {
	config EngineConfig
	dialer *websocket.Dialer
	log    logging.LeveledLogger
}

var _ rtc.Engine = (*Engine)(nil)

// NewEngine creates an engine for config.GatewayURL.
func NewEngine(config EngineConfig) (*Engine, error) {
	if config.GatewayURL == "" {
		return nil, ErrNoGateway
	}
	if config.Codec == "" {
		config.Codec = rtc.CodecVP8
	}
	if _, err := videoCodec(config.Codec); err != nil {
		return nil, err
	}
	e := &Engine{config: config, dialer: config.Dialer}
	if e.dialer == nil {
		e.dialer = websocket.DefaultDialer
	}
	if config.LoggerFactory != nil {
		e.log = config.LoggerFactory.NewLogger("pionrtc")
	}
	return e, nil
}

// CreateClient implements rtc.Engine.
func (e *Engine) CreateClient(cfg rtc.ClientConfig) (rtc.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Codec != e.config.Codec {
		return nil, fmt.Errorf("%w: %s != %s", ErrCodecMismatch, cfg.Codec, e.config.Codec)
	}
	api, err := e.newAPI()
	if err != nil {
		return nil, err
	}
	return newClient(e, cfg, api), nil
}

// CreateMicrophoneAudioTrack implements rtc.Engine.
func (e *Engine) CreateMicrophoneAudioTrack(ctx context.Context) (rtc.LocalTrack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.config.Microphone == nil {
		return nil, rtc.ErrCaptureDenied
	}
	t, err := e.newLocalTrack(rtc.MediaKindAudio, audioCodec().RTPCodecCapability, e.config.Microphone)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// CreateCameraVideoTrack implements rtc.Engine.
func (e *Engine) CreateCameraVideoTrack(ctx context.Context) (rtc.LocalTrack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.config.Camera == nil {
		return nil, rtc.ErrCaptureDenied
	}
	codec, err := videoCodec(e.config.Codec)
	if err != nil {
		return nil, err
	}
	t, err := e.newLocalTrack(rtc.MediaKindVideo, codec.RTPCodecCapability, e.config.Camera)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (e *Engine) newLocalTrack(kind rtc.MediaKind, capability webrtc.RTPCodecCapability, source SampleSource) (*LocalTrack, error) {
	id := kind.String() + "-" + uuid.NewString()
	track, err := webrtc.NewTrackLocalStaticSample(capability, id, streamID)
	if err != nil {
		return nil, err
	}
	return newLocalTrack(id, kind, track, source, e.log), nil
}

// newAPI builds a pion API with opus plus the configured video codec and
// the default interceptors.
func (e *Engine) newAPI() (*webrtc.API, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterCodec(audioCodec(), webrtc.RTPCodecTypeAudio); err != nil {
		return nil, err
	}
	video, err := videoCodec(e.config.Codec)
	if err != nil {
		return nil, err
	}
	if err := m.RegisterCodec(video, webrtc.RTPCodecTypeVideo); err != nil {
		return nil, err
	}

	i := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, i); err != nil {
		return nil, err
	}

	opts := []func(*webrtc.API){
		webrtc.WithMediaEngine(m),
		webrtc.WithInterceptorRegistry(i),
	}
	if e.config.SettingEngine != nil {
		opts = append(opts, webrtc.WithSettingEngine(*e.config.SettingEngine))
	}
	return webrtc.NewAPI(opts...), nil
}

func audioCodec() webrtc.RTPCodecParameters {
	return webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:    webrtc.MimeTypeOpus,
			ClockRate:   48000,
			Channels:    2,
			SDPFmtpLine: "minptime=10;useinbandfec=1",
		},
		PayloadType: payloadTypeOpus,
	}
}

var videoFeedback = []webrtc.RTCPFeedback{
	{Type: "goog-remb"},
	{Type: "ccm", Parameter: "fir"},
	{Type: "nack"},
	{Type: "nack", Parameter: "pli"},
}

func videoCodec(codec rtc.Codec) (webrtc.RTPCodecParameters, error) {
	capability := webrtc.RTPCodecCapability{ClockRate: 90000, RTCPFeedback: videoFeedback}
	var pt webrtc.PayloadType
	switch codec {
	case rtc.CodecVP8:
		capability.MimeType = webrtc.MimeTypeVP8
		pt = payloadTypeVP8
	case rtc.CodecVP9:
		capability.MimeType = webrtc.MimeTypeVP9
		capability.SDPFmtpLine = "profile-id=0"
		pt = payloadTypeVP9
	case rtc.CodecH264:
		capability.MimeType = webrtc.MimeTypeH264
		capability.SDPFmtpLine = "level-asymmetry-allowed=1;packetization-mode=1;profile-level-id=42e01f"
		pt = payloadTypeH264
	default:
		return webrtc.RTPCodecParameters{}, fmt.Errorf("pionrtc: unsupported codec %q", codec)
	}
	return webrtc.RTPCodecParameters{RTPCodecCapability: capability, PayloadType: pt}, nil
}

// iceConfiguration turns a relay into the PeerConnection configuration.
func iceConfiguration(relay *rtc.RelayConfig) webrtc.Configuration {
	if relay == nil {
		return webrtc.Configuration{}
	}
	cfg := webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{
			URLs:       relay.URLs(),
			Username:   relay.Username,
			Credential: relay.Password,
		}},
	}
	if relay.ForceRelay {
		cfg.ICETransportPolicy = webrtc.ICETransportPolicyRelay
	}
	return cfg
}
