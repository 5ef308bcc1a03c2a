package pionrtc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/backkem/videoroom/pkg/rtc"
	"github.com/google/go-cmp/cmp"
	"github.com/pion/rtp"
	"github.com/pion/transport/v3/test"
	"github.com/pion/webrtc/v4"
)

type rtpSurface struct {
	id      string
	packets chan *rtp.Packet
}

func newRTPSurface(id string) *rtpSurface {
	return &rtpSurface{id: id, packets: make(chan *rtp.Packet, 64)}
}

func (s *rtpSurface) SurfaceID() string { return s.id }

func (s *rtpSurface) WriteRTP(p *rtp.Packet) error {
	select {
	case s.packets <- p:
	default:
	}
	return nil
}

func newTestEngine(t *testing.T, gw *testGateway, withCapture bool) *Engine {
	t.Helper()
	cfg := EngineConfig{GatewayURL: gw.URL()}
	if withCapture {
		cfg.Microphone = NewStaticSource([]byte{0xfc, 0xff, 0xfe}, 20*time.Millisecond)
		cfg.Camera = NewStaticSource([]byte{0x10, 0x02, 0x00, 0x9d, 0x01, 0x2a}, 33*time.Millisecond)
	}
	e, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func newJoinedClient(t *testing.T, e *Engine) (*Client, rtc.UID) {
	t.Helper()
	c, err := e.CreateClient(rtc.DefaultClientConfig())
	if err != nil {
		t.Fatalf("CreateClient() error = %v", err)
	}
	client := c.(*Client)
	t.Cleanup(func() { _ = client.Leave(context.Background()) })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	uid, err := client.Join(ctx, "app", "room", "", "")
	if err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	return client, uid
}

func TestNewEngine_Validation(t *testing.T) {
	if _, err := NewEngine(EngineConfig{}); !errors.Is(err, ErrNoGateway) {
		t.Errorf("NewEngine() error = %v, want %v", err, ErrNoGateway)
	}
	if _, err := NewEngine(EngineConfig{GatewayURL: "ws://x", Codec: "av1"}); err == nil {
		t.Error("NewEngine() with unknown codec: expected error")
	}

	e, err := NewEngine(EngineConfig{GatewayURL: "ws://x"})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if _, err := e.CreateClient(rtc.ClientConfig{Mode: rtc.ClientModeRTC, Codec: rtc.CodecH264}); !errors.Is(err, ErrCodecMismatch) {
		t.Errorf("CreateClient() error = %v, want %v", err, ErrCodecMismatch)
	}
	if _, err := e.CreateClient(rtc.ClientConfig{Mode: "broadcast", Codec: rtc.CodecVP8}); err == nil {
		t.Error("CreateClient() with bad mode: expected error")
	}
}

func TestEngine_CaptureDenied(t *testing.T) {
	e, err := NewEngine(EngineConfig{GatewayURL: "ws://x"})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	ctx := context.Background()
	if _, err := e.CreateMicrophoneAudioTrack(ctx); !errors.Is(err, rtc.ErrCaptureDenied) {
		t.Errorf("CreateMicrophoneAudioTrack() error = %v, want %v", err, rtc.ErrCaptureDenied)
	}
	if _, err := e.CreateCameraVideoTrack(ctx); !errors.Is(err, rtc.ErrCaptureDenied) {
		t.Errorf("CreateCameraVideoTrack() error = %v, want %v", err, rtc.ErrCaptureDenied)
	}
}

func TestVideoCodec(t *testing.T) {
	tests := []struct {
		codec rtc.Codec
		mime  string
		pt    webrtc.PayloadType
	}{
		{rtc.CodecVP8, webrtc.MimeTypeVP8, payloadTypeVP8},
		{rtc.CodecVP9, webrtc.MimeTypeVP9, payloadTypeVP9},
		{rtc.CodecH264, webrtc.MimeTypeH264, payloadTypeH264},
	}
	for _, tt := range tests {
		t.Run(string(tt.codec), func(t *testing.T) {
			got, err := videoCodec(tt.codec)
			if err != nil {
				t.Fatalf("videoCodec() error = %v", err)
			}
			if got.MimeType != tt.mime || got.PayloadType != tt.pt {
				t.Errorf("videoCodec() = %s/%d, want %s/%d", got.MimeType, got.PayloadType, tt.mime, tt.pt)
			}
		})
	}
}

func TestICEConfiguration(t *testing.T) {
	if got := iceConfiguration(nil); len(got.ICEServers) != 0 {
		t.Errorf("iceConfiguration(nil) servers = %v, want none", got.ICEServers)
	}

	relay := &rtc.RelayConfig{
		URL:        "turn:relay.example.com",
		Username:   "user",
		Password:   "secret",
		UDPPort:    3478,
		TCPPort:    443,
		ForceRelay: true,
	}
	got := iceConfiguration(relay)
	want := []webrtc.ICEServer{{
		URLs: []string{
			"turn:relay.example.com:3478?transport=udp",
			"turn:relay.example.com:443?transport=tcp",
		},
		Username:   "user",
		Credential: "secret",
	}}
	if diff := cmp.Diff(want, got.ICEServers); diff != "" {
		t.Errorf("ICEServers mismatch (-want +got):\n%s", diff)
	}
	if got.ICETransportPolicy != webrtc.ICETransportPolicyRelay {
		t.Errorf("ICETransportPolicy = %v, want relay", got.ICETransportPolicy)
	}

	relay.ForceRelay = false
	if got := iceConfiguration(relay); got.ICETransportPolicy == webrtc.ICETransportPolicyRelay {
		t.Error("ICETransportPolicy = relay, want default when not forced")
	}
}

func TestErrorFromCode(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{CodeInvalidAppID, rtc.ErrInvalidAppID},
		{CodeInvalidChannel, rtc.ErrInvalidChannel},
		{CodeUIDConflict, rtc.ErrUIDConflict},
		{CodeNotJoined, rtc.ErrNotJoined},
		{CodeNotPublished, rtc.ErrUserNotPublished},
		{"overloaded", ErrRequestFailed},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if err := errorFromCode(tt.code); !errors.Is(err, tt.want) {
				t.Errorf("errorFromCode(%q) = %v, want %v", tt.code, err, tt.want)
			}
		})
	}
}

func TestClient_Join(t *testing.T) {
	gw := newTestGateway(t)
	e := newTestEngine(t, gw, false)

	client, uid := newJoinedClient(t, e)
	if uid != "u-1" {
		t.Errorf("Join() uid = %q, want %q", uid, "u-1")
	}
	if client.Channel() != "room" {
		t.Errorf("Channel() = %q, want %q", client.Channel(), "room")
	}
	if client.PeerConnection() == nil {
		t.Error("PeerConnection() = nil after Join")
	}

	if _, err := client.Join(context.Background(), "app", "room", "", ""); !errors.Is(err, rtc.ErrAlreadyJoined) {
		t.Errorf("second Join() error = %v, want %v", err, rtc.ErrAlreadyJoined)
	}

	if err := client.Leave(context.Background()); err != nil {
		t.Errorf("Leave() error = %v", err)
	}
	if err := client.Leave(context.Background()); err != nil {
		t.Errorf("second Leave() error = %v", err)
	}

	want := []MessageType{TypeJoin, TypeLeave}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(gw.requestTypes()) < len(want) {
		time.Sleep(10 * time.Millisecond)
	}
	if diff := cmp.Diff(want, gw.requestTypes()); diff != "" {
		t.Errorf("gateway requests mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_JoinErrors(t *testing.T) {
	gw := newTestGateway(t)
	e := newTestEngine(t, gw, false)
	ctx := context.Background()

	c, _ := e.CreateClient(rtc.DefaultClientConfig())
	defer c.Leave(ctx)

	if _, err := c.Join(ctx, "", "room", "", ""); !errors.Is(err, rtc.ErrInvalidAppID) {
		t.Errorf("Join() without app id error = %v, want %v", err, rtc.ErrInvalidAppID)
	}
	if _, err := c.Join(ctx, "app", "", "", ""); !errors.Is(err, rtc.ErrInvalidChannel) {
		t.Errorf("Join() without channel error = %v, want %v", err, rtc.ErrInvalidChannel)
	}

	gw.mu.Lock()
	gw.failJoin = CodeUIDConflict
	gw.mu.Unlock()
	if _, err := c.Join(ctx, "app", "room", "", "taken"); !errors.Is(err, rtc.ErrUIDConflict) {
		t.Errorf("Join() error = %v, want %v", err, rtc.ErrUIDConflict)
	}

	// A rejected join leaves the client usable.
	gw.mu.Lock()
	gw.failJoin = ""
	gw.mu.Unlock()
	uid, err := c.Join(ctx, "app", "room", "", "mine")
	if err != nil {
		t.Fatalf("Join() after rejection error = %v", err)
	}
	if uid != "mine" {
		t.Errorf("Join() uid = %q, want %q", uid, "mine")
	}
}

func TestClient_UseAfterLeave(t *testing.T) {
	gw := newTestGateway(t)
	e := newTestEngine(t, gw, false)
	ctx := context.Background()

	c, _ := e.CreateClient(rtc.DefaultClientConfig())
	if err := c.Leave(ctx); err != nil {
		t.Fatalf("Leave() error = %v", err)
	}
	if _, err := c.Join(ctx, "app", "room", "", ""); !errors.Is(err, rtc.ErrClientClosed) {
		t.Errorf("Join() after Leave error = %v, want %v", err, rtc.ErrClientClosed)
	}
	if err := c.SetRelay(ctx, rtc.RelayConfig{URL: "turn:x"}); !errors.Is(err, rtc.ErrClientClosed) {
		t.Errorf("SetRelay() after Leave error = %v, want %v", err, rtc.ErrClientClosed)
	}
}

func TestClient_PublishDeliversMedia(t *testing.T) {
	lim := test.TimeOut(30 * time.Second)
	defer lim.Stop()

	gw := newTestGateway(t)
	e := newTestEngine(t, gw, true)
	client, _ := newJoinedClient(t, e)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	mic, err := e.CreateMicrophoneAudioTrack(ctx)
	if err != nil {
		t.Fatalf("CreateMicrophoneAudioTrack() error = %v", err)
	}
	defer mic.Close()
	cam, err := e.CreateCameraVideoTrack(ctx)
	if err != nil {
		t.Fatalf("CreateCameraVideoTrack() error = %v", err)
	}
	defer cam.Close()

	if err := client.Publish(ctx, mic, cam); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	got := map[rtc.MediaKind]bool{}
	for len(got) < 2 {
		select {
		case kind := <-gw.received:
			got[kind] = true
		case <-ctx.Done():
			t.Fatalf("gateway received %v before timeout, want audio and video", got)
		}
	}

	if err := client.Unpublish(ctx, cam); err != nil {
		t.Errorf("Unpublish() error = %v", err)
	}
	// Unpublishing a track that is not published is a no-op.
	if err := client.Unpublish(ctx, cam); err != nil {
		t.Errorf("second Unpublish() error = %v", err)
	}
}

func TestClient_PublishErrors(t *testing.T) {
	gw := newTestGateway(t)
	e := newTestEngine(t, gw, true)
	ctx := context.Background()

	c, _ := e.CreateClient(rtc.DefaultClientConfig())
	defer c.Leave(ctx)

	cam, err := e.CreateCameraVideoTrack(ctx)
	if err != nil {
		t.Fatalf("CreateCameraVideoTrack() error = %v", err)
	}
	if err := c.Publish(ctx, cam); !errors.Is(err, rtc.ErrNotJoined) {
		t.Errorf("Publish() before Join error = %v, want %v", err, rtc.ErrNotJoined)
	}
	cam.Close()
	if err := c.Publish(ctx, cam); !errors.Is(err, rtc.ErrTrackClosed) {
		t.Errorf("Publish() closed track error = %v, want %v", err, rtc.ErrTrackClosed)
	}
	if err := cam.Play(newRTPSurface("local")); !errors.Is(err, rtc.ErrTrackClosed) {
		t.Errorf("Play() closed track error = %v, want %v", err, rtc.ErrTrackClosed)
	}
}

func TestClient_RemoteEvents(t *testing.T) {
	gw := newTestGateway(t)
	e := newTestEngine(t, gw, false)
	client, _ := newJoinedClient(t, e)

	type event struct {
		Name string
		UID  rtc.UID
		Kind rtc.MediaKind
	}
	events := make(chan event, 8)
	client.On(rtc.Handlers{
		OnUserPublished: func(u rtc.RemoteUser, k rtc.MediaKind) {
			events <- event{"published", u.UID(), k}
		},
		OnUserUnpublished: func(u rtc.RemoteUser, k rtc.MediaKind) {
			events <- event{"unpublished", u.UID(), k}
		},
		OnUserLeft: func(u rtc.RemoteUser) {
			events <- event{"left", u.UID(), 0}
		},
	})

	s := gw.session(0)
	s.send(Message{Type: TypeUserPublished, UID: "peer", Kind: "video"})
	s.send(Message{Type: TypeUserPublished, UID: "peer", Kind: "audio"})
	s.send(Message{Type: TypeUserUnpublished, UID: "peer", Kind: "video"})
	s.send(Message{Type: TypeUserLeft, UID: "peer"})

	want := []event{
		{"published", "peer", rtc.MediaKindVideo},
		{"published", "peer", rtc.MediaKindAudio},
		{"unpublished", "peer", rtc.MediaKindVideo},
		{"left", "peer", 0},
	}
	var got []event
	timeout := time.After(5 * time.Second)
	for len(got) < len(want) {
		select {
		case ev := <-events:
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("received %d events, want %d", len(got), len(want))
		}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_SubscribeForwardsRTP(t *testing.T) {
	lim := test.TimeOut(30 * time.Second)
	defer lim.Stop()

	gw := newTestGateway(t)
	e := newTestEngine(t, gw, false)
	client, _ := newJoinedClient(t, e)

	users := make(chan rtc.RemoteUser, 1)
	client.On(rtc.Handlers{
		OnUserPublished: func(u rtc.RemoteUser, k rtc.MediaKind) {
			if k == rtc.MediaKindVideo {
				users <- u
			}
		},
	})
	gw.session(0).send(Message{Type: TypeUserPublished, UID: "peer", Kind: "video"})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var user rtc.RemoteUser
	select {
	case user = <-users:
	case <-ctx.Done():
		t.Fatal("no user-published event")
	}

	if _, err := client.Subscribe(ctx, user, rtc.MediaKindAudio); !errors.Is(err, rtc.ErrUserNotPublished) {
		t.Errorf("Subscribe(audio) error = %v, want %v", err, rtc.ErrUserNotPublished)
	}

	track, err := client.Subscribe(ctx, user, rtc.MediaKindVideo)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if user.VideoTrack() != track {
		t.Error("VideoTrack() does not return the subscribed handle")
	}
	again, err := client.Subscribe(ctx, user, rtc.MediaKindVideo)
	if err != nil || again != track {
		t.Errorf("repeated Subscribe() = %v, %v; want same handle", again, err)
	}

	surface := newRTPSurface("remote-peer")
	if err := track.Play(surface); err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	select {
	case <-track.(*RemoteTrack).Attached():
	case <-ctx.Done():
		t.Fatal("remote track never attached")
	}
	select {
	case p := <-surface.packets:
		if len(p.Payload) == 0 {
			t.Error("forwarded packet has empty payload")
		}
	case <-ctx.Done():
		t.Fatal("no RTP forwarded to the surface")
	}
}

func TestClient_SubscribeUnknownUser(t *testing.T) {
	gw := newTestGateway(t)
	e := newTestEngine(t, gw, false)
	client, _ := newJoinedClient(t, e)

	_, err := client.Subscribe(context.Background(), newRemoteUser("ghost"), rtc.MediaKindVideo)
	if !errors.Is(err, ErrUnknownUser) {
		t.Errorf("Subscribe() error = %v, want %v", err, ErrUnknownUser)
	}
}

func TestStaticSource(t *testing.T) {
	src := NewStaticSource([]byte{1, 2, 3}, time.Millisecond)
	sample, err := src.NextSample(context.Background())
	if err != nil {
		t.Fatalf("NextSample() error = %v", err)
	}
	if diff := cmp.Diff([]byte{1, 2, 3}, sample.Data); diff != "" {
		t.Errorf("sample mismatch (-want +got):\n%s", diff)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slow := NewStaticSource(nil, time.Hour)
	if _, err := slow.NextSample(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("NextSample() cancelled error = %v, want %v", err, context.Canceled)
	}
}
