// Package integration provides test infrastructure for videoroom E2E tests.
package integration

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/backkem/videoroom/examples/common"
	"github.com/backkem/videoroom/pkg/config"
	"github.com/backkem/videoroom/pkg/rtc"
	"github.com/backkem/videoroom/pkg/rtc/loopback"
	"github.com/backkem/videoroom/pkg/web"
	"github.com/gorilla/websocket"
	"github.com/pion/logging"
)

// TestAppID is the application id TestRoom configures by default.
const TestAppID = "integration-app"

// TestRoomConfig configures the test room creation.
type TestRoomConfig struct {
	// Env holds VIDEOROOM_* variables. Missing keys fall back to the
	// loopback SDK with TestAppID.
	Env map[string]string

	// Options are the command-line options of the process.
	Options common.Options

	// LoggerFactory for the stack. If nil, a default factory is used.
	LoggerFactory logging.LoggerFactory
}

// DefaultTestRoomConfig returns a loopback room with no demo peers.
func DefaultTestRoomConfig() TestRoomConfig {
	return TestRoomConfig{
		Env: map[string]string{
			config.EnvPrefix + "APP_ID": TestAppID,
			config.EnvPrefix + "SDK":    config.SDKLoopback,
		},
	}
}

// TestRoom holds a fully wired videoroom stack served over httptest.
//
// Example usage:
//
//	room := NewTestRoom(t, DefaultTestRoomConfig())
//	b := room.NewBrowser(t)
//	b.Join(t, "standup")
type TestRoom struct {
	// Stack is the process under test.
	Stack *common.Stack

	// HTTP serves Stack.Server.
	HTTP *httptest.Server

	t *testing.T
}

// NewTestRoom builds a stack from cfg and serves it until the test ends.
func NewTestRoom(t *testing.T, cfg TestRoomConfig) *TestRoom {
	t.Helper()

	vars := DefaultTestRoomConfig().Env
	for k, v := range cfg.Env {
		vars[k] = v
	}
	conf, err := config.LoadFrom(vars)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	lf := cfg.LoggerFactory
	if lf == nil {
		lf = logging.NewDefaultLoggerFactory()
	}
	st, err := common.NewStack(conf, cfg.Options, lf)
	if err != nil {
		t.Fatalf("NewStack() error = %v", err)
	}

	hs := httptest.NewServer(st.Server.Handler())
	t.Cleanup(func() {
		hs.Close()
		st.Server.Close()
		if st.Demo != nil {
			if err := st.Demo.Close(); err != nil {
				t.Errorf("Demo.Close() error = %v", err)
			}
		}
	})

	return &TestRoom{Stack: st, HTTP: hs, t: t}
}

// Network returns the loopback medium. It fails the test for other SDKs.
func (r *TestRoom) Network() *loopback.Network {
	r.t.Helper()
	if r.Stack.Network == nil {
		r.t.Fatal("room has no loopback network")
	}
	return r.Stack.Network
}

// JoinRemote joins a participant through the loopback network and
// publishes a camera track. The participant leaves when the returned
// function is called or the test ends.
func (r *TestRoom) JoinRemote(t *testing.T, channel string, uid rtc.UID) (leave func()) {
	t.Helper()
	ctx := context.Background()

	e, err := loopback.NewEngine(loopback.EngineConfig{Network: r.Network()})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	c, err := e.CreateClient(rtc.DefaultClientConfig())
	if err != nil {
		t.Fatalf("CreateClient() error = %v", err)
	}
	if _, err := c.Join(ctx, r.Stack.Config.AppID, channel, "", uid); err != nil {
		t.Fatalf("remote Join() error = %v", err)
	}
	cam, err := e.CreateCameraVideoTrack(ctx)
	if err != nil {
		t.Fatalf("CreateCameraVideoTrack() error = %v", err)
	}
	if err := c.Publish(ctx, cam); err != nil {
		t.Fatalf("remote Publish() error = %v", err)
	}

	leave = func() { _ = c.Leave(context.Background()) }
	t.Cleanup(leave)
	return leave
}

// Browser is one cookie-carrying HTTP client of the room.
type Browser struct {
	room   *TestRoom
	client *http.Client
}

// NewBrowser returns a client with its own session cookie.
func (r *TestRoom) NewBrowser(t *testing.T) *Browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar.New() error = %v", err)
	}
	return &Browser{
		room:   r,
		client: &http.Client{Jar: jar, Timeout: 10 * time.Second},
	}
}

// Get fetches path and returns the status and body.
func (b *Browser) Get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := b.client.Get(b.room.HTTP.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

// Post submits form to path and returns the status and body after
// redirects.
func (b *Browser) Post(t *testing.T, path string, form url.Values) (int, string) {
	t.Helper()
	resp, err := b.client.PostForm(b.room.HTTP.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

// Join submits the join form.
func (b *Browser) Join(t *testing.T, channel string) string {
	t.Helper()
	code, body := b.Post(t, "/join", url.Values{"channel": {channel}})
	if code != http.StatusOK {
		t.Fatalf("POST /join status = %d, want %d", code, http.StatusOK)
	}
	return body
}

// Leave submits the leave form.
func (b *Browser) Leave(t *testing.T) string {
	t.Helper()
	code, body := b.Post(t, "/leave", nil)
	if code != http.StatusOK {
		t.Fatalf("POST /leave status = %d, want %d", code, http.StatusOK)
	}
	return body
}

// Dial opens the live-update websocket with the browser's cookie.
func (b *Browser) Dial(t *testing.T) *ViewStream {
	t.Helper()
	u, _ := url.Parse(b.room.HTTP.URL)
	header := http.Header{}
	for _, c := range b.client.Jar.Cookies(u) {
		header.Add("Cookie", c.String())
	}
	wsURL := "ws" + strings.TrimPrefix(b.room.HTTP.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return &ViewStream{ws: ws}
}

// ViewStream reads pushed views from a websocket.
type ViewStream struct {
	ws *websocket.Conn
}

// Send writes an action to the server.
func (s *ViewStream) Send(t *testing.T, msg web.ClientMessage) {
	t.Helper()
	if err := s.ws.WriteJSON(msg); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
}

// WaitFor reads messages until match accepts one or timeout passes.
func (s *ViewStream) WaitFor(t *testing.T, timeout time.Duration, match func(web.ServerMessage) bool) web.ServerMessage {
	t.Helper()
	s.ws.SetReadDeadline(time.Now().Add(timeout))
	for {
		var msg web.ServerMessage
		if err := s.ws.ReadJSON(&msg); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}
