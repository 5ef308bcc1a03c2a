package web

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/backkem/videoroom/pkg/ui"
	"github.com/gorilla/websocket"
)

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	u, _ := url.Parse(e.http.URL)
	header := http.Header{}
	for _, c := range e.client.Jar.Cookies(u) {
		header.Add("Cookie", c.String())
	}
	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(e.http.URL, "http")+"/ws", header)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

// readUntil reads server messages until match accepts one.
func readUntil(t *testing.T, ws *websocket.Conn, match func(ServerMessage) bool) ServerMessage {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg ServerMessage
		if err := ws.ReadJSON(&msg); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func TestWebSocket_PushesViewChanges(t *testing.T) {
	env := newTestEnv(t, ui.VariantCall, testAppID)
	env.get(t, "/")
	ws := env.dial(t)

	first := readUntil(t, ws, func(m ServerMessage) bool { return m.View != nil })
	if first.View.Screen != ui.ScreenForm {
		t.Errorf("initial Screen = %q, want %q", first.View.Screen, ui.ScreenForm)
	}

	// A form post from the same browser is pushed to its websocket.
	env.post(t, "/join", url.Values{"channel": {"standup"}})
	got := readUntil(t, ws, func(m ServerMessage) bool {
		return m.View != nil && m.View.Screen == ui.ScreenCall
	})
	if got.View.Channel != "standup" {
		t.Errorf("Channel = %q, want %q", got.View.Channel, "standup")
	}

	// A remote participant shows up in a later push.
	joinRemote(t, env, "standup")
	readUntil(t, ws, func(m ServerMessage) bool {
		return m.View != nil && m.View.ParticipantCount == 2
	})
}

func TestWebSocket_Actions(t *testing.T) {
	env := newTestEnv(t, ui.VariantRoom, testAppID)
	ws := env.dial(t)
	readUntil(t, ws, func(m ServerMessage) bool { return m.View != nil })

	if err := ws.WriteJSON(ClientMessage{Action: ActionJoin, Channel: " design "}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	got := readUntil(t, ws, func(m ServerMessage) bool {
		return m.View != nil && m.View.Screen == ui.ScreenCall
	})
	if got.View.Channel != "design" {
		t.Errorf("Channel = %q, want %q", got.View.Channel, "design")
	}

	if err := ws.WriteJSON(ClientMessage{Action: ActionLeave}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	readUntil(t, ws, func(m ServerMessage) bool {
		return m.View != nil && m.View.Screen == ui.ScreenForm
	})

	if err := ws.WriteJSON(ClientMessage{Action: "dance"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	reply := readUntil(t, ws, func(m ServerMessage) bool { return m.Error != "" })
	if !strings.Contains(reply.Error, "dance") {
		t.Errorf("Error = %q, want it to name the action", reply.Error)
	}
}

func TestWebSocket_KeepsSessionAlive(t *testing.T) {
	env := newTestEnv(t, ui.VariantCall, testAppID)
	ws := env.dial(t)
	readUntil(t, ws, func(m ServerMessage) bool { return m.View != nil })

	env.server.sessions.now = func() time.Time { return time.Now().Add(time.Hour) }
	if n := env.server.sessions.expire(); n != 0 {
		t.Errorf("expire() with open websocket = %d, want 0", n)
	}
}

func TestWebSocket_ClosedOnShutdown(t *testing.T) {
	env := newTestEnv(t, ui.VariantCall, testAppID)
	ws := env.dial(t)
	readUntil(t, ws, func(m ServerMessage) bool { return m.View != nil })

	env.server.Close()

	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
				t.Errorf("ReadMessage() error = %v, want going-away close", err)
			}
			return
		}
	}
}
