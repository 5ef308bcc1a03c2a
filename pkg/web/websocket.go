package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/backkem/videoroom/pkg/ui"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096
)

// Client actions.
const (
	ActionJoin  = "join"
	ActionLeave = "leave"
)

// ClientMessage is an action sent by the browser.
type ClientMessage struct {
	Action  string `json:"action"`
	Channel string `json:"channel,omitempty"`
}

// ServerMessage is pushed to the browser.
type ServerMessage struct {
	View  *ui.View `json:"view,omitempty"`
	Error string   `json:"error,omitempty"`
}

// wsConn is one live-update connection.
type wsConn struct {
	server *Server
	sess   *browserSession
	app    *ui.App
	ws     *websocket.Conn

	// dirty is signalled when the view may have changed.
	dirty chan struct{}
	// replies carries per-action errors to the writer.
	replies chan string
	done    chan struct{}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess, created := s.sessions.acquire(r)
	app := s.sessions.appFor(sess)
	if app == nil {
		http.Error(w, "session expired", http.StatusGone)
		return
	}
	header := http.Header{}
	if created {
		header.Add("Set-Cookie", s.sessions.cookie(sess).String())
	}

	ws, err := s.upgrader.Upgrade(w, r, header)
	var hsErr websocket.HandshakeError
	if errors.As(err, &hsErr) {
		if s.log != nil {
			s.log.Debug("ws: not a websocket handshake")
		}
		return
	} else if err != nil {
		if s.log != nil {
			s.log.Warnf("ws: upgrade: %v", err)
		}
		return
	}

	c := &wsConn{
		server:  s,
		sess:    sess,
		app:     app,
		ws:      ws,
		dirty:   make(chan struct{}, 1),
		replies: make(chan string, 8),
		done:    make(chan struct{}),
	}
	sess.attach(s.sessions.now())
	if s.config.Metrics != nil {
		s.config.Metrics.WebsocketOpened()
	}
	unsubscribe := app.Subscribe(c.markDirty)

	go c.writeLoop()
	c.readLoop()

	unsubscribe()
	sess.detach(s.sessions.now())
	if s.config.Metrics != nil {
		s.config.Metrics.WebsocketClosed()
	}
}

func (c *wsConn) markDirty() {
	select {
	case c.dirty <- struct{}{}:
	default:
	}
}

func (c *wsConn) readLoop() {
	defer func() {
		close(c.done)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	log := c.server.log
	for {
		var msg ClientMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) && log != nil {
				log.Warnf("ws: readLoop %s: %v", c.sess.id, err)
			}
			return
		}
		c.sess.touch(c.server.sessions.now())
		if errMsg := c.dispatch(msg); errMsg != "" {
			select {
			case c.replies <- errMsg:
			default:
			}
		}
	}
}

// dispatch runs one action and returns a message for the browser on error.
func (c *wsConn) dispatch(msg ClientMessage) string {
	app := c.app
	switch msg.Action {
	case ActionJoin:
		if _, err := app.Submit(msg.Channel); err != nil {
			return err.Error()
		}
	case ActionLeave:
		ctx, cancel := context.WithTimeout(context.Background(), c.server.config.LeaveTimeout)
		defer cancel()
		if err := app.Leave(ctx); err != nil {
			return err.Error()
		}
	default:
		return "unknown action " + msg.Action
	}
	return ""
}

func (c *wsConn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		// Break readLoop.
		c.ws.Close()
	}()

	if !c.send(ServerMessage{View: viewPtr(c.app.View())}) {
		return
	}
	for {
		select {
		case <-c.dirty:
			if !c.send(ServerMessage{View: viewPtr(c.app.View())}) {
				return
			}
		case text := <-c.replies:
			if !c.send(ServerMessage{Error: text}) {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		case <-c.server.closeCh:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		}
	}
}

func (c *wsConn) send(msg ServerMessage) bool {
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteJSON(msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) && c.server.log != nil {
			c.server.log.Warnf("ws: writeLoop %s: %v", c.sess.id, err)
		}
		return false
	}
	return true
}

func viewPtr(v ui.View) *ui.View { return &v }
