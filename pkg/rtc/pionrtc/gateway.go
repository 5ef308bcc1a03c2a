package pionrtc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pion/logging"
)

// gateway is one websocket connection to the conference gateway. A single
// read loop routes results to pending requests and hands everything else to
// onMessage.
type gateway struct {
	conn      *websocket.Conn
	onMessage func(Message)
	log       logging.LeveledLogger

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan Message
	err     error

	done chan struct{}
}

func dialGateway(ctx context.Context, dialer *websocket.Dialer, url string, onMessage func(Message), log logging.LeveledLogger) (*gateway, error) {
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("pionrtc: dial gateway: %w", err)
	}
	g := &gateway{
		conn:      conn,
		onMessage: onMessage,
		log:       log,
		pending:   make(map[uint64]chan Message),
		done:      make(chan struct{}),
	}
	go g.readLoop()
	return g, nil
}

func (g *gateway) readLoop() {
	var err error
	defer func() { g.fail(err) }()

	for {
		var msg Message
		if err = g.conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type == TypeResult && msg.ID != 0 {
			g.mu.Lock()
			ch := g.pending[msg.ID]
			delete(g.pending, msg.ID)
			g.mu.Unlock()
			if ch != nil {
				ch <- msg
			} else if g.log != nil {
				g.log.Debugf("dropping result for unknown request %d", msg.ID)
			}
			continue
		}
		g.onMessage(msg)
	}
}

// fail records why the connection ended and releases waiting requests.
func (g *gateway) fail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.done:
		return
	default:
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, websocket.ErrCloseSent) {
		err = nil
	}
	if err != nil && g.log != nil {
		g.log.Debugf("gateway read: %v", err)
	}
	g.err = ErrGatewayClosed
	g.pending = make(map[uint64]chan Message)
	close(g.done)
}

// send writes msg without waiting for a result.
func (g *gateway) send(msg Message) error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()
	return g.conn.WriteJSON(msg)
}

// request sends msg with a fresh id and waits for its result.
func (g *gateway) request(ctx context.Context, msg Message) (Message, error) {
	ch := make(chan Message, 1)
	g.mu.Lock()
	if g.err != nil {
		err := g.err
		g.mu.Unlock()
		return Message{}, err
	}
	g.nextID++
	msg.ID = g.nextID
	g.pending[msg.ID] = ch
	g.mu.Unlock()

	if err := g.send(msg); err != nil {
		g.forget(msg.ID)
		return Message{}, fmt.Errorf("pionrtc: send %s: %w", msg.Type, err)
	}

	select {
	case resp := <-ch:
		if resp.Error != "" {
			return resp, errorFromCode(resp.Error)
		}
		return resp, nil
	case <-g.done:
		return Message{}, ErrGatewayClosed
	case <-ctx.Done():
		g.forget(msg.ID)
		return Message{}, ctx.Err()
	}
}

func (g *gateway) forget(id uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.pending, id)
}

// close sends a close frame and tears down the connection. The read loop
// exits as a result.
func (g *gateway) close() error {
	g.writeMu.Lock()
	_ = g.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	g.writeMu.Unlock()
	err := g.conn.Close()
	<-g.done
	return err
}
