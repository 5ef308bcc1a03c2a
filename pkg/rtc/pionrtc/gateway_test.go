package pionrtc

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/backkem/videoroom/pkg/rtc"
	"github.com/gorilla/websocket"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// testGateway is a minimal conference gateway: one pion PeerConnection per
// websocket, no forwarding between members. Subscriptions are served from
// a synthetic track.
type testGateway struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	sessions []*gatewaySession
	requests []Message
	failJoin string

	received chan rtc.MediaKind
}

type gatewaySession struct {
	gw      *testGateway
	conn    *websocket.Conn
	pc      *webrtc.PeerConnection
	writeMu sync.Mutex
	answers chan string
	done    chan struct{}
}

func newTestGateway(t *testing.T) *testGateway {
	t.Helper()
	g := &testGateway{t: t, received: make(chan rtc.MediaKind, 16)}
	upgrader := websocket.Upgrader{}
	g.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		g.serve(conn)
	}))
	t.Cleanup(g.close)
	return g
}

func (g *testGateway) URL() string {
	return "ws" + strings.TrimPrefix(g.server.URL, "http")
}

func (g *testGateway) close() {
	g.server.CloseClientConnections()
	g.server.Close()
	g.mu.Lock()
	sessions := g.sessions
	g.mu.Unlock()
	for _, s := range sessions {
		_ = s.conn.Close()
		<-s.done
		_ = s.pc.Close()
	}
}

func (g *testGateway) requestTypes() []MessageType {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]MessageType, 0, len(g.requests))
	for _, m := range g.requests {
		out = append(out, m.Type)
	}
	return out
}

// session waits for the n-th connected member.
func (g *testGateway) session(n int) *gatewaySession {
	g.t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		g.mu.Lock()
		if len(g.sessions) > n {
			s := g.sessions[n]
			g.mu.Unlock()
			return s
		}
		g.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	g.t.Fatalf("no gateway session %d", n)
	return nil
}

func (g *testGateway) serve(conn *websocket.Conn) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		g.t.Errorf("gateway peer connection: %v", err)
		conn.Close()
		return
	}
	s := &gatewaySession{gw: g, conn: conn, pc: pc, answers: make(chan string, 1), done: make(chan struct{})}
	pc.OnTrack(func(remote *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		kind := rtc.MediaKindVideo
		if remote.Kind() == webrtc.RTPCodecTypeAudio {
			kind = rtc.MediaKindAudio
		}
		if _, _, err := remote.ReadRTP(); err == nil {
			select {
			case g.received <- kind:
			default:
			}
		}
		for {
			if _, _, err := remote.ReadRTP(); err != nil {
				return
			}
		}
	})

	g.mu.Lock()
	g.sessions = append(g.sessions, s)
	g.mu.Unlock()

	go s.readLoop()
}

func (s *gatewaySession) send(msg Message) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.WriteJSON(msg)
}

func (s *gatewaySession) readLoop() {
	defer close(s.done)
	for {
		var msg Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type == TypeAnswer {
			s.answers <- msg.SDP
			continue
		}

		s.gw.mu.Lock()
		s.gw.requests = append(s.gw.requests, msg)
		failJoin := s.gw.failJoin
		s.gw.mu.Unlock()

		resp := Message{ID: msg.ID, Type: TypeResult}
		switch msg.Type {
		case TypeJoin:
			switch {
			case failJoin != "":
				resp.Error = failJoin
			case msg.UID != "":
				resp.UID = msg.UID
			default:
				resp.UID = "u-1"
			}
		case TypePublish, TypeUnpublish:
			answer, err := s.answer(msg.SDP)
			if err != nil {
				resp.Error = err.Error()
			}
			resp.SDP = answer
		case TypeSubscribe:
			go s.offerTrack(rtc.UID(msg.UID), msg.Kind)
		}
		s.send(resp)
	}
}

func (s *gatewaySession) answer(offer string) (string, error) {
	if err := s.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offer}); err != nil {
		return "", err
	}
	answer, err := s.pc.CreateAnswer(nil)
	if err != nil {
		return "", err
	}
	gathered := webrtc.GatheringCompletePromise(s.pc)
	if err := s.pc.SetLocalDescription(answer); err != nil {
		return "", err
	}
	<-gathered
	return s.pc.LocalDescription().SDP, nil
}

// offerTrack adds a synthetic track for uid, renegotiates, and streams RTP
// until the session ends.
func (s *gatewaySession) offerTrack(uid rtc.UID, kind string) {
	capability := webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}
	if kind == "audio" {
		capability = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}
	}
	track, err := webrtc.NewTrackLocalStaticRTP(capability, fmt.Sprintf("%s-%s", uid, kind), string(uid))
	if err != nil {
		s.gw.t.Errorf("gateway track: %v", err)
		return
	}
	if _, err := s.pc.AddTrack(track); err != nil {
		s.gw.t.Errorf("gateway add track: %v", err)
		return
	}
	offer, err := s.pc.CreateOffer(nil)
	if err != nil {
		s.gw.t.Errorf("gateway offer: %v", err)
		return
	}
	gathered := webrtc.GatheringCompletePromise(s.pc)
	if err := s.pc.SetLocalDescription(offer); err != nil {
		s.gw.t.Errorf("gateway local description: %v", err)
		return
	}
	<-gathered
	s.send(Message{Type: TypeOffer, SDP: s.pc.LocalDescription().SDP})

	select {
	case sdp := <-s.answers:
		if err := s.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp}); err != nil {
			s.gw.t.Errorf("gateway remote description: %v", err)
			return
		}
	case <-s.done:
		return
	}

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	var seq uint16
	for {
		select {
		case <-ticker.C:
			seq++
			_ = track.WriteRTP(&rtp.Packet{
				Header: rtp.Header{
					Version:        2,
					SequenceNumber: seq,
					Timestamp:      uint32(seq) * 3000,
				},
				Payload: []byte{0x10, 0x00, 0x00, 0x9d, 0x01, 0x2a},
			})
		case <-s.done:
			return
		}
	}
}
