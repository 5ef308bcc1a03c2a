package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/backkem/videoroom/pkg/metrics"
	"github.com/backkem/videoroom/pkg/ui"
	"github.com/google/uuid"
	"github.com/pion/logging"
)

// SessionCookie is the name of the cookie carrying the session id.
const SessionCookie = "videoroom_session"

// browserSession is the server-side state of one browser. Its app is built
// on the first join or websocket, so page views alone hold no engine.
type browserSession struct {
	id string

	mu       sync.Mutex
	app      *ui.App
	closed   bool
	lastSeen time.Time
	conns    int
}

// currentApp returns the session's app, or nil before the first action.
func (s *browserSession) currentApp() *ui.App {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.app
}

func (s *browserSession) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

func (s *browserSession) attach(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns++
	s.lastSeen = now
}

func (s *browserSession) detach(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns--
	s.lastSeen = now
}

// idleSince reports whether the session has no open websocket and was last
// used before t.
func (s *browserSession) idleSince(t time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns == 0 && s.lastSeen.Before(t)
}

// sessionStore maps cookie ids to browser sessions.
type sessionStore struct {
	newApp  func() *ui.App
	idle    time.Duration
	metrics *metrics.Recorder
	log     logging.LeveledLogger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*browserSession
}

func newSessionStore(newApp func() *ui.App, idle time.Duration, m *metrics.Recorder, log logging.LeveledLogger) *sessionStore {
	return &sessionStore{
		newApp:   newApp,
		idle:     idle,
		metrics:  m,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]*browserSession),
	}
}

// lookup returns the session named by the request cookie, or nil.
func (ss *sessionStore) lookup(r *http.Request) *browserSession {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil
	}
	ss.mu.Lock()
	s := ss.sessions[c.Value]
	ss.mu.Unlock()
	if s != nil {
		s.touch(ss.now())
	}
	return s
}

// acquire returns the request's session, creating one if needed. created
// is true when the caller must send the cookie.
func (ss *sessionStore) acquire(r *http.Request) (s *browserSession, created bool) {
	if s := ss.lookup(r); s != nil {
		return s, false
	}
	s = &browserSession{
		id:       uuid.NewString(),
		lastSeen: ss.now(),
	}
	ss.mu.Lock()
	ss.sessions[s.id] = s
	ss.mu.Unlock()

	if ss.metrics != nil {
		ss.metrics.WebSessionOpened()
	}
	if ss.log != nil {
		ss.log.Debugf("session %s opened", s.id)
	}
	return s, true
}

// appFor returns the session's app, building it on first use. It returns
// nil once the session has been released.
func (ss *sessionStore) appFor(s *browserSession) *ui.App {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if s.app == nil {
		s.app = ss.newApp()
		if ss.log != nil {
			ss.log.Debugf("session %s: app created", s.id)
		}
	}
	return s.app
}

// apps returns the number of sessions holding an app.
func (ss *sessionStore) apps() int {
	ss.mu.Lock()
	all := make([]*browserSession, 0, len(ss.sessions))
	for _, s := range ss.sessions {
		all = append(all, s)
	}
	ss.mu.Unlock()

	n := 0
	for _, s := range all {
		if s.currentApp() != nil {
			n++
		}
	}
	return n
}

func (ss *sessionStore) cookie(s *browserSession) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    s.id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// expire closes sessions idle for longer than the store's timeout and
// returns how many were closed.
func (ss *sessionStore) expire() int {
	cutoff := ss.now().Add(-ss.idle)

	ss.mu.Lock()
	var stale []*browserSession
	for id, s := range ss.sessions {
		if s.idleSince(cutoff) {
			stale = append(stale, s)
			delete(ss.sessions, id)
		}
	}
	ss.mu.Unlock()

	for _, s := range stale {
		ss.release(s)
	}
	return len(stale)
}

// closeAll closes every session.
func (ss *sessionStore) closeAll() {
	ss.mu.Lock()
	all := ss.sessions
	ss.sessions = make(map[string]*browserSession)
	ss.mu.Unlock()

	for _, s := range all {
		ss.release(s)
	}
}

func (ss *sessionStore) release(s *browserSession) {
	s.mu.Lock()
	s.closed = true
	app := s.app
	s.mu.Unlock()

	if app != nil {
		if err := app.Close(); err != nil && ss.log != nil {
			ss.log.Warnf("session %s close: %v", s.id, err)
		}
	}
	if ss.metrics != nil {
		ss.metrics.WebSessionClosed()
	}
	if ss.log != nil {
		ss.log.Debugf("session %s closed", s.id)
	}
}

func (ss *sessionStore) len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.sessions)
}
