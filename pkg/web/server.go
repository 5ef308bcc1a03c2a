package web

import (
	"context"
	"crypto/tls"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/backkem/videoroom/pkg/metrics"
	"github.com/backkem/videoroom/pkg/ui"
	"github.com/gorilla/handlers"
	"github.com/gorilla/websocket"
	"github.com/pion/logging"
	"golang.org/x/crypto/acme/autocert"
)

// Default configuration values.
const (
	DefaultSessionIdleTimeout = 10 * time.Minute
	DefaultMetricsPath        = "/metrics"
	DefaultLeaveTimeout       = 5 * time.Second
	DefaultShutdownTimeout    = 5 * time.Second
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// ServerConfig configures a Server.
type ServerConfig struct {
	// Addr is the listen address used by ListenAndServe.
	Addr string

	// NewApp builds the UI state for a new browser session. Required.
	NewApp func() *ui.App

	// Metrics, when set, is exposed on MetricsPath and records web sessions
	// and websocket connections.
	Metrics     *metrics.Recorder
	MetricsPath string

	// SessionIdleTimeout closes sessions without an open websocket that
	// have not been used for this long. Defaults to DefaultSessionIdleTimeout.
	SessionIdleTimeout time.Duration

	// LeaveTimeout bounds POST /leave. Defaults to DefaultLeaveTimeout.
	LeaveTimeout time.Duration

	// TLSDomains enables HTTPS with ACME certificates for these hosts.
	TLSDomains  []string
	TLSCacheDir string

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Server is the videoroom HTTP front end.
type Server struct {
	config   ServerConfig
	log      logging.LeveledLogger
	sessions *sessionStore
	// blank renders pages for sessions that have not acted yet. It never
	// joins a channel.
	blank    *ui.App
	pages    *template.Template
	upgrader websocket.Upgrader
	handler  http.Handler

	closeOnce sync.Once
	closeCh   chan struct{}
	wg        sync.WaitGroup
}

// NewServer creates a server and starts its session janitor.
func NewServer(config ServerConfig) (*Server, error) {
	if config.NewApp == nil {
		return nil, ErrNoAppFactory
	}
	if config.SessionIdleTimeout <= 0 {
		config.SessionIdleTimeout = DefaultSessionIdleTimeout
	}
	if config.MetricsPath == "" {
		config.MetricsPath = DefaultMetricsPath
	}
	if config.LeaveTimeout <= 0 {
		config.LeaveTimeout = DefaultLeaveTimeout
	}

	pages, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("web: parse templates: %w", err)
	}

	s := &Server{
		config:  config,
		pages:   pages,
		closeCh: make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	if config.LoggerFactory != nil {
		s.log = config.LoggerFactory.NewLogger("web")
	}
	s.sessions = newSessionStore(config.NewApp, config.SessionIdleTimeout, config.Metrics, s.log)
	s.blank = config.NewApp()

	if s.handler, err = s.routes(); err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go s.janitor()
	return s, nil
}

func (s *Server) routes() (http.Handler, error) {
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("GET /{$}", handlers.CompressHandler(http.HandlerFunc(s.handleIndex)))
	mux.HandleFunc("POST /join", s.handleJoin)
	mux.HandleFunc("POST /leave", s.handleLeave)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /static/", handlers.CompressHandler(
		http.StripPrefix("/static/", http.FileServer(http.FS(static)))))
	if s.config.Metrics != nil {
		mux.Handle("GET "+s.config.MetricsPath, s.config.Metrics.Handler())
	}

	var h http.Handler = mux
	h = handlers.LoggingHandler(logWriter{s.log}, h)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.log}),
		handlers.PrintRecoveryStack(true),
	)(h)
	return h, nil
}

// Handler returns the root handler with logging and panic recovery.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// SessionCount returns the number of live browser sessions.
func (s *Server) SessionCount() int {
	return s.sessions.len()
}

// AppCount returns the number of sessions that have joined or opened the
// live-update websocket and so hold call state.
func (s *Server) AppCount() int {
	return s.sessions.apps()
}

// janitor expires idle sessions until the server is closed.
func (s *Server) janitor() {
	defer s.wg.Done()

	period := s.config.SessionIdleTimeout / 2
	if period < time.Second {
		period = time.Second
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.sessions.expire(); n > 0 && s.log != nil {
				s.log.Infof("expired %d idle sessions", n)
			}
		case <-s.closeCh:
			return
		}
	}
}

// TLSConfig returns the ACME-backed TLS configuration, or nil when no TLS
// domains are configured.
func (s *Server) TLSConfig() *tls.Config {
	if len(s.config.TLSDomains) == 0 {
		return nil
	}
	m := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(s.config.TLSDomains...),
	}
	if s.config.TLSCacheDir != "" {
		m.Cache = autocert.DirCache(s.config.TLSCacheDir)
	}
	return m.TLSConfig()
}

// ListenAndServe listens on config.Addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully and closes all sessions.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	select {
	case <-s.closeCh:
		ln.Close()
		return ErrServerClosed
	default:
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	scheme := "http"
	if cfg := s.TLSConfig(); cfg != nil {
		srv.TLSConfig = cfg
		ln = tls.NewListener(ln, cfg)
		scheme = "https"
	}

	errCh := make(chan error, 1)
	go func() {
		if s.log != nil {
			s.log.Infof("listening on %s://%s", scheme, ln.Addr())
		}
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if serveErr := <-errCh; !errors.Is(serveErr, http.ErrServerClosed) && err == nil {
		err = serveErr
	}
	s.Close()
	return err
}

// Close stops the janitor, ends open websockets and closes every session.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.closeCh)
		s.wg.Wait()
		s.sessions.closeAll()
		if err := s.blank.Close(); err != nil && s.log != nil {
			s.log.Warnf("close page renderer app: %v", err)
		}
	})
}

// logWriter feeds the access log into a leveled logger.
type logWriter struct {
	log logging.LeveledLogger
}

func (w logWriter) Write(p []byte) (int, error) {
	if w.log != nil {
		w.log.Debug(strings.TrimSpace(string(p)))
	}
	return len(p), nil
}

// recoveryLogger reports recovered panics.
type recoveryLogger struct {
	log logging.LeveledLogger
}

func (l recoveryLogger) Println(v ...interface{}) {
	if l.log != nil {
		l.log.Error(fmt.Sprint(v...))
	}
}
