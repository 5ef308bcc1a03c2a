// Package metrics exposes videoroom counters and gauges to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/backkem/videoroom/pkg/call"
	"github.com/backkem/videoroom/pkg/rtc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "videoroom"

// Config configures a Recorder.
type Config struct {
	// Namespace prefixes metric names. Defaults to DefaultNamespace.
	Namespace string

	// Registry receives the collectors. If nil, a new registry is created.
	Registry *prometheus.Registry
}

// Recorder holds the collectors. It implements call.Observer.
type Recorder struct {
	registry *prometheus.Registry
	started  time.Time

	sessionsActive   prometheus.Gauge
	sessionsTotal    prometheus.Counter
	initResults      *prometheus.CounterVec
	remoteEvents     *prometheus.CounterVec
	subscribeFailed  *prometheus.CounterVec
	participants     prometheus.Gauge
	webSessions      prometheus.Gauge
	wsConnections    prometheus.Gauge
	webSessionsTotal prometheus.Counter
}

var _ call.Observer = (*Recorder)(nil)

// New creates a Recorder and registers its collectors.
func New(config Config) *Recorder {
	ns := config.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	reg := config.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	r := &Recorder{
		registry: reg,
		started:  time.Now(),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "call_sessions_live_count",
			Help:      "Number of call sessions currently running.",
		}),
		sessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "call_sessions_total",
			Help:      "Total number of call sessions started.",
		}),
		initResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "call_init_total",
			Help:      "Session initialization outcomes by step.",
		}, []string{"step", "result"}),
		remoteEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "remote_events_total",
			Help:      "SDK events handled, by event name.",
		}, []string{"event"}),
		subscribeFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "subscribe_failures_total",
			Help:      "Failed subscriptions to remote media, by kind.",
		}, []string{"kind"}),
		participants: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "remote_participants_live_count",
			Help:      "Remote participants shown across all sessions.",
		}),
		webSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "web_sessions_live_count",
			Help:      "Number of browser sessions held in memory.",
		}),
		webSessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "web_sessions_total",
			Help:      "Total number of browser sessions created.",
		}),
		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "websocket_connections_live_count",
			Help:      "Number of open live-update websockets.",
		}),
	}

	reg.MustRegister(
		r.sessionsActive,
		r.sessionsTotal,
		r.initResults,
		r.remoteEvents,
		r.subscribeFailed,
		r.participants,
		r.webSessions,
		r.webSessionsTotal,
		r.wsConnections,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "uptime_seconds",
			Help:      "Number of seconds since the server started.",
		}, func() float64 { return time.Since(r.started).Seconds() }),
	)
	return r
}

// Registry returns the registry holding the collectors.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// SessionStarted implements call.Observer.
func (r *Recorder) SessionStarted() {
	r.sessionsActive.Inc()
	r.sessionsTotal.Inc()
}

// SessionEnded implements call.Observer.
func (r *Recorder) SessionEnded() {
	r.sessionsActive.Dec()
}

// InitFinished implements call.Observer.
func (r *Recorder) InitFinished(step call.Step, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.initResults.WithLabelValues(step.String(), result).Inc()
}

// RemoteEvent implements call.Observer.
func (r *Recorder) RemoteEvent(name string) {
	r.remoteEvents.WithLabelValues(name).Inc()
}

// SubscribeFailed implements call.Observer.
func (r *Recorder) SubscribeFailed(kind rtc.MediaKind) {
	r.subscribeFailed.WithLabelValues(kind.String()).Inc()
}

// ParticipantDelta implements call.Observer.
func (r *Recorder) ParticipantDelta(delta int) {
	r.participants.Add(float64(delta))
}

// WebSessionOpened counts a new browser session.
func (r *Recorder) WebSessionOpened() {
	r.webSessions.Inc()
	r.webSessionsTotal.Inc()
}

// WebSessionClosed counts an expired or removed browser session.
func (r *Recorder) WebSessionClosed() {
	r.webSessions.Dec()
}

// WebsocketOpened counts a new live-update connection.
func (r *Recorder) WebsocketOpened() { r.wsConnections.Inc() }

// WebsocketClosed counts a closed live-update connection.
func (r *Recorder) WebsocketClosed() { r.wsConnections.Dec() }
