package monitoring

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/oneterm/internal/providers/terminal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "oneterm"

// Metrics holds all Prometheus metrics. Each instance owns its registry, so
// several can coexist in one process (tests, embedded servers).
type Metrics struct {
	Registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Session metrics
	SessionsActive  prometheus.Gauge
	SessionsSpawned prometheus.Counter
	SessionsClosed  *prometheus.CounterVec
	OutputBytes     prometheus.Counter

	// Parser metrics
	ParserEvents         *prometheus.CounterVec
	ParserDecodeWarnings prometheus.Counter

	// WebSocket metrics
	WSConnections   prometheus.Gauge
	WSMessages      *prometheus.CounterVec
	WSDroppedFrames prometheus.Counter

	// One-shot command metrics
	CommandRuns     *prometheus.CounterVec
	CommandDuration prometheus.Histogram

	startTime time.Time

	// Snapshot for the JSON health endpoint
	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current values for the JSON API.
type Snapshot struct {
	UptimeSeconds     float64 `json:"uptime_seconds"`
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	ActiveSessions    int64   `json:"active_sessions"`
	SpawnedSessions   int64   `json:"spawned_sessions"`
	ActiveConnections int64   `json:"active_connections"`
	DroppedFrames     int64   `json:"dropped_frames"`
}

// NewMetrics creates a metrics collector with its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	m := &Metrics{
		Registry:  reg,
		startTime: time.Now(),

		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		SessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of live terminal sessions",
		}),
		SessionsSpawned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_spawned_total",
			Help:      "Total number of terminal sessions spawned",
		}),
		SessionsClosed: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_closed_total",
				Help:      "Total number of terminal sessions torn down",
			},
			[]string{"reason"},
		),
		OutputBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "output_bytes_total",
			Help:      "Bytes of PTY output delivered",
		}),

		ParserEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "parser_events_total",
				Help:      "Classified events produced, by type",
			},
			[]string{"type"},
		),
		ParserDecodeWarnings: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parser_decode_warnings_total",
			Help:      "Output chunks that contained invalid UTF-8",
		}),

		WSConnections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections",
			Help:      "Number of active WebSocket connections",
		}),
		WSMessages: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ws_messages_total",
				Help:      "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
		WSDroppedFrames: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_dropped_frames_total",
			Help:      "Frames dropped because a subscriber fell behind",
		}),

		CommandRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exec_runs_total",
				Help:      "One-shot commands executed, by status",
			},
			[]string{"status"},
		),
		CommandDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "exec_duration_seconds",
			Help:      "One-shot command duration in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
	}

	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Server uptime in seconds",
	}, func() float64 { return time.Since(m.startTime).Seconds() })

	return m
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// SessionOpened implements terminal.Observer.
func (m *Metrics) SessionOpened(terminal.SessionID) {
	m.SessionsSpawned.Inc()
	m.SessionsActive.Inc()

	m.mu.Lock()
	m.snapshot.SpawnedSessions++
	m.snapshot.ActiveSessions++
	m.mu.Unlock()
}

// SessionClosed implements terminal.Observer.
func (m *Metrics) SessionClosed(_ terminal.SessionID, reason string) {
	m.SessionsClosed.WithLabelValues(reason).Inc()
	m.SessionsActive.Dec()

	m.mu.Lock()
	m.snapshot.ActiveSessions--
	m.mu.Unlock()
}

// RecordOutput counts delivered PTY bytes.
func (m *Metrics) RecordOutput(n int) {
	m.OutputBytes.Add(float64(n))
}

// RecordParserEvent counts one classified event.
func (m *Metrics) RecordParserEvent(kind string) {
	m.ParserEvents.WithLabelValues(kind).Inc()
}

// RecordDecodeWarning counts a chunk that needed lossy decoding.
func (m *Metrics) RecordDecodeWarning() {
	m.ParserDecodeWarnings.Inc()
}

// RecordWSMessage records a WebSocket message.
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// RecordDroppedFrame counts a frame a slow subscriber never received.
func (m *Metrics) RecordDroppedFrame() {
	m.WSDroppedFrames.Inc()

	m.mu.Lock()
	m.snapshot.DroppedFrames++
	m.mu.Unlock()
}

// IncWSConnections increments WebSocket connections.
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections.
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// Snapshot returns current values for the JSON API.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	s := m.snapshot
	m.mu.RUnlock()
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
