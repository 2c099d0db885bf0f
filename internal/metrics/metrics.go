package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "acto_client"

// HTTP records REST client metrics.
type HTTP struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	sessionExpired  prometheus.Counter
}

// NewHTTP creates and registers REST client metrics.
func NewHTTP(registry prometheus.Registerer) *HTTP {
	m := &HTTP{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of REST requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "REST request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		sessionExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "session_expired_total",
			Help:      "Number of unauthorized responses that cleared the stored credential.",
		}),
	}
	registry.MustRegister(m.requestsTotal, m.requestDuration, m.sessionExpired)
	return m
}

// ObserveRequest records one completed request. status 0 means a transport error.
func (m *HTTP) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.requestsTotal.WithLabelValues(method, route, code).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// SessionExpired records a cleared credential.
func (m *HTTP) SessionExpired() {
	if m == nil {
		return
	}
	m.sessionExpired.Inc()
}

// Realtime records connection manager metrics.
type Realtime struct {
	eventsTotal       *prometheus.CounterVec
	reconnectAttempts prometheus.Counter
	connectErrors     prometheus.Counter
	state             prometheus.Gauge
}

// NewRealtime creates and registers connection manager metrics.
func NewRealtime(registry prometheus.Registerer) *Realtime {
	m := &Realtime{
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "events_total",
			Help:      "Server-pushed events by name and outcome (dispatched or ignored).",
		}, []string{"event", "outcome"}),
		reconnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "reconnect_attempts_total",
			Help:      "Number of reconnection attempts after a transport drop.",
		}),
		connectErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "connect_errors_total",
			Help:      "Number of failed connection attempts.",
		}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "connection_state",
			Help:      "0 disconnected, 1 connecting, 2 connected, 3 authenticated.",
		}),
	}
	registry.MustRegister(m.eventsTotal, m.reconnectAttempts, m.connectErrors, m.state)
	return m
}

// Event records a received server event.
func (m *Realtime) Event(name string, dispatched bool) {
	if m == nil {
		return
	}
	outcome := "ignored"
	if dispatched {
		outcome = "dispatched"
	}
	m.eventsTotal.WithLabelValues(name, outcome).Inc()
}

// ReconnectAttempt records one reconnection attempt.
func (m *Realtime) ReconnectAttempt() {
	if m == nil {
		return
	}
	m.reconnectAttempts.Inc()
}

// ConnectError records one failed connection attempt.
func (m *Realtime) ConnectError() {
	if m == nil {
		return
	}
	m.connectErrors.Inc()
}

// SetState records the current connection state.
func (m *Realtime) SetState(state int) {
	if m == nil {
		return
	}
	m.state.Set(float64(state))
}
