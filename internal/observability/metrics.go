// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Auth event names recorded by RecordAuthEvent.
const (
	EventRegister     = "register"
	EventLogin        = "login"
	EventLogout       = "logout"
	EventAuthenticate = "authenticate"
)

// Metrics holds the MoveX application metrics.
type Metrics struct {
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
	AuthEvents    *prometheus.CounterVec
	ActiveSockets prometheus.Gauge
	PrunedTokens  prometheus.Counter
}

// NewMetrics creates the MoveX metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "movex_http_requests_total",
				Help: "HTTP requests by method, route pattern and status code",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "movex_http_request_duration_seconds",
				Help:    "HTTP request latency by method and route pattern",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AuthEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "movex_auth_events_total",
				Help: "Authentication events by account kind, event and outcome",
			},
			[]string{"kind", "event", "outcome"},
		),
		ActiveSockets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "movex_active_sockets",
			Help: "Open presence websocket connections",
		}),
		PrunedTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "movex_revocations_pruned_total",
			Help: "Expired token revocations removed by the prune worker",
		}),
	}

	reg.MustRegister(m.HTTPRequests, m.HTTPDuration, m.AuthEvents, m.ActiveSockets, m.PrunedTokens)
	return m
}

// ObserveHTTP records one finished request. A nil receiver is a no-op so
// callers can run without metrics.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordAuthEvent counts an auth event. outcome is "success" or an error code.
func (m *Metrics) RecordAuthEvent(kind, event, outcome string) {
	if m == nil {
		return
	}
	m.AuthEvents.WithLabelValues(kind, event, outcome).Inc()
}

// SocketOpened increments the active socket gauge.
func (m *Metrics) SocketOpened() {
	if m == nil {
		return
	}
	m.ActiveSockets.Inc()
}

// SocketClosed decrements the active socket gauge.
func (m *Metrics) SocketClosed() {
	if m == nil {
		return
	}
	m.ActiveSockets.Dec()
}

// RecordPruned adds n to the pruned revocation counter.
func (m *Metrics) RecordPruned(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.PrunedTokens.Add(float64(n))
}
