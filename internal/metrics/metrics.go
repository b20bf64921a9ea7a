// Package metrics defines the Prometheus metrics branchdesk exposes about
// its API traffic and SOS polling.
//
// Metrics are only served when BRANCHDESK_METRICS_ADDR is set; they are
// collected either way.
package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "branchdesk"

// Metrics groups every collector. It implements client.Observer.
type Metrics struct {
	// RequestsTotal counts gateway requests.
	// Labels: method, route (path with ids collapsed), code ("ok" or the error code).
	RequestsTotal *prometheus.CounterVec
	// RequestDuration measures gateway round trips by method and route.
	RequestDuration *prometheus.HistogramVec
	// AuthFailuresTotal counts 401 responses that ended a session.
	AuthFailuresTotal prometheus.Counter
	// SOSPollsTotal counts alert polls by result ("ok" or "error").
	SOSPollsTotal *prometheus.CounterVec
	// SOSActive is the pending alert count from the latest successful poll.
	SOSActive prometheus.Gauge
}

// NewMetrics creates and registers all collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests, by method, route and outcome.",
			},
			[]string{"method", "route", "code"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "Duration of API requests.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AuthFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Total number of 401 responses handled by ending the session.",
		}),
		SOSPollsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sos_polls_total",
				Help:      "Total number of SOS polls, by result.",
			},
			[]string{"result"},
		),
		SOSActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sos_active",
			Help:      "Number of pending SOS alerts seen by the last successful poll.",
		}),
	}
	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.AuthFailuresTotal,
		m.SOSPollsTotal,
		m.SOSActive,
	)
	return m
}

// ObserveRequest implements client.Observer.
func (m *Metrics) ObserveRequest(method, path string, _ int, code string, elapsed time.Duration) {
	if code == "" {
		code = "ok"
	}
	r := Route(path)
	m.RequestsTotal.WithLabelValues(method, r, code).Inc()
	m.RequestDuration.WithLabelValues(method, r).Observe(elapsed.Seconds())
}

// ObservePoll records one SOS poll. active is ignored when err is non-nil.
func (m *Metrics) ObservePoll(active int, err error) {
	if err != nil {
		m.SOSPollsTotal.WithLabelValues("error").Inc()
		return
	}
	m.SOSPollsTotal.WithLabelValues("ok").Inc()
	m.SOSActive.Set(float64(active))
}

// AuthFailure records a session ended by a 401.
func (m *Metrics) AuthFailure() {
	m.AuthFailuresTotal.Inc()
}

// Route strips the query and collapses numeric path segments to ":id" so
// label cardinality stays bounded.
func Route(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if _, err := strconv.ParseInt(p, 10, 64); err == nil {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}
