// Package api - Prometheus metrics for the dev-api endpoints
package api

import (
	"strconv"
	"time"

	"github.com/alexbotov/gametester/internal/domain"
	"github.com/alexbotov/gametester/pkg/gametester"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the request metrics of the sandbox
type Metrics struct {
	// RequestsTotal counts calls by operation and response code
	RequestsTotal *prometheus.CounterVec
	// RequestDuration tracks handling latency by operation
	RequestDuration *prometheus.HistogramVec
	// EventSubscribers is the number of open websocket event feeds
	EventSubscribers prometheus.Gauge
}

// NewMetrics creates the metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gametester_requests_total",
			Help: "Total number of dev-api requests",
		}, []string{"operation", "code"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gametester_request_duration_seconds",
			Help:    "Dev-api request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		EventSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gametester_event_subscribers",
			Help: "Number of connected event feed websockets",
		}),
	}
}

// Record counts a finished request
func (m *Metrics) Record(op domain.EventType, code gametester.ResponseCode, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(string(op), strconv.Itoa(int(code))).Inc()
	m.RequestDuration.WithLabelValues(string(op)).Observe(duration.Seconds())
}
