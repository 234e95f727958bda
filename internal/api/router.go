// Package api - Router setup
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dev-api path prefixes. Calls under SandboxPrefix are recorded as sandbox events.
const (
	APIPrefix     = "/dev-api/v1"
	SandboxPrefix = APIPrefix + "/sandbox"
)

// SetupRouter creates and configures the HTTP router. gatherer serves /metrics.
func (h *Handler) SetupRouter(gatherer prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(NotFoundHandler)

	// Apply global middleware
	r.Use(RecoveryMiddleware(h.logger))
	r.Use(RequestIDMiddleware)
	r.Use(CORSMiddleware)
	r.Use(LoggingMiddleware(h.logger))

	// Public routes
	r.HandleFunc("/", h.ServerInfo).Methods(http.MethodGet)
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})).Methods(http.MethodGet)

	// Dev API
	for _, api := range []struct {
		prefix  string
		sandbox bool
	}{
		{SandboxPrefix, true},
		{APIPrefix, false},
	} {
		r.HandleFunc(api.prefix+"/auth", h.Auth(api.sandbox)).Methods(http.MethodPost, http.MethodOptions)
		r.HandleFunc(api.prefix, h.Call(api.sandbox)).Methods(http.MethodPost, http.MethodOptions)
		r.HandleFunc(api.prefix+"/tests/{testId}/finish", h.FinishTest(api.sandbox)).Methods(http.MethodPost, http.MethodOptions)
	}

	// Live event feed
	r.HandleFunc("/ws/events", h.HandleEvents).Methods(http.MethodGet)

	return r
}
