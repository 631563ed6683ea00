// Package metrics holds the prometheus collectors and the HTTP surface
// that exposes them.
package metrics

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Ingestion metrics
	MessagesStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ducksum_messages_stored_total",
			Help: "Total chat messages appended to the in-memory store",
		},
	)

	ChatsTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ducksum_chats_tracked",
			Help: "Chats with a live message buffer",
		},
	)

	// Command metrics
	CommandsHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ducksum_commands_total",
			Help: "Commands handled by name",
		},
		[]string{"command"},
	)

	Summaries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ducksum_summaries_total",
			Help: "Summarize runs by outcome",
		},
		[]string{"outcome"}, // "ok", "error", "empty", "bad_input"
	)

	// Collaborator metrics
	GroqLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ducksum_groq_latency_seconds",
			Help:    "Groq chat completion round-trip latency",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	PollErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ducksum_poll_errors_total",
			Help: "getUpdates failures by error class",
		},
		[]string{"class"},
	)
)

// Handler returns the router serving /metrics and /healthz.
func Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}
