package router

import (
	"net/http"

	"loyalty-quote/internal/handler"
	"loyalty-quote/internal/middleware"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// New creates a new HTTP router with all routes and middleware configured.
// A nil gatherer leaves /metrics unregistered.
func New(
	quoteHandler *handler.QuoteHandler,
	gatherer prometheus.Gatherer,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Liveness and readiness carry no dependency checks
	status := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
			logger.Warn().Err(err).Str("path", r.URL.Path).Msg("failed to write status")
		}
	}
	mux.HandleFunc("/health", status)
	mux.HandleFunc("/ready", status)

	mux.HandleFunc("/v1/points/quote", quoteHandler.Create)

	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	// Apply middleware in order: Recovery -> RequestID -> Logging -> CORS
	var h http.Handler = mux
	h = middleware.CORS(h)
	h = middleware.Logging(logger)(h)
	h = middleware.RequestID(h)
	h = middleware.Recovery(logger)(h)

	return h
}
