// Package observability serves the Prometheus scrape endpoint on its own
// listener, kept off the service port so scrapes never contend with the
// streaming channels.
package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/BillStark001/meetscript/internal/observability/logging"
)

// Server exposes /metrics plus the same liveness/readiness probes the API
// router serves, so either port satisfies a container health check.
type Server struct {
	server *http.Server
	log    zerolog.Logger
}

// NewServer creates the metrics server on addr.
func NewServer(addr string) *Server {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
			// Scrapes are small; keep slow readers from pinning connections.
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  90 * time.Second,
		},
		log: logging.WithComponent("observability"),
	}
}

// Start serves in a goroutine until Shutdown.
func (s *Server) Start() {
	go func() {
		s.log.Info().Str("addr", s.server.Addr).Msg("Metrics server started")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("Metrics serve failed")
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Metrics server stopping")
	return s.server.Shutdown(ctx)
}
