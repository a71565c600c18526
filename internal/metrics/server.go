package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/magabrotheeeer/club-ledger/internal/lib/sl"
)

// Server отдаёт /metrics фоновых процессов, у которых нет своего HTTP API.
type Server struct {
	srv *http.Server
}

// NewServer создаёт сервер на addr. Пустой addr отключает сервер.
func NewServer(addr string, g prometheus.Gatherer) *Server {
	if addr == "" {
		return &Server{}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Run слушает до отмены ctx.
func (s *Server) Run(ctx context.Context, log *slog.Logger) {
	if s == nil || s.srv == nil {
		return
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
	}()
	log.Info("metrics server starting", slog.String("address", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics server stopped", sl.Err(err))
	}
}
