package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// MetricsServer exposes /metrics. An empty address disables it.
type MetricsServer struct {
	addr   string
	server *http.Server
}

func NewMetricsServer(addr string, gatherer prometheus.Gatherer) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &MetricsServer{
		addr: addr,
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func (s *MetricsServer) getLogEntry() *log.Entry {
	return log.WithField("object", "MetricsServer")
}

func (s *MetricsServer) Start(context.Context) error {
	if s.addr == "" {
		return nil
	}
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.getLogEntry().WithField("error", err.Error()).Error("metrics server failed")
		}
	}()
	s.getLogEntry().WithField("addr", s.addr).Info("serving metrics")
	return nil
}

func (s *MetricsServer) Stop(ctx context.Context) error {
	if s.addr == "" {
		return nil
	}
	return s.server.Shutdown(ctx)
}
