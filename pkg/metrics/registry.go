package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
	enabled  bool
)

// InitRegistry creates and installs the process-wide Prometheus registry.
// Collectors constructed by pkg/metrics/prometheus must call GetRegistry
// after this to register against it. Calling InitRegistry(false) leaves
// IsEnabled false and GetRegistry nil, so prometheus collector
// constructors return nil (their documented zero-overhead disabled mode).
func InitRegistry(on bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = on
	if !on {
		registry = nil
		return
	}
	registry = prometheus.NewRegistry()
}

// IsEnabled reports whether metrics collection is enabled.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// GetRegistry returns the process-wide registry, or nil if metrics are
// disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// Server exposes the registry's collected metrics over HTTP at /metrics.
type Server struct {
	httpServer *http.Server
}

// StartServer starts the metrics HTTP server on the given port. It returns
// an error immediately if metrics are disabled; callers should only call
// this after InitRegistry(true).
func StartServer(port int) (*Server, error) {
	reg := GetRegistry()
	if reg == nil {
		return nil, errors.New("metrics: cannot start server, registry not initialized (call InitRegistry(true) first)")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &Server{httpServer: &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}}

	ln, err := net.Listen("tcp", srv.httpServer.Addr)
	if err != nil {
		return nil, fmt.Errorf("metrics: listen on %s: %w", srv.httpServer.Addr, err)
	}

	go func() {
		_ = srv.httpServer.Serve(ln)
	}()

	return srv, nil
}

// Stop gracefully shuts the metrics server down.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
