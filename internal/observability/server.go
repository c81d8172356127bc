// Package observability provides Prometheus metrics and an HTTP endpoint
// for exposing them, grounded on
// holomush-holomush/internal/observability/server.go.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the counters a running engine updates as it loads rules
// and drains work.
type Metrics struct {
	RulesLoaded    prometheus.Counter
	ParseFailures  prometheus.Counter
	RuleExecutions *prometheus.CounterVec
	DrainsRun      prometheus.Counter
}

// NewMetrics creates and registers the tinytalk metrics against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RulesLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tinytalk_rules_loaded_total",
			Help: "Total number of rules successfully loaded into the engine.",
		}),
		ParseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tinytalk_parse_failures_total",
			Help: "Total number of rule source strings that failed to parse.",
		}),
		RuleExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tinytalk_rule_executions_total",
			Help: "Total number of times a rule's consequents were applied, by rule id.",
		}, []string{"rule_id"}),
		DrainsRun: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tinytalk_drains_run_total",
			Help: "Total number of ExecuteLoop drains that performed at least one rule application.",
		}),
	}

	reg.MustRegister(m.RulesLoaded)
	reg.MustRegister(m.ParseFailures)
	reg.MustRegister(m.RuleExecutions)
	reg.MustRegister(m.DrainsRun)

	return m
}

// Server exposes /metrics over HTTP using an isolated registry, so the
// process-wide default registry stays untouched.
type Server struct {
	addr       string
	listener   net.Listener
	httpServer *http.Server
	registry   *prometheus.Registry
	metrics    *Metrics
	running    atomic.Bool
}

// NewServer creates an observability server listening on addr once Start
// is called.
func NewServer(addr string) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metrics := NewMetrics(registry)

	return &Server{
		addr:     addr,
		registry: registry,
		metrics:  metrics,
	}
}

// Metrics returns the counters for the engine to record against.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start begins serving /metrics in a background goroutine.
func (s *Server) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("observability server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if serveErr := s.httpServer.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("observability server error", "error", serveErr)
		}
	}()

	slog.Info("observability server started", "addr", listener.Addr().String())
	return nil
}

// Stop gracefully shuts down the observability server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.Load() {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown observability server: %w", err)
		}
	}

	s.running.Store(false)
	return nil
}

// Addr returns the address the server is listening on, or "" if not running.
func (s *Server) Addr() string {
	if s.listener != nil && s.running.Load() {
		return s.listener.Addr().String()
	}
	return ""
}
