package cli

import (
	"context"
	"edgeport/internal/core/app"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// healthStatus is served on /health.
type healthStatus struct {
	Status      string    `json:"status"`
	LastRunID   string    `json:"last_run_id,omitempty"`
	LastRunAt   time.Time `json:"last_run_at,omitempty"`
	LastFailed  int       `json:"last_failed"`
	LastError   string    `json:"last_error,omitempty"`
	WatchActive bool      `json:"watch_active"`
}

// runTracker remembers the outcome of the latest conversion for /health.
type runTracker struct {
	mu     sync.RWMutex
	status healthStatus
}

func newRunTracker() *runTracker {
	return &runTracker{status: healthStatus{Status: "starting"}}
}

func (t *runTracker) observe(report *app.Report, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.status.Status = "degraded"
		t.status.LastError = err.Error()
		return
	}
	t.status.Status = "up"
	t.status.LastError = ""
	if report != nil {
		t.status.LastRunID = report.RunID
		t.status.LastRunAt = report.StartedAt
		t.status.LastFailed = report.Totals.Failed
	}
}

func (t *runTracker) setWatching(active bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.WatchActive = active
}

func (t *runTracker) snapshot() healthStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

type ObservabilityServer struct {
	addr    string
	tracker *runTracker
	server  *http.Server
}

func NewObservabilityServer(addr string, tracker *runTracker) *ObservabilityServer {
	return &ObservabilityServer{
		addr:    addr,
		tracker: tracker,
	}
}

func (s *ObservabilityServer) handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := s.tracker.snapshot()
		body, err := sonic.Marshal(status)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if status.Status != "up" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_, _ = w.Write(body)
	})
	return mux
}

func (s *ObservabilityServer) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("observability server starting", "addr", s.addr)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("observability server failed", "error", err)
		}
	}()

	return nil
}

func (s *ObservabilityServer) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
