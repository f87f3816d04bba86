package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dRec/rpc/common"
	"github.com/ValentinKolb/dRec/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
)

// serverMetrics holds the metrics of one server instance. A private set is used
// so that several servers (e.g. in tests) do not share counters.
type serverMetrics struct {
	set            *metrics.Set
	sessions       *metrics.Counter
	activeSessions atomic.Int64
}

func newServerMetrics(stats func() transport.Stats) *serverMetrics {
	m := &serverMetrics{set: metrics.NewSet()}
	m.sessions = m.set.NewCounter("drec_sessions_total")
	m.set.NewGauge("drec_sessions_active", func() float64 {
		return float64(m.activeSessions.Load())
	})

	if stats != nil {
		m.set.NewGauge("drec_pool_workers", func() float64 { return float64(stats().Workers) })
		m.set.NewGauge("drec_pool_busy", func() float64 { return float64(stats().Busy) })
		m.set.NewGauge("drec_pool_queued", func() float64 { return float64(stats().Queued) })
		m.set.NewGauge("drec_pool_saturations_total", func() float64 { return float64(stats().Saturations) })
		m.set.NewGauge("drec_pool_caller_runs_total", func() float64 { return float64(stats().CallerRuns) })
		m.set.NewGauge("drec_connections_accepted_total", func() float64 { return float64(stats().Accepted) })
	}
	return m
}

func (m *serverMetrics) sessionOpened() {
	m.sessions.Inc()
	m.activeSessions.Add(1)
}

func (m *serverMetrics) sessionClosed() {
	m.activeSessions.Add(-1)
}

// observe records one handled request
func (m *serverMetrics) observe(action common.Action, resp *common.Response, start time.Time) {
	label := action.String()
	if !action.Known() {
		// keep the label set bounded
		label = "UNKNOWN"
	}

	m.set.GetOrCreateCounter(fmt.Sprintf(`drec_requests_total{action=%q,status=%q}`, label, resp.Status)).Inc()
	m.set.GetOrCreateHistogram(fmt.Sprintf(`drec_request_duration_seconds{action=%q}`, label)).UpdateDuration(start)
	if resp.Status == common.StatusError {
		m.countError(resp.Code)
	}
}

// countError records an error response, including those written outside of dispatch (TIMEOUT, SERVER_ERROR)
func (m *serverMetrics) countError(code common.ErrorCode) {
	m.set.GetOrCreateCounter(fmt.Sprintf(`drec_errors_total{code=%q}`, code)).Inc()
}

// WritePrometheus writes all server metrics in the Prometheus text format
func (m *serverMetrics) WritePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
}

// serveMetrics exposes /metrics on the given endpoint until ctx is cancelled
func (m *serverMetrics) serveMetrics(ctx context.Context, endpoint string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		m.WritePrometheus(w)
		metrics.WriteProcessMetrics(w)
	})

	srv := &http.Server{
		Addr:              endpoint,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	Logger.Infof("Serving metrics on http://%s/metrics", endpoint)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		Logger.Errorf("Metrics endpoint failed: %v", err)
	}
}

// logMetrics periodically logs a one line summary until ctx is cancelled
func (m *serverMetrics) logMetrics(ctx context.Context, interval time.Duration, stats func() transport.Stats) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := stats()
			Logger.Infof("sessions: %d active, %d total | pool: %d/%d busy, %d queued, %d caller runs",
				m.activeSessions.Load(), m.sessions.Get(), s.Busy, s.Workers, s.Queued, s.CallerRuns)
		}
	}
}
