// Package metrics exposes reconciliation counters to Prometheus. A Metrics
// value satisfies the observer hooks of the reconcile, ledger and schedule
// packages, so wiring it in is a matter of passing it to their options.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"igfollow/pkg/ledger"
	"igfollow/pkg/logger"
	"igfollow/pkg/reconcile"
)

const namespace = "igfollow"

// Metrics owns a private registry and the collectors registered on it
type Metrics struct {
	registry *prometheus.Registry

	candidates  *prometheus.CounterVec
	budget      *prometheus.GaugeVec
	cycles      *prometheus.CounterVec
	lastCycle   prometheus.Gauge
	storeErrors *prometheus.CounterVec

	now func() time.Time
}

// New creates Metrics on a fresh registry with the Go and process
// collectors attached
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		candidates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "Candidates evaluated, by pass kind and outcome",
		}, []string{"kind", "outcome"}),
		budget: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pass_budget",
			Help:      "Action budget computed for the latest pass of each kind",
		}, []string{"kind"}),
		cycles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Finished cycles by status",
		}, []string{"status"}),
		lastCycle: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time the latest cycle finished",
		}),
		storeErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Degraded backing store operations",
		}, []string{"op"}),
		now: time.Now,
	}
}

// Budget records the budget of a pass
func (m *Metrics) Budget(kind ledger.Kind, budget int) {
	m.budget.WithLabelValues(string(kind)).Set(float64(budget))
}

// Candidate counts one evaluated candidate
func (m *Metrics) Candidate(kind ledger.Kind, outcome reconcile.Outcome) {
	m.candidates.WithLabelValues(string(kind), string(outcome)).Inc()
}

// CycleFinished counts a finished cycle
func (m *Metrics) CycleFinished(status reconcile.Status) {
	m.cycles.WithLabelValues(string(status)).Inc()
	m.lastCycle.Set(float64(m.now().Unix()))
}

// StoreError counts a swallowed store failure
func (m *Metrics) StoreError(op string) {
	m.storeErrors.WithLabelValues(op).Inc()
}

// Registry returns the registry the collectors live on
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done
func (m *Metrics) Serve(ctx context.Context, addr string, log logger.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.LogComponentStart(log, "metrics", map[string]interface{}{"address": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		logger.LogComponentStop(log, "metrics", "shutdown")
		return err
	}
}
