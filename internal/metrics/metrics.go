// Package metrics exposes prometheus collectors for solver runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/chandu8542/otkpp/internal/solver"
)

// Metrics holds the collectors recorded by the solver service.
type Metrics struct {
	// RunsTotal counts finished runs by algorithm and terminal status.
	RunsTotal *prometheus.CounterVec
	// RunIterations observes the iteration count of finished runs.
	RunIterations prometheus.Histogram
	// FuncEvals counts objective function evaluations across all runs.
	FuncEvals prometheus.Counter
	// ActiveRuns tracks the number of runs currently iterating.
	ActiveRuns prometheus.Gauge
}

// New registers the solver collectors with the given registerer. Passing
// nil registers with the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "otkpp",
			Name:      "solver_runs_total",
			Help:      "Finished solver runs by algorithm and terminal status.",
		}, []string{"algorithm", "status"}),
		RunIterations: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "otkpp",
			Name:      "solver_run_iterations",
			Help:      "Iteration count of finished solver runs.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		FuncEvals: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "otkpp",
			Name:      "solver_function_evaluations_total",
			Help:      "Objective function evaluations across all runs.",
		}),
		ActiveRuns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "otkpp",
			Name:      "solver_active_runs",
			Help:      "Solver runs currently iterating.",
		}),
	}
}

// RunStarted records the beginning of a run.
func (m *Metrics) RunStarted() {
	m.ActiveRuns.Inc()
}

// RunFinished records a terminal run outcome.
func (m *Metrics) RunFinished(algorithm string, status solver.IterationStatus, nIter, nFuncEval uint) {
	m.ActiveRuns.Dec()
	m.RunsTotal.WithLabelValues(algorithm, status.String()).Inc()
	m.RunIterations.Observe(float64(nIter))
	m.FuncEvals.Add(float64(nFuncEval))
}
