package ik

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels for the solves counter.
const (
	resultConverged    = "converged"
	resultNotConverged = "not_converged"
	resultSolverError  = "solver_error"
	resultChainError   = "chain_error"
)

// Metrics counts solver outcomes.
type Metrics struct {
	solves     *prometheus.CounterVec
	iterations prometheus.Histogram
}

// NewMetrics registers the solver collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Labels: "converged", "not_converged", "solver_error", "chain_error"
		solves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "linkage_ik_solves_total",
			Help: "Total IK solves by result",
		}, []string{"result"}),
		iterations: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "linkage_ik_iterations",
			Help:    "Joint updates per IK solve",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100, 200},
		}),
	}
}

func (m *Metrics) observe(result string, iterations int) {
	if m == nil {
		return
	}
	m.solves.WithLabelValues(result).Inc()
	m.iterations.Observe(float64(iterations))
}
