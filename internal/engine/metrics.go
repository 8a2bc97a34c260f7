package engine

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/san-kum/raddecay/internal/chain"
)

const (
	metricsNamespace = "raddecay"
	metricsSubsystem = "engine"
)

// Metrics counts engine work. A nil *Metrics records nothing.
type Metrics struct {
	reg prometheus.Registerer

	// PathsSolved counts solved decay paths. Labels: mode (fast, precise)
	PathsSolved *prometheus.CounterVec

	// SolvedLookups counts solved-chain cache lookups. Labels: result (hit, miss)
	SolvedLookups *prometheus.CounterVec

	// Evaluations counts per-source chain evaluations.
	Evaluations prometheus.Counter

	// Errors counts failed chain solves.
	Errors prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		PathsSolved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "paths_solved_total",
			Help:      "Decay paths solved, by evaluation mode",
		}, []string{"mode"}),
		SolvedLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "solved_cache_lookups_total",
			Help:      "Solved-chain cache lookups, by result",
		}, []string{"result"}),
		Evaluations: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "evaluations_total",
			Help:      "Chain evaluations, one per source nuclide and time",
		}),
		Errors: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "solve_errors_total",
			Help:      "Chains that failed to build or solve",
		}),
	}
}

// watchChainCache exports the chain cache's own hit and miss counts. A cache
// already exported on the same registerer is left as is.
func (m *Metrics) watchChainCache(c *chain.Cache) {
	if m == nil || m.reg == nil {
		return
	}
	for _, result := range []string{"hit", "miss"} {
		cf := prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Subsystem:   metricsSubsystem,
			Name:        "chain_cache_lookups_total",
			Help:        "Chain cache lookups, by result",
			ConstLabels: prometheus.Labels{"result": result},
		}, func() float64 {
			hits, misses := c.Stats()
			if result == "hit" {
				return float64(hits)
			}
			return float64(misses)
		})
		var are prometheus.AlreadyRegisteredError
		if err := m.reg.Register(cf); err != nil && !errors.As(err, &are) {
			panic(err)
		}
	}
}

func (m *Metrics) pathSolved(precise bool) {
	if m == nil {
		return
	}
	mode := "fast"
	if precise {
		mode = "precise"
	}
	m.PathsSolved.WithLabelValues(mode).Inc()
}

func (m *Metrics) lookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.SolvedLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) evaluated(n int) {
	if m == nil {
		return
	}
	m.Evaluations.Add(float64(n))
}

func (m *Metrics) failed() {
	if m == nil {
		return
	}
	m.Errors.Inc()
}
