// Package integrators solves the decay equations numerically. It exists to
// cross-check the analytic solution and is far slower than it.
package integrators

import (
	"errors"
	"math"

	"github.com/san-kum/raddecay/internal/chain"
	"github.com/san-kum/raddecay/internal/nucdata"
)

var (
	ErrStepRejected = errors.New("integrators: local error above tolerance")
	ErrTooManySteps = errors.New("integrators: step limit reached")
	ErrInvalidState = errors.New("integrators: invalid state (NaN or Inf detected)")
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type System interface {
	Derive(x State, t float64) State
}

type Integrator interface {
	Step(sys System, x State, t, dt float64) State
}

type edge struct {
	from, to int
	rate     float64
}

// DecaySystem is dN/dt = −λN + Σ fλN over the nuclides of one chain.
type DecaySystem struct {
	ids     []nucdata.ID
	index   map[nucdata.ID]int
	lambdas []float64
	edges   []edge
}

// NewDecaySystem links the nuclides of ch through their branches in p.
func NewDecaySystem(p nucdata.Provider, ch *chain.Chain) (*DecaySystem, error) {
	ids := ch.Targets()
	sys := &DecaySystem{
		ids:     ids,
		index:   make(map[nucdata.ID]int, len(ids)),
		lambdas: make([]float64, len(ids)),
	}
	for i, id := range ids {
		sys.index[id] = i
	}
	for i, id := range ids {
		n, err := p.Lookup(id)
		if err != nil {
			return nil, err
		}
		sys.lambdas[i] = n.Lambda()
		for _, b := range n.Branches() {
			j, ok := sys.index[b.ID]
			if !ok || b.Fraction == 0 {
				continue
			}
			sys.edges = append(sys.edges, edge{from: i, to: j, rate: b.Fraction * n.Lambda()})
		}
	}
	return sys, nil
}

func (s *DecaySystem) Nuclides() []nucdata.ID {
	out := make([]nucdata.ID, len(s.ids))
	copy(out, s.ids)
	return out
}

func (s *DecaySystem) Dim() int { return len(s.ids) }

// Initial places q of root in an otherwise empty state.
func (s *DecaySystem) Initial(root nucdata.ID, q float64) State {
	x := make(State, len(s.ids))
	if i, ok := s.index[root]; ok {
		x[i] = q
	}
	return x
}

// MaxLambda bounds the step size explicit methods can take.
func (s *DecaySystem) MaxLambda() float64 {
	m := 0.0
	for _, l := range s.lambdas {
		m = math.Max(m, l)
	}
	return m
}

func (s *DecaySystem) Derive(x State, t float64) State {
	dx := make(State, len(x))
	for i, l := range s.lambdas {
		dx[i] = -l * x[i]
	}
	for _, e := range s.edges {
		dx[e.to] += e.rate * x[e.from]
	}
	return dx
}

// Quantities maps a state back to nuclide IDs.
func (s *DecaySystem) Quantities(x State) map[nucdata.ID]float64 {
	out := make(map[nucdata.ID]float64, len(x))
	for i, id := range s.ids {
		out[id] = x[i]
	}
	return out
}

// Integrate advances x from t0 to t1 in fixed steps of at most dt.
func Integrate(integ Integrator, sys System, x State, t0, t1, dt float64) (State, error) {
	if t1 <= t0 {
		return x.Clone(), nil
	}
	steps := int(math.Ceil((t1 - t0) / dt))
	h := (t1 - t0) / float64(steps)
	for i := 0; i < steps; i++ {
		x = integ.Step(sys, x, t0+float64(i)*h, h)
		if !x.IsValid() {
			return nil, ErrInvalidState
		}
	}
	return x, nil
}
