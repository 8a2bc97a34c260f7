package integrators

import (
	"math"
)

// Dormand-Prince 5(4) tableau. The last row of dpA is also the fifth-order
// weights, so the seventh stage is evaluated at the new point.
var (
	dpC = [7]float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1}
	dpA = [7][6]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	}
	// fifth-order minus embedded fourth-order weights
	dpE = [7]float64{
		35.0/384 - 5179.0/57600,
		0,
		500.0/1113 - 7571.0/16695,
		125.0/192 - 393.0/640,
		-2187.0/6784 + 92097.0/339200,
		11.0/84 - 187.0/2100,
		-1.0 / 40,
	}
)

const DefaultMaxSteps = 1_000_000

type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64
	maxSteps int
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
		maxSteps: DefaultMaxSteps,
	}
}

// Stats reports the work done by Solve.
type Stats struct {
	Accepted int
	Rejected int
}

// Step takes one uncontrolled step.
func (r *RK45) Step(sys System, x State, t, dt float64) State {
	xNew, _ := r.stages(sys, x, t, dt)
	return xNew
}

// StepAdaptive takes one step and proposes the next step size. When the
// local error exceeds tol the step is returned with ErrStepRejected and the
// caller should retry with the proposed size.
func (r *RK45) StepAdaptive(sys System, x State, t, dt, tol float64) (State, float64, error) {
	xNew, errEst := r.stages(sys, x, t, dt)

	norm := 0.0
	for _, v := range x {
		norm = math.Max(norm, math.Abs(v))
	}
	floor := 1e-6 * norm

	ratio := 0.0
	for i := range x {
		sc := tol * math.Max(math.Max(math.Abs(x[i]), math.Abs(xNew[i])), floor)
		if sc == 0 {
			continue
		}
		ratio = math.Max(ratio, math.Abs(errEst[i])/sc)
	}

	if ratio > 1 {
		return xNew, dt * math.Max(r.minScale, r.safety*math.Pow(ratio, -0.25)), ErrStepRejected
	}
	if ratio == 0 {
		return xNew, dt * r.maxScale, nil
	}
	return xNew, dt * math.Min(r.maxScale, r.safety*math.Pow(ratio, -0.2)), nil
}

// Solve integrates from t0 to t1 with step control, starting from dt.
func (r *RK45) Solve(sys System, x State, t0, t1, dt, tol float64) (State, Stats, error) {
	var st Stats
	x = x.Clone()
	t := t0
	if dt <= 0 {
		dt = (t1 - t0) / 100
	}
	for t < t1 {
		if st.Accepted+st.Rejected >= r.maxSteps {
			return nil, st, ErrTooManySteps
		}
		h := dt
		last := t+h >= t1
		if last {
			h = t1 - t
		}
		xNew, next, err := r.StepAdaptive(sys, x, t, h, tol)
		if err != nil {
			st.Rejected++
			dt = next
			continue
		}
		if !xNew.IsValid() {
			return nil, st, ErrInvalidState
		}
		st.Accepted++
		x = xNew
		if last {
			break
		}
		t += h
		dt = next
	}
	return x, st, nil
}

// stages returns the fifth-order solution and the embedded error estimate.
func (r *RK45) stages(sys System, x State, t, dt float64) (State, State) {
	n := len(x)
	var k [7]State
	k[0] = sys.Derive(x, t)

	tmp := make(State, n)
	for s := 1; s < 7; s++ {
		for i := 0; i < n; i++ {
			acc := 0.0
			for j := 0; j < s; j++ {
				acc += dpA[s][j] * k[j][i]
			}
			tmp[i] = x[i] + dt*acc
		}
		k[s] = sys.Derive(tmp, t+dpC[s]*dt)
	}

	// tmp now holds the fifth-order solution.
	xNew := tmp.Clone()
	errEst := make(State, n)
	for i := 0; i < n; i++ {
		e := 0.0
		for s := 0; s < 7; s++ {
			e += dpE[s] * k[s][i]
		}
		errEst[i] = dt * e
	}
	return xNew, errEst
}
