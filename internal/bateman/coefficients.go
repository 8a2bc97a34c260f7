package bateman

import (
	"math"
	"sync"

	"github.com/san-kum/raddecay/internal/precise"
)

// fastRelTol is the relative rounding error accepted from the float64 sum.
// Early in a chain the terms are O(1) and cancel to something much smaller;
// beyond this bound Eval switches to the precise form.
const fastRelTol = 1e-12

// noiseUlps is how many units in the last place of the largest term a
// precise sum must exceed to count as non-zero.
const noiseUlps = 16

// epsilon is the float64 machine epsilon.
const epsilon = 0x1p-52

// Term is C·t^Power·e^(−Lambda·t). Power is non-zero only for repeated
// decay constants.
type Term struct {
	C      float64
	Lambda float64
	Power  int
}

// Coefficients is the solved form of one decay path. It holds no reference
// to the path and may be evaluated concurrently.
type Coefficients struct {
	branching float64
	terms     []Term
	precise   *preciseForm
	fallback  *lazyForm
}

// lazyForm builds the precise form of a fast path on first use. It is
// shared by copies of the Coefficients.
type lazyForm struct {
	once    sync.Once
	ctx     precise.Context
	lambdas []float64
	form    *preciseForm
}

func (l *lazyForm) get() *preciseForm {
	l.once.Do(func() {
		l.form = &preciseForm{ctx: l.ctx, terms: partialFractions(l.ctx, l.lambdas)}
	})
	return l.form
}

type preciseForm struct {
	ctx   precise.Context
	terms []preciseTerm
}

type preciseTerm struct {
	c      precise.Number
	lambda precise.Number
	power  int
}

// Precise reports whether the path was solved in arbitrary precision.
func (c Coefficients) Precise() bool { return c.precise != nil }

func (c Coefficients) Branching() float64 { return c.branching }

// Terms returns the float64 view of the coefficients, excluding the
// branching fraction. For precise paths this is a rounded copy; Eval does
// not use it.
func (c Coefficients) Terms() []Term {
	out := make([]Term, len(c.terms))
	copy(out, c.terms)
	return out
}

// Eval returns the amount of the path target at time t per unit of the
// path root at t = 0.
func (c Coefficients) Eval(t float64) float64 {
	if c.precise != nil {
		return c.precise.eval(t, c.branching)
	}

	sum, mag := 0.0, 0.0
	for _, term := range c.terms {
		v := term.C * math.Exp(-term.Lambda*t)
		sum += v
		mag += math.Abs(v)
	}
	if c.fallback != nil && cancelled(sum, mag, len(c.terms)) {
		return c.fallback.get().eval(t, c.branching)
	}
	return c.branching * sum
}

// cancelled reports whether the float64 sum of n terms with absolute sum mag
// may be off by more than fastRelTol. Each coefficient is a product of about
// 2n rounded ratios.
func cancelled(sum, mag float64, n int) bool {
	if mag == 0 {
		return false
	}
	errBound := float64(2*n+2) * epsilon * mag
	return math.Abs(sum)*fastRelTol < errBound
}

func (p *preciseForm) eval(t, branching float64) float64 {
	ctx := p.ctx
	tn := ctx.Float(t)
	sum := ctx.Int(0)
	mag := ctx.Int(0)
	for _, term := range p.terms {
		v := term.c.Mul(term.lambda.Mul(tn).Neg().Exp())
		if term.power > 0 {
			v = v.Mul(precise.Pow(tn, term.power, ctx))
		}
		sum = sum.Add(v)
		mag = mag.Add(v.Abs())
	}
	// What survives cancellation below the noise floor is rounding, not
	// an amount.
	if sum.Abs().Cmp(mag.Mul(ctx.Ulps(noiseUlps))) <= 0 {
		return 0
	}
	return sum.Mul(ctx.Float(branching)).Float64()
}
