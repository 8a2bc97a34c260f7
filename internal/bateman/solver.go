package bateman

import (
	"math"

	"github.com/san-kum/raddecay/internal/chain"
	"github.com/san-kum/raddecay/internal/precise"
)

// DefaultThreshold is the relative gap between two decay constants below
// which a path is solved in arbitrary precision. Float64 keeps at least
// eleven significant digits above it.
const DefaultThreshold = 1e-5

type Option func(*Solver)

func WithThreshold(th float64) Option {
	return func(s *Solver) {
		if th > 0 {
			s.threshold = th
		}
	}
}

// WithPrecision sets the mantissa bits of the arbitrary-precision path.
func WithPrecision(bits uint) Option {
	return func(s *Solver) {
		if bits > 0 {
			s.ctx = precise.NewContext(bits)
		}
	}
}

// Solver is stateless apart from its policy and safe for concurrent use.
type Solver struct {
	threshold float64
	ctx       precise.Context
}

func NewSolver(opts ...Option) *Solver {
	s := &Solver{
		threshold: DefaultThreshold,
		ctx:       precise.NewContext(precise.DefaultPrec),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Solver) Threshold() float64 { return s.threshold }

// Degenerate reports whether any two decay constants are within the
// relative threshold of each other. Exactly equal constants count.
func (s *Solver) Degenerate(lambdas []float64) bool {
	for i := 0; i < len(lambdas); i++ {
		for j := i + 1; j < len(lambdas); j++ {
			if precise.RelativeGap(lambdas[i], lambdas[j]) <= s.threshold {
				return true
			}
		}
	}
	return false
}

// Solve returns the coefficients for the path's target grown from one unit
// of the path's root.
func (s *Solver) Solve(p chain.Path) Coefficients {
	lambdas := p.Lambdas()
	if s.Degenerate(lambdas) {
		return s.solvePrecise(lambdas, p.Branching())
	}
	return Coefficients{
		branching: p.Branching(),
		terms:     fastTerms(lambdas),
		fallback:  &lazyForm{ctx: s.ctx, lambdas: lambdas},
	}
}

// SolveChain solves every path of ch; the result is indexed like ch.Paths().
func (s *Solver) SolveChain(ch *chain.Chain) []Coefficients {
	out := make([]Coefficients, ch.Len())
	for i := 0; i < ch.Len(); i++ {
		out[i] = s.Solve(ch.Path(i))
	}
	return out
}

// fastTerms assumes distinct constants. Each coefficient
//
//	Πⱼ<ₙ₋₁,ⱼ≠ᵢ λⱼ/(λⱼ−λᵢ) · λᵢ/(λₙ−λᵢ)   (last factor only for i < n)
//
// is built from ratios of comparable size so long chains of very small or
// very large constants neither overflow nor underflow.
func fastTerms(lambdas []float64) []Term {
	n := len(lambdas)
	terms := make([]Term, n)
	for i := 0; i < n; i++ {
		c := 1.0
		for j := 0; j < n-1; j++ {
			if j == i {
				continue
			}
			c *= lambdas[j] / (lambdas[j] - lambdas[i])
		}
		if i < n-1 {
			c *= lambdas[i] / (lambdas[n-1] - lambdas[i])
		}
		terms[i] = Term{C: c, Lambda: lambdas[i]}
	}
	return terms
}

// NaiveEval evaluates the closed form in float64 without the degeneracy
// check. Only useful for diagnostics: it is wrong for close constants and
// undefined for equal ones.
func NaiveEval(p chain.Path, t float64) float64 {
	sum := 0.0
	for _, term := range fastTerms(p.Lambdas()) {
		sum += term.C * math.Exp(-term.Lambda*t)
	}
	return p.Branching() * sum
}

// solvePrecise solves a path with close or repeated constants.
func (s *Solver) solvePrecise(lambdas []float64, branching float64) Coefficients {
	pts := partialFractions(s.ctx, lambdas)

	terms := make([]Term, len(pts))
	for i, pt := range pts {
		terms[i] = Term{C: pt.c.Float64(), Lambda: pt.lambda.Float64(), Power: pt.power}
	}

	return Coefficients{
		branching: branching,
		terms:     terms,
		precise:   &preciseForm{ctx: s.ctx, terms: pts},
	}
}

// partialFractions performs a partial-fraction expansion of
//
//	F(s) = (λ₁…λₙ₋₁) / Π_μ (s+μ)^m_μ
//
// over the distinct constants μ with multiplicities m_μ. Around each pole
// the remaining factors are expanded as a power series in u = s+μ:
//
//	(u+d)^-m = Σᵣ (-1)ʳ C(m+r-1, r) uʳ / d^(m+r),   d = ν−μ
//
// and the series coefficient gᵣ gives the term gᵣ·t^(M-1-r)/(M-1-r)!·e^(−μt).
func partialFractions(ctx precise.Context, lambdas []float64) []preciseTerm {
	n := len(lambdas)

	prefactor := ctx.Int(1)
	for j := 0; j < n-1; j++ {
		prefactor = prefactor.Mul(ctx.Float(lambdas[j]))
	}

	poles, mult := distinct(lambdas)

	var pts []preciseTerm
	for pi, mu := range poles {
		m := mult[pi]
		series := make([]precise.Number, m)
		series[0] = ctx.Int(1)
		for r := 1; r < m; r++ {
			series[r] = ctx.Int(0)
		}

		muN := ctx.Float(mu)
		for qi, nu := range poles {
			if qi == pi {
				continue
			}
			d := ctx.Float(nu).Sub(muN)
			series = mulSeries(series, factorSeries(ctx, d, mult[qi], m))
		}

		for r := 0; r < m; r++ {
			power := m - 1 - r
			c := prefactor.Mul(series[r]).Quo(precise.Factorial(power, ctx))
			if c.Sign() == 0 {
				continue
			}
			pts = append(pts, preciseTerm{c: c, lambda: muN, power: power})
		}
	}
	return pts
}

// distinct returns the distinct values of xs in first-seen order with their counts.
func distinct(xs []float64) ([]float64, []int) {
	var vals []float64
	var counts []int
	for _, x := range xs {
		found := false
		for i, v := range vals {
			if v == x {
				counts[i]++
				found = true
				break
			}
		}
		if !found {
			vals = append(vals, x)
			counts = append(counts, 1)
		}
	}
	return vals, counts
}

// factorSeries returns the first `order` coefficients of (u+d)^-m in u.
func factorSeries(ctx precise.Context, d precise.Number, m, order int) []precise.Number {
	out := make([]precise.Number, order)
	base := ctx.Int(1)
	for k := 0; k < m; k++ {
		base = base.Quo(d)
	}
	out[0] = base
	// coef_r = coef_{r-1} · -(m+r-1) / (r·d)
	for r := 1; r < order; r++ {
		f := ctx.Int(int64(-(m + r - 1))).Quo(ctx.Int(int64(r)).Mul(d))
		out[r] = out[r-1].Mul(f)
	}
	return out
}

// mulSeries multiplies two truncated power series of equal length.
func mulSeries(a, b []precise.Number) []precise.Number {
	out := make([]precise.Number, len(a))
	for k := range out {
		sum := a[0].Mul(b[k])
		for i := 1; i <= k; i++ {
			sum = sum.Add(a[i].Mul(b[k-i]))
		}
		out[k] = sum
	}
	return out
}
