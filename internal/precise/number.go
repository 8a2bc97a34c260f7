package precise

import (
	"math"
	"math/big"
)

// DefaultPrec is the default mantissa precision in bits.
const DefaultPrec = 256

// expCutoff bounds |x| for Exp. e^-x underflows float64 long before this,
// and big.Float exponents stay far inside their int32 range.
const expCutoff = 1e6

// Number is the high-precision value type.
type Number interface {
	Add(Number) Number
	Sub(Number) Number
	Mul(Number) Number
	Quo(Number) Number
	Neg() Number
	Abs() Number
	Exp() Number
	Sign() int
	Cmp(Number) int
	Float64() float64
	String() string
}

// Context creates Numbers with a fixed precision.
type Context struct {
	prec uint
}

func NewContext(prec uint) Context {
	if prec == 0 {
		prec = DefaultPrec
	}
	return Context{prec: prec}
}

func (c Context) Prec() uint { return c.prec }

// Ulps returns 2^-(prec-k), k units in the last place of one.
func (c Context) Ulps(k int) Number {
	return &bigFloat{v: new(big.Float).SetPrec(c.prec).SetMantExp(big.NewFloat(1), k-int(c.prec))}
}

// Float converts f exactly; every float64 is representable.
func (c Context) Float(f float64) Number {
	return &bigFloat{v: new(big.Float).SetPrec(c.prec).SetFloat64(f)}
}

func (c Context) Int(i int64) Number {
	return &bigFloat{v: new(big.Float).SetPrec(c.prec).SetInt64(i)}
}

type bigFloat struct {
	v *big.Float
}

func (b *bigFloat) other(n Number) *big.Float {
	return n.(*bigFloat).v
}

func (b *bigFloat) fresh() *big.Float {
	return new(big.Float).SetPrec(b.v.Prec())
}

func (b *bigFloat) Add(n Number) Number { return &bigFloat{v: b.fresh().Add(b.v, b.other(n))} }
func (b *bigFloat) Sub(n Number) Number { return &bigFloat{v: b.fresh().Sub(b.v, b.other(n))} }
func (b *bigFloat) Mul(n Number) Number { return &bigFloat{v: b.fresh().Mul(b.v, b.other(n))} }
func (b *bigFloat) Neg() Number         { return &bigFloat{v: b.fresh().Neg(b.v)} }
func (b *bigFloat) Abs() Number         { return &bigFloat{v: b.fresh().Abs(b.v)} }
func (b *bigFloat) Sign() int           { return b.v.Sign() }
func (b *bigFloat) Cmp(n Number) int    { return b.v.Cmp(b.other(n)) }
func (b *bigFloat) String() string      { return b.v.Text('g', 30) }

// Quo panics on division by zero, like integer division.
func (b *bigFloat) Quo(n Number) Number {
	d := b.other(n)
	if d.Sign() == 0 {
		panic("precise: division by zero")
	}
	return &bigFloat{v: b.fresh().Quo(b.v, d)}
}

func (b *bigFloat) Float64() float64 {
	f, _ := b.v.Float64()
	return f
}

// Exp returns e^b. The argument is halved until it is small, the Taylor
// series is summed, and the result is squared back up.
func (b *bigFloat) Exp() Number {
	prec := b.v.Prec()
	x := b.v

	if x.Sign() == 0 {
		return &bigFloat{v: new(big.Float).SetPrec(prec).SetInt64(1)}
	}

	abs := new(big.Float).Abs(x)
	if abs.Cmp(big.NewFloat(expCutoff)) > 0 {
		if x.Sign() < 0 {
			return &bigFloat{v: new(big.Float).SetPrec(prec)}
		}
		return &bigFloat{v: new(big.Float).SetPrec(prec).SetInf(false)}
	}

	// abs = mant × 2^e with mant in [0.5, 1). Scale so the series argument is below 2^-8.
	e := abs.MantExp(nil)
	k := 0
	if e > -8 {
		k = e + 8
	}
	work := prec + 64 + uint(k)

	r := new(big.Float).SetPrec(work).SetMantExp(abs, -k)
	one := new(big.Float).SetPrec(work).SetInt64(1)
	sum := new(big.Float).SetPrec(work).Set(one)
	term := new(big.Float).SetPrec(work).Set(one)
	limit := -int(work) - 2

	for i := int64(1); ; i++ {
		term.Mul(term, r)
		term.Quo(term, new(big.Float).SetPrec(work).SetInt64(i))
		sum.Add(sum, term)
		if term.MantExp(nil)-sum.MantExp(nil) < limit {
			break
		}
	}

	for i := 0; i < k; i++ {
		sum.Mul(sum, sum)
	}
	if x.Sign() < 0 {
		sum.Quo(one, sum)
	}

	return &bigFloat{v: new(big.Float).SetPrec(prec).Set(sum)}
}

// Pow returns x^k for k ≥ 0.
func Pow(x Number, k int, ctx Context) Number {
	out := ctx.Int(1)
	for i := 0; i < k; i++ {
		out = out.Mul(x)
	}
	return out
}

// Factorial returns k! in the context precision.
func Factorial(k int, ctx Context) Number {
	out := ctx.Int(1)
	for i := 2; i <= k; i++ {
		out = out.Mul(ctx.Int(int64(i)))
	}
	return out
}

// RelativeGap is |a-b| / max(|a|,|b|) evaluated in float64; zero when both are zero.
func RelativeGap(a, b float64) float64 {
	m := math.Max(math.Abs(a), math.Abs(b))
	if m == 0 {
		return 0
	}
	return math.Abs(a-b) / m
}
