// Package precise provides the arbitrary-precision arithmetic used when a
// decay path has nearly equal decay constants.
//
// Callers work against the narrow [Number] interface; [Context] fixes the
// working precision for every value it creates:
//
//	ctx := precise.NewContext(256)
//	x := ctx.Float(1.5e-3)
//	y := x.Mul(ctx.Float(-3600)).Exp()
//	f := y.Float64()
//
// Values are immutable: every operation returns a new Number.
package precise
