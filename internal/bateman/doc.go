// Package bateman solves the decay equations along a single decay path.
//
// For a path with decay constants λ₁…λₙ and cumulative branching fraction B,
// the amount of the n-th member grown from one unit of the first is
//
//	N(t) = B · (λ₁…λₙ₋₁) · Σᵢ e^(−λᵢt) / Πⱼ≠ᵢ(λⱼ − λᵢ)
//
// [Solver.Solve] turns a path into [Coefficients], a list of terms
// C·tᵏ·e^(−λt) that can be evaluated at any t ≥ 0.
//
// # Precision
//
// When two constants on a path are close, the closed-form coefficients are
// huge and of opposite sign and their sum cancels catastrophically in
// float64. The solver checks every pair of constants against a relative
// threshold; if any pair is closer, the coefficients are derived by partial
// fractions in arbitrary precision (package precise), which also covers
// exactly repeated constants, and evaluation stays in arbitrary precision
// until the final rounding. Well-separated paths use plain float64.
//
// A stable end member (λₙ = 0) is a pole at zero and contributes a constant
// term.
package bateman
