// Package riskmath implements the numerical primitives of the VIGOR risk
// model: an inverse normal CDF, portfolio variance over a correlation table,
// the downside/upside stress-collateral transforms and the scarcity penalty
// applied to crypto-denominated debt.
//
// Everything here is float64. These are statistical approximations, not
// ledger accounting. Exact decimal amounts live in package asset and are
// converted to float64 only at the edge, right before they enter this package.
package riskmath

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrProbabilityDomain is returned when a probability is outside (0, 1).
	ErrProbabilityDomain = errors.New("riskmath: probability must be in (0, 1)")
)

// Rational approximation coefficients for the inverse normal CDF
// (Abramowitz & Stegun 26.2.23, |error| < 4.5e-4).
var (
	icdfNum = [3]float64{2.515517, 0.802853, 0.010328}
	icdfDen = [3]float64{1.432788, 0.189269, 0.001308}
)

// tailApprox evaluates the positive branch of the approximation for
// t = sqrt(-2 ln q), q being the upper-tail probability.
func tailApprox(t float64) float64 {
	num := (icdfNum[2]*t+icdfNum[1])*t + icdfNum[0]
	den := ((icdfDen[2]*t+icdfDen[1])*t+icdfDen[0])*t + 1.0
	return t - num/den
}

// NormalInverseCDF returns z such that Φ(z) ≈ p.
//
// Values below 0.5 go through the symmetric relation Φ⁻¹(p) = -Φ⁻¹(1-p),
// evaluated on the same positive branch, so Φ⁻¹(0.5) ≈ 0.
func NormalInverseCDF(p float64) (float64, error) {
	if math.IsNaN(p) || p <= 0 || p >= 1 {
		return 0, fmt.Errorf("%w: got %v", ErrProbabilityDomain, p)
	}
	if p < 0.5 {
		return -tailApprox(math.Sqrt(-2.0 * math.Log(p))), nil
	}
	return tailApprox(math.Sqrt(-2.0 * math.Log(1-p))), nil
}

// StressFactor computes the tail multiplier for confidence level alpha:
//
//	k = exp(-Φ⁻¹(α)² / 2) / (√(2π) · (1 - α))
//
// k·σ is the expected shortfall (in standard deviations) beyond the α quantile.
func StressFactor(alpha float64) (float64, error) {
	z, err := NormalInverseCDF(alpha)
	if err != nil {
		return 0, err
	}
	return math.Exp(-math.Pow(z, 2.0)/2.0) / math.Sqrt(2.0*math.Pi) / (1.0 - alpha), nil
}

// StressCollateral is the downside transform used when collateral is the
// protected asset:
//
//	stress = -(exp(-k·√variance) - 1)
//
// The result lies in [0, 1): larger variance moves it toward a full loss.
func StressCollateral(variance, alpha float64) (float64, error) {
	k, err := StressFactor(alpha)
	if err != nil {
		return 0, err
	}
	return -1.0 * (math.Exp(-1.0*k*math.Sqrt(variance)) - 1.0), nil
}

// LStressCollateral is the upside transform used when the debt is the
// volatile leg (crypto-denominated loans):
//
//	lstress = exp(k·√variance) - 1
func LStressCollateral(variance, alpha float64) (float64, error) {
	k, err := StressFactor(alpha)
	if err != nil {
		return 0, err
	}
	return math.Exp(k*math.Sqrt(variance)) - 1.0, nil
}

// ImpliedStress rescales a downside stress by the global scale:
//
//	istress = -(exp(ln(1 - stress)·scale) - 1) = 1 - (1 - stress)^scale
func ImpliedStress(stress, scale float64) float64 {
	return -1.0 * (math.Exp(math.Log(1.0-stress)*scale) - 1.0)
}

// LImpliedStress rescales an upside stress by the global scale:
//
//	listress = exp(ln(1 + lstress)·scale) - 1 = (1 + lstress)^scale - 1
func LImpliedStress(lstress, scale float64) float64 {
	return math.Exp(math.Log(1.0+lstress)*scale) - 1.0
}

// ExpectedPayoffRate evaluates the closed-form expected payoff of the
// stress-adjusted log-normal model, normalised by notional:
//
//	rate = payoff · erfc(d/√2) / 2 / notional
//
// Pass -d for the upside tail.
func ExpectedPayoffRate(payoff, d, notional float64) float64 {
	return payoff * math.Erfc(d/math.Sqrt2) / 2.0 / notional
}

// Clamp bounds x to [lo, hi]. NaN is passed through unchanged so that
// degenerate inputs stay detectable by the caller.
func Clamp(x, lo, hi float64) float64 {
	return math.Min(math.Max(lo, x), hi)
}

// MonthlyPremium converts an annual rate into the expected one-month cost
// on notional, compounding monthly: ((1 + rate)^(1/12) - 1) · notional.
func MonthlyPremium(rate, notional float64) float64 {
	return (math.Pow(1.0+rate, 1.0/12.0) - 1.0) * notional
}

// IsFinite reports whether every value is neither NaN nor ±Inf.
func IsFinite(xs ...float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
