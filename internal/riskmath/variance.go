package riskmath

// Correlator looks up the pairwise correlation between two symbols.
// Implementations must report missing pairs as errors rather than guessing.
type Correlator interface {
	Correlation(a, b string) (float64, error)
}

// Weight is one portfolio leg: its share of the total USD value and its
// annualized volatility.
type Weight struct {
	Symbol   string
	Fraction float64
	Vol      float64
}

// PortfolioVariance computes
//
//	Σ wᵢ²σᵢ² + 2·Σ_{i<j} wᵢwⱼσᵢσⱼρᵢⱼ
//
// Pairs are visited in ascending index order so the float result is
// reproducible. ρᵢⱼ is read as corr.Correlation(wᵢ, wⱼ), i.e. from the row of
// the earlier leg. Callers special-case an empty or zero-valued portfolio
// before getting here; weights are assumed to be well defined.
func PortfolioVariance(weights []Weight, corr Correlator) (float64, error) {
	var variance float64
	for i, wi := range weights {
		for _, wj := range weights[i+1:] {
			c, err := corr.Correlation(wi.Symbol, wj.Symbol)
			if err != nil {
				return 0, err
			}
			variance += 2.0 * wi.Fraction * wj.Fraction * c * wi.Vol * wj.Vol
		}
		variance += wi.Fraction * wi.Fraction * wi.Vol * wi.Vol
	}
	return variance, nil
}

// LendWeight is one borrowed asset with its USD value and the fraction of the
// protocol's lendable pool of that asset already lent out.
type LendWeight struct {
	Symbol       string
	ValueUsd     float64
	LentFraction float64
}

// ScarcityPenalty returns Σ (valueᵢ / totalUsd) · lentFractionᵢ.
// Borrowing assets whose pools are mostly lent out raises the penalty.
// A zero total yields zero.
func ScarcityPenalty(items []LendWeight, totalUsd float64) float64 {
	if totalUsd == 0 {
		return 0
	}
	var penalty float64
	for _, it := range items {
		penalty += (it.ValueUsd / totalUsd) * it.LentFraction
	}
	return penalty
}

// CryptoGlobalScale folds the scarcity penalty into the upside volatility
// scale: calibration·rollingScale + penalty²/2.
func CryptoGlobalScale(calibration, rollingScale, penalty float64) float64 {
	return calibration*rollingScale + penalty*penalty/2
}
