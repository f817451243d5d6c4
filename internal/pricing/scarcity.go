package pricing

import (
	"fmt"

	"github.com/vigor/rate-engine/internal/asset"
	"github.com/vigor/rate-engine/internal/riskmath"
)

// scarcity computes the lent-fraction penalty for a crypto debt portfolio
// worth totalUsd.
func scarcity(debt []asset.Asset, totalUsd float64, snap Snapshot) (float64, error) {
	items := make([]riskmath.LendWeight, 0, len(debt))
	for _, a := range debt {
		v, err := snap.Market.ValueUsd(a)
		if err != nil {
			return 0, err
		}
		w, ok := snap.Whitelist.Lookup(a.Code)
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrMissingWhitelist, a.Code)
		}
		items = append(items, riskmath.LendWeight{
			Symbol:       a.Code,
			ValueUsd:     v,
			LentFraction: w.LentPct,
		})
	}
	return riskmath.ScarcityPenalty(items, totalUsd), nil
}
