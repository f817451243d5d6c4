package pricing

import (
	"math"

	"github.com/vigor/rate-engine/internal/model"
)

// ratioEpsilon is the debt below which no loan is considered outstanding.
const ratioEpsilon = 0.001

// Ratio returns (collateral + Δcollateral) / (debt + Δdebt). A total debt
// under 0.001 USD gives exactly 0, meaning "no loan", never +Inf or NaN.
// Negative results are floored at 0.
func Ratio(existingCollateralUsd, deltaCollateralUsd, existingDebtUsd, deltaDebtUsd float64) float64 {
	debt := existingDebtUsd + deltaDebtUsd
	if debt < ratioEpsilon || math.IsNaN(debt) {
		return 0
	}
	r := (existingCollateralUsd + deltaCollateralUsd) / debt
	if math.IsNaN(r) || r < 0 {
		return 0
	}
	return r
}

// VigorCollateralRatio is the collateralization of the VIGOR book after
// delta. Collateral starts from the ledger's USD value; VIGOR debt counts
// 1:1 with USD whatever VIGOR trades at.
func VigorCollateralRatio(delta Delta, user model.UserRiskState, snap Snapshot) (float64, error) {
	if err := validateVigorLegs(delta); err != nil {
		return 0, err
	}
	deltaCol, err := deltaValueUsd(snap.Market, delta.Collateral)
	if err != nil {
		return 0, err
	}
	return Ratio(
		user.CollateralValueUsd, deltaCol,
		vigorUsd(vigorUnits(user.Debt)), vigorUsd(vigorUnits(delta.Debt)),
	), nil
}

// CryptoCollateralRatio is the collateralization of the crypto book after
// delta: VIGOR collateral at 1:1 over the market value of crypto debt.
func CryptoCollateralRatio(delta Delta, user model.UserRiskState, snap Snapshot) (float64, error) {
	if err := validateCryptoLegs(delta); err != nil {
		return 0, err
	}
	deltaDebt, err := deltaValueUsd(snap.Market, delta.Debt)
	if err != nil {
		return 0, err
	}
	return Ratio(
		vigorUsd(vigorUnits(user.VigorCollateral)), vigorUsd(vigorUnits(delta.Collateral)),
		user.CryptoDebtValueUsd, deltaDebt,
	), nil
}
