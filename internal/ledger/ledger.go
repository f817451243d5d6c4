// Package ledger decodes on-chain user rows into the risk state the pricing
// engine consumes, and builds hypothetical accounts for estimates.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vigor/rate-engine/internal/asset"
	"github.com/vigor/rate-engine/internal/market"
	"github.com/vigor/rate-engine/internal/model"
)

// ErrInvalidRow is returned for a user row that cannot be decoded.
var ErrInvalidRow = errors.New("ledger: invalid user row")

// DefaultEstimateReputation is the reputation assumed for a logged-out
// estimate when the caller supplies none.
const DefaultEstimateReputation = 0.5

// DecodeUser converts a wire row into a UserRiskState. Amounts are decoded
// at each code's canonical precision; an empty debt or l_debt decodes to
// zero VIGOR.
func DecodeUser(row model.UserRow) (model.UserRiskState, error) {
	state := model.UserRiskState{
		Account:       row.Account,
		ReputationPct: clampUnit(row.ReputationPct),
	}

	var err error
	if state.Collateral, err = asset.ParsePortfolio(row.Collateral); err != nil {
		return model.UserRiskState{}, fmt.Errorf("%w: collateral: %v", ErrInvalidRow, err)
	}
	if state.CryptoDebt, err = asset.ParsePortfolio(row.LCollateral); err != nil {
		return model.UserRiskState{}, fmt.Errorf("%w: l_collateral: %v", ErrInvalidRow, err)
	}
	if state.Debt, err = vigorAmount(row.Debt); err != nil {
		return model.UserRiskState{}, fmt.Errorf("%w: debt: %v", ErrInvalidRow, err)
	}
	if state.VigorCollateral, err = vigorAmount(row.LDebt); err != nil {
		return model.UserRiskState{}, fmt.Errorf("%w: l_debt: %v", ErrInvalidRow, err)
	}
	if state.CollateralValueUsd, err = usd(row.ValueOfCol); err != nil {
		return model.UserRiskState{}, fmt.Errorf("%w: valueofcol: %v", ErrInvalidRow, err)
	}
	if state.CryptoDebtValueUsd, err = usd(row.LValueOfCol); err != nil {
		return model.UserRiskState{}, fmt.Errorf("%w: l_valueofcol: %v", ErrInvalidRow, err)
	}
	return state, nil
}

// NewAccount is the state of an account with no ledger row.
func NewAccount(account string) model.UserRiskState {
	return model.UserRiskState{
		Account:         account,
		Debt:            asset.Zero(asset.VIGOR),
		VigorCollateral: asset.Zero(asset.VIGOR),
	}
}

// Hypothetical builds an account holding collateral and owing cryptoDebt,
// for pricing before a wallet is connected. Non-VIGOR collateral backs the
// VIGOR book; any VIGOR in collateral becomes the crypto book's collateral.
// Both books start with no VIGOR debt.
func Hypothetical(collateral, cryptoDebt []asset.Asset, reputation float64, snap *market.Snapshot) (model.UserRiskState, error) {
	state := NewAccount("")
	state.ReputationPct = clampUnit(reputation)

	var crypto, vigor []asset.Asset
	for _, a := range collateral {
		if a.Code == asset.VIGOR {
			vigor = append(vigor, a)
			continue
		}
		crypto = append(crypto, a)
	}
	if v, ok := asset.NewPortfolio(vigor...).Get(asset.VIGOR); ok {
		state.VigorCollateral = v.Rescale(asset.CanonicalPrecision(asset.VIGOR))
	}
	state.Collateral = asset.NewPortfolio(crypto...)
	state.CryptoDebt = asset.NewPortfolio(cryptoDebt...)

	var err error
	if state.CollateralValueUsd, err = snap.PortfolioValueUsd(state.Collateral); err != nil {
		return model.UserRiskState{}, err
	}
	if state.CryptoDebtValueUsd, err = snap.PortfolioValueUsd(state.CryptoDebt); err != nil {
		return model.UserRiskState{}, err
	}
	return state, nil
}

func vigorAmount(s string) (asset.Asset, error) {
	if strings.TrimSpace(s) == "" {
		return asset.Zero(asset.VIGOR), nil
	}
	a, err := asset.ParseNormalized(s)
	if err != nil {
		return asset.Asset{}, err
	}
	if a.Code != asset.VIGOR {
		return asset.Asset{}, fmt.Errorf("expected VIGOR, got %s", a.Code)
	}
	return a, nil
}

func usd(s string) (float64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return v.InexactFloat64(), nil
}

func clampUnit(x float64) float64 {
	switch {
	case x < 0 || math.IsNaN(x):
		return 0
	case x > 1:
		return 1
	}
	return x
}
