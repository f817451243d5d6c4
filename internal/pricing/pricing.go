// Package pricing computes risk-based borrow rates and collateralization
// ratios for the two VIGOR loan books.
//
// Every function here is pure: it reads an explicit Snapshot plus the
// account state and returns a value. Nothing is cached and nothing is
// shared, so callers re-invoke whenever any input changes and may do so
// from many goroutines at once.
//
// Ledger amounts arrive as exact decimals (package asset) and are converted
// to float64 only where they enter the risk model.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vigor/rate-engine/internal/asset"
	"github.com/vigor/rate-engine/internal/market"
	"github.com/vigor/rate-engine/internal/model"
)

// ErrMissingWhitelist is returned when a crypto-debt symbol has no
// whitelist row, so its lent fraction is unknown.
var ErrMissingWhitelist = errors.New("pricing: missing whitelist entry")

// debtLedgerScale is the fixed-point scale of VIGOR amounts on the debt
// ledger. Raw VIGOR units divided by it give USD.
const debtLedgerScale = 10000.0

// Snapshot bundles everything a pricing call reads besides the account.
type Snapshot struct {
	Market    *market.Snapshot
	Config    model.ProtocolConfig
	Globals   model.GlobalStats
	Whitelist model.Whitelist
}

// Delta is a signed change to one loan book. A zero Asset on either leg
// means that leg is untouched.
type Delta struct {
	Collateral asset.Asset `json:"collateral"`
	Debt       asset.Asset `json:"debt"`
}

// present reports whether a carries a non-zero amount.
func present(a asset.Asset) bool {
	return a.Code != "" && !a.IsZero()
}

// vigorUnits returns a VIGOR amount as raw ledger units at the VIGOR
// precision.
func vigorUnits(a asset.Asset) decimal.Decimal {
	if a.Code == "" {
		return decimal.Zero
	}
	return a.Rescale(asset.CanonicalPrecision(asset.VIGOR)).Units
}

// vigorUsd converts raw VIGOR units into USD at 1:1.
func vigorUsd(units decimal.Decimal) float64 {
	return units.InexactFloat64() / debtLedgerScale
}

// deltaValueUsd prices a delta leg at market. An absent leg is worth zero
// and needs no quote.
func deltaValueUsd(m *market.Snapshot, a asset.Asset) (float64, error) {
	if !present(a) {
		return 0, nil
	}
	return m.ValueUsd(a)
}

func validateVigorLegs(d Delta) error {
	if present(d.Debt) && d.Debt.Code != asset.VIGOR {
		return fmt.Errorf("%w: VIGOR loan debt must be VIGOR, got %s", ErrInvalidLeg, d.Debt.Code)
	}
	if present(d.Collateral) && d.Collateral.Code == asset.VIGOR {
		return fmt.Errorf("%w: VIGOR loan collateral cannot be VIGOR", ErrInvalidLeg)
	}
	return nil
}

func validateCryptoLegs(d Delta) error {
	if present(d.Collateral) && d.Collateral.Code != asset.VIGOR {
		return fmt.Errorf("%w: crypto loan collateral must be VIGOR, got %s", ErrInvalidLeg, d.Collateral.Code)
	}
	if present(d.Debt) && d.Debt.Code == asset.VIGOR {
		return fmt.Errorf("%w: crypto loan debt cannot be VIGOR", ErrInvalidLeg)
	}
	return nil
}
