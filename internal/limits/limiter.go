// Package limits computes how much an account may still borrow on each
// loan book and how much of each lendable pool is open to one account.
//
// Capacity is bounded twice:
//   - by collateral: collateral value / minimum collateral ratio, less
//     what is already owed on that book
//   - by supply (crypto loans only): lendable × (1 − lent fraction) ×
//     maxlends/100 of the whitelist row
package limits

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vigor/rate-engine/internal/asset"
	"github.com/vigor/rate-engine/internal/market"
	"github.com/vigor/rate-engine/internal/model"
	"github.com/vigor/rate-engine/internal/pricing"
)

var (
	// ErrExceedsCollateral is returned when a borrow would take the book
	// below the minimum collateral ratio.
	ErrExceedsCollateral = errors.New("limits: borrow exceeds collateral capacity")

	// ErrExceedsLendable is returned when a crypto borrow is larger than the
	// share of the pool one account may take.
	ErrExceedsLendable = errors.New("limits: borrow exceeds lendable supply")
)

var hundred = decimal.NewFromInt(100)

// Limiter holds the protocol parameters the capacity checks read.
type Limiter struct {
	// MinCollateralRatio is the lowest collateral/debt ratio a borrow may
	// leave behind, e.g. 1.11. Zero or negative means the protocol default.
	MinCollateralRatio decimal.Decimal

	// Whitelist lists the borrowable assets and their pool sizes.
	Whitelist model.Whitelist
}

// NewLimiter builds a limiter from the protocol config and whitelist.
// Out-of-range config values fall back to their defaults.
func NewLimiter(cfg model.ProtocolConfig, whitelist model.Whitelist) *Limiter {
	cfg, _ = cfg.Normalized()
	return &Limiter{
		MinCollateralRatio: decimal.NewFromInt(int64(cfg.MinCollat)).Div(hundred),
		Whitelist:          whitelist,
	}
}

// LeftToBorrow returns, per symbol, the amount the account can still
// borrow before hitting the minimum collateral ratio. VIGOR capacity comes
// from the crypto collateral; every other whitelisted symbol shares the
// USD capacity of the VIGOR collateral. VIGOR is valued 1:1 with USD
// throughout. Negative capacity is reported as zero.
func (l *Limiter) LeftToBorrow(user model.UserRiskState, snap *market.Snapshot) (map[string]asset.Asset, error) {
	out := make(map[string]asset.Asset, len(l.Whitelist)+1)
	minRatio := l.minRatio()

	colUsd, err := snap.PortfolioValueUsd(user.Collateral.Without(asset.VIGOR))
	if err != nil {
		return nil, err
	}
	vigorLeft := decimal.NewFromFloat(colUsd).
		Div(minRatio).
		Sub(user.Debt.Amount())
	out[asset.VIGOR] = floorZero(asset.FromAmount(asset.VIGOR, asset.CanonicalPrecision(asset.VIGOR), vigorLeft))

	debtUsd, err := snap.PortfolioValueUsd(user.CryptoDebt.Without(asset.VIGOR))
	if err != nil {
		return nil, err
	}
	cryptoLeftUsd := user.VigorCollateral.Amount().
		Div(minRatio).
		Sub(decimal.NewFromFloat(debtUsd))

	for _, sym := range l.cryptoSymbols() {
		a, err := snap.ToAsset(cryptoLeftUsd.InexactFloat64(), sym, asset.CanonicalPrecision(sym))
		if err != nil {
			return nil, err
		}
		out[sym] = floorZero(a)
	}
	return out, nil
}

// Borrowable returns, per whitelisted symbol, the share of its lendable
// pool one account may borrow.
func (l *Limiter) Borrowable() (map[string]asset.Asset, error) {
	out := make(map[string]asset.Asset, len(l.Whitelist))
	for _, w := range l.Whitelist {
		pool, err := asset.ParseNormalized(w.Lendable)
		if err != nil {
			return nil, fmt.Errorf("limits: whitelist %s: %w", w.Symbol, err)
		}
		open := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(w.LentPct))
		share := decimal.NewFromInt(int64(w.MaxLends)).Div(hundred)
		units := pool.Units.Mul(open).Mul(share).Truncate(0)
		out[w.Symbol] = floorZero(asset.Asset{Code: pool.Code, Precision: pool.Precision, Units: units})
	}
	return out, nil
}

// CheckBorrow validates a borrow of amount on the given book.
//
// Returns nil if the borrow fits, or an error naming the bound it breaks.
func (l *Limiter) CheckBorrow(loan pricing.LoanType, amount asset.Asset, user model.UserRiskState, snap *market.Snapshot) error {
	if _, err := pricing.ResolveDelta(loan, pricing.Borrow, amount); err != nil {
		return err
	}

	// 1. Collateral capacity.
	left, err := l.LeftToBorrow(user, snap)
	if err != nil {
		return err
	}
	capacity, ok := left[amount.Code]
	if !ok {
		return fmt.Errorf("%w: %s is not borrowable", ErrExceedsLendable, amount.Code)
	}
	if amount.Amount().GreaterThan(capacity.Amount()) {
		return fmt.Errorf("%w: %s requested, %s left", ErrExceedsCollateral, amount, capacity)
	}

	// 2. Pool supply. VIGOR is minted, not lent.
	if loan != pricing.LoanCrypto {
		return nil
	}
	borrowable, err := l.Borrowable()
	if err != nil {
		return err
	}
	if pool, ok := borrowable[amount.Code]; ok && amount.Amount().GreaterThan(pool.Amount()) {
		return fmt.Errorf("%w: %s requested, %s open", ErrExceedsLendable, amount, pool)
	}
	return nil
}

func (l *Limiter) minRatio() decimal.Decimal {
	if l.MinCollateralRatio.IsPositive() {
		return l.MinCollateralRatio
	}
	return decimal.NewFromInt(int64(model.DefaultProtocolConfig().MinCollat)).Div(hundred)
}

// cryptoSymbols lists the non-VIGOR whitelisted symbols in a stable order.
func (l *Limiter) cryptoSymbols() []string {
	syms := make([]string, 0, len(l.Whitelist))
	for _, w := range l.Whitelist {
		if w.Symbol != asset.VIGOR {
			syms = append(syms, w.Symbol)
		}
	}
	sort.Strings(syms)
	return syms
}

// Discount is the fraction taken off the rate for reputation, i.e.
// reputation × maxdisc/100.
func Discount(reputation float64, cfg model.ProtocolConfig) float64 {
	cfg, _ = cfg.Normalized()
	return reputation * cfg.DiscountCap()
}

func floorZero(a asset.Asset) asset.Asset {
	if a.IsNegative() {
		return asset.Zero(a.Code).Rescale(a.Precision)
	}
	return a
}
