// Package model defines the core domain records shared across the rate engine:
// market quotes, protocol configuration, global statistics, the per-asset
// lending whitelist and the user ledger.
//
// Ledger amounts use package asset (exact decimal). Risk-model inputs such as
// prices, volatilities and scales are float64 statistical estimates.
package model

import (
	"time"

	"github.com/vigor/rate-engine/internal/asset"
)

// MarketQuote is the market-data snapshot for one symbol.
// Correlation must be symmetric across the quote set; the engine never
// symmetrizes it.
type MarketQuote struct {
	Symbol      string             `json:"symbol" db:"symbol"`
	PriceUsd    float64            `json:"price_usd" db:"price_usd"`
	Vol         float64            `json:"vol" db:"vol"` // annualized volatility
	Correlation map[string]float64 `json:"correlation" db:"correlation"`
	UpdatedAt   time.Time          `json:"updated_at" db:"updated_at"`
}

// MarketRow is the oracle's on-chain fixed-point representation of a quote.
// Prices, volatility and correlations are scaled by 10^6; symbols are
// encoded as "<precision>,<CODE>".
type MarketRow struct {
	Sym        string `json:"sym"`
	MarketData struct {
		Freq              int       `json:"freq"`
		Timestamp         string    `json:"timestamp"`
		Price             []int64   `json:"price"`
		CorrelationMatrix []CorrRow `json:"correlation_matrix"`
		Vol               int64     `json:"vol"`
	} `json:"marketdata"`
}

// CorrRow is one entry of an on-chain correlation matrix.
type CorrRow struct {
	Key   string `json:"key"`
	Value int64  `json:"value"`
}

// GlobalStats holds the protocol-wide rolling statistics the rate model
// reads. Scale calibrates VIGOR-denominated loans, LScale crypto loans.
type GlobalStats struct {
	Scale     float64   `json:"scale" db:"scale"`
	LScale    float64   `json:"l_scale" db:"l_scale"`
	Solvency  float64   `json:"solvency" db:"solvency"`
	LSolvency float64   `json:"l_solvency" db:"l_solvency"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultGlobalStats is a neutral calibration used only for logged-out
// estimates before the chain value has loaded.
func DefaultGlobalStats() GlobalStats {
	return GlobalStats{Scale: 1, LScale: 1, Solvency: 1, LSolvency: 1}
}

// UserRow is the user ledger as stored on chain: amounts are wire strings
// ("100.0000 EOS"), USD aggregates are decimal strings.
type UserRow struct {
	Account       string    `json:"account" db:"account"`
	Debt          string    `json:"debt" db:"debt"`                 // VIGOR borrowed
	Collateral    []string  `json:"collateral" db:"collateral"`     // crypto backing VIGOR debt
	ValueOfCol    string    `json:"valueofcol" db:"valueofcol"`     // USD value of Collateral
	LDebt         string    `json:"l_debt" db:"l_debt"`             // VIGOR backing crypto debt
	LCollateral   []string  `json:"l_collateral" db:"l_collateral"` // crypto borrowed
	LValueOfCol   string    `json:"l_valueofcol" db:"l_valueofcol"` // USD value of LCollateral
	ReputationPct float64   `json:"reputation_pct" db:"reputation_pct"`
	LastUpdate    time.Time `json:"last_update" db:"last_update"`
}

// UserRiskState is a decoded account with its two independent loan books:
// crypto collateral against VIGOR debt, and VIGOR collateral against crypto
// debt.
type UserRiskState struct {
	Account       string  `json:"account"`
	ReputationPct float64 `json:"reputation_pct"` // [0, 1]

	// VIGOR-denominated loan.
	Collateral         asset.Portfolio `json:"collateral"`
	CollateralValueUsd float64         `json:"collateral_value_usd"`
	Debt               asset.Asset     `json:"debt"`

	// Crypto-denominated loan.
	VigorCollateral    asset.Asset     `json:"vigor_collateral"`
	CryptoDebt         asset.Portfolio `json:"crypto_debt"`
	CryptoDebtValueUsd float64         `json:"crypto_debt_value_usd"`
}

// RateQuote is the engine's pricing output. Rate is a per-annum fraction;
// PremiumUsd is the expected one-month USD cost implied by Rate.
type RateQuote struct {
	Rate       float64 `json:"rate"`
	PremiumUsd float64 `json:"premium_usd"`
}

// QuoteRecord is an immutable audit entry for a quote served to a caller.
// Once created, these are never modified or deleted.
type QuoteRecord struct {
	ID              string    `json:"id" db:"id"`
	Account         string    `json:"account" db:"account"`
	LoanType        string    `json:"loan_type" db:"loan_type"`
	Action          string    `json:"action" db:"action"`
	Amount          string    `json:"amount" db:"amount"`
	Rate            float64   `json:"rate" db:"rate"`
	PremiumUsd      float64   `json:"premium_usd" db:"premium_usd"`
	CollateralRatio float64   `json:"collateral_ratio" db:"collateral_ratio"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
