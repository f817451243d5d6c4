// Package market holds the immutable market-data snapshot a pricing call
// reads: per-symbol USD price, annualized volatility and correlation row.
package market

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vigor/rate-engine/internal/asset"
	"github.com/vigor/rate-engine/internal/model"
	"github.com/vigor/rate-engine/internal/riskmath"
)

var (
	ErrMissingQuote          = errors.New("market: missing quote")
	ErrMissingCorrelation    = errors.New("market: missing correlation")
	ErrAsymmetricCorrelation = errors.New("market: asymmetric correlation")
	ErrInvalidPrice          = errors.New("market: invalid price")
	ErrMalformedRow          = errors.New("market: malformed row")
)

// Snapshot is a read-only view over a set of quotes. It is safe for
// concurrent use because nothing mutates it after NewSnapshot returns.
type Snapshot struct {
	quotes map[string]model.MarketQuote
}

// NewSnapshot indexes quotes by symbol. A later quote for the same symbol
// replaces an earlier one.
func NewSnapshot(quotes []model.MarketQuote) *Snapshot {
	idx := make(map[string]model.MarketQuote, len(quotes))
	for _, q := range quotes {
		idx[q.Symbol] = q
	}
	return &Snapshot{quotes: idx}
}

// Quote returns the quote for sym.
func (s *Snapshot) Quote(sym string) (model.MarketQuote, error) {
	if s != nil {
		if q, ok := s.quotes[sym]; ok {
			return q, nil
		}
	}
	return model.MarketQuote{}, fmt.Errorf("%w: %s", ErrMissingQuote, sym)
}

// Quotes returns every quote ordered by symbol.
func (s *Snapshot) Quotes() []model.MarketQuote {
	if s == nil {
		return nil
	}
	out := make([]model.MarketQuote, 0, len(s.quotes))
	for _, q := range s.quotes {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Len returns the number of quoted symbols.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.quotes)
}

// Correlation reads ρ(a, b) from a's row. The table is taken as given and
// never symmetrized.
func (s *Snapshot) Correlation(a, b string) (float64, error) {
	if a == b {
		return 1, nil
	}
	q, err := s.Quote(a)
	if err != nil {
		return 0, err
	}
	c, ok := q.Correlation[b]
	if !ok {
		return 0, fmt.Errorf("%w: %s/%s", ErrMissingCorrelation, a, b)
	}
	return c, nil
}

// ValueUsd prices a at market.
func (s *Snapshot) ValueUsd(a asset.Asset) (float64, error) {
	q, err := s.Quote(a.Code)
	if err != nil {
		return 0, err
	}
	return a.Float() * q.PriceUsd, nil
}

// PortfolioValueUsd sums the market value of every holding.
func (s *Snapshot) PortfolioValueUsd(p asset.Portfolio) (float64, error) {
	var total float64
	for _, a := range p.Assets() {
		v, err := s.ValueUsd(a)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}

// ToAsset converts a USD amount into tokens of code at market, truncated to
// precision.
func (s *Snapshot) ToAsset(usd float64, code string, precision uint8) (asset.Asset, error) {
	q, err := s.Quote(code)
	if err != nil {
		return asset.Asset{}, err
	}
	if !(q.PriceUsd > 0) {
		return asset.Asset{}, fmt.Errorf("%w: %s at %v", ErrInvalidPrice, code, q.PriceUsd)
	}
	amount := usd / q.PriceUsd
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return asset.Asset{}, fmt.Errorf("%w: %v USD in %s", ErrInvalidPrice, usd, code)
	}
	return asset.FromAmount(code, precision, decimal.NewFromFloat(amount)), nil
}

// Weights turns a portfolio into variance legs, each holding's USD value
// divided by totalUsd.
func (s *Snapshot) Weights(p asset.Portfolio, totalUsd float64) ([]riskmath.Weight, error) {
	holdings := p.Assets()
	weights := make([]riskmath.Weight, 0, len(holdings))
	for _, a := range holdings {
		q, err := s.Quote(a.Code)
		if err != nil {
			return nil, err
		}
		weights = append(weights, riskmath.Weight{
			Symbol:   a.Code,
			Fraction: a.Float() * q.PriceUsd / totalUsd,
			Vol:      q.Vol,
		})
	}
	return weights, nil
}

// Variance is the correlated variance of p weighted against totalUsd. An
// empty portfolio or a non-positive total yields zero.
func (s *Snapshot) Variance(p asset.Portfolio, totalUsd float64) (float64, error) {
	if p.Len() == 0 || !(totalUsd > 0) {
		return 0, nil
	}
	weights, err := s.Weights(p, totalUsd)
	if err != nil {
		return 0, err
	}
	return riskmath.PortfolioVariance(weights, s)
}

// CheckSymmetric returns an error naming the first pair whose two
// directions differ by more than tol. Pairs quoted in one direction only are
// not checked.
func CheckSymmetric(quotes []model.MarketQuote, tol float64) error {
	idx := make(map[string]map[string]float64, len(quotes))
	syms := make([]string, 0, len(quotes))
	for _, q := range quotes {
		if _, seen := idx[q.Symbol]; !seen {
			syms = append(syms, q.Symbol)
		}
		idx[q.Symbol] = q.Correlation
	}
	sort.Strings(syms)

	for i, a := range syms {
		for _, b := range syms[i+1:] {
			ab, okA := idx[a][b]
			ba, okB := idx[b][a]
			if okA && okB && math.Abs(ab-ba) > tol {
				return fmt.Errorf("%w: %s/%s %v vs %v", ErrAsymmetricCorrelation, a, b, ab, ba)
			}
		}
	}
	return nil
}
