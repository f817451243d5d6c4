package market

import (
	"fmt"
	"strings"
	"time"

	"github.com/vigor/rate-engine/internal/model"
)

// Oracle rows carry prices, volatility and correlations as integers
// scaled by 10^6.
const oraclePrecision = 1000000

// chainTimeLayout is the oracle timestamp format (UTC, no zone suffix).
const chainTimeLayout = "2006-01-02T15:04:05"

// DecodeRow converts an oracle row into a MarketQuote.
func DecodeRow(row model.MarketRow) (model.MarketQuote, error) {
	sym, err := symbolCode(row.Sym)
	if err != nil {
		return model.MarketQuote{}, err
	}
	if len(row.MarketData.Price) == 0 {
		return model.MarketQuote{}, fmt.Errorf("%w: %s has no price", ErrMalformedRow, row.Sym)
	}

	corr := make(map[string]float64, len(row.MarketData.CorrelationMatrix))
	for _, entry := range row.MarketData.CorrelationMatrix {
		other, err := symbolCode(entry.Key)
		if err != nil {
			return model.MarketQuote{}, err
		}
		corr[other] = float64(entry.Value) / oraclePrecision
	}

	q := model.MarketQuote{
		Symbol:      sym,
		PriceUsd:    float64(row.MarketData.Price[0]) / oraclePrecision,
		Vol:         float64(row.MarketData.Vol) / oraclePrecision,
		Correlation: corr,
	}
	if ts, err := time.Parse(chainTimeLayout, row.MarketData.Timestamp); err == nil {
		q.UpdatedAt = ts.UTC()
	} else if ts, err := time.Parse(time.RFC3339, row.MarketData.Timestamp); err == nil {
		q.UpdatedAt = ts.UTC()
	}
	return q, nil
}

// symbolCode extracts CODE from an EOSIO symbol "<precision>,<CODE>". A bare
// code is accepted as-is.
func symbolCode(sym string) (string, error) {
	code := sym
	if i := strings.IndexByte(sym, ','); i >= 0 {
		code = sym[i+1:]
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("%w: bad symbol %q", ErrMalformedRow, sym)
	}
	return code, nil
}
