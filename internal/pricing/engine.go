package pricing

import (
	"github.com/vigor/rate-engine/internal/asset"
	"github.com/vigor/rate-engine/internal/model"
)

// Request is one user action to price against a snapshot.
type Request struct {
	User      model.UserRiskState
	Loan      LoanType
	Direction Direction
	Amount    asset.Asset // unsigned; Direction supplies the sign
	Snapshot  Snapshot
}

// Result is the priced action.
type Result struct {
	Loan            LoanType        `json:"loan_type"`
	Direction       Direction       `json:"action"`
	Delta           Delta           `json:"delta"`
	Quote           model.RateQuote `json:"quote"`
	CollateralRatio float64         `json:"collateral_ratio"` // after the action
	ConfigFallback  bool            `json:"config_fallback"`  // some config field was replaced by its default
}

// Engine resolves an action into a delta and prices it on the matching
// book. The zero value is ready to use.
type Engine struct{}

// Quote prices req. Missing market or whitelist data is an error;
// degenerate arithmetic is a zero quote.
func (Engine) Quote(req Request) (Result, error) {
	delta, err := ResolveDelta(req.Loan, req.Direction, req.Amount)
	if err != nil {
		return Result{}, err
	}

	_, fallback := req.Snapshot.Config.Normalized()
	res := Result{
		Loan:           req.Loan,
		Direction:      req.Direction,
		Delta:          delta,
		ConfigFallback: fallback,
	}

	switch req.Loan {
	case LoanCrypto:
		if res.Quote, err = PriceCryptoLoan(delta, req.User, req.Snapshot); err != nil {
			return Result{}, err
		}
		if res.CollateralRatio, err = CryptoCollateralRatio(delta, req.User, req.Snapshot); err != nil {
			return Result{}, err
		}
	default:
		if res.Quote, err = PriceVigorLoan(delta, req.User, req.Snapshot); err != nil {
			return Result{}, err
		}
		if res.CollateralRatio, err = VigorCollateralRatio(delta, req.User, req.Snapshot); err != nil {
			return Result{}, err
		}
	}
	return res, nil
}
