package pricing

import (
	"fmt"
	"math"

	"github.com/vigor/rate-engine/internal/model"
	"github.com/vigor/rate-engine/internal/riskmath"
)

// horizon is the payoff horizon T in years before HorizonScale applies.
const horizon = 1.0

// PriceVigorLoan prices the VIGOR-denominated book after applying delta:
// crypto collateral protects VIGOR debt, so the downside tail of the
// collateral portfolio is what the protocol insures.
//
// Degenerate arithmetic (zero debt, empty collateral, NaN or ±Inf anywhere)
// yields a zero quote rather than an error. A zero rate therefore does not
// mean the position is riskless.
func PriceVigorLoan(delta Delta, user model.UserRiskState, snap Snapshot) (model.RateQuote, error) {
	if err := validateVigorLegs(delta); err != nil {
		return model.RateQuote{}, err
	}
	cfg, _ := snap.Config.Normalized()

	newDebt := vigorUsd(vigorUnits(user.Debt).Add(vigorUnits(delta.Debt)))

	newCollateral := user.Collateral
	if delta.Collateral.Code != "" {
		newCollateral = newCollateral.Add(delta.Collateral)
	}
	deltaUsd, err := deltaValueUsd(snap.Market, delta.Collateral)
	if err != nil {
		return model.RateQuote{}, err
	}
	newValue := user.CollateralValueUsd + deltaUsd

	variance, err := snap.Market.Variance(newCollateral, newValue)
	if err != nil {
		return model.RateQuote{}, err
	}
	stress, err := riskmath.StressCollateral(variance, cfg.TailConfidence())
	if err != nil {
		return model.RateQuote{}, fmt.Errorf("pricing: stress transform: %w", err)
	}

	scale := cfg.Calibration() * snap.Globals.Scale
	ivol := math.Sqrt(variance) * scale
	istress := riskmath.ImpliedStress(stress, scale)

	payoff := math.Max(0, newDebt-newValue*(1-istress))
	h := horizon * cfg.HorizonScale()
	d := (math.Log(newValue/newDebt) - ivol*ivol/2*h) / (ivol * math.Sqrt(h))

	raw := riskmath.Clamp(riskmath.ExpectedPayoffRate(payoff, d, newDebt), cfg.MinRate(), cfg.MaxRate())
	return finish(raw, user.ReputationPct, cfg, newDebt), nil
}

// PriceCryptoLoan prices the crypto-denominated book after applying delta:
// VIGOR collateral (1:1 USD) protects a crypto debt portfolio, so the
// upside tail of the debt is what the protocol insures. Borrowing assets
// whose lendable pools are mostly lent out inflates the volatility scale.
//
// The monthly premium is computed on the VIGOR collateral leg.
func PriceCryptoLoan(delta Delta, user model.UserRiskState, snap Snapshot) (model.RateQuote, error) {
	if err := validateCryptoLegs(delta); err != nil {
		return model.RateQuote{}, err
	}
	cfg, _ := snap.Config.Normalized()

	newVigorCol := vigorUsd(vigorUnits(user.VigorCollateral).Add(vigorUnits(delta.Collateral)))

	newDebt := user.CryptoDebt
	if delta.Debt.Code != "" {
		newDebt = newDebt.Add(delta.Debt)
	}
	deltaUsd, err := deltaValueUsd(snap.Market, delta.Debt)
	if err != nil {
		return model.RateQuote{}, err
	}
	newDebtValue := user.CryptoDebtValueUsd + deltaUsd

	variance, err := snap.Market.Variance(newDebt, newDebtValue)
	if err != nil {
		return model.RateQuote{}, err
	}
	lstress, err := riskmath.LStressCollateral(variance, cfg.TailConfidence())
	if err != nil {
		return model.RateQuote{}, fmt.Errorf("pricing: stress transform: %w", err)
	}

	penalty, err := scarcity(newDebt.Assets(), newDebtValue, snap)
	if err != nil {
		return model.RateQuote{}, err
	}
	scale := riskmath.CryptoGlobalScale(cfg.Calibration(), snap.Globals.LScale, penalty)
	livol := math.Sqrt(variance) * scale
	listress := riskmath.LImpliedStress(lstress, scale)

	payoff := math.Max(0, newDebtValue*(1+listress)-newVigorCol)
	h := horizon * cfg.HorizonScale()
	d := (math.Log(newDebtValue/newVigorCol) - livol*livol/2*h) / (livol * math.Sqrt(h))

	raw := riskmath.Clamp(riskmath.ExpectedPayoffRate(payoff, -d, newDebtValue), cfg.MinRate(), cfg.MaxRate())
	return finish(raw, user.ReputationPct, cfg, newVigorCol), nil
}

// finish applies the reputation discount after the clamp and derives the
// monthly premium. Any non-finite value collapses the quote to zero.
func finish(raw, reputation float64, cfg model.ProtocolConfig, notional float64) model.RateQuote {
	rate := (1 - reputation*cfg.DiscountCap()) * raw
	if !riskmath.IsFinite(rate) {
		return model.RateQuote{}
	}
	premium := riskmath.MonthlyPremium(rate, notional)
	if !riskmath.IsFinite(premium) {
		return model.RateQuote{}
	}
	return model.RateQuote{Rate: rate, PremiumUsd: premium}
}
