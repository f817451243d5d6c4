package pricing

import (
	"errors"
	"math"
	"testing"

	"github.com/vigor/rate-engine/internal/asset"
	"github.com/vigor/rate-engine/internal/market"
	"github.com/vigor/rate-engine/internal/model"
)

func testSnapshotWithVol(eosVol float64) Snapshot {
	return Snapshot{
		Market: market.NewSnapshot([]model.MarketQuote{
			{Symbol: "EOS", PriceUsd: 2.5, Vol: eosVol, Correlation: map[string]float64{"VIG": 0.4, "VIGOR": 0}},
			{Symbol: "VIG", PriceUsd: 0.001, Vol: 1.2, Correlation: map[string]float64{"EOS": 0.4, "VIGOR": 0}},
			{Symbol: "VIGOR", PriceUsd: 1, Vol: 0.05, Correlation: map[string]float64{"EOS": 0, "VIG": 0}},
		}),
		Config:    model.DefaultProtocolConfig(),
		Globals:   model.DefaultGlobalStats(),
		Whitelist: model.DefaultWhitelist(),
	}
}

func testSnapshot() Snapshot { return testSnapshotWithVol(0.8) }

// vigorBorrower holds 40 EOS (100 USD) against no debt yet.
func vigorBorrower() model.UserRiskState {
	return model.UserRiskState{
		Account:            "alice",
		Collateral:         asset.NewPortfolio(asset.MustParse("40.0000 EOS")),
		CollateralValueUsd: 100,
		Debt:               asset.Zero(asset.VIGOR),
		VigorCollateral:    asset.Zero(asset.VIGOR),
	}
}

// cryptoBorrower holds 100 VIGOR against 32 EOS (80 USD) of debt.
func cryptoBorrower() model.UserRiskState {
	return model.UserRiskState{
		Account:            "bob",
		Debt:               asset.Zero(asset.VIGOR),
		VigorCollateral:    asset.MustParse("100.0000 VIGOR"),
		CryptoDebt:         asset.NewPortfolio(asset.MustParse("32.0000 EOS")),
		CryptoDebtValueUsd: 80,
	}
}

func borrowVigor(amount string) Delta {
	return Delta{Collateral: asset.Zero(asset.VIG), Debt: asset.MustParse(amount)}
}

func TestPriceVigorLoan_ReferenceValue(t *testing.T) {
	q, err := PriceVigorLoan(borrowVigor("90.0000 VIGOR"), vigorBorrower(), testSnapshot())
	if err != nil {
		t.Fatal(err)
	}
	// Hand-evaluated: stress 0.754, implied stress 0.675, payoff 57.5, d -0.102.
	if math.Abs(q.Rate-0.345) > 0.01 {
		t.Errorf("expected rate ≈ 0.345, got %v", q.Rate)
	}
	wantPremium := (math.Pow(1+q.Rate, 1.0/12.0) - 1) * 90
	if math.Abs(q.PremiumUsd-wantPremium) > 1e-9 {
		t.Errorf("expected premium %v, got %v", wantPremium, q.PremiumUsd)
	}
}

func TestPriceVigorLoan_ZeroDebtFallback(t *testing.T) {
	delta := Delta{Collateral: asset.MustParse("40.0000 EOS"), Debt: asset.Zero(asset.VIGOR)}
	user := model.UserRiskState{Account: "new", Debt: asset.Zero(asset.VIGOR)}

	q, err := PriceVigorLoan(delta, user, testSnapshot())
	if err != nil {
		t.Fatal(err)
	}
	if q.Rate != 0 || q.PremiumUsd != 0 {
		t.Errorf("zero debt should give a zero quote, got %+v", q)
	}
}

func TestPriceVigorLoan_NewAccountWithinBand(t *testing.T) {
	// Empty account depositing 100 USD of EOS and borrowing a little VIGOR.
	delta := Delta{Collateral: asset.MustParse("40.0000 EOS"), Debt: asset.MustParse("10.0000 VIGOR")}
	user := model.UserRiskState{Account: "new", Debt: asset.Zero(asset.VIGOR)}
	snap := testSnapshot()

	q, err := PriceVigorLoan(delta, user, snap)
	if err != nil {
		t.Fatal(err)
	}
	if q.Rate < snap.Config.MinRate() || q.Rate >= snap.Config.MaxRate() {
		t.Errorf("rate %v outside [%v, %v)", q.Rate, snap.Config.MinRate(), snap.Config.MaxRate())
	}
}

func TestPriceVigorLoan_ClampWithoutReputation(t *testing.T) {
	snap := testSnapshot()
	for _, debt := range []string{"0.0100 VIGOR", "1.0000 VIGOR", "50.0000 VIGOR", "90.0000 VIGOR", "100.0000 VIGOR", "1000.0000 VIGOR"} {
		q, err := PriceVigorLoan(borrowVigor(debt), vigorBorrower(), snap)
		if err != nil {
			t.Fatal(err)
		}
		if q.Rate < snap.Config.MinRate() || q.Rate > snap.Config.MaxRate() {
			t.Errorf("debt %s: rate %v outside [%v, %v]", debt, q.Rate, snap.Config.MinRate(), snap.Config.MaxRate())
		}
	}
}

func TestPriceVigorLoan_DiscountIsLinear(t *testing.T) {
	snap := testSnapshot()
	user := vigorBorrower()
	base, err := PriceVigorLoan(borrowVigor("90.0000 VIGOR"), user, snap)
	if err != nil {
		t.Fatal(err)
	}

	user.ReputationPct = 1
	disc, err := PriceVigorLoan(borrowVigor("90.0000 VIGOR"), user, snap)
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(disc.Rate-0.75*base.Rate) > 1e-12 {
		t.Errorf("expected %v, got %v", 0.75*base.Rate, disc.Rate)
	}
	if disc.Rate > snap.Config.MaxRate() {
		t.Errorf("discounted rate above max: %v", disc.Rate)
	}
}

func TestPriceVigorLoan_MonotonicInVol(t *testing.T) {
	prev := -1.0
	for _, vol := range []float64{0.1, 0.2, 0.4, 0.6, 0.8, 1.0, 1.5} {
		q, err := PriceVigorLoan(borrowVigor("90.0000 VIGOR"), vigorBorrower(), testSnapshotWithVol(vol))
		if err != nil {
			t.Fatal(err)
		}
		if q.Rate < prev {
			t.Errorf("vol %v: rate %v dropped below %v", vol, q.Rate, prev)
		}
		prev = q.Rate
	}
}

func TestPriceVigorLoan_Deterministic(t *testing.T) {
	snap := testSnapshot()
	a, _ := PriceVigorLoan(borrowVigor("90.0000 VIGOR"), vigorBorrower(), snap)
	b, _ := PriceVigorLoan(borrowVigor("90.0000 VIGOR"), vigorBorrower(), snap)
	if a != b {
		t.Errorf("identical inputs gave %+v and %+v", a, b)
	}
}

func TestPriceVigorLoan_MissingQuote(t *testing.T) {
	delta := Delta{Collateral: asset.MustParse("1.0000 DOGE"), Debt: asset.MustParse("10.0000 VIGOR")}
	_, err := PriceVigorLoan(delta, vigorBorrower(), testSnapshot())
	if !errors.Is(err, market.ErrMissingQuote) {
		t.Errorf("expected ErrMissingQuote, got %v", err)
	}
}

func TestPriceVigorLoan_InvalidLeg(t *testing.T) {
	delta := Delta{Collateral: asset.Zero(asset.VIG), Debt: asset.MustParse("1.0000 EOS")}
	if _, err := PriceVigorLoan(delta, vigorBorrower(), testSnapshot()); !errors.Is(err, ErrInvalidLeg) {
		t.Errorf("expected ErrInvalidLeg, got %v", err)
	}
}

func TestPriceVigorLoan_ConfigFallback(t *testing.T) {
	snap := testSnapshot()
	want, _ := PriceVigorLoan(borrowVigor("90.0000 VIGOR"), vigorBorrower(), snap)

	snap.Config = model.ProtocolConfig{MinTesPrice: 50, MaxDisc: 25, AlphaTest: -1}
	got, err := PriceVigorLoan(borrowVigor("90.0000 VIGOR"), vigorBorrower(), snap)
	if err != nil {
		t.Fatalf("invalid config must not fail pricing: %v", err)
	}
	if got != want {
		t.Errorf("expected default-config quote %+v, got %+v", want, got)
	}
}

func TestPriceCryptoLoan_ClampsScarceDebt(t *testing.T) {
	snap := testSnapshot()
	delta := Delta{Collateral: asset.Zero(asset.VIGOR), Debt: asset.Zero(asset.VIG)}

	q, err := PriceCryptoLoan(delta, cryptoBorrower(), snap)
	if err != nil {
		t.Fatal(err)
	}
	if q.Rate != snap.Config.MaxRate() {
		t.Errorf("expected rate clamped to %v, got %v", snap.Config.MaxRate(), q.Rate)
	}
	// Premium is charged on the 100 VIGOR collateral leg.
	wantPremium := (math.Pow(1.5, 1.0/12.0) - 1) * 100
	if math.Abs(q.PremiumUsd-wantPremium) > 1e-9 {
		t.Errorf("expected premium %v, got %v", wantPremium, q.PremiumUsd)
	}
}

func TestPriceCryptoLoan_ReferenceValue(t *testing.T) {
	user := cryptoBorrower()
	user.CryptoDebt = asset.NewPortfolio(asset.MustParse("36.0000 EOS"))
	user.CryptoDebtValueUsd = 90
	user.ReputationPct = 0.4
	delta := Delta{Collateral: asset.Zero(asset.VIGOR), Debt: asset.Zero(asset.VIG)}

	snap := testSnapshot()
	snap.Globals.LScale = 0.3
	snap.Whitelist = model.Whitelist{{Symbol: "EOS", LentPct: 0.2}}

	q, err := PriceCryptoLoan(delta, user, snap)
	if err != nil {
		t.Fatal(err)
	}
	// Hand-evaluated: scale 0.26, implied stress 0.4404, payoff 29.64,
	// d -0.6594, undiscounted rate 0.08393.
	if math.Abs(q.Rate-0.0755338) > 1e-6 {
		t.Errorf("expected rate ≈ 0.0755338, got %v", q.Rate)
	}
	if math.Abs(q.PremiumUsd-0.608654) > 1e-6 {
		t.Errorf("expected premium ≈ 0.608654, got %v", q.PremiumUsd)
	}
}

func TestPriceCryptoLoan_ScarcityRaisesRate(t *testing.T) {
	user := cryptoBorrower()
	user.VigorCollateral = asset.MustParse("300.0000 VIGOR")
	delta := Delta{Collateral: asset.Zero(asset.VIGOR), Debt: asset.Zero(asset.VIG)}

	snap := testSnapshot()
	snap.Whitelist = model.Whitelist{{Symbol: "EOS", LentPct: 0}}
	plenty, err := PriceCryptoLoan(delta, user, snap)
	if err != nil {
		t.Fatal(err)
	}

	snap.Whitelist = model.Whitelist{{Symbol: "EOS", LentPct: 1}}
	scarce, err := PriceCryptoLoan(delta, user, snap)
	if err != nil {
		t.Fatal(err)
	}
	if scarce.Rate < plenty.Rate {
		t.Errorf("scarce pool rate %v should not be below %v", scarce.Rate, plenty.Rate)
	}
}

func TestPriceCryptoLoan_NoDebtIsZero(t *testing.T) {
	user := model.UserRiskState{Account: "c", VigorCollateral: asset.MustParse("100.0000 VIGOR")}
	delta := Delta{Collateral: asset.Zero(asset.VIGOR), Debt: asset.Zero(asset.VIG)}

	q, err := PriceCryptoLoan(delta, user, testSnapshot())
	if err != nil {
		t.Fatal(err)
	}
	if q != (model.RateQuote{}) {
		t.Errorf("expected zero quote, got %+v", q)
	}
}

func TestPriceCryptoLoan_MissingWhitelist(t *testing.T) {
	snap := testSnapshot()
	snap.Whitelist = nil
	delta := Delta{Collateral: asset.Zero(asset.VIGOR), Debt: asset.MustParse("4.0000 EOS")}

	if _, err := PriceCryptoLoan(delta, cryptoBorrower(), snap); !errors.Is(err, ErrMissingWhitelist) {
		t.Errorf("expected ErrMissingWhitelist, got %v", err)
	}
}

func TestPriceCryptoLoan_InvalidLeg(t *testing.T) {
	delta := Delta{Collateral: asset.MustParse("1.0000 EOS"), Debt: asset.Zero(asset.VIG)}
	if _, err := PriceCryptoLoan(delta, cryptoBorrower(), testSnapshot()); !errors.Is(err, ErrInvalidLeg) {
		t.Errorf("expected ErrInvalidLeg, got %v", err)
	}
}
