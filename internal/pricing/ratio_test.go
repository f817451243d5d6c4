package pricing

import (
	"errors"
	"math"
	"testing"

	"github.com/vigor/rate-engine/internal/asset"
	"github.com/vigor/rate-engine/internal/market"
	"github.com/vigor/rate-engine/internal/model"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		name                   string
		col, dCol, debt, dDebt float64
		want                   float64
	}{
		{"plain", 150, 0, 100, 0, 1.5},
		{"with deltas", 100, 50, 80, 20, 1.5},
		{"no debt", 100, 0, 0, 0, 0},
		{"debt under epsilon", 100, 0, 0.0009, 0, 0},
		{"repaid to zero", 100, 0, 50, -50, 0},
		{"negative collateral floors", -10, 0, 100, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Ratio(tt.col, tt.dCol, tt.debt, tt.dDebt)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRatio_NeverInfOrNaN(t *testing.T) {
	for _, debt := range []float64{0, 1e-12, 0.000999, math.NaN()} {
		r := Ratio(100, 0, debt, 0)
		if r != 0 {
			t.Errorf("debt %v: expected exactly 0, got %v", debt, r)
		}
	}
}

func TestVigorCollateralRatio(t *testing.T) {
	user := vigorBorrower()
	user.Debt = asset.MustParse("50.0000 VIGOR")

	r, err := VigorCollateralRatio(borrowVigor("10.0000 VIGOR"), user, testSnapshot())
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(r-100.0/60.0) > 1e-12 {
		t.Errorf("expected %v, got %v", 100.0/60.0, r)
	}

	deposit := Delta{Collateral: asset.MustParse("20.0000 EOS"), Debt: asset.Zero(asset.VIGOR)}
	r, _ = VigorCollateralRatio(deposit, user, testSnapshot())
	if math.Abs(r-3) > 1e-12 {
		t.Errorf("expected 3, got %v", r)
	}
}

func TestVigorCollateralRatio_IgnoresVigorMarketPrice(t *testing.T) {
	user := vigorBorrower()
	user.Debt = asset.MustParse("50.0000 VIGOR")

	snap := testSnapshot()
	snap.Market = market.NewSnapshot([]model.MarketQuote{
		{Symbol: "EOS", PriceUsd: 2.5, Vol: 0.8},
		{Symbol: "VIGOR", PriceUsd: 0.9, Vol: 0.05},
	})
	r, err := VigorCollateralRatio(borrowVigor("0.0000 VIGOR"), user, snap)
	if err != nil {
		t.Fatal(err)
	}
	if r != 2 {
		t.Errorf("VIGOR debt must count 1:1, expected 2, got %v", r)
	}
}

func TestVigorCollateralRatio_NewAccountDepositOnly(t *testing.T) {
	user := model.UserRiskState{Account: "new", Debt: asset.Zero(asset.VIGOR)}
	deposit := Delta{Collateral: asset.MustParse("40.0000 EOS"), Debt: asset.Zero(asset.VIGOR)}

	r, err := VigorCollateralRatio(deposit, user, testSnapshot())
	if err != nil {
		t.Fatal(err)
	}
	if r != 0 {
		t.Errorf("no debt should give ratio 0, got %v", r)
	}
}

func TestCryptoCollateralRatio(t *testing.T) {
	delta := Delta{Collateral: asset.Zero(asset.VIGOR), Debt: asset.MustParse("4.0000 EOS")}
	r, err := CryptoCollateralRatio(delta, cryptoBorrower(), testSnapshot())
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(r-100.0/90.0) > 1e-12 {
		t.Errorf("expected %v, got %v", 100.0/90.0, r)
	}

	topUp := Delta{Collateral: asset.MustParse("60.0000 VIGOR"), Debt: asset.Zero(asset.VIG)}
	r, _ = CryptoCollateralRatio(topUp, cryptoBorrower(), testSnapshot())
	if math.Abs(r-2) > 1e-12 {
		t.Errorf("expected 2, got %v", r)
	}
}

func TestCryptoCollateralRatio_MissingQuote(t *testing.T) {
	delta := Delta{Collateral: asset.Zero(asset.VIGOR), Debt: asset.MustParse("1.0000 DOGE")}
	if _, err := CryptoCollateralRatio(delta, cryptoBorrower(), testSnapshot()); !errors.Is(err, market.ErrMissingQuote) {
		t.Errorf("expected ErrMissingQuote, got %v", err)
	}
}
