package ledger

import (
	"errors"
	"math"
	"testing"

	"github.com/vigor/rate-engine/internal/asset"
	"github.com/vigor/rate-engine/internal/market"
	"github.com/vigor/rate-engine/internal/model"
)

func TestDecodeUser(t *testing.T) {
	row := model.UserRow{
		Account:       "alice",
		Debt:          "90.0000 VIGOR",
		Collateral:    []string{"40.0000 EOS", "600.0000000000 VIG"},
		ValueOfCol:    "100.6",
		LDebt:         "100.0000 VIGOR",
		LCollateral:   []string{"32.0000 EOS"},
		LValueOfCol:   "80",
		ReputationPct: 0.4,
	}

	s, err := DecodeUser(row)
	if err != nil {
		t.Fatal(err)
	}
	if s.Debt.String() != "90.0000 VIGOR" {
		t.Errorf("unexpected debt %s", s.Debt)
	}
	vig, ok := s.Collateral.Get(asset.VIG)
	if !ok || vig.String() != "600.0000 VIG" {
		t.Errorf("VIG should be renormalized to 4 decimals, got %s", vig)
	}
	if s.CollateralValueUsd != 100.6 || s.CryptoDebtValueUsd != 80 {
		t.Errorf("unexpected USD values %v / %v", s.CollateralValueUsd, s.CryptoDebtValueUsd)
	}
	if s.VigorCollateral.String() != "100.0000 VIGOR" {
		t.Errorf("unexpected VIGOR collateral %s", s.VigorCollateral)
	}
	if s.ReputationPct != 0.4 {
		t.Errorf("unexpected reputation %v", s.ReputationPct)
	}
}

func TestDecodeUser_EmptyLegs(t *testing.T) {
	s, err := DecodeUser(model.UserRow{Account: "bob"})
	if err != nil {
		t.Fatal(err)
	}
	if s.Debt.String() != "0.0000 VIGOR" || s.VigorCollateral.String() != "0.0000 VIGOR" {
		t.Errorf("missing legs should decode to zero VIGOR, got %s / %s", s.Debt, s.VigorCollateral)
	}
	if s.Collateral.Len() != 0 || s.CryptoDebt.Len() != 0 {
		t.Error("expected empty portfolios")
	}
}

func TestDecodeUser_Invalid(t *testing.T) {
	tests := []struct {
		name string
		row  model.UserRow
	}{
		{"bad collateral", model.UserRow{Collateral: []string{"lots of EOS"}}},
		{"debt not VIGOR", model.UserRow{Debt: "1.0000 EOS"}},
		{"bad valueofcol", model.UserRow{ValueOfCol: "abc"}},
		{"bad l_debt", model.UserRow{LDebt: "1.0000 VIG"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeUser(tt.row); !errors.Is(err, ErrInvalidRow) {
				t.Errorf("expected ErrInvalidRow, got %v", err)
			}
		})
	}
}

func TestDecodeUser_ClampsReputation(t *testing.T) {
	s, _ := DecodeUser(model.UserRow{ReputationPct: 1.7})
	if s.ReputationPct != 1 {
		t.Errorf("expected 1, got %v", s.ReputationPct)
	}
	s, _ = DecodeUser(model.UserRow{ReputationPct: -0.2})
	if s.ReputationPct != 0 {
		t.Errorf("expected 0, got %v", s.ReputationPct)
	}
}

func TestHypothetical(t *testing.T) {
	snap := market.NewSnapshot([]model.MarketQuote{
		{Symbol: "EOS", PriceUsd: 2.5, Vol: 0.8},
		{Symbol: "VIG", PriceUsd: 0.001, Vol: 1.2},
	})

	s, err := Hypothetical(
		[]asset.Asset{asset.MustParse("40.0000 EOS"), asset.MustParse("50.0000 VIGOR")},
		[]asset.Asset{asset.MustParse("2000.0000 VIG")},
		0.5, snap,
	)
	if err != nil {
		t.Fatal(err)
	}
	if s.Collateral.Len() != 1 {
		t.Errorf("VIGOR must not sit in the crypto collateral: %v", s.Collateral)
	}
	if s.VigorCollateral.String() != "50.0000 VIGOR" {
		t.Errorf("unexpected VIGOR collateral %s", s.VigorCollateral)
	}
	if math.Abs(s.CollateralValueUsd-100) > 1e-9 || math.Abs(s.CryptoDebtValueUsd-2) > 1e-9 {
		t.Errorf("unexpected values %v / %v", s.CollateralValueUsd, s.CryptoDebtValueUsd)
	}
	if !s.Debt.IsZero() || s.Debt.Code != asset.VIGOR {
		t.Errorf("hypothetical account starts without VIGOR debt, got %s", s.Debt)
	}
}

func TestHypothetical_SumsVigorCollateral(t *testing.T) {
	snap := market.NewSnapshot([]model.MarketQuote{{Symbol: "EOS", PriceUsd: 2.5, Vol: 0.8}})

	s, err := Hypothetical(
		[]asset.Asset{asset.MustParse("50.0000 VIGOR"), asset.MustParse("4.0000 EOS"), asset.MustParse("25.5000 VIGOR")},
		nil, 0, snap,
	)
	if err != nil {
		t.Fatal(err)
	}
	if s.VigorCollateral.String() != "75.5000 VIGOR" {
		t.Errorf("expected 75.5000 VIGOR, got %s", s.VigorCollateral)
	}

	s, err = Hypothetical([]asset.Asset{asset.MustParse("4.0000 EOS")}, nil, 0, snap)
	if err != nil {
		t.Fatal(err)
	}
	if !s.VigorCollateral.IsZero() || s.VigorCollateral.Code != asset.VIGOR {
		t.Errorf("expected zero VIGOR collateral, got %s", s.VigorCollateral)
	}
}

func TestHypothetical_MissingQuote(t *testing.T) {
	snap := market.NewSnapshot(nil)
	_, err := Hypothetical([]asset.Asset{asset.MustParse("1.0000 EOS")}, nil, 0, snap)
	if !errors.Is(err, market.ErrMissingQuote) {
		t.Errorf("expected ErrMissingQuote, got %v", err)
	}
}

func TestNewAccount(t *testing.T) {
	s := NewAccount("carol")
	if s.Account != "carol" || !s.Debt.IsZero() || s.Collateral.Len() != 0 {
		t.Errorf("unexpected new account %+v", s)
	}
}
