package market

import (
	"errors"
	"math"
	"testing"

	"github.com/vigor/rate-engine/internal/asset"
	"github.com/vigor/rate-engine/internal/model"
)

func testSnapshot() *Snapshot {
	return NewSnapshot([]model.MarketQuote{
		{Symbol: "EOS", PriceUsd: 2.5, Vol: 0.8, Correlation: map[string]float64{"VIG": 0.4}},
		{Symbol: "VIG", PriceUsd: 0.001, Vol: 1.2, Correlation: map[string]float64{"EOS": 0.4}},
		{Symbol: "VIGOR", PriceUsd: 1, Vol: 0.05, Correlation: map[string]float64{}},
	})
}

func TestQuote_Missing(t *testing.T) {
	s := testSnapshot()
	if _, err := s.Quote("DOGE"); !errors.Is(err, ErrMissingQuote) {
		t.Errorf("expected ErrMissingQuote, got %v", err)
	}

	var nilSnap *Snapshot
	if _, err := nilSnap.Quote("EOS"); !errors.Is(err, ErrMissingQuote) {
		t.Errorf("nil snapshot should report missing quote, got %v", err)
	}
}

func TestCorrelation(t *testing.T) {
	s := testSnapshot()

	c, err := s.Correlation("EOS", "VIG")
	if err != nil || c != 0.4 {
		t.Errorf("expected 0.4, got %v (%v)", c, err)
	}
	if c, _ := s.Correlation("EOS", "EOS"); c != 1 {
		t.Errorf("self-correlation should be 1, got %v", c)
	}
	if _, err := s.Correlation("EOS", "VIGOR"); !errors.Is(err, ErrMissingCorrelation) {
		t.Errorf("expected ErrMissingCorrelation, got %v", err)
	}
	if _, err := s.Correlation("DOGE", "EOS"); !errors.Is(err, ErrMissingQuote) {
		t.Errorf("expected ErrMissingQuote, got %v", err)
	}
}

func TestValueUsd(t *testing.T) {
	s := testSnapshot()
	p := asset.NewPortfolio(asset.MustParse("40.0000 EOS"), asset.MustParse("1000.0000 VIG"))

	v, err := s.PortfolioValueUsd(p)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(v-101) > 1e-9 {
		t.Errorf("expected 101 USD, got %v", v)
	}

	bad := p.Add(asset.MustParse("1.0000 DOGE"))
	if _, err := s.PortfolioValueUsd(bad); !errors.Is(err, ErrMissingQuote) {
		t.Errorf("expected ErrMissingQuote, got %v", err)
	}
}

func TestToAsset_Truncates(t *testing.T) {
	s := testSnapshot()
	a, err := s.ToAsset(10, "EOS", 4)
	if err != nil {
		t.Fatal(err)
	}
	if a.String() != "4.0000 EOS" {
		t.Errorf("expected 4.0000 EOS, got %s", a)
	}

	a, _ = s.ToAsset(1, "EOS", 1)
	if a.String() != "0.4 EOS" {
		t.Errorf("expected 0.4 EOS, got %s", a)
	}

	zero := NewSnapshot([]model.MarketQuote{{Symbol: "EOS"}})
	if _, err := zero.ToAsset(1, "EOS", 4); !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("expected ErrInvalidPrice, got %v", err)
	}
}

func TestVariance_SingleAsset(t *testing.T) {
	s := testSnapshot()
	p := asset.NewPortfolio(asset.MustParse("40.0000 EOS"))

	v, err := s.Variance(p, 100)
	if err != nil {
		t.Fatal(err)
	}
	// weight 1, vol 0.8
	if math.Abs(v-0.64) > 1e-12 {
		t.Errorf("expected 0.64, got %v", v)
	}
}

func TestVariance_EmptyIsZero(t *testing.T) {
	s := testSnapshot()
	v, err := s.Variance(asset.Portfolio{}, 0)
	if err != nil || v != 0 {
		t.Errorf("expected 0, got %v (%v)", v, err)
	}
	v, err = s.Variance(asset.NewPortfolio(asset.MustParse("1.0000 EOS")), 0)
	if err != nil || v != 0 {
		t.Errorf("zero total should give 0, got %v (%v)", v, err)
	}
}

func TestVariance_MissingCorrelation(t *testing.T) {
	s := testSnapshot()
	p := asset.NewPortfolio(asset.MustParse("1.0000 EOS"), asset.MustParse("1.0000 VIGOR"))
	if _, err := s.Variance(p, 3.5); !errors.Is(err, ErrMissingCorrelation) {
		t.Errorf("expected ErrMissingCorrelation, got %v", err)
	}
}

func TestCheckSymmetric(t *testing.T) {
	good := []model.MarketQuote{
		{Symbol: "A", Correlation: map[string]float64{"B": 0.3}},
		{Symbol: "B", Correlation: map[string]float64{"A": 0.3}},
	}
	if err := CheckSymmetric(good, 1e-9); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	bad := []model.MarketQuote{
		{Symbol: "A", Correlation: map[string]float64{"B": 0.3}},
		{Symbol: "B", Correlation: map[string]float64{"A": 0.5}},
	}
	if err := CheckSymmetric(bad, 1e-9); !errors.Is(err, ErrAsymmetricCorrelation) {
		t.Errorf("expected ErrAsymmetricCorrelation, got %v", err)
	}
}

func TestQuotes_Sorted(t *testing.T) {
	qs := testSnapshot().Quotes()
	if len(qs) != 3 || qs[0].Symbol != "EOS" || qs[2].Symbol != "VIGOR" {
		t.Errorf("unexpected order: %+v", qs)
	}
}
