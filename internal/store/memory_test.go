package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vigor/rate-engine/internal/model"
)

func TestMemoryStore_MarketQuotes(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	q := &model.MarketQuote{Symbol: "VIG", PriceUsd: 0.001, Vol: 1.2, Correlation: map[string]float64{"EOS": 0.4}}
	if err := s.UpsertMarketQuote(ctx, q); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertMarketQuote(ctx, &model.MarketQuote{Symbol: "EOS", PriceUsd: 2.5, Vol: 0.8}); err != nil {
		t.Fatal(err)
	}

	// Mutating the caller's map must not leak into the store.
	q.Correlation["EOS"] = 0.9

	quotes, err := s.ListMarketQuotes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(quotes) != 2 || quotes[0].Symbol != "EOS" {
		t.Fatalf("expected 2 quotes ordered by symbol, got %+v", quotes)
	}
	if quotes[1].Correlation["EOS"] != 0.4 {
		t.Errorf("stored correlation mutated: %v", quotes[1].Correlation)
	}

	// Upsert replaces.
	s.UpsertMarketQuote(ctx, &model.MarketQuote{Symbol: "EOS", PriceUsd: 3})
	quotes, _ = s.ListMarketQuotes(ctx)
	if len(quotes) != 2 || quotes[0].PriceUsd != 3 {
		t.Errorf("expected replaced EOS quote, got %+v", quotes)
	}
}

func TestMemoryStore_Singletons(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.GetProtocolConfig(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetGlobalStats(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	cfg := model.DefaultProtocolConfig()
	s.SetProtocolConfig(ctx, &cfg)
	got, err := s.GetProtocolConfig(ctx)
	if err != nil || *got != cfg {
		t.Errorf("expected stored config, got %+v (%v)", got, err)
	}

	g := model.GlobalStats{Scale: 1.2, LScale: 0.9, UpdatedAt: time.Now()}
	s.SetGlobalStats(ctx, &g)
	gs, err := s.GetGlobalStats(ctx)
	if err != nil || gs.Scale != 1.2 {
		t.Errorf("expected stored globals, got %+v (%v)", gs, err)
	}
}

func TestMemoryStore_Whitelist(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for _, e := range model.DefaultWhitelist() {
		e := e
		s.UpsertWhitelistEntry(ctx, &e)
	}

	wl, err := s.ListWhitelist(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(wl) != 6 || wl[0].Symbol != "EOS" {
		t.Errorf("expected 6 entries ordered by symbol, got %+v", wl)
	}
}

func TestMemoryStore_UserRows(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.GetUserRow(ctx, "alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	row := &model.UserRow{Account: "alice", Debt: "10.0000 VIGOR", Collateral: []string{"40.0000 EOS"}}
	s.UpsertUserRow(ctx, row)
	row.Collateral[0] = "1.0000 EOS"

	got, err := s.GetUserRow(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if got.Collateral[0] != "40.0000 EOS" {
		t.Errorf("stored row mutated: %v", got.Collateral)
	}
}

func TestMemoryStore_QuoteRecords(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	s.InsertQuoteRecord(ctx, &model.QuoteRecord{ID: "1", Account: "alice"})
	s.InsertQuoteRecord(ctx, &model.QuoteRecord{ID: "2", Account: "bob"})
	s.InsertQuoteRecord(ctx, &model.QuoteRecord{ID: "3", Account: "alice"})

	records, err := s.GetQuoteRecordsByAccount(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[0].ID != "1" || records[1].ID != "3" {
		t.Errorf("unexpected records %+v", records)
	}
}
