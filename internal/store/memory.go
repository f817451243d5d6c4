package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vigor/rate-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu        sync.RWMutex
	quotes    map[string]model.MarketQuote
	config    *model.ProtocolConfig
	whitelist map[string]model.WhitelistEntry
	globals   *model.GlobalStats
	users     map[string]model.UserRow
	records   []model.QuoteRecord
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		quotes:    make(map[string]model.MarketQuote),
		whitelist: make(map[string]model.WhitelistEntry),
		users:     make(map[string]model.UserRow),
	}
}

func (s *MemoryStore) UpsertMarketQuote(_ context.Context, q *model.MarketQuote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to avoid external mutation.
	s.quotes[q.Symbol] = copyQuote(*q)
	return nil
}

func (s *MemoryStore) ListMarketQuotes(_ context.Context) ([]model.MarketQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quotes := make([]model.MarketQuote, 0, len(s.quotes))
	for _, q := range s.quotes {
		quotes = append(quotes, copyQuote(q))
	}
	sort.Slice(quotes, func(i, j int) bool { return quotes[i].Symbol < quotes[j].Symbol })
	return quotes, nil
}

func (s *MemoryStore) GetProtocolConfig(_ context.Context) (*model.ProtocolConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.config == nil {
		return nil, fmt.Errorf("protocol config: %w", ErrNotFound)
	}
	cfg := *s.config
	return &cfg, nil
}

func (s *MemoryStore) SetProtocolConfig(_ context.Context, cfg *model.ProtocolConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *cfg
	s.config = &c
	return nil
}

func (s *MemoryStore) ListWhitelist(_ context.Context) (model.Whitelist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wl := make(model.Whitelist, 0, len(s.whitelist))
	for _, e := range s.whitelist {
		wl = append(wl, e)
	}
	sort.Slice(wl, func(i, j int) bool { return wl[i].Symbol < wl[j].Symbol })
	return wl, nil
}

func (s *MemoryStore) UpsertWhitelistEntry(_ context.Context, e *model.WhitelistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.whitelist[e.Symbol] = *e
	return nil
}

func (s *MemoryStore) GetGlobalStats(_ context.Context) (*model.GlobalStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.globals == nil {
		return nil, fmt.Errorf("global stats: %w", ErrNotFound)
	}
	g := *s.globals
	return &g, nil
}

func (s *MemoryStore) SetGlobalStats(_ context.Context, g *model.GlobalStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *g
	s.globals = &c
	return nil
}

func (s *MemoryStore) GetUserRow(_ context.Context, account string) (*model.UserRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.users[account]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", account, ErrNotFound)
	}
	row = copyUserRow(row)
	return &row, nil
}

func (s *MemoryStore) UpsertUserRow(_ context.Context, row *model.UserRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[row.Account] = copyUserRow(*row)
	return nil
}

func (s *MemoryStore) InsertQuoteRecord(_ context.Context, r *model.QuoteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, *r)
	return nil
}

func (s *MemoryStore) GetQuoteRecordsByAccount(_ context.Context, account string) ([]model.QuoteRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.QuoteRecord
	for _, r := range s.records {
		if r.Account == account {
			result = append(result, r)
		}
	}
	return result, nil
}

func copyQuote(q model.MarketQuote) model.MarketQuote {
	corr := make(map[string]float64, len(q.Correlation))
	for k, v := range q.Correlation {
		corr[k] = v
	}
	q.Correlation = corr
	return q
}

func copyUserRow(row model.UserRow) model.UserRow {
	row.Collateral = append([]string(nil), row.Collateral...)
	row.LCollateral = append([]string(nil), row.LCollateral...)
	return row
}
