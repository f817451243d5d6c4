package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vigor/rate-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary.
//
// Every pricing call reads market quotes, config, whitelist and globals,
// so those are the cached keys. The quote log is never cached.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) UpsertMarketQuote(ctx context.Context, q *model.MarketQuote) error {
	if err := s.primary.UpsertMarketQuote(ctx, q); err != nil {
		return err
	}
	s.rdb.Del(ctx, marketKey)
	return nil
}

func (s *CachedStore) SetProtocolConfig(ctx context.Context, cfg *model.ProtocolConfig) error {
	if err := s.primary.SetProtocolConfig(ctx, cfg); err != nil {
		return err
	}
	s.cache(ctx, configKey, cfg)
	return nil
}

func (s *CachedStore) UpsertWhitelistEntry(ctx context.Context, e *model.WhitelistEntry) error {
	if err := s.primary.UpsertWhitelistEntry(ctx, e); err != nil {
		return err
	}
	s.rdb.Del(ctx, whitelistKey)
	return nil
}

func (s *CachedStore) SetGlobalStats(ctx context.Context, g *model.GlobalStats) error {
	if err := s.primary.SetGlobalStats(ctx, g); err != nil {
		return err
	}
	s.cache(ctx, globalsKey, g)
	return nil
}

func (s *CachedStore) UpsertUserRow(ctx context.Context, row *model.UserRow) error {
	if err := s.primary.UpsertUserRow(ctx, row); err != nil {
		return err
	}
	// Invalidate; next read will re-populate.
	s.rdb.Del(ctx, userKey(row.Account))
	return nil
}

func (s *CachedStore) InsertQuoteRecord(ctx context.Context, r *model.QuoteRecord) error {
	return s.primary.InsertQuoteRecord(ctx, r)
}

// --- Read-through (check cache first) ---

func (s *CachedStore) ListMarketQuotes(ctx context.Context) ([]model.MarketQuote, error) {
	var quotes []model.MarketQuote
	if s.lookup(ctx, marketKey, &quotes) {
		return quotes, nil
	}

	// Cache miss: read from primary.
	quotes, err := s.primary.ListMarketQuotes(ctx)
	if err != nil {
		return nil, err
	}
	s.cache(ctx, marketKey, quotes)
	return quotes, nil
}

func (s *CachedStore) GetProtocolConfig(ctx context.Context) (*model.ProtocolConfig, error) {
	var cfg model.ProtocolConfig
	if s.lookup(ctx, configKey, &cfg) {
		return &cfg, nil
	}

	c, err := s.primary.GetProtocolConfig(ctx)
	if err != nil {
		return nil, err
	}
	s.cache(ctx, configKey, c)
	return c, nil
}

func (s *CachedStore) ListWhitelist(ctx context.Context) (model.Whitelist, error) {
	var wl model.Whitelist
	if s.lookup(ctx, whitelistKey, &wl) {
		return wl, nil
	}

	wl, err := s.primary.ListWhitelist(ctx)
	if err != nil {
		return nil, err
	}
	s.cache(ctx, whitelistKey, wl)
	return wl, nil
}

func (s *CachedStore) GetGlobalStats(ctx context.Context) (*model.GlobalStats, error) {
	var g model.GlobalStats
	if s.lookup(ctx, globalsKey, &g) {
		return &g, nil
	}

	stats, err := s.primary.GetGlobalStats(ctx)
	if err != nil {
		return nil, err
	}
	s.cache(ctx, globalsKey, stats)
	return stats, nil
}

func (s *CachedStore) GetUserRow(ctx context.Context, account string) (*model.UserRow, error) {
	var row model.UserRow
	if s.lookup(ctx, userKey(account), &row) {
		return &row, nil
	}

	r, err := s.primary.GetUserRow(ctx, account)
	if err != nil {
		return nil, err
	}
	s.cache(ctx, userKey(account), r)
	return r, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) GetQuoteRecordsByAccount(ctx context.Context, account string) ([]model.QuoteRecord, error) {
	return s.primary.GetQuoteRecordsByAccount(ctx, account)
}

// --- Cache helpers ---

// lookup decodes key into dst and reports whether it was a usable hit.
func (s *CachedStore) lookup(ctx context.Context, key string, dst any) bool {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *CachedStore) cache(ctx context.Context, key string, v any) {
	if data, err := json.Marshal(v); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
}

const (
	marketKey    = "market:quotes"
	configKey    = "protocol:config"
	whitelistKey = "protocol:whitelist"
	globalsKey   = "protocol:globals"
)

func userKey(account string) string { return fmt.Sprintf("user:%s", account) }
