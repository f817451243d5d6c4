// Package store defines the persistence interface for the rate engine's
// data providers: market quotes, protocol configuration, the lending
// whitelist, global statistics, user ledger rows and the quote audit log.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/vigor/rate-engine/internal/model"
)

// ErrNotFound is returned when a row or singleton has not been written yet.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
type Store interface {
	// --- Market data ---

	// UpsertMarketQuote inserts or replaces the quote for q.Symbol.
	UpsertMarketQuote(ctx context.Context, q *model.MarketQuote) error

	// ListMarketQuotes returns every stored quote ordered by symbol.
	ListMarketQuotes(ctx context.Context) ([]model.MarketQuote, error)

	// --- Protocol parameters ---

	// GetProtocolConfig returns the current config row, or ErrNotFound.
	GetProtocolConfig(ctx context.Context) (*model.ProtocolConfig, error)

	// SetProtocolConfig replaces the config row.
	SetProtocolConfig(ctx context.Context, cfg *model.ProtocolConfig) error

	// ListWhitelist returns the lending whitelist ordered by symbol.
	ListWhitelist(ctx context.Context) (model.Whitelist, error)

	// UpsertWhitelistEntry inserts or replaces the row for e.Symbol.
	UpsertWhitelistEntry(ctx context.Context, e *model.WhitelistEntry) error

	// GetGlobalStats returns the protocol-wide statistics, or ErrNotFound.
	GetGlobalStats(ctx context.Context) (*model.GlobalStats, error)

	// SetGlobalStats replaces the protocol-wide statistics.
	SetGlobalStats(ctx context.Context, g *model.GlobalStats) error

	// --- User ledger ---

	// GetUserRow returns the ledger row of account, or ErrNotFound.
	GetUserRow(ctx context.Context, account string) (*model.UserRow, error)

	// UpsertUserRow inserts or replaces the ledger row of row.Account.
	UpsertUserRow(ctx context.Context, row *model.UserRow) error

	// --- Immutable quote log ---

	// InsertQuoteRecord appends an issued quote.
	InsertQuoteRecord(ctx context.Context, r *model.QuoteRecord) error

	// GetQuoteRecordsByAccount returns the quotes issued to account, oldest first.
	GetQuoteRecordsByAccount(ctx context.Context, account string) ([]model.QuoteRecord, error)
}
