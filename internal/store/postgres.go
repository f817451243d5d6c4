package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/vigor/rate-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// USD aggregates of the user ledger are stored as NUMERIC for exact decimal
// precision; token amounts keep their wire form ("100.0000 EOS").
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *PostgresStore) UpsertMarketQuote(ctx context.Context, q *model.MarketQuote) error {
	corr, err := json.Marshal(q.Correlation)
	if err != nil {
		return fmt.Errorf("encode correlation %s: %w", q.Symbol, err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO market_quotes (symbol, price_usd, vol, correlation, updated_at)
		 VALUES ($1, $2, $3, $4::JSONB, $5)
		 ON CONFLICT (symbol) DO UPDATE
		 SET price_usd = EXCLUDED.price_usd, vol = EXCLUDED.vol,
		     correlation = EXCLUDED.correlation, updated_at = EXCLUDED.updated_at`,
		q.Symbol, q.PriceUsd, q.Vol, string(corr), q.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) ListMarketQuotes(ctx context.Context) ([]model.MarketQuote, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT symbol, price_usd, vol, correlation::TEXT, updated_at
		 FROM market_quotes ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotes []model.MarketQuote
	for rows.Next() {
		var q model.MarketQuote
		var corr string
		if err := rows.Scan(&q.Symbol, &q.PriceUsd, &q.Vol, &corr, &q.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(corr), &q.Correlation); err != nil {
			return nil, fmt.Errorf("decode correlation %s: %w", q.Symbol, err)
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

func (s *PostgresStore) GetProtocolConfig(ctx context.Context) (*model.ProtocolConfig, error) {
	var raw string
	err := s.pool.QueryRow(ctx, `SELECT config::TEXT FROM protocol_config WHERE id = 1`).Scan(&raw)
	if err != nil {
		return nil, notFound("protocol config", err)
	}
	var cfg model.ProtocolConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("decode protocol config: %w", err)
	}
	return &cfg, nil
}

func (s *PostgresStore) SetProtocolConfig(ctx context.Context, cfg *model.ProtocolConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO protocol_config (id, config, updated_at) VALUES (1, $1::JSONB, NOW())
		 ON CONFLICT (id) DO UPDATE SET config = EXCLUDED.config, updated_at = EXCLUDED.updated_at`,
		string(raw),
	)
	return err
}

func (s *PostgresStore) ListWhitelist(ctx context.Context) (model.Whitelist, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT symbol, contract, feed, maxlends, lendable, lendablepct, lentpct
		 FROM whitelist ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wl model.Whitelist
	for rows.Next() {
		var e model.WhitelistEntry
		if err := rows.Scan(&e.Symbol, &e.Contract, &e.Feed, &e.MaxLends,
			&e.Lendable, &e.LendablePct, &e.LentPct); err != nil {
			return nil, err
		}
		wl = append(wl, e)
	}
	return wl, rows.Err()
}

func (s *PostgresStore) UpsertWhitelistEntry(ctx context.Context, e *model.WhitelistEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO whitelist (symbol, contract, feed, maxlends, lendable, lendablepct, lentpct)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (symbol) DO UPDATE
		 SET contract = EXCLUDED.contract, feed = EXCLUDED.feed, maxlends = EXCLUDED.maxlends,
		     lendable = EXCLUDED.lendable, lendablepct = EXCLUDED.lendablepct, lentpct = EXCLUDED.lentpct`,
		e.Symbol, e.Contract, e.Feed, e.MaxLends, e.Lendable, e.LendablePct, e.LentPct,
	)
	return err
}

func (s *PostgresStore) GetGlobalStats(ctx context.Context) (*model.GlobalStats, error) {
	var g model.GlobalStats
	err := s.pool.QueryRow(ctx,
		`SELECT scale, l_scale, solvency, l_solvency, updated_at FROM global_stats WHERE id = 1`).
		Scan(&g.Scale, &g.LScale, &g.Solvency, &g.LSolvency, &g.UpdatedAt)
	if err != nil {
		return nil, notFound("global stats", err)
	}
	return &g, nil
}

func (s *PostgresStore) SetGlobalStats(ctx context.Context, g *model.GlobalStats) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO global_stats (id, scale, l_scale, solvency, l_solvency, updated_at)
		 VALUES (1, $1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		 SET scale = EXCLUDED.scale, l_scale = EXCLUDED.l_scale,
		     solvency = EXCLUDED.solvency, l_solvency = EXCLUDED.l_solvency,
		     updated_at = EXCLUDED.updated_at`,
		g.Scale, g.LScale, g.Solvency, g.LSolvency, g.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) GetUserRow(ctx context.Context, account string) (*model.UserRow, error) {
	var row model.UserRow
	var valueOfCol, lValueOfCol string

	err := s.pool.QueryRow(ctx,
		`SELECT account, debt, collateral, COALESCE(valueofcol::TEXT, ''),
		        l_debt, l_collateral, COALESCE(l_valueofcol::TEXT, ''),
		        reputation_pct, last_update
		 FROM users WHERE account = $1`, account).
		Scan(&row.Account, &row.Debt, &row.Collateral, &valueOfCol,
			&row.LDebt, &row.LCollateral, &lValueOfCol,
			&row.ReputationPct, &row.LastUpdate)
	if err != nil {
		return nil, notFound("user "+account, err)
	}

	row.ValueOfCol = normalizeNumeric(valueOfCol)
	row.LValueOfCol = normalizeNumeric(lValueOfCol)
	return &row, nil
}

func (s *PostgresStore) UpsertUserRow(ctx context.Context, row *model.UserRow) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (account, debt, collateral, valueofcol, l_debt, l_collateral, l_valueofcol, reputation_pct, last_update)
		 VALUES ($1, $2, $3, NULLIF($4, '')::NUMERIC, $5, $6, NULLIF($7, '')::NUMERIC, $8, $9)
		 ON CONFLICT (account) DO UPDATE
		 SET debt = EXCLUDED.debt, collateral = EXCLUDED.collateral, valueofcol = EXCLUDED.valueofcol,
		     l_debt = EXCLUDED.l_debt, l_collateral = EXCLUDED.l_collateral, l_valueofcol = EXCLUDED.l_valueofcol,
		     reputation_pct = EXCLUDED.reputation_pct, last_update = EXCLUDED.last_update`,
		row.Account, row.Debt, nonNil(row.Collateral), row.ValueOfCol,
		row.LDebt, nonNil(row.LCollateral), row.LValueOfCol,
		row.ReputationPct, row.LastUpdate,
	)
	return err
}

func (s *PostgresStore) InsertQuoteRecord(ctx context.Context, r *model.QuoteRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO quote_records (id, account, loan_type, action, amount, rate, premium_usd, collateral_ratio, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.Account, r.LoanType, r.Action, r.Amount,
		r.Rate, r.PremiumUsd, r.CollateralRatio, r.CreatedAt,
	)
	return err
}

func (s *PostgresStore) GetQuoteRecordsByAccount(ctx context.Context, account string) ([]model.QuoteRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::TEXT, account, loan_type, action, amount, rate, premium_usd, collateral_ratio, created_at
		 FROM quote_records WHERE account = $1 ORDER BY created_at`, account)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanQuoteRecords(rows)
}

// scanQuoteRecords reads pgx rows into QuoteRecord slices.
type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanQuoteRecords(rows pgxRows) ([]model.QuoteRecord, error) {
	var records []model.QuoteRecord
	for rows.Next() {
		var r model.QuoteRecord
		if err := rows.Scan(&r.ID, &r.Account, &r.LoanType, &r.Action, &r.Amount,
			&r.Rate, &r.PremiumUsd, &r.CollateralRatio, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// notFound maps pgx.ErrNoRows onto ErrNotFound.
func notFound(what string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("get %s: %w", what, err)
}

// normalizeNumeric strips trailing zeros NUMERIC adds on the way out.
func normalizeNumeric(s string) string {
	if s == "" {
		return ""
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	return d.String()
}

func nonNil(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}
