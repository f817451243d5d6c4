package quote

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/vigor/rate-engine/internal/asset"
	"github.com/vigor/rate-engine/internal/market"
	"github.com/vigor/rate-engine/internal/model"
	"github.com/vigor/rate-engine/internal/store"
)

// symmetryTolerance is the largest difference accepted between the two
// directions of a correlation pair.
const symmetryTolerance = 1e-6

// ConfigResponse is the stored protocol config and the values pricing will
// actually use.
type ConfigResponse struct {
	Config     model.ProtocolConfig `json:"config"`
	Effective  model.ProtocolConfig `json:"effective"`
	Fallback   bool                 `json:"config_fallback"`
	Configured bool                 `json:"configured"` // false when the bundled defaults are served
}

// ListMarket handles GET /api/v1/market
func (s *Service) ListMarket(w http.ResponseWriter, r *http.Request) {
	quotes, err := s.store.ListMarketQuotes(r.Context())
	if err != nil {
		writeError(w, "failed to list market", http.StatusInternalServerError)
		return
	}
	if quotes == nil {
		quotes = []model.MarketQuote{}
	}
	writeJSON(w, http.StatusOK, quotes)
}

// PutMarketQuote handles PUT /api/v1/market/{symbol}
// The new quote must keep the stored correlation set symmetric.
func (s *Service) PutMarketQuote(w http.ResponseWriter, r *http.Request) {
	var q model.MarketQuote
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	q.Symbol = strings.ToUpper(chi.URLParam(r, "symbol"))
	if q.UpdatedAt.IsZero() {
		q.UpdatedAt = time.Now().UTC()
	}
	if err := validateQuote(q); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	n, err := s.upsertQuotes(r, []model.MarketQuote{q})
	if err != nil {
		writeErr(w, err)
		return
	}

	slog.Info("market quote updated", "symbol", q.Symbol, "price_usd", q.PriceUsd, "vol", q.Vol, "symbols", n)
	writeJSON(w, http.StatusOK, q)
}

// IngestMarketRows handles POST /api/v1/market/rows
// Accepts oracle rows in their on-chain fixed-point form.
func (s *Service) IngestMarketRows(w http.ResponseWriter, r *http.Request) {
	var rows []model.MarketRow
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	quotes := make([]model.MarketQuote, 0, len(rows))
	for _, row := range rows {
		q, err := market.DecodeRow(row)
		if err != nil {
			writeErr(w, err)
			return
		}
		if q.UpdatedAt.IsZero() {
			q.UpdatedAt = now
		}
		if err := validateQuote(q); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		quotes = append(quotes, q)
	}

	n, err := s.upsertQuotes(r, quotes)
	if err != nil {
		writeErr(w, err)
		return
	}

	slog.Info("oracle rows ingested", "rows", len(quotes), "symbols", n)
	writeJSON(w, http.StatusOK, quotes)
}

// upsertQuotes merges updates into the stored set, checks symmetry over the
// result, then writes the updates. Returns the merged set size.
func (s *Service) upsertQuotes(r *http.Request, updates []model.MarketQuote) (int, error) {
	ctx := r.Context()
	current, err := s.store.ListMarketQuotes(ctx)
	if err != nil {
		return 0, err
	}

	merged := make(map[string]model.MarketQuote, len(current)+len(updates))
	for _, q := range current {
		merged[q.Symbol] = q
	}
	symbols := make([]string, 0, len(updates))
	for _, q := range updates {
		merged[q.Symbol] = q
		symbols = append(symbols, q.Symbol)
	}
	all := make([]model.MarketQuote, 0, len(merged))
	for _, q := range merged {
		all = append(all, q)
	}
	if err := market.CheckSymmetric(all, symmetryTolerance); err != nil {
		return 0, err
	}

	for i := range updates {
		if err := s.store.UpsertMarketQuote(ctx, &updates[i]); err != nil {
			return 0, err
		}
	}

	s.broadcast(WSMessage{Type: "market_updated", Symbols: symbols})
	return len(all), nil
}

// GetConfig handles GET /api/v1/config
func (s *Service) GetConfig(w http.ResponseWriter, r *http.Request) {
	resp := ConfigResponse{Configured: true}
	cfg, err := s.store.GetProtocolConfig(r.Context())
	switch {
	case err == nil:
		resp.Config = *cfg
	case errors.Is(err, store.ErrNotFound):
		resp.Config = model.DefaultProtocolConfig()
		resp.Configured = false
	default:
		writeError(w, "failed to load config", http.StatusInternalServerError)
		return
	}
	resp.Effective, resp.Fallback = resp.Config.Normalized()
	writeJSON(w, http.StatusOK, resp)
}

// PutConfig handles PUT /api/v1/config
// Out-of-range values are stored as given; pricing replaces them with the
// defaults and flags the quote.
func (s *Service) PutConfig(w http.ResponseWriter, r *http.Request) {
	var cfg model.ProtocolConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.store.SetProtocolConfig(r.Context(), &cfg); err != nil {
		writeError(w, "failed to store config", http.StatusInternalServerError)
		return
	}

	resp := ConfigResponse{Config: cfg, Configured: true}
	resp.Effective, resp.Fallback = cfg.Normalized()
	if resp.Fallback {
		slog.Warn("protocol config has out-of-range fields, defaults will apply")
	}
	s.broadcast(WSMessage{Type: "config_updated"})
	writeJSON(w, http.StatusOK, resp)
}

// GetWhitelist handles GET /api/v1/whitelist
func (s *Service) GetWhitelist(w http.ResponseWriter, r *http.Request) {
	wl, err := s.store.ListWhitelist(r.Context())
	if err != nil {
		writeError(w, "failed to list whitelist", http.StatusInternalServerError)
		return
	}
	if wl == nil {
		wl = model.Whitelist{}
	}
	writeJSON(w, http.StatusOK, wl)
}

// PutWhitelistEntry handles PUT /api/v1/whitelist/{symbol}
func (s *Service) PutWhitelistEntry(w http.ResponseWriter, r *http.Request) {
	var e model.WhitelistEntry
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	e.Symbol = strings.ToUpper(chi.URLParam(r, "symbol"))
	if err := validateWhitelistEntry(e); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.store.UpsertWhitelistEntry(r.Context(), &e); err != nil {
		writeError(w, "failed to store whitelist entry", http.StatusInternalServerError)
		return
	}

	slog.Info("whitelist updated", "symbol", e.Symbol, "lendable", e.Lendable, "lentpct", e.LentPct)
	s.broadcast(WSMessage{Type: "config_updated", Symbols: []string{e.Symbol}})
	writeJSON(w, http.StatusOK, e)
}

// PutGlobals handles PUT /api/v1/globals
func (s *Service) PutGlobals(w http.ResponseWriter, r *http.Request) {
	var g model.GlobalStats
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	for name, v := range map[string]float64{"scale": g.Scale, "l_scale": g.LScale} {
		if !(v > 0) || math.IsInf(v, 0) {
			writeError(w, name+" must be positive and finite", http.StatusBadRequest)
			return
		}
	}
	g.UpdatedAt = time.Now().UTC()

	if err := s.store.SetGlobalStats(r.Context(), &g); err != nil {
		writeError(w, "failed to store global stats", http.StatusInternalServerError)
		return
	}

	slog.Info("global stats updated", "scale", g.Scale, "l_scale", g.LScale)
	s.broadcast(WSMessage{Type: "config_updated"})
	writeJSON(w, http.StatusOK, g)
}

// --- validation ---

func validateQuote(q model.MarketQuote) error {
	if q.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if !(q.PriceUsd > 0) || math.IsInf(q.PriceUsd, 0) {
		return fmt.Errorf("%s: price_usd must be positive and finite", q.Symbol)
	}
	if !(q.Vol >= 0) || math.IsInf(q.Vol, 0) {
		return fmt.Errorf("%s: vol must be non-negative and finite", q.Symbol)
	}
	for other, c := range q.Correlation {
		if !(c >= -1 && c <= 1) {
			return fmt.Errorf("%s: correlation with %s out of [-1, 1]", q.Symbol, other)
		}
	}
	return nil
}

func validateWhitelistEntry(e model.WhitelistEntry) error {
	pool, err := asset.ParseNormalized(e.Lendable)
	if err != nil {
		return fmt.Errorf("lendable: %w", err)
	}
	if pool.Code != e.Symbol {
		return fmt.Errorf("lendable is %s, entry is %s", pool.Code, e.Symbol)
	}
	if e.MaxLends < 0 || e.MaxLends > 100 {
		return fmt.Errorf("maxlends must be within [0, 100]")
	}
	if !(e.LentPct >= 0 && e.LentPct <= 1) {
		return fmt.Errorf("lentpct must be within [0, 1]")
	}
	if !(e.LendablePct >= 0 && e.LendablePct <= 1) {
		return fmt.Errorf("lendablepct must be within [0, 1]")
	}
	return nil
}

// fillValues sets empty USD aggregates of row from the market.
func fillValues(row *model.UserRow, state model.UserRiskState, m *market.Snapshot) error {
	if strings.TrimSpace(row.ValueOfCol) == "" && state.Collateral.Len() > 0 {
		v, err := m.PortfolioValueUsd(state.Collateral)
		if err != nil {
			return err
		}
		row.ValueOfCol = decimal.NewFromFloat(v).String()
	}
	if strings.TrimSpace(row.LValueOfCol) == "" && state.CryptoDebt.Len() > 0 {
		v, err := m.PortfolioValueUsd(state.CryptoDebt)
		if err != nil {
			return err
		}
		row.LValueOfCol = decimal.NewFromFloat(v).String()
	}
	return nil
}
