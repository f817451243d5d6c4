// Package quote provides the HTTP handlers that price user actions against
// the current market, protocol configuration and ledger, and the admin
// endpoints that feed those inputs.
//
// Pricing itself lives in package pricing and never touches the store;
// this package loads one consistent snapshot per request and hands it over.
package quote

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vigor/rate-engine/internal/asset"
	"github.com/vigor/rate-engine/internal/ledger"
	"github.com/vigor/rate-engine/internal/limits"
	"github.com/vigor/rate-engine/internal/market"
	"github.com/vigor/rate-engine/internal/metrics"
	"github.com/vigor/rate-engine/internal/model"
	"github.com/vigor/rate-engine/internal/pricing"
	"github.com/vigor/rate-engine/internal/store"
)

// globalsMissingWarning is attached to quotes served while the global
// statistics have not loaded yet.
const globalsMissingWarning = "global stats unavailable, rate not computed"

// Service serves quotes and accepts provider updates. Quotes are read-only
// against the store apart from the audit record, so no locking is needed.
type Service struct {
	store  store.Store
	engine pricing.Engine
	wsHub  *WSHub // optional WebSocket hub for update broadcasts
}

// NewService creates a new quote service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, hub *WSHub) *Service {
	return &Service{
		store: st,
		wsHub: hub,
	}
}

// Routes mounts every handler under r, which is expected to sit at /api/v1.
func (s *Service) Routes(r chi.Router) {
	r.Post("/quote", s.Quote)
	r.Post("/estimate", s.Estimate)

	r.Get("/accounts/{account}", s.GetAccount)
	r.Put("/accounts/{account}", s.PutAccount)
	r.Get("/accounts/{account}/limits", s.GetLimits)
	r.Get("/accounts/{account}/quotes", s.GetQuotes)

	r.Get("/market", s.ListMarket)
	r.Put("/market/{symbol}", s.PutMarketQuote)
	r.Post("/market/rows", s.IngestMarketRows)

	r.Get("/config", s.GetConfig)
	r.Put("/config", s.PutConfig)
	r.Get("/whitelist", s.GetWhitelist)
	r.Put("/whitelist/{symbol}", s.PutWhitelistEntry)
	r.Put("/globals", s.PutGlobals)
}

// --- Request/Response types ---

// QuoteRequest is the JSON body for POST /quote.
type QuoteRequest struct {
	Account  string            `json:"account"`
	LoanType pricing.LoanType  `json:"loan_type"` // "vigor" or "crypto"
	Action   pricing.Direction `json:"action"`    // deposit, withdraw, borrow, repay
	Amount   string            `json:"amount"`    // unsigned, e.g. "100.0000 EOS"
}

// EstimateRequest is the JSON body for POST /estimate. It prices an action
// for a hypothetical account built from the listed holdings.
type EstimateRequest struct {
	Collateral    []string          `json:"collateral"`
	CryptoDebt    []string          `json:"crypto_debt"`
	ReputationPct *float64          `json:"reputation_pct"` // nil → 0.5
	LoanType      pricing.LoanType  `json:"loan_type"`
	Action        pricing.Direction `json:"action"`
	Amount        string            `json:"amount"`
}

// QuoteResponse is the JSON body returned from POST /quote and /estimate.
type QuoteResponse struct {
	QuoteID         string            `json:"quote_id,omitempty"`
	Account         string            `json:"account,omitempty"`
	LoanType        pricing.LoanType  `json:"loan_type"`
	Action          pricing.Direction `json:"action"`
	Amount          asset.Asset       `json:"amount"`
	Rate            float64           `json:"rate"`
	PremiumUsd      float64           `json:"premium_usd"`
	PremiumVig      *asset.Asset      `json:"premium_vig,omitempty"`
	CollateralRatio float64           `json:"collateral_ratio"`
	ConfigFallback  bool              `json:"config_fallback"`
	LimitExceeded   string            `json:"limit_exceeded,omitempty"`
	Warning         string            `json:"warning,omitempty"`
}

// AccountResponse is the decoded account with both collateral ratios.
type AccountResponse struct {
	model.UserRiskState
	VigorCollateralRatio  float64 `json:"vigor_collateral_ratio"`
	CryptoCollateralRatio float64 `json:"crypto_collateral_ratio"`
}

// LimitsResponse is the JSON body returned from GET /accounts/{account}/limits.
type LimitsResponse struct {
	Account      string                 `json:"account"`
	LeftToBorrow map[string]asset.Asset `json:"left_to_borrow"`
	Borrowable   map[string]asset.Asset `json:"borrowable"`
	Discount     float64                `json:"discount"`
}

// --- Snapshot loading ---

// loaded is everything one request reads from the store.
type loaded struct {
	snap           pricing.Snapshot
	row            *model.UserRow // nil when the account has no ledger row
	globalsMissing bool
}

// loadSnapshot reads the market, protocol config, whitelist, global stats
// and (when account is set) the ledger row concurrently.
//
// A missing config falls back to the bundled defaults. For estimates a
// missing whitelist or global stats also fall back; for account quotes a
// missing global stats row is reported through globalsMissing.
func (s *Service) loadSnapshot(ctx context.Context, account string, estimate bool) (*loaded, error) {
	var (
		quotes  []model.MarketQuote
		cfg     model.ProtocolConfig
		wl      model.Whitelist
		globals model.GlobalStats
		missing bool
		row     *model.UserRow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		quotes, err = s.store.ListMarketQuotes(gctx)
		return err
	})
	g.Go(func() error {
		c, err := s.store.GetProtocolConfig(gctx)
		switch {
		case errors.Is(err, store.ErrNotFound):
			cfg = model.DefaultProtocolConfig()
			return nil
		case err != nil:
			return err
		}
		cfg = *c
		return nil
	})
	g.Go(func() error {
		var err error
		wl, err = s.store.ListWhitelist(gctx)
		if err == nil && len(wl) == 0 && estimate {
			wl = model.DefaultWhitelist()
		}
		return err
	})
	g.Go(func() error {
		st, err := s.store.GetGlobalStats(gctx)
		switch {
		case errors.Is(err, store.ErrNotFound) && estimate:
			globals = model.DefaultGlobalStats()
			return nil
		case errors.Is(err, store.ErrNotFound):
			missing = true
			return nil
		case err != nil:
			return err
		}
		globals = *st
		return nil
	})
	if account != "" {
		g.Go(func() error {
			r, err := s.store.GetUserRow(gctx, account)
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			row = r
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	metrics.MarketQuotes.Set(float64(len(quotes)))
	return &loaded{
		snap: pricing.Snapshot{
			Market:    market.NewSnapshot(quotes),
			Config:    cfg,
			Globals:   globals,
			Whitelist: wl,
		},
		row:            row,
		globalsMissing: missing,
	}, nil
}

// user decodes the loaded ledger row, or returns an empty account.
func (l *loaded) user(account string) (model.UserRiskState, error) {
	if l.row == nil {
		return ledger.NewAccount(account), nil
	}
	return ledger.DecodeUser(*l.row)
}

// --- HTTP Handlers ---

// Quote handles POST /api/v1/quote
// Prices an action for a ledger account and records the quote.
func (s *Service) Quote(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Account == "" {
		writeError(w, "account is required", http.StatusBadRequest)
		return
	}
	amount, err := asset.ParseNormalized(req.Amount)
	if err != nil {
		writeErr(w, err)
		return
	}

	ctx := r.Context()
	ld, err := s.loadSnapshot(ctx, req.Account, false)
	if err != nil {
		slog.Error("snapshot load failed", "account", req.Account, "err", err)
		writeError(w, "failed to load pricing inputs", http.StatusInternalServerError)
		return
	}
	user, err := ld.user(req.Account)
	if err != nil {
		writeErr(w, err)
		return
	}

	resp, err := s.price(user, req.LoanType, req.Action, amount, ld)
	if err != nil {
		writeErr(w, err)
		return
	}

	record := &model.QuoteRecord{
		ID:              uuid.New().String(),
		Account:         req.Account,
		LoanType:        req.LoanType.String(),
		Action:          req.Action.String(),
		Amount:          amount.String(),
		Rate:            resp.Rate,
		PremiumUsd:      resp.PremiumUsd,
		CollateralRatio: resp.CollateralRatio,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.store.InsertQuoteRecord(ctx, record); err != nil {
		writeError(w, "failed to record quote", http.StatusInternalServerError)
		return
	}
	resp.QuoteID = record.ID
	resp.Account = req.Account

	metrics.QuoteLatency.WithLabelValues(req.LoanType.String()).Observe(time.Since(start).Seconds())
	slog.Info("quote issued",
		"quote_id", record.ID,
		"account", req.Account,
		"loan_type", req.LoanType.String(),
		"action", req.Action.String(),
		"amount", amount.String(),
		"rate", resp.Rate,
		"collateral_ratio", resp.CollateralRatio,
	)

	writeJSON(w, http.StatusOK, resp)
}

// Estimate handles POST /api/v1/estimate
// Prices an action for a hypothetical account; nothing is recorded.
func (s *Service) Estimate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req EstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	amount, err := asset.ParseNormalized(req.Amount)
	if err != nil {
		writeErr(w, err)
		return
	}
	collateral, err := parseAssets(req.Collateral)
	if err != nil {
		writeErr(w, err)
		return
	}
	cryptoDebt, err := parseAssets(req.CryptoDebt)
	if err != nil {
		writeErr(w, err)
		return
	}
	reputation := ledger.DefaultEstimateReputation
	if req.ReputationPct != nil {
		reputation = *req.ReputationPct
	}

	ld, err := s.loadSnapshot(r.Context(), "", true)
	if err != nil {
		slog.Error("snapshot load failed", "err", err)
		writeError(w, "failed to load pricing inputs", http.StatusInternalServerError)
		return
	}
	user, err := ledger.Hypothetical(collateral, cryptoDebt, reputation, ld.snap.Market)
	if err != nil {
		writeErr(w, err)
		return
	}

	resp, err := s.price(user, req.LoanType, req.Action, amount, ld)
	if err != nil {
		writeErr(w, err)
		return
	}

	metrics.QuoteLatency.WithLabelValues(req.LoanType.String()).Observe(time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, resp)
}

// price runs the engine and decorates the result with limits and the VIG
// premium. Missing global stats zero the rate but keep the ratio.
func (s *Service) price(user model.UserRiskState, loan pricing.LoanType, dir pricing.Direction, amount asset.Asset, ld *loaded) (QuoteResponse, error) {
	res, err := s.engine.Quote(pricing.Request{
		User:      user,
		Loan:      loan,
		Direction: dir,
		Amount:    amount,
		Snapshot:  ld.snap,
	})
	if err != nil {
		return QuoteResponse{}, err
	}

	resp := QuoteResponse{
		LoanType:        loan,
		Action:          dir,
		Amount:          amount,
		CollateralRatio: res.CollateralRatio,
		ConfigFallback:  res.ConfigFallback,
	}
	if ld.globalsMissing {
		slog.Warn("global stats missing, serving zero rate", "loan_type", loan.String())
		res.Quote = model.RateQuote{}
		resp.Warning = globalsMissingWarning
	}
	resp.Rate = res.Quote.Rate
	resp.PremiumUsd = res.Quote.PremiumUsd

	metrics.QuotesTotal.WithLabelValues(loan.String(), dir.String()).Inc()
	if resp.Rate == 0 {
		metrics.ZeroRateFallbacks.WithLabelValues(loan.String()).Inc()
	}
	if res.ConfigFallback {
		metrics.ConfigFallbacks.Inc()
	}

	if dir == pricing.Borrow {
		limiter := limits.NewLimiter(ld.snap.Config, ld.snap.Whitelist)
		err := limiter.CheckBorrow(loan, amount, user, ld.snap.Market)
		switch {
		case errors.Is(err, limits.ErrExceedsCollateral):
			metrics.LimitRejections.WithLabelValues("collateral").Inc()
			resp.LimitExceeded = err.Error()
		case errors.Is(err, limits.ErrExceedsLendable):
			metrics.LimitRejections.WithLabelValues("lendable").Inc()
			resp.LimitExceeded = err.Error()
		case err != nil:
			slog.Warn("borrow limit not checked", "amount", amount.String(), "err", err)
		}
	}

	if vig, err := ld.snap.Market.ToAsset(resp.PremiumUsd, asset.VIG, asset.CanonicalPrecision(asset.VIG)); err == nil {
		resp.PremiumVig = &vig
	}
	return resp, nil
}

// GetAccount handles GET /api/v1/accounts/{account}
func (s *Service) GetAccount(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	ld, err := s.loadSnapshot(r.Context(), account, false)
	if err != nil {
		writeError(w, "failed to load account", http.StatusInternalServerError)
		return
	}
	if ld.row == nil {
		writeError(w, "account not found", http.StatusNotFound)
		return
	}
	user, err := ld.user(account)
	if err != nil {
		writeErr(w, err)
		return
	}

	resp := AccountResponse{UserRiskState: user}
	if resp.VigorCollateralRatio, err = pricing.VigorCollateralRatio(pricing.Delta{}, user, ld.snap); err != nil {
		writeErr(w, err)
		return
	}
	if resp.CryptoCollateralRatio, err = pricing.CryptoCollateralRatio(pricing.Delta{}, user, ld.snap); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// PutAccount handles PUT /api/v1/accounts/{account}
// Ingests a ledger row. Empty USD aggregates are filled in at market.
func (s *Service) PutAccount(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	var row model.UserRow
	if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	row.Account = account

	state, err := ledger.DecodeUser(row)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	quotes, err := s.store.ListMarketQuotes(ctx)
	if err != nil {
		writeError(w, "failed to load market", http.StatusInternalServerError)
		return
	}
	if err := fillValues(&row, state, market.NewSnapshot(quotes)); err != nil {
		writeErr(w, err)
		return
	}
	row.LastUpdate = time.Now().UTC()

	if err := s.store.UpsertUserRow(ctx, &row); err != nil {
		writeError(w, "failed to store account", http.StatusInternalServerError)
		return
	}

	slog.Info("account updated", "account", account, "debt", row.Debt, "l_debt", row.LDebt)
	s.broadcast(WSMessage{Type: "account_updated", Account: account})
	writeJSON(w, http.StatusOK, row)
}

// GetLimits handles GET /api/v1/accounts/{account}/limits
// Unknown accounts report zero capacity.
func (s *Service) GetLimits(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	ld, err := s.loadSnapshot(r.Context(), account, false)
	if err != nil {
		writeError(w, "failed to load account", http.StatusInternalServerError)
		return
	}
	user, err := ld.user(account)
	if err != nil {
		writeErr(w, err)
		return
	}

	limiter := limits.NewLimiter(ld.snap.Config, ld.snap.Whitelist)
	left, err := limiter.LeftToBorrow(user, ld.snap.Market)
	if err != nil {
		writeErr(w, err)
		return
	}
	borrowable, err := limiter.Borrowable()
	if err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, LimitsResponse{
		Account:      account,
		LeftToBorrow: left,
		Borrowable:   borrowable,
		Discount:     limits.Discount(user.ReputationPct, ld.snap.Config),
	})
}

// GetQuotes handles GET /api/v1/accounts/{account}/quotes
func (s *Service) GetQuotes(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	records, err := s.store.GetQuoteRecordsByAccount(r.Context(), account)
	if err != nil {
		writeError(w, "failed to get quotes", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []model.QuoteRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// --- helpers ---

func parseAssets(rows []string) ([]asset.Asset, error) {
	out := make([]asset.Asset, 0, len(rows))
	for _, s := range rows {
		a, err := asset.ParseNormalized(s)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Service) broadcast(msg WSMessage) {
	if s.wsHub != nil {
		s.wsHub.Broadcast(msg)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeErr maps an engine error onto its status code.
func writeErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusUnprocessableEntity {
		metrics.MissingDataRejections.Inc()
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "err", err)
	}
	writeError(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, market.ErrMissingQuote),
		errors.Is(err, market.ErrMissingCorrelation),
		errors.Is(err, market.ErrAsymmetricCorrelation),
		errors.Is(err, market.ErrInvalidPrice),
		errors.Is(err, pricing.ErrMissingWhitelist):
		return http.StatusUnprocessableEntity
	case errors.Is(err, asset.ErrInvalidAsset),
		errors.Is(err, asset.ErrCodeMismatch),
		errors.Is(err, asset.ErrPrecisionRange),
		errors.Is(err, pricing.ErrInvalidLeg),
		errors.Is(err, pricing.ErrNegativeAmount),
		errors.Is(err, pricing.ErrUnknownLoanType),
		errors.Is(err, pricing.ErrUnknownDirection),
		errors.Is(err, market.ErrMalformedRow),
		errors.Is(err, ledger.ErrInvalidRow):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
