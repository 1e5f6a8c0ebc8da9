package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nexusacademy/creditguard/internal/domain"
	creditsuc "github.com/nexusacademy/creditguard/internal/usecase/credits"
	guarduc "github.com/nexusacademy/creditguard/internal/usecase/guard"
	healthuc "github.com/nexusacademy/creditguard/internal/usecase/health"
	pricinguc "github.com/nexusacademy/creditguard/internal/usecase/pricing"
	usageuc "github.com/nexusacademy/creditguard/internal/usecase/usage"
)

const defaultJournalLimit = 50

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the consumption guard over HTTP.
type Server struct {
	guard         *guarduc.Service
	pricing       *pricinguc.Service
	usage         *usageuc.Service
	credits       *creditsuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	guard *guarduc.Service,
	pricing *pricinguc.Service,
	usage *usageuc.Service,
	credits *creditsuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		guard:   guard,
		pricing: pricing,
		usage:   usage,
		credits: credits,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrUserNotFound, http.StatusNotFound, codeUserNotFound),
		sentinelHandler(domain.ErrInvalidAmount, http.StatusBadRequest, codeInvalidAmount),
		sentinelHandler(domain.ErrCatalogReadOnly, http.StatusMethodNotAllowed, codeBadRequest),
	}
	return s
}

// RegisterRoutes mounts all handlers on r.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/consume", s.Consume)
		r.Get("/costs", s.ListCosts)
		r.Put("/costs", s.UpsertCost)
		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/usage", s.GetUsage)
			r.Get("/journal", s.GetJournal)
			r.Post("/credits", s.GrantCredits)
		})
	})
}

// Consume handles POST /api/v1/consume. The first call for a wallet-priced
// invocation returns 402 with requires_confirmation; the caller resubmits
// the same body with approve_wallet_spend set to complete or decline.
func (s *Server) Consume(w http.ResponseWriter, r *http.Request) {
	var req consumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.ToolID == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "tool_id is required")
		return
	}

	ctx := r.Context()
	if req.ApproveWalletSpend != nil {
		ctx = domain.ContextWithApproval(ctx, *req.ApproveWalletSpend)
	}

	result := s.guard.CheckAndConsume(ctx, domain.ConsumptionRequest{
		UserID:    req.UserID,
		ToolID:    req.ToolID,
		Narrative: req.Narrative,
		Override:  overrideFromRequest(req),
		Token:     req.IdempotencyToken,
	})

	resp := consumeResponse{
		Success: result.Success,
		Message: result.Message,
		Code:    string(result.Code),
		Source:  string(result.Source),
	}
	if result.Code == domain.CodeDailyLimitExceeded && req.ApproveWalletSpend == nil {
		resp.RequiresConfirmation = true
	}
	writeJSON(w, consumeStatus(result), resp)
}

// ListCosts handles GET /api/v1/costs.
func (s *Server) ListCosts(w http.ResponseWriter, r *http.Request) {
	costs, err := s.pricing.Costs(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]toolCostItem, len(costs))
	for i, tc := range costs {
		items[i] = toolCostItem{ToolID: tc.ToolID, CostPerTask: tc.CostPerTask}
	}
	writeJSON(w, http.StatusOK, costsResponse{Items: items})
}

// UpsertCost handles PUT /api/v1/costs.
func (s *Server) UpsertCost(w http.ResponseWriter, r *http.Request) {
	var req upsertCostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.ToolID == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "tool_id is required")
		return
	}

	err := s.pricing.UpsertCost(r.Context(), domain.ToolCost{
		ToolID:      req.ToolID,
		CostPerTask: req.CostPerTask,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toolCostItem{ToolID: req.ToolID, CostPerTask: req.CostPerTask})
}

// GetUsage handles GET /api/v1/users/{userID}/usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	contextID := r.URL.Query().Get("context_id")

	report, err := s.usage.GetReport(r.Context(), userID, contextID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, usageResponse{
		UserID:         report.UserID,
		Day:            report.Day,
		ContextID:      report.ContextID,
		ContextUsed:    report.ContextUsed,
		FreePoolUsed:   report.FreePoolUsed,
		FreePoolLimit:  report.FreePoolLimit,
		WalletBalance:  report.WalletBalance,
		AccessDaysLeft: report.AccessDaysLeft,
	})
}

// GetJournal handles GET /api/v1/users/{userID}/journal.
func (s *Server) GetJournal(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	limit := defaultJournalLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, codeBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.credits.Journal(r.Context(), userID, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]journalEntryItem, len(entries))
	for i, e := range entries {
		items[i] = journalEntryItem{
			ID:        e.ID,
			ToolID:    e.ToolID,
			Amount:    e.Amount,
			Narrative: e.Narrative,
			Source:    string(e.Source),
			Balance:   e.Balance,
			Timestamp: e.Timestamp.UnixMilli(),
		}
	}
	writeJSON(w, http.StatusOK, journalResponse{Entries: items})
}

// GrantCredits handles POST /api/v1/users/{userID}/credits.
func (s *Server) GrantCredits(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Amount <= 0 && req.AccessDays <= 0 {
		writeError(w, http.StatusBadRequest, codeInvalidAmount, "amount or access_days must be positive")
		return
	}

	var resp grantResponse

	if req.Amount > 0 {
		balance, err := s.credits.Grant(r.Context(), userID, req.Amount, req.Narrative)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		resp.Balance = balance
	}

	if req.AccessDays > 0 {
		bank, err := s.credits.GrantAccessDays(r.Context(), userID, req.AccessDays)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		resp.AccessDaysBank = bank
	}

	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}

	checks := make(map[string]string, len(report.Checks))
	for name, result := range report.Checks {
		checks[name] = string(result)
	}
	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// consumeStatus maps a guard decision to an HTTP status. Declines are a
// successful negotiation, not an error.
func consumeStatus(result domain.ConsumptionResult) int {
	if result.Success {
		return http.StatusOK
	}
	switch result.Code {
	case domain.CodeUserNotIdentified:
		return http.StatusUnauthorized
	case domain.CodeDailyLimitExceeded, domain.CodeInsufficientFunds:
		return http.StatusPaymentRequired
	case domain.CodeUserDeclined:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

func overrideFromRequest(req consumeRequest) *domain.Override {
	if req.Cost == nil && req.DailyLimit == 0 && req.ContextID == "" {
		return nil
	}
	return &domain.Override{
		Cost:       req.Cost,
		DailyLimit: req.DailyLimit,
		ContextID:  req.ContextID,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrUserNotFound,
		domain.ErrInvalidAmount,
		domain.ErrCatalogReadOnly,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
