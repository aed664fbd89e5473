package reports

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-bank/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-bank/internal/rbac"
	"github.com/odyssey-erp/odyssey-bank/internal/shared"
)

const dateLayout = "2006-01-02"

// Handler exposes report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbacMW}
}

// MountRoutes registers /reports/... and /transactions on the admin router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermViewReports)).Get("/reports/system", h.handleSystemStats)
	r.With(h.rbac.RequireRole(shared.RoleSuperAdmin)).Get("/reports/super", h.handleSuperStats)
	r.With(h.rbac.RequireAny(shared.PermViewUsers, shared.PermManageUsers)).Get("/reports/registrations", h.handleRegistrations)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermViewTransactions, shared.PermViewReports))
		r.Post("/reports/analyze", h.handleAnalyze)
		r.Get("/transactions", h.handleTransactions)
	})
}

func (h *Handler) handleSystemStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.SystemStats(r.Context())
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"stats": stats})
}

func (h *Handler) handleSuperStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.SuperStats(r.Context())
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"stats": stats})
}

func (h *Handler) handleRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.service.RecentRegistrations(r.Context())
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"registrations": regs})
}

type analyzeRequest struct {
	DateFrom  string           `json:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo    string           `json:"date_to" validate:"omitempty,datetime=2006-01-02"`
	MinAmount *decimal.Decimal `json:"min_amount"`
	MaxAmount *decimal.Decimal `json:"max_amount"`
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.ValidateStruct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter, err := dateWindow(req.DateFrom, req.DateTo)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter.MinAmount, filter.MaxAmount = req.MinAmount, req.MaxAmount
	analysis, err := h.service.Analyze(r.Context(), filter)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"summary":      analysis.Summary,
		"transactions": analysis.Transactions,
	})
}

func (h *Handler) handleTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := dateWindow(q.Get("date_from"), q.Get("date_to"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter.Account = strings.TrimSpace(q.Get("account"))
	rows, err := h.service.Transactions(r.Context(), filter)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"transactions": rows})
}

// dateWindow turns inclusive YYYY-MM-DD bounds into a half-open window.
func dateWindow(from, to string) (TransactionFilter, error) {
	var filter TransactionFilter
	if from = strings.TrimSpace(from); from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			return TransactionFilter{}, fmt.Errorf("%w: date_from must be YYYY-MM-DD", httpx.ErrValidation)
		}
		filter.From = t
	}
	if to = strings.TrimSpace(to); to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			return TransactionFilter{}, fmt.Errorf("%w: date_to must be YYYY-MM-DD", httpx.ErrValidation)
		}
		filter.To = t.AddDate(0, 0, 1)
	}
	return filter, nil
}
