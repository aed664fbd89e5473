package ledger

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-bank/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-bank/internal/rbac"
	"github.com/odyssey-erp/odyssey-bank/internal/shared"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyModule = "ledger.transfer"
)

// IdempotencyGuard deduplicates retried transfer requests.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// Handler exposes self-service ledger endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   IdempotencyGuard
	rbac    rbac.Middleware
}

// NewHandler constructs a Handler. guard may be nil.
func NewHandler(logger *slog.Logger, service *Service, guard IdempotencyGuard, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, rbac: rbacMW}
}

// MountRoutes registers the self-service routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireLogin)
		r.With(h.rbac.RequireAny(shared.PermViewOwnData)).Get("/me", h.handleDashboard)
		r.With(h.rbac.RequireAny(shared.PermMakePayments)).Post("/transfer", h.handleTransfer)
		r.With(h.rbac.RequireAny(shared.PermMakePayments)).Get("/accounts/lookup/{number}", h.handleLookup)
	})
}

type transferRequest struct {
	ToAccount   string          `json:"to_account" validate:"required,max=32"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=255"`
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	var req transferRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.ValidateStruct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := ValidateAmount(req.Amount); err != nil {
		httpx.RespondError(w, err)
		return
	}

	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	module := idempotencyModule + ":" + strconv.FormatInt(principal.AccountID, 10)
	if key != "" && h.guard != nil {
		if err := h.guard.CheckAndInsert(r.Context(), key, module); err != nil {
			httpx.Fail(w, r, h.logger, err)
			return
		}
	}

	receipt, err := h.service.Transfer(r.Context(), TransferInput{
		InitiatedBy: principal.AccountID,
		From:        principal.AccountNumber,
		To:          req.ToAccount,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		if key != "" && h.guard != nil {
			if delErr := h.guard.Delete(r.Context(), key, module); delErr != nil {
				h.logger.Warn("release idempotency key", slog.Any("error", delErr))
			}
		}
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"new_balance": receipt.NewBalance,
		"transaction": receipt.Transaction,
	})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	dash, err := h.service.Dashboard(r.Context(), principal.AccountID)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"account":      dash.Account,
		"transactions": dash.Transactions,
		"permissions":  principal.Permissions(),
	})
}

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Lookup(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			httpx.RespondError(w, err)
			return
		}
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"account": summary})
}
