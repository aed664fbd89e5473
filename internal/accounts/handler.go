package accounts

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-bank/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-bank/internal/rbac"
	"github.com/odyssey-erp/odyssey-bank/internal/shared"
)

// Handler exposes /admin/users.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbacMW}
}

// MountRoutes registers user administration routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermViewUsers, shared.PermManageUsers))
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
	})
	r.With(h.rbac.RequireAny(shared.PermRegisterUsers, shared.PermManageUsers)).Post("/", h.handleCreate)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermManageUsers))
		r.Post("/bulk", h.handleBulk)
		r.Post("/{id}/toggle", h.handleToggle)
		r.Post("/{id}/role", h.handleRole)
		r.Post("/{id}/reset_password", h.handleResetPassword)
		r.Post("/{id}/deposit", h.handleDeposit)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	result, err := h.service.List(r.Context(), Filter{Query: q.Get("q"), Page: page, PerPage: perPage})
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"accounts": result.Accounts, "pagination": result.Pagination})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	details, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"account": details.Account, "transactions": details.Transactions})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	var req CreateInput
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.ValidateStruct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	acc, err := h.service.Create(r.Context(), principal, req)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, map[string]any{"account": acc})
}

func (h *Handler) handleToggle(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	acc, err := h.service.ToggleActive(r.Context(), principal, id)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"account": acc})
}

type roleRequest struct {
	Role string `json:"role" validate:"required,max=64"`
}

func (h *Handler) handleRole(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.ValidateStruct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	acc, err := h.service.ChangeRole(r.Context(), principal, id, req.Role)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"account": acc})
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	creds, err := h.service.ResetPassword(r.Context(), principal, id)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"account_number": creds.AccountNumber, "password": creds.Password})
}

type depositRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=255"`
}

func (h *Handler) handleDeposit(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req depositRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.ValidateStruct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	receipt, err := h.service.Deposit(r.Context(), principal, id, req.Amount, req.Description)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"new_balance": receipt.NewBalance, "transaction": receipt.Transaction})
}

type bulkRequest struct {
	Action string  `json:"action" validate:"required"`
	IDs    []int64 `json:"ids" validate:"required,min=1,max=500,dive,gt=0"`
}

func (h *Handler) handleBulk(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	var req bulkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.ValidateStruct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Bulk(r.Context(), principal, req.Action, req.IDs)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"result": result})
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, ErrNotFound)
		return 0, false
	}
	return id, true
}
