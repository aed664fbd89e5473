package business

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-bank/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-bank/internal/rbac"
	"github.com/odyssey-erp/odyssey-bank/internal/shared"
)

// Handler exposes onboarding endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbacMW}
}

// MountRoutes registers the customer facing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireLogin)
		r.With(h.rbac.RequireAny(shared.PermViewOwnData)).Post("/apply", h.handleApply)
		r.With(h.rbac.RequireAny(shared.PermViewOwnData)).Get("/mine", h.handleMine)
	})
}

// MountAdminRoutes registers the review routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermManageUsers))
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
		r.Post("/{id}/approve", h.handleApprove)
		r.Post("/{id}/reject", h.handleReject)
	})
}

func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	var req Application
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.ValidateStruct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	b, err := h.service.Apply(r.Context(), principal.AccountID, req)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, map[string]any{"business": b})
}

func (h *Handler) handleMine(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	list, err := h.service.Mine(r.Context(), principal.AccountID)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"businesses": list})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"businesses": list})
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
	httpx.OK(w, http.StatusOK, map[string]any{"business": details.Business, "account": details.Account})
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	approval, err := h.service.Approve(r.Context(), principal.AccountID, id)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"business":       approval.Business,
		"account":        approval.Account,
		"login":          approval.Login,
		"password":       approval.Password,
		"account_number": approval.Account.AccountNumber,
	})
}

type rejectRequest struct {
	Notes string `json:"notes" validate:"required,max=1000"`
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req rejectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.ValidateStruct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	b, err := h.service.Reject(r.Context(), principal.AccountID, id, req.Notes)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"business": b})
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, ErrNotFound)
		return 0, false
	}
	return id, true
}
