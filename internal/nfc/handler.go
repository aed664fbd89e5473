package nfc

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-bank/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-bank/internal/rbac"
	"github.com/odyssey-erp/odyssey-bank/internal/shared"
)

// confirmLimit bounds PIN guesses per client on top of the per-record lockout.
const confirmLimit = 10

// Handler exposes the NFC endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbacMW}
}

// MountPayRoutes registers the pay link opened by a business terminal.
func (h *Handler) MountPayRoutes(r chi.Router) {
	r.With(h.rbac.RequireLogin, h.rbac.RequireRole(shared.RoleBusiness)).Get("/pay/{tagID}/{token}", h.handleOpen)
}

// MountAPIRoutes registers the session JSON API.
func (h *Handler) MountAPIRoutes(r chi.Router) {
	r.With(h.rbac.RequireLogin, h.rbac.RequireRole(shared.RoleBusiness)).Post("/set_amount", h.handleSetAmount)
	r.With(httprate.Limit(confirmLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))).Post("/confirm_payment", h.handleConfirm)
	r.Get("/status/{sessionID}", h.handleStatus)
}

// MountAdminRoutes registers the tag registry.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermManageNFC))
		r.Get("/tags", h.handleListTags)
		r.Post("/tags", h.handleRegister)
		r.Get("/tags/{id}", h.handleTagDetails)
		r.Post("/tags/{id}/deactivate", h.handleDeactivate)
		r.Post("/tags/{id}/pin", h.handleResetPin)
	})
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	tagID, err := strconv.ParseInt(chi.URLParam(r, "tagID"), 10, 64)
	if err != nil {
		httpx.RespondError(w, ErrTagNotFound)
		return
	}
	sess, err := h.service.Open(r.Context(), principal, tagID, chi.URLParam(r, "token"))
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, map[string]any{"session": sess})
}

type setAmountRequest struct {
	SessionID string          `json:"session_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
}

func (h *Handler) handleSetAmount(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	var req setAmountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.ValidateStruct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sess, err := h.service.SetAmount(r.Context(), principal, req.SessionID, req.Amount)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"session": sess})
}

type confirmRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Pin       string `json:"pin" validate:"required"`
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.ValidateStruct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	payment, err := h.service.Confirm(r.Context(), req.SessionID, req.Pin)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"new_balance":  payment.NewBalance,
		"amount":       payment.Amount,
		"reference":    payment.Reference,
		"completed_at": payment.CompletedAt,
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Status(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, status)
}

func (h *Handler) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.service.ListTags(r.Context())
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"tags": tags})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	var req RegisterInput
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.ValidateStruct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	reg, err := h.service.RegisterTag(r.Context(), principal.AccountID, req)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, map[string]any{"tag": reg.Tag, "pay_link": reg.PayLink})
}

func (h *Handler) handleTagDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := tagIDParam(w, r)
	if !ok {
		return
	}
	details, err := h.service.TagDetails(r.Context(), id)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"details": details})
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	id, ok := tagIDParam(w, r)
	if !ok {
		return
	}
	if err := h.service.DeactivateTag(r.Context(), principal.AccountID, id); err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, nil)
}

type resetPinRequest struct {
	Pin string `json:"pin" validate:"required,numeric,min=4,max=6"`
}

func (h *Handler) handleResetPin(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	id, ok := tagIDParam(w, r)
	if !ok {
		return
	}
	var req resetPinRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.ValidateStruct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.ResetPin(r.Context(), principal.AccountID, id, req.Pin); err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, nil)
}

func tagIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, ErrTagNotFound)
		return 0, false
	}
	return id, true
}
