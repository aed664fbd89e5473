package audithttp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-bank/internal/audit"
	"github.com/odyssey-erp/odyssey-bank/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-bank/internal/rbac"
)

const dateLayout = "2006-01-02"

// TimelineService defines the business contract for timeline data.
type TimelineService interface {
	Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error)
}

// Handler menangani permintaan audit timeline.
type Handler struct {
	logger  *slog.Logger
	service TimelineService
	rbac    rbac.Middleware
}

// NewHandler membuat handler audit baru.
func NewHandler(logger *slog.Logger, service TimelineService, rbacMW rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbacMW}
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"logs":   result.Rows,
		"paging": result.Paging,
	})
}

func parseFilters(r *http.Request) (audit.TimelineFilters, error) {
	q := r.URL.Query()
	filters := audit.TimelineFilters{Action: strings.TrimSpace(q.Get("action"))}

	if v := strings.TrimSpace(q.Get("from")); v != "" {
		from, err := time.Parse(dateLayout, v)
		if err != nil {
			return audit.TimelineFilters{}, fmt.Errorf("%w: from must be YYYY-MM-DD", httpx.ErrValidation)
		}
		filters.From = from
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		to, err := time.Parse(dateLayout, v)
		if err != nil {
			return audit.TimelineFilters{}, fmt.Errorf("%w: to must be YYYY-MM-DD", httpx.ErrValidation)
		}
		// inclusive end of day
		filters.To = to.Add(24 * time.Hour)
	}
	if !filters.From.IsZero() && !filters.To.IsZero() && !filters.From.Before(filters.To) {
		return audit.TimelineFilters{}, fmt.Errorf("%w: from is after to", httpx.ErrValidation)
	}

	var err error
	if filters.Page, err = positiveInt(q.Get("page"), "page"); err != nil {
		return audit.TimelineFilters{}, err
	}
	if filters.PageSize, err = positiveInt(q.Get("page_size"), "page_size"); err != nil {
		return audit.TimelineFilters{}, err
	}
	return filters, nil
}

func positiveInt(raw, field string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", httpx.ErrValidation, field)
	}
	return n, nil
}
