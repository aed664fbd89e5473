package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-bank/internal/accounts"
	audithttp "github.com/odyssey-erp/odyssey-bank/internal/audit/http"
	"github.com/odyssey-erp/odyssey-bank/internal/auth"
	"github.com/odyssey-erp/odyssey-bank/internal/business"
	"github.com/odyssey-erp/odyssey-bank/internal/ledger"
	"github.com/odyssey-erp/odyssey-bank/internal/nfc"
	"github.com/odyssey-erp/odyssey-bank/internal/observability"
	"github.com/odyssey-erp/odyssey-bank/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-bank/internal/rbac"
	"github.com/odyssey-erp/odyssey-bank/internal/reports"
	"github.com/odyssey-erp/odyssey-bank/internal/roles"
	"github.com/odyssey-erp/odyssey-bank/internal/shared"
	"github.com/odyssey-erp/odyssey-bank/internal/withdrawals"
	"github.com/odyssey-erp/odyssey-bank/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	RBACMiddleware rbac.Middleware
	Metrics        *observability.Metrics
	Pool           *pgxpool.Pool
	Redis          *redis.Client

	AuthHandler       *auth.Handler
	LedgerHandler     *ledger.Handler
	NFCHandler        *nfc.Handler
	BusinessHandler   *business.Handler
	WithdrawalHandler *withdrawals.Handler
	AccountsHandler   *accounts.Handler
	RolesHandler      *roles.Handler
	AuditHandler      *audithttp.Handler
	ReportsHandler    *reports.Handler
	JobHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with Odyssey defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}
	r.Use(params.RBACMiddleware.Authenticate)

	r.Get("/healthz", healthHandler(params))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/nfc", params.NFCHandler.MountPayRoutes)
	r.Route("/api", func(r chi.Router) {
		params.LedgerHandler.MountRoutes(r)
		r.Route("/nfc", params.NFCHandler.MountAPIRoutes)
		r.Route("/business", func(r chi.Router) {
			params.BusinessHandler.MountRoutes(r)
			params.WithdrawalHandler.MountRoutes(r)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(params.RBACMiddleware.RequireLogin)
		r.Route("/users", params.AccountsHandler.MountRoutes)
		r.Route("/roles", params.RolesHandler.MountRoutes)
		r.Route("/audit", params.AuditHandler.MountRoutes)
		r.Route("/nfc", params.NFCHandler.MountAdminRoutes)
		r.Route("/businesses", params.BusinessHandler.MountAdminRoutes)
		r.Route("/withdrawals", params.WithdrawalHandler.MountAdminRoutes)
		params.ReportsHandler.MountRoutes(r)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.RespondError(w, shared.ErrNotFound)
	})
	return r
}

// healthHandler pings PostgreSQL and Redis when they are configured.
func healthHandler(params RouterParams) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{}
		healthy := true
		if params.Pool != nil {
			checks["postgres"] = "ok"
			if err := params.Pool.Ping(r.Context()); err != nil {
				checks["postgres"] = "down"
				healthy = false
			}
		}
		if params.Redis != nil {
			checks["redis"] = "ok"
			if err := params.Redis.Ping(r.Context()).Err(); err != nil {
				checks["redis"] = "down"
				healthy = false
			}
		}
		status := http.StatusOK
		label := "ok"
		if !healthy {
			status = http.StatusServiceUnavailable
			label = "degraded"
		}
		httpx.JSON(w, status, map[string]any{"status": label, "checks": checks})
	}
}
