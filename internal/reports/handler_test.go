package reports_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-bank/internal/rbac"
	"github.com/odyssey-erp/odyssey-bank/internal/rbac/rbactest"
	"github.com/odyssey-erp/odyssey-bank/internal/reports"
	"github.com/odyssey-erp/odyssey-bank/internal/reports/reportstest"
	"github.com/odyssey-erp/odyssey-bank/internal/shared"
)

func TestReportsOverHTTP(t *testing.T) {
	store := reportstest.New(seedLedger(t))
	store.Pending = 4
	svc := reports.NewService(store, newCache(t), nil).WithClock(func() time.Time { return clock })

	super := rbac.NewPrincipal(rbac.Identity{AccountID: 90, RoleName: shared.RoleSuperAdmin}, shared.PermAll)
	admin := rbac.NewPrincipal(rbac.Identity{AccountID: 91, RoleName: shared.RoleAdmin}, shared.PermManageUsers, shared.PermViewReports)
	investigator := rbac.NewPrincipal(rbac.Identity{AccountID: 92, RoleName: shared.RoleDigitalInvestigator}, shared.PermViewTransactions, shared.PermViewReports, shared.PermAuditLogs)
	customer := rbac.NewPrincipal(rbac.Identity{AccountID: 1, RoleName: shared.RoleUser}, shared.PermViewOwnData)
	mw := rbactest.Middleware(super, admin, investigator, customer)

	r := chi.NewRouter()
	r.Use(mw.Authenticate)
	r.Route("/admin", reports.NewHandler(nil, svc, mw).MountRoutes)
	sm := rbactest.Sessions(t)
	do := func(method, path, body string, as int64) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, rbactest.As(t, sm, httptest.NewRequest(method, path, strings.NewReader(body)), as))
		return rr
	}

	require.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/admin/reports/system", "", 0).Code)
	require.Equal(t, http.StatusForbidden, do(http.MethodGet, "/admin/reports/system", "", customer.AccountID).Code)

	rr := do(http.MethodGet, "/admin/reports/system", "", admin.AccountID)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Contains(t, rr.Body.String(), `"avg_balance":"75.25"`)
	require.Contains(t, rr.Body.String(), `"today_transactions":2`)

	require.Equal(t, http.StatusForbidden, do(http.MethodGet, "/admin/reports/super", "", admin.AccountID).Code)
	rr = do(http.MethodGet, "/admin/reports/super", "", super.AccountID)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"active_sessions":4`)
	require.Contains(t, rr.Body.String(), `"total_balance":"1150.5"`)

	rr = do(http.MethodPost, "/admin/reports/analyze", `{"min_amount":"10"}`, investigator.AccountID)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Contains(t, rr.Body.String(), `"count":2`)
	require.Contains(t, rr.Body.String(), `"total_amount":"320"`)

	rr = do(http.MethodPost, "/admin/reports/analyze", `{"date_from":"20-05-2024"}`, investigator.AccountID)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(http.MethodPost, "/admin/reports/analyze", `{"date_from":"2024-05-20","date_to":"2024-05-19"}`, investigator.AccountID)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(http.MethodGet, "/admin/transactions?account=ACC3&date_to=2024-05-20", "", investigator.AccountID)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"to_name":"Cid"`)
	require.NotContains(t, rr.Body.String(), `"from_account":"ACC1"`)

	require.Equal(t, http.StatusForbidden, do(http.MethodGet, "/admin/transactions", "", customer.AccountID).Code)

	require.Equal(t, http.StatusForbidden, do(http.MethodGet, "/admin/reports/registrations", "", investigator.AccountID).Code)
	rr = do(http.MethodGet, "/admin/reports/registrations", "", admin.AccountID)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"full_name":"Ann"`)
}
