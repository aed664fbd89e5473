package business_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-bank/internal/business"
	"github.com/odyssey-erp/odyssey-bank/internal/rbac"
	"github.com/odyssey-erp/odyssey-bank/internal/rbac/rbactest"
	"github.com/odyssey-erp/odyssey-bank/internal/shared"
)

func TestOnboardingOverHTTP(t *testing.T) {
	f := newFixture()
	owner := rbac.NewPrincipal(rbac.Identity{AccountID: f.owner.ID, RoleName: shared.RoleUser}, shared.PermViewOwnData, shared.PermMakePayments)
	admin := rbac.NewPrincipal(rbac.Identity{AccountID: 50, RoleName: shared.RoleAdmin}, shared.PermManageUsers)
	mw := rbactest.Middleware(owner, admin)
	h := business.NewHandler(nil, f.svc, mw)

	r := chi.NewRouter()
	r.Use(mw.Authenticate)
	r.Route("/api/business", h.MountRoutes)
	r.Route("/admin/businesses", h.MountAdminRoutes)
	sm := rbactest.Sessions(t)

	do := func(method, path, body string, as int64) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, rbactest.As(t, sm, httptest.NewRequest(method, path, strings.NewReader(body)), as))
		return rr
	}

	rr := do(http.MethodPost, "/api/business/apply", `{"business_name":"Coffee","tax_id":"1","charter_capital":"10000","email":"not-an-email"}`, f.owner.ID)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(http.MethodPost, "/api/business/apply", `{"business_name":"Coffee","tax_id":"1","charter_capital":"10000","email":"a@b.test"}`, f.owner.ID)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = do(http.MethodGet, "/admin/businesses?status=pending", "", f.owner.ID)
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(http.MethodPost, "/admin/businesses/1/reject", `{}`, admin.AccountID)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(http.MethodPost, "/admin/businesses/1/approve", "", admin.AccountID)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Contains(t, rr.Body.String(), `"login":"BUS1"`)

	rr = do(http.MethodPost, "/admin/businesses/1/approve", "", admin.AccountID)
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = do(http.MethodGet, fmt.Sprintf("/admin/businesses/%d", 1), "", admin.AccountID)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"status":"approved"`)

	rr = do(http.MethodGet, "/api/business/mine", "", f.owner.ID)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"currency":"RUB"`)
}
