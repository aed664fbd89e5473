package accounts_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-bank/internal/accounts"
	"github.com/odyssey-erp/odyssey-bank/internal/rbac"
	"github.com/odyssey-erp/odyssey-bank/internal/rbac/rbactest"
	"github.com/odyssey-erp/odyssey-bank/internal/shared"
)

func TestUserAdministrationOverHTTP(t *testing.T) {
	f := newFixture()
	customer := rbac.NewPrincipal(rbac.Identity{AccountID: f.customer.ID, RoleName: shared.RoleUser}, shared.PermViewOwnData)
	mw := rbactest.Middleware(f.admin, f.registrar, customer)
	h := accounts.NewHandler(nil, f.svc, mw)

	r := chi.NewRouter()
	r.Use(mw.Authenticate)
	r.Route("/admin/users", h.MountRoutes)
	sm := rbactest.Sessions(t)

	do := func(method, path, body string, as int64) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, rbactest.As(t, sm, httptest.NewRequest(method, path, strings.NewReader(body)), as))
		return rr
	}

	rr := do(http.MethodGet, "/admin/users", "", customer.AccountID)
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(http.MethodPost, "/admin/users", `{"passport":"4510555555","full_name":"Nina","password":"123"}`, f.registrar.AccountID)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(http.MethodPost, "/admin/users", `{"passport":"4510555555","full_name":"Nina","password":"123456"}`, f.registrar.AccountID)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.Contains(t, rr.Body.String(), `"account_number":"ACC`)

	rr = do(http.MethodPost, "/admin/users/4/toggle", "", f.registrar.AccountID)
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(http.MethodPost, "/admin/users/1/role", `{"role":"user"}`, f.admin.AccountID)
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(http.MethodPost, "/admin/users/4/deposit", `{"amount":"25.5"}`, f.admin.AccountID)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Contains(t, rr.Body.String(), `"new_balance":"125.5"`)

	rr = do(http.MethodPost, "/admin/users/4/reset_password", "", f.admin.AccountID)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"password":"`)

	rr = do(http.MethodPost, "/admin/users/bulk", `{"action":"unblock","ids":[]}`, f.admin.AccountID)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(http.MethodGet, "/admin/users/4", "", f.admin.AccountID)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"type":"Deposit"`)

	rr = do(http.MethodGet, "/admin/users?q=nina", "", f.registrar.AccountID)
	require.Equal(t, http.StatusForbidden, rr.Code)
}
