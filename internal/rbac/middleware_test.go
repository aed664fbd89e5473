package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-bank/internal/shared"
)

type memoryStore struct {
	records map[int64]Record
}

func (s memoryStore) LoadRecord(ctx context.Context, accountID int64) (Record, error) {
	rec, ok := s.records[accountID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func newMiddleware() Middleware {
	store := memoryStore{records: map[int64]Record{
		1: {Identity: Identity{AccountID: 1, RoleName: shared.RoleSuperAdmin, RoleLevel: 100}, Permissions: []string{shared.PermAll}, IsActive: true},
		2: {Identity: Identity{AccountID: 2, RoleName: shared.RoleAdmin, RoleLevel: 80}, Permissions: []string{shared.PermManageUsers, shared.PermViewReports}, IsActive: true},
		3: {Identity: Identity{AccountID: 3, RoleName: shared.RoleUser, RoleLevel: 10}, Permissions: []string{shared.PermMakePayments}, IsActive: false},
	}}
	return Middleware{Service: NewService(store)}
}

func requestAs(t *testing.T, accountID string) *http.Request {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sm := shared.NewSessionManager(client, "s", time.Hour, false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	if accountID != "" {
		sess.SetAccount(accountID)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func serve(mw Middleware, guard func(http.Handler) http.Handler, req *http.Request) *httptest.ResponseRecorder {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	rr := httptest.NewRecorder()
	mw.Authenticate(guard(ok)).ServeHTTP(rr, req)
	return rr
}

func TestRequireAnyGrantsMatchingPermission(t *testing.T) {
	mw := newMiddleware()
	rr := serve(mw, mw.RequireAny(shared.PermViewReports, shared.PermAuditLogs), requestAs(t, "2"))
	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestRequireAnyForbidsMissingPermission(t *testing.T) {
	mw := newMiddleware()
	rr := serve(mw, mw.RequireAny(shared.PermManageNFC), requestAs(t, "2"))
	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestSuperAdminPassesEveryGuard(t *testing.T) {
	mw := newMiddleware()
	require.Equal(t, http.StatusNoContent, serve(mw, mw.RequireAll(shared.PermManageNFC, shared.PermAuditLogs), requestAs(t, "1")).Code)
	require.Equal(t, http.StatusNoContent, serve(mw, mw.RequireRole(shared.RoleBusiness), requestAs(t, "1")).Code)
}

func TestAnonymousAndBlockedAreUnauthorized(t *testing.T) {
	mw := newMiddleware()
	require.Equal(t, http.StatusUnauthorized, serve(mw, mw.RequireLogin, requestAs(t, "")).Code)
	require.Equal(t, http.StatusUnauthorized, serve(mw, mw.RequireLogin, requestAs(t, "3")).Code)
	require.Equal(t, http.StatusUnauthorized, serve(mw, mw.RequireLogin, requestAs(t, "99")).Code)
}

func TestPrincipalPermissionsAreCopied(t *testing.T) {
	perms := []string{"Make_Payments", " view_own_data "}
	p := NewPrincipal(Identity{AccountID: 5}, perms...)
	perms[0] = shared.PermAll
	require.False(t, p.IsSuperAdmin())
	require.True(t, p.Has(shared.PermMakePayments))
	require.Equal(t, []string{shared.PermMakePayments, shared.PermViewOwnData}, p.Permissions())
}
