package roles

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-bank/internal/rbac"
	"github.com/odyssey-erp/odyssey-bank/internal/rbac/rbactest"
	"github.com/odyssey-erp/odyssey-bank/internal/shared"
)

type memoryRepo struct {
	mu    sync.Mutex
	roles map[int64]Role
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{roles: map[int64]Role{
		1: {ID: 1, Name: shared.RoleSuperAdmin, Level: 100, Permissions: []string{shared.PermAll}},
		3: {ID: 3, Name: shared.RoleAdmin, Level: 80, Permissions: []string{shared.PermManageUsers, shared.PermViewReports}},
		6: {ID: 6, Name: shared.RoleUser, Level: 10, Permissions: []string{shared.PermMakePayments, shared.PermViewOwnData}},
	}}
}

func (m *memoryRepo) ListRoles(ctx context.Context) ([]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return []Role{m.roles[1], m.roles[3], m.roles[6]}, nil
}

func (m *memoryRepo) GetRole(ctx context.Context, id int64) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	return role, nil
}

func (m *memoryRepo) UpdateRole(ctx context.Context, role Role) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, other := range m.roles {
		if id != role.ID && other.Name == role.Name {
			return Role{}, ErrNameTaken
		}
	}
	m.roles[role.ID] = role
	return role, nil
}

type auditTrail struct{ logs []shared.AuditLog }

func (a *auditTrail) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

var (
	superAdmin = rbac.NewPrincipal(rbac.Identity{AccountID: 1, RoleName: shared.RoleSuperAdmin})
	admin      = rbac.NewPrincipal(rbac.Identity{AccountID: 2, RoleName: shared.RoleAdmin}, shared.PermManageUsers)
)

func TestUpdateRoleNormalizesPermissions(t *testing.T) {
	audit := &auditTrail{}
	svc := NewService(newMemoryRepo(), audit, nil)

	role, err := svc.UpdateRole(context.Background(), superAdmin, 3, UpdateInput{
		Name:        "admin",
		Level:       85,
		Description: " Staff ",
		Permissions: []string{"View_Reports", "manage_users", "manage_nfc", "manage_users", ""},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"manage_nfc", "manage_users", "view_reports"}, role.Permissions)
	require.Equal(t, "Staff", role.Description)
	require.Len(t, audit.logs, 1)
	require.Equal(t, shared.AuditRoleUpdated, audit.logs[0].Action)
}

func TestUpdateRoleRejections(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	ctx := context.Background()

	_, err := svc.UpdateRole(ctx, admin, 3, UpdateInput{Name: "admin"})
	require.ErrorIs(t, err, ErrSuperAdminOnly)

	_, err = svc.UpdateRole(ctx, superAdmin, 3, UpdateInput{Name: "admin", Permissions: []string{"finance.gl.edit"}})
	require.ErrorIs(t, err, ErrUnknownPermission)

	_, err = svc.UpdateRole(ctx, superAdmin, 1, UpdateInput{Name: "super_admin", Permissions: []string{"manage_users"}})
	require.ErrorIs(t, err, ErrProtectedRole)

	_, err = svc.UpdateRole(ctx, superAdmin, 6, UpdateInput{Name: "admin"})
	require.ErrorIs(t, err, ErrNameTaken)

	_, err = svc.UpdateRole(ctx, superAdmin, 42, UpdateInput{Name: "ghost"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRoleRoutes(t *testing.T) {
	mw := rbactest.Middleware(superAdmin, admin)
	h := NewHandler(nil, NewService(newMemoryRepo(), nil, nil), mw)
	r := chi.NewRouter()
	r.Use(mw.Authenticate)
	r.Route("/admin/roles", h.MountRoutes)
	sm := rbactest.Sessions(t)

	do := func(method, path, body string, as int64) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, rbactest.As(t, sm, httptest.NewRequest(method, path, strings.NewReader(body)), as))
		return rr
	}

	rr := do(http.MethodGet, "/admin/roles", "", admin.AccountID)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"name":"super_admin"`)

	rr = do(http.MethodGet, "/admin/roles/6", "", admin.AccountID)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"available_permissions"`)

	rr = do(http.MethodPut, "/admin/roles/6", `{"name":"user","level":10,"permissions":["view_own_data"]}`, admin.AccountID)
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(http.MethodPut, "/admin/roles/6", `{"name":"user","level":10,"permissions":["view_own_data"]}`, superAdmin.AccountID)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Contains(t, rr.Body.String(), `"permissions":["view_own_data"]`)

	rr = do(http.MethodPut, "/admin/roles/6", `{"name":"","level":10}`, superAdmin.AccountID)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
