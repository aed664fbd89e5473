package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/odyssey-erp/odyssey-bank/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-bank/internal/shared"
)

// PrincipalLoader resolves the principal for an account id.
type PrincipalLoader interface {
	Principal(ctx context.Context, accountID int64) (Principal, error)
}

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Service PrincipalLoader
	Logger  *slog.Logger
}

// Authenticate attaches the Principal of the session account, if any.
// Requests from anonymous or blocked accounts continue without one.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := m.currentAccountID(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		principal, err := m.Service.Principal(r.Context(), accountID)
		if err != nil {
			if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInactive) {
				next.ServeHTTP(w, r)
				return
			}
			m.logger().Error("rbac load principal", slog.Int64("account_id", accountID), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// RequireLogin rejects anonymous requests.
func (m Middleware) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAny ensures the current user has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return m.guard(func(p Principal) bool { return p.HasAny(normalized...) })
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return m.guard(func(p Principal) bool { return p.HasAll(normalized...) })
}

// RequireRole ensures the current user holds one of the named roles.
// Super admins always pass.
func (m Middleware) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return m.guard(func(p Principal) bool {
		if p.IsSuperAdmin() {
			return true
		}
		for _, role := range roles {
			if p.RoleName == role {
				return true
			}
		}
		return false
	})
}

func (m Middleware) guard(allowed func(Principal) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if !allowed(principal) {
				m.logger().Warn("rbac denied",
					slog.Int64("account_id", principal.AccountID),
					slog.String("role", principal.RoleName),
					slog.String("path", r.URL.Path))
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) currentAccountID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.Account())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		m.logger().Error("rbac parse account id", slog.String("value", raw))
		return 0, false
	}
	return id, true
}

func (m Middleware) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	normalized := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		if _, seen := unique[p]; seen {
			continue
		}
		unique[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}
