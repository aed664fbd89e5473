// Package rbactest wires principals into HTTP requests for handler tests.
package rbactest

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-bank/internal/rbac"
	"github.com/odyssey-erp/odyssey-bank/internal/shared"
)

// Loader resolves principals from a fixed map.
type Loader map[int64]rbac.Principal

// Principal implements rbac.PrincipalLoader.
func (l Loader) Principal(ctx context.Context, accountID int64) (rbac.Principal, error) {
	p, ok := l[accountID]
	if !ok {
		return rbac.Principal{}, rbac.ErrNotFound
	}
	return p, nil
}

// Middleware returns an rbac.Middleware knowing only the given principals.
func Middleware(principals ...rbac.Principal) rbac.Middleware {
	loader := make(Loader, len(principals))
	for _, p := range principals {
		loader[p.AccountID] = p
	}
	return rbac.Middleware{Service: loader}
}

// Sessions returns a session manager backed by miniredis.
func Sessions(t *testing.T) *shared.SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return shared.NewSessionManager(client, "odyssey_session", time.Hour, false)
}

// As attaches a session logged in as accountID. Zero leaves it anonymous.
func As(t *testing.T, sm *shared.SessionManager, req *http.Request, accountID int64) *http.Request {
	t.Helper()
	sess, err := sm.Load(req.Context(), req)
	require.NoError(t, err)
	if accountID != 0 {
		sess.SetAccount(strconv.FormatInt(accountID, 10))
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}
