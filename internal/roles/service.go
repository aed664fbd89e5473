package roles

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/odyssey-erp/odyssey-bank/internal/rbac"
	"github.com/odyssey-erp/odyssey-bank/internal/shared"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	UpdateRole(ctx context.Context, role Role) (Role, error)
}

// AuditRecorder persists administrative actions.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles role business logic.
type Service struct {
	repo   RepositoryPort
	audit  AuditRecorder
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole returns one role.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// UpdateRole replaces name, level, description and permissions. Only super
// admins may call it.
func (s *Service) UpdateRole(ctx context.Context, actor rbac.Principal, id int64, in UpdateInput) (Role, error) {
	if !actor.IsSuperAdmin() {
		return Role{}, ErrSuperAdminOnly
	}
	perms, err := normalizePermissions(in.Permissions)
	if err != nil {
		return Role{}, err
	}
	current, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}
	name := strings.TrimSpace(in.Name)
	if current.Name == shared.RoleSuperAdmin && (name != shared.RoleSuperAdmin || !contains(perms, shared.PermAll)) {
		return Role{}, ErrProtectedRole
	}
	updated, err := s.repo.UpdateRole(ctx, Role{
		ID:          id,
		Name:        name,
		Level:       in.Level,
		Description: strings.TrimSpace(in.Description),
		Permissions: perms,
	})
	if err != nil {
		return Role{}, err
	}
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actor.AccountID,
			Action:   shared.AuditRoleUpdated,
			Entity:   "role",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"name": updated.Name, "permissions": updated.Permissions},
		})
		if err != nil {
			s.logger.Error("role audit", slog.Int64("role_id", id), slog.Any("error", err))
		}
	}
	return updated, nil
}

func normalizePermissions(perms []string) ([]string, error) {
	seen := make(map[string]struct{}, len(perms))
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if !shared.IsKnownPermission(p) {
			return nil, ErrUnknownPermission
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
