package roles

import (
	"fmt"
	"time"

	"github.com/odyssey-erp/odyssey-bank/internal/platform/httpx"
)

// Role is a named permission set.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Level       int       `json:"level"`
	Description string    `json:"description"`
	Permissions []string  `json:"permissions"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UpdateInput replaces the editable fields of a role.
type UpdateInput struct {
	Name        string   `json:"name" validate:"required,max=64"`
	Level       int      `json:"level" validate:"min=0,max=100"`
	Description string   `json:"description" validate:"max=500"`
	Permissions []string `json:"permissions" validate:"max=32"`
}

var (
	// ErrNotFound indicates the role does not exist.
	ErrNotFound = fmt.Errorf("%w: role not found", httpx.ErrNotFound)
	// ErrSuperAdminOnly indicates a non super admin tried to edit a role.
	ErrSuperAdminOnly = fmt.Errorf("%w: only a super admin may edit roles", httpx.ErrForbidden)
	// ErrUnknownPermission indicates a permission outside the known scopes.
	ErrUnknownPermission = fmt.Errorf("%w: unknown permission", httpx.ErrValidation)
	// ErrNameTaken indicates another role already uses the name.
	ErrNameTaken = fmt.Errorf("%w: role name already in use", httpx.ErrDuplicate)
	// ErrProtectedRole indicates an edit that would strip the super admin role.
	ErrProtectedRole = fmt.Errorf("%w: super_admin must keep its name and all_permissions", httpx.ErrValidation)
)
