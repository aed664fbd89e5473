package accounts

import (
	"fmt"

	"github.com/odyssey-erp/odyssey-bank/internal/platform/httpx"
)

var (
	// ErrNotFound indicates the account does not exist.
	ErrNotFound = fmt.Errorf("%w: account not found", httpx.ErrNotFound)
	// ErrSuperAdminOnly guards super_admin accounts and role assignments.
	ErrSuperAdminOnly = fmt.Errorf("%w: only a super admin may assign or modify super admins", httpx.ErrForbidden)
	// ErrRoleNotAllowed indicates the actor may only register plain customers.
	ErrRoleNotAllowed = fmt.Errorf("%w: manage_users is required to assign this role", httpx.ErrForbidden)
	// ErrSelfAction indicates an admin tried to block or re-role their own account.
	ErrSelfAction = fmt.Errorf("%w: cannot block or change the role of your own account", httpx.ErrValidation)
	// ErrRoleNotFound indicates an unknown role name.
	ErrRoleNotFound = fmt.Errorf("%w: role does not exist", httpx.ErrValidation)
	// ErrInvalidBulkAction indicates an unsupported bulk action.
	ErrInvalidBulkAction = fmt.Errorf("%w: action must be block, unblock or reset_passwords", httpx.ErrValidation)
)
