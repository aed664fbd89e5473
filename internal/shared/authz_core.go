package shared

// Permissions granted through roles.permissions.
const (
	PermAll              = "all_permissions"
	PermManageUsers      = "manage_users"
	PermManageNFC        = "manage_nfc"
	PermViewReports      = "view_reports"
	PermAuditLogs        = "audit_logs"
	PermViewTransactions = "view_transactions"
	PermRegisterUsers    = "register_users"
	PermViewUsers        = "view_users"
	PermViewOwnData      = "view_own_data"
	PermMakePayments     = "make_payments"
	PermManageBusiness   = "manage_business"
)

// Seeded role names.
const (
	RoleSuperAdmin          = "super_admin"
	RoleSpecialAdmin        = "special_admin"
	RoleAdmin               = "admin"
	RoleDigitalInvestigator = "digital_investigator"
	RolePassportRegistrar   = "passport_registrar"
	RoleUser                = "user"
	RoleBusiness            = "business"
)

// CoreScopes lists every permission a role may carry.
func CoreScopes() []string {
	return []string{
		PermAll,
		PermManageUsers,
		PermManageNFC,
		PermViewReports,
		PermAuditLogs,
		PermViewTransactions,
		PermRegisterUsers,
		PermViewUsers,
		PermViewOwnData,
		PermMakePayments,
		PermManageBusiness,
	}
}

// IsKnownPermission reports whether perm is part of CoreScopes.
func IsKnownPermission(perm string) bool {
	for _, p := range CoreScopes() {
		if p == perm {
			return true
		}
	}
	return false
}
