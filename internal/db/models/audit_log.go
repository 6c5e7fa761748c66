// Package models - audit_log.go defines the AuditLog model for recording security-relevant
// events, capturing actor, action, affected resource, client IP, and arbitrary details.
package models

import "time"

// Audit action values. Kept as plain strings so ad-hoc actions can still be
// recorded, but handlers should prefer these constants.
const (
	AuditActionLogin           = "login"
	AuditActionLoginFailed     = "login_failed"
	AuditActionLogout          = "logout"
	AuditActionTokenRefresh    = "token_refresh"
	AuditActionCreateUser      = "create_user"
	AuditActionUpdateUser      = "update_user"
	AuditActionDeleteUser      = "delete_user"
	AuditActionActivateUser    = "activate_user"
	AuditActionResetPassword   = "reset_password"
	AuditActionViewStatement   = "view_statement"
	AuditActionExportStatement = "export_statement"
)

// AuditLog represents an audit log entry for tracking user actions
type AuditLog struct {
	ID        string
	UserID    *string // Nullable for failed logins and system actions
	Action    string  // "login", "create_user", "export_statement"
	Resource  string  // "auth", "users", "extrato"
	Details   map[string]interface{}
	IPAddress *string
	UserAgent *string
	CreatedAt time.Time
}
