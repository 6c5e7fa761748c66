// Package models - user.go defines the User model for staff accounts with email,
// unit, role, feature permissions, and the login lockout counters.
package models

import "time"

// User status values
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// User roles
const (
	RoleUser    = "user"
	RoleAdmin   = "admin"
	RoleManager = "manager"
)

// User represents a staff account
type User struct {
	ID                  string
	Email               string
	Name                string
	PasswordHash        string
	Unit                string
	Role                string
	Permissions         []string
	Status              string
	FailedLoginAttempts int
	LockedUntil         *time.Time
	LastAccess          *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsActive reports whether the account may authenticate
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// IsLocked reports whether the account is under a login lockout at time now
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// LockRemaining returns how long the lockout still holds at time now.
// Zero when the account is not locked.
func (u *User) LockRemaining(now time.Time) time.Duration {
	if !u.IsLocked(now) {
		return 0
	}
	return u.LockedUntil.Sub(now)
}

// Sanitized returns the shape of the user safe to serialize in API responses.
// The password hash and lockout bookkeeping never leave the server.
func (u *User) Sanitized() map[string]interface{} {
	perms := u.Permissions
	if perms == nil {
		perms = []string{}
	}
	return map[string]interface{}{
		"id":          u.ID,
		"email":       u.Email,
		"nome":        u.Name,
		"unidade":     u.Unit,
		"role":        u.Role,
		"permissions": perms,
		"status":      u.Status,
		"lastAccess":  u.LastAccess,
		"createdAt":   u.CreatedAt,
		"updatedAt":   u.UpdatedAt,
	}
}
