// Package auth - permissions.go defines the permission constants for all system
// features and provides HasPermission and unit access helpers, including the
// administrator unit wildcard.
package auth

import (
	"errors"
	"fmt"
)

// Permission represents a feature permission
type Permission string

const (
	// PermissionRegisterAccounts allows creating accounts payable/receivable
	PermissionRegisterAccounts Permission = "cadastrar_contas"

	// PermissionRegisterCharges allows registering student charges
	PermissionRegisterCharges Permission = "registrar_cobranca"

	// PermissionViewStatements allows reading the financial statements
	PermissionViewStatements Permission = "consultar_extratos"

	// PermissionSendMessages allows sending messages to students
	PermissionSendMessages Permission = "enviar_mensagens"

	// PermissionManageUsers allows user account administration
	PermissionManageUsers Permission = "gerenciar_usuarios"
)

// AdminUnit is the wildcard unit. Users in this unit have every permission
// and may access every unit's data.
const AdminUnit = "administrador"

// AllUnitsSentinel selects every configured unit on statement queries
const AllUnitsSentinel = "todas"

// AllPermissions returns all valid permissions
func AllPermissions() []Permission {
	return []Permission{
		PermissionRegisterAccounts,
		PermissionRegisterCharges,
		PermissionViewStatements,
		PermissionSendMessages,
		PermissionManageUsers,
	}
}

// ValidPermissions returns a map of valid permission strings
func ValidPermissions() map[string]bool {
	valid := make(map[string]bool)
	for _, p := range AllPermissions() {
		valid[string(p)] = true
	}
	return valid
}

// ValidatePermissions checks if all provided permissions are valid
func ValidatePermissions(permissions []string) error {
	valid := ValidPermissions()

	for _, p := range permissions {
		if !valid[p] {
			return fmt.Errorf("invalid permission: %s", p)
		}
	}

	return nil
}

// ValidatePermissionString validates a single permission string
func ValidatePermissionString(permission string) error {
	if !ValidPermissions()[permission] {
		return errors.New("invalid permission")
	}
	return nil
}

// IsAdmin reports whether the unit grants full administrative access
func IsAdmin(unit string) bool {
	return unit == AdminUnit
}

// HasPermission checks if a user has a required permission.
// Members of the administrator unit hold every permission implicitly.
func HasPermission(unit string, userPermissions []string, required Permission) bool {
	if IsAdmin(unit) {
		return true
	}

	requiredStr := string(required)
	for _, p := range userPermissions {
		if p == requiredStr {
			return true
		}
	}

	return false
}

// CanAccessUnit checks if a user in userUnit may read data for targetUnit.
// Administrators may access every unit, including the "todas" sentinel.
func CanAccessUnit(userUnit, targetUnit string) bool {
	if IsAdmin(userUnit) {
		return true
	}
	if targetUnit == AllUnitsSentinel {
		return false
	}
	return userUnit == targetUnit
}

// AdminPermissions returns the full permission set granted to administrators
func AdminPermissions() []string {
	perms := make([]string, 0)
	for _, p := range AllPermissions() {
		perms = append(perms, string(p))
	}
	return perms
}
