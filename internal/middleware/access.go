// access.go implements unit and permission based authorization middleware.
//
// Permissions are checked at request time against the claims loaded by
// AuthMiddleware rather than being re-read from the database. The claims were
// issued at login, so a permission change takes effect on the user's next
// login; deactivation and lockout are still enforced per-request by
// AuthMiddleware's database check.

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/autoescola-ideal/sistema-interno/internal/auth"
)

// RequireAdmin allows only users from the administrator unit.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := CurrentClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Usuário não autenticado",
			})
			return
		}

		if !auth.IsAdmin(claims.Unit) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Acesso restrito a administradores",
			})
			return
		}

		c.Next()
	}
}

// RequirePermission checks that the authenticated user carries the given
// permission. Administrators bypass the check.
func RequirePermission(permission auth.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := CurrentClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Usuário não autenticado",
			})
			return
		}

		if !auth.HasPermission(claims.Unit, claims.Permissions, permission) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Permissão insuficiente",
				"errors":  []string{"permissão necessária: " + string(permission)},
			})
			return
		}

		c.Next()
	}
}

// RequireUnitAccess checks that the authenticated user may operate on the unit
// named by the given route parameter. Administrators reach any unit; everyone
// else only their own.
func RequireUnitAccess(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := CurrentClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Usuário não autenticado",
			})
			return
		}

		targetUnit := c.Param(param)
		if !auth.CanAccessUnit(claims.Unit, targetUnit) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Acesso negado a esta unidade",
				"errors":  []string{"sua unidade é: " + claims.Unit},
			})
			return
		}

		c.Next()
	}
}

// RequireOwnershipOrAdmin allows the request when the route parameter matches
// the authenticated user's own ID, or when the user is an administrator.
// Used on /users/:id so users can read and edit their own account.
func RequireOwnershipOrAdmin(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := CurrentClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Usuário não autenticado",
			})
			return
		}

		targetID := c.Param(param)
		if claims.UserID != targetID && !auth.IsAdmin(claims.Unit) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Você só pode acessar seus próprios dados",
			})
			return
		}

		c.Next()
	}
}
