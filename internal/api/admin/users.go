// users.go implements handlers for user account management: listing, creating,
// updating, deactivating, reactivating, and password resets.
package admin

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/autoescola-ideal/sistema-interno/internal/audit"
	"github.com/autoescola-ideal/sistema-interno/internal/auth"
	"github.com/autoescola-ideal/sistema-interno/internal/config"
	"github.com/autoescola-ideal/sistema-interno/internal/db/models"
	"github.com/autoescola-ideal/sistema-interno/internal/db/repositories"
	"github.com/autoescola-ideal/sistema-interno/internal/middleware"
)

// UserHandlers handles user management endpoints
type UserHandlers struct {
	cfg      *config.Config
	userRepo *repositories.UserRepository
	audit    *audit.Recorder
}

// NewUserHandlers creates a new UserHandlers instance
func NewUserHandlers(cfg *config.Config, db *sql.DB, recorder *audit.Recorder) *UserHandlers {
	return &UserHandlers{
		cfg:      cfg,
		userRepo: repositories.NewUserRepository(db),
		audit:    recorder,
	}
}

// @Summary      List users
// @Description  List user accounts with optional filters. Admin only.
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Param        unidade  query  string  false  "Filter by unit"
// @Param        status   query  string  false  "Filter by status (active|inactive)"
// @Param        role     query  string  false  "Filter by role"
// @Param        search   query  string  false  "Match against name or email"
// @Param        limit    query  int     false  "Maximum rows returned"
// @Success      200  {object}  map[string]interface{}  "data, count"
// @Failure      403  {object}  map[string]interface{}  "Admin only"
// @Router       /api/users [get]
// ListUsersHandler lists accounts, optionally filtered.
// GET /api/users?unidade=&status=&role=&search=&limit=
func (h *UserHandlers) ListUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		filters := repositories.UserFilters{}
		if v := c.Query("unidade"); v != "" {
			filters.Unit = &v
		}
		if v := c.Query("status"); v != "" {
			filters.Status = &v
		}
		if v := c.Query("role"); v != "" {
			filters.Role = &v
		}
		if v := c.Query("search"); v != "" {
			filters.Search = &v
		}
		if v := c.Query("limit"); v != "" {
			if limit, err := strconv.Atoi(v); err == nil && limit > 0 {
				filters.Limit = limit
			}
		}

		users, err := h.userRepo.ListUsers(c.Request.Context(), filters)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Erro interno do servidor",
			})
			return
		}

		data := make([]map[string]interface{}, 0, len(users))
		for _, user := range users {
			data = append(data, user.Sanitized())
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    data,
			"count":   len(data),
		})
	}
}

// @Summary      Get user
// @Description  Get one account by ID. Callers may fetch themselves; admins anyone.
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "User ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Router       /api/users/{id} [get]
// GetUserHandler fetches a single account.
// GET /api/users/:id
func (h *UserHandlers) GetUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.userRepo.GetUserByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Erro interno do servidor",
			})
			return
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Usuário não encontrado",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    user.Sanitized(),
		})
	}
}

// CreateUserRequest is the payload for POST /api/users
type CreateUserRequest struct {
	Email       string   `json:"email" binding:"required,email"`
	Name        string   `json:"nome" binding:"required,min=2"`
	Unit        string   `json:"unidade" binding:"required"`
	Role        string   `json:"role" binding:"required"`
	Password    string   `json:"password" binding:"required"`
	Permissions []string `json:"permissions"`
}

// @Summary      Create user
// @Description  Create a staff account. Admin only.
// @Tags         Users
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        user  body  CreateUserRequest  true  "New account"
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}  "Validation failure"
// @Failure      409  {object}  map[string]interface{}  "Email already registered"
// @Router       /api/users [post]
// CreateUserHandler creates a new staff account.
// POST /api/users
func (h *UserHandlers) CreateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Dados inválidos",
				"errors":  []string{err.Error()},
			})
			return
		}

		if len(req.Password) < auth.MinPasswordLength {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Senha deve ter pelo menos 6 caracteres",
			})
			return
		}
		if err := auth.ValidatePermissions(req.Permissions); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Dados inválidos",
				"errors":  []string{err.Error()},
			})
			return
		}

		hash, err := auth.HashPassword(req.Password, h.cfg.Auth.BcryptCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Erro interno do servidor",
			})
			return
		}

		user := &models.User{
			Email:        strings.ToLower(strings.TrimSpace(req.Email)),
			Name:         strings.TrimSpace(req.Name),
			PasswordHash: hash,
			Unit:         req.Unit,
			Role:         req.Role,
			Permissions:  req.Permissions,
			Status:       models.UserStatusActive,
		}

		if err := h.userRepo.CreateUser(c.Request.Context(), user); err != nil {
			if errors.Is(err, repositories.ErrDuplicateEmail) {
				c.JSON(http.StatusConflict, gin.H{
					"success": false,
					"message": "Este e-mail já está cadastrado",
				})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Erro ao criar usuário",
			})
			return
		}

		h.audit.Record(actorID(c), models.AuditActionCreateUser, "users", map[string]interface{}{
			"newUserId": user.ID,
			"email":     user.Email,
			"unidade":   user.Unit,
			"role":      user.Role,
		}, c)

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "Usuário criado com sucesso",
			"data":    user.Sanitized(),
		})
	}
}

// UpdateUserRequest is the patch payload for PUT /api/users/:id.
// Nil fields are left unchanged.
type UpdateUserRequest struct {
	Name        *string  `json:"nome"`
	Unit        *string  `json:"unidade"`
	Role        *string  `json:"role"`
	Permissions []string `json:"permissions"`
	Status      *string  `json:"status"`
	Password    *string  `json:"password"`
}

// @Summary      Update user
// @Description  Patch an account. Callers may edit themselves; only admins may change unit, role, permissions, or status.
// @Tags         Users
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string             true  "User ID"
// @Param        user  body  UpdateUserRequest  true  "Fields to change"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}  "Validation failure"
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Router       /api/users/{id} [put]
// UpdateUserHandler patches an account. Non-admin callers editing their own
// profile cannot touch unit, role, permissions, or status; those fields are
// silently dropped from the patch rather than rejected, matching the front
// end's habit of resubmitting the whole form.
func (h *UserHandlers) UpdateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Dados inválidos",
				"errors":  []string{err.Error()},
			})
			return
		}

		claims := middleware.CurrentClaims(c)
		if claims == nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Usuário não autenticado",
			})
			return
		}
		isAdmin := auth.IsAdmin(claims.Unit)

		if !isAdmin {
			req.Unit = nil
			req.Role = nil
			req.Permissions = nil
			req.Status = nil
		}

		if req.Status != nil &&
			*req.Status != models.UserStatusActive && *req.Status != models.UserStatusInactive {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Dados inválidos",
				"errors":  []string{"status deve ser active ou inactive"},
			})
			return
		}
		if req.Permissions != nil {
			if err := auth.ValidatePermissions(req.Permissions); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"success": false,
					"message": "Dados inválidos",
					"errors":  []string{err.Error()},
				})
				return
			}
		}

		changes := repositories.UserUpdate{
			Name:        req.Name,
			Unit:        req.Unit,
			Role:        req.Role,
			Permissions: req.Permissions,
			Status:      req.Status,
		}

		if req.Password != nil {
			if len(*req.Password) < auth.MinPasswordLength {
				c.JSON(http.StatusBadRequest, gin.H{
					"success": false,
					"message": "Senha deve ter pelo menos 6 caracteres",
				})
				return
			}
			hash, err := auth.HashPassword(*req.Password, h.cfg.Auth.BcryptCost)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"message": "Erro interno do servidor",
				})
				return
			}
			changes.PasswordHash = &hash
		}

		targetID := c.Param("id")
		user, err := h.userRepo.UpdateUser(c.Request.Context(), targetID, changes)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Erro ao atualizar usuário",
			})
			return
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Usuário não encontrado",
			})
			return
		}

		h.audit.Record(claims.UserID, models.AuditActionUpdateUser, "users", map[string]interface{}{
			"targetUserId": targetID,
			"isOwnProfile": claims.UserID == targetID,
		}, c)

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Usuário atualizado com sucesso",
			"data":    user.Sanitized(),
		})
	}
}

// @Summary      Deactivate user
// @Description  Soft-delete an account by setting it inactive. Admin only; self-deletion is rejected.
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "User ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}  "Cannot deactivate own account"
// @Router       /api/users/{id} [delete]
// DeleteUserHandler deactivates an account. Rows are never deleted; the audit
// trail references them.
// DELETE /api/users/:id
func (h *UserHandlers) DeleteUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		targetID := c.Param("id")

		claims := middleware.CurrentClaims(c)
		if claims != nil && claims.UserID == targetID {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Não é possível desativar sua própria conta",
			})
			return
		}

		if err := h.userRepo.DeactivateUser(c.Request.Context(), targetID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Erro ao desativar usuário",
			})
			return
		}

		h.audit.Record(actorID(c), models.AuditActionDeleteUser, "users", map[string]interface{}{
			"targetUserId": targetID,
		}, c)

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Usuário desativado com sucesso",
		})
	}
}

// @Summary      Activate user
// @Description  Reactivate a deactivated account. Admin only.
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "User ID"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/users/{id}/activate [patch]
// ActivateUserHandler reactivates a deactivated account.
// PATCH /api/users/:id/activate
func (h *UserHandlers) ActivateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		targetID := c.Param("id")

		if err := h.userRepo.ActivateUser(c.Request.Context(), targetID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Erro ao ativar usuário",
			})
			return
		}

		h.audit.Record(actorID(c), models.AuditActionActivateUser, "users", map[string]interface{}{
			"targetUserId": targetID,
		}, c)

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Usuário ativado com sucesso",
		})
	}
}

// ResetPasswordRequest is the payload for PATCH /api/users/:id/reset-password
type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// @Summary      Reset password
// @Description  Set a new password for an account. Admin only.
// @Tags         Users
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id        path  string                true  "User ID"
// @Param        password  body  ResetPasswordRequest  true  "New password"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}  "Password too short"
// @Router       /api/users/{id}/reset-password [patch]
// ResetPasswordHandler sets a new password on an account.
// PATCH /api/users/:id/reset-password
func (h *UserHandlers) ResetPasswordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil || len(req.Password) < auth.MinPasswordLength {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Senha deve ter pelo menos 6 caracteres",
			})
			return
		}

		hash, err := auth.HashPassword(req.Password, h.cfg.Auth.BcryptCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Erro interno do servidor",
			})
			return
		}

		targetID := c.Param("id")
		user, err := h.userRepo.UpdateUser(c.Request.Context(), targetID,
			repositories.UserUpdate{PasswordHash: &hash})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Erro ao redefinir senha",
			})
			return
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Usuário não encontrado",
			})
			return
		}

		h.audit.Record(actorID(c), models.AuditActionResetPassword, "users", map[string]interface{}{
			"targetUserId": targetID,
		}, c)

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Senha redefinida com sucesso",
		})
	}
}

// actorID returns the authenticated caller's user ID, or "" when absent.
func actorID(c *gin.Context) string {
	if claims := middleware.CurrentClaims(c); claims != nil {
		return claims.UserID
	}
	return ""
}
