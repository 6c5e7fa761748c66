// auth.go implements handlers for credential login, token refresh, logout, and
// token verification.
package admin

import (
	"database/sql"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/autoescola-ideal/sistema-interno/internal/audit"
	"github.com/autoescola-ideal/sistema-interno/internal/auth"
	"github.com/autoescola-ideal/sistema-interno/internal/config"
	"github.com/autoescola-ideal/sistema-interno/internal/db/models"
	"github.com/autoescola-ideal/sistema-interno/internal/db/repositories"
	"github.com/autoescola-ideal/sistema-interno/internal/telemetry"
)

// AuthHandlers handles authentication endpoints
type AuthHandlers struct {
	cfg      *config.Config
	userRepo *repositories.UserRepository
	audit    *audit.Recorder
}

// NewAuthHandlers creates a new AuthHandlers instance
func NewAuthHandlers(cfg *config.Config, db *sql.DB, recorder *audit.Recorder) *AuthHandlers {
	return &AuthHandlers{
		cfg:      cfg,
		userRepo: repositories.NewUserRepository(db),
		audit:    recorder,
	}
}

// LoginRequest is the credential payload for POST /api/auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Unit     string `json:"unidade" binding:"required"`
}

// @Summary      Login
// @Description  Authenticate with email, password, and unit. Returns a bearer token.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        credentials  body  LoginRequest  true  "Login credentials"
// @Success      200  {object}  map[string]interface{}  "token, user, isAdmin"
// @Failure      401  {object}  map[string]interface{}  "Unknown email or wrong password"
// @Failure      403  {object}  map[string]interface{}  "User belongs to another unit"
// @Failure      423  {object}  map[string]interface{}  "Account locked after repeated failures"
// @Router       /api/auth/login [post]
// LoginHandler authenticates a user against email, password, and unit.
// POST /api/auth/login
func (h *AuthHandlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Dados inválidos",
				"errors":  []string{err.Error()},
			})
			return
		}

		user, err := h.userRepo.GetUserByEmail(c.Request.Context(), req.Email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Erro interno do servidor",
			})
			return
		}

		// Unknown email and wrong password produce the same response so the
		// login form cannot be used to probe which emails exist.
		if user == nil {
			telemetry.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
			h.audit.Record("", models.AuditActionLoginFailed, "auth", map[string]interface{}{
				"email":  req.Email,
				"reason": "user not found",
			}, c)
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "E-mail ou senha incorretos",
			})
			return
		}

		now := time.Now()
		if user.IsLocked(now) {
			minutes := int(math.Ceil(user.LockRemaining(now).Minutes()))
			telemetry.LoginAttemptsTotal.WithLabelValues("locked").Inc()
			h.audit.Record(user.ID, models.AuditActionLoginFailed, "auth", map[string]interface{}{
				"reason": "account locked",
			}, c)
			c.JSON(http.StatusLocked, gin.H{
				"success": false,
				"message": "Conta temporariamente bloqueada devido a muitas tentativas de login. Tente novamente em " +
					pluralMinutes(minutes),
			})
			return
		}

		if !auth.VerifyPassword(req.Password, user.PasswordHash) {
			attempts, ferr := h.userRepo.RecordLoginFailure(c.Request.Context(), user.ID,
				h.cfg.Auth.MaxLoginAttempts, h.cfg.Auth.LockoutDuration)
			if ferr != nil {
				attempts = user.FailedLoginAttempts + 1
			}
			telemetry.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
			h.audit.Record(user.ID, models.AuditActionLoginFailed, "auth", map[string]interface{}{
				"reason":   "invalid password",
				"attempts": attempts,
			}, c)
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "E-mail ou senha incorretos",
			})
			return
		}

		// Administrators may log into any unit; everyone else only their own.
		if !auth.IsAdmin(user.Unit) && !strings.EqualFold(user.Unit, req.Unit) {
			telemetry.LoginAttemptsTotal.WithLabelValues("wrong_unit").Inc()
			h.audit.Record(user.ID, models.AuditActionLoginFailed, "auth", map[string]interface{}{
				"reason":        "invalid unit",
				"requestedUnit": req.Unit,
				"userUnit":      user.Unit,
			}, c)
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Este usuário só tem acesso à unidade: " + user.Unit,
			})
			return
		}

		if err := h.userRepo.RecordLoginSuccess(c.Request.Context(), user.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Erro interno do servidor",
			})
			return
		}

		token, err := auth.GenerateJWT(user.ID, user.Email, user.Unit, user.Role,
			user.Permissions, h.cfg.Auth.TokenTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Erro interno do servidor",
			})
			return
		}

		telemetry.LoginAttemptsTotal.WithLabelValues("success").Inc()
		h.audit.Record(user.ID, models.AuditActionLogin, "auth", map[string]interface{}{
			"unidade": req.Unit,
		}, c)

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Login realizado com sucesso",
			"token":   token,
			"user":    user.Sanitized(),
			"isAdmin": auth.IsAdmin(user.Unit),
		})
	}
}

// @Summary      Refresh token
// @Description  Issue a fresh token for the authenticated user.
// @Tags         Authentication
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "token, user"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Router       /api/auth/refresh [post]
// RefreshHandler issues a fresh token for the already-authenticated caller.
// POST /api/auth/refresh
func (h *AuthHandlers) RefreshHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Usuário não autenticado",
			})
			return
		}

		token, err := auth.GenerateJWT(user.ID, user.Email, user.Unit, user.Role,
			user.Permissions, h.cfg.Auth.TokenTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Erro interno do servidor",
			})
			return
		}

		h.audit.Record(user.ID, models.AuditActionTokenRefresh, "auth", nil, c)

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"token":   token,
			"user":    user.Sanitized(),
		})
	}
}

// @Summary      Logout
// @Description  Record the logout. Tokens are stateless, so this is audit-only.
// @Tags         Authentication
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/auth/logout [post]
// LogoutHandler records the logout for the audit trail. The token itself stays
// valid until expiry; the client is expected to discard it.
// POST /api/auth/logout
func (h *AuthHandlers) LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := currentUser(c); user != nil {
			h.audit.Record(user.ID, models.AuditActionLogout, "auth", nil, c)
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Logout realizado com sucesso",
		})
	}
}

// @Summary      Verify token
// @Description  Echo the authenticated user behind the presented token.
// @Tags         Authentication
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "user, isAdmin"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Router       /api/auth/verify [get]
// VerifyHandler echoes the account behind a valid token, so the front end can
// restore a session after a page reload.
// GET /api/auth/verify
func (h *AuthHandlers) VerifyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Token inválido",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"user":    user.Sanitized(),
			"isAdmin": auth.IsAdmin(user.Unit),
		})
	}
}

// currentUser returns the account loaded by the auth middleware, or nil.
func currentUser(c *gin.Context) *models.User {
	value, ok := c.Get("user")
	if !ok {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}

// pluralMinutes renders a minute count in Portuguese.
func pluralMinutes(minutes int) string {
	if minutes <= 1 {
		return "1 minuto"
	}
	return strconv.Itoa(minutes) + " minutos"
}
