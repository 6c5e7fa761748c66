// Package api wires together all HTTP routes for the school's internal system.
//
// Route grouping philosophy:
//   - /health, /ready and /version are unauthenticated so that load balancers
//     and uptime monitors can probe the service without credentials.
//   - /api/auth/login and /api/unidades are public: the login form needs both
//     before the user has a token.
//   - Everything else under /api/ requires a valid JWT. The statement routes
//     additionally require the consultar_extratos permission, and the admin
//     routes require the administrador unit.
package api

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/autoescola-ideal/sistema-interno/internal/api/admin"
	"github.com/autoescola-ideal/sistema-interno/internal/api/statements"
	"github.com/autoescola-ideal/sistema-interno/internal/audit"
	"github.com/autoescola-ideal/sistema-interno/internal/auth"
	"github.com/autoescola-ideal/sistema-interno/internal/config"
	"github.com/autoescola-ideal/sistema-interno/internal/db/repositories"
	"github.com/autoescola-ideal/sistema-interno/internal/jobs"
	"github.com/autoescola-ideal/sistema-interno/internal/middleware"
	"github.com/autoescola-ideal/sistema-interno/internal/sheets"
	"github.com/autoescola-ideal/sistema-interno/internal/statement"
)

// BackgroundServices holds references to background jobs and resources that must
// be stopped during graceful shutdown. The caller (cmd/server) is responsible for
// calling Shutdown() when the process receives a termination signal.
type BackgroundServices struct {
	auditRetentionJob *jobs.AuditRetentionJob
	rateLimiters      []*middleware.RateLimiter
}

// Shutdown stops all background goroutines. It should be called after the HTTP
// server has been shut down so that in-flight requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.auditRetentionJob != nil {
		bg.auditRetentionJob.Stop()
	}
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *sql.DB) (*gin.Engine, *BackgroundServices) {
	router := gin.New()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	auditRepo := repositories.NewAuditRepository(db)
	unitRepo := repositories.NewUnitRepository(db)

	// Wrap *sql.DB with sqlx for the stats queries
	sqlxDB := sqlx.NewDb(db, "postgres")

	auditRecorder := audit.NewRecorder(auditRepo, cfg.Audit.Enabled)

	// Google Sheets client for the financial statement routes. When the client
	// cannot be built (missing credentials in a dev environment, for example)
	// the statement service starts without any units: named-unit requests get a
	// 404 and /api/extrato/health reports ERRO, but the rest of the system
	// stays up.
	var statementService *statement.Service
	if len(cfg.Sheets.Units) > 0 {
		sheetsClient, err := sheets.New(context.Background(), &cfg.Sheets)
		if err != nil {
			log.Printf("Failed to initialize Google Sheets client: %v", err)
			statementService = statement.NewService(nil, nil)
		} else {
			log.Printf("Initialized Google Sheets client with %d unit sheets", len(cfg.Sheets.Units))
			statementService = statement.NewService(sheetsClient, cfg.Sheets.Units)
		}
	} else {
		log.Println("No unit sheets configured; statement routes will report ERRO")
		statementService = statement.NewService(nil, nil)
	}

	// Initialize audit retention job
	auditRetentionJob := jobs.NewAuditRetentionJob(auditRecorder, cfg.Audit)
	go auditRetentionJob.Start(context.Background())

	// Initialize handlers
	authHandlers := admin.NewAuthHandlers(cfg, db, auditRecorder)
	userHandlers := admin.NewUserHandlers(cfg, db, auditRecorder)
	statsHandler := admin.NewStatsHandler(sqlxDB)
	auditHandlers := admin.NewAuditHandlers(auditRecorder)
	statementHandlers := statements.NewHandlers(statementService, auditRecorder)

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	// Health and version endpoints (no auth)
	router.GET("/health", healthCheckHandler(db))
	router.GET("/ready", readinessHandler(db, statementService))
	router.GET("/version", versionHandler())

	// Rate limiters. The limiter goroutines are only started when rate
	// limiting is enabled so a disabled config leaves nothing to clean up.
	var rateLimiters []*middleware.RateLimiter
	passthrough := gin.HandlerFunc(func(c *gin.Context) { c.Next() })
	loginLimit, generalLimit := passthrough, passthrough
	if cfg.Security.RateLimiting.Enabled {
		loginRateLimiter := middleware.NewRateLimiter(middleware.LoginRateLimitConfig(cfg.Security.RateLimiting))
		generalRateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig(cfg.Security.RateLimiting))
		rateLimiters = []*middleware.RateLimiter{loginRateLimiter, generalRateLimiter}
		loginLimit = middleware.RateLimitMiddleware(loginRateLimiter)
		generalLimit = middleware.RateLimitMiddleware(generalRateLimiter)
	}

	authRequired := middleware.AuthMiddleware(userRepo)

	api := router.Group("/api")
	{
		// The login form loads the unit list before authentication
		api.GET("/unidades", listUnitsHandler(unitRepo))

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", loginLimit, authHandlers.LoginHandler())
			authGroup.POST("/refresh", authRequired, authHandlers.RefreshHandler())
			authGroup.POST("/logout", authRequired, authHandlers.LogoutHandler())
			authGroup.GET("/verify", authRequired, authHandlers.VerifyHandler())
		}

		protected := api.Group("")
		protected.Use(generalLimit)
		protected.Use(authRequired)
		{
			usersGroup := protected.Group("/users")
			{
				usersGroup.GET("", middleware.RequireAdmin(), userHandlers.ListUsersHandler())
				usersGroup.POST("", middleware.RequireAdmin(), userHandlers.CreateUserHandler())
				usersGroup.GET("/stats/overview", middleware.RequireAdmin(), statsHandler.OverviewHandler())
				usersGroup.GET("/:id", middleware.RequireOwnershipOrAdmin("id"), userHandlers.GetUserHandler())
				usersGroup.PUT("/:id", middleware.RequireOwnershipOrAdmin("id"), userHandlers.UpdateUserHandler())
				usersGroup.DELETE("/:id", middleware.RequireAdmin(), userHandlers.DeleteUserHandler())
				usersGroup.PATCH("/:id/activate", middleware.RequireAdmin(), userHandlers.ActivateUserHandler())
				usersGroup.PATCH("/:id/reset-password", middleware.RequireAdmin(), userHandlers.ResetPasswordHandler())
			}

			auditGroup := protected.Group("/audit")
			{
				auditGroup.GET("", middleware.RequireAdmin(), auditHandlers.ListHandler())
			}

			extratoGroup := protected.Group("/extrato")
			extratoGroup.Use(middleware.RequirePermission(auth.PermissionViewStatements))
			{
				extratoGroup.GET("/unidades", statementHandlers.ListUnitsHandler())
				extratoGroup.GET("/health", statementHandlers.HealthHandler())
				extratoGroup.POST("/filtrar", statementHandlers.FilterStatementHandler())
				extratoGroup.GET("/:unidade", statementHandlers.GetStatementHandler())
				extratoGroup.GET("/:unidade/estatisticas", statementHandlers.GetStatisticsHandler())
				extratoGroup.GET("/:unidade/exportar", statementHandlers.ExportStatementHandler())
			}
		}
	}

	bg := &BackgroundServices{
		auditRetentionJob: auditRetentionJob,
		rateLimiters:      rateLimiters,
	}

	return router, bg
}

// @Summary      Health check
// @Description  Returns the health status of the service, including database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy, error: database connection failed"
// @Router       /health [get]
// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check database connection
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      Readiness check
// @Description  Returns whether the service is ready to accept traffic. Checks database connectivity and statement source configuration.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ready: true, checks, time"
// @Failure      503  {object}  map[string]interface{}  "ready: false, error: database not ready"
// @Router       /ready [get]
// readinessHandler returns the readiness status of the service.
// Unlike the liveness probe (/health), this also reports whether any statement
// sheets are configured. A missing sheet configuration does not fail readiness:
// the admin routes still work without it.
func readinessHandler(db *sql.DB, svc *statement.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		// Check database connection
		if err := db.Ping(); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		if len(svc.Units()) > 0 {
			checks["sheets"] = "configured"
		} else {
			checks["sheets"] = "not configured"
		}

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Description  Returns the current API version.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version"
// @Router       /version [get]
// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "1.0.0",
			"api_version": "v1",
		})
	}
}

// @Summary      List branch offices
// @Description  Returns every active branch office. Public: the login form needs the list before authentication.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "success, data: [{codigo, nome}]"
// @Failure      500  {object}  map[string]interface{}
// @Router       /api/unidades [get]
// listUnitsHandler returns the active branch offices registered in the database
func listUnitsHandler(unitRepo *repositories.UnitRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		units, err := unitRepo.ListUnits(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Erro interno do servidor",
			})
			return
		}

		data := make([]gin.H, 0, len(units))
		for _, unit := range units {
			data = append(data, gin.H{
				"codigo": unit.Key,
				"nome":   unit.Name,
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    data,
		})
	}
}

// LoggerMiddleware provides structured logging
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		// Log the request
		if cfg.Logging.Format == "json" {
			logJSON(c, latency, path, query)
		} else {
			logText(c, latency, path, query)
		}
	}
}

// logJSON logs a request as a JSON-structured slog record.
func logJSON(c *gin.Context, latency time.Duration, path, query string) {
	requestID, _ := c.Get(middleware.RequestIDKey)
	slog.LogAttrs(
		c.Request.Context(),
		slog.LevelInfo,
		"http request",
		slog.String("method", c.Request.Method),
		slog.String("path", path),
		slog.String("query", query),
		slog.Int("status", c.Writer.Status()),
		slog.Int("size", c.Writer.Size()),
		slog.Duration("latency", latency),
		slog.String("ip", c.ClientIP()),
		slog.String("request_id", fmt.Sprintf("%v", requestID)),
		slog.String("user_agent", c.Request.UserAgent()),
	)
}

// logText logs a request as a human-readable slog text record.
func logText(c *gin.Context, latency time.Duration, path, query string) {
	// reuse the same structured output; slog will emit text format when the global
	// handler is a TextHandler (configured in telemetry.SetupLogger).
	logJSON(c, latency, path, query)
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Check if origin is allowed
		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, PATCH, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
