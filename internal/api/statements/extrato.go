// Package statements implements the HTTP surface of the financial statement
// proxy: statement queries, aggregates, CSV export, and the statement source
// health check. All handlers assume the auth middleware already ran; unit
// access is checked here because the unit may come from the body as well as
// the path.
package statements

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/autoescola-ideal/sistema-interno/internal/audit"
	"github.com/autoescola-ideal/sistema-interno/internal/auth"
	"github.com/autoescola-ideal/sistema-interno/internal/db/models"
	"github.com/autoescola-ideal/sistema-interno/internal/middleware"
	"github.com/autoescola-ideal/sistema-interno/internal/statement"
	"github.com/autoescola-ideal/sistema-interno/internal/telemetry"
)

// Handlers handles statement endpoints
type Handlers struct {
	svc   *statement.Service
	audit *audit.Recorder
}

// NewHandlers creates a new statement Handlers instance
func NewHandlers(svc *statement.Service, recorder *audit.Recorder) *Handlers {
	return &Handlers{svc: svc, audit: recorder}
}

// checkUnitAccess verifies the caller may read the given unit and writes the
// 403 response itself when they may not.
func (h *Handlers) checkUnitAccess(c *gin.Context, unit string) bool {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "Usuário não autenticado",
		})
		return false
	}
	if !auth.CanAccessUnit(claims.Unit, unit) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "Acesso negado a esta unidade",
			"errors":  []string{"sua unidade é: " + claims.Unit},
		})
		return false
	}
	return true
}

// query runs the statement query for the handler, mapping an unknown unit to
// a 404 envelope. Returns nil after writing the response on failure.
func (h *Handlers) query(c *gin.Context, f statement.Filters) *statement.Result {
	result, err := h.svc.Query(c.Request.Context(), f)
	if err != nil {
		if errors.Is(err, statement.ErrUnknownUnit) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Unidade não configurada: " + f.Unit,
			})
			return nil
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Erro ao buscar extratos",
		})
		return nil
	}
	return result
}

// bindQueryFilters reads the date and competency filters from the query
// string. The unit always comes from the route path.
func bindQueryFilters(c *gin.Context) statement.Filters {
	return statement.Filters{
		Unit:       c.Param("unidade"),
		DateFrom:   c.Query("dataInicio"),
		DateTo:     c.Query("dataFim"),
		Competency: c.Query("competencia"),
	}
}

// @Summary      Get statement
// @Description  Payment rows for one unit (or "todas" for every unit), newest first, with aggregates.
// @Tags         Statements
// @Security     Bearer
// @Produce      json
// @Param        unidade      path   string  true   "Unit key, or todas"
// @Param        dataInicio   query  string  false  "Start date YYYY-MM-DD, inclusive"
// @Param        dataFim      query  string  false  "End date YYYY-MM-DD, inclusive"
// @Param        competencia  query  string  false  "Competency month YYYY-MM"
// @Success      200  {object}  map[string]interface{}  "dados, estatisticas, filtros"
// @Failure      403  {object}  map[string]interface{}  "Caller's unit does not match"
// @Failure      404  {object}  map[string]interface{}  "Unknown unit"
// @Router       /api/extrato/{unidade} [get]
// GetStatementHandler serves the filtered statement for one unit.
// GET /api/extrato/:unidade
func (h *Handlers) GetStatementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		filters := bindQueryFilters(c)
		if !h.checkUnitAccess(c, filters.Unit) {
			return
		}

		result := h.query(c, filters)
		if result == nil {
			return
		}

		h.audit.Record(actorID(c), models.AuditActionViewStatement, "extrato", map[string]interface{}{
			"unidade":   filters.Unit,
			"registros": result.Stats.TotalCount,
		}, c)

		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"dados":        result.Lines,
			"estatisticas": result.Stats,
			"filtros":      result.Filters,
		})
	}
}

// @Summary      Filter statement
// @Description  Same as GET /api/extrato/{unidade} but with the filters in the request body.
// @Tags         Statements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        filtros  body  statement.Filters  true  "Statement filters"
// @Success      200  {object}  map[string]interface{}  "dados, estatisticas, filtros"
// @Router       /api/extrato/filtrar [post]
// FilterStatementHandler serves a statement query with body filters. An empty
// unit means the caller's own unit, or every unit for administrators.
// POST /api/extrato/filtrar
func (h *Handlers) FilterStatementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filters statement.Filters
		if err := c.ShouldBindJSON(&filters); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Dados inválidos",
				"errors":  []string{err.Error()},
			})
			return
		}

		claims := middleware.CurrentClaims(c)
		if filters.Unit == "" && claims != nil {
			if auth.IsAdmin(claims.Unit) {
				filters.Unit = statement.AllUnits
			} else {
				filters.Unit = claims.Unit
			}
		}
		if !h.checkUnitAccess(c, filters.Unit) {
			return
		}

		result := h.query(c, filters)
		if result == nil {
			return
		}

		h.audit.Record(actorID(c), models.AuditActionViewStatement, "extrato", map[string]interface{}{
			"unidade":   filters.Unit,
			"registros": result.Stats.TotalCount,
		}, c)

		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"dados":        result.Lines,
			"estatisticas": result.Stats,
			"filtros":      result.Filters,
		})
	}
}

// @Summary      Statement statistics
// @Description  Aggregates only: totals, average, and per-unit, per-method, per-month breakdowns.
// @Tags         Statements
// @Security     Bearer
// @Produce      json
// @Param        unidade  path  string  true  "Unit key, or todas"
// @Success      200  {object}  map[string]interface{}  "estatisticas, filtros"
// @Router       /api/extrato/{unidade}/estatisticas [get]
// GetStatisticsHandler serves just the aggregates for a unit.
// GET /api/extrato/:unidade/estatisticas
func (h *Handlers) GetStatisticsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		filters := bindQueryFilters(c)
		if !h.checkUnitAccess(c, filters.Unit) {
			return
		}

		result := h.query(c, filters)
		if result == nil {
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"estatisticas": result.Stats,
			"filtros":      result.Filters,
		})
	}
}

// @Summary      Export statement
// @Description  The filtered statement as a UTF-8 CSV attachment.
// @Tags         Statements
// @Security     Bearer
// @Produce      text/csv
// @Param        unidade      path   string  true   "Unit key, or todas"
// @Param        dataInicio   query  string  false  "Start date YYYY-MM-DD, inclusive"
// @Param        dataFim      query  string  false  "End date YYYY-MM-DD, inclusive"
// @Param        competencia  query  string  false  "Competency month YYYY-MM"
// @Success      200  {string}  string  "CSV body"
// @Router       /api/extrato/{unidade}/exportar [get]
// ExportStatementHandler streams the filtered statement as CSV.
// GET /api/extrato/:unidade/exportar
func (h *Handlers) ExportStatementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		filters := bindQueryFilters(c)
		if !h.checkUnitAccess(c, filters.Unit) {
			return
		}

		result := h.query(c, filters)
		if result == nil {
			return
		}

		filename := fmt.Sprintf("extrato_%d.csv", time.Now().UnixMilli())
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
		c.Status(http.StatusOK)

		if err := statement.WriteCSV(c.Writer, result.Lines); err != nil {
			// Headers are already out; nothing to do but note the failure.
			_ = c.Error(err)
			return
		}

		telemetry.StatementExportsTotal.Inc()
		h.audit.Record(actorID(c), models.AuditActionExportStatement, "extrato", map[string]interface{}{
			"unidade":   filters.Unit,
			"registros": result.Stats.TotalCount,
		}, c)
	}
}

// @Summary      List statement units
// @Description  The unit sheets the caller may read. Administrators see every unit.
// @Tags         Statements
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "data"
// @Router       /api/extrato/unidades [get]
// ListUnitsHandler lists the configured unit sources visible to the caller.
// GET /api/extrato/unidades
func (h *Handlers) ListUnitsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := middleware.CurrentClaims(c)
		if claims == nil {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Usuário não autenticado",
			})
			return
		}

		units := h.svc.Units()
		if !auth.IsAdmin(claims.Unit) {
			visible := make([]statement.UnitSource, 0, 1)
			for _, unit := range units {
				if strings.EqualFold(unit.Key, claims.Unit) {
					visible = append(visible, unit)
				}
			}
			units = visible
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    units,
			"count":   len(units),
		})
	}
}

// @Summary      Statement source health
// @Description  Whether the spreadsheet source is configured and reachable.
// @Tags         Statements
// @Produce      json
// @Success      200  {object}  statement.Health
// @Failure      503  {object}  statement.Health
// @Router       /api/extrato/health [get]
// HealthHandler reports whether the statement source is usable.
// GET /api/extrato/health
func (h *Handlers) HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		health := h.svc.CheckHealth(c.Request.Context())
		status := http.StatusOK
		if health.Status != "OK" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, health)
	}
}

// actorID returns the authenticated caller's user ID, or "" when absent.
func actorID(c *gin.Context) string {
	if claims := middleware.CurrentClaims(c); claims != nil {
		return claims.UserID
	}
	return ""
}
