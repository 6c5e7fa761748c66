// audit.go implements the audit trail listing endpoint.
package admin

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/autoescola-ideal/sistema-interno/internal/audit"
	"github.com/autoescola-ideal/sistema-interno/internal/db/repositories"
)

// AuditHandlers handles audit trail endpoints
type AuditHandlers struct {
	recorder *audit.Recorder
}

// NewAuditHandlers creates a new AuditHandlers instance
func NewAuditHandlers(recorder *audit.Recorder) *AuditHandlers {
	return &AuditHandlers{recorder: recorder}
}

// @Summary      List audit entries
// @Description  List audit log entries newest first with optional filters. Admin only.
// @Tags         Audit
// @Security     Bearer
// @Produce      json
// @Param        user_id     query  string  false  "Filter by actor"
// @Param        action      query  string  false  "Filter by action (login, create_user, ...)"
// @Param        resource    query  string  false  "Filter by resource (auth, users, extrato)"
// @Param        ip_address  query  string  false  "Filter by client IP"
// @Param        date_from   query  string  false  "Entries at or after this date (YYYY-MM-DD)"
// @Param        date_to     query  string  false  "Entries before the end of this date (YYYY-MM-DD)"
// @Param        limit       query  int     false  "Maximum entries, capped at 500"
// @Success      200  {object}  map[string]interface{}  "data, count"
// @Failure      403  {object}  map[string]interface{}  "Admin only"
// @Router       /api/audit [get]
// ListHandler lists audit entries matching the query filters.
// GET /api/audit
func (h *AuditHandlers) ListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		filters := repositories.AuditFilters{}
		if v := c.Query("user_id"); v != "" {
			filters.UserID = &v
		}
		if v := c.Query("action"); v != "" {
			filters.Action = &v
		}
		if v := c.Query("resource"); v != "" {
			filters.Resource = &v
		}
		if v := c.Query("ip_address"); v != "" {
			filters.IPAddress = &v
		}
		if v := c.Query("date_from"); v != "" {
			from, err := time.Parse("2006-01-02", v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"success": false,
					"message": "Dados inválidos",
					"errors":  []string{"date_from deve estar no formato YYYY-MM-DD"},
				})
				return
			}
			filters.DateFrom = &from
		}
		if v := c.Query("date_to"); v != "" {
			parsed, err := time.Parse("2006-01-02", v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"success": false,
					"message": "Dados inválidos",
					"errors":  []string{"date_to deve estar no formato YYYY-MM-DD"},
				})
				return
			}
			// Inclusive: everything up to the end of the named day.
			to := parsed.AddDate(0, 0, 1)
			filters.DateTo = &to
		}
		if v := c.Query("limit"); v != "" {
			if limit, err := strconv.Atoi(v); err == nil && limit > 0 {
				filters.Limit = limit
			}
		}

		entries, err := h.recorder.Query(c.Request.Context(), filters)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Erro interno do servidor",
			})
			return
		}

		data := make([]map[string]interface{}, 0, len(entries))
		for _, entry := range entries {
			data = append(data, map[string]interface{}{
				"id":        entry.ID,
				"userId":    entry.UserID,
				"action":    entry.Action,
				"resource":  entry.Resource,
				"details":   entry.Details,
				"ipAddress": entry.IPAddress,
				"userAgent": entry.UserAgent,
				"createdAt": entry.CreatedAt,
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    data,
			"count":   len(data),
		})
	}
}
