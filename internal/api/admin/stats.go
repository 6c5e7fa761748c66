// stats.go implements the admin dashboard statistics endpoint.
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// StatsHandler handles user statistics requests
type StatsHandler struct {
	db *sqlx.DB
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(database *sqlx.DB) *StatsHandler {
	return &StatsHandler{db: database}
}

// UserTotals carries the account counters for the dashboard
type UserTotals struct {
	Total        int64 `db:"total" json:"total"`
	Active       int64 `db:"active" json:"active"`
	Inactive     int64 `db:"inactive" json:"inactive"`
	RecentLogins int64 `db:"recent_logins" json:"recentLogins"`
}

// UnitCount is the number of active accounts in one unit
type UnitCount struct {
	Unit  string `db:"unit" json:"unidade"`
	Count int64  `db:"count" json:"count"`
}

// @Summary      User statistics
// @Description  Account totals by status plus active accounts per unit. Admin only.
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "total, active, inactive, recentLogins, byUnit"
// @Failure      403  {object}  map[string]interface{}  "Admin only"
// @Router       /api/users/stats/overview [get]
// OverviewHandler returns the account totals for the admin dashboard.
// GET /api/users/stats/overview
func (h *StatsHandler) OverviewHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var totals UserTotals
		err := h.db.GetContext(c.Request.Context(), &totals, `
			SELECT
				COUNT(*) AS total,
				COUNT(*) FILTER (WHERE status = 'active') AS active,
				COUNT(*) FILTER (WHERE status = 'inactive') AS inactive,
				COUNT(*) FILTER (WHERE last_access > NOW() - INTERVAL '7 days') AS recent_logins
			FROM users`)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Erro ao obter estatísticas",
			})
			return
		}

		byUnit := []UnitCount{}
		err = h.db.SelectContext(c.Request.Context(), &byUnit, `
			SELECT unit, COUNT(*) AS count
			FROM users
			WHERE status = 'active'
			GROUP BY unit
			ORDER BY unit`)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Erro ao obter estatísticas",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"total":        totals.Total,
				"active":       totals.Active,
				"inactive":     totals.Inactive,
				"recentLogins": totals.RecentLogins,
				"byUnit":       byUnit,
			},
		})
	}
}
