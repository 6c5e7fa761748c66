package admin

import (
	"net/http"
	"net/http/httptest"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

func newStatsRouter(t *testing.T) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h := NewStatsHandler(sqlx.NewDb(db, "postgres"))

	r := gin.New()
	r.GET("/users/stats/overview", h.OverviewHandler())
	return mock, r
}

func TestOverviewHandler_Success(t *testing.T) {
	mock, r := newStatsRouter(t)

	mock.ExpectQuery("SELECT.*COUNT.*FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"total", "active", "inactive", "recent_logins"}).
			AddRow(12, 10, 2, 7))
	mock.ExpectQuery("SELECT unit, COUNT.*GROUP BY unit").
		WillReturnRows(sqlmock.NewRows([]string{"unit", "count"}).
			AddRow("centro", 6).
			AddRow("piedade", 4))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/users/stats/overview", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	resp := getJSON(t, w)
	data, _ := resp["data"].(map[string]interface{})
	if data["total"] != float64(12) {
		t.Errorf("total = %v, want 12", data["total"])
	}
	if data["active"] != float64(10) || data["inactive"] != float64(2) {
		t.Errorf("active/inactive = %v/%v", data["active"], data["inactive"])
	}
	byUnit, _ := data["byUnit"].([]interface{})
	if len(byUnit) != 2 {
		t.Fatalf("len(byUnit) = %d, want 2", len(byUnit))
	}
	first, _ := byUnit[0].(map[string]interface{})
	if first["unidade"] != "centro" || first["count"] != float64(6) {
		t.Errorf("byUnit[0] = %v", first)
	}
}

func TestOverviewHandler_TotalsQueryFails(t *testing.T) {
	mock, r := newStatsRouter(t)

	mock.ExpectQuery("SELECT.*COUNT.*FROM users").WillReturnError(errDB)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/users/stats/overview", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestOverviewHandler_ByUnitQueryFails(t *testing.T) {
	mock, r := newStatsRouter(t)

	mock.ExpectQuery("SELECT.*COUNT.*FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"total", "active", "inactive", "recent_logins"}).
			AddRow(0, 0, 0, 0))
	mock.ExpectQuery("SELECT unit, COUNT").WillReturnError(errDB)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/users/stats/overview", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
