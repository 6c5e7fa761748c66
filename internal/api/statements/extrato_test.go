package statements

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/autoescola-ideal/sistema-interno/internal/audit"
	"github.com/autoescola-ideal/sistema-interno/internal/auth"
	"github.com/autoescola-ideal/sistema-interno/internal/config"
	"github.com/autoescola-ideal/sistema-interno/internal/statement"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ---------------------------------------------------------------------------
// Test setup helpers
// ---------------------------------------------------------------------------

// fakeReader serves canned value grids keyed by spreadsheet ID.
type fakeReader struct {
	grids map[string][][]interface{}
	errs  map[string]error
}

func (f *fakeReader) ReadRange(_ context.Context, spreadsheetID, _ string) ([][]interface{}, error) {
	if err, ok := f.errs[spreadsheetID]; ok {
		return nil, err
	}
	return f.grids[spreadsheetID], nil
}

func testService(reader *fakeReader) *statement.Service {
	return statement.NewService(reader, map[string]config.SheetUnitConfig{
		"centro":  {Name: "CENTRO", SpreadsheetID: "sheet-centro", ReadRange: "Extrato!A1:F"},
		"piedade": {Name: "PIEDADE", SpreadsheetID: "sheet-piedade", ReadRange: "Extrato!A1:F"},
	})
}

func centroGrid() [][]interface{} {
	return [][]interface{}{
		{"Data de Pagamento", "Nome do Aluno", "Forma de Pagamento", "Valor", "Descrição"},
		{"10/01/2025", "Ana Lima", "PIX", "R$ 350,00", "matrícula, 1ª parcela"},
		{"22/01/2025", "Bruno Costa", "Dinheiro", "R$ 1.200,00", "aula extra"},
	}
}

func piedadeGrid() [][]interface{} {
	return [][]interface{}{
		{"Data de Pagamento", "Nome do Aluno", "Forma de Pagamento", "Valor"},
		{"15/01/2025", "Carla Dias", "PIX", "R$ 450,00"},
	}
}

func adminClaims() *auth.Claims {
	return &auth.Claims{UserID: "admin-1", Unit: auth.AdminUnit, Role: "admin"}
}

func centroClaims() *auth.Claims {
	return &auth.Claims{
		UserID:      "user-1",
		Unit:        "centro",
		Role:        "user",
		Permissions: []string{"consultar_extratos"},
	}
}

// newRouter wires the statement routes behind injected claims.
func newRouter(reader *fakeReader, claims *auth.Claims) *gin.Engine {
	h := NewHandlers(testService(reader), audit.NewRecorder(nil, false))

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set("claims", claims)
			c.Set("user_id", claims.UserID)
		}
		c.Next()
	})
	grp := r.Group("/api/extrato")
	grp.GET("/unidades", h.ListUnitsHandler())
	grp.GET("/health", h.HealthHandler())
	grp.POST("/filtrar", h.FilterStatementHandler())
	grp.GET("/:unidade", h.GetStatementHandler())
	grp.GET("/:unidade/estatisticas", h.GetStatisticsHandler())
	grp.GET("/:unidade/exportar", h.ExportStatementHandler())
	return r
}

func bothUnitsReader() *fakeReader {
	return &fakeReader{grids: map[string][][]interface{}{
		"sheet-centro":  centroGrid(),
		"sheet-piedade": piedadeGrid(),
	}}
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
	return w
}

func getJSON(t *testing.T, resp *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(resp.Body.Bytes(), &m); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	return m
}

// ---------------------------------------------------------------------------
// GetStatementHandler
// ---------------------------------------------------------------------------

func TestGetStatementHandler_OwnUnit(t *testing.T) {
	r := newRouter(bothUnitsReader(), centroClaims())

	w := get(r, "/api/extrato/centro")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	resp := getJSON(t, w)
	dados, _ := resp["dados"].([]interface{})
	if len(dados) != 2 {
		t.Fatalf("len(dados) = %d, want 2", len(dados))
	}
	row, _ := dados[0].(map[string]interface{})
	if row["Nome do Aluno"] == nil {
		t.Error("rows should use the spreadsheet column names")
	}
	stats, _ := resp["estatisticas"].(map[string]interface{})
	if stats["totalRegistros"] != float64(2) {
		t.Errorf("totalRegistros = %v, want 2", stats["totalRegistros"])
	}
}

func TestGetStatementHandler_OtherUnitForbidden(t *testing.T) {
	r := newRouter(bothUnitsReader(), centroClaims())

	w := get(r, "/api/extrato/piedade")
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestGetStatementHandler_TodasRequiresAdmin(t *testing.T) {
	r := newRouter(bothUnitsReader(), centroClaims())

	w := get(r, "/api/extrato/todas")
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestGetStatementHandler_AdminFansOut(t *testing.T) {
	r := newRouter(bothUnitsReader(), adminClaims())

	w := get(r, "/api/extrato/todas")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	resp := getJSON(t, w)
	dados, _ := resp["dados"].([]interface{})
	if len(dados) != 3 {
		t.Errorf("len(dados) = %d, want 3 rows from both sheets", len(dados))
	}
}

func TestGetStatementHandler_UnknownUnit(t *testing.T) {
	r := newRouter(bothUnitsReader(), adminClaims())

	w := get(r, "/api/extrato/recife")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetStatementHandler_DateFilterApplied(t *testing.T) {
	r := newRouter(bothUnitsReader(), centroClaims())

	w := get(r, "/api/extrato/centro?dataInicio=2025-01-15")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := getJSON(t, w)
	dados, _ := resp["dados"].([]interface{})
	if len(dados) != 1 {
		t.Errorf("len(dados) = %d, want 1 row on or after 2025-01-15", len(dados))
	}
}

func TestGetStatementHandler_NoClaims(t *testing.T) {
	r := newRouter(bothUnitsReader(), nil)

	w := get(r, "/api/extrato/centro")
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestGetStatementHandler_FetchErrorDegradesToEmpty(t *testing.T) {
	reader := &fakeReader{errs: map[string]error{"sheet-centro": errors.New("quota")}}
	r := newRouter(reader, centroClaims())

	w := get(r, "/api/extrato/centro")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with an empty statement", w.Code)
	}
	resp := getJSON(t, w)
	dados, _ := resp["dados"].([]interface{})
	if len(dados) != 0 {
		t.Errorf("len(dados) = %d, want 0", len(dados))
	}
}

// ---------------------------------------------------------------------------
// FilterStatementHandler
// ---------------------------------------------------------------------------

func postFilter(r *gin.Engine, body interface{}) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", "/api/extrato/filtrar", bytes.NewBuffer(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestFilterStatementHandler_EmptyUnitDefaultsToOwn(t *testing.T) {
	r := newRouter(bothUnitsReader(), centroClaims())

	w := postFilter(r, gin.H{"competencia": "2025-01"})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	resp := getJSON(t, w)
	filtros, _ := resp["filtros"].(map[string]interface{})
	if filtros["unidade"] != "centro" {
		t.Errorf("unidade = %v, want the caller's own unit", filtros["unidade"])
	}
}

func TestFilterStatementHandler_EmptyUnitDefaultsToAllForAdmin(t *testing.T) {
	r := newRouter(bothUnitsReader(), adminClaims())

	w := postFilter(r, gin.H{})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	resp := getJSON(t, w)
	dados, _ := resp["dados"].([]interface{})
	if len(dados) != 3 {
		t.Errorf("len(dados) = %d, want every unit's rows", len(dados))
	}
}

func TestFilterStatementHandler_OtherUnitForbidden(t *testing.T) {
	r := newRouter(bothUnitsReader(), centroClaims())

	w := postFilter(r, gin.H{"unidade": "piedade"})
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

// ---------------------------------------------------------------------------
// GetStatisticsHandler
// ---------------------------------------------------------------------------

func TestGetStatisticsHandler_AggregatesOnly(t *testing.T) {
	r := newRouter(bothUnitsReader(), centroClaims())

	w := get(r, "/api/extrato/centro/estatisticas")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	resp := getJSON(t, w)
	if resp["dados"] != nil {
		t.Error("statistics response should not carry the row data")
	}
	stats, _ := resp["estatisticas"].(map[string]interface{})
	if stats["valorTotal"] != float64(1550) {
		t.Errorf("valorTotal = %v, want 1550", stats["valorTotal"])
	}
}

// ---------------------------------------------------------------------------
// ExportStatementHandler
// ---------------------------------------------------------------------------

func TestExportStatementHandler_CSVAttachment(t *testing.T) {
	r := newRouter(bothUnitsReader(), centroClaims())

	w := get(r, "/api/extrato/centro/exportar")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("Content-Disposition = %q, want an attachment", cd)
	}

	body := w.Body.Bytes()
	if !bytes.HasPrefix(body, []byte{0xEF, 0xBB, 0xBF}) {
		t.Error("CSV body should start with the UTF-8 BOM")
	}

	content := strings.TrimPrefix(string(body), "\xEF\xBB\xBF")
	records, err := csv.NewReader(strings.NewReader(content)).ReadAll()
	if err != nil {
		t.Fatalf("export is not parseable CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want header plus 2 rows", len(records))
	}
	// The description containing a comma must survive the round trip intact.
	found := false
	for _, record := range records[1:] {
		if record[5] == "matrícula, 1ª parcela" {
			found = true
		}
	}
	if !found {
		t.Error("comma-bearing description did not survive the CSV round trip")
	}
}

func TestExportStatementHandler_OtherUnitForbidden(t *testing.T) {
	r := newRouter(bothUnitsReader(), centroClaims())

	w := get(r, "/api/extrato/piedade/exportar")
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

// ---------------------------------------------------------------------------
// ListUnitsHandler
// ---------------------------------------------------------------------------

func TestListUnitsHandler_AdminSeesAll(t *testing.T) {
	r := newRouter(bothUnitsReader(), adminClaims())

	w := get(r, "/api/extrato/unidades")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := getJSON(t, w)
	if resp["count"] != float64(2) {
		t.Errorf("count = %v, want 2", resp["count"])
	}
}

func TestListUnitsHandler_RegularUserSeesOwn(t *testing.T) {
	r := newRouter(bothUnitsReader(), centroClaims())

	w := get(r, "/api/extrato/unidades")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := getJSON(t, w)
	if resp["count"] != float64(1) {
		t.Fatalf("count = %v, want 1", resp["count"])
	}
	data, _ := resp["data"].([]interface{})
	unit, _ := data[0].(map[string]interface{})
	if unit["codigo"] != "centro" {
		t.Errorf("codigo = %v, want centro", unit["codigo"])
	}
}

// ---------------------------------------------------------------------------
// HealthHandler
// ---------------------------------------------------------------------------

func TestHealthHandler_OK(t *testing.T) {
	r := newRouter(bothUnitsReader(), centroClaims())

	w := get(r, "/api/extrato/health")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	resp := getJSON(t, w)
	if resp["status"] != "OK" {
		t.Errorf("status = %v, want OK", resp["status"])
	}
}

func TestHealthHandler_SourceDown(t *testing.T) {
	reader := &fakeReader{errs: map[string]error{
		"sheet-centro":  errors.New("unreachable"),
		"sheet-piedade": errors.New("unreachable"),
	}}
	r := newRouter(reader, centroClaims())

	w := get(r, "/api/extrato/health")

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	resp := getJSON(t, w)
	if resp["status"] != "ERRO" {
		t.Errorf("status = %v, want ERRO", resp["status"])
	}
}
