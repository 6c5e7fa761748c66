package statement

import "testing"

// ---------------------------------------------------------------------------
// normalizeDate
// ---------------------------------------------------------------------------

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"brazilian date", "15/03/2025", "2025-03-15"},
		{"single digit day and month", "5/3/2025", "2025-03-05"},
		{"already iso", "2025-03-15", "2025-03-15"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"missing part kept raw", "15/2025", "15/2025"},
		{"empty part kept raw", "15//2025", "15//2025"},
		{"garbage without slash kept raw", "amanhã", "amanhã"},
		{"surrounding whitespace trimmed", " 01/12/2024 ", "2024-12-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeDate(tt.input); got != tt.want {
				t.Errorf("normalizeDate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// parseAmount
// ---------------------------------------------------------------------------

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"brazilian currency", "R$ 1.234,56", 1234.56},
		{"comma decimal only", "150,00", 150},
		{"plain american decimal", "150.00", 150},
		{"no decimals", "300", 300},
		{"thousands with comma decimal", "R$ 12.345.678,90", 12345678.90},
		{"currency symbol glued", "R$150,50", 150.50},
		{"non-breaking space", "R$ 99,90", 99.90},
		{"empty", "", 0},
		{"garbage", "a pagar", 0},
		{"negative", "-50,00", -50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseAmount(tt.input); got != tt.want {
				t.Errorf("parseAmount(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// formatAmount
// ---------------------------------------------------------------------------

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  string
	}{
		{"cents", 150.5, "R$ 150,50"},
		{"thousands grouped with dots", 1234.56, "R$ 1.234,56"},
		{"millions", 12345678.9, "R$ 12.345.678,90"},
		{"exact thousand", 1000, "R$ 1.000,00"},
		{"zero", 0, "R$ 0,00"},
		{"negative collapses to zero", -12.5, "R$ 0,00"},
		{"small", 7, "R$ 7,00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatAmount(tt.input); got != tt.want {
				t.Errorf("formatAmount(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// competencyFromDate
// ---------------------------------------------------------------------------

func TestCompetencyFromDate(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"15/03/2025", "2025-03"},
		{"2025-03-15", "2025-03"},
		{"", ""},
		{"nonsense", ""},
	}
	for _, tt := range tests {
		if got := competencyFromDate(tt.input); got != tt.want {
			t.Errorf("competencyFromDate(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// normalizeRows
// ---------------------------------------------------------------------------

func sheetRows() [][]interface{} {
	return [][]interface{}{
		{"Data de Pagamento", "Nome Cliente", "Forma de Pagamento", "Valor", "Observações"},
		{"10/01/2025", "Ana Lima", "PIX", "R$ 350,00", "1ª parcela"},
		{"22/01/2025", "Bruno Costa", "Dinheiro", "R$ 1.200,00"},
	}
}

func TestNormalizeRows_MapsColumnsByHeader(t *testing.T) {
	lines := normalizeRows(sheetRows(), "CENTRO")
	if len(lines) != 2 {
		t.Fatalf("len(lines) = %d, want 2", len(lines))
	}

	first := lines[0]
	if first.PaymentDate != "2025-01-10" {
		t.Errorf("PaymentDate = %q, want 2025-01-10", first.PaymentDate)
	}
	if first.StudentName != "Ana Lima" {
		t.Errorf("StudentName = %q, want Ana Lima", first.StudentName)
	}
	if first.PaymentMethod != "PIX" {
		t.Errorf("PaymentMethod = %q, want PIX", first.PaymentMethod)
	}
	if first.Amount != 350 {
		t.Errorf("Amount = %v, want 350", first.Amount)
	}
	if first.AmountDisplay != "R$ 350,00" {
		t.Errorf("AmountDisplay = %q, want R$ 350,00", first.AmountDisplay)
	}
	if first.Description != "1ª parcela" {
		t.Errorf("Description = %q, want 1ª parcela", first.Description)
	}
	if first.Competency != "2025-01" {
		t.Errorf("Competency = %q, want 2025-01", first.Competency)
	}
}

func TestNormalizeRows_UnitFallsBackToSheetName(t *testing.T) {
	lines := normalizeRows(sheetRows(), "CENTRO")
	for _, line := range lines {
		if line.Unit != "CENTRO" {
			t.Errorf("Unit = %q, want CENTRO when the sheet has no Unidade column", line.Unit)
		}
	}
}

func TestNormalizeRows_UnidadeColumnWins(t *testing.T) {
	rows := [][]interface{}{
		{"Data de Pagamento", "Nome do Aluno", "Valor", "Unidade"},
		{"03/02/2025", "Carla Dias", "100,00", "PIEDADE"},
	}
	lines := normalizeRows(rows, "CENTRO")
	if len(lines) != 1 {
		t.Fatalf("len(lines) = %d, want 1", len(lines))
	}
	if lines[0].Unit != "PIEDADE" {
		t.Errorf("Unit = %q, want PIEDADE from the sheet column", lines[0].Unit)
	}
}

func TestNormalizeRows_RaggedRowYieldsEmptyFields(t *testing.T) {
	rows := [][]interface{}{
		{"Data de Pagamento", "Nome Cliente", "Forma de Pagamento", "Valor"},
		{"10/01/2025"},
	}
	lines := normalizeRows(rows, "CENTRO")
	if len(lines) != 1 {
		t.Fatalf("len(lines) = %d, want 1", len(lines))
	}
	line := lines[0]
	if line.StudentName != "" || line.PaymentMethod != "" {
		t.Errorf("short row should yield empty fields, got %+v", line)
	}
	if line.Amount != 0 || line.AmountDisplay != "R$ 0,00" {
		t.Errorf("missing Valor should parse to zero, got %v / %q", line.Amount, line.AmountDisplay)
	}
}

func TestNormalizeRows_ExplicitCompetencyKept(t *testing.T) {
	rows := [][]interface{}{
		{"Data de Pagamento", "Valor", "Competencia"},
		{"10/01/2025", "50,00", "2024-12"},
	}
	lines := normalizeRows(rows, "CENTRO")
	if lines[0].Competency != "2024-12" {
		t.Errorf("Competency = %q, want the sheet's explicit 2024-12", lines[0].Competency)
	}
}

func TestNormalizeRows_NumericCells(t *testing.T) {
	// The API may hand back numbers as float64 instead of strings.
	rows := [][]interface{}{
		{"Data de Pagamento", "Nome Cliente", "Valor"},
		{"10/01/2025", "Davi Reis", float64(275)},
	}
	lines := normalizeRows(rows, "CENTRO")
	if lines[0].Amount != 275 {
		t.Errorf("Amount = %v, want 275 from a numeric cell", lines[0].Amount)
	}
}

func TestNormalizeRows_HeaderOnlyOrEmpty(t *testing.T) {
	if lines := normalizeRows(nil, "CENTRO"); lines != nil {
		t.Errorf("normalizeRows(nil) = %v, want nil", lines)
	}
	headerOnly := [][]interface{}{{"Data de Pagamento", "Valor"}}
	if lines := normalizeRows(headerOnly, "CENTRO"); lines != nil {
		t.Errorf("normalizeRows(header only) = %v, want nil", lines)
	}
}
