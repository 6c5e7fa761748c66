package statement

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
)

func TestWriteCSV_StartsWithBOM(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte{0xEF, 0xBB, 0xBF}) {
		t.Error("output should start with the UTF-8 byte-order mark")
	}
}

func TestWriteCSV_HeaderRow(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	content := strings.TrimPrefix(buf.String(), "\xEF\xBB\xBF")
	records, err := csv.NewReader(strings.NewReader(content)).ReadAll()
	if err != nil {
		t.Fatalf("reading output back: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want header only", len(records))
	}

	want := []string{"Data de Pagamento", "Nome do Aluno", "Forma de Pagamento", "Valor", "Unidade", "Descrição"}
	for i, col := range want {
		if records[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, records[0][i], col)
		}
	}
}

func TestWriteCSV_CommaInFieldSurvivesRoundTrip(t *testing.T) {
	lines := []Line{
		{
			PaymentDate:   "2025-01-10",
			StudentName:   "Ana Lima",
			PaymentMethod: "PIX",
			AmountDisplay: "R$ 350,00",
			Unit:          "CENTRO",
			Description:   "matrícula, 1ª parcela",
		},
		{
			PaymentDate:   "2025-01-15",
			StudentName:   "Bruno Costa",
			PaymentMethod: "Dinheiro",
			AmountDisplay: "R$ 1.200,00",
			Unit:          "PIEDADE",
			Description:   "aula extra",
		},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, lines); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	content := strings.TrimPrefix(buf.String(), "\xEF\xBB\xBF")
	records, err := csv.NewReader(strings.NewReader(content)).ReadAll()
	if err != nil {
		t.Fatalf("reading output back: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want header plus 2 rows", len(records))
	}
	if records[1][5] != "matrícula, 1ª parcela" {
		t.Errorf("description = %q, want the literal comma preserved", records[1][5])
	}
	if records[1][3] != "R$ 350,00" {
		t.Errorf("valor = %q, want the formatted display amount", records[1][3])
	}
	if records[2][1] != "Bruno Costa" {
		t.Errorf("second row student = %q, want Bruno Costa", records[2][1])
	}
}

func TestWriteCSV_QuotesFieldWithQuote(t *testing.T) {
	lines := []Line{{
		PaymentDate: "2025-01-10",
		StudentName: `José "Zé" Souza`,
	}}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, lines); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	content := strings.TrimPrefix(buf.String(), "\xEF\xBB\xBF")
	records, err := csv.NewReader(strings.NewReader(content)).ReadAll()
	if err != nil {
		t.Fatalf("reading output back: %v", err)
	}
	if records[1][1] != `José "Zé" Souza` {
		t.Errorf("student = %q, want the embedded quotes preserved", records[1][1])
	}
}
