// normalize.go reshapes raw spreadsheet rows into statement lines. The source
// sheets are maintained by hand, so every field arrives as free text: dates in
// Brazilian DD/MM/YYYY order, amounts as "R$ 1.234,56", column names varying
// between sheets ("Nome Cliente" vs "Nome do Aluno").
package statement

import (
	"fmt"
	"strconv"
	"strings"
)

// Line is one normalized payment row. The JSON keys mirror the spreadsheet
// column names because the front end renders them verbatim.
type Line struct {
	PaymentDate   string  `json:"Data de Pagamento"`
	StudentName   string  `json:"Nome do Aluno"`
	PaymentMethod string  `json:"Forma de Pagamento"`
	AmountDisplay string  `json:"Valor"`
	Amount        float64 `json:"ValorNumerico"`
	Unit          string  `json:"Unidade"`
	Description   string  `json:"Descrição"`
	Competency    string  `json:"Competencia"`
}

// normalizeDate converts DD/MM/YYYY to YYYY-MM-DD. Values without slashes are
// returned unchanged so already-ISO dates pass through; empty input yields "".
func normalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "/") {
		return raw
	}

	parts := strings.Split(raw, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return raw
	}

	day := parts[0]
	month := parts[1]
	year := parts[2]
	if len(day) < 2 {
		day = "0" + day
	}
	if len(month) < 2 {
		month = "0" + month
	}
	return year + "-" + month + "-" + day
}

// parseAmount extracts a numeric amount from a Brazilian currency string.
// "R$", spaces, and thousand separators are stripped; a decimal comma becomes
// a dot. Anything unparseable yields 0.
func parseAmount(raw string) float64 {
	cleaned := strings.NewReplacer("R$", "", " ", "", " ", "").Replace(raw)
	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return value
}

// formatAmount renders an amount the way the sheets do: "R$ 1.234,56".
// Non-positive amounts render as "R$ 0,00", matching the source convention.
func formatAmount(value float64) string {
	if value <= 0 {
		return "R$ 0,00"
	}

	whole := fmt.Sprintf("%.2f", value)
	intPart, fracPart, _ := strings.Cut(whole, ".")

	var grouped strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(digit)
	}

	return "R$ " + grouped.String() + "," + fracPart
}

// competencyFromDate derives the YYYY-MM bucket from a date in either
// Brazilian or ISO form. Unusable dates yield "".
func competencyFromDate(raw string) string {
	iso := normalizeDate(raw)
	if len(iso) < 7 || iso[4] != '-' {
		return ""
	}
	return iso[:7]
}

// cellString renders one spreadsheet cell as text. The API returns untyped
// values, so a numeric cell may arrive as float64.
func cellString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", val))
	}
}

// normalizeRows converts the raw value grid of one sheet into statement lines.
// The first row is the header; columns are matched by name so each unit's
// sheet can order them differently. Rows come back ragged, so lookups past
// the row's length yield "".
func normalizeRows(rows [][]interface{}, unitName string) []Line {
	if len(rows) < 2 {
		return nil
	}

	index := make(map[string]int, len(rows[0]))
	for i, cell := range rows[0] {
		index[cellString(cell)] = i
	}

	field := func(row []interface{}, names ...string) string {
		for _, name := range names {
			i, ok := index[name]
			if !ok || i >= len(row) {
				continue
			}
			if s := cellString(row[i]); s != "" {
				return s
			}
		}
		return ""
	}

	lines := make([]Line, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rawDate := field(row, "Data de Pagamento")
		amount := parseAmount(field(row, "Valor"))

		unit := field(row, "Unidade")
		if unit == "" {
			unit = unitName
		}

		competency := field(row, "Competencia")
		if competency == "" {
			competency = competencyFromDate(rawDate)
		}

		lines = append(lines, Line{
			PaymentDate:   normalizeDate(rawDate),
			StudentName:   field(row, "Nome Cliente", "Nome do Aluno"),
			PaymentMethod: field(row, "Forma de Pagamento"),
			AmountDisplay: formatAmount(amount),
			Amount:        amount,
			Unit:          unit,
			Description:   field(row, "Observações", "Descrição"),
			Competency:    competency,
		})
	}
	return lines
}
