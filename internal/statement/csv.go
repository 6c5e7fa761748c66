package statement

import (
	"encoding/csv"
	"io"
)

// csvHeader is the fixed export column set, in sheet order.
var csvHeader = []string{
	"Data de Pagamento", "Nome do Aluno", "Forma de Pagamento", "Valor", "Unidade", "Descrição",
}

// WriteCSV streams lines as a UTF-8 CSV with a byte-order mark. Excel only
// detects UTF-8 when the BOM is present, and the export exists for the office
// staff's spreadsheets. The Valor column carries the formatted display value,
// not the raw float.
func WriteCSV(w io.Writer, lines []Line) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, line := range lines {
		record := []string{
			line.PaymentDate,
			line.StudentName,
			line.PaymentMethod,
			line.AmountDisplay,
			line.Unit,
			line.Description,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
