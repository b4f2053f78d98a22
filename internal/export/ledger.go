package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// LedgerRow est une ligne du journal des encaissements.
type LedgerRow struct {
	InvoiceNumber string
	Date          time.Time
	Montant       decimal.Decimal
	Mode          string
	Reference     string
}

// BuildLedgerXLSX exporte le journal des encaissements d'une periode.
func BuildLedgerXLSX(rows []LedgerRow) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "encaissements"
	f.SetSheetName("Sheet1", sheet)

	_ = f.SetCellValue(sheet, "A1", "Facture")
	_ = f.SetCellValue(sheet, "B1", "Date")
	_ = f.SetCellValue(sheet, "C1", "Montant")
	_ = f.SetCellValue(sheet, "D1", "Mode")
	_ = f.SetCellValue(sheet, "E1", "Reference")

	total := decimal.Zero
	for i, r := range rows {
		row := i + 2
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), r.InvoiceNumber)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), r.Date.Format("2006-01-02"))
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), r.Montant.InexactFloat64())
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), r.Mode)
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), r.Reference)
		total = total.Add(r.Montant)
	}
	sumRow := len(rows) + 3
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", sumRow), "Total")
	_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", sumRow), total.InexactFloat64())

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
