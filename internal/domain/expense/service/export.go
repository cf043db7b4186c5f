package service

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/gastos-tracker/internal/domain/expense/repository"
)

// ExportSheet is the sheet name of the XLSX export
const ExportSheet = "Gastos"

// exportDateLayout matches the bank statements the import reads
const exportDateLayout = "02-01-2006"

var exportHeaders = []string{"Monto", "Categoría", "Fecha", "Descripción"}

// ExportRow is one line of the CSV export
type ExportRow struct {
	Amount      int64  `csv:"Monto"`
	Category    string `csv:"Categoría"`
	Date        string `csv:"Fecha"`
	Description string `csv:"Descripción"`
}

func toExportRows(expenses []*repository.Expense) []*ExportRow {
	rows := make([]*ExportRow, 0, len(expenses))
	for _, e := range expenses {
		rows = append(rows, &ExportRow{
			Amount:      e.Amount,
			Category:    e.Category,
			Date:        e.Date.Format(exportDateLayout),
			Description: e.Description,
		})
	}
	return rows
}

// WriteCSV writes expenses as CSV with a header line
func WriteCSV(w io.Writer, expenses []*repository.Expense) error {
	if err := gocsv.Marshal(toExportRows(expenses), w); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// WriteXLSX writes expenses as a single-sheet workbook
func WriteXLSX(w io.Writer, expenses []*repository.Expense) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ExportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(exportHeaders))
	for i, h := range exportHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(ExportSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range toExportRows(expenses) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{r.Amount, r.Category, r.Date, r.Description}
		if err := f.SetSheetRow(ExportSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(ExportSheet, "D", "D", 48); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}
