// Package testutil builds bank statement workbooks and fake data for tests.
package testutil

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/xuri/excelize/v2"
)

// Statement column headers as exported by the bank
const (
	ColFecha   = "Fecha"
	ColDetalle = "Detalle"
	ColMonto   = "Monto cargo ($)"
	ColAbono   = "Monto abono ($)"
)

// BankRow is one movement line. A nil field leaves the cell blank; strings
// are written as text cells and numbers as numeric cells.
type BankRow struct {
	Fecha   any
	Detalle any
	Monto   any
}

// Statement renders rows as an XLSX bank export: two banner lines, the
// header on the third row, then the movements.
func Statement(rows ...BankRow) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sheet1"
	if err := f.SetCellValue(sheet, "A1", "Cartola Histórica"); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(sheet, "A2", "Cuenta Corriente N° 00-123-45678-90"); err != nil {
		return nil, err
	}
	header := []any{ColFecha, ColDetalle, ColMonto, ColAbono}
	if err := f.SetSheetRow(sheet, "A3", &header); err != nil {
		return nil, err
	}

	for i, r := range rows {
		rowNum := i + 4
		for col, v := range []any{r.Fecha, r.Detalle, r.Monto} {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("row %d: %w", rowNum, err)
			}
		}
	}

	return f.WriteToBuffer()
}

// MustStatement is Statement for tests
func MustStatement(tb testing.TB, rows ...BankRow) *bytes.Buffer {
	tb.Helper()
	buf, err := Statement(rows...)
	if err != nil {
		tb.Fatalf("build statement: %v", err)
	}
	return buf
}

var knownMerchants = []string{
	"UBER EATS SANTIAGO",
	"UBER TRIP HELP.UBER.COM",
	"GOOGLE PLAY YOUTUBE",
	"TOTTUS KENNEDY",
	"TECNOMAS SPA",
	"TRANSVIP AEROPUERTO",
	"PAYPAL *TWITCHINTER",
	"STEAMGAMES.COM",
	"TRANSF A TERCEROS",
	"LIBRERIA ANTARTICA",
}

// Generator produces random statement rows from a seeded faker
type Generator struct {
	faker *gofakeit.Faker
}

// NewGenerator creates a generator; equal seeds give equal rows
func NewGenerator(seed int64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// BankRow returns a well-formed movement with a text date and a
// thousands-separated text amount
func (g *Generator) BankRow() BankRow {
	date := g.faker.DateRange(
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	)

	detail := g.faker.RandomString(knownMerchants)
	if g.faker.Bool() {
		detail = fmt.Sprintf("COMPRA %s", g.faker.Company())
	}

	return BankRow{
		Fecha:   date.Format("02-01-2006"),
		Detalle: detail,
		Monto:   GroupThousands(int64(g.faker.Number(100, 250000))),
	}
}

// BankRows returns n rows
func (g *Generator) BankRows(n int) []BankRow {
	rows := make([]BankRow, n)
	for i := range rows {
		rows[i] = g.BankRow()
	}
	return rows
}

// GroupThousands formats n with '.' separators, as the bank does
func GroupThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := false
	if n < 0 {
		neg = true
		s = s[1:]
	}
	var b []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b = append(b, '.')
		}
		b = append(b, s[i])
	}
	if neg {
		return "-" + string(b)
	}
	return string(b)
}
