// Package reader decodes a bank spreadsheet export into header-keyed rows.
package reader

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnreadable marks a file that could not be decoded at all. It aborts
	// the whole import, unlike problems with individual rows.
	ErrUnreadable = errors.New("unreadable spreadsheet")
	// ErrNoSheet is returned for a workbook without worksheets
	ErrNoSheet = errors.New("workbook has no sheets")
)

// Cell is a single decoded value. Text is the value as displayed in the
// sheet; Number is set when the cell stores a number.
type Cell struct {
	Text    string
	Number  float64
	Numeric bool
}

// IsEmpty reports whether the cell holds nothing
func (c Cell) IsEmpty() bool {
	return !c.Numeric && strings.TrimSpace(c.Text) == ""
}

// Row is one data row keyed by column header
type Row struct {
	Number int // 1-based row number in the sheet
	cells  map[string]Cell
}

// NewRow builds a row from header-keyed cells
func NewRow(number int, cells map[string]Cell) Row {
	return Row{Number: number, cells: cells}
}

// Cell returns the cell under header; missing columns yield an empty cell
func (r Row) Cell(header string) Cell {
	return r.cells[header]
}

// Has reports whether the row has a non-empty value under header
func (r Row) Has(header string) bool {
	return !r.cells[header].IsEmpty()
}

// Sheet is the decoded content of the first worksheet
type Sheet struct {
	Name    string
	Headers []string
	Rows    []Row
}

// Reader decodes XLSX workbooks
type Reader struct {
	headerRow int
}

// New creates a reader whose header sits at headerRow (0-based). Rows above
// it are bank banner lines and are ignored.
func New(headerRow int) *Reader {
	if headerRow < 0 {
		headerRow = 0
	}
	return &Reader{headerRow: headerRow}
}

// Read decodes the first sheet of src. Blank rows are dropped; cells under
// an empty header are ignored.
func (r *Reader) Read(src io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, ErrNoSheet)
	}
	name := sheets[0]

	text, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read sheet %s: %w", ErrUnreadable, name, err)
	}
	raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read sheet %s: %w", ErrUnreadable, name, err)
	}

	sheet := &Sheet{Name: name}
	if r.headerRow >= len(text) {
		return sheet, nil
	}

	sheet.Headers = make([]string, len(text[r.headerRow]))
	for i, h := range text[r.headerRow] {
		sheet.Headers[i] = strings.TrimSpace(h)
	}

	for i := r.headerRow + 1; i < len(text); i++ {
		cells := make(map[string]Cell, len(sheet.Headers))
		blank := true

		for col, header := range sheet.Headers {
			if header == "" || col >= len(text[i]) {
				continue
			}
			c := Cell{Text: text[i][col]}
			if i < len(raw) && col < len(raw[i]) {
				c = r.typedCell(f, name, col, i, c.Text, raw[i][col])
			}
			if c.IsEmpty() {
				continue
			}
			cells[header] = c
			blank = false
		}

		if blank {
			continue
		}
		sheet.Rows = append(sheet.Rows, Row{Number: i + 1, cells: cells})
	}

	return sheet, nil
}

func (r *Reader) typedCell(f *excelize.File, sheet string, col, row int, text, raw string) Cell {
	c := Cell{Text: text}
	if raw == "" {
		return c
	}

	ref, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return c
	}
	typ, err := f.GetCellType(sheet, ref)
	if err != nil {
		return c
	}

	switch typ {
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			c.Number = n
			c.Numeric = true
		}
	}
	return c
}
