// Package normalizer turns raw statement rows into expense candidates.
package normalizer

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/gastos-tracker/internal/domain/import/reader"
	"github.com/FACorreiaa/gastos-tracker/pkg/money"
)

// SkipReason explains why a row produced no candidate
type SkipReason string

const (
	SkipNone               SkipReason = ""
	SkipMissingDate        SkipReason = "missing_date"
	SkipMissingDescription SkipReason = "missing_description"
	SkipMissingAmount      SkipReason = "missing_amount"
	SkipZeroAmount         SkipReason = "zero_amount"
	SkipMalformedDate      SkipReason = "malformed_date"
	SkipMalformedAmount    SkipReason = "malformed_amount"
)

// ISODateLayout is the date format of candidates and fingerprints
const ISODateLayout = "2006-01-02"

var errBadDate = errors.New("malformed date")

// Candidate is a parsed, not yet stored expense
type Candidate struct {
	Row         int       // Sheet row it came from
	Date        time.Time // Civil date at midnight UTC
	Description string    // Trimmed, original case
	Amount      int64
}

// ISODate formats the candidate date as YYYY-MM-DD
func (c Candidate) ISODate() string {
	return c.Date.Format(ISODateLayout)
}

// Columns names the statement headers the normalizer reads
type Columns struct {
	Date   string
	Detail string
	Amount string
}

// DefaultColumns are the headers of the bank export
var DefaultColumns = Columns{
	Date:   "Fecha",
	Detail: "Detalle",
	Amount: "Monto cargo ($)",
}

// Options configures a Normalizer
type Options struct {
	Columns Columns
	// DayShift is added to every parsed date. Zero is correct for current
	// exports; -1 reproduces dates stored by older importers.
	DayShift int
}

// Normalizer converts reader rows to candidates
type Normalizer struct {
	opts Options
}

// New creates a normalizer. Empty column names fall back to DefaultColumns.
func New(opts Options) *Normalizer {
	if opts.Columns.Date == "" {
		opts.Columns.Date = DefaultColumns.Date
	}
	if opts.Columns.Detail == "" {
		opts.Columns.Detail = DefaultColumns.Detail
	}
	if opts.Columns.Amount == "" {
		opts.Columns.Amount = DefaultColumns.Amount
	}
	return &Normalizer{opts: opts}
}

// Normalize converts one row. A nil candidate comes with the reason the
// row was skipped; skipping is never an error.
func (n *Normalizer) Normalize(row reader.Row) (*Candidate, SkipReason) {
	cols := n.opts.Columns
	switch {
	case !row.Has(cols.Date):
		return nil, SkipMissingDate
	case !row.Has(cols.Detail):
		return nil, SkipMissingDescription
	case !row.Has(cols.Amount):
		return nil, SkipMissingAmount
	}
	dateCell := row.Cell(cols.Date)
	detailCell := row.Cell(cols.Detail)
	amountCell := row.Cell(cols.Amount)

	date, err := ParseDate(dateCell)
	if err != nil {
		return nil, SkipMalformedDate
	}
	if n.opts.DayShift != 0 {
		date = date.AddDate(0, 0, n.opts.DayShift)
	}

	amount, err := ParseAmount(amountCell)
	if err != nil {
		return nil, SkipMalformedAmount
	}
	if amount == 0 {
		return nil, SkipZeroAmount
	}

	return &Candidate{
		Row:         row.Number,
		Date:        date,
		Description: strings.TrimSpace(detailCell.Text),
		Amount:      amount,
	}, SkipNone
}

// ParseDate reads a numeric spreadsheet date serial or a DD-MM-YYYY text
// date ('/' also accepted, any time suffix ignored). The result is a civil
// date at midnight UTC; impossible dates such as 31-02 are rejected.
func ParseDate(c reader.Cell) (time.Time, error) {
	// The display text of a date-formatted number follows the workbook's
	// locale, so the serial is authoritative.
	if c.Numeric {
		t, err := excelize.ExcelDateToTime(c.Number, false)
		if err != nil || c.Number < 1 {
			return time.Time{}, errBadDate
		}
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return parseDayMonthYear(strings.TrimSpace(c.Text))
}

func parseDayMonthYear(s string) (time.Time, error) {
	if fields := strings.Fields(s); len(fields) > 0 {
		s = fields[0]
	}
	sep := "-"
	if strings.Contains(s, "/") {
		sep = "/"
	}
	parts := strings.Split(s, sep)
	if len(parts) != 3 {
		return time.Time{}, errBadDate
	}
	for _, p := range parts {
		if !isDigits(p) {
			return time.Time{}, errBadDate
		}
	}

	day, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, errBadDate
	}
	if len(parts[2]) == 2 {
		year += 2000
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, errBadDate
	}
	return t, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ParseAmount returns numeric cells rounded to whole units and parses text
// cells as '.'-grouped integers. Statements are always in CLP.
func ParseAmount(c reader.Cell) (int64, error) {
	if c.Numeric {
		m, err := money.NewFromFloat(c.Number, money.CLP)
		if err != nil {
			return 0, err
		}
		return m.Amount(), nil
	}
	return money.ParseGrouped(c.Text)
}
