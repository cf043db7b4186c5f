// Package repository provides database operations for expenses.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DateLayout is the canonical civil-date format used across the API and import
const DateLayout = "2006-01-02"

// ErrNotFound is returned when no expense has the requested ID
var ErrNotFound = errors.New("expense not found")

// Expense is a persisted expense record.
// Date is a civil date stored as midnight UTC; it carries no time-of-day.
type Expense struct {
	ID          int64
	Amount      int64
	Category    string
	Date        time.Time
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DateString formats the civil date as YYYY-MM-DD
func (e *Expense) DateString() string {
	return e.Date.Format(DateLayout)
}

// NewExpense holds the writable fields of an expense
type NewExpense struct {
	Amount      int64
	Category    string
	Date        time.Time
	Description string
}

// ListOptions narrows List at the SQL level. Zero values mean "any".
type ListOptions struct {
	Year     int
	Month    int
	Category string
}

// CivilDate truncates t to its calendar date in its own location and
// returns that date at midnight UTC, so formatting never shifts the day.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts YYYY-MM-DD or an RFC3339 timestamp. For timestamps the
// calendar date is taken in the timestamp's own offset.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return CivilDate(t), nil
}

// DBTX is the subset of pgxpool.Pool used by the repository
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ExpenseRepository defines the interface for expense persistence
type ExpenseRepository interface {
	List(ctx context.Context, opts ListOptions) ([]*Expense, error)
	Get(ctx context.Context, id int64) (*Expense, error)
	Create(ctx context.Context, in NewExpense) (*Expense, error)
	Update(ctx context.Context, id int64, in NewExpense) (*Expense, error)
	Delete(ctx context.Context, id int64) error
}

var (
	_ ExpenseRepository = (*PostgresExpenseRepository)(nil)
	_ ExpenseRepository = (*MemoryExpenseRepository)(nil)
)
