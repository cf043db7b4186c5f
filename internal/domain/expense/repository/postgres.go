package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

const expenseColumns = `id, amount, category, spent_on, description, created_at, updated_at`

// PostgresExpenseRepository implements ExpenseRepository using PostgreSQL
type PostgresExpenseRepository struct {
	db DBTX
}

// NewPostgresExpenseRepository creates a new PostgreSQL-backed expense repository
func NewPostgresExpenseRepository(db DBTX) *PostgresExpenseRepository {
	return &PostgresExpenseRepository{db: db}
}

// List returns expenses newest first
func (r *PostgresExpenseRepository) List(ctx context.Context, opts ListOptions) ([]*Expense, error) {
	var (
		where []string
		args  []any
	)
	if opts.Year > 0 {
		args = append(args, opts.Year)
		where = append(where, fmt.Sprintf("EXTRACT(YEAR FROM spent_on) = $%d", len(args)))
	}
	if opts.Month > 0 {
		args = append(args, opts.Month)
		where = append(where, fmt.Sprintf("EXTRACT(MONTH FROM spent_on) = $%d", len(args)))
	}
	if opts.Category != "" {
		args = append(args, opts.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY spent_on DESC, id DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	return expenses, nil
}

// Get retrieves an expense by ID
func (r *PostgresExpenseRepository) Get(ctx context.Context, id int64) (*Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = $1`

	e, err := scanExpense(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return e, nil
}

// Create inserts an expense and returns the stored record
func (r *PostgresExpenseRepository) Create(ctx context.Context, in NewExpense) (*Expense, error) {
	query := `
		INSERT INTO expenses (amount, category, spent_on, description)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + expenseColumns

	e, err := scanExpense(r.db.QueryRow(ctx, query, in.Amount, in.Category, CivilDate(in.Date), in.Description))
	if err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}
	return e, nil
}

// Update replaces every writable field of an expense
func (r *PostgresExpenseRepository) Update(ctx context.Context, id int64, in NewExpense) (*Expense, error) {
	query := `
		UPDATE expenses
		SET amount = $2, category = $3, spent_on = $4, description = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + expenseColumns

	e, err := scanExpense(r.db.QueryRow(ctx, query, id, in.Amount, in.Category, CivilDate(in.Date), in.Description))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}
	return e, nil
}

// Delete removes an expense
func (r *PostgresExpenseRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanExpense(row pgx.Row) (*Expense, error) {
	var e Expense
	if err := row.Scan(
		&e.ID, &e.Amount, &e.Category, &e.Date, &e.Description, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	e.Date = CivilDate(e.Date)
	return &e, nil
}
