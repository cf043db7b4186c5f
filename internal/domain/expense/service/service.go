// Package service provides business logic for expense management.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/FACorreiaa/gastos-tracker/internal/domain/categorization"
	"github.com/FACorreiaa/gastos-tracker/internal/domain/expense/repository"
)

// ErrInvalidExpense wraps every validation failure
var ErrInvalidExpense = errors.New("invalid expense")

// Sort keys accepted by Filter.SortBy
const (
	SortByDate        = "fecha"
	SortByAmount      = "monto"
	SortByCategory    = "categoria"
	SortByDescription = "descripcion"
)

// Filter narrows and orders a listing
type Filter struct {
	Year     int
	Month    int
	Category string
	Query    string // fuzzy match against the description
	SortBy   string
	Asc      bool
}

// Service provides expense management business logic
type Service struct {
	repo     repository.ExpenseRepository
	currency string
	logger   *slog.Logger
}

// NewService creates a new expense service
func NewService(repo repository.ExpenseRepository, currency string, logger *slog.Logger) *Service {
	return &Service{repo: repo, currency: currency, logger: logger}
}

// Currency is the ISO code amounts are stored in
func (s *Service) Currency() string {
	return s.currency
}

// ListExpenses returns the expenses matching filter
func (s *Service) ListExpenses(ctx context.Context, filter Filter) ([]*repository.Expense, error) {
	if filter.Month < 0 || filter.Month > 12 {
		return nil, fmt.Errorf("%w: month must be between 1 and 12", ErrInvalidExpense)
	}

	expenses, err := s.repo.List(ctx, repository.ListOptions{
		Year:     filter.Year,
		Month:    filter.Month,
		Category: filter.Category,
	})
	if err != nil {
		return nil, err
	}

	if q := strings.TrimSpace(filter.Query); q != "" {
		matched := expenses[:0]
		for _, e := range expenses {
			if fuzzy.MatchNormalizedFold(q, e.Description) {
				matched = append(matched, e)
			}
		}
		expenses = matched
	}

	sortExpenses(expenses, filter.SortBy, filter.Asc)
	return expenses, nil
}

// GetExpense returns a single expense
func (s *Service) GetExpense(ctx context.Context, id int64) (*repository.Expense, error) {
	return s.repo.Get(ctx, id)
}

// CreateExpense validates and stores a new expense
func (s *Service) CreateExpense(ctx context.Context, in repository.NewExpense) (*repository.Expense, error) {
	in, err := s.validate(in)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, in)
}

// UpdateExpense validates and replaces an expense
func (s *Service) UpdateExpense(ctx context.Context, id int64, in repository.NewExpense) (*repository.Expense, error) {
	in, err := s.validate(in)
	if err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, in)
}

// DeleteExpense removes an expense
func (s *Service) DeleteExpense(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Summarize aggregates the expenses matching filter
func (s *Service) Summarize(ctx context.Context, filter Filter) (*Summary, error) {
	expenses, err := s.ListExpenses(ctx, filter)
	if err != nil {
		return nil, err
	}
	return Summarize(expenses, s.currency), nil
}

func (s *Service) validate(in repository.NewExpense) (repository.NewExpense, error) {
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)

	if in.Description == "" {
		return in, fmt.Errorf("%w: description is required", ErrInvalidExpense)
	}
	if in.Category == "" {
		return in, fmt.Errorf("%w: category is required", ErrInvalidExpense)
	}
	if in.Date.IsZero() {
		return in, fmt.Errorf("%w: date is required", ErrInvalidExpense)
	}
	in.Date = repository.CivilDate(in.Date)

	if !categorization.IsKnown(in.Category) {
		s.logger.Warn("expense stored with unknown category",
			slog.String("category", in.Category),
		)
	}
	return in, nil
}

func sortExpenses(expenses []*repository.Expense, by string, asc bool) {
	var less func(a, b *repository.Expense) bool
	switch by {
	case SortByAmount:
		less = func(a, b *repository.Expense) bool { return a.Amount < b.Amount }
	case SortByCategory:
		less = func(a, b *repository.Expense) bool { return a.Category < b.Category }
	case SortByDescription:
		less = func(a, b *repository.Expense) bool {
			return strings.ToLower(a.Description) < strings.ToLower(b.Description)
		}
	default:
		less = func(a, b *repository.Expense) bool { return a.Date.Before(b.Date) }
	}

	sort.SliceStable(expenses, func(i, j int) bool {
		if asc {
			return less(expenses[i], expenses[j])
		}
		return less(expenses[j], expenses[i])
	})
}
