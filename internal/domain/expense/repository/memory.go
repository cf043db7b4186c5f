package repository

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryExpenseRepository is an in-process ExpenseRepository. The import
// command uses it for dry runs, seeded with a snapshot of the database.
type MemoryExpenseRepository struct {
	mu       sync.Mutex
	nextID   int64
	expenses map[int64]*Expense
	now      func() time.Time
}

// NewMemoryExpenseRepository creates a repository holding seed
func NewMemoryExpenseRepository(seed ...*Expense) *MemoryExpenseRepository {
	r := &MemoryExpenseRepository{
		expenses: make(map[int64]*Expense, len(seed)),
		now:      time.Now,
	}
	for _, e := range seed {
		cp := *e
		r.expenses[cp.ID] = &cp
		if cp.ID > r.nextID {
			r.nextID = cp.ID
		}
	}
	return r
}

// List returns expenses newest first
func (r *MemoryExpenseRepository) List(ctx context.Context, opts ListOptions) ([]*Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Expense, 0, len(r.expenses))
	for _, e := range r.expenses {
		if opts.Year > 0 && e.Date.Year() != opts.Year {
			continue
		}
		if opts.Month > 0 && int(e.Date.Month()) != opts.Month {
			continue
		}
		if opts.Category != "" && e.Category != opts.Category {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Get retrieves an expense by ID
func (r *MemoryExpenseRepository) Get(ctx context.Context, id int64) (*Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.expenses[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

// Create stores an expense with the next ID
func (r *MemoryExpenseRepository) Create(ctx context.Context, in NewExpense) (*Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := r.now()
	e := &Expense{
		ID:          r.nextID,
		Amount:      in.Amount,
		Category:    in.Category,
		Date:        CivilDate(in.Date),
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.expenses[e.ID] = e
	cp := *e
	return &cp, nil
}

// Update replaces every writable field of an expense
func (r *MemoryExpenseRepository) Update(ctx context.Context, id int64, in NewExpense) (*Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.expenses[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.Amount = in.Amount
	e.Category = in.Category
	e.Date = CivilDate(in.Date)
	e.Description = in.Description
	e.UpdatedAt = r.now()
	cp := *e
	return &cp, nil
}

// Delete removes an expense
func (r *MemoryExpenseRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.expenses[id]; !ok {
		return ErrNotFound
	}
	delete(r.expenses, id)
	return nil
}

// Len returns the number of stored expenses
func (r *MemoryExpenseRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.expenses)
}
