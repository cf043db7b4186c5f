// Package dedup detects statement rows that are already stored.
package dedup

import (
	"strings"

	"github.com/FACorreiaa/gastos-tracker/internal/domain/expense/repository"
	"github.com/FACorreiaa/gastos-tracker/internal/domain/import/normalizer"
)

// Fingerprint is the identity of an expense for duplicate detection.
// Equality is exact on all three fields.
type Fingerprint struct {
	Date        string // YYYY-MM-DD
	Description string // trimmed and lowercased
	Amount      int64
}

// NewFingerprint normalizes the fields into a fingerprint
func NewFingerprint(date, description string, amount int64) Fingerprint {
	return Fingerprint{
		Date:        date,
		Description: strings.ToLower(strings.TrimSpace(description)),
		Amount:      amount,
	}
}

// OfExpense fingerprints a stored expense
func OfExpense(e *repository.Expense) Fingerprint {
	return NewFingerprint(e.DateString(), e.Description, e.Amount)
}

// OfCandidate fingerprints an import candidate
func OfCandidate(c *normalizer.Candidate) Fingerprint {
	return NewFingerprint(c.ISODate(), c.Description, c.Amount)
}

// Set is a snapshot of known fingerprints. It is not safe for concurrent
// mutation; the import service owns it for the duration of one run.
type Set struct {
	seen map[Fingerprint]struct{}
}

// NewSet snapshots the given expenses
func NewSet(expenses []*repository.Expense) *Set {
	s := &Set{seen: make(map[Fingerprint]struct{}, len(expenses))}
	for _, e := range expenses {
		s.seen[OfExpense(e)] = struct{}{}
	}
	return s
}

// IsDuplicate reports whether c matches a known fingerprint
func (s *Set) IsDuplicate(c *normalizer.Candidate) bool {
	_, ok := s.seen[OfCandidate(c)]
	return ok
}

// Add records c as known
func (s *Set) Add(c *normalizer.Candidate) {
	s.seen[OfCandidate(c)] = struct{}{}
}

// Len returns the number of distinct fingerprints
func (s *Set) Len() int {
	return len(s.seen)
}
