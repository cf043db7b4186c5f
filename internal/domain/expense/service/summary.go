package service

import (
	"sort"

	"github.com/FACorreiaa/gastos-tracker/internal/domain/expense/repository"
	"github.com/FACorreiaa/gastos-tracker/pkg/money"
)

// CategoryTotal is the spend of one category
type CategoryTotal struct {
	Category string
	Total    int64
	Count    int
}

// MonthTotal is the spend of one calendar month (YYYY-MM)
type MonthTotal struct {
	Month string
	Total int64
}

// Summary holds aggregate spend over a set of expenses
type Summary struct {
	Total        int64
	TotalDisplay string
	Currency     string
	Count        int
	ByCategory   []CategoryTotal // Largest total first
	ByMonth      []MonthTotal    // Chronological
}

// Summarize aggregates expenses. It is pure and does not touch storage.
func Summarize(expenses []*repository.Expense, currency string) *Summary {
	byCat := make(map[string]*CategoryTotal)
	byMonth := make(map[string]int64)
	amounts := make([]int64, 0, len(expenses))

	for _, e := range expenses {
		amounts = append(amounts, e.Amount)

		ct, ok := byCat[e.Category]
		if !ok {
			ct = &CategoryTotal{Category: e.Category}
			byCat[e.Category] = ct
		}
		ct.Total += e.Amount
		ct.Count++

		byMonth[e.Date.Format("2006-01")] += e.Amount
	}

	total := money.Sum(currency, amounts...)
	s := &Summary{
		Total:        total.Amount(),
		TotalDisplay: total.Display(),
		Currency:     total.Currency(),
		Count:        len(expenses),
		ByCategory:   make([]CategoryTotal, 0, len(byCat)),
		ByMonth:      make([]MonthTotal, 0, len(byMonth)),
	}

	for _, ct := range byCat {
		s.ByCategory = append(s.ByCategory, *ct)
	}
	sort.Slice(s.ByCategory, func(i, j int) bool {
		if s.ByCategory[i].Total != s.ByCategory[j].Total {
			return s.ByCategory[i].Total > s.ByCategory[j].Total
		}
		return s.ByCategory[i].Category < s.ByCategory[j].Category
	})

	for m, t := range byMonth {
		s.ByMonth = append(s.ByMonth, MonthTotal{Month: m, Total: t})
	}
	sort.Slice(s.ByMonth, func(i, j int) bool { return s.ByMonth[i].Month < s.ByMonth[j].Month })

	return s
}
