// Package handler exposes the expense REST endpoints.
package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/gastos-tracker/internal/domain/categorization"
	"github.com/FACorreiaa/gastos-tracker/internal/domain/expense/repository"
	"github.com/FACorreiaa/gastos-tracker/internal/domain/expense/service"
	"github.com/FACorreiaa/gastos-tracker/pkg/middleware"
	"github.com/FACorreiaa/gastos-tracker/pkg/money"
)

// ExpenseHandler serves /api/gastos and /api/categorias
type ExpenseHandler struct {
	svc    *service.Service
	logger *slog.Logger
}

// NewExpenseHandler creates a new expense handler
func NewExpenseHandler(svc *service.Service, logger *slog.Logger) *ExpenseHandler {
	return &ExpenseHandler{svc: svc, logger: logger}
}

// Routes mounts the handler on r
func (h *ExpenseHandler) Routes(r chi.Router) {
	r.Get("/api/categorias", h.ListCategories)

	r.Route("/api/gastos", func(r chi.Router) {
		r.Get("/", h.ListExpenses)
		r.Post("/", h.CreateExpense)
		r.Get("/resumen", h.Summary)
		r.Get("/export.xlsx", h.ExportXLSX)
		r.Get("/export.csv", h.ExportCSV)
		r.Get("/{id}", h.GetExpense)
		r.Put("/{id}", h.UpdateExpense)
		r.Delete("/{id}", h.DeleteExpense)
	})
}

// ExpenseDTO is the wire form of an expense
type ExpenseDTO struct {
	ID          int64  `json:"id"`
	Monto       int64  `json:"monto"`
	Categoria   string `json:"categoria"`
	Fecha       string `json:"fecha"`
	Descripcion string `json:"descripcion"`
}

func toDTO(e *repository.Expense) ExpenseDTO {
	return ExpenseDTO{
		ID:          e.ID,
		Monto:       e.Amount,
		Categoria:   e.Category,
		Fecha:       e.DateString(),
		Descripcion: e.Description,
	}
}

type expenseRequest struct {
	Monto       json.RawMessage `json:"monto"`
	Categoria   string          `json:"categoria"`
	Fecha       string          `json:"fecha"`
	Descripcion string          `json:"descripcion"`
}

// ListExpenses handles GET /api/gastos
func (h *ExpenseHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	expenses, err := h.svc.ListExpenses(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, err, "failed to list expenses")
		return
	}

	out := make([]ExpenseDTO, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toDTO(e))
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}

// GetExpense handles GET /api/gastos/{id}
func (h *ExpenseHandler) GetExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	e, err := h.svc.GetExpense(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "failed to get expense")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toDTO(e))
}

// CreateExpense handles POST /api/gastos
func (h *ExpenseHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	in, err := decodeExpense(r, h.svc.Currency())
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	e, err := h.svc.CreateExpense(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, err, "failed to create expense")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, toDTO(e))
}

// UpdateExpense handles PUT /api/gastos/{id}
func (h *ExpenseHandler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	in, err := decodeExpense(r, h.svc.Currency())
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	e, err := h.svc.UpdateExpense(r.Context(), id, in)
	if err != nil {
		h.writeServiceError(w, err, "failed to update expense")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toDTO(e))
}

// DeleteExpense handles DELETE /api/gastos/{id}
func (h *ExpenseHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteExpense(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "failed to delete expense")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type categoryTotalDTO struct {
	Categoria string `json:"categoria"`
	Total     int64  `json:"total"`
	Cantidad  int    `json:"cantidad"`
}

type monthTotalDTO struct {
	Mes   string `json:"mes"`
	Total int64  `json:"total"`
}

type summaryDTO struct {
	Total        int64              `json:"total"`
	TotalDisplay string             `json:"total_display"`
	Moneda       string             `json:"moneda"`
	Cantidad     int                `json:"cantidad"`
	PorCategoria []categoryTotalDTO `json:"por_categoria"`
	PorMes       []monthTotalDTO    `json:"por_mes"`
}

// Summary handles GET /api/gastos/resumen
func (h *ExpenseHandler) Summary(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	sum, err := h.svc.Summarize(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, err, "failed to summarize expenses")
		return
	}

	out := summaryDTO{
		Total:        sum.Total,
		TotalDisplay: sum.TotalDisplay,
		Moneda:       sum.Currency,
		Cantidad:     sum.Count,
		PorCategoria: make([]categoryTotalDTO, 0, len(sum.ByCategory)),
		PorMes:       make([]monthTotalDTO, 0, len(sum.ByMonth)),
	}
	for _, c := range sum.ByCategory {
		out.PorCategoria = append(out.PorCategoria, categoryTotalDTO{Categoria: c.Category, Total: c.Total, Cantidad: c.Count})
	}
	for _, m := range sum.ByMonth {
		out.PorMes = append(out.PorMes, monthTotalDTO{Mes: m.Month, Total: m.Total})
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}

// ExportXLSX handles GET /api/gastos/export.xlsx
func (h *ExpenseHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
}

// ExportCSV handles GET /api/gastos/export.csv
func (h *ExpenseHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "csv", "text/csv; charset=utf-8")
}

func (h *ExpenseHandler) export(w http.ResponseWriter, r *http.Request, format, contentType string) {
	filter, err := parseFilter(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	expenses, err := h.svc.ListExpenses(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, err, "failed to export expenses")
		return
	}

	// Render fully before writing headers so a failure can still be a 500.
	var buf bytes.Buffer
	if format == "csv" {
		err = service.WriteCSV(&buf, expenses)
	} else {
		err = service.WriteXLSX(&buf, expenses)
	}
	if err != nil {
		h.writeServiceError(w, err, "failed to export expenses")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="gastos-%s.%s"`, time.Now().Format("2006-01-02"), format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// ListCategories handles GET /api/categorias
func (h *ExpenseHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, categorization.Categories)
}

func (h *ExpenseHandler) writeServiceError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "gasto no encontrado")
	case errors.Is(err, service.ErrInvalidExpense):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(msg, slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, msg)
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		middleware.WriteError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func parseFilter(r *http.Request) (service.Filter, error) {
	q := r.URL.Query()
	f := service.Filter{
		Category: strings.TrimSpace(q.Get("categoria")),
		Query:    q.Get("q"),
		SortBy:   q.Get("sort"),
		Asc:      strings.EqualFold(q.Get("order"), "asc"),
	}

	if v := q.Get("anio"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return f, fmt.Errorf("invalid anio %q", v)
		}
		f.Year = year
	}
	if v := q.Get("mes"); v != "" {
		month, err := strconv.Atoi(v)
		if err != nil || month < 1 || month > 12 {
			return f, fmt.Errorf("invalid mes %q", v)
		}
		f.Month = month
	}

	switch f.SortBy {
	case "", service.SortByDate, service.SortByAmount, service.SortByCategory, service.SortByDescription:
	default:
		return f, fmt.Errorf("invalid sort %q", f.SortBy)
	}
	return f, nil
}

func decodeExpense(r *http.Request, currency string) (repository.NewExpense, error) {
	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return repository.NewExpense{}, errors.New("invalid request body")
	}

	amount, err := parseAmount(req.Monto, currency)
	if err != nil {
		return repository.NewExpense{}, err
	}
	date, err := repository.ParseDate(req.Fecha)
	if err != nil {
		return repository.NewExpense{}, err
	}

	return repository.NewExpense{
		Amount:      amount,
		Category:    req.Categoria,
		Date:        date,
		Description: req.Descripcion,
	}, nil
}

// parseAmount accepts a JSON number or a numeric string and returns minor
// units of currency.
func parseAmount(raw json.RawMessage, currency string) (int64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, errors.New("monto is required")
	}

	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, errors.New("invalid monto")
		}
	}

	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid monto %q", s)
	}
	m, err := money.NewFromDecimal(d, currency)
	if err != nil {
		return 0, fmt.Errorf("invalid monto %q", s)
	}
	return m.Amount(), nil
}
