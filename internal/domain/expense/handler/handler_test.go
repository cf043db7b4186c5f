package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/gastos-tracker/internal/domain/expense/repository"
	"github.com/FACorreiaa/gastos-tracker/internal/domain/expense/service"
	"github.com/FACorreiaa/gastos-tracker/pkg/money"
)

func newRouter(t *testing.T, seed ...*repository.Expense) (http.Handler, *repository.MemoryExpenseRepository) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repository.NewMemoryExpenseRepository(seed...)
	h := NewExpenseHandler(service.NewService(repo, money.CLP, logger), logger)

	r := chi.NewRouter()
	h.Routes(r)
	return r, repo
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, rd))
	return rec
}

func TestExpenseHandler_CRUD(t *testing.T) {
	h, repo := newRouter(t)

	rec := do(t, h, http.MethodPost, "/api/gastos", `{"monto":"12500","categoria":"Comida","fecha":"2024-03-15","descripcion":"UBER EATS SANTIAGO"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created ExpenseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, int64(12500), created.Monto)
	assert.Equal(t, "2024-03-15", created.Fecha)
	assert.Equal(t, 1, repo.Len())

	rec = do(t, h, http.MethodPut, "/api/gastos/1", `{"monto":13000,"categoria":"Comida","fecha":"2024-03-16T22:00:00-04:00","descripcion":"UBER EATS"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated ExpenseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, int64(13000), updated.Monto)
	assert.Equal(t, "2024-03-16", updated.Fecha)

	rec = do(t, h, http.MethodGet, "/api/gastos/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/gastos/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = do(t, h, http.MethodDelete, "/api/gastos/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExpenseHandler_Validation(t *testing.T) {
	h, _ := newRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"missing monto", `{"categoria":"Comida","fecha":"2024-03-15","descripcion":"x"}`},
		{"non numeric monto", `{"monto":"abc","categoria":"Comida","fecha":"2024-03-15","descripcion":"x"}`},
		{"monto beyond int64", `{"monto":1e19,"categoria":"Comida","fecha":"2024-03-15","descripcion":"x"}`},
		{"monto string beyond int64", `{"monto":"-1e19","categoria":"Comida","fecha":"2024-03-15","descripcion":"x"}`},
		{"bad fecha", `{"monto":1,"categoria":"Comida","fecha":"15/03/2024","descripcion":"x"}`},
		{"blank descripcion", `{"monto":1,"categoria":"Comida","fecha":"2024-03-15","descripcion":"  "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/gastos", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	rec := do(t, h, http.MethodGet, "/api/gastos", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/gastos/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExpenseHandler_ListAndSummary(t *testing.T) {
	day := func(m time.Month, d int) time.Time { return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC) }
	h, _ := newRouter(t,
		&repository.Expense{ID: 1, Amount: 12500, Category: "Comida", Date: day(3, 15), Description: "UBER EATS"},
		&repository.Expense{ID: 2, Amount: 3990, Category: "Servicios", Date: day(2, 1), Description: "YOUTUBE"},
	)

	rec := do(t, h, http.MethodGet, "/api/gastos?mes=03&anio=2024", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []ExpenseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "UBER EATS", list[0].Descripcion)

	rec = do(t, h, http.MethodGet, "/api/gastos?mes=13", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/gastos/resumen", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sum summaryDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, int64(16490), sum.Total)
	assert.Equal(t, "CLP", sum.Moneda)
	assert.Equal(t, []monthTotalDTO{{Mes: "2024-02", Total: 3990}, {Mes: "2024-03", Total: 12500}}, sum.PorMes)
}

func TestExpenseHandler_Export(t *testing.T) {
	h, _ := newRouter(t, &repository.Expense{ID: 1, Amount: 500, Category: "Otros", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Description: "kiosco"})

	rec := do(t, h, http.MethodGet, "/api/gastos/export.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")
	assert.Contains(t, rec.Body.String(), "500,Otros,02-01-2024,kiosco")

	rec = do(t, h, http.MethodGet, "/api/gastos/export.xlsx", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "PK", rec.Body.String()[:2])
}

func TestExpenseHandler_Categories(t *testing.T) {
	h, _ := newRouter(t)

	rec := do(t, h, http.MethodGet, "/api/categorias", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cats []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cats))
	assert.Contains(t, cats, "Tecnología")
	assert.Contains(t, cats, "Otros")
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{`12500`, 12500, false},
		{`"12500"`, 12500, false},
		{`" 99.6 "`, 100, false},
		{`-300`, -300, false},
		{`null`, 0, true},
		{`"doce"`, 0, true},
		{`1e19`, 0, true},
		{`"-1e19"`, 0, true},
		{`9223372036854775807`, 9223372036854775807, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseAmount(json.RawMessage(tt.raw), money.CLP)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
