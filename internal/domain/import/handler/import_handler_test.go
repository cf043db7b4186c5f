package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/gastos-tracker/internal/domain/categorization"
	"github.com/FACorreiaa/gastos-tracker/internal/domain/expense/repository"
	importservice "github.com/FACorreiaa/gastos-tracker/internal/domain/import/service"
	"github.com/FACorreiaa/gastos-tracker/internal/testutil"
	"github.com/FACorreiaa/gastos-tracker/pkg/storage"
)

type fixture struct {
	router http.Handler
	repo   *repository.MemoryExpenseRepository
	store  *storage.LocalStorage
}

func newFixture(t *testing.T, maxBytes int64) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repository.NewMemoryExpenseRepository()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	svc := importservice.NewImportService(repo, categorization.NewDefaultEngine(), importservice.Options{HeaderRow: 2}, logger)
	h := NewImportHandler(svc, store, maxBytes, logger)

	r := chi.NewRouter()
	h.Routes(r)
	return &fixture{router: r, repo: repo, store: store}
}

func upload(t *testing.T, h http.Handler, field, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/gastos/import", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestImportHandler_Import(t *testing.T) {
	f := newFixture(t, 0)
	data := testutil.MustStatement(t,
		testutil.BankRow{Fecha: "15-03-2024", Detalle: "UBER EATS SANTIAGO", Monto: "12.500"},
		testutil.BankRow{Fecha: "16-03-2024", Detalle: "DISCORD NITRO", Monto: "4.500"},
		testutil.BankRow{Fecha: "17-03-2024", Detalle: "", Monto: "1.000"},
	).Bytes()

	rec := upload(t, f.router, FormField, "cartola.xlsx", data)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got importservice.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.Imported)
	assert.Equal(t, 1, got.Skipped)
	assert.Equal(t, "cartola.xlsx", got.Filename)
	assert.Equal(t, "Se importaron 2 gastos\nComida: 1 · Entretenimiento: 1", got.Message)
	assert.Equal(t, 2, f.repo.Len())

	archived, err := f.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, "cartola.xlsx", archived[0].Name)

	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/gastos/import/archivos", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cartola.xlsx")
}

func TestImportHandler_ClientGone(t *testing.T) {
	f := newFixture(t, 0)
	data := testutil.MustStatement(t,
		testutil.BankRow{Fecha: "15-03-2024", Detalle: "UBER EATS SANTIAGO", Monto: "12.500"},
		testutil.BankRow{Fecha: "16-03-2024", Detalle: "DISCORD NITRO", Monto: "4.500"},
	).Bytes()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile(FormField, "cartola.xlsx")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/gastos/import", body).WithContext(ctx)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got importservice.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.Imported)
	assert.Equal(t, 0, got.Failed)
	assert.Equal(t, 2, f.repo.Len())
}

func TestImportHandler_DownloadUpload(t *testing.T) {
	f := newFixture(t, 0)
	data := testutil.MustStatement(t, testutil.BankRow{Fecha: "01-02-2024", Detalle: "LMX DIGITAL", Monto: 30000}).Bytes()
	require.Equal(t, http.StatusOK, upload(t, f.router, FormField, "cartola marzo.xlsx", data).Code)

	archived, err := f.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, archived, 1)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/gastos/import/archivos/"+archived[0].ID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, data, rec.Body.Bytes())
	assert.Equal(t, `attachment; filename="cartola marzo.xlsx"`, rec.Header().Get("Content-Disposition"))

	tests := []struct {
		name string
		id   string
		want int
	}{
		{"unknown id", uuid.NewString(), http.StatusNotFound},
		{"malformed id", "abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/gastos/import/archivos/"+tt.id, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestImportHandler_Errors(t *testing.T) {
	t.Run("unreadable file", func(t *testing.T) {
		f := newFixture(t, 0)
		rec := upload(t, f.router, FormField, "notas.txt", []byte("hola"))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, 0, f.repo.Len())
	})

	t.Run("missing field", func(t *testing.T) {
		f := newFixture(t, 0)
		rec := upload(t, f.router, "archivo", "cartola.xlsx", []byte("x"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not multipart", func(t *testing.T) {
		f := newFixture(t, 0)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/gastos/import", bytes.NewReader([]byte("{}"))))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("too large", func(t *testing.T) {
		f := newFixture(t, 1024)
		rec := upload(t, f.router, FormField, "cartola.xlsx", bytes.Repeat([]byte("a"), 4096))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestImportHandler_NoStorage(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repository.NewMemoryExpenseRepository()
	svc := importservice.NewImportService(repo, categorization.NewDefaultEngine(), importservice.Options{HeaderRow: 2}, logger)
	r := chi.NewRouter()
	NewImportHandler(svc, nil, 0, logger).Routes(r)

	data := testutil.MustStatement(t, testutil.BankRow{Fecha: "01-02-2024", Detalle: "LMX DIGITAL", Monto: 30000}).Bytes()
	rec := upload(t, r, FormField, "cartola.xlsx", data)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, repo.Len())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/gastos/import/archivos", nil))
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/gastos/import/archivos/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
