// Package handler exposes the statement import endpoint.
package handler

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/gastos-tracker/internal/domain/import/reader"
	importservice "github.com/FACorreiaa/gastos-tracker/internal/domain/import/service"
	"github.com/FACorreiaa/gastos-tracker/pkg/middleware"
	"github.com/FACorreiaa/gastos-tracker/pkg/storage"
)

// FormField is the multipart field carrying the spreadsheet
const FormField = "file"

// ImportHandler serves the spreadsheet upload
type ImportHandler struct {
	importSvc *importservice.ImportService
	storage   storage.Storage
	maxBytes  int64
	logger    *slog.Logger
}

// NewImportHandler creates a new import handler. Uploads are archived to
// store when it is not nil.
func NewImportHandler(importSvc *importservice.ImportService, store storage.Storage, maxBytes int64, logger *slog.Logger) *ImportHandler {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &ImportHandler{
		importSvc: importSvc,
		storage:   store,
		maxBytes:  maxBytes,
		logger:    logger,
	}
}

// Routes mounts the handler on r
func (h *ImportHandler) Routes(r chi.Router) {
	r.Post("/api/gastos/import", h.Import)
	r.Get("/api/gastos/import/archivos", h.ListUploads)
	r.Get("/api/gastos/import/archivos/{id}", h.DownloadUpload)
}

// Import handles POST /api/gastos/import
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxBytes {
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, "archivo demasiado grande")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "archivo demasiado grande")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile(FormField)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	logger := h.logger.With(slog.String("filename", header.Filename), slog.Int("size", len(data)))
	h.archive(r, header.Filename, header.Header.Get("Content-Type"), data, logger)

	// A client disconnect only cancels the wait for a running import.
	summary, err := h.importSvc.ImportDetached(r.Context(), bytes.NewReader(data), header.Filename)
	if err != nil {
		switch {
		case errors.Is(err, reader.ErrUnreadable):
			middleware.WriteError(w, http.StatusUnprocessableEntity, "no se pudo leer la planilla")
		case errors.Is(err, importservice.ErrImportInProgress):
			middleware.WriteError(w, http.StatusConflict, "ya hay una importación en curso")
		default:
			logger.Error("import failed", slog.Any("error", err))
			middleware.WriteError(w, http.StatusInternalServerError, "import failed")
		}
		return
	}

	middleware.WriteJSON(w, http.StatusOK, summary)
}

// ListUploads handles GET /api/gastos/import/archivos
func (h *ImportHandler) ListUploads(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		middleware.WriteJSON(w, http.StatusOK, []*storage.FileInfo{})
		return
	}
	files, err := h.storage.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list uploads", slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, "failed to list uploads")
		return
	}
	if files == nil {
		files = []*storage.FileInfo{}
	}
	middleware.WriteJSON(w, http.StatusOK, files)
}

// DownloadUpload handles GET /api/gastos/import/archivos/{id}
func (h *ImportHandler) DownloadUpload(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if h.storage == nil {
		middleware.WriteError(w, http.StatusNotFound, "archivo no encontrado")
		return
	}

	rc, info, err := h.storage.Open(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "archivo no encontrado")
			return
		}
		h.logger.Error("failed to open upload", slog.String("file_id", id.String()), slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, "failed to open upload")
		return
	}
	defer rc.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": info.Name}))
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("failed to stream upload", slog.String("file_id", id.String()), slog.Any("error", err))
	}
}

// archive keeps a copy of the upload. Failing to archive does not block the
// import.
func (h *ImportHandler) archive(r *http.Request, filename, contentType string, data []byte, logger *slog.Logger) {
	if h.storage == nil {
		return
	}
	info, err := h.storage.Save(r.Context(), filename, contentType, bytes.NewReader(data))
	if err != nil {
		logger.Warn("failed to archive upload", slog.Any("error", err))
		return
	}
	logger.Debug("upload archived", slog.String("file_id", info.ID.String()))
}
