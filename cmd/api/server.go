package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	expensehandler "github.com/FACorreiaa/gastos-tracker/internal/domain/expense/handler"
	importhandler "github.com/FACorreiaa/gastos-tracker/internal/domain/import/handler"
	"github.com/FACorreiaa/gastos-tracker/pkg/config"
	"github.com/FACorreiaa/gastos-tracker/pkg/metrics"
	"github.com/FACorreiaa/gastos-tracker/pkg/middleware"
)

const shutdownTimeout = 30 * time.Second

// NewRouter mounts the REST API and the operational endpoints behind the
// middleware chain. m may be nil to disable /metrics.
func NewRouter(cfg config.ServerConfig, logger *slog.Logger, m *metrics.Metrics, expenses *expensehandler.ExpenseHandler, imports *importhandler.ImportHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	if cfg.RateLimitPerSecond > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
	}
	if m != nil {
		r.Use(middleware.Metrics(m))
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	imports.Routes(r)
	expenses.Routes(r)

	return r
}

// Router builds the HTTP handler from the initialized dependencies
func (d *Dependencies) Router() http.Handler {
	var m *metrics.Metrics
	if d.Config.Observability.MetricsEnabled {
		m = d.Metrics
	}
	return NewRouter(d.Config.Server, d.Logger, m, d.ExpenseHandler, d.ImportHandler)
}

// Serve runs the HTTP server and the retention scheduler until ctx is done,
// then shuts both down gracefully.
func (d *Dependencies) Serve(ctx context.Context) error {
	if err := d.Scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer func() { <-d.Scheduler.Stop().Done() }()

	server := &http.Server{
		Addr:              d.Config.Server.Addr(),
		Handler:           d.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		d.Logger.Info("starting HTTP server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	d.Logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
