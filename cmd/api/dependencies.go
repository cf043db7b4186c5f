package api

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/FACorreiaa/gastos-tracker/internal/domain/categorization"
	expensehandler "github.com/FACorreiaa/gastos-tracker/internal/domain/expense/handler"
	expenserepo "github.com/FACorreiaa/gastos-tracker/internal/domain/expense/repository"
	expenseservice "github.com/FACorreiaa/gastos-tracker/internal/domain/expense/service"
	importhandler "github.com/FACorreiaa/gastos-tracker/internal/domain/import/handler"
	"github.com/FACorreiaa/gastos-tracker/internal/domain/import/normalizer"
	importservice "github.com/FACorreiaa/gastos-tracker/internal/domain/import/service"

	"github.com/FACorreiaa/gastos-tracker/pkg/config"
	"github.com/FACorreiaa/gastos-tracker/pkg/cron"
	"github.com/FACorreiaa/gastos-tracker/pkg/db"
	"github.com/FACorreiaa/gastos-tracker/pkg/metrics"
	"github.com/FACorreiaa/gastos-tracker/pkg/notify"
	"github.com/FACorreiaa/gastos-tracker/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config  *config.Config
	DB      *db.DB
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// Repositories
	ExpenseRepo expenserepo.ExpenseRepository

	// Services
	Classifier     *categorization.Engine
	ExpenseService *expenseservice.Service
	ImportService  *importservice.ImportService
	Notifier       notify.Notifier
	FileStorage    storage.Storage
	Scheduler      *cron.Scheduler

	// Handlers
	ExpenseHandler *expensehandler.ExpenseHandler
	ImportHandler  *importhandler.ImportHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	// Initialize database
	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	// Initialize repositories
	if err := deps.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	// Initialize services
	if err := deps.initServices(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	// Initialize handlers
	if err := deps.initHandlers(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init handlers: %w", err)
	}

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// OpenDatabase connects to Postgres with the pool settings used by the server
func OpenDatabase(cfg *config.Config, logger *slog.Logger) (*db.DB, error) {
	return db.New(db.Config{
		DSN:             cfg.Database.DSN(),
		MaxConns:        10,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, logger)
}

// ImportOptions maps the import settings onto pipeline options
func ImportOptions(cfg *config.Config) importservice.Options {
	return importservice.Options{
		HeaderRow: cfg.Import.HeaderOffset,
		Columns: normalizer.Columns{
			Date:   cfg.Import.DateColumn,
			Detail: cfg.Import.DetailColumn,
			Amount: cfg.Import.AmountColumn,
		},
		DayShift:         cfg.Import.DateDayShift,
		DedupWithinBatch: cfg.Import.DedupWithinBatch,
		Concurrency:      cfg.Import.SubmitConcurrency,
	}
}

// NewNotifier builds the notification fan-out: the log always, e-mail when
// Resend is configured
func NewNotifier(cfg *config.Config, logger *slog.Logger) notify.Notifier {
	sinks := notify.Multi{notify.NewLogNotifier(logger)}
	// NewEmailNotifier returns nil when email is not configured
	if email := notify.NewEmailNotifier(cfg.Notify.ResendAPIKey, cfg.Notify.EmailFrom, cfg.Notify.EmailTo); email != nil {
		sinks = append(sinks, email)
	}
	return sinks
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := OpenDatabase(d.Config, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	// Run migrations
	if err := d.DB.RunMigrations(); err != nil {
		d.DB.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() error {
	d.ExpenseRepo = expenserepo.NewPostgresExpenseRepository(d.DB.Pool)

	d.Logger.Info("repositories initialized")
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	d.Metrics = metrics.New()
	d.Classifier = categorization.NewDefaultEngine()
	d.Logger.Info("classifier loaded", slog.Int("rules", d.Classifier.RuleCount()))
	d.Notifier = NewNotifier(d.Config, d.Logger)

	d.ExpenseService = expenseservice.NewService(d.ExpenseRepo, d.Config.Import.CurrencyCode, d.Logger)

	d.ImportService = importservice.NewImportService(d.ExpenseRepo, d.Classifier, ImportOptions(d.Config), d.Logger).
		WithNotifier(d.Notifier).
		WithMetrics(d.Metrics)

	// Archive for uploaded statements, swept by the retention job
	fileStorage, err := storage.NewLocalStorage(d.Config.Storage.UploadPath)
	if err != nil {
		return fmt.Errorf("failed to init file storage: %w", err)
	}
	d.FileStorage = fileStorage
	d.Scheduler = cron.NewScheduler(d.FileStorage, d.Config.Storage.SweepSchedule, d.Config.Storage.RetentionDays, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() error {
	d.ExpenseHandler = expensehandler.NewExpenseHandler(d.ExpenseService, d.Logger)
	d.ImportHandler = importhandler.NewImportHandler(d.ImportService, d.FileStorage, d.Config.Server.MaxUploadBytes, d.Logger)

	d.Logger.Info("handlers initialized")
	return nil
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
