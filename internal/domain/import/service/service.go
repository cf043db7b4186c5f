// Package service provides the import orchestration logic: read a bank
// statement, normalize and classify its rows, drop the ones already stored
// and submit the rest.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/gastos-tracker/internal/domain/expense/repository"
	"github.com/FACorreiaa/gastos-tracker/internal/domain/import/dedup"
	"github.com/FACorreiaa/gastos-tracker/internal/domain/import/normalizer"
	"github.com/FACorreiaa/gastos-tracker/internal/domain/import/reader"
	"github.com/FACorreiaa/gastos-tracker/pkg/metrics"
	"github.com/FACorreiaa/gastos-tracker/pkg/notify"
)

// ErrImportInProgress is returned when the caller gave up waiting for a
// running import to finish
var ErrImportInProgress = errors.New("an import is already in progress")

// Messages shown to the user after a run
const (
	msgNothingImported = "No se importó ningún gasto (posiblemente duplicados)."
	titleImported      = "✅ Importación completada"
	titleNothing       = "Importación sin cambios"
)

// ExpenseStore is the persistence the pipeline needs
type ExpenseStore interface {
	List(ctx context.Context, opts repository.ListOptions) ([]*repository.Expense, error)
	Create(ctx context.Context, in repository.NewExpense) (*repository.Expense, error)
}

// Classifier maps a description to a category label. It must be total.
type Classifier interface {
	Classify(description string) string
}

// Options configures an ImportService
type Options struct {
	HeaderRow int // 0-based index of the header row
	Columns   normalizer.Columns
	DayShift  int
	// DedupWithinBatch also drops rows repeating an earlier row of the
	// same file. Off by default: only stored records are compared.
	DedupWithinBatch bool
	// Concurrency bounds parallel submissions; 1 submits row by row.
	Concurrency int
}

// CategoryCount is the number of imported rows of one category
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Summary is the outcome of one import run
type Summary struct {
	RunID       uuid.UUID                     `json:"run_id"`
	Filename    string                        `json:"filename"`
	Rows        int                           `json:"rows"`
	Imported    int                           `json:"imported"`
	ByCategory  []CategoryCount               `json:"by_category"` // In order of first import
	Duplicates  int                           `json:"duplicates"`
	Skipped     int                           `json:"skipped"`
	SkipReasons map[normalizer.SkipReason]int `json:"skip_reasons,omitempty"`
	Failed      int                           `json:"failed"`
	Message     string                        `json:"message"`
	Duration    time.Duration                 `json:"-"`
}

// ImportService runs the import pipeline. Runs are serialized per service.
type ImportService struct {
	store      ExpenseStore
	classifier Classifier
	notifier   notify.Notifier
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	reader     *reader.Reader
	normalizer *normalizer.Normalizer
	opts       Options
	lock       chan struct{}
	logger     *slog.Logger
}

// NewImportService creates a new import service
func NewImportService(store ExpenseStore, classifier Classifier, opts Options, logger *slog.Logger) *ImportService {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &ImportService{
		store:      store,
		classifier: classifier,
		tracer:     otel.Tracer("github.com/FACorreiaa/gastos-tracker/import"),
		reader:     reader.New(opts.HeaderRow),
		normalizer: normalizer.New(normalizer.Options{Columns: opts.Columns, DayShift: opts.DayShift}),
		opts:       opts,
		lock:       make(chan struct{}, 1),
		logger:     logger,
	}
}

// WithNotifier sets where run summaries are sent
func (s *ImportService) WithNotifier(n notify.Notifier) *ImportService {
	s.notifier = n
	return s
}

// WithMetrics enables Prometheus counters
func (s *ImportService) WithMetrics(m *metrics.Metrics) *ImportService {
	s.metrics = m
	return s
}

// pending is a candidate that survived dedup and awaits submission
type pending struct {
	candidate *normalizer.Candidate
	category  string
	created   bool
}

// Import runs the pipeline over one spreadsheet. The only errors returned
// are fatal ones: an unreadable file (wrapping reader.ErrUnreadable), a
// failure to load existing records, or giving up waiting for another run.
// Problems with single rows are counted in the summary instead.
func (s *ImportService) Import(ctx context.Context, src io.Reader, filename string) (*Summary, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer func() { <-s.lock }()
	return s.run(ctx, src, filename)
}

// ImportDetached waits for its turn under ctx like Import, but once the run
// starts, cancelling ctx no longer stops it. Values carried by ctx are kept.
func (s *ImportService) ImportDetached(ctx context.Context, src io.Reader, filename string) (*Summary, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer func() { <-s.lock }()
	return s.run(context.WithoutCancel(ctx), src, filename)
}

func (s *ImportService) run(ctx context.Context, src io.Reader, filename string) (*Summary, error) {
	summary := &Summary{RunID: uuid.New(), Filename: filename}
	start := time.Now()
	logger := s.logger.With(
		slog.String("run_id", summary.RunID.String()),
		slog.String("filename", filename),
	)

	ctx, span := s.tracer.Start(ctx, "import.Run", trace.WithAttributes(
		attribute.String("import.run_id", summary.RunID.String()),
		attribute.String("import.filename", filename),
	))
	defer span.End()

	sheet, err := s.reader.Read(src)
	if err != nil {
		s.fail(span, logger, "failed to read spreadsheet", err)
		return nil, err
	}
	summary.Rows = len(sheet.Rows)

	existing, err := s.store.List(ctx, repository.ListOptions{})
	if err != nil {
		err = fmt.Errorf("failed to load existing expenses: %w", err)
		s.fail(span, logger, "failed to load existing expenses", err)
		return nil, err
	}
	known := dedup.NewSet(existing)

	queue := s.plan(sheet, known, summary, logger)
	s.submit(ctx, queue, logger)
	s.aggregate(queue, summary)

	summary.Duration = time.Since(start)
	summary.Message = summaryMessage(summary)

	span.SetAttributes(
		attribute.Int("import.rows", summary.Rows),
		attribute.Int("import.imported", summary.Imported),
		attribute.Int("import.duplicates", summary.Duplicates),
		attribute.Int("import.skipped", summary.Skipped),
		attribute.Int("import.failed", summary.Failed),
	)
	s.record(summary)

	logger.Info("import finished",
		slog.Int("rows", summary.Rows),
		slog.Int("imported", summary.Imported),
		slog.Int("duplicates", summary.Duplicates),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed),
		slog.Duration("duration", summary.Duration),
	)

	s.notify(ctx, summary, logger)
	return summary, nil
}

func (s *ImportService) acquire(ctx context.Context) error {
	select {
	case s.lock <- struct{}{}:
		return nil
	default:
	}
	s.logger.Info("waiting for running import to finish")
	select {
	case s.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrImportInProgress, ctx.Err())
	}
}

// plan normalizes, deduplicates and classifies every row in sheet order
func (s *ImportService) plan(sheet *reader.Sheet, known *dedup.Set, summary *Summary, logger *slog.Logger) []*pending {
	queue := make([]*pending, 0, len(sheet.Rows))

	for _, row := range sheet.Rows {
		c, reason := s.normalizer.Normalize(row)
		if c == nil {
			summary.Skipped++
			if summary.SkipReasons == nil {
				summary.SkipReasons = make(map[normalizer.SkipReason]int)
			}
			summary.SkipReasons[reason]++
			logger.Debug("row skipped", slog.Int("row", row.Number), slog.String("reason", string(reason)))
			continue
		}

		if known.IsDuplicate(c) {
			summary.Duplicates++
			logger.Debug("duplicate row", slog.Int("row", c.Row), slog.String("date", c.ISODate()))
			continue
		}
		if s.opts.DedupWithinBatch {
			known.Add(c)
		}

		queue = append(queue, &pending{candidate: c, category: s.classifier.Classify(c.Description)})
	}
	return queue
}

// submit creates every queued expense. A failed row is logged and left
// behind; it never stops the rest of the batch.
func (s *ImportService) submit(ctx context.Context, queue []*pending, logger *slog.Logger) {
	if s.opts.Concurrency <= 1 {
		for _, p := range queue {
			if ctx.Err() != nil {
				logger.Warn("import cancelled, remaining rows not submitted", slog.Any("error", ctx.Err()))
				return
			}
			s.create(ctx, p, logger)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for _, p := range queue {
		p := p
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			s.create(ctx, p, logger)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *ImportService) create(ctx context.Context, p *pending, logger *slog.Logger) {
	ctx, span := s.tracer.Start(ctx, "import.CreateExpense", trace.WithAttributes(
		attribute.Int("import.row", p.candidate.Row),
		attribute.String("import.category", p.category),
	))
	defer span.End()

	_, err := s.store.Create(ctx, repository.NewExpense{
		Amount:      p.candidate.Amount,
		Category:    p.category,
		Date:        p.candidate.Date,
		Description: p.candidate.Description,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		logger.Error("failed to create expense",
			slog.Int("row", p.candidate.Row),
			slog.String("description", p.candidate.Description),
			slog.Any("error", err),
		)
		return
	}
	p.created = true
}

// aggregate tallies results in sheet order so the breakdown is the same
// whatever the submit concurrency
func (s *ImportService) aggregate(queue []*pending, summary *Summary) {
	index := make(map[string]int)
	for _, p := range queue {
		if !p.created {
			summary.Failed++
			continue
		}
		summary.Imported++
		i, ok := index[p.category]
		if !ok {
			i = len(summary.ByCategory)
			index[p.category] = i
			summary.ByCategory = append(summary.ByCategory, CategoryCount{Category: p.category})
		}
		summary.ByCategory[i].Count++
	}
}

func (s *ImportService) notify(ctx context.Context, summary *Summary, logger *slog.Logger) {
	if s.notifier == nil {
		return
	}
	n := notify.Notification{Level: notify.LevelInfo, Title: titleNothing, Message: summary.Message}
	if summary.Imported > 0 {
		n.Level = notify.LevelSuccess
		n.Title = titleImported
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		logger.Warn("failed to send import notification", slog.Any("error", err))
	}
}

func (s *ImportService) record(summary *Summary) {
	if s.metrics == nil {
		return
	}
	s.metrics.ImportRows.WithLabelValues(metrics.RowImported).Add(float64(summary.Imported))
	s.metrics.ImportRows.WithLabelValues(metrics.RowDuplicate).Add(float64(summary.Duplicates))
	s.metrics.ImportRows.WithLabelValues(metrics.RowSkipped).Add(float64(summary.Skipped))
	s.metrics.ImportRows.WithLabelValues(metrics.RowFailed).Add(float64(summary.Failed))

	result := "succeeded"
	if summary.Imported == 0 {
		result = "empty"
	}
	s.metrics.ImportRuns.WithLabelValues(result).Inc()
}

func (s *ImportService) fail(span trace.Span, logger *slog.Logger, msg string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	logger.Error(msg, slog.Any("error", err))
	if s.metrics != nil {
		s.metrics.ImportRuns.WithLabelValues("failed").Inc()
	}
}

func summaryMessage(s *Summary) string {
	if s.Imported == 0 {
		return msgNothingImported
	}
	parts := make([]string, 0, len(s.ByCategory))
	for _, c := range s.ByCategory {
		parts = append(parts, fmt.Sprintf("%s: %d", c.Category, c.Count))
	}
	return fmt.Sprintf("Se importaron %d gastos\n%s", s.Imported, strings.Join(parts, " · "))
}
