package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	apierrors "covcheck/internal/errors"
	"covcheck/internal/exporter"
	"covcheck/internal/files"
	"covcheck/internal/infrastructure"
	"covcheck/internal/reconcile"
	"covcheck/internal/workbook"
	"covcheck/pkg/contracts/domain"
)

// DefaultPreviewRows is the preview size used when none is configured
const DefaultPreviewRows = 5

// Run sources, recorded as a metric attribute
const (
	SourceHTTP = "http"
	SourceCLI  = "cli"
)

// InputNames labels the two uploaded workbooks in logs and errors
type InputNames struct {
	Targets string
	Bulk    string
}

// RunInput is one reconciliation request
type RunInput struct {
	Targets io.Reader
	Bulk    io.Reader
	Names   InputNames

	// Format overrides the configured output format when set
	Format exporter.Format
	// PreviewRows overrides the configured preview size when non-nil
	PreviewRows *int
	// Source is SourceHTTP or SourceCLI
	Source string
}

// TablePreview is the header and first rows of an output table
type TablePreview struct {
	Columns []string             `json:"columns"`
	Rows    []map[string]*string `json:"rows"`
	Total   int                  `json:"total"`
}

// RunOutput describes a finished run
type RunOutput struct {
	RunID          string               `json:"run_id"`
	Stats          domain.CoverageStats `json:"stats"`
	MatchedPreview TablePreview         `json:"matched_preview"`
	MissingPreview TablePreview         `json:"missing_preview"`
	Files          exporter.Names       `json:"files"`
	Format         exporter.Format      `json:"format"`
	Dir            string               `json:"-"`
	Duration       time.Duration        `json:"-"`
}

// Paths returns the absolute paths of both output files
func (o *RunOutput) Paths() (matched, missing string) {
	return filepath.Join(o.Dir, o.Files.Matched), filepath.Join(o.Dir, o.Files.Missing)
}

// CoverageServiceOptions configures a CoverageService
type CoverageServiceOptions struct {
	ReportsDir  string
	Format      exporter.Format
	PreviewRows int
	Tracer      trace.Tracer
	Metrics     *infrastructure.CoverageMetrics
	Logger      *slog.Logger

	// Retention prunes outputs older than this after each run; 0 keeps everything
	Retention time.Duration
}

// CoverageService runs reconciliations and serves their output files
type CoverageService struct {
	exporter    *exporter.CoverageExporter
	format      exporter.Format
	previewRows int
	retention   time.Duration
	reports     *files.Manager
	tracer      trace.Tracer
	metrics     *infrastructure.CoverageMetrics
	logger      *slog.Logger
	now         func() time.Time
}

// NewCoverageService creates a coverage service writing into opts.ReportsDir
func NewCoverageService(opts CoverageServiceOptions) (*CoverageService, error) {
	if opts.ReportsDir == "" {
		return nil, apierrors.NewConfigError("reports directory is required", nil)
	}
	format, err := exporter.ParseFormat(string(opts.Format))
	if err != nil {
		return nil, apierrors.NewConfigError("invalid output format", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = tracenoop.NewTracerProvider().Tracer(infrastructure.MeterName)
	}
	previewRows := opts.PreviewRows
	if previewRows < 0 {
		previewRows = DefaultPreviewRows
	}

	logger = infrastructure.WithComponent(logger, "coverage_service")
	logger.Info("CoverageService initialized",
		slog.String("reports_dir", opts.ReportsDir),
		slog.String("format", string(format)),
		slog.Int("preview_rows", previewRows),
		slog.Duration("retention", opts.Retention))

	return &CoverageService{
		exporter:    exporter.NewCoverageExporter(opts.ReportsDir, logger),
		format:      format,
		previewRows: previewRows,
		retention:   opts.Retention,
		reports:     files.NewManager(opts.ReportsDir, logger),
		tracer:      tracer,
		metrics:     opts.Metrics,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// ReportsDir returns the directory outputs are written to
func (s *CoverageService) ReportsDir() string {
	return s.exporter.Dir()
}

// Run reads both workbooks, reconciles them and writes the two output files.
// No output file is left behind when Run fails.
func (s *CoverageService) Run(ctx context.Context, in RunInput) (out *RunOutput, err error) {
	start := s.now()
	runID := uuid.New().String()
	ctx = infrastructure.EnsureTraceID(ctx)

	source := in.Source
	if source == "" {
		source = SourceHTTP
	}
	format := s.format
	if in.Format != "" {
		if format, err = exporter.ParseFormat(string(in.Format)); err != nil {
			return nil, apierrors.NewAppValidationError(err.Error())
		}
	}
	previewRows := s.previewRows
	if in.PreviewRows != nil && *in.PreviewRows >= 0 {
		previewRows = *in.PreviewRows
	}

	ctx, span := s.tracer.Start(ctx, "coverage.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("run.source", source),
			attribute.String("output.format", string(format)),
		),
	)
	defer span.End()

	logger := s.logger.With(slog.String("run_id", runID))
	logger.InfoContext(ctx, "Coverage run started",
		slog.String("targets", in.Names.Targets),
		slog.String("bulk", in.Names.Bulk),
		slog.String("source", source))

	defer func() {
		var stats *domain.CoverageStats
		if out != nil {
			stats = &out.Stats
		}
		s.metrics.RecordRun(ctx, source, s.now().Sub(start), stats, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			infrastructure.WithError(logger, err).WarnContext(ctx, "Coverage run failed")
		}
	}()

	if in.Targets == nil || in.Bulk == nil {
		return nil, apierrors.NewAppValidationError("both targets and bulk workbooks are required")
	}

	targets, bulk, err := s.readInputs(ctx, in)
	if err != nil {
		return nil, err
	}

	result, err := reconcile.Reconcile(targets, bulk)
	if err != nil {
		return nil, err
	}
	span.AddEvent("reconciled", trace.WithAttributes(
		attribute.Int("rows.matched", result.Stats.MatchedRows),
		attribute.Int("rows.missing", result.Stats.MissingRows),
	))

	// Abandoned requests write nothing
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	names, err := s.exporter.Export(result, start, format)
	if err != nil {
		if errors.Is(err, exporter.ErrUnknownFormat) {
			return nil, apierrors.NewAppValidationError(err.Error())
		}
		return nil, apierrors.NewStorageError("failed to write coverage files", err)
	}

	out = &RunOutput{
		RunID:          runID,
		Stats:          result.Stats,
		MatchedPreview: NewTablePreview(result.Matched, previewRows),
		MissingPreview: NewTablePreview(result.Missing, previewRows),
		Files:          names,
		Format:         format,
		Dir:            s.exporter.Dir(),
		Duration:       s.now().Sub(start),
	}

	logger.InfoContext(ctx, "Coverage run completed",
		slog.String("bulk_sheet", result.Stats.BulkSheet),
		slog.Int("target_rows", result.Stats.TargetRows),
		slog.Int("bulk_rows", result.Stats.BulkRows),
		slog.Int("matched_rows", result.Stats.MatchedRows),
		slog.Int("duplicates_dropped", result.Stats.DuplicatesDropped),
		slog.Int("missing_rows", result.Stats.MissingRows),
		slog.Duration("duration", out.Duration))

	if _, err := s.reports.Prune(s.retention, s.now()); err != nil {
		logger.WarnContext(ctx, "Failed to prune expired outputs", slog.String("error", err.Error()))
	}

	return out, nil
}

// ListRuns returns the runs whose outputs are still on disk, newest first
func (s *CoverageService) ListRuns() ([]files.Run, error) {
	runs, err := s.reports.Runs()
	if err != nil {
		return nil, apierrors.NewStorageError("failed to list coverage outputs", err)
	}
	return runs, nil
}

// readInputs parses both workbooks concurrently
func (s *CoverageService) readInputs(ctx context.Context, in RunInput) (targets, bulk domain.Workbook, err error) {
	_, span := s.tracer.Start(ctx, "coverage.read_workbooks")
	defer span.End()

	var g errgroup.Group
	g.Go(func() error {
		wb, err := workbook.Read(in.Targets, in.Names.Targets)
		if err != nil {
			return apierrors.NewParsingError("targets workbook could not be read", err).
				WithContext("field", "targets")
		}
		targets = wb
		return nil
	})
	g.Go(func() error {
		wb, err := workbook.Read(in.Bulk, in.Names.Bulk)
		if err != nil {
			return apierrors.NewParsingError("bulk workbook could not be read", err).
				WithContext("field", "bulk")
		}
		bulk = wb
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.Workbook{}, domain.Workbook{}, err
	}

	span.SetAttributes(
		attribute.Int("targets.sheets", len(targets.Sheets)),
		attribute.Int("bulk.sheets", len(bulk.Sheets)),
	)
	return targets, bulk, nil
}

// OpenOutput opens a file written by a previous run. Names that are not
// coverage outputs are rejected before touching the filesystem.
func (s *CoverageService) OpenOutput(name string) (*os.File, os.FileInfo, error) {
	if !exporter.IsOutputName(name) {
		return nil, nil, apierrors.NewNotFoundError(fmt.Sprintf("output file %q", name))
	}

	f, err := os.Open(filepath.Join(s.exporter.Dir(), name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, apierrors.NewNotFoundError(fmt.Sprintf("output file %q", name))
		}
		return nil, nil, apierrors.NewStorageError("failed to open output file", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, apierrors.NewStorageError("failed to stat output file", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, apierrors.NewNotFoundError(fmt.Sprintf("output file %q", name))
	}

	return f, info, nil
}

// NewTablePreview returns the columns and first n rows of t
func NewTablePreview(t domain.Table, n int) TablePreview {
	return TablePreview{
		Columns: append([]string{}, t.Columns...),
		Rows:    Preview(t, n),
		Total:   t.Len(),
	}
}

// Preview returns the first n rows of t keyed by column name; null cells are nil
func Preview(t domain.Table, n int) []map[string]*string {
	head := t.Head(n)
	rows := make([]map[string]*string, 0, head.Len())
	for _, row := range head.Rows {
		m := make(map[string]*string, len(head.Columns))
		for i, col := range head.Columns {
			if i < len(row) {
				m[col] = row[i].Ptr()
			} else {
				m[col] = nil
			}
		}
		rows = append(rows, m)
	}
	return rows
}
