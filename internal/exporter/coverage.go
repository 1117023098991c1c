package exporter

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"covcheck/internal/workbook"
	"covcheck/pkg/contracts/domain"
)

// Format selects the output file type
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// Output file name prefixes
const (
	MatchedPrefix = "filtered_bulk_with_source"
	MissingPrefix = "missing_combinations"
)

// TimestampLayout is the layout of the run timestamp embedded in file names
const TimestampLayout = "20060102_150405"

// ErrUnknownFormat is returned for formats other than xlsx and csv
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat validates a format name; the empty string means xlsx
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Names holds the file names of one run's outputs
type Names struct {
	Matched string `json:"matched"`
	Missing string `json:"missing"`
}

// OutputNames returns the timestamped output file names for a run started at ts
func OutputNames(ts time.Time, format Format) Names {
	if format == "" {
		format = FormatXLSX
	}
	stamp := ts.Format(TimestampLayout)
	return Names{
		Matched: fmt.Sprintf("%s_%s.%s", MatchedPrefix, stamp, format),
		Missing: fmt.Sprintf("%s_%s.%s", MissingPrefix, stamp, format),
	}
}

// OutputName is a parsed output file name
type OutputName struct {
	Prefix string
	Time   time.Time
	Format Format
}

// ParseOutputName splits a file name written by CoverageExporter into its parts
func ParseOutputName(name string) (OutputName, bool) {
	if name != filepath.Base(name) {
		return OutputName{}, false
	}
	ext := Format(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext != FormatXLSX && ext != FormatCSV {
		return OutputName{}, false
	}
	stem := strings.TrimSuffix(name, "."+string(ext))
	for _, prefix := range []string{MatchedPrefix, MissingPrefix} {
		stamp, ok := strings.CutPrefix(stem, prefix+"_")
		if !ok {
			continue
		}
		if ts, err := time.Parse(TimestampLayout, stamp); err == nil {
			return OutputName{Prefix: prefix, Time: ts, Format: ext}, true
		}
	}
	return OutputName{}, false
}

// IsOutputName reports whether name looks like a file written by CoverageExporter
func IsOutputName(name string) bool {
	_, ok := ParseOutputName(name)
	return ok
}

// CoverageExporter writes reconciliation results into a directory
type CoverageExporter struct {
	dir    string
	csv    *CSVWriter
	logger *slog.Logger
}

// NewCoverageExporter creates an exporter writing into dir
func NewCoverageExporter(dir string, logger *slog.Logger) *CoverageExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CoverageExporter{
		dir:    dir,
		csv:    NewCSVWriter(dir),
		logger: logger.With(slog.String("component", "coverage_exporter")),
	}
}

// Dir returns the output directory
func (e *CoverageExporter) Dir() string {
	return e.dir
}

// Export writes the matched and missing tables as two files named for ts.
// Either both files are written or neither is left behind.
func (e *CoverageExporter) Export(result *domain.CoverageResult, ts time.Time, format Format) (Names, error) {
	if result == nil {
		return Names{}, errors.New("nothing to export")
	}
	if _, err := ParseFormat(string(format)); err != nil {
		return Names{}, err
	}
	names := OutputNames(ts, format)

	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return Names{}, fmt.Errorf("failed to create output directory %s: %w", e.dir, err)
	}

	if err := e.write(names.Matched, result.Matched, format); err != nil {
		e.remove(names.Matched)
		return Names{}, err
	}
	if err := e.write(names.Missing, result.Missing, format); err != nil {
		e.remove(names.Matched, names.Missing)
		return Names{}, err
	}

	e.logger.Info("Coverage files written",
		slog.String("dir", e.dir),
		slog.String("matched_file", names.Matched),
		slog.String("missing_file", names.Missing),
		slog.Int("matched_rows", result.Matched.Len()),
		slog.Int("missing_rows", result.Missing.Len()))

	return names, nil
}

func (e *CoverageExporter) write(name string, t domain.Table, format Format) error {
	path := filepath.Join(e.dir, name)
	switch format {
	case FormatCSV:
		if err := e.csv.WriteTable(name, t); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		return nil
	default:
		return workbook.WriteFile(path, t)
	}
}

func (e *CoverageExporter) remove(names ...string) {
	for _, name := range names {
		if err := os.Remove(filepath.Join(e.dir, name)); err != nil && !os.IsNotExist(err) {
			e.logger.Warn("Failed to remove partial output",
				slog.String("file", name),
				slog.String("error", err.Error()))
		}
	}
}
