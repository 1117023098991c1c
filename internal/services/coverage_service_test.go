package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "covcheck/internal/errors"
	"covcheck/internal/exporter"
	"covcheck/internal/reconcile"
	"covcheck/internal/shared/testutil"
	"covcheck/internal/workbook"
	"covcheck/pkg/contracts/domain"
)

const (
	asinA = "B0AAAAAAAA"
	asinB = "B0BBBBBBBB"
	asinC = "B0CCCCCCCC"
	asinD = "B0DDDDDDDD"
)

func newTestService(t *testing.T) *CoverageService {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	svc, err := NewCoverageService(CoverageServiceOptions{
		ReportsDir:  filepath.Join(t.TempDir(), "reports"),
		Format:      exporter.FormatXLSX,
		PreviewRows: DefaultPreviewRows,
		Logger:      logger,
	})
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC) }
	return svc
}

func scenarioInput(t *testing.T) RunInput {
	targets := testutil.BuildWorkbook(t,
		testutil.TargetsSheet("TabA", [2]string{asinA, asinB}),
		testutil.TargetsSheet("TabB", [2]string{asinC, asinD}),
	)
	bulk := testutil.BuildWorkbook(t,
		testutil.BulkSheet("Portfolios"),
		testutil.DisplaySheet("SD | "+strings.ToLower(asinA)+" -> "+asinB+" | prospecting"),
	)
	return RunInput{
		Targets: bytes.NewReader(targets),
		Bulk:    bytes.NewReader(bulk),
		Names:   InputNames{Targets: "plan.xlsx", Bulk: "bulk.xlsx"},
	}
}

func TestCoverageService_Run(t *testing.T) {
	svc := newTestService(t)

	out, err := svc.Run(context.Background(), scenarioInput(t))
	require.NoError(t, err)

	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, exporter.FormatXLSX, out.Format)
	assert.Equal(t, exporter.Names{
		Matched: "filtered_bulk_with_source_20250102_150405.xlsx",
		Missing: "missing_combinations_20250102_150405.xlsx",
	}, out.Files)

	assert.Equal(t, domain.CoverageStats{
		BulkSheet:    "Sponsored Display Campaigns",
		TargetSheets: 2,
		TargetRows:   2,
		BulkRows:     1,
		MatchedRows:  1,
		MissingRows:  1,
	}, out.Stats)

	require.Len(t, out.MatchedPreview.Rows, 1)
	assert.Equal(t, "TabA", *out.MatchedPreview.Rows[0][domain.ColumnSourceTab])
	assert.Equal(t, strings.ToLower(asinB), *out.MatchedPreview.Rows[0][domain.ColumnTargetASIN])

	require.Len(t, out.MissingPreview.Rows, 1)
	assert.Equal(t, strings.ToLower(asinC), *out.MissingPreview.Rows[0][domain.ColumnAdASIN])
	assert.Equal(t, "TabB", *out.MissingPreview.Rows[0][domain.ColumnSourceTab])

	matchedPath, missingPath := out.Paths()
	matched, err := workbook.ReadFile(matchedPath)
	require.NoError(t, err)
	assert.Equal(t, 1, matched.Sheets[0].Len())

	missing, err := workbook.ReadFile(missingPath)
	require.NoError(t, err)
	assert.Equal(t, 1, missing.Sheets[0].Len())
}

func TestCoverageService_RunOverrides(t *testing.T) {
	svc := newTestService(t)

	in := scenarioInput(t)
	in.Format = exporter.FormatCSV
	zero := 0
	in.PreviewRows = &zero

	out, err := svc.Run(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, exporter.FormatCSV, out.Format)
	assert.True(t, strings.HasSuffix(out.Files.Missing, ".csv"))
	assert.Empty(t, out.MatchedPreview.Rows)
	assert.Equal(t, 1, out.MatchedPreview.Total)
	assert.NotEmpty(t, out.MatchedPreview.Columns)
}

func TestCoverageService_RunKeepsLongNumericIDs(t *testing.T) {
	svc := newTestService(t)

	campaign := "SD | " + asinA + " -> " + asinB
	targets := testutil.BuildWorkbook(t, testutil.TargetsSheet("TabA", [2]string{asinA, asinB}))
	bulk := testutil.BuildWorkbook(t, testutil.SheetFixture{
		Name: "Sponsored Display Campaigns",
		Rows: [][]interface{}{
			{"Entity", "Campaign ID", domain.ColumnCampaignName, "Budget"},
			{"Campaign", int64(123456789012345678), campaign, 0.0125},
			{"Campaign", int64(123456789012345679), campaign, 0.0125},
		},
	})

	out, err := svc.Run(context.Background(), RunInput{
		Targets: bytes.NewReader(targets),
		Bulk:    bytes.NewReader(bulk),
		Names:   InputNames{Targets: "plan.xlsx", Bulk: "bulk.xlsx"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Stats.MatchedRows)
	assert.Equal(t, 0, out.Stats.DuplicatesDropped)

	matchedPath, _ := out.Paths()
	matched, err := workbook.ReadFile(matchedPath)
	require.NoError(t, err)

	got := matched.Sheets[0]
	require.Equal(t, 2, got.Len())
	id, budget := got.ColumnIndex("Campaign ID"), got.ColumnIndex("Budget")
	require.GreaterOrEqual(t, id, 0)
	require.GreaterOrEqual(t, budget, 0)
	assert.Equal(t, domain.NewTypedCell("123456789012345678", domain.KindNumber), got.Rows[0][id])
	assert.Equal(t, domain.NewTypedCell("123456789012345679", domain.KindNumber), got.Rows[1][id])
	assert.Equal(t, domain.NewTypedCell("0.0125", domain.KindNumber), got.Rows[0][budget])
}

func TestCoverageService_RunErrors(t *testing.T) {
	tests := []struct {
		name  string
		input func(t *testing.T) RunInput
		check func(t *testing.T, err error)
	}{
		{
			name: "missing display sheet",
			input: func(t *testing.T) RunInput {
				in := scenarioInput(t)
				in.Bulk = bytes.NewReader(testutil.BuildWorkbook(t, testutil.BulkSheet("Sponsored Products Campaigns", "x")))
				return in
			},
			check: func(t *testing.T, err error) {
				var sheetErr *reconcile.MissingSheetError
				require.True(t, errors.As(err, &sheetErr))
				assert.Equal(t, domain.BulkSheetMarker, sheetErr.Marker)
			},
		},
		{
			name: "missing targets column",
			input: func(t *testing.T) RunInput {
				in := scenarioInput(t)
				in.Targets = bytes.NewReader(testutil.BuildWorkbook(t, testutil.SheetFixture{
					Name: "TabA",
					Rows: [][]interface{}{{domain.ColumnAdASIN, "Notes"}, {asinA, "x"}},
				}))
				return in
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, reconcile.ErrMissingColumn)
			},
		},
		{
			name: "unreadable targets",
			input: func(t *testing.T) RunInput {
				in := scenarioInput(t)
				in.Targets = strings.NewReader("not a workbook")
				return in
			},
			check: func(t *testing.T, err error) {
				var appErr *apierrors.AppError
				require.True(t, errors.As(err, &appErr))
				assert.Equal(t, apierrors.ErrTypeParsing, appErr.Type)
				assert.Equal(t, "targets", appErr.Context["field"])
			},
		},
		{
			name: "missing upload",
			input: func(t *testing.T) RunInput {
				in := scenarioInput(t)
				in.Bulk = nil
				return in
			},
			check: func(t *testing.T, err error) {
				var appErr *apierrors.AppError
				require.True(t, errors.As(err, &appErr))
				assert.Equal(t, apierrors.ErrTypeValidation, appErr.Type)
			},
		},
		{
			name: "unknown format",
			input: func(t *testing.T) RunInput {
				in := scenarioInput(t)
				in.Format = "pdf"
				return in
			},
			check: func(t *testing.T, err error) {
				var appErr *apierrors.AppError
				require.True(t, errors.As(err, &appErr))
				assert.Equal(t, apierrors.ErrTypeValidation, appErr.Type)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t)

			out, err := svc.Run(context.Background(), tt.input(t))
			require.Error(t, err)
			assert.Nil(t, out)
			tt.check(t, err)

			entries, _ := os.ReadDir(svc.ReportsDir())
			assert.Empty(t, entries, "no output may be written on failure")
		})
	}
}

func TestCoverageService_RunCancelled(t *testing.T) {
	svc := newTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Run(ctx, scenarioInput(t))
	assert.ErrorIs(t, err, context.Canceled)

	entries, _ := os.ReadDir(svc.ReportsDir())
	assert.Empty(t, entries)
}

func TestCoverageService_OpenOutput(t *testing.T) {
	svc := newTestService(t)

	out, err := svc.Run(context.Background(), scenarioInput(t))
	require.NoError(t, err)

	f, info, err := svc.OpenOutput(out.Files.Missing)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, out.Files.Missing, info.Name())

	head := make([]byte, 2)
	_, err = io.ReadFull(f, head)
	require.NoError(t, err)
	assert.Equal(t, "PK", string(head))

	for _, name := range []string{
		"../" + out.Files.Missing,
		"missing_combinations_20990101_000000.xlsx",
		"config.yaml",
		"",
	} {
		_, _, err := svc.OpenOutput(name)
		var appErr *apierrors.AppError
		require.True(t, errors.As(err, &appErr), name)
		assert.Equal(t, apierrors.ErrTypeNotFound, appErr.Type, name)
	}
}

func TestPreview(t *testing.T) {
	table := domain.Table{
		Columns: []string{"A", "B"},
		Rows: [][]domain.Cell{
			{domain.NewCell("1"), domain.NullCell()},
			{domain.NewCell("2"), domain.NewCell("x")},
			{domain.NewCell("3"), domain.NewCell("y")},
		},
	}

	rows := Preview(table, 2)
	require.Len(t, rows, 2)
	assert.Equal(t, "1", *rows[0]["A"])
	assert.Nil(t, rows[0]["B"])
	assert.Equal(t, "x", *rows[1]["B"])

	assert.Len(t, Preview(table, 10), 3)
	assert.Empty(t, Preview(table, 0))

	p := NewTablePreview(table, 1)
	assert.Equal(t, []string{"A", "B"}, p.Columns)
	assert.Equal(t, 3, p.Total)
}

func TestNewCoverageService_Validation(t *testing.T) {
	_, err := NewCoverageService(CoverageServiceOptions{})
	assert.Error(t, err)

	_, err = NewCoverageService(CoverageServiceOptions{ReportsDir: t.TempDir(), Format: "pdf"})
	assert.ErrorIs(t, err, exporter.ErrUnknownFormat)
}

func TestCoverageService_RetentionAndListRuns(t *testing.T) {
	svc := newTestService(t)
	svc.retention = 24 * time.Hour

	runs, err := svc.ListRuns()
	require.NoError(t, err)
	assert.Empty(t, runs, "reports directory does not exist yet")

	dir := svc.ReportsDir()
	require.NoError(t, os.MkdirAll(dir, 0755))
	expired := filepath.Join(dir, "missing_combinations_20240101_000000.xlsx")
	require.NoError(t, os.WriteFile(expired, []byte("PK"), 0644))
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(expired, old, old))

	out, err := svc.Run(context.Background(), scenarioInput(t))
	require.NoError(t, err)
	assert.NoFileExists(t, expired)

	runs, err = svc.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "20250102_150405", runs[0].Timestamp)
	require.NotNil(t, runs[0].Matched)
	assert.Equal(t, out.Files.Matched, runs[0].Matched.Name)
	assert.Equal(t, out.Files.Missing, runs[0].Missing.Name)
}
