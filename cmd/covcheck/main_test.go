package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "covcheck/internal/errors"
	"covcheck/internal/reconcile"
	"covcheck/internal/shared/testutil"
	"covcheck/pkg/contracts"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("COVCHECK_LOGGING_LEVEL", "error")

	var stdout, stderr bytes.Buffer
	root := newRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeInputs(t *testing.T, dir string, bulkSheets ...testutil.SheetFixture) (string, string) {
	t.Helper()
	targets := testutil.WriteWorkbook(t, dir, "SD_PRD_targets.xlsx",
		testutil.TargetsSheet("TabA", [2]string{"B0AAAAAAAA", "B0BBBBBBBB"}),
		testutil.TargetsSheet("TabB", [2]string{"B0CCCCCCCC", "B0DDDDDDDD"}),
	)
	if len(bulkSheets) == 0 {
		bulkSheets = []testutil.SheetFixture{
			testutil.BulkSheet("Portfolios"),
			testutil.DisplaySheet("SD | b0aaaaaaaa -> B0BBBBBBBB | prospecting"),
		}
	}
	bulk := testutil.WriteWorkbook(t, dir, "bulk.xlsx", bulkSheets...)
	return targets, bulk
}

func TestReconcileCommand(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "reports")
	targets, bulk := writeInputs(t, in)

	stdout, _, err := execute(t, "reconcile", "--targets", targets, "--bulk", bulk, "--out", out, "--preview", "3")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Bulk sheet:   Sponsored Display Campaigns")
	assert.Contains(t, stdout, "Matched rows: 1")
	assert.Contains(t, stdout, "Missing rows: 1")
	assert.Contains(t, stdout, "TabA")
	assert.Contains(t, stdout, "b0cccccccc")

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Contains(t, stdout, "Wrote "+filepath.Join(out, e.Name()))
		assert.True(t, strings.HasSuffix(e.Name(), ".xlsx"))
	}
}

func TestReconcileCommand_CSV(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	targets, bulk := writeInputs(t, in)

	stdout, _, err := execute(t, "reconcile", "--targets", targets, "--bulk", bulk, "--out", out, "--format", "CSV", "--preview", "0")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "first")

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.True(t, strings.HasSuffix(e.Name(), ".csv"), e.Name())
	}
}

func TestReconcileCommand_Errors(t *testing.T) {
	t.Run("no display sheet", func(t *testing.T) {
		in := t.TempDir()
		out := t.TempDir()
		targets, bulk := writeInputs(t, in, testutil.BulkSheet("Sponsored Products Campaigns", "SP | x"))

		_, _, err := execute(t, "reconcile", "--targets", targets, "--bulk", bulk, "--out", out)

		var sheetErr *reconcile.MissingSheetError
		require.True(t, errors.As(err, &sheetErr), "got %v", err)
		entries, _ := os.ReadDir(out)
		assert.Empty(t, entries)
	})

	t.Run("not a workbook name", func(t *testing.T) {
		_, _, err := execute(t, "reconcile", "--targets", "plan.csv", "--bulk", "bulk.xlsx")
		require.Error(t, err)
		assert.Contains(t, describeError(err), "targets must be an .xlsx or .xlsm workbook")
	})

	t.Run("missing file", func(t *testing.T) {
		dir := t.TempDir()
		_, _, err := execute(t, "reconcile",
			"--targets", filepath.Join(dir, "nope.xlsx"),
			"--bulk", filepath.Join(dir, "bulk.xlsx"),
			"--out", dir)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("required flags", func(t *testing.T) {
		_, _, err := execute(t, "reconcile")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "required flag")
	})

	t.Run("preview out of range", func(t *testing.T) {
		in := t.TempDir()
		targets, bulk := writeInputs(t, in)
		_, _, err := execute(t, "reconcile", "--targets", targets, "--bulk", bulk, "--out", in, "--preview", "500")
		require.Error(t, err)
		assert.Contains(t, describeError(err), "preview must be less than or equal to 100")
	})
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, contracts.GetVersionString()+"\n", stdout)

	stdout, _, err = execute(t, "version", "--full")
	require.NoError(t, err)
	assert.Contains(t, stdout, "commit:")
}

func TestDescribeError(t *testing.T) {
	assert.Equal(t, "plain", describeError(errors.New("plain")))

	err := apierrors.NewValidationErrors([]apierrors.ValidationError{
		{Field: "targets", Message: "targets is required"},
		{Field: "bulk", Message: "bulk is required"},
	})
	assert.Equal(t, "Request validation failed: targets is required; bulk is required", describeError(err))
}
