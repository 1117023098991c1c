package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"covcheck/pkg/contracts/domain"
)

// SheetFixture is one worksheet of a generated workbook. Rows[0] is row 1; nil cells stay empty.
type SheetFixture struct {
	Name string
	Rows [][]interface{}
}

// TargetsSheet builds a targets tab. An empty string in a pair leaves the cell empty.
func TargetsSheet(name string, pairs ...[2]string) SheetFixture {
	rows := [][]interface{}{{domain.ColumnAdASIN, domain.ColumnTargetASIN}}
	for _, p := range pairs {
		rows = append(rows, []interface{}{cellValue(p[0]), cellValue(p[1])})
	}
	return SheetFixture{Name: name, Rows: rows}
}

// BulkSheet builds a bulk report sheet with one Campaign row per campaign name
func BulkSheet(name string, campaigns ...string) SheetFixture {
	rows := [][]interface{}{{"Entity", domain.ColumnCampaignName, "State"}}
	for _, c := range campaigns {
		rows = append(rows, []interface{}{"Campaign", cellValue(c), "enabled"})
	}
	return SheetFixture{Name: name, Rows: rows}
}

// DisplaySheet is BulkSheet on the conventional "Sponsored Display Campaigns" tab
func DisplaySheet(campaigns ...string) SheetFixture {
	return BulkSheet("Sponsored Display Campaigns", campaigns...)
}

func cellValue(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// BuildWorkbook renders the sheets, in order, as .xlsx bytes
func BuildWorkbook(t testing.TB, sheets ...SheetFixture) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName(f.GetSheetName(0), sheet.Name))
		} else {
			_, err := f.NewSheet(sheet.Name)
			require.NoError(t, err)
		}
		for r, row := range sheet.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			values := row
			require.NoError(t, f.SetSheetRow(sheet.Name, cell, &values))
		}
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

// WriteWorkbook writes BuildWorkbook's output to dir/name and returns the path
func WriteWorkbook(t testing.TB, dir, name string, sheets ...SheetFixture) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, BuildWorkbook(t, sheets...), 0644))
	return path
}
