package workbook

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"covcheck/pkg/contracts/domain"
)

// ReadFile opens an .xlsx workbook from disk and loads every sheet
func ReadFile(path string) (domain.Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return domain.Workbook{}, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	return load(f, filepath.Base(path))
}

// Read loads every sheet of an .xlsx workbook from r. name labels the workbook
// in errors and logs.
func Read(r io.Reader, name string) (domain.Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return domain.Workbook{}, fmt.Errorf("failed to open workbook %s: %w", name, err)
	}
	defer f.Close()

	return load(f, name)
}

func load(f *excelize.File, name string) (domain.Workbook, error) {
	wb := domain.Workbook{Name: name}
	types := newCellTyper(f)
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
		if err != nil {
			return domain.Workbook{}, fmt.Errorf("failed to read sheet %q of %s: %w", sheetName, name, err)
		}
		t, err := toTable(sheetName, rows, func(r, c int, v string) (domain.Cell, error) {
			return types.cell(sheetName, r, c, v)
		})
		if err != nil {
			return domain.Workbook{}, fmt.Errorf("failed to read sheet %q of %s: %w", sheetName, name, err)
		}
		wb.Sheets = append(wb.Sheets, t)

		slog.Debug("Loaded sheet",
			slog.String("workbook", name),
			slog.String("sheet", sheetName),
			slog.Int("columns", len(t.Columns)),
			slog.Int("rows", t.Len()))
	}
	return wb, nil
}

// cellFunc converts the raw value at zero-based sheet row r, column c into a cell
type cellFunc func(r, c int, v string) (domain.Cell, error)

// toTable turns raw sheet rows into a table. The first non-blank row is the
// header; blank and duplicate headers are renamed the way spreadsheet tools
// do ("Unnamed: 3", "Cost.1"). Fully blank data rows are dropped and empty
// cells become null. A nil conv keeps every value as text.
func toTable(name string, rows [][]string, conv cellFunc) (domain.Table, error) {
	t := domain.Table{Name: name}
	if conv == nil {
		conv = func(_, _ int, v string) (domain.Cell, error) { return domain.NewCell(v), nil }
	}

	headerRow := -1
	for i, row := range rows {
		if !isBlank(row) {
			headerRow = i
			break
		}
	}
	if headerRow < 0 {
		return t, nil
	}

	width := len(rows[headerRow])
	for _, row := range rows[headerRow+1:] {
		if n := lastNonBlank(row) + 1; n > width {
			width = n
		}
	}
	t.Columns = headers(rows[headerRow], width)

	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		if isBlank(row) {
			continue
		}
		cells := make([]domain.Cell, width)
		for j := 0; j < width && j < len(row); j++ {
			if row[j] == "" {
				continue
			}
			c, err := conv(i, j, row[j])
			if err != nil {
				return domain.Table{}, err
			}
			cells[j] = c
		}
		t.Rows = append(t.Rows, cells)
	}
	return t, nil
}

func headers(raw []string, width int) []string {
	out := make([]string, width)
	used := make(map[string]int)
	for i := 0; i < width; i++ {
		h := ""
		if i < len(raw) {
			h = strings.TrimSpace(raw[i])
		}
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		if n, dup := used[h]; dup {
			used[h] = n + 1
			h = h + "." + strconv.Itoa(n+1)
		} else {
			used[h] = 0
		}
		out[i] = h
	}
	return out
}

func isBlank(row []string) bool {
	return lastNonBlank(row) < 0
}

func lastNonBlank(row []string) int {
	for i := len(row) - 1; i >= 0; i-- {
		if strings.TrimSpace(row[i]) != "" {
			return i
		}
	}
	return -1
}
