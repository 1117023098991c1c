package workbook

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"covcheck/pkg/contracts/domain"
)

// OutputSheet is the sheet name used for written tables
const OutputSheet = "Sheet1"

// ContentType is the MIME type of .xlsx files
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Write serialises t as a single-sheet workbook: a bold, frozen header row
// followed by the data rows. There is no index column and null cells stay blank.
// Numbers, booleans and dates are written with their own cell types.
func Write(w io.Writer, t domain.Table) error {
	f, err := build(t)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteFile writes t to path as an .xlsx workbook
func WriteFile(path string, t domain.Table) error {
	f, err := build(t)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func build(t domain.Table) (*excelize.File, error) {
	f := excelize.NewFile()

	if len(t.Columns) == 0 {
		return f, nil
	}

	header := append([]string(nil), t.Columns...)
	if err := f.SetSheetRow(OutputSheet, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetRowStyle(OutputSheet, 1, 1, bold); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	cw := &cellWriter{f: f}
	for i, row := range t.Rows {
		for j, c := range row {
			if !c.Valid {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				f.Close()
				return nil, err
			}
			if err := cw.write(cell, c); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	if err := f.SetPanes(OutputSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze header: %w", err)
	}

	return f, nil
}

// dateFormat is the number format applied to date cells
const dateFormat = "yyyy-mm-dd hh:mm:ss"

// cellWriter writes typed cells into OutputSheet. The date style is created on first use.
type cellWriter struct {
	f         *excelize.File
	dateStyle int
}

func (w *cellWriter) write(ref string, c domain.Cell) error {
	switch c.Kind {
	case domain.KindNumber:
		if n, err := strconv.ParseInt(c.Value, 10, 64); err == nil {
			return w.f.SetCellInt(OutputSheet, ref, n)
		}
		if n, err := strconv.ParseFloat(c.Value, 64); err == nil {
			return w.f.SetCellFloat(OutputSheet, ref, n, -1, 64)
		}
	case domain.KindBool:
		if b, err := strconv.ParseBool(c.Value); err == nil {
			return w.f.SetCellBool(OutputSheet, ref, b)
		}
	case domain.KindDate:
		ts, err := time.Parse(domain.DateLayout, c.Value)
		if err != nil {
			break
		}
		if w.dateStyle == 0 {
			format := dateFormat
			if w.dateStyle, err = w.f.NewStyle(&excelize.Style{CustomNumFmt: &format}); err != nil {
				return fmt.Errorf("failed to create date style: %w", err)
			}
		}
		if err := w.f.SetCellValue(OutputSheet, ref, ts); err != nil {
			return err
		}
		return w.f.SetCellStyle(OutputSheet, ref, ref, w.dateStyle)
	}
	return w.f.SetCellStr(OutputSheet, ref, c.Value)
}
