package workbook

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"covcheck/pkg/contracts/domain"
)

// builtInDateFormats are the number format IDs Excel reserves for dates and times
var builtInDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	45: true, 46: true, 47: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

// isoDateLayouts cover values stored in cells of type "d"
var isoDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// cellTyper classifies raw cell values by their stored type and number format.
// Date-ness is cached per style index.
type cellTyper struct {
	f          *excelize.File
	date1904   bool
	dateStyles map[int]bool
}

func newCellTyper(f *excelize.File) *cellTyper {
	ct := &cellTyper{f: f, dateStyles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		ct.date1904 = *props.Date1904
	}
	return ct
}

// cell converts the raw value v at zero-based row r, column c of sheet.
// Numbers keep every stored digit; a number under a date format becomes a
// DateLayout timestamp.
func (ct *cellTyper) cell(sheet string, r, c int, v string) (domain.Cell, error) {
	ref, err := excelize.CoordinatesToCellName(c+1, r+1)
	if err != nil {
		return domain.Cell{}, err
	}
	typ, err := ct.f.GetCellType(sheet, ref)
	if err != nil {
		return domain.Cell{}, fmt.Errorf("failed to read type of %s: %w", ref, err)
	}

	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return domain.NewCell(v), nil
		}
		isDate, err := ct.isDate(sheet, ref)
		if err != nil {
			return domain.Cell{}, err
		}
		if isDate {
			if ts, err := excelize.ExcelDateToTime(n, ct.date1904); err == nil {
				return domain.NewTypedCell(ts.Format(domain.DateLayout), domain.KindDate), nil
			}
		}
		return domain.NewTypedCell(v, domain.KindNumber), nil
	case excelize.CellTypeBool:
		switch v {
		case "1":
			return domain.NewTypedCell("TRUE", domain.KindBool), nil
		case "0":
			return domain.NewTypedCell("FALSE", domain.KindBool), nil
		}
	case excelize.CellTypeDate:
		for _, layout := range isoDateLayouts {
			if ts, err := time.Parse(layout, v); err == nil {
				return domain.NewTypedCell(ts.Format(domain.DateLayout), domain.KindDate), nil
			}
		}
	}
	return domain.NewCell(v), nil
}

func (ct *cellTyper) isDate(sheet, ref string) (bool, error) {
	idx, err := ct.f.GetCellStyle(sheet, ref)
	if err != nil {
		return false, fmt.Errorf("failed to read style of %s: %w", ref, err)
	}
	if idx == 0 {
		return false, nil
	}
	if d, ok := ct.dateStyles[idx]; ok {
		return d, nil
	}

	style, err := ct.f.GetStyle(idx)
	if err != nil {
		return false, fmt.Errorf("failed to read style %d: %w", idx, err)
	}
	d := builtInDateFormats[style.NumFmt]
	if style.CustomNumFmt != nil {
		d = isDateFormat(*style.CustomNumFmt)
	}
	ct.dateStyles[idx] = d
	return d, nil
}

// isDateFormat reports whether a custom number format code renders a date or
// time. Quoted literals, escaped characters and bracketed sections such as
// colours and locales are ignored.
func isDateFormat(code string) bool {
	// only the positive section decides
	if i := strings.IndexByte(code, ';'); i >= 0 {
		code = code[:i]
	}
	var (
		quoted  bool
		bracket bool
	)
	for i := 0; i < len(code); i++ {
		ch := code[i]
		switch {
		case quoted:
			quoted = ch != '"'
		case bracket:
			if ch == ']' {
				bracket = false
			}
		case ch == '"':
			quoted = true
		case ch == '[':
			// elapsed time: [h], [mm], [ss]
			if i+1 < len(code) && strings.ContainsRune("hHmMsS", rune(code[i+1])) {
				return true
			}
			bracket = true
		case ch == '\\' || ch == '_' || ch == '*':
			i++
		case strings.ContainsRune("yYdDhHsS", rune(ch)):
			return true
		}
	}
	return false
}
