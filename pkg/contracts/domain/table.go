package domain

// CellKind records how a value was stored in the source sheet so it can be
// written back with the same type.
type CellKind uint8

const (
	KindText CellKind = iota
	KindNumber
	KindBool
	KindDate
)

// DateLayout is the textual form of KindDate values
const DateLayout = "2006-01-02 15:04:05"

// Cell is a single spreadsheet value. An empty or absent cell is null (Valid == false).
// Value holds the unformatted value: full-precision digits for numbers,
// TRUE/FALSE for booleans and DateLayout for dates.
type Cell struct {
	Value string
	Valid bool
	Kind  CellKind
}

// NewCell returns a non-null text cell
func NewCell(v string) Cell {
	return Cell{Value: v, Valid: true}
}

// NewTypedCell returns a non-null cell of the given kind
func NewTypedCell(v string, k CellKind) Cell {
	return Cell{Value: v, Valid: true, Kind: k}
}

// NullCell returns a null cell
func NullCell() Cell {
	return Cell{}
}

// Ptr returns the cell value or nil when the cell is null
func (c Cell) Ptr() *string {
	if !c.Valid {
		return nil
	}
	v := c.Value
	return &v
}

// String returns the value, or the empty string for a null cell
func (c Cell) String() string {
	return c.Value
}

// Table is a named, rectangular set of rows under a header.
// Every row has exactly len(Columns) cells.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]Cell
}

// ColumnIndex returns the position of the named column, or -1
func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the table has the named column
func (t Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Len returns the number of data rows
func (t Table) Len() int {
	return len(t.Rows)
}

// Head returns a copy of the table limited to the first n rows
func (t Table) Head(n int) Table {
	if n < 0 || n > len(t.Rows) {
		n = len(t.Rows)
	}
	return Table{
		Name:    t.Name,
		Columns: append([]string(nil), t.Columns...),
		Rows:    append([][]Cell(nil), t.Rows[:n]...),
	}
}

// Workbook is an ordered collection of sheets
type Workbook struct {
	Name   string
	Sheets []Table
}

// Sheet looks up a sheet by exact name
func (w Workbook) Sheet(name string) (Table, bool) {
	for _, s := range w.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return Table{}, false
}

// SheetNames returns sheet names in workbook order
func (w Workbook) SheetNames() []string {
	names := make([]string, len(w.Sheets))
	for i, s := range w.Sheets {
		names[i] = s.Name
	}
	return names
}
