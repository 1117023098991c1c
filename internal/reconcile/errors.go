package reconcile

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is checks
var (
	ErrMissingSheet  = errors.New("missing sheet")
	ErrMissingColumn = errors.New("missing column")
)

// MissingSheetError is returned when the bulk workbook has no sheet whose name
// contains the required marker.
type MissingSheetError struct {
	Marker string   `json:"marker"`
	Sheets []string `json:"sheets"`
}

// Error implements the error interface
func (e *MissingSheetError) Error() string {
	return fmt.Sprintf("no sheet name contains %q (sheets: %s)", e.Marker, strings.Join(e.Sheets, ", "))
}

// Is matches ErrMissingSheet
func (e *MissingSheetError) Is(target error) bool {
	return target == ErrMissingSheet
}

// MissingColumnError is returned when a table lacks a column the engine keys on
type MissingColumnError struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

// Error implements the error interface
func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("sheet %q has no column %q", e.Table, e.Column)
}

// Is matches ErrMissingColumn
func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingColumn
}
