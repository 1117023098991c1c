package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"covcheck/pkg/contracts/domain"
)

// utf8BOM prefixes every CSV output
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes tables as BOM-prefixed CSV files under a base directory
type CSVWriter struct {
	baseDir string
}

// NewCSVWriter creates a CSV writer that resolves relative names against baseDir
func NewCSVWriter(baseDir string) *CSVWriter {
	return &CSVWriter{baseDir: baseDir}
}

// WriteTable writes the header and rows of t to name, replacing any existing file.
// Null cells are written as empty fields.
func (w *CSVWriter) WriteTable(name string, t domain.Table) error {
	path := w.resolvePath(name)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}

	if err := EncodeTable(file, t); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// EncodeTable streams t as CSV to out
func EncodeTable(out io.Writer, t domain.Table) error {
	if _, err := out.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(out)
	if err := writer.Write(t.Columns); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	record := make([]string, len(t.Columns))
	for i, row := range t.Rows {
		for j := range record {
			record[j] = ""
			if j < len(row) {
				record[j] = row[j].Value
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func (w *CSVWriter) resolvePath(name string) string {
	if filepath.IsAbs(name) || w.baseDir == "" {
		return name
	}
	return filepath.Join(w.baseDir, name)
}
