// Package exporter writes reconciliation results to disk.
//
// CoverageExporter produces the two output files of a run, named after the run
// timestamp:
//
//	filtered_bulk_with_source_20250102_150405.xlsx
//	missing_combinations_20250102_150405.xlsx
//
// Output is .xlsx by default. CSV output is written by CSVWriter with a UTF-8 BOM
// so spreadsheet tools pick up the encoding.
//
// Example usage:
//
//	exp := exporter.NewCoverageExporter("data/reports", logger)
//	names, err := exp.Export(result, time.Now(), exporter.FormatXLSX)
package exporter
