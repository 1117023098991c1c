// Package workbook reads and writes .xlsx workbooks as domain tables.
//
// Reading keeps sheet order, takes the first non-blank row of each sheet as the
// header and maps empty cells to null. Writing produces a single sheet named
// Sheet1 with a header row and no index column.
package workbook
