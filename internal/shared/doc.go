// Package shared holds helpers used across covcheck packages that belong to
// no single layer.
//
// The testutil subpackage provides:
//
//   - BufferedSlogHandler and NewTestLogger for asserting on structured logs
//   - SheetFixture builders that render targets and bulk workbooks with excelize
package shared
