package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"covcheck/internal/config"
)

// zipMagic opens every OOXML workbook
var zipMagic = []byte("PK\x03\x04")

var (
	// ErrNotWorkbook is returned for files that are not .xlsx/.xlsm workbooks
	ErrNotWorkbook = errors.New("not an Excel workbook")
	// ErrTempWorkbook is returned for Excel lock files such as "~$plan.xlsx"
	ErrTempWorkbook = errors.New("temporary Excel lock file")
)

// FileValidator checks workbook inputs and output directories
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger.With(slog.String("component", "file_validator")),
	}
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	// Verify it's writable by creating a test file
	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist: %w", path, os.ErrNotExist)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateExcelFile checks that path names a readable .xlsx/.xlsm workbook
func (v *FileValidator) ValidateExcelFile(path string) error {
	if err := CheckWorkbookName(path); err != nil {
		v.logger.Warn("Rejected workbook path",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return err
	}
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	defer f.Close()

	return v.ValidateWorkbookContent(filepath.Base(path), f)
}

// ValidateUpload checks an uploaded workbook by its client file name and leading bytes.
// r is left positioned at the start.
func (v *FileValidator) ValidateUpload(name string, r io.ReadSeeker) error {
	if err := CheckWorkbookName(name); err != nil {
		v.logger.Warn("Rejected upload",
			slog.String("file", name),
			slog.String("error", err.Error()))
		return err
	}
	if err := v.ValidateWorkbookContent(name, r); err != nil {
		return err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind %s: %w", name, err)
	}
	return nil
}

// ValidateWorkbookContent checks the zip signature every .xlsx starts with
func (v *FileValidator) ValidateWorkbookContent(name string, r io.Reader) error {
	header := make([]byte, len(zipMagic))
	if _, err := io.ReadFull(r, header); err != nil {
		v.logger.Warn("Workbook too short",
			slog.String("file", name))
		return fmt.Errorf("%s: %w (file is empty or truncated)", name, ErrNotWorkbook)
	}
	if !bytes.Equal(header, zipMagic) {
		v.logger.Warn("Workbook signature mismatch",
			slog.String("file", name))
		return fmt.Errorf("%s: %w (content is not an OOXML package)", name, ErrNotWorkbook)
	}
	return nil
}

// CheckWorkbookName accepts .xlsx and .xlsm names that are not Excel lock files
func CheckWorkbookName(name string) error {
	base := filepath.Base(name)
	if strings.HasPrefix(base, "~$") {
		return fmt.Errorf("%s: %w", base, ErrTempWorkbook)
	}
	if !IsWorkbookName(base) {
		return fmt.Errorf("%s: %w (extension: %q)", base, ErrNotWorkbook, filepath.Ext(base))
	}
	return nil
}

// IsWorkbookName reports whether name has a workbook extension
func IsWorkbookName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case config.ExtXLSX, config.ExtXLSM:
		return true
	}
	return false
}
