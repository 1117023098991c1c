package files

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"
)

// Manager lists and prunes the coverage outputs of a reports directory
type Manager struct {
	discovery *Discovery
	logger    *slog.Logger
}

// NewManager creates a new file manager for dir
func NewManager(dir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		discovery: NewDiscovery(dir),
		logger:    logger.With(slog.String("component", "report_files")),
	}
}

// Runs returns the runs still on disk, newest first
func (m *Manager) Runs() ([]Run, error) {
	return m.discovery.FindRuns()
}

// Prune removes outputs last modified more than maxAge before now.
// maxAge <= 0 keeps everything. Files that vanish concurrently are ignored.
func (m *Manager) Prune(maxAge time.Duration, now time.Time) ([]string, error) {
	if maxAge <= 0 {
		return nil, nil
	}

	outputs, err := m.discovery.FindOutputs()
	if err != nil {
		return nil, err
	}

	var (
		removed []string
		errs    []error
	)
	for _, f := range FilterModifiedBefore(outputs, now.Add(-maxAge)) {
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", f.Name, err))
			continue
		}
		removed = append(removed, f.Name)
	}

	if len(removed) > 0 {
		m.logger.Info("Pruned expired coverage outputs",
			slog.Int("count", len(removed)),
			slog.Duration("max_age", maxAge))
	}
	return removed, errors.Join(errs...)
}
