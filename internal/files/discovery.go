package files

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"covcheck/internal/exporter"
)

// FileInfo represents one coverage output file in the reports directory
type FileInfo struct {
	Name    string    `json:"name"`
	Path    string    `json:"-"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified"`

	output exporter.OutputName
}

// Run pairs the matched and missing files written by one coverage run.
// Either side may be nil when a file was removed by hand.
type Run struct {
	Timestamp string          `json:"timestamp"`
	Format    exporter.Format `json:"format"`
	Matched   *FileInfo       `json:"matched,omitempty"`
	Missing   *FileInfo       `json:"missing,omitempty"`
}

// Discovery finds coverage outputs in a reports directory
type Discovery struct {
	dir string
}

// NewDiscovery creates a new discovery instance rooted at dir
func NewDiscovery(dir string) *Discovery {
	return &Discovery{dir: dir}
}

// FindOutputs lists the coverage output files, oldest run first.
// A missing directory yields no files.
func (d *Discovery) FindOutputs() ([]FileInfo, error) {
	entries, err := os.ReadDir(d.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", d.dir, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		out, ok := exporter.ParseOutputName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, FileInfo{
			Name:    entry.Name(),
			Path:    filepath.Join(d.dir, entry.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			output:  out,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].output.Time.Equal(files[j].output.Time) {
			return files[i].output.Time.Before(files[j].output.Time)
		}
		return files[i].Name < files[j].Name
	})

	return files, nil
}

// FindRuns groups the outputs by run, newest first
func (d *Discovery) FindRuns() ([]Run, error) {
	files, err := d.FindOutputs()
	if err != nil {
		return nil, err
	}

	type runKey struct {
		stamp  string
		format exporter.Format
	}
	index := make(map[runKey]int)
	var runs []Run

	for i := range files {
		f := &files[i]
		key := runKey{f.output.Time.Format(exporter.TimestampLayout), f.output.Format}
		pos, ok := index[key]
		if !ok {
			pos = len(runs)
			index[key] = pos
			runs = append(runs, Run{Timestamp: key.stamp, Format: key.format})
		}
		if f.output.Prefix == exporter.MatchedPrefix {
			runs[pos].Matched = f
		} else {
			runs[pos].Missing = f
		}
	}

	// files were oldest first
	for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
		runs[i], runs[j] = runs[j], runs[i]
	}
	return runs, nil
}

// GetLatestFile returns the most recently modified file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if file.ModTime.After(latest.ModTime) {
			latest = file
		}
	}

	return latest, true
}

// FilterModifiedBefore keeps the files last modified before cutoff
func FilterModifiedBefore(files []FileInfo, cutoff time.Time) []FileInfo {
	var filtered []FileInfo
	for _, file := range files {
		if file.ModTime.Before(cutoff) {
			filtered = append(filtered, file)
		}
	}
	return filtered
}
