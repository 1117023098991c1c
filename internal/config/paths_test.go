package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPaths(t *testing.T) {
	paths, err := GetPaths()
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(paths.ExecutableDir))
	assert.Equal(t, filepath.Join(paths.ExecutableDir, "data"), paths.DataDir)
	assert.Equal(t, filepath.Join(paths.ExecutableDir, "data", "reports"), paths.ReportsDir)
	assert.Equal(t, filepath.Join(paths.ExecutableDir, "logs"), paths.LogsDir)
}

func TestPathsConfig_ResolveAbsolute(t *testing.T) {
	dir := t.TempDir()
	paths, err := PathsConfig{
		DataDir:    dir,
		ReportsDir: filepath.Join(dir, "out", ".."),
		LogsDir:    "logs",
	}.Resolve()
	require.NoError(t, err)

	assert.Equal(t, dir, paths.DataDir)
	assert.Equal(t, dir, paths.ReportsDir)
	assert.Equal(t, filepath.Join(paths.ExecutableDir, "logs"), paths.LogsDir)
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	paths := &Paths{
		ExecutableDir: root,
		DataDir:       filepath.Join(root, "data"),
		ReportsDir:    filepath.Join(root, "data", "reports"),
		LogsDir:       filepath.Join(root, "logs"),
	}

	require.NoError(t, paths.EnsureDirectories())
	for _, dir := range []string{paths.DataDir, paths.ReportsDir, paths.LogsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	// idempotent
	assert.NoError(t, paths.EnsureDirectories())
}

func TestPathHelperMethods(t *testing.T) {
	paths := &Paths{ReportsDir: "/srv/reports", LogsDir: "/srv/logs"}

	assert.Equal(t, filepath.Join("/srv/reports", "a.xlsx"), paths.GetReportPath("a.xlsx"))
	assert.Equal(t, filepath.Join("/srv/logs", "covcheck.log"), paths.GetLogPath("covcheck.log"))
}

func TestFileExists(t *testing.T) {
	file := filepath.Join(t.TempDir(), "x.txt")
	assert.False(t, FileExists(file))

	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	assert.True(t, FileExists(file))
}
