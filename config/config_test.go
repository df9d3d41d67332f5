package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps config files outside the test from being picked up.
func isolate(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(old) })
}

func TestDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "human", cfg.LogFormat)
	assert.Equal(t, "sfs", cfg.Volume.Name)
	assert.Equal(t, uint64(1024), cfg.Volume.Blocks)
	assert.False(t, cfg.Debug)
}

func TestFileAndEnv(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sfs.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
image: /tmp/disk.img
debug_level: 3
volume:
  name: data
  blocks: 4096
`), 0644))
	t.Setenv("SFS_VOLUME_NAME", "fromenv")
	t.Setenv("SFS_DEBUG", "true")

	cfg, err := Load(New(), file)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/disk.img", cfg.Image)
	assert.Equal(t, uint64(3), cfg.DebugLevel)
	assert.Equal(t, uint64(4096), cfg.Volume.Blocks)
	assert.Equal(t, "fromenv", cfg.Volume.Name, "environment overrides the file")
	assert.True(t, cfg.Debug)
}

func TestMissingExplicitFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestBadLogFormat(t *testing.T) {
	isolate(t)
	t.Setenv("SFS_LOG_FORMAT", "xml")
	_, err := Load(New(), "")
	assert.ErrorContains(t, err, "log_format")
}
