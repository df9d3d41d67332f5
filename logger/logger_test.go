package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNopByDefault(t *testing.T) {
	assert.NotNil(t, Logger)
	assert.NotPanics(t, func() {
		LogInfo("ignored", map[string]interface{}{"k": 1})
	})
}

func TestInitWritesFile(t *testing.T) {
	old := Logger
	defer func() { Logger = old }()

	file := filepath.Join(t.TempDir(), "logs", "sfs.log")
	require.NoError(t, Init(Config{Debug: true, Format: "json", File: file}))
	LogDebug("hello", map[string]interface{}{"ino": 7})
	// stderr may be a pipe that cannot be fsynced; the file sink is written through.
	_ = Sync()

	b, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"hello"`)
	assert.Contains(t, string(b), `"ino":7`)
}

func TestFields(t *testing.T) {
	old := Logger
	defer func() { Logger = old }()

	core, logs := observer.New(zap.DebugLevel)
	Logger = zap.New(core).Sugar()

	LogError("failed", assert.AnError, map[string]interface{}{"op": "touch"})
	WithField("ino", 3).Info("mounted")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "failed", entries[0].Message)
	assert.Equal(t, "touch", entries[0].ContextMap()["op"])
	assert.Equal(t, assert.AnError.Error(), entries[0].ContextMap()["error"])
	assert.Equal(t, int64(3), entries[1].ContextMap()["ino"])
}
