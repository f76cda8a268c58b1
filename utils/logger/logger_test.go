package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/mogaika/scenedoc/config"
)

func TestConsoleLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(config.LogConfig{Level: "warn"}, zapcore.AddSync(&buf))

	l.Info("hidden")
	l.Warn("shown")
	_ = l.Sync()

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenedoc.log")
	l := New(config.LogConfig{Level: "debug", File: path, MaxSizeMB: 1}, nil)

	l.Debug("to file")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to file"`)
}

func TestSetNil(t *testing.T) {
	Set(nil)
	assert.NotNil(t, L())
	S().Infof("nop %d", 1)
}
