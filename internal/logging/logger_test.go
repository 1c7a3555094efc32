package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_WritesToLogDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	log, err := NewLogger(dir, zapcore.InfoLevel)
	require.NoError(t, err)

	log.Info("logger_test_message")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(filepath.Join(dir, "sitewatch.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "logger_test_message")
}
