package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 23234, cfg.SSHPort)
	assert.Equal(t, zapcore.InfoLevel, cfg.LogLevel)
}

func TestLoad_EnvThenFlags(t *testing.T) {
	t.Setenv("SITEWATCH_DB_DRIVER", "postgres")
	t.Setenv("SITEWATCH_DB", "postgres://u:p@localhost/sw?sslmode=disable")
	t.Setenv("SITEWATCH_SSH_PORT", "2222")
	t.Setenv("SITEWATCH_LOG_LEVEL", "debug")
	t.Setenv("SITEWATCH_ALERT_TYPE", "slack")
	t.Setenv("SITEWATCH_ALERT_URL", "https://hooks.slack.test/x")

	cfg, err := Load("", []string{"-port", "3333", "-http", "0"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 3333, cfg.SSHPort)
	assert.Equal(t, 0, cfg.HTTPPort)
	assert.Equal(t, zapcore.DebugLevel, cfg.LogLevel)
	assert.Equal(t, "slack", cfg.AlertType)
	assert.Equal(t, "https://hooks.slack.test/x", cfg.AlertSettings["url"])
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SITEWATCH_STATUS_TITLE=Ops Board\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("SITEWATCH_STATUS_TITLE") })

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "Ops Board", cfg.StatusTitle)

	_, err = Load(filepath.Join(t.TempDir(), "missing.env"), nil)
	assert.NoError(t, err)
}

func TestLoad_BadFlag(t *testing.T) {
	_, err := Load("", []string{"-nope"})
	assert.Error(t, err)
}
