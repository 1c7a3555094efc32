package config

import (
	"errors"
	"flag"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	DBDriver    string // "sqlite" or "postgres"
	DB          string // SQLite path or Postgres DSN
	SSHPort     int
	HostKeyPath string
	KeysPath    string // authorized_keys for SSH sessions
	HTTPPort    int    // 0 disables the status server
	StatusTitle string
	LogDir      string
	LogLevel    zapcore.Level

	AlertType     string // discord, slack, webhook, email; empty disables alerts
	AlertSettings map[string]string
}

// Load reads an optional .env file, then environment variables, then flags
// from args. Flags win over the environment.
func Load(envFile string, args []string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}

	cfg := Config{
		DBDriver:    getEnv("SITEWATCH_DB_DRIVER", "sqlite"),
		DB:          getEnv("SITEWATCH_DB", "sitewatch.db"),
		SSHPort:     getEnvInt("SITEWATCH_SSH_PORT", 23234),
		HostKeyPath: getEnv("SITEWATCH_HOST_KEY", ".ssh/id_ed25519"),
		KeysPath:    getEnv("SITEWATCH_KEYS", "authorized_keys"),
		HTTPPort:    getEnvInt("SITEWATCH_HTTP_PORT", 8080),
		StatusTitle: getEnv("SITEWATCH_STATUS_TITLE", "Status"),
		LogDir:      getEnv("SITEWATCH_LOG_DIR", "logs"),
		LogLevel:    zapcore.InfoLevel,
		AlertType:   getEnv("SITEWATCH_ALERT_TYPE", ""),
		AlertSettings: map[string]string{
			"url":  getEnv("SITEWATCH_ALERT_URL", ""),
			"host": getEnv("SITEWATCH_SMTP_HOST", ""),
			"port": getEnv("SITEWATCH_SMTP_PORT", ""),
			"user": getEnv("SITEWATCH_SMTP_USER", ""),
			"pass": getEnv("SITEWATCH_SMTP_PASS", ""),
			"to":   getEnv("SITEWATCH_ALERT_TO", ""),
			"from": getEnv("SITEWATCH_ALERT_FROM", ""),
		},
	}
	if v, ok := os.LookupEnv("SITEWATCH_LOG_LEVEL"); ok {
		if err := cfg.LogLevel.Set(v); err != nil {
			return Config{}, err
		}
	}

	fl := flag.NewFlagSet("sitewatch", flag.ContinueOnError)
	fl.IntVar(&cfg.SSHPort, "port", cfg.SSHPort, "SSH Port to listen on")
	fl.IntVar(&cfg.HTTPPort, "http", cfg.HTTPPort, "HTTP status port (0 disables)")
	fl.StringVar(&cfg.DBDriver, "driver", cfg.DBDriver, "Database driver: sqlite or postgres")
	fl.StringVar(&cfg.DB, "db", cfg.DB, "Path to SQLite database or Postgres DSN")
	fl.StringVar(&cfg.KeysPath, "keys", cfg.KeysPath, "Path to authorized_keys file")
	fl.StringVar(&cfg.LogDir, "logs", cfg.LogDir, "Directory for log files")
	if err := fl.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return fallback
}
