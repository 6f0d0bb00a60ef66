package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "session_token", cfg.Auth.CookieName)
	assert.Equal(t, 100, cfg.Leaderboard.DefaultLimit)
	assert.Equal(t, 1000, cfg.Leaderboard.MaxLimit)
	assert.False(t, cfg.Kafka.ConsumerEnabled)
	assert.Equal(t, 10*time.Minute, cfg.Maintenance.Interval)
	assert.False(t, cfg.Maintenance.RecalculatePoints)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("DEMONLIST_DB_PASSWORD", "s3cret")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
  read_timeout: 2s
storage:
  driver: memory
postgres:
  password: ${DEMONLIST_DB_PASSWORD}
  database: demonlist
log:
  level: debug
leaderboard:
  default_limit: 25
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, "s3cret", cfg.Postgres.Password)
	assert.Equal(t, 25, cfg.Leaderboard.DefaultLimit)
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
	assert.Equal(t, "postgres://:s3cret@localhost:5432/demonlist?sslmode=disable", cfg.Postgres.ConnectionString())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParse_RejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"unknown driver": "storage:\n  driver: sqlite\n",
		"bcrypt cost":    "auth:\n  bcrypt_cost: 99\n",
		"limits":         "leaderboard:\n  default_limit: 50\n  max_limit: 10\n",
		"bad yaml":       "server: [",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(content))
			assert.Error(t, err)
		})
	}
}

func TestLogConfig_SlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, (&LogConfig{Level: ""}).SlogLevel())
	assert.Equal(t, slog.LevelWarn, (&LogConfig{Level: "WARN"}).SlogLevel())
	assert.Equal(t, slog.LevelError, (&LogConfig{Level: "error"}).SlogLevel())
}
