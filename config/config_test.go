package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_DRIVER", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Auth.EmailTokenTTL)
	assert.Equal(t, "http://localhost:3000", cfg.FrontendURL())
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
env: production
port: "9000"
database:
  driver: sqlite
  sqlite_path: /tmp/ql.db
auth:
  jwt_secret: from-file
  access_ttl: 2h
email:
  production_url: https://quicklearner.example
redis:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100")
	t.Setenv("DB_DRIVER", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Port, "env overrides file")
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/ql.db", cfg.Database.SQLitePath)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.AccessTTL)
	assert.False(t, cfg.Redis.Enabled)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "https://quicklearner.example", cfg.FrontendURL())
	assert.Nil(t, InitRedis(cfg))
}

func TestValidateRejectsDefaultSecretInProduction(t *testing.T) {
	cfg := defaults()
	cfg.Env = "production"
	assert.Error(t, cfg.Validate())

	cfg.Auth.JWTSecret = "real-secret"
	assert.NoError(t, cfg.Validate())

	cfg.Database.Driver = "mongodb"
	assert.Error(t, cfg.Validate())
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, getEnvList("CORS_ORIGINS", nil))
}

func TestUTCNow(t *testing.T) {
	assert.Equal(t, time.UTC, UTCNow().Location())
}
