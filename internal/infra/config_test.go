package infra

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "logger:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, 8501, cfg.Server.Port)
	assert.Equal(t, SourceFile, cfg.Source.Kind)
	assert.Equal(t, "data/cargarap.xlsx", cfg.Source.Path)
	assert.Equal(t, 20, cfg.Charts.Bins)
	assert.Equal(t, "access_records", cfg.Database.RecordTable)
	assert.Equal(t, 10*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, ":8501", cfg.Server.Addr())
}

func TestLoadConfig_FileValues(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  read_timeout: 2s
source:
  kind: url
  url: https://github.com/nmonterroza/webN/blob/main/cargarap.xlsx
  retry_attempts: 5
auth:
  enabled: true
  users:
    - username: admin
      password_hash: "$2a$10$abc"
      scopes: [reload]
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, SourceURL, cfg.Source.Kind)
	assert.Equal(t, uint(5), cfg.Source.RetryAttempts)
	require.Len(t, cfg.Auth.Users, 1)
	assert.Equal(t, "admin", cfg.Auth.Users[0].Username)
	assert.Equal(t, []string{"reload"}, cfg.Auth.Users[0].Scopes)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("SOURCE_PATH", "/srv/data/accesos.xlsx")
	t.Setenv("SERVER_PORT", "8088")

	cfg, err := LoadConfig(writeConfig(t, "source:\n  kind: file\n"))
	require.NoError(t, err)

	assert.Equal(t, "/srv/data/accesos.xlsx", cfg.Source.Path)
	assert.Equal(t, 8088, cfg.Server.Port)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "source:\n  kind: ftp\n"))
	assert.ErrorContains(t, err, "invalid config")

	_, err = LoadConfig(writeConfig(t, "source:\n  kind: postgres\n"))
	assert.ErrorContains(t, err, "database.url is required")

	_, err = LoadConfig(writeConfig(t, "source:\n  kind: url\n"))
	assert.Error(t, err)
}

func TestLoadConfig_KeyFromEnv(t *testing.T) {
	t.Setenv("AUTH_PUBLIC_KEY_DATA", "-----BEGIN PUBLIC KEY-----")

	cfg, err := LoadConfig(writeConfig(t, "auth:\n  enabled: false\n"))
	require.NoError(t, err)

	assert.Equal(t, []byte("-----BEGIN PUBLIC KEY-----"), cfg.Auth.PublicKey)
	assert.Nil(t, cfg.Auth.PrivateKey)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LoggerConfig{Level: "warn", Format: "console"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	_, err = NewLogger(LoggerConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)
}

func TestViewCacheKey(t *testing.T) {
	assert.Equal(t, "cintia:view:v1:abc", ViewCacheKey("v1", "abc"))
	assert.Equal(t, "cintia:lock:warmup:v1", GetWarmupLockKey("v1"))
}

func TestTracingMiddleware(t *testing.T) {
	var seen string
	h := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceID(r.Context())
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceHeader, "abc-123")
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(TraceHeader))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get(TraceHeader))

	assert.Equal(t, "00000000-0000-0000-0000-000000000000", TraceID(context.Background()))
}
