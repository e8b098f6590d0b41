// ABOUTME: Tests for configuration loading, env expansion and validation
// ABOUTME: Covers backend selection rules and required-field failures

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "courier.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validConfig = `
server:
  addr: ":13978"
bot:
  app_id: app-1
  app_password: hunter2
storage:
  backend: redis
  redis:
    addr: localhost:6379
    db: 0
    key_prefix: "bot_conv_ref:"
    timeout: 5s
admin:
  token: sekrit
broadcast:
  default_message: proactive hello
  workers: 4
logging:
  level: debug
  format: json
`

func TestLoad_ValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, ":13978", cfg.Server.Addr)
	assert.Equal(t, "app-1", cfg.Bot.AppID)
	assert.Equal(t, BackendRedis, cfg.Storage.Backend)
	assert.Equal(t, "localhost:6379", cfg.Storage.Redis.Addr)
	assert.Equal(t, 5*time.Second, cfg.Storage.Redis.Timeout)
	assert.Equal(t, "sekrit", cfg.Admin.Token)
	assert.Equal(t, 4, cfg.Broadcast.Workers)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("COURIER_TEST_TOKEN", "from-env")

	cfg, err := Load(writeConfig(t, `
server:
  addr: ":13978"
storage:
  backend: memory
admin:
  token: ${COURIER_TEST_TOKEN}
`))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Admin.Token)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidTimeout(t *testing.T) {
	_, err := Load(writeConfig(t, `
server:
  addr: ":13978"
storage:
  backend: redis
  redis:
    addr: localhost:6379
    timeout: not-a-duration
admin:
  token: sekrit
`))
	assert.ErrorContains(t, err, "timeout")
}

func TestValidate_RequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"missing token", func(c *Config) { c.Admin.Token = "" }, "admin.token"},
		{"missing backend", func(c *Config) { c.Storage.Backend = "" }, "storage.backend"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "etcd" }, "unknown storage backend"},
		{"redis without addr", func(c *Config) { c.Storage.Redis.Addr = "" }, "storage.redis.addr"},
		{"file without path", func(c *Config) { c.Storage.Backend = BackendFile }, "storage.file.path"},
		{"sqlite without path", func(c *Config) { c.Storage.Backend = BackendSQLite }, "storage.sqlite.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Server:  ServerConfig{Addr: ":13978"},
				Admin:   AdminConfig{Token: "sekrit"},
				Storage: StorageConfig{Backend: BackendRedis, Redis: RedisConfig{Addr: "localhost:6379"}},
			}
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestValidate_MemoryBackendNeedsNothing(t *testing.T) {
	cfg := &Config{
		Server:  ServerConfig{Addr: ":13978"},
		Admin:   AdminConfig{Token: "sekrit"},
		Storage: StorageConfig{Backend: BackendMemory},
	}
	assert.NoError(t, cfg.Validate())
}
