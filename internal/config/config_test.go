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
	path := filepath.Join(t.TempDir(), "quire.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
log_level: debug
page:
  size: LETTER
server:
  shutdown_timeout: 10s
store:
  kind: redis
  ttl: 1h
  redis:
    addr: localhost:6379
    db: 2
`))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "LETTER", cfg.Page.Size)
	assert.Equal(t, "portrait", cfg.Page.Orientation, "unset keys keep defaults")
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, time.Hour, cfg.Store.TTL)
	assert.Equal(t, 2, cfg.Store.Redis.DB)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	for name, content := range map[string]string{
		"unknown store":   "store:\n  kind: ftp\n",
		"redis no addr":   "store:\n  kind: redis\n",
		"s3 no bucket":    "store:\n  kind: s3\n",
		"bad orientation": "page:\n  orientation: diagonal\n",
		"bad yaml":        "page: [\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			require.Error(t, err)
		})
	}
}
