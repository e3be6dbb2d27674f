package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, int32(20), cfg.Database.MaxConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Idempotency.Enabled)
	assert.Equal(t, 1024, cfg.Audit.CompressThreshold)
	assert.Error(t, cfg.RequireDatabase())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PHARMADESK_HTTP_PORT", "9090")
	t.Setenv("PHARMADESK_DATABASE_URL", "postgres://localhost/pharmadesk")
	t.Setenv("PHARMADESK_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "postgres://localhost/pharmadesk", cfg.Database.URL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.NoError(t, cfg.RequireDatabase())
}

func TestLoad_FileWithIDOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pharmadesk.yaml")
	yaml := `
http:
  port: 8181
database:
  url: postgres://db/pharmadesk
ids:
  medicine:
    prefix: MD
    width: 6
  order:
    width: 4
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.HTTP.Port)

	patterns, err := cfg.Patterns()
	require.NoError(t, err)
	assert.Equal(t, "MD", patterns["medicine"].Prefix)
	assert.Equal(t, 6, patterns["medicine"].Width)
	assert.Equal(t, "ORD", patterns["order"].Prefix)
	assert.Equal(t, 4, patterns["order"].Width)
	assert.Equal(t, "PAT", patterns["patient"].Prefix)
}

func TestLoad_RejectsUnknownSequence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pharmadesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ids:\n  invoice:\n    prefix: INV\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
