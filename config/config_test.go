package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
DataDir: /var/lib/ledger
Workers: 4
LogLevel: debug
Execute: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/ledger", cfg.DataDir)
	assert.Equal(t, 4, cfg.Workers)
	assert.False(t, cfg.Execute)
	assert.Equal(t, ":memory:", cfg.StorePath)
	assert.Equal(t, ":8855", cfg.Listen)

	lvl, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, lvl)
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, "Workers: 0\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "LogLevel: loud\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "Workers: [\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}
