package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "mgurdy.conf")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	return path
}

func TestLoadAppliesFileOverFileDefaults(t *testing.T) {
	path := writeConfig(t, `
[core]
data_dir = /srv/mgurdy
sound_dir = /srv/mgurdy/sf

[server]
http_port = 8080

[logging]
log_method = syslog
log_level = warn
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/mgurdy", cfg.Core.DataDir)
	assert.Equal(t, "/srv/mgurdy/sf", cfg.Core.SoundDir)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, "syslog", cfg.Logging.Method)
	assert.Equal(t, "warn", cfg.Logging.Level)

	// Untouched sections keep their defaults.
	assert.Equal(t, "/etc/mgurdy/input.conf", cfg.Core.InputConfig)
	assert.Equal(t, "/usr/share/mgurdy/webroot", cfg.Server.WebrootDir)
}

func TestLoadMissingFileReturnsConfigError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.conf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config:")
}

func TestApplyFlagsSetsDebugLogLevel(t *testing.T) {
	cfg := Defaults()

	fs := pflag.NewFlagSet("mgurdyd", pflag.ContinueOnError)
	flags := BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--debug", "--dump-midi"}))

	cfg = ApplyFlags(cfg, flags)

	assert.True(t, cfg.Debug)
	assert.True(t, cfg.DumpMIDI)
	assert.Equal(t, "debug", cfg.Logging.Level)
}
