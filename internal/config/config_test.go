package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBytesFull(t *testing.T) {
	src := `
listen      = "0.0.0.0:9000"
pjsip_conf  = "/srv/asterisk/pjsip.conf"
max_backups = 5
lock_wait   = "2s"
reload_command = ["docker", "exec", "pbx", "asterisk", "-rx", "pjsip reload"]
log_level   = "debug"
log_json    = true

api_key "ci" {
  hash = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"
}
`
	cfg, err := LoadBytes([]byte(src), "voxic.hcl")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, "/srv/asterisk/pjsip.conf", cfg.PJSIPConf)
	assert.Equal(t, 5, cfg.MaxBackups)
	assert.Equal(t, 2*time.Second, cfg.LockWaitDuration())
	assert.Equal(t, []string{"docker", "exec", "pbx", "asterisk", "-rx", "pjsip reload"}, cfg.ReloadCommand)
	assert.True(t, cfg.LogJSON)
	require.Len(t, cfg.APIKeys, 1)
	assert.Equal(t, "ci", cfg.APIKeys[0].Name)

	// Defaults filled for omitted fields.
	assert.Equal(t, "10s", cfg.ReloadTimeout)
	assert.Equal(t, 90, cfg.AuditRetentionDays)
}

func TestLoadBytesDefaultsOnEmpty(t *testing.T) {
	cfg, err := LoadBytes(nil, "voxic.hcl")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8088", cfg.Listen)
	assert.Equal(t, "/etc/asterisk/pjsip.conf", cfg.PJSIPConf)
	assert.Equal(t, 20, cfg.MaxBackups)
	assert.Empty(t, cfg.APIKeys)
}

func TestLoadFileMissingUsesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)
	assert.Equal(t, Default().Listen, cfg.Listen)
}

func TestConfigDirVariable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voxic.hcl")
	src := `pjsip_conf = "${config_dir}/pjsip.conf"`
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "pjsip.conf"), cfg.PJSIPConf)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"bad lock_wait": `lock_wait = "soon"`,
		"bad log_level": `log_level = "verbose"`,
		"bad api hash":  "api_key \"x\" {\n  hash = \"nothex\"\n}",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadBytes([]byte(src), "voxic.hcl")
			assert.Error(t, err)
		})
	}
}

func TestParseErrorsSurface(t *testing.T) {
	_, err := LoadBytes([]byte(`listen = `), "voxic.hcl")
	assert.Error(t, err)
}
