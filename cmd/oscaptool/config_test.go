package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := loadConfig()
	assert.Equal(t, filepath.Join(home, ".oscaptool", "results"), cfg.ResultsDir)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 4, cfg.PoolSize)
	assert.Empty(t, cfg.WorkflowsPath)
}

func TestLoadConfig_SettingsFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".oscaptool")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"),
		[]byte(`{"results_dir": "/srv/scans", "log_level": "debug", "writable_paths": ["/srv/scans"]}`), 0o600))

	cfg := loadConfig()
	assert.Equal(t, "/srv/scans", cfg.ResultsDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"/srv/scans"}, cfg.WritablePaths)
	assert.Equal(t, 4, cfg.PoolSize)
}

func TestLoadConfig_EnvOverridesSettings(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".oscaptool")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"),
		[]byte(`{"results_dir": "/srv/scans"}`), 0o600))

	t.Setenv("OSCAPTOOL_RESULTS_DIR", "/tmp/scans")
	t.Setenv("OSCAPTOOL_WORKFLOWS_PATH", "/etc/oscaptool/workflows.json")
	t.Setenv("OSCAPTOOL_READ_ONLY_PATHS", "/usr/share/xml"+string(os.PathListSeparator)+"/etc")
	t.Setenv("OSCAPTOOL_POOL_SIZE", "8")

	cfg := loadConfig()
	assert.Equal(t, "/tmp/scans", cfg.ResultsDir)
	assert.Equal(t, "/etc/oscaptool/workflows.json", cfg.WorkflowsPath)
	assert.Equal(t, []string{"/usr/share/xml", "/etc"}, cfg.ReadOnlyPaths)
	assert.Equal(t, 8, cfg.PoolSize)
}

func TestLoadConfig_MalformedSettingsIgnored(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".oscaptool")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"), []byte(`{not json`), 0o600))

	cfg := loadConfig()
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestConfigLimits(t *testing.T) {
	cfg := Config{ReadOnlyPaths: []string{"/a"}, WritablePaths: []string{"/b"}}
	l := cfg.limits()
	assert.Equal(t, []string{"/a"}, l.ReadOnlyPaths)
	assert.Equal(t, []string{"/b"}, l.WritablePaths)
}
