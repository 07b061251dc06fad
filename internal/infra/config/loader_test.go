package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", cfg.AI.Model)
	assert.Equal(t, "expo", cfg.Pipeline.TargetFramework)
	assert.True(t, cfg.Pipeline.AutoGenerateRLS)
	assert.False(t, cfg.MonitoringEnabled())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	content := `{
  "ai": {"provider": "mock", "model": "gemini-2.5-pro"},
  "pipeline": {"targetFramework": "react-native", "autoGenerateRLS": false}
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mock", cfg.AI.Provider)
	assert.Equal(t, "gemini-2.5-pro", cfg.AI.Model)
	assert.Equal(t, "react-native", cfg.Pipeline.TargetFramework)
	assert.False(t, cfg.Pipeline.AutoGenerateRLS)
}

func TestLoad_MalformedFileErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APPFORGE_GENERATOR", "mock")
	t.Setenv("APPFORGE_MODEL", "gemini-exp")
	t.Setenv("APPFORGE_SENTRY_DSN", "https://key@sentry.example/1")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "mock", cfg.AI.Provider)
	assert.Equal(t, "gemini-exp", cfg.AI.Model)
	assert.True(t, cfg.Monitoring.Sentry.Enabled)
	assert.True(t, cfg.MonitoringEnabled())
}

func TestFindConfigPath_WalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	path := filepath.Join(root, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	assert.Equal(t, path, FindConfigPath(nested))
}

func TestFindConfigPath_Missing(t *testing.T) {
	assert.Equal(t, "", FindConfigPath(t.TempDir()))
}

func TestWriteDefault_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)

	require.NoError(t, WriteDefault(path))
	assert.Error(t, WriteDefault(path))
}
