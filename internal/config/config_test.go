package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TEKSHILA_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "offline", c.Generation.Provider)
	assert.Equal(t, 60*time.Second, c.Generation.Timeout)
	assert.Equal(t, "gemini-2.0-flash", c.Generation.Model)
	assert.Equal(t, "heuristic", c.Quality.Provider)
	assert.Equal(t, "auto", c.Forge.Kind)
	assert.Equal(t, "auto-docs-", c.Forge.HeadPrefix)
	assert.EqualValues(t, 1<<20, c.Uploads.MaxFileBytes)
	assert.Equal(t, "docs: add AI-generated documentation", c.Defaults.PRTitle)
	assert.Equal(t, 5*time.Second, c.ToastDuration())
}

func TestLoad_FileAndEnv(t *testing.T) {
	p := writeConfig(t, `
generation:
  provider: gemini
  timeout: 15s
forge:
  kind: gitlab
ui:
  toast_seconds: 2
`)
	t.Setenv("TEKSHILA_FORGE_HEAD_PREFIX", "bot-")

	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "gemini", c.Generation.Provider)
	assert.Equal(t, 15*time.Second, c.Generation.Timeout)
	assert.Equal(t, "gitlab", c.Forge.Kind)
	assert.Equal(t, "bot-", c.Forge.HeadPrefix)
	assert.Equal(t, 2*time.Second, c.ToastDuration())
}

func TestLoad_Invalid(t *testing.T) {
	p := writeConfig(t, "forge:\n  kind: bitbucket\nquality:\n  provider: magic\n")
	_, err := Load(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forge.kind")
	assert.Contains(t, err.Error(), "quality.provider")
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestGeminiKey(t *testing.T) {
	t.Setenv("MY_KEY", "from-env")
	c := Config{Generation: GenerationConfig{APIKeyEnv: "MY_KEY", APIKey: "inline"}}
	assert.Equal(t, "from-env", c.GeminiKey())

	t.Setenv("MY_KEY", "")
	assert.Equal(t, "inline", c.GeminiKey())
}
