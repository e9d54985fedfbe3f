package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "rod", cfg.Browser.Engine)
	assert.True(t, cfg.Automation.Heuristics.NavigationMeansSubmitted)
	assert.True(t, cfg.Automation.Heuristics.LingeringModalTentative)
	assert.False(t, cfg.Automation.RequireEvidence)
}

func TestLoadYAMLAndEnv(t *testing.T) {
	t.Setenv("PORTAL_USERNAME", "2101234")
	t.Setenv("PORTAL_PASSWORD", "s3cret")
	t.Setenv("BROWSER_ENGINE", "playwright")
	t.Setenv("REDIS_DB", "3")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
portal:
  base_url: https://portal.test
automation:
  max_attempts: 5
  resolve_timeout: 3s
  require_evidence: true
export:
  concurrency: 4
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://portal.test", cfg.Portal.BaseURL)
	assert.Equal(t, "https://portal.test/Account/Login", cfg.LoginURL())
	assert.Equal(t, 5, cfg.Automation.MaxAttempts)
	assert.Equal(t, 3*time.Second, cfg.Automation.ResolveTimeout)
	assert.True(t, cfg.Automation.RequireEvidence)
	assert.Equal(t, 4, cfg.Export.Concurrency)
	assert.Equal(t, "playwright", cfg.Browser.Engine)
	assert.Equal(t, 3, cfg.Queue.DB)
	assert.NoError(t, cfg.ValidateCredentials())

	// unset sections keep their defaults
	assert.Equal(t, DefaultConfig().Portal.ActivityPaths, cfg.Portal.ActivityPaths)
	assert.True(t, strings.HasPrefix(cfg.ActivityURLs()[0], "https://portal.test/"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no base url", func(c *Config) { c.Portal.BaseURL = "" }},
		{"no activity paths", func(c *Config) { c.Portal.ActivityPaths = nil }},
		{"unknown engine", func(c *Config) { c.Browser.Engine = "chromedp" }},
		{"small viewport", func(c *Config) { c.Browser.ViewportWidth = 320 }},
		{"unbounded page load", func(c *Config) { c.Browser.PageLoadTimeout = 0 }},
		{"zero attempts", func(c *Config) { c.Automation.MaxAttempts = 0 }},
		{"zero resolve timeout", func(c *Config) { c.Automation.ResolveTimeout = 0 }},
		{"zero concurrency", func(c *Config) { c.Export.Concurrency = 0 }},
		{"zero job attempts", func(c *Config) { c.Export.MaxJobAttempts = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateCredentials(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Portal.Username = ""
	cfg.Portal.Password = ""
	require.NoError(t, cfg.Validate(), "credentials are not part of general validation")

	assert.ErrorContains(t, cfg.ValidateCredentials(), "username")
	cfg.Portal.Username = "u"
	assert.ErrorContains(t, cfg.ValidateCredentials(), "password")
	cfg.Portal.Password = "p"
	assert.NoError(t, cfg.ValidateCredentials())
}

func TestSaveNeverWritesSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Portal.Password = "s3cret"
	cfg.Queue.Password = "redis-pass"
	cfg.TextGen.APIKey = "sk-test"

	path := filepath.Join(t.TempDir(), "out", "config.yaml")
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, secret := range []string{"s3cret", "redis-pass", "sk-test"} {
		assert.NotContains(t, string(data), secret)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	toml := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(toml, []byte("x = 1"), 0644))
	_, err = Load(toml)
	assert.ErrorContains(t, err, "unsupported")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("automation:\n  max_attempts: 0\n"), 0644))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "validation")
}
