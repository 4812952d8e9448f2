package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, "dev", c.Environment)
	assert.Equal(t, 10*time.Second, c.RequestTimeout())
	assert.Equal(t, 2*time.Second, c.ScriptTimeout())
	assert.True(t, c.GetFollowRedirects())
	assert.True(t, c.GetValidateSSL())
	assert.False(t, c.GetNoColor())
	assert.Equal(t, DefaultMaxSuiteDepth, c.MaxSuiteDepth)
	assert.Equal(t, DefaultHookMaxNodes, c.HookMaxNodes)
	assert.NoError(t, c.Validate())
}

func TestResolveBaseURL(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, "http://localhost:8000", c.ResolveBaseURL())

	c.Environment = "uat"
	assert.Equal(t, "http://test-server.com", c.ResolveBaseURL())

	c.Environments = map[string]string{"uat": "http://uat.internal"}
	assert.Equal(t, "http://uat.internal", c.ResolveBaseURL())

	c.Environment = "unknown"
	assert.Equal(t, DefaultEnvironments["dev"], c.ResolveBaseURL())

	c.BaseURL = "https://override"
	assert.Equal(t, "https://override", c.ResolveBaseURL())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative timeout", func(c *Config) { c.Timeout = -1 }},
		{"negative hook timeout", func(c *Config) { c.HookTimeout = -5 }},
		{"negative depth", func(c *Config) { c.MaxSuiteDepth = -1 }},
		{"negative hook nodes", func(c *Config) { c.HookMaxNodes = -1 }},
		{"negative rate", func(c *Config) { c.RateLimit = -1 }},
		{"base url without scheme", func(c *Config) { c.BaseURL = "localhost:8000" }},
		{"base url ftp", func(c *Config) { c.BaseURL = "ftp://files" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".apisuite.config.json")
	content := `{
  "environment": "uat",
  "environments": {"uat": "http://uat.local"},
  "timeout": 5000,
  "validateSSL": false,
  "headers": {"X-Team": "qa"}
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	c, err := FindAndLoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "uat", c.Environment)
	assert.Equal(t, "http://uat.local", c.ResolveBaseURL())
	assert.Equal(t, 5*time.Second, c.RequestTimeout())
	assert.False(t, c.GetValidateSSL())
	assert.True(t, c.GetFollowRedirects())
	assert.Equal(t, DefaultHookTimeoutMs, c.HookTimeout)
	assert.Equal(t, "qa", c.Headers["X-Team"])

	explicit, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, c, explicit)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0644))
	_, err = LoadConfig(bad)
	assert.Error(t, err)

	c, err := FindAndLoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), c)
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Headers = map[string]string{"A": "1", "B": "2"}

	merged := base.Merge(&Config{
		Environment: "prod",
		Timeout:     500,
		ValidateSSL: BoolPtr(false),
		Headers:     map[string]string{"B": "3"},
		RateLimit:   2,
	})

	assert.Equal(t, "prod", merged.Environment)
	assert.Equal(t, 500, merged.Timeout)
	assert.False(t, merged.GetValidateSSL())
	assert.True(t, merged.GetFollowRedirects())
	assert.Equal(t, map[string]string{"A": "1", "B": "3"}, merged.Headers)
	assert.Equal(t, 2.0, merged.RateLimit)

	// base untouched
	assert.Equal(t, "2", base.Headers["B"])
	assert.Equal(t, base, base.Merge(nil))
}

func TestSaveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	c := DefaultConfig()
	c.BaseURL = "http://x"
	require.NoError(t, c.SaveConfig(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://x", loaded.BaseURL)
}
