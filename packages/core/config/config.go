package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// Config represents the apisuite configuration
type Config struct {
	Environment     string            `json:"environment,omitempty"`
	Environments    map[string]string `json:"environments,omitempty"` // environment name -> base URL
	BaseURL         string            `json:"baseUrl,omitempty"`      // overrides Environments
	Timeout         int               `json:"timeout,omitempty"`      // milliseconds
	HookTimeout     int               `json:"hookTimeout,omitempty"`  // milliseconds
	HookMaxNodes    int               `json:"hookMaxNodes,omitempty"` // expression size per hook statement
	FollowRedirects *bool             `json:"followRedirects,omitempty"`
	MaxRedirects    int               `json:"maxRedirects,omitempty"`
	ValidateSSL     *bool             `json:"validateSSL,omitempty"`
	Proxy           string            `json:"proxy,omitempty"`
	Headers         map[string]string `json:"headers,omitempty"` // Default headers for all requests
	UserAgent       string            `json:"userAgent,omitempty"`
	RateLimit       float64           `json:"rateLimit,omitempty"` // requests per second, 0 = unlimited
	MaxSuiteDepth   int               `json:"maxSuiteDepth,omitempty"`
	Database        string            `json:"database,omitempty"`
	NoColor         *bool             `json:"noColor,omitempty"`
	Verbose         *bool             `json:"verbose,omitempty"`
}

// BoolPtr returns a pointer to b, for the tri-state fields.
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// RequestTimeout is the fixed per-request HTTP timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// ScriptTimeout bounds each setup or teardown hook.
func (c *Config) ScriptTimeout() time.Duration {
	return time.Duration(c.HookTimeout) * time.Millisecond
}

// ResolveBaseURL picks the base URL relative case URLs are joined to:
// an explicit baseUrl, then the configured environment, then the built-in
// address of that environment.
func (c *Config) ResolveBaseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	if u, ok := c.Environments[c.Environment]; ok {
		return u
	}
	if u, ok := DefaultEnvironments[c.Environment]; ok {
		return u
	}
	return DefaultEnvironments[DefaultEnvironment]
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative: %d", c.Timeout)
	}
	if c.HookTimeout < 0 {
		return fmt.Errorf("hookTimeout must not be negative: %d", c.HookTimeout)
	}
	if c.HookMaxNodes < 0 {
		return fmt.Errorf("hookMaxNodes must not be negative: %d", c.HookMaxNodes)
	}
	if c.MaxSuiteDepth < 0 {
		return fmt.Errorf("maxSuiteDepth must not be negative: %d", c.MaxSuiteDepth)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rateLimit must not be negative: %v", c.RateLimit)
	}
	if base := c.ResolveBaseURL(); base != "" {
		u, err := url.Parse(base)
		if err != nil {
			return fmt.Errorf("invalid base URL %q: %w", base, err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid base URL %q: want http(s)://host", base)
		}
	}
	if c.Proxy != "" {
		if _, err := url.Parse(c.Proxy); err != nil {
			return fmt.Errorf("invalid proxy URL %q: %w", c.Proxy, err)
		}
	}
	return nil
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".apisuite.config.json",
	"apisuite.config.json",
	".apisuiterc",
	".apisuiterc.json",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return config, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.Environment != "" {
		result.Environment = other.Environment
	}
	if other.BaseURL != "" {
		result.BaseURL = other.BaseURL
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.HookTimeout > 0 {
		result.HookTimeout = other.HookTimeout
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.UserAgent != "" {
		result.UserAgent = other.UserAgent
	}
	if other.HookMaxNodes > 0 {
		result.HookMaxNodes = other.HookMaxNodes
	}
	if other.RateLimit > 0 {
		result.RateLimit = other.RateLimit
	}
	if other.MaxSuiteDepth > 0 {
		result.MaxSuiteDepth = other.MaxSuiteDepth
	}
	if other.Database != "" {
		result.Database = other.Database
	}

	// Boolean flags - only override if explicitly set in other config
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}

	result.Headers = mergeMaps(c.Headers, other.Headers)
	result.Environments = mergeMaps(c.Environments, other.Environments)

	return &result
}

func mergeMaps(base, over map[string]string) map[string]string {
	if len(over) == 0 {
		return base
	}
	out := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
