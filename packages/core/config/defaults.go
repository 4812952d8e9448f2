package config

const (
	DefaultEnvironment   = "dev"
	DefaultTimeoutMs     = 10000 // 10 seconds
	DefaultHookTimeoutMs = 2000
	DefaultHookMaxNodes  = 1000
	DefaultMaxRedirects  = 10
	DefaultMaxSuiteDepth = 32
	DefaultDatabase      = "sqlite://apisuite.db"
)

// DefaultEnvironments are the base URLs used when a config names an
// environment without listing it.
var DefaultEnvironments = map[string]string{
	"dev":  "http://localhost:8000",
	"uat":  "http://test-server.com",
	"prod": "https://api.production.com",
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Environment:     DefaultEnvironment,
		Timeout:         DefaultTimeoutMs,
		HookTimeout:     DefaultHookTimeoutMs,
		HookMaxNodes:    DefaultHookMaxNodes,
		FollowRedirects: BoolPtr(true),
		MaxRedirects:    DefaultMaxRedirects,
		ValidateSSL:     BoolPtr(true),
		MaxSuiteDepth:   DefaultMaxSuiteDepth,
		Database:        DefaultDatabase,
		NoColor:         BoolPtr(false),
		Verbose:         BoolPtr(false),
	}
}
