package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/apisuite/packages/core/config"
	"github.com/abdul-hamid-achik/apisuite/packages/core/runner"
	"github.com/abdul-hamid-achik/apisuite/packages/core/vars"
	"github.com/abdul-hamid-achik/apisuite/packages/logging"
	"github.com/abdul-hamid-achik/apisuite/packages/output"
	"github.com/abdul-hamid-achik/apisuite/packages/report"
	"github.com/abdul-hamid-achik/apisuite/packages/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Flags shared by every command that executes cases.
var (
	configFlag     string
	envFlag        string
	baseURLFlag    string
	dbFlag         string
	timeoutFlag    string
	envFileFlag    string
	varFlags       []string
	proxyFlag      string
	insecureFlag   bool
	noColorFlag    bool
	verboseFlag    bool
	outputFlag     string
	outputFileFlag string
)

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// addStoreFlags registers the flags needed to reach the database.
func addStoreFlags(c *cobra.Command) {
	c.Flags().StringVar(&configFlag, "config", getEnvString("APISUITE_CONFIG", ""), "Path to config file (env: APISUITE_CONFIG)")
	c.Flags().StringVar(&dbFlag, "db", getEnvString("APISUITE_DB", ""), "Database connection string, e.g. sqlite://apisuite.db (env: APISUITE_DB)")
}

// addExecFlags registers the flags that shape a run.
func addExecFlags(c *cobra.Command) {
	addStoreFlags(c)
	c.Flags().StringVarP(&envFlag, "env", "e", getEnvString("APISUITE_ENV", ""), "Environment to use: dev, uat, prod (env: APISUITE_ENV)")
	c.Flags().StringVar(&baseURLFlag, "base-url", getEnvString("APISUITE_BASE_URL", ""), "Base URL relative case URLs are joined to (env: APISUITE_BASE_URL)")
	c.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("APISUITE_TIMEOUT", ""), "Request timeout (e.g., 10s, 1m) (env: APISUITE_TIMEOUT)")
	c.Flags().StringVar(&envFileFlag, "env-file", getEnvString("APISUITE_ENV_FILE", ""), "Path to .env file seeding run variables (env: APISUITE_ENV_FILE)")
	c.Flags().StringArrayVar(&varFlags, "var", nil, "Seed variable as name=value (repeatable)")
	c.Flags().StringVar(&proxyFlag, "proxy", getEnvString("APISUITE_PROXY", ""), "Proxy URL for HTTP requests (env: APISUITE_PROXY)")
	c.Flags().BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("APISUITE_INSECURE", false), "Disable SSL certificate validation (env: APISUITE_INSECURE)")
	c.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("APISUITE_NO_COLOR", false), "Disable colored output (env: APISUITE_NO_COLOR)")
	c.Flags().BoolVarP(&verboseFlag, "verbose", "v", getEnvBool("APISUITE_VERBOSE", false), "Verbose output and engine log on stderr (env: APISUITE_VERBOSE)")
}

// addOutputFlags registers the result formatting flags.
func addOutputFlags(c *cobra.Command) {
	c.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("APISUITE_OUTPUT", "console"), "Output format: console, json, junit, tap (env: APISUITE_OUTPUT)")
	c.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("APISUITE_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: APISUITE_OUTPUT_FILE)")
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	fileConfig, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, withExitCode(ExitConfigError, fmt.Errorf("loading config: %w", err))
	}

	overrides := &config.Config{
		Environment: envFlag,
		BaseURL:     baseURLFlag,
		Proxy:       proxyFlag,
		Database:    dbFlag,
	}
	if timeoutFlag != "" {
		timeout, err := time.ParseDuration(timeoutFlag)
		if err != nil {
			return nil, withExitCode(ExitConfigError, fmt.Errorf("invalid timeout value %q: %w (use format like 10s, 1m, 500ms)", timeoutFlag, err))
		}
		overrides.Timeout = int(timeout.Milliseconds())
	}
	if insecureFlag {
		overrides.ValidateSSL = config.BoolPtr(false)
	}
	if noColorFlag {
		overrides.NoColor = config.BoolPtr(true)
	}
	if verboseFlag {
		overrides.Verbose = config.BoolPtr(true)
	}

	cfg := fileConfig.Merge(overrides)
	if err := cfg.Validate(); err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}
	return cfg, nil
}

// loadSeed builds the initial run variables: the env file first, then
// --var assignments on top.
func loadSeed() (map[string]any, error) {
	seed := make(map[string]any)
	if envFileFlag != "" {
		fromFile, err := vars.LoadDotEnv(envFileFlag)
		if err != nil {
			return nil, withExitCode(ExitConfigError, fmt.Errorf("loading env file: %w", err))
		}
		for k, v := range fromFile {
			seed[k] = v
		}
	}
	assigned, err := vars.ParseAssignments(varFlags)
	if err != nil {
		return nil, withExitCode(ExitUsageError, err)
	}
	for k, v := range assigned {
		seed[k] = v
	}
	return seed, nil
}

func openStore(cfg *config.Config) (*store.SQLite, error) {
	repo, err := store.Open(cfg.Database)
	if err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}
	return repo, nil
}

// newLogger returns the engine log: stderr lines tagged with a short run id
// when verbose, nothing otherwise.
func newLogger(cfg *config.Config) logging.Logger {
	if !cfg.GetVerbose() {
		return logging.Discard
	}
	return logging.NewStderrLogger("[" + uuid.NewString()[:8] + "] ")
}

// newEngine wires an engine to repo. A nil repo yields an engine that can
// only run cases it is handed directly.
func newEngine(cfg *config.Config, repo store.Repository, log logging.Logger) (*runner.Engine, error) {
	opts := []runner.Option{
		runner.WithLogger(log),
		runner.WithVersion(version),
	}
	if repo != nil {
		opts = append(opts,
			runner.WithRepository(repo),
			runner.WithAggregator(report.NewAggregator(repo, log)),
		)
	}
	engine, err := runner.NewEngine(cfg, opts...)
	if err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}
	return engine, nil
}

// openOutput returns the destination for formatted results and a function
// releasing it.
func openOutput(cmd *cobra.Command) (io.Writer, func(), error) {
	if outputFileFlag == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(outputFileFlag)
	if err != nil {
		return nil, nil, withExitCode(ExitConfigError, fmt.Errorf("cannot create output file: %w", err))
	}
	return f, func() { _ = f.Close() }, nil
}

func newFormatter(w io.Writer, cfg *config.Config) (output.Formatter, error) {
	f, err := output.New(strings.ToLower(outputFlag), w, cfg.GetVerbose(), cfg.GetNoColor())
	if err != nil {
		return nil, withExitCode(ExitUsageError, err)
	}
	return f, nil
}

// flush completes accumulating formatters.
func flush(f output.Formatter, d time.Duration) error {
	if flushable, ok := f.(output.Flushable); ok {
		if err := flushable.Flush(d); err != nil {
			return fmt.Errorf("error writing output: %w", err)
		}
	}
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM so an interrupted run
// still finalizes its report.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// parseIDs converts positional arguments to ids.
func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		for _, part := range strings.Split(a, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, withExitCode(ExitUsageError, fmt.Errorf("invalid id %q", part))
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// failedExit turns an unsuccessful run into the test failure exit code.
func failedExit(s report.Summary) error {
	if s.Passed() {
		return nil
	}
	return withExitCode(ExitTestFailure, nil)
}
