package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/abdul-hamid-achik/apisuite/packages/fixtures"
	"github.com/abdul-hamid-achik/apisuite/packages/model"
	"github.com/abdul-hamid-achik/apisuite/packages/output"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	includeFlag   []string
	debugJSONFlag bool
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Run cases without recording a report and show their log",
}

var debugCaseCmd = &cobra.Command{
	Use:   "case <file.yaml>",
	Short: "Run a case definition from a file and print its execution log",
	Long: `Run a single case read from a YAML file, without touching the database.
The file may hold a bare case or a fixture document, in which case its first
case runs seeded with the document's variables.

Examples:
  apisuite debug case login.yaml
  apisuite debug case fixtures/smoke.yaml --var base=http://localhost:9000
  apisuite debug case login.yaml --json`,
	Args: cobra.ExactArgs(1),
	RunE: debugCaseCommand,
}

var debugSuiteCmd = &cobra.Command{
	Use:   "suite <suite-id>",
	Short: "Run a suite's direct cases and modules without recording a report",
	Long: `Run the cases and modules owned directly by a suite. Nested suites are
skipped and nothing is stored.

Examples:
  apisuite debug suite 3
  apisuite debug suite 3 --include 4,9`,
	Args: cobra.ExactArgs(1),
	RunE: debugSuiteCommand,
}

func init() {
	addExecFlags(debugCaseCmd)
	debugCaseCmd.Flags().BoolVar(&debugJSONFlag, "json", false, "Print the debug result as JSON")

	addExecFlags(debugSuiteCmd)
	debugSuiteCmd.Flags().StringSliceVar(&includeFlag, "include", nil, "Only run these case ids (comma-separated)")
	debugSuiteCmd.Flags().BoolVar(&debugJSONFlag, "json", false, "Print the debug result as JSON")

	debugCmd.AddCommand(debugCaseCmd)
	debugCmd.AddCommand(debugSuiteCmd)
}

func debugCaseCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tc, fileSeed, err := fixtures.LoadCase(afero.NewOsFs(), args[0])
	if err != nil {
		return withExitCode(ExitFixtureError, err)
	}
	seed, err := loadSeed()
	if err != nil {
		return err
	}
	for k, v := range fileSeed {
		if _, ok := seed[k]; !ok {
			seed[k] = v
		}
	}

	engine, err := newEngine(cfg, nil, newLogger(cfg))
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	res := engine.DebugCase(ctx, tc, seed)
	run := output.NewRun(tc.Name, 0, []*model.Result{res.Result})
	if debugJSONFlag {
		if err := writeJSON(cmd, res); err != nil {
			return err
		}
		return failedExit(run.Summary)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Log:")
	for _, line := range res.Log {
		fmt.Fprintf(out, "  %s\n", line)
	}
	formatter := output.NewConsoleFormatter(output.WithWriter(out), output.WithVerbose(true), output.WithNoColor(cfg.GetNoColor()))
	formatter.FormatRun(run)
	printVariables(cmd, res.Variables)
	return failedExit(run.Summary)
}

func debugSuiteCommand(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	if len(ids) != 1 {
		return withExitCode(ExitUsageError, fmt.Errorf("expected one suite id, got %q", args[0]))
	}
	include, err := parseIDs(includeFlag)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	seed, err := loadSeed()
	if err != nil {
		return err
	}
	repo, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	engine, err := newEngine(cfg, repo, newLogger(cfg))
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	res, err := engine.DebugSuite(ctx, ids[0], include, seed)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	run := output.NewRun(res.SuiteName, 0, res.Results)
	if debugJSONFlag {
		if err := writeJSON(cmd, res); err != nil {
			return err
		}
		return failedExit(run.Summary)
	}

	formatter := output.NewConsoleFormatter(output.WithWriter(cmd.OutOrStdout()), output.WithVerbose(cfg.GetVerbose()), output.WithNoColor(cfg.GetNoColor()))
	formatter.FormatRun(run)
	return failedExit(run.Summary)
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
