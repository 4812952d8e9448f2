package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/apisuite/packages/core/vars"
	"github.com/abdul-hamid-achik/apisuite/packages/output"
	"github.com/spf13/cobra"
)

var showVarsFlag bool

var caseCmd = &cobra.Command{
	Use:   "case",
	Short: "Work with individual test cases",
}

var caseRunCmd = &cobra.Command{
	Use:   "run <id...>",
	Short: "Run stored cases in one session",
	Long: `Run stored test cases in the order given, sharing one session so that
variables extracted by a case are available to the cases after it. No
report is recorded.

Examples:
  apisuite case run 4
  apisuite case run 4 7 9 --show-vars
  apisuite case run 4,7,9 -o json`,
	Args: cobra.MinimumNArgs(1),
	RunE: caseRunCommand,
}

func init() {
	addExecFlags(caseRunCmd)
	addOutputFlags(caseRunCmd)
	caseRunCmd.Flags().BoolVar(&showVarsFlag, "show-vars", false, "Print the final variables after the run")
	caseCmd.AddCommand(caseRunCmd)
}

func caseRunCommand(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
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

	w, closeOut, err := openOutput(cmd)
	if err != nil {
		return err
	}
	defer closeOut()

	formatter, err := newFormatter(w, cfg)
	if err != nil {
		return err
	}
	formatter.FormatHeader(version)

	engine, err := newEngine(cfg, repo, newLogger(cfg))
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	start := time.Now()
	results, final, err := engine.RunCases(ctx, ids, seed)
	if err != nil {
		formatter.FormatError(err)
		return withExitCode(ExitConfigError, err)
	}

	run := output.NewRun(fmt.Sprintf("cases %v", ids), 0, results)
	formatter.FormatRun(run)
	if err := flush(formatter, time.Since(start)); err != nil {
		return err
	}

	if showVarsFlag {
		printVariables(cmd, final)
	}
	return failedExit(run.Summary)
}

func printVariables(cmd *cobra.Command, values map[string]any) {
	if len(values) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "Variables: (none)")
		return
	}
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		for k, v := range values {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s = %s\n", k, vars.Stringify(v))
		}
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Variables:\n%s\n", data)
}
