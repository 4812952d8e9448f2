package cmd

import (
	"fmt"
	"sort"

	"github.com/abdul-hamid-achik/apisuite/packages/fixtures"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <fixture.yaml...>",
	Short: "Store modules, cases and suites from fixture files",
	Long: `Import YAML fixture files into the database. Each file is validated as
a whole before anything is written; suite items refer to cases, modules and
suites of the same file by name.

With --curl each file is read as a list of curl commands instead, one per
line with backslash continuations. Every command becomes a case expecting a
2xx or 3xx status, and a suite named after the file runs them in order. The
Curl column of an exported report can be pasted into such a file.

Examples:
  apisuite import fixtures/smoke.yaml
  apisuite import fixtures/*.yaml --db sqlite://ci.db
  apisuite import --curl captured/users.sh`,
	Args: cobra.MinimumNArgs(1),
	RunE: importCommand,
}

var importCurlFlag bool

func init() {
	addStoreFlags(importCmd)
	importCmd.Flags().BoolVar(&importCurlFlag, "curl", false, "Read files as curl command lists")
}

func importCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fs := afero.NewOsFs()
	docs := make([]*fixtures.Document, 0, len(args))
	for _, path := range args {
		load := fixtures.Load
		if importCurlFlag {
			load = fixtures.LoadCurl
		}
		doc, err := load(fs, path)
		if err != nil {
			return withExitCode(ExitFixtureError, fmt.Errorf("%s: %w", path, err))
		}
		docs = append(docs, doc)
	}

	repo, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	for i, doc := range docs {
		applied, err := fixtures.Apply(cmd.Context(), repo, doc)
		if err != nil {
			return withExitCode(ExitConfigError, fmt.Errorf("%s: %w", args[i], err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %s:\n", args[i])
		printApplied(cmd, "module", applied.Modules)
		printApplied(cmd, "case", applied.Cases)
		printApplied(cmd, "suite", applied.Suites)
	}
	return nil
}

func printApplied(cmd *cobra.Command, kind string, ids map[string]int64) {
	names := make([]string, 0, len(ids))
	for name := range ids {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return ids[names[i]] < ids[names[j]] })
	for _, name := range names {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-6s #%d %s\n", kind, ids[name], name)
	}
}
