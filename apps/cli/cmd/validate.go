package cmd

import (
	"fmt"

	"github.com/abdul-hamid-achik/apisuite/packages/fixtures"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <fixture.yaml...>",
	Short: "Validate fixture files without importing them",
	Long: `Validate fixture files: names must be unique, every case needs a URL and
every suite item must reference a case, module or suite of the same file.
With --curl the files are read as curl command lists instead.

Examples:
  apisuite validate fixtures/smoke.yaml
  apisuite validate fixtures/*.yaml
  apisuite validate --curl calls/users.sh`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

var validateCurlFlag bool

func init() {
	validateCmd.Flags().BoolVar(&validateCurlFlag, "curl", false, "Read files as curl command lists")
}

func validateCommand(cmd *cobra.Command, args []string) error {
	fs := afero.NewOsFs()
	load := fixtures.Load
	if validateCurlFlag {
		load = fixtures.LoadCurl
	}
	hasErrors := false
	for _, file := range args {
		doc, err := load(fs, file)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStderr(), "Error in %s: %v\n", file, err)
			hasErrors = true
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s (%d modules, %d cases, %d suites)\n",
			file, len(doc.Modules), len(doc.Cases), len(doc.Suites))
	}

	if hasErrors {
		return withExitCode(ExitFixtureError, fmt.Errorf("validation failed"))
	}
	return nil
}
