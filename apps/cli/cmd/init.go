package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/apisuite/packages/core/config"
	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new apisuite project",
	Long: `Initialize a new apisuite project in the current directory.

This creates:
  - .apisuite.config.json  - Configuration file with environments
  - smoke.yaml             - Example fixture with a module, cases and a suite

Examples:
  apisuite init
  apisuite init --force
  apisuite import smoke.yaml && apisuite run smoke`,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

const exampleFixture = `variables:
  user: ada

modules:
  - name: health
    description: liveness checks

cases:
  - name: ping
    module: health
    method: GET
    url: /health
    assertions:
      - {check: status_code, comparator: equals, expect: 200}

  - name: create resource
    method: POST
    url: /resources
    content_type: json
    body:
      name: "{{user}}'s resource"
    extract_rules:
      resource_id: $.id
    assertions:
      - {check: status_code, comparator: equals, expect: 201}
      - {check: json.name, comparator: equals, expect: "ada's resource"}

  - name: get resource
    method: GET
    url: /resources/{{resource_id}}
    assertions:
      - {check: status_code, comparator: equals, expect: 200}
      - {check: json.id, comparator: exists, expect: true}

suites:
  - name: smoke
    items:
      - module: health
      - case: create resource
      - case: get resource
`

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	configFile := filepath.Join(cwd, config.ConfigFilenames[0])
	exampleFile := filepath.Join(cwd, "smoke.yaml")

	if !forceInit {
		for _, f := range []string{configFile, exampleFile} {
			if _, err := os.Stat(f); err == nil {
				return fmt.Errorf("file already exists: %s (use --force to overwrite)", f)
			}
		}
	}

	cfg := config.DefaultConfig()
	cfg.Environments = map[string]string{
		"dev":  "http://localhost:3000",
		"uat":  "https://staging.api.example.com",
		"prod": "https://api.example.com",
	}
	cfg.Headers = map[string]string{"Accept": "application/json"}
	if err := cfg.SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	if err := os.WriteFile(exampleFile, []byte(exampleFixture), 0644); err != nil {
		return fmt.Errorf("failed to create example file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", exampleFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\napisuite project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'apisuite import smoke.yaml' and then 'apisuite run smoke'.\n")

	return nil
}
