package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionJSONFlag bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := struct {
			Version  string `json:"version"`
			Built    string `json:"built"`
			Go       string `json:"go"`
			Platform string `json:"platform"`
		}{version, buildTime, runtime.Version(), runtime.GOOS + "/" + runtime.GOARCH}

		if versionJSONFlag {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "apisuite version %s (%s, %s)\n", info.Version, info.Go, info.Platform)
		fmt.Fprintf(cmd.OutOrStdout(), "Built: %s\n", info.Built)
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSONFlag, "json", false, "Print version information as JSON")
}
