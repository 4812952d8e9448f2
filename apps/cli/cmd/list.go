package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [suites|modules|cases]",
	Short: "List stored suites, modules or cases",
	Long: `List what the database holds.

Examples:
  apisuite list
  apisuite list cases --db sqlite://ci.db`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"suites", "modules", "cases"},
	RunE:      listCommand,
}

func init() {
	addStoreFlags(listCmd)
}

func listCommand(cmd *cobra.Command, args []string) error {
	kind := "suites"
	if len(args) == 1 {
		kind = args[0]
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	repo, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	ctx := cmd.Context()
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	switch kind {
	case "suites":
		suites, err := repo.ListSuites(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "ID\tNAME\tITEMS\tDESCRIPTION")
		for _, s := range suites {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", s.ID, s.Name, len(s.Items), s.Description)
		}
	case "modules":
		modules, err := repo.ListModules(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION")
		for _, m := range modules {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", m.ID, m.Name, m.Description)
		}
	case "cases":
		cases, err := repo.ListCases(ctx, 0, 0)
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "ID\tMODULE\tPRIORITY\tMETHOD\tNAME\tURL")
		for _, c := range cases {
			module := "-"
			if c.ModuleID != nil {
				module = fmt.Sprintf("%d", *c.ModuleID)
			}
			fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\n", c.ID, module, c.Priority, c.Method, c.Name, c.URL)
		}
	default:
		return withExitCode(ExitUsageError, fmt.Errorf("unknown kind %q (want suites, modules or cases)", kind))
	}
	return tw.Flush()
}
