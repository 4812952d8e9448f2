package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/abdul-hamid-achik/apisuite/packages/export/metrics"
	"github.com/abdul-hamid-achik/apisuite/packages/output"
	"github.com/spf13/cobra"
)

var (
	reportLimitFlag   int
	reportSkipFlag    int
	reportExportFlag  string
	metricsFormatFlag string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Inspect and export stored run reports",
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent reports, newest first",
	Args:  cobra.NoArgs,
	RunE:  reportListCommand,
}

var reportShowCmd = &cobra.Command{
	Use:   "show <report-id>",
	Short: "Show a report and its records",
	Args:  cobra.ExactArgs(1),
	RunE:  reportShowCommand,
}

var reportExportCmd = &cobra.Command{
	Use:   "export <report-id>",
	Short: "Export a report to a spreadsheet",
	Long: `Export a report and its records to an .xlsx workbook. Failed records are
highlighted and a summary block follows them.

Examples:
  apisuite report export 12 --output report-12.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: reportExportCommand,
}

var reportMetricsCmd = &cobra.Command{
	Use:   "metrics <report-id>",
	Short: "Print a report as monitoring metrics",
	Long: `Print the metrics of a stored report: case counts by outcome, run
duration, latency quantiles, responses by status code and per-case figures.

The prometheus format carries no sample timestamps, so it can be written
straight into a node_exporter textfile directory.

Examples:
  apisuite report metrics 12
  apisuite report metrics 12 --format json --output-file metrics.json`,
	Args: cobra.ExactArgs(1),
	RunE: reportMetricsCommand,
}

func init() {
	addStoreFlags(reportListCmd)
	reportListCmd.Flags().IntVar(&reportLimitFlag, "limit", getEnvInt("APISUITE_REPORT_LIMIT", 20), "Maximum number of reports (env: APISUITE_REPORT_LIMIT)")
	reportListCmd.Flags().IntVar(&reportSkipFlag, "skip", 0, "Number of reports to skip")

	addStoreFlags(reportShowCmd)
	reportShowCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("APISUITE_NO_COLOR", false), "Disable colored output (env: APISUITE_NO_COLOR)")

	addStoreFlags(reportExportCmd)
	reportExportCmd.Flags().StringVarP(&reportExportFlag, "output", "o", "", "Destination .xlsx file (default: report-<id>.xlsx)")

	addStoreFlags(reportMetricsCmd)
	reportMetricsCmd.Flags().StringVar(&metricsFormatFlag, "format", getEnvString("APISUITE_METRICS_FORMAT", "prometheus"), "Metrics format: prometheus, json (env: APISUITE_METRICS_FORMAT)")
	reportMetricsCmd.Flags().StringVar(&outputFileFlag, "output-file", "", "Write metrics to file (default: stdout)")

	reportCmd.AddCommand(reportListCmd)
	reportCmd.AddCommand(reportShowCmd)
	reportCmd.AddCommand(reportExportCmd)
	reportCmd.AddCommand(reportMetricsCmd)
}

func reportListCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	repo, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	reports, err := repo.ListReports(cmd.Context(), reportSkipFlag, reportLimitFlag)
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No reports.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSUITE\tSTARTED\tSTATUS\tTOTAL\tPASS\tFAIL\tERROR\tDURATION")
	for _, r := range reports {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%.3fs\n",
			r.ID, r.SuiteName, r.StartTime.Format(time.DateTime), r.Status,
			r.Total, r.Pass, r.Fail, r.Error, r.Duration)
	}
	return tw.Flush()
}

func reportShowCommand(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return withExitCode(ExitUsageError, fmt.Errorf("invalid report id %q", args[0]))
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

	rep, err := repo.GetReport(cmd.Context(), id)
	if err != nil {
		return err
	}
	output.NewConsoleFormatter(
		output.WithWriter(cmd.OutOrStdout()),
		output.WithNoColor(cfg.GetNoColor()),
	).FormatReport(rep)
	return nil
}

func reportExportCommand(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return withExitCode(ExitUsageError, fmt.Errorf("invalid report id %q", args[0]))
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

	rep, err := repo.GetReport(cmd.Context(), id)
	if err != nil {
		return err
	}

	dest := reportExportFlag
	if dest == "" {
		dest = fmt.Sprintf("report-%d.xlsx", id)
	}
	if err := output.ExportXLSX(rep, dest); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported report #%d (%d records) to %s\n", rep.ID, len(rep.Records), dest)
	return nil
}

func reportMetricsCommand(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return withExitCode(ExitUsageError, fmt.Errorf("invalid report id %q", args[0]))
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

	rep, err := repo.GetReport(cmd.Context(), id)
	if err != nil {
		return err
	}

	w, closeOut, err := openOutput(cmd)
	if err != nil {
		return err
	}
	defer closeOut()

	var exporter metrics.Exporter
	switch metricsFormatFlag {
	case "prometheus":
		exporter = metrics.NewPrometheusExporter(w)
	case "json":
		exporter = metrics.NewJSONExporter(w, metrics.WithJSONVersion(version))
	default:
		return withExitCode(ExitUsageError, fmt.Errorf("unknown metrics format %q (want prometheus or json)", metricsFormatFlag))
	}
	return metrics.FromReport(rep).Export(exporter)
}
