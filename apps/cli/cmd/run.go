package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/abdul-hamid-achik/apisuite/packages/core/config"
	"github.com/abdul-hamid-achik/apisuite/packages/fixtures"
	"github.com/abdul-hamid-achik/apisuite/packages/notify"
	"github.com/abdul-hamid-achik/apisuite/packages/output"
	"github.com/abdul-hamid-achik/apisuite/packages/report"
	"github.com/abdul-hamid-achik/apisuite/packages/store"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <suite-id|suite-name>",
	Short: "Run a stored test suite",
	Long: `Run a test suite and record a report for it.

Items run in sort order. Modules expand to their cases by priority and
nested suites run inside the same session, so variables extracted by one
case are visible to every later case.

Examples:
  apisuite run 3
  apisuite run smoke --env uat
  apisuite run smoke --base-url http://localhost:9000 --var token=abc
  apisuite run smoke -o junit --output-file report.xml
  apisuite run smoke --watch fixtures/smoke.yaml
  apisuite run smoke --notify slack --slack-webhook $SLACK_WEBHOOK --notify-on recovery`,
	Args: cobra.ExactArgs(1),
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	watchFlag        string
	notifyFlag       []string
	notifyOnFlag     string
	slackWebhookFlag string
	slackChannelFlag string
	webhookURLFlag   string
)

func init() {
	addExecFlags(runCmd)
	addOutputFlags(runCmd)
	runCmd.Flags().StringVarP(&watchFlag, "watch", "w", "", "Fixture file to load into a scratch database and re-run on every change")

	// Notification flags
	runCmd.Flags().StringSliceVar(&notifyFlag, "notify", nil, "Send a run summary to: slack, webhook")
	runCmd.Flags().StringVar(&notifyOnFlag, "notify-on", getEnvString("APISUITE_NOTIFY_ON", string(notify.NotifyFailure)), "When to notify: always, failure, success, recovery (env: APISUITE_NOTIFY_ON)")
	runCmd.Flags().StringVar(&slackWebhookFlag, "slack-webhook", getEnvString("SLACK_WEBHOOK", ""), "Slack incoming webhook URL (env: SLACK_WEBHOOK)")
	runCmd.Flags().StringVar(&slackChannelFlag, "slack-channel", "", "Slack channel override")
	runCmd.Flags().StringVar(&webhookURLFlag, "webhook-url", getEnvString("APISUITE_WEBHOOK_URL", ""), "URL receiving the run summary as JSON (env: APISUITE_WEBHOOK_URL)")
}

// newNotifier builds the notification manager from the flags, or nil when
// no destination was requested.
func newNotifier() (*notify.Manager, error) {
	if len(notifyFlag) == 0 {
		return nil, nil
	}
	on, err := notify.ParseNotifyOn(notifyOnFlag)
	if err != nil {
		return nil, withExitCode(ExitUsageError, err)
	}

	var notifiers []notify.Notifier
	for _, name := range notifyFlag {
		switch name {
		case "slack":
			if slackWebhookFlag == "" {
				return nil, withExitCode(ExitUsageError, errors.New("--notify slack requires --slack-webhook"))
			}
			var opts []notify.SlackOption
			if slackChannelFlag != "" {
				opts = append(opts, notify.WithSlackChannel(slackChannelFlag))
			}
			notifiers = append(notifiers, notify.NewSlackNotifier(slackWebhookFlag, opts...))
		case "webhook":
			if webhookURLFlag == "" {
				return nil, withExitCode(ExitUsageError, errors.New("--notify webhook requires --webhook-url"))
			}
			notifiers = append(notifiers, notify.NewWebhookNotifier(webhookURLFlag, nil))
		default:
			return nil, withExitCode(ExitUsageError, fmt.Errorf("unknown notifier %q (want slack or webhook)", name))
		}
	}
	return notify.NewManager(on, notifiers...), nil
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	seed, err := loadSeed()
	if err != nil {
		return err
	}

	notifier, err := newNotifier()
	if err != nil {
		return err
	}

	if watchFlag != "" {
		return watchCommand(cmd, cfg, args[0], seed, notifier)
	}

	repo, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	suiteID, err := resolveSuite(ctx, repo, args[0])
	if err != nil {
		return err
	}

	summary, err := runOnce(ctx, cmd, cfg, repo, suiteID, seed, notifier)
	if err != nil {
		return err
	}
	return failedExit(summary)
}

// resolveSuite accepts a numeric id or the name of a stored suite.
func resolveSuite(ctx context.Context, repo store.Repository, arg string) (int64, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return id, nil
	}
	suites, err := repo.ListSuites(ctx)
	if err != nil {
		return 0, withExitCode(ExitConfigError, err)
	}
	for _, s := range suites {
		if s.Name == arg {
			return s.ID, nil
		}
	}
	return 0, withExitCode(ExitUsageError, fmt.Errorf("no suite named %q", arg))
}

// runOnce executes one suite run, writes it through a fresh formatter and
// hands the outcome to notifier when one is set.
func runOnce(ctx context.Context, cmd *cobra.Command, cfg *config.Config, repo store.Repository, suiteID int64, seed map[string]any, notifier *notify.Manager) (report.Summary, error) {
	w, closeOut, err := openOutput(cmd)
	if err != nil {
		return report.Summary{}, err
	}
	defer closeOut()

	formatter, err := newFormatter(w, cfg)
	if err != nil {
		return report.Summary{}, err
	}
	formatter.FormatHeader(version)

	engine, err := newEngine(cfg, repo, newLogger(cfg))
	if err != nil {
		return report.Summary{}, err
	}

	start := time.Now()
	run, err := engine.RunSuite(ctx, suiteID, seed)
	if err != nil {
		formatter.FormatError(err)
		return report.Summary{}, withExitCode(ExitConfigError, err)
	}

	name := fmt.Sprintf("suite %d", suiteID)
	if suite, err := repo.GetSuite(context.WithoutCancel(ctx), suiteID); err == nil {
		name = suite.Name
	}

	formatter.FormatRun(&output.Run{
		Name:     name,
		ReportID: run.ReportID,
		Results:  run.Results,
		Summary:  run.Summary,
	})
	if err := flush(formatter, time.Since(start)); err != nil {
		return run.Summary, err
	}

	if notifier != nil {
		summary := notify.NewRunSummary(name, run.ReportID, cfg.Environment, run.Results, run.Summary)
		if err := notifier.Notify(context.WithoutCancel(ctx), summary); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: notification failed: %v\n", err)
		}
	}
	return run.Summary, nil
}

// watchCommand loads the fixture into an in-memory database, runs the named
// suite, and repeats whenever the fixture file is written.
func watchCommand(cmd *cobra.Command, cfg *config.Config, suiteName string, seed map[string]any, notifier *notify.Manager) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	fs := afero.NewOsFs()
	runFixture := func() {
		if err := runFixtureSuite(ctx, cmd, cfg, fs, suiteName, seed, notifier); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	}
	runFixture()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// editors often replace the file, so watch its directory
	target, err := filepath.Abs(watchFlag)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching %s for changes... (press Ctrl+C to stop)\n\n", watchFlag)

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			changed, _ := filepath.Abs(event.Name)
			if changed != target || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "\n\nFile changed: %s\nRe-running suite...\n\n", event.Name)
				runFixture()
				fmt.Fprintf(cmd.OutOrStdout(), "\nWatching %s for changes... (press Ctrl+C to stop)\n", watchFlag)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "watcher error: %v\n", err)
		}
	}
}

func runFixtureSuite(ctx context.Context, cmd *cobra.Command, cfg *config.Config, fs afero.Fs, suiteName string, seed map[string]any, notifier *notify.Manager) error {
	doc, err := fixtures.Load(fs, watchFlag)
	if err != nil {
		return err
	}

	repo, err := store.Open("sqlite://:memory:")
	if err != nil {
		return err
	}
	defer repo.Close()

	applied, err := fixtures.Apply(ctx, repo, doc)
	if err != nil {
		return err
	}
	suiteID, ok := applied.Suites[suiteName]
	if !ok {
		if id, err := strconv.ParseInt(suiteName, 10, 64); err == nil {
			suiteID, ok = id, true
		}
	}
	if !ok {
		return errors.New("fixture has no suite named " + strconv.Quote(suiteName))
	}

	runSeed := make(map[string]any, len(doc.Variables)+len(seed))
	for k, v := range doc.Variables {
		runSeed[k] = v
	}
	for k, v := range seed {
		runSeed[k] = v
	}

	_, err = runOnce(ctx, cmd, cfg, repo, suiteID, runSeed, notifier)
	return err
}
