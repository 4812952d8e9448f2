// Package notify sends a short summary of a finished run to chat and
// webhook endpoints.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/apisuite/packages/http"
	"github.com/abdul-hamid-achik/apisuite/packages/model"
	"github.com/abdul-hamid-achik/apisuite/packages/report"
)

// NotifyOn specifies when to send notifications
type NotifyOn string

const (
	// NotifyAlways sends notifications for every run
	NotifyAlways NotifyOn = "always"
	// NotifyFailure sends notifications only when a run has failures or errors
	NotifyFailure NotifyOn = "failure"
	// NotifySuccess sends notifications only when a run passes
	NotifySuccess NotifyOn = "success"
	// NotifyRecovery sends notifications on failure and on the first pass after one
	NotifyRecovery NotifyOn = "recovery"
)

// DefaultTimeout bounds each webhook delivery.
const DefaultTimeout = 10 * time.Second

// maxFailedCases caps the failures listed in one message.
const maxFailedCases = 10

// RunSummary is what a notification says about one run.
type RunSummary struct {
	Suite       string        `json:"suite"`
	ReportID    int64         `json:"report_id,omitempty"`
	Environment string        `json:"environment,omitempty"`
	Total       int           `json:"total"`
	Passed      int           `json:"passed"`
	Failed      int           `json:"failed"`
	Errors      int           `json:"errors"`
	Duration    time.Duration `json:"duration"`
	FailedCases []FailedCase  `json:"failed_cases,omitempty"`
	IsRecovery  bool          `json:"is_recovery,omitempty"`
}

// FailedCase is one failing or erroring case of a run.
type FailedCase struct {
	Name   string       `json:"name"`
	Status model.Status `json:"status"`
	Reason string       `json:"reason,omitempty"`
}

// NewRunSummary condenses results into a notification summary.
func NewRunSummary(suite string, reportID int64, env string, results []*model.Result, s report.Summary) *RunSummary {
	out := &RunSummary{
		Suite:       suite,
		ReportID:    reportID,
		Environment: env,
		Total:       s.Total,
		Passed:      s.Pass,
		Failed:      s.Fail,
		Errors:      s.Error,
		Duration:    s.Duration,
	}
	for _, r := range results {
		if r.Status == model.StatusSuccess || len(out.FailedCases) == maxFailedCases {
			continue
		}
		fc := FailedCase{Name: r.Name, Status: r.Status, Reason: r.Error}
		if r.Status == model.StatusFail {
			for _, d := range r.Assertions.Details {
				if d.Result != model.StatusSuccess {
					fc.Reason = fmt.Sprintf("%s %s %s: got %s", d.Check, d.Comparator, d.Expect, d.Actual)
					break
				}
			}
		}
		out.FailedCases = append(out.FailedCases, fc)
	}
	return out
}

// Succeeded reports whether the run had neither failures nor errors.
func (s *RunSummary) Succeeded() bool {
	return s.Failed == 0 && s.Errors == 0
}

// Headline is the one-line verdict used as a message title.
func (s *RunSummary) Headline() string {
	switch {
	case !s.Succeeded():
		return fmt.Sprintf("%s: %d failed, %d errors of %d cases", s.Suite, s.Failed, s.Errors, s.Total)
	case s.IsRecovery:
		return fmt.Sprintf("%s recovered: all %d cases passed", s.Suite, s.Total)
	default:
		return fmt.Sprintf("%s: all %d cases passed", s.Suite, s.Total)
	}
}

// Notifier is the interface for notification services
type Notifier interface {
	// Notify sends a notification about a run
	Notify(ctx context.Context, summary *RunSummary) error

	// Name returns the name of the notifier
	Name() string
}

// Manager manages multiple notifiers
type Manager struct {
	notifiers []Notifier
	notifyOn  NotifyOn
	lastState bool // true if last run was successful
}

// NewManager creates a new notification manager. It keeps the outcome of
// the previous run, so one manager should live as long as a watch session.
func NewManager(notifyOn NotifyOn, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		notifyOn:  notifyOn,
		lastState: true,
	}
}

// ParseNotifyOn validates a policy name.
func ParseNotifyOn(s string) (NotifyOn, error) {
	switch on := NotifyOn(s); on {
	case NotifyAlways, NotifyFailure, NotifySuccess, NotifyRecovery:
		return on, nil
	default:
		return "", fmt.Errorf("unknown notify policy %q (want always, failure, success or recovery)", s)
	}
}

// Notify sends notifications based on the configured policy. Every notifier
// is tried; their errors are joined.
func (m *Manager) Notify(ctx context.Context, summary *RunSummary) error {
	shouldNotify := false
	currentSuccess := summary.Succeeded()

	switch m.notifyOn {
	case NotifyAlways:
		shouldNotify = true
	case NotifyFailure:
		shouldNotify = !currentSuccess
	case NotifySuccess:
		shouldNotify = currentSuccess
	case NotifyRecovery:
		if !m.lastState && currentSuccess {
			shouldNotify = true
			summary.IsRecovery = true
		}
		if !currentSuccess {
			shouldNotify = true
		}
	}

	m.lastState = currentSuccess

	if !shouldNotify {
		return nil
	}

	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, summary); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// postJSON delivers a JSON payload through the engine's HTTP client and
// treats any 2xx as delivered. Each delivery is bounded by DefaultTimeout
// even when the client is shared with longer-running traffic.
func postJSON(ctx context.Context, client *http.Client, url string, payload []byte) error {
	req := http.NewRequest("POST", url).
		SetHeader("Content-Type", http.ContentTypeJSON).
		SetBody(payload).
		SetTimeout(DefaultTimeout)
	resp, err := client.Do(ctx, req)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, resp.BodyString())
	}
	return nil
}
