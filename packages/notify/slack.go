package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/apisuite/packages/http"
)

// SlackNotifier sends notifications to Slack via webhook
type SlackNotifier struct {
	webhookURL string
	channel    string
	username   string
	client     *http.Client
}

// SlackOption is a functional option for SlackNotifier
type SlackOption func(*SlackNotifier)

// WithSlackChannel sets the Slack channel
func WithSlackChannel(channel string) SlackOption {
	return func(s *SlackNotifier) {
		s.channel = channel
	}
}

// WithSlackClient replaces the HTTP client used for delivery
func WithSlackClient(c *http.Client) SlackOption {
	return func(s *SlackNotifier) {
		s.client = c
	}
}

// NewSlackNotifier creates a new Slack notifier
func NewSlackNotifier(webhookURL string, opts ...SlackOption) *SlackNotifier {
	s := &SlackNotifier{
		webhookURL: webhookURL,
		username:   "apisuite",
		client:     http.NewClient(http.WithTimeout(DefaultTimeout)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SlackNotifier) Name() string {
	return "slack"
}

type slackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text,omitempty"`
	Fields []slackField `json:"fields,omitempty"`
	Footer string       `json:"footer,omitempty"`
	TS     int64        `json:"ts,omitempty"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// Notify posts the summary as a single attachment
func (s *SlackNotifier) Notify(ctx context.Context, summary *RunSummary) error {
	color := "good"
	if !summary.Succeeded() {
		color = "danger"
	}

	fields := []slackField{
		{Title: "Cases", Value: fmt.Sprintf("%d", summary.Total), Short: true},
		{Title: "Passed", Value: fmt.Sprintf("%d", summary.Passed), Short: true},
		{Title: "Failed", Value: fmt.Sprintf("%d", summary.Failed), Short: true},
		{Title: "Errors", Value: fmt.Sprintf("%d", summary.Errors), Short: true},
		{Title: "Duration", Value: summary.Duration.Round(time.Millisecond).String(), Short: true},
	}
	if summary.Environment != "" {
		fields = append(fields, slackField{Title: "Environment", Value: summary.Environment, Short: true})
	}

	var text strings.Builder
	for _, fc := range summary.FailedCases {
		fmt.Fprintf(&text, "• `%s` %s", fc.Name, fc.Status)
		if fc.Reason != "" {
			fmt.Fprintf(&text, ": %s", fc.Reason)
		}
		text.WriteString("\n")
	}

	footer := "apisuite"
	if summary.ReportID != 0 {
		footer = fmt.Sprintf("apisuite report #%d", summary.ReportID)
	}

	msg := slackMessage{
		Channel:  s.channel,
		Username: s.username,
		Attachments: []slackAttachment{{
			Color:  color,
			Title:  summary.Headline(),
			Text:   text.String(),
			Fields: fields,
			Footer: footer,
			TS:     time.Now().Unix(),
		}},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal Slack message: %w", err)
	}
	if err := postJSON(ctx, s.client, s.webhookURL, data); err != nil {
		return fmt.Errorf("failed to send Slack notification: %w", err)
	}
	return nil
}
