package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/abdul-hamid-achik/apisuite/packages/http"
)

// WebhookNotifier posts the run summary as plain JSON to any endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(url string, client *http.Client) *WebhookNotifier {
	if client == nil {
		client = http.NewClient(http.WithTimeout(DefaultTimeout))
	}
	return &WebhookNotifier{url: url, client: client}
}

func (w *WebhookNotifier) Name() string {
	return "webhook"
}

func (w *WebhookNotifier) Notify(ctx context.Context, summary *RunSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	return postJSON(ctx, w.client, w.url, data)
}
