package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/edupulse/edupulse/internal/model"
	"github.com/edupulse/edupulse/internal/resilience"
)

// Notifier delivers a finished call's summary.
type Notifier interface {
	Deliver(ctx context.Context, summary model.CallSummary) error
}

// CallLogSaver persists call summaries.
type CallLogSaver interface {
	SaveCallLog(ctx context.Context, summary model.CallSummary) (*model.CallLog, error)
}

// StoreNotifier writes summaries straight to the store.
type StoreNotifier struct {
	store CallLogSaver
}

// NewStoreNotifier creates an in-process notifier.
func NewStoreNotifier(st CallLogSaver) *StoreNotifier {
	return &StoreNotifier{store: st}
}

func (n *StoreNotifier) Deliver(ctx context.Context, summary model.CallSummary) error {
	_, err := n.store.SaveCallLog(ctx, summary)
	return eris.Wrap(err, "agent: save call log")
}

// WebhookNotifier posts summaries as JSON to the summary webhook, retrying
// transient failures.
type WebhookNotifier struct {
	url    string
	client *http.Client
	policy resilience.Policy
}

// NewWebhookNotifier creates a notifier for url. client may be nil.
func NewWebhookNotifier(url string, client *http.Client, policy resilience.Policy) *WebhookNotifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if policy.OnRetry == nil {
		policy.OnRetry = resilience.LogRetries("agent: webhook delivery")
	}
	return &WebhookNotifier{url: url, client: client, policy: policy}
}

func (n *WebhookNotifier) Deliver(ctx context.Context, summary model.CallSummary) error {
	body, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "agent: encode summary")
	}

	err = resilience.Do(ctx, n.policy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close() //nolint:errcheck
		_, _ = io.Copy(io.Discard, resp.Body)
		return resilience.CheckStatus(resp.StatusCode)
	})
	return eris.Wrapf(err, "agent: post summary to %s", n.url)
}
