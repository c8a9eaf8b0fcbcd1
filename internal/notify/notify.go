// Package notify is the low-stock side channel. Notifications are
// best-effort: implementations swallow their own failures, and callers
// never wait on delivery guarantees.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/equiproom/jerseyvox/internal/command"
)

// Summary describes the row that crossed the low-stock threshold.
type Summary struct {
	RowID      string          `json:"row_id"`
	PlayerName string          `json:"player_name"`
	Edition    command.Edition `json:"edition,omitempty"`
	Size       string          `json:"size,omitempty"`
	Qty        int             `json:"qty_inventory"`
	Threshold  int             `json:"threshold"`
}

// Notifier receives low-stock events. Implementations must be safe for
// concurrent use and must not block the caller beyond a bounded timeout.
type Notifier interface {
	// NotifyLowStock reports that a row is at or below the threshold.
	// Fired once per mutation that lands there, never deduplicated.
	NotifyLowStock(ctx context.Context, s Summary)
}

// LogNotifier writes low-stock events to the structured log.
type LogNotifier struct{}

var _ Notifier = LogNotifier{}

// NotifyLowStock implements [Notifier].
func (LogNotifier) NotifyLowStock(_ context.Context, s Summary) {
	slog.Warn("low stock",
		"row_id", s.RowID,
		"player", s.PlayerName,
		"edition", s.Edition,
		"size", s.Size,
		"qty", s.Qty,
		"threshold", s.Threshold,
	)
}

// webhookTimeout bounds a single webhook delivery attempt.
const webhookTimeout = 5 * time.Second

// WebhookNotifier POSTs low-stock events as JSON to a configured URL.
// Delivery failures are logged and dropped.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

var _ Notifier = (*WebhookNotifier)(nil)

// NewWebhookNotifier creates a notifier posting to url.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: webhookTimeout},
	}
}

// NotifyLowStock implements [Notifier].
func (n *WebhookNotifier) NotifyLowStock(ctx context.Context, s Summary) {
	body, err := json.Marshal(s)
	if err != nil {
		slog.Warn("notify: marshal low-stock payload", "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, webhookTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		slog.Warn("notify: build low-stock request", "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		slog.Warn("notify: deliver low-stock webhook", "url", n.url, "err", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		slog.Warn("notify: low-stock webhook rejected", "url", n.url, "status", resp.StatusCode)
	}
}
