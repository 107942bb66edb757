package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/use-agent/wavgrab/models"
)

// Event types.
const (
	EventRunCompleted = "run.completed"
	EventRunFailed    = "run.failed"
)

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string          `json:"type"`
	RunID     string          `json:"run_id"`
	Timestamp int64           `json:"timestamp"`
	Data      *models.Summary `json:"data"`
}

// NewRunEvent builds the completion event for a summary.
func NewRunEvent(sum *models.Summary) *Event {
	typ := EventRunCompleted
	if !sum.Success {
		typ = EventRunFailed
	}
	return &Event{
		Type:      typ,
		RunID:     sum.RunID,
		Timestamp: time.Now().Unix(),
		Data:      sum,
	}
}

// retryDelays are the waits before each delivery attempt.
var retryDelays = []time.Duration{0, 1 * time.Second, 5 * time.Second}

// Deliver sends a webhook event once.
// The request body is signed with HMAC-SHA256 if secret is non-empty.
// Header: X-Wavgrab-Signature: sha256=<hex>
func Deliver(ctx context.Context, url, secret string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "wavgrab-webhook/1.0")

	if secret != "" {
		req.Header.Set("X-Wavgrab-Signature", "sha256="+Sign(secret, body))
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// DeliverWithRetry sends the event, retrying after 1s and 5s. The process
// exits right after a run, so delivery is synchronous.
func DeliverWithRetry(ctx context.Context, url, secret string, event *Event) error {
	var lastErr error
	for attempt, delay := range retryDelays {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		attemptCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		lastErr = Deliver(attemptCtx, url, secret, event)
		cancel()
		if lastErr == nil {
			slog.Info("webhook delivered",
				"url", url,
				"event", event.Type,
				"run_id", event.RunID,
				"attempt", attempt+1,
			)
			return nil
		}
		slog.Warn("webhook delivery failed",
			"url", url,
			"event", event.Type,
			"run_id", event.RunID,
			"attempt", attempt+1,
			"error", lastErr,
		)
	}
	slog.Error("webhook delivery exhausted all retries",
		"url", url,
		"event", event.Type,
		"run_id", event.RunID,
	)
	return lastErr
}
