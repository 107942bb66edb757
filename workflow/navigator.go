package workflow

import (
	"context"
	"log/slog"
	"time"
)

// Navigator loads the workspace page. The target application has no
// readiness signal, so a fixed settle delay follows every load.
type Navigator struct {
	Timeout time.Duration
	Settle  time.Duration
	Sleep   SleepFunc
}

// Load navigates to url. A failed or timed-out load is logged and reported
// as false; it never aborts the caller.
func (n *Navigator) Load(ctx context.Context, page Page, url string) bool {
	slog.Info("navigating to workspace", "url", url, "timeout", n.Timeout)

	start := time.Now()
	err := page.Navigate(ctx, url, n.Timeout)
	if err != nil {
		slog.Error("failed to navigate to workspace",
			"url", url,
			"error", err,
			"elapsed", time.Since(start),
		)
	}

	// Content is populated asynchronously after the load event.
	if sleepErr := n.Sleep(ctx, n.Settle); sleepErr != nil {
		return false
	}

	if err != nil {
		return false
	}
	slog.Info("navigated to workspace", "elapsed", time.Since(start))
	return true
}
