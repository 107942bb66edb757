// Package workflow implements the export run: load the workspace, discover
// items, replay the per-item export sequence and summarize the outcomes.
//
// The package drives the browser only through the Page and Item interfaces,
// so the whole sequence can run against an in-memory page in tests.
package workflow

import (
	"context"
	"time"
)

// Page is the subset of browser page operations the run needs.
type Page interface {
	// Navigate loads url and waits for the load event, bounded by timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// ScrollBy scrolls the viewport down by dy pixels.
	ScrollBy(ctx context.Context, dy int) error

	// ScrollHeight measures the total scrollable content height.
	ScrollHeight(ctx context.Context) (int, error)

	// HTML returns the current rendered document.
	HTML(ctx context.Context) (string, error)

	// Items returns the elements matching the CSS selector in the current
	// DOM. It does not wait; an empty result is not an error.
	Items(ctx context.Context, selector string) ([]Item, error)

	// WaitFor waits up to timeout for an element matching the XPath
	// expression. It returns models.ErrAffordanceNotFound on expiry.
	WaitFor(ctx context.Context, xpath string, timeout time.Duration) (Item, error)

	// DismissMenus clicks on the document body to close open menus.
	DismissMenus(ctx context.Context) error
}

// Item is a handle to one element of the current DOM snapshot. It becomes
// invalid after any DOM mutation and must be re-acquired.
type Item interface {
	ScrollIntoView(ctx context.Context) error
	Click(ctx context.Context) error
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
