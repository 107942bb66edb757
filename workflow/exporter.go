package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/wavgrab/models"
)

// Failure reasons for the gated export stages.
const (
	ReasonDownloadOption = "download option not found"
	ReasonFormatOption   = "wav option not found"
	ReasonConfirmButton  = "download button not found"
)

// stage is one gated step of the export sequence.
type stage struct {
	name    string
	xpath   string
	timeout time.Duration
	reason  string
}

// Exporter replays the per-item export sequence:
//
//  1. Open menu       – scroll the item into view and click it
//  2. Download        – wait for the "Download" entry, click it
//  3. Format          – wait for the "WAV Audio" entry, click it
//  4. Confirm         – wait for "Download File", let the file be prepared, click it
//  5. DEFER: cleanup  – click the page body to close leftover menus
//
// Stages are never retried; a slow render is only covered by the bounded
// wait of its stage. The exporter cannot confirm that bytes reached disk,
// only that the confirmation was clicked.
type Exporter struct {
	DownloadOption string
	FormatOption   string
	ConfirmButton  string

	ScrollIntoViewDelay time.Duration
	MenuOpenDelay       time.Duration
	StageDelay          time.Duration

	DownloadOptionTimeout time.Duration
	FormatOptionTimeout   time.Duration
	ConfirmTimeout        time.Duration

	ProcessingDelay       time.Duration
	DownloadRegisterDelay time.Duration

	Sleep SleepFunc
}

// Export runs the sequence for the item at the 1-based index and returns its
// outcome. Errors never escape: every failure becomes a failed outcome.
func (x *Exporter) Export(ctx context.Context, page Page, item Item, index int) models.Outcome {
	start := time.Now()
	slog.Info("processing item", "index", index)

	// ── 5. DEFER: best-effort menu cleanup ─────────────────────────
	defer x.cleanup(ctx, page, index)

	if err := x.run(ctx, page, item); err != nil {
		var re *models.RunError
		if errors.As(err, &re) && re.Code == models.ErrCodeStageNotFound {
			slog.Warn("export stage failed", "index", index, "reason", re.Message)
			return models.NewFailed(index, re.Code, re.Message, time.Since(start))
		}
		slog.Error("error exporting item", "index", index, "error", err)
		return models.NewFailed(index, models.CodeOf(err), err.Error(), time.Since(start))
	}

	slog.Info("initiated download", "index", index, "elapsed", time.Since(start))
	return models.NewSucceeded(index, time.Since(start))
}

func (x *Exporter) run(ctx context.Context, page Page, item Item) error {
	// ── 1. Open the item menu ───────────────────────────────────────
	if err := item.ScrollIntoView(ctx); err != nil {
		return unexpected("scroll item into view", err)
	}
	if err := x.Sleep(ctx, x.ScrollIntoViewDelay); err != nil {
		return categorizeError(err, "interrupted")
	}
	if err := item.Click(ctx); err != nil {
		return unexpected("open item menu", err)
	}
	if err := x.Sleep(ctx, x.MenuOpenDelay); err != nil {
		return categorizeError(err, "interrupted")
	}

	// ── 2. Download entry ───────────────────────────────────────────
	download := stage{"download", x.DownloadOption, x.DownloadOptionTimeout, ReasonDownloadOption}
	if err := x.clickStage(ctx, page, download, x.StageDelay); err != nil {
		return err
	}

	// ── 3. WAV format entry ─────────────────────────────────────────
	format := stage{"format", x.FormatOption, x.FormatOptionTimeout, ReasonFormatOption}
	if err := x.clickStage(ctx, page, format, x.MenuOpenDelay); err != nil {
		return err
	}

	// ── 4. Confirm download ─────────────────────────────────────────
	confirm := stage{"confirm", x.ConfirmButton, x.ConfirmTimeout, ReasonConfirmButton}
	el, err := x.waitStage(ctx, page, confirm)
	if err != nil {
		return err
	}
	// The application prepares the file before the button is usable.
	if err := x.Sleep(ctx, x.ProcessingDelay); err != nil {
		return categorizeError(err, "interrupted")
	}
	if err := el.Click(ctx); err != nil {
		return unexpected("click confirm button", err)
	}
	// Give the browser time to register the download request.
	if err := x.Sleep(ctx, x.DownloadRegisterDelay); err != nil {
		return categorizeError(err, "interrupted")
	}
	return nil
}

// clickStage waits for a stage's affordance, clicks it and pauses.
func (x *Exporter) clickStage(ctx context.Context, page Page, s stage, pause time.Duration) error {
	el, err := x.waitStage(ctx, page, s)
	if err != nil {
		return err
	}
	if err := el.Click(ctx); err != nil {
		return unexpected(fmt.Sprintf("click %s option", s.name), err)
	}
	if err := x.Sleep(ctx, pause); err != nil {
		return categorizeError(err, "interrupted")
	}
	return nil
}

func (x *Exporter) waitStage(ctx context.Context, page Page, s stage) (Item, error) {
	el, err := page.WaitFor(ctx, s.xpath, s.timeout)
	if err != nil {
		if errors.Is(err, models.ErrAffordanceNotFound) {
			return nil, models.NewRunError(models.ErrCodeStageNotFound, s.reason, err)
		}
		return nil, categorizeError(err, fmt.Sprintf("wait for %s option", s.name))
	}
	return el, nil
}

// cleanup closes any menu left open. Its errors are logged and swallowed.
func (x *Exporter) cleanup(ctx context.Context, page Page, index int) {
	if err := page.DismissMenus(ctx); err != nil {
		slog.Debug("cleanup: failed to dismiss menus", "index", index, "error", err)
		return
	}
	_ = x.Sleep(ctx, x.StageDelay)
}

func unexpected(msg string, err error) *models.RunError {
	return models.NewRunError(models.ErrCodeUnexpected, msg, err)
}

// categorizeError wraps raw errors into typed RunErrors.
func categorizeError(err error, msg string) *models.RunError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewRunError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewRunError(models.ErrCodeTimeout, "run canceled", err)
	default:
		return models.NewRunError(models.ErrCodeUnexpected, msg, err)
	}
}
