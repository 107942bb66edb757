package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/use-agent/wavgrab/models"
)

// Session is a started browser session. Stop must be called exactly once.
type Session interface {
	Page() Page
	Stop() error
}

// StartFunc starts a browser session.
type StartFunc func(ctx context.Context) (Session, error)

// Phase is the run's position in its state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSessionStarting
	PhaseNavigating
	PhaseEnumerating
	PhaseExporting
	PhaseSummarizing
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSessionStarting:
		return "session_starting"
	case PhaseNavigating:
		return "navigating"
	case PhaseEnumerating:
		return "enumerating"
	case PhaseExporting:
		return "exporting"
	case PhaseSummarizing:
		return "summarizing"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Runner sequences one run: start session → navigate → enumerate → export
// each item → summarize. It is single-use and not safe for concurrent use.
type Runner struct {
	Start      StartFunc
	Navigator  *Navigator
	Enumerator *Enumerator
	Exporter   *Exporter

	WorkspaceURL string
	DownloadDir  string

	// MaxItems caps the attempted items; 0 means unbounded.
	MaxItems int

	// Delay separates two consecutive items.
	Delay time.Duration

	// AbortOnNavigationError makes a failed workspace load fatal.
	AbortOnNavigationError bool

	Sleep SleepFunc

	// OnPhase, if set, observes every state transition. item is the
	// 1-based index for PhaseExporting and 0 otherwise.
	OnPhase func(p Phase, item int)
}

// Run executes the workflow. It always returns a summary; faults outside
// the per-item boundary mark it unsuccessful instead of propagating.
func (r *Runner) Run(ctx context.Context) *models.Summary {
	sum := &models.Summary{
		RunID:       uuid.NewString(),
		Success:     true,
		DownloadDir: r.DownloadDir,
		Outcomes:    []models.Outcome{},
		StartedAt:   time.Now(),
	}
	slog.Info("=== starting export run ===", "runID", sum.RunID, "workspace", r.WorkspaceURL)

	// ── 1. Start session ────────────────────────────────────────────
	r.transition(PhaseSessionStarting, 0)
	sess, err := r.Start(ctx)
	if err != nil {
		var re *models.RunError
		if !errors.As(err, &re) {
			err = models.NewRunError(models.ErrCodeInit, "failed to start browser session", err)
		}
		slog.Error("failed to initialise browser session", "error", err)
		sum.Fail(err)
		sum.FinishedAt = time.Now()
		r.transition(PhaseDone, 0)
		return sum
	}

	// ── 2. DEFER: guaranteed teardown ──────────────────────────────
	var stopOnce sync.Once
	stop := func() {
		stopOnce.Do(func() {
			slog.Info("closing browser session")
			if stopErr := sess.Stop(); stopErr != nil {
				slog.Warn("browser session did not close cleanly", "error", stopErr)
			}
		})
	}
	defer stop()

	// ── 3. Navigate, enumerate, export ──────────────────────────────
	if err := r.execute(ctx, sess.Page(), sum); err != nil {
		slog.Error("fatal error during export run", "error", err)
		sum.Fail(err)
	}

	// ── 4. Summarize ────────────────────────────────────────────────
	r.transition(PhaseSummarizing, 0)
	stop()
	sum.FinishedAt = time.Now()
	logSummary(sum)

	r.transition(PhaseDone, 0)
	return sum
}

func (r *Runner) execute(ctx context.Context, page Page, sum *models.Summary) error {
	r.transition(PhaseNavigating, 0)
	if !r.Navigator.Load(ctx, page, r.WorkspaceURL) {
		if err := ctx.Err(); err != nil {
			return fatal("navigation interrupted", err)
		}
		if r.AbortOnNavigationError {
			return models.NewRunError(models.ErrCodeNavigation, "failed to navigate to workspace", nil)
		}
		slog.Warn("continuing with current page state after navigation failure")
	}

	r.transition(PhaseEnumerating, 0)
	if n, ok := r.Enumerator.TotalReported(ctx, page); ok {
		sum.TotalReported = &n
	}
	if _, err := r.Enumerator.StabilizeScroll(ctx, page); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fatal("scrolling interrupted", ctxErr)
		}
		slog.Warn("could not load all items, continuing anyway", "error", err)
	}

	items, err := r.Enumerator.DiscoverItems(ctx, page)
	if err != nil {
		return fatal("item discovery failed", err)
	}
	sum.Discovered = len(items)
	if sum.TotalReported != nil && *sum.TotalReported != len(items) {
		slog.Info("page counter differs from discovered items",
			"reported", *sum.TotalReported,
			"discovered", len(items),
		)
	}

	total := len(items)
	if r.MaxItems > 0 && r.MaxItems < total {
		total = r.MaxItems
	}
	slog.Info("starting export", "items", total, "discovered", len(items))

	for i := 1; i <= total; i++ {
		r.transition(PhaseExporting, i)
		slog.Info(fmt.Sprintf("--- item %d/%d ---", i, total))

		// Earlier exports mutate the DOM, so handles from the previous
		// pass are stale.
		if i > 1 {
			items, err = r.Enumerator.DiscoverItems(ctx, page)
			if err != nil {
				return fatal(fmt.Sprintf("re-discovery before item %d failed", i), err)
			}
			if len(items) < i {
				return models.NewRunError(models.ErrCodeFatalRun,
					fmt.Sprintf("item %d no longer present after re-discovery (%d found)", i, len(items)), nil)
			}
		}

		sum.Record(r.Exporter.Export(ctx, page, items[i-1], i))

		if err := ctx.Err(); err != nil {
			return fatal("run interrupted", err)
		}
		if i < total {
			slog.Info("waiting before next item", "delay", r.Delay)
			if err := r.Sleep(ctx, r.Delay); err != nil {
				return fatal("run interrupted", err)
			}
		}
	}
	return nil
}

func (r *Runner) transition(p Phase, item int) {
	if item > 0 {
		slog.Debug("run phase", "phase", p.String(), "item", item)
	} else {
		slog.Debug("run phase", "phase", p.String())
	}
	if r.OnPhase != nil {
		r.OnPhase(p, item)
	}
}

func fatal(msg string, err error) *models.RunError {
	return models.NewRunError(models.ErrCodeFatalRun, msg, err)
}

func logSummary(sum *models.Summary) {
	slog.Info("=== export run complete ===",
		"success", sum.Success,
		"downloaded", sum.Downloaded,
		"failed", sum.Failed,
		"attempted", sum.Attempted(),
		"duration", sum.FinishedAt.Sub(sum.StartedAt).Round(time.Millisecond),
	)
	if sum.Failed > 0 {
		slog.Warn("failed downloads", "count", sum.Failed)
		for _, o := range sum.Failures() {
			slog.Warn("  - "+o.Label(), "reason", o.Reason, "code", o.Code)
		}
	}
}
