package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/use-agent/wavgrab/config"
	"github.com/use-agent/wavgrab/models"
	"github.com/use-agent/wavgrab/report"
	"github.com/use-agent/wavgrab/scraper"
	"github.com/use-agent/wavgrab/watcher"
	"github.com/use-agent/wavgrab/webhook"
	"github.com/use-agent/wavgrab/workflow"
)

// run executes one export run and prints its summary. Partial and fatal
// run failures still return nil: the summary carries the status.
func run(ctx context.Context, cfg *config.Config, out io.Writer) error {
	// ── 1. Initialise structured logging ────────────────────────────
	closeLog, err := initLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	// ── 2. Destination directory must exist before any export ──────
	if err := os.MkdirAll(cfg.Run.DownloadDir, 0o755); err != nil {
		return models.NewRunError(models.ErrCodeInvalidInput, "failed to create download directory", err)
	}
	slog.Info("download directory set", "dir", cfg.Run.DownloadDir)

	// ── 3. Observe the destination directory (best-effort) ─────────
	w, err := watcher.Watch(cfg.Run.DownloadDir)
	if err != nil {
		slog.Warn("download directory will not be observed", "error", err)
	}

	// ── 4. Run the workflow ─────────────────────────────────────────
	sum := newRunner(cfg).Run(ctx)

	if w != nil {
		sum.Observed = w.Stop()
		slog.Info("files observed in download directory", "count", len(sum.Observed))
	}

	// ── 5. Report and notify ────────────────────────────────────────
	if cfg.Run.ReportPath != "" {
		if err := report.Write(cfg.Run.ReportPath, sum); err != nil {
			slog.Error("failed to write run report", "error", err)
		} else {
			slog.Info("run report written", "path", cfg.Run.ReportPath)
		}
	}
	if cfg.Webhook.URL != "" {
		// The run context may already be cancelled; delivery gets its own.
		whCtx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
		_ = webhook.DeliverWithRetry(whCtx, cfg.Webhook.URL, cfg.Webhook.Secret, webhook.NewRunEvent(sum))
		cancel()
	}

	if _, err := sum.WriteTo(out); err != nil {
		return fmt.Errorf("print summary: %w", err)
	}
	return nil
}

// newRunner wires the workflow components from the configuration.
func newRunner(cfg *config.Config) *workflow.Runner {
	t := cfg.Timing
	sleep := workflow.Sleep

	return &workflow.Runner{
		Start: func(ctx context.Context) (workflow.Session, error) {
			s, err := scraper.Start(ctx, cfg.Browser, cfg.Run.DownloadDir)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
		Navigator: &workflow.Navigator{
			Timeout: t.NavigationTimeout,
			Settle:  t.NavigationSettle,
			Sleep:   sleep,
		},
		Enumerator: &workflow.Enumerator{
			ItemSelector:  cfg.Selectors.ItemMenu,
			CountSelector: cfg.Selectors.TotalCount,
			ScrollStep:    t.ScrollStep,
			ScrollSettle:  t.ScrollSettle,
			MaxScrolls:    t.MaxScrolls,
			Sleep:         sleep,
		},
		Exporter: &workflow.Exporter{
			DownloadOption:        cfg.Selectors.DownloadOption,
			FormatOption:          cfg.Selectors.FormatOption,
			ConfirmButton:         cfg.Selectors.ConfirmButton,
			ScrollIntoViewDelay:   t.ScrollIntoViewDelay,
			MenuOpenDelay:         t.MenuOpenDelay,
			StageDelay:            t.StageDelay,
			DownloadOptionTimeout: t.DownloadOptionTimeout,
			FormatOptionTimeout:   t.FormatOptionTimeout,
			ConfirmTimeout:        t.ConfirmTimeout,
			ProcessingDelay:       t.ProcessingDelay,
			DownloadRegisterDelay: t.DownloadRegisterDelay,
			Sleep:                 sleep,
		},
		WorkspaceURL:           cfg.Run.WorkspaceURL,
		DownloadDir:            cfg.Run.DownloadDir,
		MaxItems:               cfg.Run.MaxItems,
		Delay:                  cfg.Run.Delay,
		AbortOnNavigationError: cfg.Run.AbortOnNavigationError,
		Sleep:                  sleep,
	}
}

// initLogger configures slog to write every record to the console and,
// when configured, to the log file. The returned func closes the file.
func initLogger(cfg config.LogConfig, console io.Writer) (func(), error) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	dst := console
	closeFn := func() {}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		dst = io.MultiWriter(console, f)
		closeFn = func() { _ = f.Close() }
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(dst, opts)
	} else {
		handler = slog.NewTextHandler(dst, opts)
	}

	slog.SetDefault(slog.New(handler))
	return closeFn, nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
