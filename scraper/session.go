// Package scraper drives Chromium through go-rod and exposes the active page
// to the export workflow.
package scraper

import (
	"context"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/wavgrab/config"
	"github.com/use-agent/wavgrab/models"
	"github.com/use-agent/wavgrab/workflow"
)

// Session owns the browser process (or connection) and the single page a
// run drives. Stop releases everything and is safe to call more than once.
type Session struct {
	browser  *rod.Browser
	launcher *launcher.Launcher // nil when attached to an external browser
	page     *rod.Page
	router   *rod.HijackRouter

	// keepProfile leaves a user supplied profile directory on disk.
	keepProfile bool

	stopOnce sync.Once
	stopErr  error
}

// Start launches (or attaches to) a browser, routes downloads into
// downloadDir and opens the page the run will drive. Any failure is an
// INIT_FAILED RunError and leaves no process behind.
func Start(ctx context.Context, cfg config.BrowserConfig, downloadDir string) (*Session, error) {
	s := &Session{keepProfile: cfg.UserDataDir != ""}

	// ── 1. Launch or attach ─────────────────────────────────────────
	controlURL := cfg.ControlURL
	if controlURL == "" {
		l := newLauncher(cfg)
		u, err := l.Launch()
		if err != nil {
			return nil, models.NewRunError(models.ErrCodeInit, "failed to launch browser", err)
		}
		s.launcher = l
		controlURL = u
		slog.Info("browser launched", "controlURL", controlURL, "headless", cfg.Headless)
	} else {
		slog.Info("attaching to running browser", "controlURL", controlURL)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		s.abort()
		return nil, models.NewRunError(models.ErrCodeInit, "failed to connect to browser", err)
	}
	s.browser = browser

	// ── 2. Route downloads into the destination directory ──────────
	err := proto.BrowserSetDownloadBehavior{
		Behavior:      proto.BrowserSetDownloadBehaviorBehaviorAllow,
		DownloadPath:  downloadDir,
		EventsEnabled: true,
	}.Call(s.browser)
	if err != nil {
		s.abort()
		return nil, models.NewRunError(models.ErrCodeInit, "failed to configure download directory", err)
	}

	// ── 3. Open the working page ────────────────────────────────────
	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		s.abort()
		return nil, models.NewRunError(models.ErrCodeInit, "failed to open page", err)
	}
	s.page = page

	// ── 4. Stealth injection (before navigation) ──────────────────
	if cfg.Stealth {
		if _, evalErr := page.Context(ctx).EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}

	// ── 5. Request blocking (before navigation) ───────────────────
	s.router = setupHijack(page, cfg.BlockedResourceTypes, cfg.BlockAds)

	slog.Info("browser session ready", "downloadDir", downloadDir)
	return s, nil
}

// newLauncher builds the Chromium command line.
func newLauncher(cfg config.BrowserConfig) *launcher.Launcher {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.UserDataDir != "" {
		l = l.UserDataDir(cfg.UserDataDir)
	}

	l.Set(flags.Flag("start-maximized"))
	l.Set(flags.Flag("disable-notifications"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "TranslateUI")
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("no-first-run"))
	return l
}

// Page returns the driven page.
func (s *Session) Page() workflow.Page {
	return &rodPage{page: s.page}
}

// Stop closes the page and the browser. A browser attached through a
// control URL is left running; only the page opened by the session closes.
func (s *Session) Stop() error {
	s.stopOnce.Do(func() {
		if s.router != nil {
			_ = s.router.Stop()
		}
		if s.page != nil {
			if err := s.page.Close(); err != nil {
				slog.Debug("failed to close page", "error", err)
			}
		}
		if s.launcher == nil {
			slog.Info("detached from browser")
			return
		}
		s.stopErr = s.browser.Close()
		s.killLauncher()
		slog.Info("browser closed")
	})
	return s.stopErr
}

// abort tears down a partially started session.
func (s *Session) abort() {
	if s.launcher != nil {
		if s.browser != nil {
			_ = s.browser.Close()
		}
		s.killLauncher()
	}
}

func (s *Session) killLauncher() {
	s.launcher.Kill()
	if !s.keepProfile {
		s.launcher.Cleanup()
	}
}
