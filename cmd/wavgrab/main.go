package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/use-agent/wavgrab/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd(config.Load()).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newRootCmd builds the single command. Flag defaults come from cfg, so
// WAVGRAB_* environment variables act as defaults the flags override.
func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		maxSongs int
		delaySec int
	)

	cmd := &cobra.Command{
		Use:   "wavgrab <workspace-url>",
		Short: "Download every song of a Suno workspace as WAV",
		Long: "wavgrab opens a Suno workspace in Chromium, loads every song by scrolling,\n" +
			"and triggers the WAV export of each song so the files land in the download directory.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Run.WorkspaceURL = args[0]
			if cmd.Flags().Changed("max-songs") {
				cfg.Run.MaxItems = maxSongs
			}
			if cmd.Flags().Changed("delay") {
				cfg.Run.Delay = seconds(delaySec)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.Run.DownloadDir, "download-dir", cfg.Run.DownloadDir, "directory to save WAV files")
	f.IntVar(&maxSongs, "max-songs", cfg.Run.MaxItems, "maximum number of songs to download (0 = all)")
	f.IntVar(&delaySec, "delay", int(cfg.Run.Delay.Seconds()), "delay in seconds between downloads")
	f.BoolVar(&cfg.Browser.Headless, "headless", cfg.Browser.Headless, "run the browser without a window")

	f.StringVar(&cfg.Browser.UserDataDir, "user-data-dir", cfg.Browser.UserDataDir, "persistent browser profile (reuses an existing login)")
	f.StringVar(&cfg.Browser.ControlURL, "control-url", cfg.Browser.ControlURL, "DevTools URL of an already running browser to attach to")
	f.StringVar(&cfg.Browser.BrowserBin, "browser-bin", cfg.Browser.BrowserBin, "path to the Chromium binary")
	f.BoolVar(&cfg.Browser.NoSandbox, "no-sandbox", cfg.Browser.NoSandbox, "disable the Chromium sandbox")
	f.BoolVar(&cfg.Browser.Stealth, "stealth", cfg.Browser.Stealth, "mask browser automation fingerprints")
	f.BoolVar(&cfg.Browser.BlockAds, "block-ads", cfg.Browser.BlockAds, "block ad and analytics requests")
	f.BoolVar(&cfg.Run.AbortOnNavigationError, "abort-on-nav-error", cfg.Run.AbortOnNavigationError, "stop the run when the workspace fails to load")

	f.StringVar(&cfg.Log.File, "log-file", cfg.Log.File, "log file path (empty disables file logging)")
	f.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level: debug, info, warn, error")
	f.StringVar(&cfg.Run.ReportPath, "report", cfg.Run.ReportPath, "write a JSON run report to this path")
	f.StringVar(&cfg.Webhook.URL, "webhook-url", cfg.Webhook.URL, "POST the run summary to this URL")
	f.StringVar(&cfg.Webhook.Secret, "webhook-secret", cfg.Webhook.Secret, "HMAC secret for the webhook signature")

	return cmd
}
