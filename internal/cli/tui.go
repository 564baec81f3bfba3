package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tessro/startify/internal/config"
	"github.com/tessro/startify/internal/journal"
	"github.com/tessro/startify/internal/logging"
	"github.com/tessro/startify/internal/tail"
	"github.com/tessro/startify/internal/tui"
)

var (
	tuiRefresh int
	tuiArm     bool
	tuiTheme   string
)

var tuiCmd = &cobra.Command{
	Use:     "ui",
	Aliases: []string{"tui"},
	Short:   "Launch interactive dashboard",
	Long: `Launch the interactive terminal dashboard.

The dashboard provides a live view with:
  • Now Playing - current track, progress, device
  • Devices - available playback devices
  • System - health monitor and engine modules
  • History - recent playback events

Keyboard shortcuts:
  q, Ctrl+C    Quit
  ?            Help
  Space        Play/Pause
  n / p        Next / previous track
  +/-          Volume up/down
  ←/→          Seek 10s
  Tab          Switch panel
  Enter        Transfer to selected device
  v / h        Toggle voice / hand module
  a            Arm or disarm the health monitor
  d            Dismiss a health error
  y            Copy current track`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().IntVar(&tuiRefresh, "refresh", 0, "redraw interval in milliseconds (default from tui.refresh_interval)")
	tuiCmd.Flags().BoolVar(&tuiArm, "arm", true, "arm the health monitor on start")
	tuiCmd.Flags().StringVar(&tuiTheme, "theme", "", "color theme (default from tui.theme)")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	lv, err := startLive(ctx, liveOptions{
		MetricsAddr: cfg.Metrics.Addr,
		Journal:     cfg.Journal.Enabled,
		JournalPath: cfg.Journal.Path,
		Arm:         tuiArm,
	})
	if err != nil {
		return err
	}
	defer lv.Close()

	opts := tui.Options{
		RefreshInterval: config.Millis(cfg.TUI.RefreshInterval),
		Theme:           cfg.TUI.Theme,
	}
	if tuiRefresh > 0 {
		opts.RefreshInterval = config.Millis(tuiRefresh)
	}
	if tuiTheme != "" {
		opts.Theme = tuiTheme
	}

	if lv.journal != nil {
		store := lv.journal
		if seed, err := store.Recent(ctx, journal.Query{Limit: 20}); err == nil {
			opts.History = seed
		}
		opts.OnEvent = func(e tail.Event) {
			if err := store.Append(ctx, e); err != nil {
				logger.Warn("failed to journal event", logging.Error(err))
			}
		}
	}

	return tui.Run(ctx, lv.sess, opts)
}
