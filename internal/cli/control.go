package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tessro/startify/internal/backend/remote"
	"github.com/tessro/startify/internal/metrics"
	"github.com/tessro/startify/internal/playback"
	"github.com/tessro/startify/internal/tui/components"
)

var playCmd = &cobra.Command{
	Use:     "play",
	Aliases: []string{"resume"},
	Short:   "Resume playback",
	Args:    cobra.NoArgs,
	RunE:    transportRunner(playback.CommandPlay, "▶ Playing"),
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause playback",
	Args:  cobra.NoArgs,
	RunE:  transportRunner(playback.CommandPause, "⏸ Paused"),
}

var nextCmd = &cobra.Command{
	Use:     "next",
	Aliases: []string{"skip"},
	Short:   "Skip to next track",
	Args:    cobra.NoArgs,
	RunE:    transportRunner(playback.CommandNext, "⏭ Skipped to next track"),
}

var prevCmd = &cobra.Command{
	Use:     "prev",
	Aliases: []string{"previous"},
	Short:   "Go to previous track",
	Args:    cobra.NoArgs,
	RunE:    transportRunner(playback.CommandPrevious, "⏮ Previous track"),
}

var (
	volumeUp   bool
	volumeDown bool
	volumeStep int
)

var volumeCmd = &cobra.Command{
	Use:   "volume [level]",
	Short: "Set or adjust volume",
	Long: `Set the playback volume (0-100) or adjust it up/down.

Examples:
  startify volume 50      # Set volume to 50%
  startify volume --up    # Increase volume by 10%
  startify volume --down  # Decrease volume by 10%`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVolume,
}

var seekCmd = &cobra.Command{
	Use:   "seek <position>",
	Short: "Seek within the current track",
	Long: `Seek to an absolute position or move relative to the current one.

Positions are seconds, mm:ss, or Go durations. A leading + or - seeks
relative to the current position.

Examples:
  startify seek 1:30
  startify seek 90
  startify seek +15s
  startify seek -10`,
	Args: cobra.ExactArgs(1),
	RunE: runSeek,
}

func init() {
	volumeCmd.Flags().BoolVar(&volumeUp, "up", false, "increase volume")
	volumeCmd.Flags().BoolVar(&volumeDown, "down", false, "decrease volume")
	volumeCmd.Flags().IntVar(&volumeStep, "step", 10, "step for --up/--down")
	volumeCmd.MarkFlagsMutuallyExclusive("up", "down")

	rootCmd.AddCommand(playCmd, pauseCmd, nextCmd, prevCmd, volumeCmd, seekCmd)
}

type commandResult struct {
	Command string `json:"command" yaml:"command"`
	Status  string `json:"status" yaml:"status"`
	Volume  *int   `json:"volume,omitempty" yaml:"volume,omitempty"`
	Seek    *int64 `json:"position_ms,omitempty" yaml:"position_ms,omitempty"`
}

// dispatch validates cmd and sends it without the session's refetch loop.
func dispatch(c *cobra.Command, rem *remote.Remote, cmd playback.Command, trackDuration time.Duration) error {
	if err := playback.Validate(cmd, trackDuration); err != nil {
		return err
	}
	ctx, cancel := commandContext(c.Context())
	defer cancel()

	d := playback.NewDispatcher(rem,
		playback.WithDispatchLogger(logger),
		playback.WithDispatchRecorder(metrics.NoopRecorder{}))
	if err := d.Dispatch(ctx, cmd); err != nil {
		return fmt.Errorf("failed to %s: %w", cmd.Kind, err)
	}
	return nil
}

func transportRunner(kind playback.CommandKind, message string) func(*cobra.Command, []string) error {
	return func(c *cobra.Command, args []string) error {
		rem, err := newRemote()
		if err != nil {
			return err
		}
		if err := dispatch(c, rem, playback.Command{Kind: kind}, 0); err != nil {
			return err
		}
		return render(c.OutOrStdout(), commandResult{Command: string(kind), Status: "ok"}, func(w io.Writer) error {
			_, err := fmt.Fprintln(w, message)
			return err
		})
	}
}

func runVolume(c *cobra.Command, args []string) error {
	rem, err := newRemote()
	if err != nil {
		return err
	}

	var target int
	switch {
	case len(args) == 1:
		target, err = strconv.Atoi(strings.TrimSuffix(args[0], "%"))
		if err != nil {
			return fmt.Errorf("invalid volume %q: must be a number between 0 and 100", args[0])
		}
	case volumeUp || volumeDown:
		ctx, cancel := commandContext(c.Context())
		snap, err := rem.Snapshot(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to read current volume: %w", err)
		}
		if snap == nil || snap.Device == nil {
			return fmt.Errorf("no active device to adjust")
		}
		delta := volumeStep
		if volumeDown {
			delta = -delta
		}
		target = min(100, max(0, snap.Device.VolumePercent+delta))
	default:
		return fmt.Errorf("specify a volume level or --up/--down")
	}

	if err := dispatch(c, rem, playback.Command{Kind: playback.CommandVolume, VolumePercent: target}, 0); err != nil {
		return err
	}
	return render(c.OutOrStdout(), commandResult{Command: "volume", Status: "ok", Volume: &target}, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "🔊 Volume: %d%%\n", target)
		return err
	})
}

func runSeek(c *cobra.Command, args []string) error {
	offset, relative, err := parsePosition(args[0])
	if err != nil {
		return err
	}

	rem, err := newRemote()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(c.Context())
	snap, err := rem.Snapshot(ctx)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to read playback state: %w", err)
	}

	var duration time.Duration
	target := offset
	if snap.HasTrack() {
		duration = snap.Track.Duration
		if relative {
			target = min(duration, max(0, snap.Progress+offset))
		}
	}

	if err := dispatch(c, rem, playback.Command{Kind: playback.CommandSeek, Position: target}, duration); err != nil {
		return err
	}
	ms := target.Milliseconds()
	return render(c.OutOrStdout(), commandResult{Command: "seek", Status: "ok", Seek: &ms}, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "⏩ %s / %s\n", components.FormatDuration(target), components.FormatDuration(duration))
		return err
	})
}

// parsePosition accepts "90", "1:30", "1:02:03" or "90s". A leading sign
// marks the position as relative.
func parsePosition(s string) (time.Duration, bool, error) {
	s = strings.TrimSpace(s)
	relative := strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-")
	sign := time.Duration(1)
	if strings.HasPrefix(s, "-") {
		sign = -1
	}
	body := strings.TrimLeft(s, "+-")
	if body == "" {
		return 0, false, fmt.Errorf("invalid position %q", s)
	}

	if d, err := time.ParseDuration(body); err == nil {
		return sign * d, relative, nil
	}

	var total time.Duration
	for _, part := range strings.Split(body, ":") {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, false, fmt.Errorf("invalid position %q", s)
		}
		total = total*60 + time.Duration(n)*time.Second
	}
	return sign * total, relative, nil
}
