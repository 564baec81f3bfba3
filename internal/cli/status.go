package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tessro/startify/internal/backend/client"
	"github.com/tessro/startify/internal/core"
	apperrors "github.com/tessro/startify/internal/errors"
	"github.com/tessro/startify/internal/health"
	"github.com/tessro/startify/internal/tui/components"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current playback status",
	Long: `Shows the current track, device, engine modules and system health.

Each backend endpoint is queried independently; failures are reported
alongside whatever could be fetched.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

type statusResult struct {
	Playing    bool               `json:"playing" yaml:"playing"`
	Track      *core.Track        `json:"track,omitempty" yaml:"track,omitempty"`
	Progress   time.Duration      `json:"-" yaml:"-"`
	ProgressMs int64              `json:"progress_ms" yaml:"progress_ms"`
	Device     *core.Device       `json:"device,omitempty" yaml:"device,omitempty"`
	Modules    map[string]string  `json:"modules,omitempty" yaml:"modules,omitempty"`
	Health     *core.SystemHealth `json:"health,omitempty" yaml:"health,omitempty"`
	Profile    *core.Profile      `json:"profile,omitempty" yaml:"profile,omitempty"`
	Errors     []string           `json:"errors,omitempty" yaml:"errors,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	rem, err := newRemote()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd.Context())
	defer cancel()

	res := collectStatus(ctx, rem)
	if res.HasErrors() && Verbose() {
		fmt.Fprintf(os.Stderr, "partial status: %s\n", res.ErrorSummary())
	}

	out := res.Data
	out.ProgressMs = out.Progress.Milliseconds()
	for _, e := range res.Errors {
		out.Errors = append(out.Errors, e.Error())
	}

	if err := render(cmd.OutOrStdout(), out, func(w io.Writer) error {
		return printStatus(w, res.Data, res.Errors)
	}); err != nil {
		return err
	}
	for _, e := range res.Errors {
		if client.IsUnauthorized(e) {
			return apperrors.ErrNotAuthenticated
		}
	}
	return nil
}

// collectStatus queries every endpoint. A 401 anywhere aborts the rest.
func collectStatus(ctx context.Context, rem core.Remote) *apperrors.PartialResult[statusResult] {
	res := &apperrors.PartialResult[statusResult]{}

	snap, err := rem.Snapshot(ctx)
	if client.IsUnauthorized(err) {
		res.AddError(apperrors.WithSuggestion(err, "The stored credential was rejected; run 'startify auth set-token'"))
		return res
	}
	if err != nil {
		res.AddError(fmt.Errorf("playback: %w", err))
	} else if snap != nil {
		res.Data.Playing = snap.IsPlaying
		res.Data.Track = snap.Track
		res.Data.Progress = snap.Progress
		res.Data.Device = snap.Device
	}

	if snap == nil || snap.Device == nil {
		if devices, err := rem.Devices(ctx); err != nil {
			res.AddError(fmt.Errorf("devices: %w", err))
		} else {
			for i := range devices {
				if devices[i].IsActive {
					res.Data.Device = &devices[i]
					break
				}
			}
		}
	}

	if mods, err := rem.Modules(ctx); err != nil {
		res.AddError(fmt.Errorf("modules: %w", err))
	} else {
		res.Data.Modules = make(map[string]string, len(core.Modules))
		for _, m := range core.Modules {
			res.Data.Modules[string(m)] = string(mods.Phase(m))
		}
	}

	res.Data.Health = health.Probe(ctx, rem)

	if p, err := rem.Profile(ctx); err == nil {
		res.Data.Profile = p
	}
	return res
}

func printStatus(w io.Writer, s statusResult, errs []error) error {
	if s.Profile != nil && s.Profile.DisplayName != "" {
		fmt.Fprintf(w, "%s %s\n", paint(dimStyle, "Signed in as"), s.Profile.DisplayName)
	}

	if s.Track == nil {
		fmt.Fprintln(w, "No active playback")
	} else {
		icon := "⏸"
		if s.Playing {
			icon = "▶"
		}
		fmt.Fprintf(w, "%s %s\n", icon, paint(boldStyle, s.Track.Title))
		if a := s.Track.Artist(); a != "" {
			fmt.Fprintf(w, "  %s\n", a)
		}
		fmt.Fprintf(w, "  %s %s / %s\n",
			FormatProgress(int(s.Progress.Milliseconds()), int(s.Track.Duration.Milliseconds()), 30),
			components.FormatDuration(s.Progress),
			components.FormatDuration(s.Track.Duration))
	}

	if s.Device != nil {
		fmt.Fprintf(w, "\nDevice: %s (%s), volume %d%%\n", s.Device.Name, s.Device.Type, s.Device.VolumePercent)
	}

	if len(s.Modules) > 0 {
		fmt.Fprintln(w)
		for _, m := range core.Modules {
			phase := s.Modules[string(m)]
			fmt.Fprintf(w, "%s %-6s %s\n", StatusIcon(phase == string(core.PhaseActive)), m, phase)
		}
	}

	fmt.Fprintln(w)
	if s.Health == nil {
		fmt.Fprintf(w, "Health: %s\n", paint(greenStyle, "ok"))
	} else {
		fmt.Fprintf(w, "Health: %s\n", paint(redStyle, s.Health.String()))
	}

	for _, err := range errs {
		fmt.Fprintf(w, "%s %v\n", paint(redStyle, "!"), err)
	}
	return nil
}
