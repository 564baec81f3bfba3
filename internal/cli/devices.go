package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tessro/startify/internal/core"
	apperrors "github.com/tessro/startify/internal/errors"
	"github.com/tessro/startify/internal/playback"
	"github.com/tessro/startify/internal/wizard"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List available playback devices",
	Args:  cobra.NoArgs,
	RunE:  runDevices,
}

var transferCmd = &cobra.Command{
	Use:   "transfer [device]",
	Short: "Move playback to another device",
	Long: `Transfer playback to a device by ID or name.

Without an argument, an interactive picker is shown when running in a
terminal.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTransfer,
}

func init() {
	devicesCmd.AddCommand(transferCmd)
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	rem, err := newRemote()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd.Context())
	defer cancel()

	devices, err := rem.Devices(ctx)
	if err != nil {
		return fmt.Errorf("failed to get devices: %w", err)
	}
	if devices == nil {
		devices = []core.Device{}
	}

	return render(cmd.OutOrStdout(), devices, func(w io.Writer) error {
		if len(devices) == 0 {
			_, err := fmt.Fprintln(w, "No devices found")
			return err
		}
		t := NewTable(w, "", "NAME", "TYPE", "VOLUME", "ID")
		for _, d := range devices {
			t.Row(StatusIcon(d.IsActive), d.Name, string(d.Type), strconv.Itoa(d.VolumePercent)+"%", d.ID)
		}
		t.Flush()
		return nil
	})
}

// findDevice matches by exact ID first, then by case-insensitive name.
func findDevice(devices []core.Device, query string) (*core.Device, error) {
	for i := range devices {
		if devices[i].ID == query {
			return &devices[i], nil
		}
	}
	var matches []*core.Device
	for i := range devices {
		if strings.EqualFold(devices[i].Name, query) {
			matches = append(matches, &devices[i])
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%q: %w", query, apperrors.ErrDeviceNotFound)
	case 1:
		return matches[0], nil
	}
	return nil, fmt.Errorf("%q matches %d devices; use the device ID", query, len(matches))
}

func runTransfer(cmd *cobra.Command, args []string) error {
	rem, err := newRemote()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd.Context())
	devices, err := rem.Devices(ctx)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to get devices: %w", err)
	}

	var target *core.Device
	if len(args) == 1 {
		if target, err = findDevice(devices, args[0]); err != nil {
			return err
		}
	} else {
		if len(devices) == 0 {
			return apperrors.WithSuggestion(apperrors.ErrDeviceNotFound, "Open the player on a device so it registers with the backend")
		}
		activeID := ""
		for _, d := range devices {
			if d.IsActive {
				activeID = d.ID
			}
		}
		target, err = wizard.NewInteractive().PromptDevice(devices, activeID)
		if err != nil {
			return err
		}
		if target == nil {
			return fmt.Errorf("no device selected; pass a device ID or name")
		}
	}

	if err := dispatch(cmd, rem, playback.Command{Kind: playback.CommandTransfer, DeviceID: target.ID}, 0); err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), target, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Transferring playback to %s\n", target.Name)
		return err
	})
}
