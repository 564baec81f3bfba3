package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tessro/startify/internal/core"
	apperrors "github.com/tessro/startify/internal/errors"
	"github.com/tessro/startify/internal/health"
	"github.com/tessro/startify/internal/modules"
	"github.com/tessro/startify/internal/wizard"
)

var modulesCmd = &cobra.Command{
	Use:     "modules",
	Aliases: []string{"engine"},
	Short:   "Show voice and hand module status",
	Args:    cobra.NoArgs,
	RunE:    runModules,
}

var modulesToggleCmd = &cobra.Command{
	Use:   "toggle [voice|hand] [on|off]",
	Short: "Turn an engine module on or off",
	Long: `Turn an engine module on or off.

A module can only be switched once the engine reports it ready. With no
arguments a form is shown; with only the module name its state is
inverted.`,
	Args:      cobra.MaximumNArgs(2),
	ValidArgs: []string{"voice", "hand"},
	RunE:      runModulesToggle,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the backend's reported system health",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func init() {
	modulesCmd.AddCommand(modulesToggleCmd)
	rootCmd.AddCommand(modulesCmd, healthCmd)
}

type moduleStatus struct {
	Module string `json:"module" yaml:"module"`
	Ready  bool   `json:"ready" yaml:"ready"`
	Active bool   `json:"active" yaml:"active"`
	Phase  string `json:"phase" yaml:"phase"`
}

func describeModules(state core.EngineModuleState) []moduleStatus {
	out := make([]moduleStatus, 0, len(core.Modules))
	for _, m := range core.Modules {
		out = append(out, moduleStatus{
			Module: string(m),
			Ready:  state.Ready(m),
			Active: state.Active(m),
			Phase:  string(state.Phase(m)),
		})
	}
	return out
}

func runModules(cmd *cobra.Command, args []string) error {
	rem, err := newRemote()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd.Context())
	defer cancel()

	state, err := rem.Modules(ctx)
	if err != nil {
		return fmt.Errorf("failed to get module status: %w", err)
	}

	return render(cmd.OutOrStdout(), describeModules(state), func(w io.Writer) error {
		t := NewTable(w, "", "MODULE", "PHASE")
		for _, s := range describeModules(state) {
			t.Row(StatusIcon(s.Active), s.Module, s.Phase)
		}
		t.Flush()
		return nil
	})
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on", "true", "1", "start":
		return true, nil
	case "off", "false", "0", "stop":
		return false, nil
	}
	return false, fmt.Errorf("invalid state %q: want on or off", s)
}

func runModulesToggle(cmd *cobra.Command, args []string) error {
	rem, err := newRemote()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd.Context())
	defer cancel()

	state, err := rem.Modules(ctx)
	if err != nil {
		return fmt.Errorf("failed to get module status: %w", err)
	}

	var (
		mod    core.Module
		active bool
	)
	switch len(args) {
	case 0:
		choice, err := wizard.NewInteractive().PromptModule(state)
		if err != nil {
			return err
		}
		if choice == nil {
			return fmt.Errorf("specify a module: voice or hand")
		}
		mod, active = choice.Module, choice.Active
	default:
		if mod, err = core.ParseModule(args[0]); err != nil {
			return fmt.Errorf("%w: %q", apperrors.ErrUnknownModule, args[0])
		}
		active = !state.Active(mod)
		if len(args) == 2 {
			if active, err = parseOnOff(args[1]); err != nil {
				return err
			}
		}
	}

	ctl := modules.NewController()
	ctl.OnStatus(modules.StatusResult{Value: state})
	if err := ctl.BeginToggle(mod, active); err != nil {
		return err
	}
	if err := modules.Send(ctx, rem, mod, active, logger, nil); err != nil {
		return fmt.Errorf("failed to toggle %s: %w", mod, err)
	}

	result := describeModules(ctl.State())
	return render(cmd.OutOrStdout(), result, func(w io.Writer) error {
		verb := "off"
		if active {
			verb = "on"
		}
		_, err := fmt.Fprintf(w, "%s module turned %s\n", mod, verb)
		return err
	})
}

type healthResult struct {
	Healthy bool               `json:"healthy" yaml:"healthy"`
	Health  *core.SystemHealth `json:"health,omitempty" yaml:"health,omitempty"`
}

func runHealth(cmd *cobra.Command, args []string) error {
	rem, err := newRemote()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd.Context())
	defer cancel()

	h := health.Probe(ctx, rem)
	return render(cmd.OutOrStdout(), healthResult{Healthy: h == nil, Health: h}, func(w io.Writer) error {
		if h == nil {
			_, err := fmt.Fprintln(w, paint(greenStyle, "✓ System healthy"))
			return err
		}
		fmt.Fprintf(w, "%s %d %s\n", paint(redStyle, "✗"), h.Code, h.Message)
		if h.DevInfo != "" && Verbose() {
			fmt.Fprintln(w, paint(dimStyle, h.DevInfo))
		}
		return nil
	})
}
