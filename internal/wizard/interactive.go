package wizard

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/tessro/startify/internal/core"
)

// Interactive decides whether prompts may be shown and runs them.
type Interactive struct {
	enabled bool
	isTTY   func() bool
}

// NewInteractive creates a new interactive handler.
func NewInteractive() *Interactive {
	return &Interactive{enabled: true, isTTY: IsTerminal}
}

// SetEnabled enables or disables interactive mode.
func (i *Interactive) SetEnabled(enabled bool) {
	i.enabled = enabled
}

// IsTerminal returns true if both stdin and stdout are terminals.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && isatty.IsTerminal(os.Stdin.Fd())
}

// CanInteract returns true if interactive mode is available.
func (i *Interactive) CanInteract() bool {
	return i.enabled && i.isTTY()
}

// PromptDevice asks for a transfer target. It returns nil when prompts are
// unavailable or the user cancels.
func (i *Interactive) PromptDevice(devices []core.Device, activeID string) (*core.Device, error) {
	if !i.CanInteract() {
		return nil, nil
	}
	return RunDevicePicker(devices, activeID)
}

// ModuleChoice is the outcome of the module prompt.
type ModuleChoice struct {
	Module core.Module
	Active bool
}

// PromptModule asks which module to switch and in which direction. The
// direction defaults to the inverse of the current state.
func (i *Interactive) PromptModule(state core.EngineModuleState) (*ModuleChoice, error) {
	if !i.CanInteract() {
		return nil, nil
	}

	options := make([]huh.Option[string], 0, len(core.Modules))
	for _, m := range core.Modules {
		label := fmt.Sprintf("%s (%s)", m, state.Phase(m))
		options = append(options, huh.NewOption(label, string(m)))
	}

	var name string
	if err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select module").
				Options(options...).
				Value(&name),
		),
	).Run(); err != nil {
		return nil, fmt.Errorf("selection cancelled: %w", err)
	}

	mod, err := core.ParseModule(name)
	if err != nil {
		return nil, err
	}

	active := !state.Active(mod)
	if err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Turn %s module", mod)).
				Affirmative("On").
				Negative("Off").
				Value(&active),
		),
	).Run(); err != nil {
		return nil, fmt.Errorf("selection cancelled: %w", err)
	}

	return &ModuleChoice{Module: mod, Active: active}, nil
}
