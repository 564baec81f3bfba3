package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit        key.Binding
	Help        key.Binding
	NextPanel   key.Binding
	PrevPanel   key.Binding
	PlayPause   key.Binding
	Next        key.Binding
	Prev        key.Binding
	VolumeUp    key.Binding
	VolumeDown  key.Binding
	SeekBack    key.Binding
	SeekForward key.Binding
	Up          key.Binding
	Down        key.Binding
	Transfer    key.Binding
	Voice       key.Binding
	Hand        key.Binding
	Arm         key.Binding
	Dismiss     key.Binding
	Copy        key.Binding
	Refresh     key.Binding
}

var keys = keyMap{
	Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	NextPanel:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next panel")),
	PrevPanel:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous panel")),
	PlayPause:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
	Next:        key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
	Prev:        key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous")),
	VolumeUp:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
	VolumeDown:  key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "volume down")),
	SeekBack:    key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "back 10s")),
	SeekForward: key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "forward 10s")),
	Up:          key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
	Down:        key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
	Transfer:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "transfer here")),
	Voice:       key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "toggle voice")),
	Hand:        key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "toggle hand")),
	Arm:         key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "arm/disarm")),
	Dismiss:     key.NewBinding(key.WithKeys("d", "esc"), key.WithHelp("d", "dismiss error")),
	Copy:        key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy track")),
	Refresh:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Help, k.PlayPause, k.Next, k.Prev, k.VolumeUp, k.Arm, k.NextPanel}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Quit, k.Help, k.NextPanel, k.PrevPanel, k.Refresh, k.Copy},
		{k.PlayPause, k.Next, k.Prev, k.VolumeUp, k.VolumeDown, k.SeekBack, k.SeekForward},
		{k.Up, k.Down, k.Transfer},
		{k.Voice, k.Hand, k.Arm, k.Dismiss},
	}
}
