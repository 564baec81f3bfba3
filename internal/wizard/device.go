package wizard

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tessro/startify/internal/core"
	"github.com/tessro/startify/internal/tui/styles"
)

// DeviceModel is the bubbletea model for the transfer target picker.
type DeviceModel struct {
	devices  []core.Device
	activeID string
	cursor   int
	selected *core.Device
	width    int
}

// NewDeviceModel creates a picker positioned on the first device that is
// not already playing.
func NewDeviceModel(devices []core.Device, activeID string) DeviceModel {
	m := DeviceModel{devices: devices, activeID: activeID, width: 80}
	for i, d := range devices {
		if d.ID != activeID {
			m.cursor = i
			break
		}
	}
	return m
}

// Init initializes the model.
func (m DeviceModel) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (m DeviceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			return m, tea.Quit

		case "enter", " ":
			if m.cursor < len(m.devices) {
				m.selected = &m.devices[m.cursor]
				return m, tea.Quit
			}

		case "up", "k", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}

		case "down", "j", "ctrl+n":
			if m.cursor < len(m.devices)-1 {
				m.cursor++
			}

		case "home", "g":
			m.cursor = 0

		case "end", "G":
			m.cursor = max(0, len(m.devices)-1)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
	}

	return m, nil
}

// View renders the model.
func (m DeviceModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("Transfer playback to"))
	b.WriteString("\n\n")

	if len(m.devices) == 0 {
		b.WriteString(styles.Muted.Render("No devices found"))
		b.WriteString("\n")
	}

	for i, d := range m.devices {
		marker := "  "
		if i == m.cursor {
			marker = styles.Highlight.Render("▸ ")
		}

		status := styles.Dim.Render("○")
		if d.ID == m.activeID {
			status = styles.Playing.Render("●")
		}

		line := fmt.Sprintf("%s %s %s", status, styles.DeviceIcon(d.Type), styles.Truncate(d.Name, m.width-16))
		if d.Type != "" {
			line += " " + styles.Dim.Render("("+string(d.Type)+")")
		}
		b.WriteString(marker + line + "\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.Dim.Render("↑/↓ navigate • enter select • esc cancel"))

	return b.String()
}

// Selected returns the chosen device, or nil if the picker was cancelled.
func (m DeviceModel) Selected() *core.Device {
	return m.selected
}

// RunDevicePicker runs the picker and returns the chosen device.
func RunDevicePicker(devices []core.Device, activeID string) (*core.Device, error) {
	p := tea.NewProgram(NewDeviceModel(devices, activeID))
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	return final.(DeviceModel).Selected(), nil
}
