package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/tessro/startify/internal/core"
	"github.com/tessro/startify/internal/tui/styles"
)

// Devices displays available playback devices
type Devices struct {
	selected int
}

// NewDevices creates a new Devices component
func NewDevices() *Devices {
	return &Devices{}
}

// SelectNext selects the next device
func (d *Devices) SelectNext(count int) {
	if d.selected < count-1 {
		d.selected++
	}
}

// SelectPrev selects the previous device
func (d *Devices) SelectPrev() {
	if d.selected > 0 {
		d.selected--
	}
}

// Selected returns the selected device, or nil when there is none.
func (d *Devices) Selected(devices []core.Device) *core.Device {
	if len(devices) == 0 {
		return nil
	}
	d.clamp(len(devices))
	return &devices[d.selected]
}

func (d *Devices) clamp(n int) {
	if d.selected >= n {
		d.selected = n - 1
	}
	if d.selected < 0 {
		d.selected = 0
	}
}

// Render renders the devices panel. The active device is marked with a dot;
// a device awaiting transfer confirmation with an hourglass.
func (d *Devices) Render(devices []core.Device, active *core.Device, pending string, width, height int, focused bool) string {
	title := styles.PanelTitle("Devices", focused)

	var content string
	if len(devices) == 0 {
		content = styles.Muted.Render("No devices found")
	} else {
		content = d.renderDevices(devices, active, pending, width-4, height-4, focused)
	}

	return styles.Panel(focused).
		Width(width).
		Height(height).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, "", content))
}

func (d *Devices) renderDevices(devices []core.Device, active *core.Device, pending string, width, maxLines int, focused bool) string {
	d.clamp(len(devices))
	lines := make([]string, 0, len(devices))

	for i, device := range devices {
		if len(lines) >= maxLines {
			break
		}

		selector := "  "
		if focused && i == d.selected {
			selector = "▸ "
		}

		marker := ""
		switch {
		case active != nil && device.ID == active.ID:
			marker = styles.Playing.Render(" ●")
		case device.ID == pending:
			marker = styles.Paused.Render(" ⏳")
		}

		name := styles.Truncate(device.Name, width-8)
		if focused && i == d.selected {
			name = styles.Highlight.Render(name)
		}

		lines = append(lines, fmt.Sprintf("%s%s %s%s", selector, styles.DeviceIcon(device.Type), name, marker))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
