package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tessro/startify/internal/session"
	"github.com/tessro/startify/internal/tui/styles"
)

// NowPlaying displays the currently playing track
type NowPlaying struct{}

// NewNowPlaying creates a new NowPlaying component
func NewNowPlaying() *NowPlaying {
	return &NowPlaying{}
}

// Render renders the now playing panel. Progress is interpolated to now.
func (n *NowPlaying) Render(v *session.View, now time.Time, width, height int, focused bool) string {
	title := styles.PanelTitle("Now Playing", focused)

	var content string
	if v.Track() == nil {
		content = styles.Muted.Render("Nothing playing")
		if v != nil && v.LastError != "" {
			content += "\n" + styles.Dim.Render(styles.Truncate(v.LastError, width-4))
		}
	} else {
		content = n.renderTrack(v, now, width-4)
	}

	return styles.Panel(focused).
		Width(width).
		Height(height).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, "", content))
}

func (n *NowPlaying) renderTrack(v *session.View, now time.Time, width int) string {
	track := v.Track()

	icon := styles.StatusIcon(v.IsPlaying())
	title := styles.Title.Render(styles.Truncate(track.Title, width-2))
	artist := styles.Subtitle.Render(styles.Truncate(track.Artist(), width-2))

	progressWidth := max(width-14, 10)
	var position string
	if v.Progress.Stale {
		position = "-:--"
	} else {
		position = FormatDuration(v.Position(now))
	}
	progress := fmt.Sprintf("%s %s %s",
		position,
		styles.ProgressBar(v.Percent(now), progressWidth),
		FormatDuration(track.Duration))

	deviceInfo := styles.Dim.Render("No active device")
	if d := v.ActiveDevice; d != nil {
		info := fmt.Sprintf("%s %s  🔊 %d%%", styles.DeviceIcon(d.Type), d.Name, d.VolumePercent)
		deviceInfo = styles.Muted.Render(styles.Truncate(info, width))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		icon+" "+title,
		"  "+artist,
		"",
		progress,
		"",
		deviceInfo,
		n.renderControls(v),
	)
}

func (n *NowPlaying) renderControls(v *session.View) string {
	controls := styles.Dim.Render("⏮ ")
	if v.IsPlaying() {
		controls += styles.Playing.Render("⏸")
	} else {
		controls += styles.Paused.Render("▶")
	}
	controls += styles.Dim.Render(" ⏭")
	return lipgloss.NewStyle().Align(lipgloss.Center).Render(controls)
}

// FormatDuration formats d as m:ss.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%d:%02d", m, s)
}
