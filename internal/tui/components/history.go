package components

import (
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/tessro/startify/internal/tail"
	"github.com/tessro/startify/internal/tui/styles"
)

// MaxHistory bounds the event feed.
const MaxHistory = 50

// History displays the most recent events, newest first.
type History struct {
	entries []tail.Event
}

// NewHistory creates a History seeded with earlier events, newest first.
func NewHistory(seed []tail.Event) *History {
	h := &History{}
	for i := len(seed) - 1; i >= 0; i-- {
		h.Add(seed[i])
	}
	return h
}

// Add prepends an event.
func (h *History) Add(e tail.Event) {
	h.entries = append([]tail.Event{e}, h.entries...)
	if len(h.entries) > MaxHistory {
		h.entries = h.entries[:MaxHistory]
	}
}

// Len returns the number of entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Render renders the history panel
func (h *History) Render(now time.Time, width, height int, focused bool) string {
	title := styles.PanelTitle("History", focused)

	var content string
	if len(h.entries) == 0 {
		content = styles.Muted.Render("No events yet")
	} else {
		content = h.renderEntries(now, width-4, height-4)
	}

	return styles.Panel(focused).
		Width(width).
		Height(height).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, "", content))
}

func (h *History) renderEntries(now time.Time, width, maxLines int) string {
	lines := make([]string, 0, maxLines)
	for i, e := range h.entries {
		if i >= maxLines {
			break
		}
		ago := TimeAgo(e.Timestamp, now)
		// icon, space, and a space before the age
		available := width - styles.Width(ago) - 4
		desc := styles.Truncate(tail.Describe(e), available)
		padding := max(width-styles.Width(desc)-styles.Width(ago)-3, 1)

		lines = append(lines, styles.Dim.Render("•")+" "+desc+
			lipgloss.NewStyle().Width(padding).Render("")+
			styles.Dim.Render(ago))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// TimeAgo renders t relative to now, e.g. "3 minutes ago".
func TimeAgo(t, now time.Time) string {
	if now.Sub(t) < time.Minute {
		return "now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
