package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/tessro/startify/internal/core"
	"github.com/tessro/startify/internal/session"
	"github.com/tessro/startify/internal/tui/styles"
)

// System shows the heartbeat, the engine modules and the signed-in user.
type System struct{}

// NewSystem creates a new System component
func NewSystem() *System {
	return &System{}
}

// Render renders the system panel
func (s *System) Render(v *session.View, width, height int, focused bool) string {
	title := styles.PanelTitle("System", focused)

	lines := []string{s.heartbeat(v)}
	for _, m := range core.Modules {
		lines = append(lines, s.module(v, m))
	}
	if v != nil && v.Profile != nil && v.Profile.DisplayName != "" {
		lines = append(lines, "", styles.Dim.Render(styles.Truncate("Signed in as "+v.Profile.DisplayName, width-4)))
	}

	return styles.Panel(focused).
		Width(width).
		Height(height).
		Render(lipgloss.JoinVertical(lipgloss.Left, append([]string{title, ""}, lines...)...))
}

func (s *System) heartbeat(v *session.View) string {
	if v == nil || !v.Armed {
		status := styles.Dim.Render("○ disarmed")
		if v != nil && v.Health != nil {
			status += styles.Dim.Render(" (last: " + v.Health.String() + ")")
		}
		return status
	}
	if v.Health == nil {
		return styles.Playing.Render("● armed, healthy")
	}
	return styles.Danger.Render(fmt.Sprintf("● armed, error %d", v.Health.Code))
}

func (s *System) module(v *session.View, m core.Module) string {
	label := fmt.Sprintf("%-6s", m)
	if v == nil || !v.ModulesKnown {
		return label + styles.Dim.Render("…")
	}
	switch v.Modules.Phase(m) {
	case core.PhaseActive:
		return label + styles.Playing.Render("active")
	case core.PhaseInactive:
		return label + styles.Muted.Render("ready")
	default:
		return label + styles.Dim.Render("not ready")
	}
}
