package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tessro/startify/internal/core"
	apperrors "github.com/tessro/startify/internal/errors"
	"github.com/tessro/startify/internal/session"
	"github.com/tessro/startify/internal/tail"
	"github.com/tessro/startify/internal/tui/components"
	"github.com/tessro/startify/internal/tui/styles"
)

// Panel represents which panel is focused
type Panel int

const (
	PanelNowPlaying Panel = iota
	PanelDevices
	PanelSystem
	PanelHistory
	panelCount
)

const (
	volumeStep = 5
	seekStep   = 10 * time.Second
	errorTTL   = 5 * time.Second
)

// Controller is the part of *session.Session the UI drives.
type Controller interface {
	View() *session.View
	Subscribe() (<-chan *session.View, func())
	TogglePlayback() error
	Next() error
	Previous() error
	SetVolume(percent int) error
	Seek(position time.Duration) error
	Transfer(deviceID string) error
	ToggleModule(m core.Module, active bool) error
	Arm() error
	Disarm() error
	Dismiss()
	Refresh()
}

// Options configures the UI.
type Options struct {
	RefreshInterval time.Duration
	Theme           string
	// History seeds the history panel, newest first.
	History []tail.Event
	// OnEvent receives every event the UI derives, e.g. to journal it.
	OnEvent func(tail.Event)
	// Copy writes to the system clipboard. Defaults to clipboard.WriteAll.
	Copy func(string) error
	Now  func() time.Time
}

// Model is the main TUI model
type Model struct {
	ctl    Controller
	opts   Options
	views  <-chan *session.View
	cancel func()

	width        int
	height       int
	focusedPanel Panel

	view   *session.View
	now    time.Time
	differ *tail.Differ

	nowPlaying  *components.NowPlaying
	devicesView *components.Devices
	systemView  *components.System
	historyView *components.History
	help        help.Model

	showHelp bool

	lastError   error
	errorExpiry time.Time
	notice      string

	quitting bool
}

// NewModel creates a new TUI model subscribed to ctl.
func NewModel(ctl Controller, opts Options) Model {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 250 * time.Millisecond
	}
	if opts.Copy == nil {
		opts.Copy = clipboard.WriteAll
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	styles.Apply(opts.Theme)

	views, cancel := ctl.Subscribe()
	return Model{
		ctl:          ctl,
		opts:         opts,
		views:        views,
		cancel:       cancel,
		focusedPanel: PanelNowPlaying,
		view:         ctl.View(),
		now:          opts.Now(),
		differ:       tail.NewDiffer(),
		nowPlaying:   components.NewNowPlaying(),
		devicesView:  components.NewDevices(),
		systemView:   components.NewSystem(),
		historyView:  components.NewHistory(opts.History),
		help:         help.New(),
	}
}

// Messages
type tickMsg time.Time
type viewMsg *session.View
type sessionClosedMsg struct{}
type errMsg struct{ err error }
type noticeMsg string

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.opts.RefreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForView blocks until the session publishes. Subscriptions coalesce, so
// a slow UI only ever sees the newest view.
func (m Model) waitForView() tea.Cmd {
	views := m.views
	return func() tea.Msg {
		v, ok := <-views
		if !ok {
			return sessionClosedMsg{}
		}
		return viewMsg(v)
	}
}

// do runs a session call off the update loop and reports failures.
func do(fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tick(), m.waitForView())
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		m.now = m.opts.Now()
		if m.lastError != nil && m.now.After(m.errorExpiry) {
			m.lastError = nil
			m.notice = ""
		}
		return m, m.tick()

	case viewMsg:
		m.view = msg
		m.now = m.opts.Now()
		for _, e := range m.differ.Next(msg) {
			m.historyView.Add(e)
			if m.opts.OnEvent != nil {
				m.opts.OnEvent(e)
			}
		}
		return m, m.waitForView()

	case sessionClosedMsg:
		m.quitting = true
		return m, tea.Quit

	case errMsg:
		m.lastError = msg.err
		m.notice = ""
		m.errorExpiry = m.opts.Now().Add(errorTTL)
		return m, nil

	case noticeMsg:
		m.notice = string(msg)
		m.lastError = nil
		m.errorExpiry = m.opts.Now().Add(errorTTL)
		return m, nil
	}

	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Quit) {
		m.quitting = true
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit
	}

	if m.showHelp {
		if key.Matches(msg, keys.Help) || msg.String() == "esc" {
			m.showHelp = false
		}
		return m, nil
	}

	if m.view != nil && m.view.Status == session.StatusUnauthenticated {
		return m, nil
	}

	// The health overlay captures the dismiss key.
	if m.healthOverlay() && key.Matches(msg, keys.Dismiss) {
		return m, func() tea.Msg { m.ctl.Dismiss(); return nil }
	}

	switch {
	case key.Matches(msg, keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, keys.NextPanel):
		m.focusedPanel = (m.focusedPanel + 1) % panelCount
		return m, nil
	case key.Matches(msg, keys.PrevPanel):
		m.focusedPanel = (m.focusedPanel + panelCount - 1) % panelCount
		return m, nil

	case key.Matches(msg, keys.PlayPause):
		return m, do(m.ctl.TogglePlayback)
	case key.Matches(msg, keys.Next):
		return m, do(m.ctl.Next)
	case key.Matches(msg, keys.Prev):
		return m, do(m.ctl.Previous)
	case key.Matches(msg, keys.VolumeUp):
		return m, m.changeVolume(volumeStep)
	case key.Matches(msg, keys.VolumeDown):
		return m, m.changeVolume(-volumeStep)
	case key.Matches(msg, keys.SeekBack):
		return m, m.seekBy(-seekStep)
	case key.Matches(msg, keys.SeekForward):
		return m, m.seekBy(seekStep)

	case key.Matches(msg, keys.Voice):
		return m, m.toggleModule(core.ModuleVoice)
	case key.Matches(msg, keys.Hand):
		return m, m.toggleModule(core.ModuleHand)
	case key.Matches(msg, keys.Arm):
		if m.view != nil && m.view.Armed {
			return m, do(m.ctl.Disarm)
		}
		return m, do(m.ctl.Arm)
	case key.Matches(msg, keys.Copy):
		return m, m.copyTrack()
	case key.Matches(msg, keys.Refresh):
		return m, func() tea.Msg { m.ctl.Refresh(); return nil }
	}

	if m.focusedPanel == PanelDevices {
		devices := m.devices()
		switch {
		case key.Matches(msg, keys.Down):
			m.devicesView.SelectNext(len(devices))
		case key.Matches(msg, keys.Up):
			m.devicesView.SelectPrev()
		case key.Matches(msg, keys.Transfer):
			if d := m.devicesView.Selected(devices); d != nil {
				id := d.ID
				return m, do(func() error { return m.ctl.Transfer(id) })
			}
		}
	}

	return m, nil
}

func (m Model) devices() []core.Device {
	if m.view == nil {
		return nil
	}
	return m.view.Devices
}

func (m Model) changeVolume(delta int) tea.Cmd {
	vol := m.view.Volume()
	if vol < 0 {
		return func() tea.Msg { return errMsg{apperrors.ErrNoActiveDevice} }
	}
	target := max(0, min(100, vol+delta))
	return do(func() error { return m.ctl.SetVolume(target) })
}

func (m Model) seekBy(delta time.Duration) tea.Cmd {
	t := m.view.Track()
	if t == nil {
		return func() tea.Msg { return errMsg{apperrors.ErrNoActiveTrack} }
	}
	target := max(0, min(t.Duration, m.view.Position(m.opts.Now())+delta))
	return do(func() error { return m.ctl.Seek(target) })
}

func (m Model) toggleModule(mod core.Module) tea.Cmd {
	active := true
	if m.view != nil {
		active = !m.view.Modules.Active(mod)
	}
	return do(func() error { return m.ctl.ToggleModule(mod, active) })
}

func (m Model) copyTrack() tea.Cmd {
	t := m.view.Track()
	if t == nil {
		return func() tea.Msg { return errMsg{apperrors.ErrNoActiveTrack} }
	}
	text := t.Title
	if a := t.Artist(); a != "" {
		text = a + " - " + t.Title
	}
	copyFn := m.opts.Copy
	return func() tea.Msg {
		if err := copyFn(text); err != nil {
			return errMsg{fmt.Errorf("copy to clipboard: %w", err)}
		}
		return noticeMsg("Copied: " + text)
	}
}

func (m Model) healthOverlay() bool {
	return m.view != nil && m.view.Health != nil
}

// View renders the UI
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}
	if m.showHelp {
		return m.center(styles.BorderStyle.Padding(1, 2).Render(
			styles.Highlight.Render("Startify - Keyboard Shortcuts") + "\n\n" + m.help.FullHelpView(keys.FullHelp())))
	}
	if m.view != nil && m.view.Status == session.StatusUnauthenticated {
		return m.renderUnauthenticated()
	}
	if m.healthOverlay() {
		return m.renderHealth()
	}

	// Left: Now Playing (top), History (bottom)
	// Right: Devices (top), System (bottom)
	leftWidth := m.width * 60 / 100
	rightWidth := m.width - leftWidth - 2
	topHeight := m.height * 45 / 100
	bottomHeight := m.height - topHeight - 3

	nowPlaying := m.nowPlaying.Render(m.view, m.now, leftWidth-2, topHeight-2, m.focusedPanel == PanelNowPlaying)
	history := m.historyView.Render(m.now, leftWidth-2, bottomHeight-2, m.focusedPanel == PanelHistory)
	devices := m.devicesView.Render(m.devices(), m.activeDevice(), m.pendingTransfer(), rightWidth-2, topHeight-2, m.focusedPanel == PanelDevices)
	system := m.systemView.Render(m.view, rightWidth-2, bottomHeight-2, m.focusedPanel == PanelSystem)

	leftCol := lipgloss.JoinVertical(lipgloss.Left, nowPlaying, history)
	rightCol := lipgloss.JoinVertical(lipgloss.Left, devices, system)
	main := lipgloss.JoinHorizontal(lipgloss.Top, leftCol, rightCol)

	return lipgloss.JoinVertical(lipgloss.Left, main, m.renderStatusBar())
}

func (m Model) activeDevice() *core.Device {
	if m.view == nil {
		return nil
	}
	return m.view.ActiveDevice
}

func (m Model) pendingTransfer() string {
	if m.view == nil {
		return ""
	}
	return m.view.PendingTransfer
}

func (m Model) renderStatusBar() string {
	status := m.help.ShortHelpView(keys.ShortHelp())
	switch {
	case m.lastError != nil:
		status = styles.Danger.Render("Error: " + m.lastError.Error())
	case m.notice != "":
		status = styles.Playing.Render(m.notice)
	}
	return lipgloss.NewStyle().Width(m.width).Padding(0, 1).Render(status)
}

func (m Model) renderHealth() string {
	h := m.view.Health
	var b strings.Builder
	b.WriteString(styles.Danger.Render(fmt.Sprintf("System error %d", h.Code)))
	b.WriteString("\n\n")
	b.WriteString(styles.Title.Render(h.Message))
	if h.DevInfo != "" {
		b.WriteString("\n\n")
		b.WriteString(styles.Dim.Render(styles.Truncate(h.DevInfo, 200)))
	}
	b.WriteString("\n\n")
	b.WriteString(styles.Muted.Render("d: dismiss   a: disarm   q: quit"))

	return m.center(styles.AlertBorder.Width(min(60, m.width-4)).Padding(1, 2).Render(b.String()))
}

func (m Model) renderUnauthenticated() string {
	body := styles.Danger.Render("Signed out") + "\n\n" +
		styles.Title.Render("The backend rejected the session token.") + "\n\n" +
		styles.Muted.Render("Run 'startify auth set-token' and start the UI again.") + "\n\n" +
		styles.Dim.Render("q: quit")
	return m.center(styles.AlertBorder.Padding(1, 2).Render(body))
}

func (m Model) center(s string) string {
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(s)
}

// Run starts the TUI application and blocks until it exits.
func Run(ctx context.Context, ctl Controller, opts Options) error {
	model := NewModel(ctl, opts)
	defer model.cancel()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
