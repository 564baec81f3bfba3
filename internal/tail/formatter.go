package tail

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/tessro/startify/internal/core"
)

// Formatter formats events for output.
type Formatter struct {
	showEmoji     bool
	showTimestamp bool
	template      *template.Template
}

// FormatterOption configures a Formatter.
type FormatterOption func(*Formatter)

// WithEmoji enables emoji output.
func WithEmoji(enabled bool) FormatterOption {
	return func(f *Formatter) {
		f.showEmoji = enabled
	}
}

// WithTimestamp enables timestamp output.
func WithTimestamp(enabled bool) FormatterOption {
	return func(f *Formatter) {
		f.showTimestamp = enabled
	}
}

// WithTemplate sets a custom format template. See TemplateData for the
// available fields.
func WithTemplate(tmpl *template.Template) FormatterOption {
	return func(f *Formatter) {
		f.template = tmpl
	}
}

// ParseTemplate compiles a --format template.
func ParseTemplate(text string) (*template.Template, error) {
	t, err := template.New("format").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid format template: %w", err)
	}
	return t, nil
}

// NewFormatter creates a new formatter with the given options.
func NewFormatter(opts ...FormatterOption) *Formatter {
	f := &Formatter{showEmoji: true}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format formats an event as a single line.
func (f *Formatter) Format(e Event) string {
	if f.template != nil {
		return f.formatTemplate(e)
	}
	return f.formatLine(e)
}

func (f *Formatter) formatLine(e Event) string {
	var parts []string
	if f.showTimestamp {
		parts = append(parts, e.Timestamp.Format("15:04:05"))
	}
	if f.showEmoji {
		parts = append(parts, eventEmoji(e.Type))
	}
	parts = append(parts, Describe(e))
	return strings.Join(parts, " ")
}

func (f *Formatter) formatTemplate(e Event) string {
	data := TemplateData{
		Type:      string(e.Type),
		Emoji:     eventEmoji(e.Type),
		Timestamp: e.Timestamp,
		Time:      e.Timestamp.Format("15:04:05"),
		Volume:    e.Volume,
		Module:    string(e.Module),
		Phase:     string(e.Phase),
	}
	if t := e.Track; t != nil {
		data.Title = t.Title
		data.Artist = t.Artist()
	}
	if e.Device != nil {
		data.Device = e.Device.Name
	}
	if e.Health != nil {
		data.Code = e.Health.Code
		data.Message = e.Health.Message
	}

	var buf bytes.Buffer
	if err := f.template.Execute(&buf, data); err != nil {
		return f.formatLine(e)
	}
	return buf.String()
}

// TemplateData is what a --format template sees.
type TemplateData struct {
	Type      string
	Emoji     string
	Timestamp time.Time
	Time      string
	Title     string
	Artist    string
	Device    string
	Volume    int
	Code      int
	Message   string
	Module    string
	Phase     string
}

func trackLabel(t *core.Track) string {
	if artist := t.Artist(); artist != "" {
		return artist + " - " + t.Title
	}
	return t.Title
}

// Describe returns a human-readable description of the event.
func Describe(e Event) string {
	switch e.Type {
	case EventTrackChange:
		if e.Track != nil {
			return "Now playing: " + trackLabel(e.Track)
		}
		return "Track changed"

	case EventTrackComplete:
		if e.Previous != nil {
			return "Finished: " + trackLabel(e.Previous)
		}
		return "Track completed"

	case EventTrackSkip:
		if e.Previous != nil {
			return "Skipped: " + trackLabel(e.Previous)
		}
		return "Track skipped"

	case EventPause:
		return "Paused"

	case EventResume:
		return "Resumed"

	case EventVolumeChange:
		return fmt.Sprintf("Volume: %d%%", e.Volume)

	case EventDeviceChange:
		if e.Device != nil {
			return "Device: " + e.Device.Name
		}
		return "No active device"

	case EventHealthRaised:
		return "System error: " + e.Health.String()

	case EventHealthCleared:
		return "System healthy"

	case EventModuleChange:
		return fmt.Sprintf("Module %s: %s", e.Module, strings.ReplaceAll(string(e.Phase), "_", " "))

	case EventLoggedOut:
		return "Session expired, run 'startify auth set-token'"

	default:
		return "Unknown event"
	}
}

func eventEmoji(t EventType) string {
	switch t {
	case EventTrackChange:
		return "🎵"
	case EventTrackComplete:
		return "✅"
	case EventTrackSkip:
		return "⏭️"
	case EventPause:
		return "⏸️"
	case EventResume:
		return "▶️"
	case EventVolumeChange:
		return "🔊"
	case EventDeviceChange:
		return "📱"
	case EventHealthRaised:
		return "🚨"
	case EventHealthCleared:
		return "💚"
	case EventModuleChange:
		return "🤖"
	case EventLoggedOut:
		return "🔒"
	default:
		return "❓"
	}
}
