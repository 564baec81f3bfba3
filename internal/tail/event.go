package tail

import (
	"time"

	"github.com/tessro/startify/internal/core"
)

// EventType names a state change observed between two views.
type EventType string

const (
	EventTrackChange   EventType = "track_change"
	EventTrackComplete EventType = "track_complete"
	EventTrackSkip     EventType = "track_skip"
	EventPause         EventType = "pause"
	EventResume        EventType = "resume"
	EventVolumeChange  EventType = "volume_change"
	EventDeviceChange  EventType = "device_change"
	EventHealthRaised  EventType = "health_raised"
	EventHealthCleared EventType = "health_cleared"
	EventModuleChange  EventType = "module_change"
	EventLoggedOut     EventType = "logged_out"
)

// Event is a self-contained record of one change, suitable for printing,
// journaling and publishing.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// Track is the track playing after the change. For complete and skip
	// events Previous holds the track that ended.
	Track    *core.Track `json:"track,omitempty"`
	Previous *core.Track `json:"previous,omitempty"`

	Device *core.Device `json:"device,omitempty"`
	Volume int          `json:"volume"`

	Health *core.SystemHealth `json:"health,omitempty"`

	Module core.Module      `json:"module,omitempty"`
	Phase  core.ModulePhase `json:"phase,omitempty"`
}
