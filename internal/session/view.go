package session

import (
	"time"

	"github.com/tessro/startify/internal/core"
	"github.com/tessro/startify/internal/playback"
)

// Status is the session lifecycle state.
type Status string

const (
	StatusStopped         Status = "stopped"
	StatusRunning         Status = "running"
	StatusUnauthenticated Status = "unauthenticated"
)

// View is an immutable picture of everything the control surface shows.
// Values reachable from a View are never modified after publication.
type View struct {
	Seq       uint64    `json:"seq"`
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`

	Snapshot *core.PlaybackSnapshot `json:"snapshot"`
	Progress playback.LocalProgress `json:"progress"`

	Devices         []core.Device `json:"devices"`
	ActiveDevice    *core.Device  `json:"active_device"`
	PendingTransfer string        `json:"pending_transfer,omitempty"`

	Armed  bool               `json:"armed"`
	Health *core.SystemHealth `json:"health"`

	Modules      core.EngineModuleState `json:"modules"`
	ModulesKnown bool                   `json:"modules_known"`

	Profile *core.Profile `json:"profile,omitempty"`

	// LastError describes the most recent failed snapshot poll. It is
	// cleared by the next successful one.
	LastError   string    `json:"last_error,omitempty"`
	LastErrorAt time.Time `json:"last_error_at,omitempty"`
}

// Track returns the current track, or nil.
func (v *View) Track() *core.Track {
	if v == nil || v.Snapshot == nil {
		return nil
	}
	return v.Snapshot.Track
}

// IsPlaying reports the optimistic playing flag.
func (v *View) IsPlaying() bool {
	return v != nil && v.Progress.Playing
}

// Position returns the interpolated position at now.
func (v *View) Position(now time.Time) time.Duration {
	if v == nil {
		return 0
	}
	return v.Progress.At(now)
}

// Percent returns the interpolated progress percentage at now.
func (v *View) Percent(now time.Time) float64 {
	if v == nil {
		return 0
	}
	return v.Progress.Percent(now)
}

// Volume returns the active device's volume, or -1 when unknown.
func (v *View) Volume() int {
	if v == nil || v.ActiveDevice == nil {
		return -1
	}
	return v.ActiveDevice.VolumePercent
}
