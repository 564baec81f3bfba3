package tail

import (
	"github.com/google/uuid"

	"github.com/tessro/startify/internal/core"
	"github.com/tessro/startify/internal/session"
)

// completeThreshold is the share of a track that must have played for a
// track change to count as a completion rather than a skip.
const completeThreshold = 0.95

// Differ turns a sequence of views into events. It is not safe for
// concurrent use.
type Differ struct {
	prev  *session.View
	newID func() string
}

// NewDiffer creates a Differ that has seen no view yet.
func NewDiffer() *Differ {
	return &Differ{newID: uuid.NewString}
}

// Next compares v with the previously seen view and returns the events
// between them. The first view yields events for what is already going on.
func (d *Differ) Next(v *session.View) []Event {
	if v == nil {
		return nil
	}
	prev := d.prev
	if prev != nil && v.Seq == prev.Seq {
		return nil
	}
	d.prev = v

	var events []Event
	emit := func(e Event) {
		e.ID = d.newID()
		e.Timestamp = v.UpdatedAt
		if e.Track == nil {
			e.Track = v.Track()
		}
		if e.Device == nil {
			e.Device = v.ActiveDevice
		}
		e.Volume = v.Volume()
		events = append(events, e)
	}

	if v.Status == session.StatusUnauthenticated {
		if prev == nil || prev.Status != session.StatusUnauthenticated {
			emit(Event{Type: EventLoggedOut})
		}
		return events
	}

	if prev == nil {
		if v.Track() != nil {
			emit(Event{Type: EventTrackChange})
		}
		if v.Health != nil {
			emit(Event{Type: EventHealthRaised, Health: v.Health})
		}
		return events
	}

	// Track change detection
	if trackChanged(prev.Track(), v.Track()) {
		eventType := EventTrackChange
		if prev.Track() != nil {
			if wasCompleted(prev, v) {
				eventType = EventTrackComplete
			} else {
				eventType = EventTrackSkip
			}
		}
		emit(Event{Type: eventType, Previous: prev.Track()})
	}

	// Pause/Resume detection. An emptied session is not a pause.
	if v.Track() != nil {
		if prev.IsPlaying() && !v.IsPlaying() {
			emit(Event{Type: EventPause})
		} else if !prev.IsPlaying() && v.IsPlaying() {
			emit(Event{Type: EventResume})
		}
	}

	if pv, cv := prev.Volume(), v.Volume(); pv >= 0 && cv >= 0 && pv != cv {
		emit(Event{Type: EventVolumeChange})
	}

	if deviceChanged(prev.ActiveDevice, v.ActiveDevice) {
		emit(Event{Type: EventDeviceChange})
	}

	switch {
	case prev.Health == nil && v.Health != nil:
		emit(Event{Type: EventHealthRaised, Health: v.Health})
	case prev.Health != nil && v.Health == nil:
		emit(Event{Type: EventHealthCleared, Health: prev.Health})
	case prev.Health != nil && v.Health != nil && *prev.Health != *v.Health:
		emit(Event{Type: EventHealthRaised, Health: v.Health})
	}

	if prev.ModulesKnown && v.ModulesKnown {
		for _, m := range core.Modules {
			if phase := v.Modules.Phase(m); phase != prev.Modules.Phase(m) {
				emit(Event{Type: EventModuleChange, Module: m, Phase: phase})
			}
		}
	}

	return events
}

func trackKey(t *core.Track) string {
	if t.ID != "" {
		return t.ID
	}
	return t.Title + "\x00" + t.Artist()
}

func trackChanged(prev, curr *core.Track) bool {
	if prev == nil && curr == nil {
		return false
	}
	if prev == nil || curr == nil {
		return true
	}
	return trackKey(prev) != trackKey(curr)
}

// wasCompleted reports whether the previous track had (by interpolation)
// nearly reached its end when the change was observed.
func wasCompleted(prev, curr *session.View) bool {
	t := prev.Track()
	if t == nil || t.Duration <= 0 {
		return false
	}
	played := prev.Position(curr.UpdatedAt)
	return float64(played) >= float64(t.Duration)*completeThreshold
}

func deviceChanged(prev, curr *core.Device) bool {
	if prev == nil && curr == nil {
		return false
	}
	if prev == nil || curr == nil {
		return true
	}
	return prev.ID != curr.ID
}
