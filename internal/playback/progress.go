package playback

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tessro/startify/internal/core"
)

// LocalProgress is an interpolation baseline. It is a value type so that a
// published view can carry it and render fresh positions without asking
// the owner.
type LocalProgress struct {
	Baseline   time.Duration `json:"baseline"`
	BaselineAt time.Time     `json:"baseline_at"`
	Playing    bool          `json:"playing"`
	Duration   time.Duration `json:"duration"`

	// Stale is set after a local skip until the next snapshot arrives. The
	// position of the new track is unknown, so At reports zero.
	Stale bool `json:"stale"`
}

// At returns the estimated playback position at now, clamped to [0, Duration].
// With no track loaded it is always zero.
func (p LocalProgress) At(now time.Time) time.Duration {
	if p.Stale || p.Duration <= 0 {
		return 0
	}
	pos := p.Baseline
	if p.Playing {
		if elapsed := now.Sub(p.BaselineAt); elapsed > 0 {
			pos += elapsed
		}
	}
	if pos < 0 {
		pos = 0
	}
	if pos > p.Duration {
		pos = p.Duration
	}
	return pos
}

// TrackDuration is the length of the track a seek would land in, or zero
// while that track is unknown.
func (p LocalProgress) TrackDuration() time.Duration {
	if p.Stale {
		return 0
	}
	return p.Duration
}

// Percent returns At(now) as a percentage of Duration, flooring the duration at 1ms.
func (p LocalProgress) Percent(now time.Time) float64 {
	return core.Percent(p.At(now), p.Duration)
}

// ProgressSimulator keeps the displayed position moving between snapshots.
// Every snapshot replaces the baseline wholesale; locally issued transport
// commands re-anchor it.
type ProgressSimulator struct {
	clock   clockwork.Clock
	current LocalProgress
}

// NewProgressSimulator creates a simulator reading time from clock.
func NewProgressSimulator(clock clockwork.Clock) *ProgressSimulator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ProgressSimulator{clock: clock}
}

// OnSnapshot resets the baseline. A nil snapshot resets to no session.
func (s *ProgressSimulator) OnSnapshot(snap *core.PlaybackSnapshot) {
	if !snap.HasTrack() {
		s.current = LocalProgress{BaselineAt: s.clock.Now()}
		return
	}
	s.current = LocalProgress{
		Baseline:   snap.Progress,
		BaselineAt: s.clock.Now(),
		Playing:    snap.IsPlaying,
		Duration:   snap.Track.Duration,
	}
}

// OnLocalTransport applies the optimistic effect of a command issued by
// this client.
func (s *ProgressSimulator) OnLocalTransport(cmd Command) {
	now := s.clock.Now()
	switch cmd.Kind {
	case CommandPlay, CommandPause:
		if s.current.Duration <= 0 {
			return
		}
		s.current.Baseline = s.current.At(now)
		s.current.BaselineAt = now
		s.current.Playing = cmd.Kind == CommandPlay
	case CommandNext, CommandPrevious:
		s.current.Stale = true
		s.current.Baseline = 0
		s.current.BaselineAt = now
	case CommandSeek:
		if s.current.Stale {
			return
		}
		s.current.Baseline = cmd.Position
		s.current.BaselineAt = now
	}
}

// Current returns the displayed position now. It does not mutate state.
func (s *ProgressSimulator) Current() time.Duration {
	return s.current.At(s.clock.Now())
}

// Percent returns the displayed percentage now.
func (s *ProgressSimulator) Percent() float64 {
	return s.current.Percent(s.clock.Now())
}

// Progress returns a copy of the current baseline.
func (s *ProgressSimulator) Progress() LocalProgress {
	return s.current
}
