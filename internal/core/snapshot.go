package core

import "time"

// PlaybackSnapshot is one authoritative observation of the remote player.
// Snapshots are immutable once produced and are superseded wholesale by the
// next one. A nil *PlaybackSnapshot means no active playback session.
type PlaybackSnapshot struct {
	Track     *Track        `json:"track"`
	IsPlaying bool          `json:"is_playing"`
	Progress  time.Duration `json:"progress"`
	Device    *Device       `json:"device"`
	PolledAt  time.Time     `json:"polled_at"`
}

// HasTrack returns true if there is an active track.
func (s *PlaybackSnapshot) HasTrack() bool {
	return s != nil && s.Track != nil
}

// ProgressPercent returns playback progress as a percentage (0-100).
func (s *PlaybackSnapshot) ProgressPercent() float64 {
	if !s.HasTrack() {
		return 0
	}
	return Percent(s.Progress, s.Track.Duration)
}

// Percent returns progress/duration as a percentage, with the duration
// floored at one millisecond.
func Percent(progress, duration time.Duration) float64 {
	if duration < time.Millisecond {
		duration = time.Millisecond
	}
	p := float64(progress) / float64(duration) * 100
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
