package remote

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/tessro/startify/internal/backend/client"
	"github.com/tessro/startify/internal/core"
)

var jsonUnmarshal = json.Unmarshal

// convertState converts the wire payload to a snapshot. A missing item is
// the same as no session at all.
func convertState(s *client.PlaybackState, polledAt time.Time) *core.PlaybackSnapshot {
	if s == nil || s.Item == nil {
		return nil
	}

	track := convertTrack(s.Item)
	progress := time.Duration(s.ProgressMS) * time.Millisecond
	if progress < 0 {
		progress = 0
	}
	if track.Duration > 0 && progress > track.Duration {
		progress = track.Duration
	}

	return &core.PlaybackSnapshot{
		Track:     track,
		IsPlaying: s.IsPlaying,
		Progress:  progress,
		Device:    convertDevice(s.Device),
		PolledAt:  polledAt,
	}
}

func convertTrack(t *client.Track) *core.Track {
	if t == nil {
		return nil
	}

	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		if a.Name != "" {
			artists = append(artists, a.Name)
		}
	}

	var art string
	if len(t.Album.Images) > 0 {
		art = t.Album.Images[0].URL
	}

	var duration time.Duration
	if t.DurationMS > 0 {
		duration = time.Duration(t.DurationMS) * time.Millisecond
	}

	return &core.Track{
		ID:          t.ID,
		Title:       t.Name,
		Artists:     artists,
		AlbumArtURL: art,
		Duration:    duration,
	}
}

func convertDevice(d *client.Device) *core.Device {
	if d == nil {
		return nil
	}

	deviceType := core.DeviceTypeOther
	switch strings.ToLower(d.Type) {
	case "computer":
		deviceType = core.DeviceTypeComputer
	case "smartphone", "phone", "tablet":
		deviceType = core.DeviceTypePhone
	case "speaker", "avr", "stb", "audiodongle", "castaudio":
		deviceType = core.DeviceTypeSpeaker
	}

	volume := 0
	if d.VolumePercent != nil {
		volume = min(max(*d.VolumePercent, 0), 100)
	}

	return &core.Device{
		ID:            d.ID,
		Name:          d.Name,
		Type:          deviceType,
		IsActive:      d.IsActive,
		VolumePercent: volume,
	}
}

func convertReport(r *client.ErrorReport) *core.SystemHealth {
	if !r.HasCode() {
		return nil
	}
	h := &core.SystemHealth{Code: *r.Code, DevInfo: r.DevInfoString()}
	if r.Message != nil {
		h.Message = *r.Message
	}
	return h
}
