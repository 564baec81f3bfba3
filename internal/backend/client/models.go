package client

import (
	"encoding/json"
	"fmt"
	"strings"
)

// User is the profile returned by /api/user/profile.
type User struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Images      []Image `json:"images"`
}

// Image represents an image resource.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Device represents a playback device as reported by the backend.
type Device struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	IsActive      bool   `json:"is_active"`
	VolumePercent *int   `json:"volume_percent"` // Nullable
}

// DevicesResponse is the device list. The backend may answer with either
// {"devices": [...]} or a bare array.
type DevicesResponse struct {
	Devices []Device `json:"devices"`
}

func (r *DevicesResponse) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		return json.Unmarshal(data, &r.Devices)
	}
	var wrapped struct {
		Devices []Device `json:"devices"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	r.Devices = wrapped.Devices
	return nil
}

// PlaybackState is the /api/player/state payload.
type PlaybackState struct {
	Device     *Device `json:"device"`
	ProgressMS int64   `json:"progress_ms"`
	IsPlaying  bool    `json:"is_playing"`
	Item       *Track  `json:"item"`
}

// Track represents the currently loaded item.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	URI        string   `json:"uri"`
	DurationMS int64    `json:"duration_ms"`
	Artists    []Artist `json:"artists"`
	Album      Album    `json:"album"`
}

// Artist represents a track artist.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Album represents the album a track belongs to.
type Album struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Images []Image `json:"images"`
}

// ErrorReport is the /api/error payload. A nil or zero code means healthy.
type ErrorReport struct {
	Code    *int            `json:"code"`
	Message *string         `json:"message"`
	DevInfo json.RawMessage `json:"dev_info"`
}

// HasCode returns true if the report carries an error condition.
func (r *ErrorReport) HasCode() bool {
	return r != nil && r.Code != nil && *r.Code != 0
}

// DevInfoString flattens dev_info, which may be a string or any JSON value.
func (r *ErrorReport) DevInfoString() string {
	if r == nil || len(r.DevInfo) == 0 || string(r.DevInfo) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.DevInfo, &s); err == nil {
		return s
	}
	return string(r.DevInfo)
}

// EngineStatus is the /api/status payload.
type EngineStatus struct {
	VoiceActive bool  `json:"voice_active"`
	HandActive  *bool `json:"hand_active"`
	VoiceReady  bool  `json:"voice_ready"`
	HandReady   bool  `json:"hand_ready"`

	// Older backends report hand tracking under this key.
	HandTrackingActive bool `json:"hand_tracking_active"`
}

// HandIsActive resolves the hand module flag across both key spellings.
func (s *EngineStatus) HandIsActive() bool {
	if s.HandActive != nil {
		return *s.HandActive
	}
	return s.HandTrackingActive
}

// ToggleRequest is the /api/toggle body.
type ToggleRequest struct {
	Module string `json:"module"`
	Active bool   `json:"active"`
}

// TransferRequest is the /api/player/transfer body.
type TransferRequest struct {
	DeviceID string `json:"device_id"`
}

// VolumeRequest is the /api/player/volume body.
type VolumeRequest struct {
	VolumePercent int `json:"volume_percent"`
}

// SeekRequest is the /api/player/seek body.
type SeekRequest struct {
	PositionMS int64 `json:"position_ms"`
}

// Command is a transport command addressed as /api/player/{command}.
type Command string

const (
	CommandPlay     Command = "play"
	CommandPause    Command = "pause"
	CommandNext     Command = "next"
	CommandPrevious Command = "previous"
)

func (c Command) path() (string, error) {
	switch c {
	case CommandPlay, CommandPause, CommandNext, CommandPrevious:
		return "/api/player/" + string(c), nil
	}
	return "", fmt.Errorf("unknown player command %q", string(c))
}
