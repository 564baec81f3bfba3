package core

import (
	"strings"
	"time"
)

// Track represents the item currently loaded on the remote player.
type Track struct {
	ID          string        `json:"id,omitempty"`
	Title       string        `json:"title"`
	Artists     []string      `json:"artists"`
	AlbumArtURL string        `json:"album_art_url,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// Artist returns the artist names joined for display.
func (t *Track) Artist() string {
	if t == nil {
		return ""
	}
	return strings.Join(t.Artists, ", ")
}

// DurationMs returns the track length in whole milliseconds.
func (t *Track) DurationMs() int64 {
	if t == nil {
		return 0
	}
	return t.Duration.Milliseconds()
}
