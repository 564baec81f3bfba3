package core

import "context"

// Profile is the signed-in user's display identity.
type Profile struct {
	DisplayName string `json:"display_name"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Remote is the backend contract the synchronizer depends on. A nil snapshot
// with a nil error means no active playback session.
type Remote interface {
	// Playback state
	Snapshot(ctx context.Context) (*PlaybackSnapshot, error)
	Devices(ctx context.Context) ([]Device, error)

	// Transport
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Volume(ctx context.Context, percent int) error
	Seek(ctx context.Context, positionMs int64) error
	Transfer(ctx context.Context, deviceID string) error

	// Engine
	Health(ctx context.Context) (*SystemHealth, error)
	Modules(ctx context.Context) (EngineModuleState, error)
	Toggle(ctx context.Context, m Module, active bool) error

	Profile(ctx context.Context) (*Profile, error)
}
