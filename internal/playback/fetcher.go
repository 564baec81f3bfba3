// Package playback reconciles polled playback snapshots with local
// interpolation and locally issued commands.
package playback

import (
	"context"
	"log/slog"

	"github.com/tessro/startify/internal/core"
	"github.com/tessro/startify/internal/metrics"
	"github.com/tessro/startify/internal/scheduler"
)

// Source names used for scheduling, logging and metrics.
const (
	SourceSnapshot = "snapshot"
	SourceDevices  = "devices"
)

// SnapshotSource fetches the current playback state.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*core.PlaybackSnapshot, error)
}

// DeviceSource fetches the device list.
type DeviceSource interface {
	Devices(ctx context.Context) ([]core.Device, error)
}

// SnapshotResult is one fetch outcome. A nil Snapshot with a nil Err is the
// explicit "no active session" state, never a stale value.
type SnapshotResult = scheduler.Result[*core.PlaybackSnapshot]

// DevicesResult is one device list fetch outcome.
type DevicesResult = scheduler.Result[[]core.Device]

// SnapshotFetcher is the single producer of canonical snapshots. Each tick
// issues one state query; overlapping ticks are skipped by the scheduler.
type SnapshotFetcher struct {
	poller scheduler.Poller[*core.PlaybackSnapshot]
}

// NewSnapshotFetcher creates a fetcher that hands each result to emit.
func NewSnapshotFetcher(src SnapshotSource, emit func(SnapshotResult), logger *slog.Logger, recorder metrics.Recorder) *SnapshotFetcher {
	return &SnapshotFetcher{poller: scheduler.Poller[*core.PlaybackSnapshot]{
		Name:     SourceSnapshot,
		Fetch:    src.Snapshot,
		Emit:     emit,
		IsEmpty:  func(s *core.PlaybackSnapshot) bool { return s == nil },
		Logger:   logger,
		Recorder: recorder,
	}}
}

// Tick performs one fetch.
func (f *SnapshotFetcher) Tick(ctx context.Context) {
	f.poller.Tick(ctx)
}

// DeviceFetcher polls the device list for the DeviceCoordinator.
type DeviceFetcher struct {
	poller scheduler.Poller[[]core.Device]
}

// NewDeviceFetcher creates a fetcher that hands each result to emit.
func NewDeviceFetcher(src DeviceSource, emit func(DevicesResult), logger *slog.Logger, recorder metrics.Recorder) *DeviceFetcher {
	return &DeviceFetcher{poller: scheduler.Poller[[]core.Device]{
		Name:     SourceDevices,
		Fetch:    src.Devices,
		Emit:     emit,
		IsEmpty:  func(d []core.Device) bool { return len(d) == 0 },
		Logger:   logger,
		Recorder: recorder,
	}}
}

// Tick performs one fetch.
func (f *DeviceFetcher) Tick(ctx context.Context) {
	f.poller.Tick(ctx)
}
