package session

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessro/startify/internal/backend/client"
	"github.com/tessro/startify/internal/backend/remote"
	"github.com/tessro/startify/internal/core"
	apperrors "github.com/tessro/startify/internal/errors"
	"github.com/tessro/startify/internal/playback"
)

type fakeRemote struct {
	mu       sync.Mutex
	snap     *core.PlaybackSnapshot
	snapErr  error
	devices  []core.Device
	health   *core.SystemHealth
	healthEr error
	modules  core.EngineModuleState
	calls    map[string]int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{calls: make(map[string]int)}
}

func (f *fakeRemote) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeRemote) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeRemote) set(fn func(f *fakeRemote)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeRemote) Snapshot(context.Context) (*core.PlaybackSnapshot, error) {
	f.hit("snapshot")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap, f.snapErr
}

func (f *fakeRemote) Devices(context.Context) ([]core.Device, error) {
	f.hit("devices")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.devices, nil
}

func (f *fakeRemote) Play(context.Context) error {
	f.hit("play")
	f.setPlaying(true)
	return nil
}

func (f *fakeRemote) Pause(context.Context) error {
	f.hit("pause")
	f.setPlaying(false)
	return nil
}

func (f *fakeRemote) setPlaying(playing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snap != nil {
		cp := *f.snap
		cp.IsPlaying = playing
		f.snap = &cp
	}
}

func (f *fakeRemote) Next(context.Context) error                  { f.hit("next"); return nil }
func (f *fakeRemote) Previous(context.Context) error              { f.hit("previous"); return nil }
func (f *fakeRemote) Volume(context.Context, int) error           { f.hit("volume"); return nil }
func (f *fakeRemote) Seek(context.Context, int64) error           { f.hit("seek"); return nil }
func (f *fakeRemote) Transfer(_ context.Context, id string) error { f.hit("transfer"); return nil }

func (f *fakeRemote) Health(context.Context) (*core.SystemHealth, error) {
	f.hit("health")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.health, f.healthEr
}

func (f *fakeRemote) Modules(context.Context) (core.EngineModuleState, error) {
	f.hit("modules")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.modules, nil
}

func (f *fakeRemote) Toggle(context.Context, core.Module, bool) error {
	f.hit("toggle")
	return nil
}

func (f *fakeRemote) Profile(context.Context) (*core.Profile, error) {
	return &core.Profile{DisplayName: "Tess"}, nil
}

var (
	laptop = core.Device{ID: "laptop", Name: "Laptop", Type: core.DeviceTypeComputer, VolumePercent: 50}
	phone  = core.Device{ID: "phone", Name: "Phone", Type: core.DeviceTypePhone, VolumePercent: 70}
)

func playing(d core.Device, progress time.Duration, isPlaying bool) *core.PlaybackSnapshot {
	return &core.PlaybackSnapshot{
		Track:     &core.Track{Title: "Song", Artists: []string{"Band"}, Duration: 200 * time.Second},
		IsPlaying: isPlaying,
		Progress:  progress,
		Device:    &d,
	}
}

var fast = Intervals{
	Snapshot: 15 * time.Millisecond,
	Devices:  15 * time.Millisecond,
	Health:   15 * time.Millisecond,
	Modules:  15 * time.Millisecond,
}

func startSession(t *testing.T, r core.Remote, mutate ...func(*Options)) *Session {
	t.Helper()
	opts := Options{Remote: r, Intervals: fast}
	for _, m := range mutate {
		m(&opts)
	}
	s, err := New(opts)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)
	return s
}

func eventually(t *testing.T, cond func(v *View) bool, s *Session, msg string) {
	t.Helper()
	require.Eventually(t, func() bool { return cond(s.View()) }, 3*time.Second, 5*time.Millisecond, msg)
}

func TestSessionPublishesSnapshot(t *testing.T) {
	r := newFakeRemote()
	r.snap = playing(laptop, 50*time.Second, true)
	r.devices = []core.Device{laptop, phone}
	s := startSession(t, r)

	eventually(t, func(v *View) bool {
		return v.Track() != nil && v.ActiveDevice != nil && len(v.Devices) == 2 && v.Profile != nil
	}, s, "view never populated")

	v := s.View()
	assert.Equal(t, StatusRunning, v.Status)
	assert.Equal(t, "laptop", v.ActiveDevice.ID)
	assert.True(t, v.IsPlaying())
	assert.GreaterOrEqual(t, v.Position(time.Now()), 50*time.Second)
	assert.Equal(t, "Tess", v.Profile.DisplayName)
}

func TestSessionEmptySnapshotClearsState(t *testing.T) {
	r := newFakeRemote()
	r.snap = playing(laptop, 50*time.Second, true)
	r.devices = []core.Device{laptop}
	s := startSession(t, r)
	eventually(t, func(v *View) bool { return v.Track() != nil }, s, "no track")

	r.set(func(f *fakeRemote) { f.snap = nil })
	eventually(t, func(v *View) bool { return v.Track() == nil }, s, "track not cleared")

	v := s.View()
	assert.Nil(t, v.ActiveDevice)
	assert.Equal(t, time.Duration(0), v.Position(time.Now()))
}

func TestSessionTransientErrorKeepsSnapshot(t *testing.T) {
	r := newFakeRemote()
	r.snap = playing(laptop, time.Second, false)
	s := startSession(t, r)
	eventually(t, func(v *View) bool { return v.Track() != nil }, s, "no track")

	r.set(func(f *fakeRemote) { f.snapErr = errors.New("connection refused") })
	eventually(t, func(v *View) bool { return v.LastError != "" }, s, "error not surfaced")
	assert.NotNil(t, s.View().Track())
	assert.Equal(t, StatusRunning, s.View().Status)
}

func TestSessionOptimisticPause(t *testing.T) {
	r := newFakeRemote()
	r.snap = playing(laptop, 10*time.Second, true)
	s := startSession(t, r, func(o *Options) { o.Intervals.Snapshot = time.Hour })
	eventually(t, func(v *View) bool { return v.IsPlaying() }, s, "not playing")

	require.NoError(t, s.TogglePlayback())
	assert.False(t, s.View().IsPlaying(), "pause should apply before the backend confirms")
	require.Eventually(t, func() bool { return r.count("pause") == 1 }, 3*time.Second, 5*time.Millisecond)
}

func TestSessionLocalRejectionsMakeNoCalls(t *testing.T) {
	r := newFakeRemote()
	r.snap = playing(laptop, 10*time.Second, true)
	s := startSession(t, r)
	eventually(t, func(v *View) bool { return v.Track() != nil }, s, "no track")

	assert.ErrorIs(t, s.SetVolume(101), apperrors.ErrVolumeOutOfRange)
	assert.ErrorIs(t, s.SetVolume(-1), apperrors.ErrVolumeOutOfRange)
	assert.ErrorIs(t, s.Seek(201*time.Second), apperrors.ErrSeekOutOfRange)
	assert.ErrorIs(t, s.Transfer("toaster"), apperrors.ErrDeviceNotFound)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, r.count("volume"))
	assert.Zero(t, r.count("seek"))
	assert.Zero(t, r.count("transfer"))

	require.NoError(t, s.SetVolume(100))
	require.Eventually(t, func() bool { return r.count("volume") == 1 }, 3*time.Second, 5*time.Millisecond)
}

func TestSessionSeekRejectedWhileSkipPending(t *testing.T) {
	r := newFakeRemote()
	r.snap = playing(laptop, 10*time.Second, true)
	s := startSession(t, r, func(o *Options) {
		o.Intervals.Snapshot = time.Hour
		o.RefetchDelays = playback.RefetchDelays{Skip: time.Hour, Transfer: time.Hour}
	})
	eventually(t, func(v *View) bool { return v.Track() != nil }, s, "no track")

	require.NoError(t, s.Next())
	assert.ErrorIs(t, s.Seek(150*time.Second), apperrors.ErrNoActiveTrack)

	require.Eventually(t, func() bool { return r.count("next") == 1 }, 3*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, r.count("seek"))
}

func TestSessionTransferHeldUntilConfirmed(t *testing.T) {
	r := newFakeRemote()
	r.snap = playing(laptop, 10*time.Second, true)
	r.devices = []core.Device{laptop, phone}
	s := startSession(t, r)
	eventually(t, func(v *View) bool { return v.ActiveDevice != nil && len(v.Devices) == 2 }, s, "no devices")

	require.NoError(t, s.Transfer("phone"))
	v := s.View()
	assert.Equal(t, "laptop", v.ActiveDevice.ID)
	assert.Equal(t, "phone", v.PendingTransfer)

	require.Eventually(t, func() bool { return r.count("transfer") == 1 }, 3*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, "laptop", s.View().ActiveDevice.ID, "old device still reported by the backend")

	r.set(func(f *fakeRemote) { f.snap = playing(phone, 10*time.Second, true) })
	eventually(t, func(v *View) bool {
		return v.ActiveDevice != nil && v.ActiveDevice.ID == "phone" && v.PendingTransfer == ""
	}, s, "transfer never confirmed")
}

func TestSessionModuleToggle(t *testing.T) {
	r := newFakeRemote()
	s := startSession(t, r)
	eventually(t, func(v *View) bool { return v.ModulesKnown }, s, "modules never polled")

	assert.ErrorIs(t, s.ToggleModule(core.ModuleVoice, true), apperrors.ErrModuleNotReady)
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, r.count("toggle"))

	r.set(func(f *fakeRemote) { f.modules = core.EngineModuleState{VoiceReady: true} })
	eventually(t, func(v *View) bool { return v.Modules.VoiceReady }, s, "voice never ready")

	require.NoError(t, s.ToggleModule(core.ModuleVoice, true))
	require.Eventually(t, func() bool { return r.count("toggle") == 1 }, 3*time.Second, 5*time.Millisecond)

	// The engine never turned it on, so the next poll wins.
	eventually(t, func(v *View) bool { return !v.Modules.VoiceActive }, s, "poll did not overwrite optimistic toggle")
}

func TestSessionArmDisarm(t *testing.T) {
	r := newFakeRemote()
	s := startSession(t, r)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, r.count("health"), "health must not poll while disarmed")

	r.set(func(f *fakeRemote) { f.healthEr = errors.New("dial tcp: connection refused") })
	require.NoError(t, s.Arm())
	eventually(t, func(v *View) bool { return v.Armed && v.Health != nil }, s, "health never reported")
	assert.Equal(t, core.UnreachableCode, s.View().Health.Code)
	assert.Equal(t, "service unreachable", s.View().Health.Message)

	s.Dismiss()
	eventually(t, func(v *View) bool { return v.Armed && v.Health != nil }, s, "dismissed condition should reappear while armed")

	require.NoError(t, s.Disarm())
	assert.False(t, s.View().Armed)
	frozen := s.View().Health
	calls := r.count("health")

	r.set(func(f *fakeRemote) { f.healthEr = nil })
	time.Sleep(80 * time.Millisecond)
	assert.LessOrEqual(t, r.count("health"), calls+1, "at most one in-flight probe may finish")
	assert.Equal(t, frozen, s.View().Health)

	require.NoError(t, s.Arm())
	eventually(t, func(v *View) bool { return v.Health == nil }, s, "re-armed monitor never cleared")
}

func TestSessionStopDeliversNothingAfterwards(t *testing.T) {
	r := newFakeRemote()
	r.snap = playing(laptop, time.Second, true)
	s, err := New(Options{Remote: r, Intervals: fast})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	ch, cancel := s.Subscribe()
	defer cancel()
	eventually(t, func(v *View) bool { return v.Track() != nil }, s, "no track")

	s.Stop()
	seq := s.View().Seq
	assert.Equal(t, StatusStopped, s.View().Status)

	for range ch {
	}
	calls := r.count("snapshot")
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, calls, r.count("snapshot"))
	assert.Equal(t, seq, s.View().Seq)
	assert.ErrorIs(t, s.Play(), apperrors.ErrSessionStopped)
}

func TestSessionUnauthorizedEndToEnd(t *testing.T) {
	var unauthorized atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/player/state":
			if unauthorized.Load() {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = io.WriteString(w, `{"is_playing": true, "progress_ms": 1000, "item": {"name": "Song", "duration_ms": 200000}}`)
		case "/api/player/devices":
			_, _ = io.WriteString(w, `[]`)
		case "/api/status":
			_, _ = io.WriteString(w, `{"voice_ready": true}`)
		default:
			_, _ = io.WriteString(w, `{}`)
		}
	}))
	defer srv.Close()

	var logouts atomic.Int32
	s := startSession(t, remote.New(client.New(srv.URL, nil)), func(o *Options) {
		o.OnUnauthorized = func() { logouts.Add(1) }
	})
	require.NoError(t, s.Arm())
	eventually(t, func(v *View) bool { return v.Track() != nil }, s, "no track")

	unauthorized.Store(true)
	eventually(t, func(v *View) bool { return v.Status == StatusUnauthenticated }, s, "401 did not escalate")

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), logouts.Load())
	assert.False(t, s.View().Armed)
	assert.ErrorIs(t, s.Play(), apperrors.ErrNotAuthenticated)
	assert.ErrorIs(t, s.ToggleModule(core.ModuleVoice, true), apperrors.ErrNotAuthenticated)
}

func TestSubscribeCoalesces(t *testing.T) {
	r := newFakeRemote()
	r.snap = playing(laptop, time.Second, true)
	s := startSession(t, r)

	ch, cancel := s.Subscribe()
	time.Sleep(100 * time.Millisecond)

	// However many views were published, only the newest is buffered.
	assert.Len(t, ch, 1)
	v := <-ch
	assert.GreaterOrEqual(t, s.View().Seq, v.Seq)

	cancel()
	for range ch {
	}
	_, open := <-ch
	assert.False(t, open)
}
