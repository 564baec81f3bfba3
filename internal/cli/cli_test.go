package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessro/startify/internal/auth"
	"github.com/tessro/startify/internal/backend/client"
	"github.com/tessro/startify/internal/core"
	apperrors "github.com/tessro/startify/internal/errors"
)

func TestParsePosition(t *testing.T) {
	tests := []struct {
		in       string
		want     time.Duration
		relative bool
		wantErr  bool
	}{
		{"90", 90 * time.Second, false, false},
		{"1:30", 90 * time.Second, false, false},
		{"1:02:03", time.Hour + 2*time.Minute + 3*time.Second, false, false},
		{"45s", 45 * time.Second, false, false},
		{"+15s", 15 * time.Second, true, false},
		{"-10", -10 * time.Second, true, false},
		{"+1:00", time.Minute, true, false},
		{"", 0, false, true},
		{"+", 0, false, true},
		{"abc", 0, false, true},
		{"1:xx", 0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, rel, err := parsePosition(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.relative, rel)
		})
	}
}

func TestParseOnOff(t *testing.T) {
	for _, s := range []string{"on", "true", "1", "start"} {
		v, err := parseOnOff(s)
		require.NoError(t, err)
		assert.True(t, v, s)
	}
	for _, s := range []string{"off", "false", "0", "stop"} {
		v, err := parseOnOff(s)
		require.NoError(t, err)
		assert.False(t, v, s)
	}
	_, err := parseOnOff("maybe")
	assert.Error(t, err)
}

func TestFindDevice(t *testing.T) {
	devices := []core.Device{
		{ID: "abc", Name: "Kitchen"},
		{ID: "def", Name: "Office"},
		{ID: "ghi", Name: "office"},
	}

	d, err := findDevice(devices, "abc")
	require.NoError(t, err)
	assert.Equal(t, "Kitchen", d.Name)

	d, err = findDevice(devices, "kitchen")
	require.NoError(t, err)
	assert.Equal(t, "abc", d.ID)

	_, err = findDevice(devices, "Office")
	assert.ErrorContains(t, err, "matches 2 devices")

	_, err = findDevice(devices, "Garage")
	assert.ErrorIs(t, err, apperrors.ErrDeviceNotFound)
}

func withOutput(t *testing.T, json bool, format string) {
	t.Helper()
	oldJSON, oldFmt := jsonOut, outputFmt
	jsonOut, outputFmt = json, format
	t.Cleanup(func() { jsonOut, outputFmt = oldJSON, oldFmt })
}

func TestRenderModes(t *testing.T) {
	v := struct {
		Name string `json:"name" yaml:"name"`
	}{"kitchen"}
	text := func(w io.Writer) error {
		_, err := io.WriteString(w, "plain\n")
		return err
	}

	tests := []struct {
		name   string
		json   bool
		format string
		want   string
	}{
		{"text", false, "text", "plain\n"},
		{"json flag", true, "text", "{\n  \"name\": \"kitchen\"\n}\n"},
		{"json output", false, "json", "{\n  \"name\": \"kitchen\"\n}\n"},
		{"yaml", false, "yaml", "name: kitchen\n"},
		{"json wins", true, "yaml", "{\n  \"name\": \"kitchen\"\n}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withOutput(t, tt.json, tt.format)
			var buf bytes.Buffer
			require.NoError(t, render(&buf, v, text))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestParseOutputMode(t *testing.T) {
	_, err := parseOutputMode("xml")
	assert.Error(t, err)

	m, err := parseOutputMode("YML")
	require.NoError(t, err)
	assert.Equal(t, OutputYAML, m)
}

func TestFormatProgress(t *testing.T) {
	assert.Equal(t, "━━━━━─────", FormatProgress(50, 100, 10))
	assert.Equal(t, "──────────", FormatProgress(5, 0, 10))
	assert.Equal(t, "━━━━━━━━━━", FormatProgress(200, 100, 10))
}

func TestReadToken(t *testing.T) {
	tok, err := readToken(strings.NewReader("ignored\n"), []string{"from-arg"})
	require.NoError(t, err)
	assert.Equal(t, "from-arg", tok)

	tok, err = readToken(strings.NewReader("  piped-token \n"), nil)
	require.NoError(t, err)
	assert.Equal(t, "piped-token", tok)

	tok, err = readToken(strings.NewReader("no-newline"), nil)
	require.NoError(t, err)
	assert.Equal(t, "no-newline", tok)
}

type statusRemote struct {
	snap       *core.PlaybackSnapshot
	snapErr    error
	devices    []core.Device
	devicesErr error
	modules    core.EngineModuleState
	modulesErr error
	health     *core.SystemHealth
	healthErr  error

	devicesCalls int
	modulesCalls int
}

func (r *statusRemote) Snapshot(context.Context) (*core.PlaybackSnapshot, error) {
	return r.snap, r.snapErr
}
func (r *statusRemote) Devices(context.Context) ([]core.Device, error) {
	r.devicesCalls++
	return r.devices, r.devicesErr
}
func (r *statusRemote) Play(context.Context) error                      { return nil }
func (r *statusRemote) Pause(context.Context) error                     { return nil }
func (r *statusRemote) Next(context.Context) error                      { return nil }
func (r *statusRemote) Previous(context.Context) error                  { return nil }
func (r *statusRemote) Volume(context.Context, int) error               { return nil }
func (r *statusRemote) Seek(context.Context, int64) error               { return nil }
func (r *statusRemote) Transfer(context.Context, string) error          { return nil }
func (r *statusRemote) Toggle(context.Context, core.Module, bool) error { return nil }
func (r *statusRemote) Health(context.Context) (*core.SystemHealth, error) {
	return r.health, r.healthErr
}
func (r *statusRemote) Modules(context.Context) (core.EngineModuleState, error) {
	r.modulesCalls++
	return r.modules, r.modulesErr
}
func (r *statusRemote) Profile(context.Context) (*core.Profile, error) {
	return &core.Profile{DisplayName: "Ada"}, nil
}

func TestCollectStatus(t *testing.T) {
	dev := &core.Device{ID: "d1", Name: "Kitchen", VolumePercent: 40}
	rem := &statusRemote{
		snap: &core.PlaybackSnapshot{
			Track:     &core.Track{Title: "Song", Artists: []string{"Band"}, Duration: 3 * time.Minute},
			IsPlaying: true,
			Progress:  time.Minute,
			Device:    dev,
		},
		modulesErr: errors.New("engine down"),
	}

	res := collectStatus(context.Background(), rem)

	assert.True(t, res.Data.Playing)
	assert.Equal(t, "Kitchen", res.Data.Device.Name)
	assert.Zero(t, rem.devicesCalls, "device list is only needed without a snapshot device")
	assert.Nil(t, res.Data.Health)
	assert.Equal(t, "Ada", res.Data.Profile.DisplayName)
	require.Len(t, res.Errors, 1)
	assert.ErrorContains(t, res.Errors[0], "modules: engine down")
}

func TestCollectStatusFallsBackToDeviceList(t *testing.T) {
	rem := &statusRemote{
		devices: []core.Device{{ID: "a", Name: "Office"}, {ID: "b", Name: "Kitchen", IsActive: true}},
		health:  &core.SystemHealth{Code: 503, Message: "camera offline"},
	}

	res := collectStatus(context.Background(), rem)

	assert.False(t, res.HasErrors())
	require.NotNil(t, res.Data.Device)
	assert.Equal(t, "b", res.Data.Device.ID)
	assert.Equal(t, 503, res.Data.Health.Code)
	assert.Equal(t, map[string]string{"voice": "not_ready", "hand": "not_ready"}, res.Data.Modules)
}

func TestCollectStatusUnauthorizedStops(t *testing.T) {
	rem := &statusRemote{snapErr: &client.APIError{StatusCode: http.StatusUnauthorized, Message: "expired"}}

	res := collectStatus(context.Background(), rem)

	require.Len(t, res.Errors, 1)
	assert.True(t, client.IsUnauthorized(res.Errors[0]))
	assert.Zero(t, rem.devicesCalls)
	assert.Zero(t, rem.modulesCalls)
}

func TestPrintStatus(t *testing.T) {
	noColor = true
	t.Cleanup(func() { noColor = false })

	s := statusResult{
		Playing:  true,
		Track:    &core.Track{Title: "Song", Artists: []string{"Band"}, Duration: 3 * time.Minute},
		Progress: time.Minute,
		Device:   &core.Device{Name: "Kitchen", Type: core.DeviceTypeSpeaker, VolumePercent: 40},
		Modules:  map[string]string{"voice": "active", "hand": "inactive"},
	}
	var buf bytes.Buffer
	require.NoError(t, printStatus(&buf, s, []error{errors.New("devices: timeout")}))

	out := buf.String()
	for _, want := range []string{"▶ Song", "Band", "1:00 / 3:00", "Kitchen (speaker), volume 40%", "● voice", "Health: ok", "devices: timeout"} {
		assert.Contains(t, out, want)
	}

	buf.Reset()
	require.NoError(t, printStatus(&buf, statusResult{Health: &core.SystemHealth{Code: 500, Message: "service unreachable"}}, nil))
	assert.Contains(t, buf.String(), "No active playback")
	assert.Contains(t, buf.String(), "Health: 500 service unreachable")
}

func TestDescribeModules(t *testing.T) {
	var state core.EngineModuleState
	got := describeModules(state)
	require.Len(t, got, len(core.Modules))
	assert.Equal(t, "voice", got[0].Module)
	assert.Equal(t, "not_ready", got[0].Phase)
}

func TestForgetCredential(t *testing.T) {
	dir := t.TempDir()
	storage, err := auth.NewStorage(filepath.Join(dir, "session.json"))
	require.NoError(t, err)
	cred, err := auth.NewCredential("abc")
	require.NoError(t, err)
	require.NoError(t, storage.Save(cred))

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	forgetCredential(storage, log)
	assert.False(t, storage.Exists())
	assert.Empty(t, buf.String())

	// A non-empty directory in place of the file cannot be removed.
	blocked := filepath.Join(dir, "blocked")
	require.NoError(t, os.MkdirAll(filepath.Join(blocked, "child"), 0o700))
	storage, err = auth.NewStorage(blocked)
	require.NoError(t, err)
	forgetCredential(storage, log)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "failed to delete rejected credential", entry["msg"])
	assert.Equal(t, blocked, entry["path"])
	assert.NotEmpty(t, entry["error"])
}
