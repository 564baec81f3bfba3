package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/tessro/startify/internal/auth"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, nil, opts...)
}

func TestGetPlaybackStateEmpty(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"no content", http.StatusNoContent, ""},
		{"empty body", http.StatusOK, ""},
		{"json null", http.StatusOK, "null"},
		{"null with whitespace", http.StatusOK, " null\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			state, err := c.GetPlaybackState(context.Background())
			if err != nil {
				t.Fatalf("GetPlaybackState() error = %v", err)
			}
			if state != nil {
				t.Errorf("GetPlaybackState() = %+v, want nil", state)
			}
		})
	}
}

func TestGetPlaybackState(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/player/state" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{
			"is_playing": true,
			"progress_ms": 50000,
			"item": {"name": "Song", "duration_ms": 200000, "artists": [{"name": "A"}, {"name": "B"}],
			         "album": {"images": [{"url": "http://img/1"}]}},
			"device": {"name": "Laptop", "volume_percent": 40}
		}`)
	})

	state, err := c.GetPlaybackState(context.Background())
	if err != nil {
		t.Fatalf("GetPlaybackState() error = %v", err)
	}
	if state == nil || state.Item == nil {
		t.Fatalf("GetPlaybackState() = %+v, want item", state)
	}
	if state.Item.Name != "Song" || state.Item.DurationMS != 200000 || len(state.Item.Artists) != 2 {
		t.Errorf("unexpected item %+v", state.Item)
	}
	if state.ProgressMS != 50000 || !state.IsPlaying {
		t.Errorf("unexpected progress %d playing %v", state.ProgressMS, state.IsPlaying)
	}
	if state.Device == nil || *state.Device.VolumePercent != 40 {
		t.Errorf("unexpected device %+v", state.Device)
	}
}

func TestGetDevicesShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"wrapped", `{"devices": [{"id": "a", "name": "Laptop"}, {"id": "b", "name": "Phone"}]}`},
		{"bare array", `[{"id": "a", "name": "Laptop"}, {"id": "b", "name": "Phone"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			})
			devices, err := c.GetDevices(context.Background())
			if err != nil {
				t.Fatalf("GetDevices() error = %v", err)
			}
			if len(devices) != 2 || devices[1].ID != "b" {
				t.Errorf("GetDevices() = %+v", devices)
			}
		})
	}
}

func TestUnauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error": "Unauthorized"}`)
	})

	_, err := c.GetPlaybackState(context.Background())
	if !IsUnauthorized(err) {
		t.Fatalf("IsUnauthorized(%v) = false", err)
	}
	if IsNotFound(err) {
		t.Error("IsNotFound() = true for 401")
	}
	if got := err.Error(); got != "backend error: status 401: Unauthorized" {
		t.Errorf("Error() = %q", got)
	}
}

func TestGetDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, WithRetries(3))

	if _, err := c.GetEngineStatus(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestPostRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}, WithRetries(1))

	if err := c.Next(context.Background()); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestPostDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error": "Missing 'module' or 'active'"}`)
	}, WithRetries(3))

	err := c.ToggleModule(context.Background(), "voice", true)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestCommandBodies(t *testing.T) {
	tests := []struct {
		name     string
		call     func(*Client) error
		wantPath string
		wantBody string
	}{
		{"play", func(c *Client) error { return c.Play(context.Background()) }, "/api/player/play", ""},
		{"previous", func(c *Client) error { return c.Previous(context.Background()) }, "/api/player/previous", ""},
		{"transfer", func(c *Client) error { return c.TransferPlayback(context.Background(), "dev-2") }, "/api/player/transfer", `{"device_id":"dev-2"}`},
		{"volume", func(c *Client) error { return c.SetVolume(context.Background(), 35) }, "/api/player/volume", `{"volume_percent":35}`},
		{"seek", func(c *Client) error { return c.Seek(context.Background(), 60000) }, "/api/player/seek", `{"position_ms":60000}`},
		{"toggle", func(c *Client) error { return c.ToggleModule(context.Background(), "hand", false) }, "/api/toggle", `{"module":"hand","active":false}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("method = %s, want POST", r.Method)
				}
				if r.URL.Path != tt.wantPath {
					t.Errorf("path = %q, want %q", r.URL.Path, tt.wantPath)
				}
				body, _ := io.ReadAll(r.Body)
				if string(body) != tt.wantBody {
					t.Errorf("body = %q, want %q", body, tt.wantBody)
				}
			})
			if err := tt.call(c); err != nil {
				t.Errorf("error = %v", err)
			}
		})
	}
}

func TestUnknownCommand(t *testing.T) {
	c := New("http://127.0.0.1:1", nil)
	if err := c.Send(context.Background(), Command("shuffle")); err == nil {
		t.Error("Send() expected error for unknown command")
	}
}

func TestBearerCredential(t *testing.T) {
	var got atomic.Value
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{}`)
	})

	storage, _ := auth.NewStorage(filepath.Join(t.TempDir(), "session.json"))
	c.storage = storage

	cred, _ := auth.NewCredential("secret")
	if err := c.SetCredential(cred); err != nil {
		t.Fatalf("SetCredential() error = %v", err)
	}
	if _, err := c.GetErrorReport(context.Background()); err != nil {
		t.Fatalf("GetErrorReport() error = %v", err)
	}
	if got.Load() != "Bearer secret" {
		t.Errorf("Authorization = %v", got.Load())
	}

	if err := c.ClearCredential(); err != nil {
		t.Fatalf("ClearCredential() error = %v", err)
	}
	if c.HasCredential() || storage.Exists() {
		t.Error("credential should be gone after ClearCredential()")
	}
}

func TestErrorReport(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantCode    bool
		wantDevInfo string
	}{
		{"empty object", `{}`, false, ""},
		{"null code", `{"code": null, "message": null, "dev_info": null}`, false, ""},
		{"zero code", `{"code": 0}`, false, ""},
		{"string dev info", `{"code": 503, "message": "Spotify down", "dev_info": "timeout"}`, true, "timeout"},
		{"object dev info", `{"code": 502, "message": "bad", "dev_info": {"trace": 1}}`, true, `{"trace": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r ErrorReport
			if err := json.Unmarshal([]byte(tt.body), &r); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if r.HasCode() != tt.wantCode {
				t.Errorf("HasCode() = %v, want %v", r.HasCode(), tt.wantCode)
			}
			if got := r.DevInfoString(); got != tt.wantDevInfo {
				t.Errorf("DevInfoString() = %q, want %q", got, tt.wantDevInfo)
			}
		})
	}
}

func TestEngineStatusHandKeys(t *testing.T) {
	var legacy EngineStatus
	_ = json.Unmarshal([]byte(`{"hand_tracking_active": true}`), &legacy)
	if !legacy.HandIsActive() {
		t.Error("legacy key not honored")
	}

	var current EngineStatus
	_ = json.Unmarshal([]byte(`{"hand_active": false, "hand_tracking_active": true}`), &current)
	if current.HandIsActive() {
		t.Error("hand_active should take precedence")
	}
}
