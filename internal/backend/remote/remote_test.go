package remote

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tessro/startify/internal/backend/client"
	"github.com/tessro/startify/internal/core"
)

func intPtr(i int) *int { return &i }

func TestConvertTrack(t *testing.T) {
	track := convertTrack(&client.Track{
		ID:         "track123",
		Name:       "Test Song",
		DurationMS: 180000,
		Artists:    []client.Artist{{Name: "Artist One"}, {Name: ""}, {Name: "Artist Two"}},
		Album:      client.Album{Images: []client.Image{{URL: "http://art/large"}, {URL: "http://art/small"}}},
	})

	if track.Title != "Test Song" {
		t.Errorf("Title = %q, want %q", track.Title, "Test Song")
	}
	if track.Artist() != "Artist One, Artist Two" {
		t.Errorf("Artist() = %q", track.Artist())
	}
	if track.AlbumArtURL != "http://art/large" {
		t.Errorf("AlbumArtURL = %q", track.AlbumArtURL)
	}
	if track.Duration != 180*time.Second {
		t.Errorf("Duration = %v, want %v", track.Duration, 180*time.Second)
	}
}

func TestConvertDevice(t *testing.T) {
	tests := []struct {
		wireType   string
		volume     *int
		wantType   core.DeviceType
		wantVolume int
	}{
		{"Computer", intPtr(40), core.DeviceTypeComputer, 40},
		{"Smartphone", nil, core.DeviceTypePhone, 0},
		{"Speaker", intPtr(140), core.DeviceTypeSpeaker, 100},
		{"TV", intPtr(-5), core.DeviceTypeOther, 0},
		{"", nil, core.DeviceTypeOther, 0},
	}

	for _, tt := range tests {
		t.Run(tt.wireType, func(t *testing.T) {
			d := convertDevice(&client.Device{ID: "d", Name: "n", Type: tt.wireType, VolumePercent: tt.volume})
			if d.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", d.Type, tt.wantType)
			}
			if d.VolumePercent != tt.wantVolume {
				t.Errorf("VolumePercent = %d, want %d", d.VolumePercent, tt.wantVolume)
			}
		})
	}

	if convertDevice(nil) != nil {
		t.Error("convertDevice(nil) should be nil")
	}
}

func TestConvertState(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	if convertState(nil, now) != nil {
		t.Error("nil state should convert to nil snapshot")
	}
	if convertState(&client.PlaybackState{IsPlaying: true, ProgressMS: 10}, now) != nil {
		t.Error("state without item should convert to nil snapshot")
	}

	s := convertState(&client.PlaybackState{
		IsPlaying:  true,
		ProgressMS: 250000,
		Item:       &client.Track{Name: "x", DurationMS: 200000},
	}, now)
	if s.Progress != 200*time.Second {
		t.Errorf("Progress = %v, want clamp to duration", s.Progress)
	}
	if !s.PolledAt.Equal(now) {
		t.Errorf("PolledAt = %v", s.PolledAt)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    *core.SystemHealth
		wantErr bool
	}{
		{"healthy", http.StatusOK, `{"code": null, "message": null, "dev_info": null}`, nil, false},
		{"empty", http.StatusOK, ``, nil, false},
		{"reported", http.StatusOK, `{"code": 502, "message": "Spotify API failed", "dev_info": "HTTPError"}`,
			&core.SystemHealth{Code: 502, Message: "Spotify API failed", DevInfo: "HTTPError"}, false},
		{"error status with report", http.StatusServiceUnavailable, `{"code": 503, "message": "engine down"}`,
			&core.SystemHealth{Code: 503, Message: "engine down"}, false},
		{"error status without report", http.StatusBadGateway, `oops`,
			&core.SystemHealth{Code: 502, Message: "Bad Gateway"}, false},
		{"undecodable", http.StatusOK, `{"code": "x"`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			r := New(client.New(srv.URL, nil))
			got, err := r.Health(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Health() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.want == nil {
				if got != nil {
					t.Errorf("Health() = %+v, want nil", got)
				}
				return
			}
			if got == nil || *got != *tt.want {
				t.Errorf("Health() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestModules(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"voice_active": true, "hand_active": false, "voice_ready": true, "hand_ready": false}`)
	}))
	defer srv.Close()

	got, err := New(client.New(srv.URL, nil)).Modules(context.Background())
	if err != nil {
		t.Fatalf("Modules() error = %v", err)
	}
	want := core.EngineModuleState{VoiceActive: true, VoiceReady: true}
	if got != want {
		t.Errorf("Modules() = %+v, want %+v", got, want)
	}
}
