// Package remote adapts the backend HTTP client to core.Remote.
package remote

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tessro/startify/internal/backend/client"
	"github.com/tessro/startify/internal/core"
)

// Remote implements core.Remote on top of the backend client.
type Remote struct {
	client *client.Client
	now    func() time.Time
}

// New creates a Remote.
func New(c *client.Client) *Remote {
	return &Remote{client: c, now: time.Now}
}

// Client returns the underlying HTTP client.
func (r *Remote) Client() *client.Client {
	return r.client
}

// Snapshot fetches the current playback snapshot. No active session yields nil, nil.
func (r *Remote) Snapshot(ctx context.Context) (*core.PlaybackSnapshot, error) {
	state, err := r.client.GetPlaybackState(ctx)
	if err != nil {
		return nil, err
	}
	return convertState(state, r.now()), nil
}

// Devices fetches the device list.
func (r *Remote) Devices(ctx context.Context) ([]core.Device, error) {
	devices, err := r.client.GetDevices(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]core.Device, len(devices))
	for i, d := range devices {
		result[i] = *convertDevice(&d)
	}
	return result, nil
}

func (r *Remote) Play(ctx context.Context) error     { return r.client.Play(ctx) }
func (r *Remote) Pause(ctx context.Context) error    { return r.client.Pause(ctx) }
func (r *Remote) Next(ctx context.Context) error     { return r.client.Next(ctx) }
func (r *Remote) Previous(ctx context.Context) error { return r.client.Previous(ctx) }

func (r *Remote) Volume(ctx context.Context, percent int) error {
	return r.client.SetVolume(ctx, percent)
}

func (r *Remote) Seek(ctx context.Context, positionMs int64) error {
	return r.client.Seek(ctx, positionMs)
}

func (r *Remote) Transfer(ctx context.Context, deviceID string) error {
	return r.client.TransferPlayback(ctx, deviceID)
}

// Health fetches the backend's error condition. A non-2xx answer is itself
// a health condition; only transport and decode failures return an error.
func (r *Remote) Health(ctx context.Context) (*core.SystemHealth, error) {
	report, err := r.client.GetErrorReport(ctx)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			return healthFromStatus(apiErr), nil
		}
		return nil, err
	}
	return convertReport(report), nil
}

// Modules fetches the engine module flags.
func (r *Remote) Modules(ctx context.Context) (core.EngineModuleState, error) {
	status, err := r.client.GetEngineStatus(ctx)
	if err != nil {
		return core.EngineModuleState{}, err
	}
	return core.EngineModuleState{
		VoiceActive: status.VoiceActive,
		HandActive:  status.HandIsActive(),
		VoiceReady:  status.VoiceReady,
		HandReady:   status.HandReady,
	}, nil
}

func (r *Remote) Toggle(ctx context.Context, m core.Module, active bool) error {
	return r.client.ToggleModule(ctx, string(m), active)
}

// Profile fetches the signed-in user's profile.
func (r *Remote) Profile(ctx context.Context) (*core.Profile, error) {
	user, err := r.client.GetProfile(ctx)
	if err != nil {
		return nil, err
	}
	p := &core.Profile{DisplayName: user.DisplayName}
	if len(user.Images) > 0 {
		p.ImageURL = user.Images[0].URL
	}
	return p, nil
}

func healthFromStatus(apiErr *client.APIError) *core.SystemHealth {
	var report client.ErrorReport
	if err := jsonUnmarshal(apiErr.Body, &report); err == nil && report.HasCode() {
		return convertReport(&report)
	}
	return &core.SystemHealth{
		Code:    apiErr.StatusCode,
		Message: http.StatusText(apiErr.StatusCode),
	}
}

var _ core.Remote = (*Remote)(nil)
