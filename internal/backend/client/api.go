package client

import "context"

// GetProfile returns the signed-in user's profile.
func (c *Client) GetProfile(ctx context.Context) (*User, error) {
	var user User
	if err := c.Get(ctx, "/api/user/profile", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetDevices returns the available playback devices.
func (c *Client) GetDevices(ctx context.Context) ([]Device, error) {
	var resp DevicesResponse
	if err := c.Get(ctx, "/api/player/devices", &resp); err != nil {
		return nil, err
	}
	return resp.Devices, nil
}

// GetPlaybackState returns the current playback state, or nil when the
// backend reports no active session (empty body or JSON null).
func (c *Client) GetPlaybackState(ctx context.Context) (*PlaybackState, error) {
	var state *PlaybackState
	if err := c.Get(ctx, "/api/player/state", &state); err != nil {
		return nil, err
	}
	return state, nil
}

// GetErrorReport returns the backend's current error condition.
func (c *Client) GetErrorReport(ctx context.Context) (*ErrorReport, error) {
	var report ErrorReport
	if err := c.Get(ctx, "/api/error", &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// GetEngineStatus returns the voice and hand module flags.
func (c *Client) GetEngineStatus(ctx context.Context) (*EngineStatus, error) {
	var status EngineStatus
	if err := c.Get(ctx, "/api/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}
