package client

import "context"

// Send issues a transport command.
func (c *Client) Send(ctx context.Context, cmd Command) error {
	path, err := cmd.path()
	if err != nil {
		return err
	}
	return c.Post(ctx, path, nil, nil)
}

// Play resumes playback.
func (c *Client) Play(ctx context.Context) error {
	return c.Send(ctx, CommandPlay)
}

// Pause pauses playback.
func (c *Client) Pause(ctx context.Context) error {
	return c.Send(ctx, CommandPause)
}

// Next skips to the next track.
func (c *Client) Next(ctx context.Context) error {
	return c.Send(ctx, CommandNext)
}

// Previous skips to the previous track.
func (c *Client) Previous(ctx context.Context) error {
	return c.Send(ctx, CommandPrevious)
}

// SetVolume sets the playback volume (0-100).
func (c *Client) SetVolume(ctx context.Context, percent int) error {
	return c.Post(ctx, "/api/player/volume", VolumeRequest{VolumePercent: percent}, nil)
}

// Seek seeks to a position in the current track.
func (c *Client) Seek(ctx context.Context, positionMs int64) error {
	return c.Post(ctx, "/api/player/seek", SeekRequest{PositionMS: positionMs}, nil)
}

// TransferPlayback asks the backend to move playback to another device.
func (c *Client) TransferPlayback(ctx context.Context, deviceID string) error {
	return c.Post(ctx, "/api/player/transfer", TransferRequest{DeviceID: deviceID}, nil)
}

// ToggleModule starts or stops an engine module.
func (c *Client) ToggleModule(ctx context.Context, module string, active bool) error {
	return c.Post(ctx, "/api/toggle", ToggleRequest{Module: module, Active: active}, nil)
}
