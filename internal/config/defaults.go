package config

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL: "http://127.0.0.1:5000",
			Timeout: 5000,
			Retries: 2,
		},
		Poll: PollConfig{
			SnapshotInterval: 2000,
			DevicesInterval:  5000,
			HealthInterval:   3000,
			ModulesInterval:  2000,
		},
		Refetch: RefetchConfig{
			SkipDelay:       200,
			TransferDelay:   1000,
			TransferTimeout: 10000,
		},
		TUI: TUIConfig{
			Theme:           "auto",
			RefreshInterval: 250,
		},
		Log: LogConfig{
			Level: "info",
		},
		Publish: PublishConfig{
			Subject: "startify.events",
		},
	}
}

// ApplyDefaults fills in zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	d := Default()

	// Backend
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = d.Backend.BaseURL
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = d.Backend.Timeout
	}

	// Poll
	if c.Poll.SnapshotInterval == 0 {
		c.Poll.SnapshotInterval = d.Poll.SnapshotInterval
	}
	if c.Poll.DevicesInterval == 0 {
		c.Poll.DevicesInterval = d.Poll.DevicesInterval
	}
	if c.Poll.HealthInterval == 0 {
		c.Poll.HealthInterval = d.Poll.HealthInterval
	}
	if c.Poll.ModulesInterval == 0 {
		c.Poll.ModulesInterval = d.Poll.ModulesInterval
	}

	// Refetch. A zero skip delay is meaningful, so only the timeout is filled.
	if c.Refetch.TransferTimeout == 0 {
		c.Refetch.TransferTimeout = d.Refetch.TransferTimeout
	}

	// TUI
	if c.TUI.Theme == "" {
		c.TUI.Theme = d.TUI.Theme
	}
	if c.TUI.RefreshInterval == 0 {
		c.TUI.RefreshInterval = d.TUI.RefreshInterval
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}

	// Publish
	if c.Publish.Subject == "" {
		c.Publish.Subject = d.Publish.Subject
	}
}
