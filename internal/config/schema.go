package config

import "time"

// Config is the root configuration structure.
type Config struct {
	Backend BackendConfig `toml:"backend" json:"backend" yaml:"backend"`
	Poll    PollConfig    `toml:"poll" json:"poll" yaml:"poll"`
	Refetch RefetchConfig `toml:"refetch" json:"refetch" yaml:"refetch"`
	TUI     TUIConfig     `toml:"tui" json:"tui" yaml:"tui"`
	Log     LogConfig     `toml:"log" json:"log" yaml:"log"`
	Journal JournalConfig `toml:"journal" json:"journal" yaml:"journal"`
	Publish PublishConfig `toml:"publish" json:"publish" yaml:"publish"`
	Metrics MetricsConfig `toml:"metrics" json:"metrics" yaml:"metrics"`
}

// BackendConfig holds the local playback service connection settings.
// Timeout is in milliseconds.
type BackendConfig struct {
	BaseURL string `toml:"base_url" json:"base_url" yaml:"base_url"`
	Timeout int    `toml:"timeout" json:"timeout" yaml:"timeout"`
	Retries int    `toml:"retries" json:"retries" yaml:"retries"`
}

// PollConfig holds poll cadences in milliseconds.
type PollConfig struct {
	SnapshotInterval int `toml:"snapshot_interval" json:"snapshot_interval" yaml:"snapshot_interval"`
	DevicesInterval  int `toml:"devices_interval" json:"devices_interval" yaml:"devices_interval"`
	HealthInterval   int `toml:"health_interval" json:"health_interval" yaml:"health_interval"`
	ModulesInterval  int `toml:"modules_interval" json:"modules_interval" yaml:"modules_interval"`
}

// RefetchConfig holds the delays before a command's confirming poll, and how
// long a transfer may stay unconfirmed. All values are milliseconds.
type RefetchConfig struct {
	SkipDelay       int `toml:"skip_delay" json:"skip_delay" yaml:"skip_delay"`
	TransferDelay   int `toml:"transfer_delay" json:"transfer_delay" yaml:"transfer_delay"`
	TransferTimeout int `toml:"transfer_timeout" json:"transfer_timeout" yaml:"transfer_timeout"`
}

// TUIConfig holds terminal UI settings.
type TUIConfig struct {
	Theme           string `toml:"theme" json:"theme" yaml:"theme"`
	RefreshInterval int    `toml:"refresh_interval" json:"refresh_interval" yaml:"refresh_interval"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level" json:"level" yaml:"level"`
	File  string `toml:"file" json:"file" yaml:"file"`
}

// JournalConfig controls the on-disk event journal.
type JournalConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled" yaml:"enabled"`
	Path    string `toml:"path" json:"path" yaml:"path"`
}

// PublishConfig controls event publication to NATS.
type PublishConfig struct {
	NATSURL string `toml:"nats_url" json:"nats_url" yaml:"nats_url"`
	Subject string `toml:"subject" json:"subject" yaml:"subject"`
}

// MetricsConfig controls the Prometheus endpoint. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `toml:"addr" json:"addr" yaml:"addr"`
}

// Millis converts a millisecond config value to a duration.
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
