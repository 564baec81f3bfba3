package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"

	"github.com/tessro/startify/internal/logging"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Backend.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("backend: %w", err))
	}
	if err := c.Poll.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("poll: %w", err))
	}
	if err := c.Refetch.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("refetch: %w", err))
	}
	if err := c.TUI.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tui: %w", err))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}
	if err := c.Publish.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("publish: %w", err))
	}
	if err := c.Metrics.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("metrics: %w", err))
	}

	return errors.Join(errs...)
}

// Validate checks BackendConfig for errors.
func (c *BackendConfig) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid base_url: %q (must be http or https)", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.Retries < 0 {
		return errors.New("retries must be non-negative")
	}
	return nil
}

// Validate checks PollConfig for errors. Sub-100ms cadences would hammer the
// backend, so they are rejected.
func (c *PollConfig) Validate() error {
	var errs []error
	for _, iv := range []struct {
		name string
		ms   int
	}{
		{"snapshot_interval", c.SnapshotInterval},
		{"devices_interval", c.DevicesInterval},
		{"health_interval", c.HealthInterval},
		{"modules_interval", c.ModulesInterval},
	} {
		if iv.ms < 100 {
			errs = append(errs, fmt.Errorf("%s must be at least 100 ms", iv.name))
		}
	}
	return errors.Join(errs...)
}

// Validate checks RefetchConfig for errors.
func (c *RefetchConfig) Validate() error {
	if c.SkipDelay < 0 || c.TransferDelay < 0 {
		return errors.New("delays must be non-negative")
	}
	if c.TransferTimeout <= 0 {
		return errors.New("transfer_timeout must be positive")
	}
	return nil
}

// Validate checks TUIConfig for errors.
func (c *TUIConfig) Validate() error {
	switch c.Theme {
	case "", "auto", "dark", "light", "latte", "frappe", "macchiato", "mocha":
	default:
		return fmt.Errorf("invalid theme: %s (must be auto, dark, light, or a catppuccin flavour)", c.Theme)
	}
	if c.RefreshInterval < 0 {
		return errors.New("refresh_interval must be non-negative")
	}
	return nil
}

// Validate checks LogConfig for errors.
func (c *LogConfig) Validate() error {
	if _, err := logging.ParseLevel(c.Level); err != nil {
		return err
	}
	return nil
}

// Validate checks PublishConfig for errors.
func (c *PublishConfig) Validate() error {
	if c.NATSURL != "" {
		if _, err := url.Parse(c.NATSURL); err != nil {
			return fmt.Errorf("invalid nats_url: %w", err)
		}
		if c.Subject == "" {
			return errors.New("subject is required when nats_url is set")
		}
	}
	return nil
}

// Validate checks MetricsConfig for errors.
func (c *MetricsConfig) Validate() error {
	if c.Addr == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("invalid addr %q: %w", c.Addr, err)
	}
	return nil
}

// LogValue renders the settings that matter when debugging a session.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("base_url", c.Backend.BaseURL),
		slog.Int("snapshot_interval_ms", c.Poll.SnapshotInterval),
		slog.Int("health_interval_ms", c.Poll.HealthInterval),
		slog.String("log_level", c.Log.Level),
	)
}
