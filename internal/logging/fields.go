package logging

import (
	"log/slog"
	"time"
)

// Canonical log field names.
const (
	KeySource     = "source"
	KeyCommand    = "command"
	KeyModule     = "module"
	KeyDeviceID   = "device_id"
	KeyJobID      = "job_id"
	KeyInterval   = "interval"
	KeyDurationMS = "duration_ms"
	KeyStatus     = "status"
	KeyCode       = "code"
	KeyPath       = "path"
	KeyError      = "error"
)

func Source(name string) slog.Attr       { return slog.String(KeySource, name) }
func Command(name string) slog.Attr      { return slog.String(KeyCommand, name) }
func Module(name string) slog.Attr       { return slog.String(KeyModule, name) }
func DeviceID(id string) slog.Attr       { return slog.String(KeyDeviceID, id) }
func JobID(id string) slog.Attr          { return slog.String(KeyJobID, id) }
func Interval(d time.Duration) slog.Attr { return slog.Duration(KeyInterval, d) }
func Status(s string) slog.Attr          { return slog.String(KeyStatus, s) }
func Code(c int) slog.Attr               { return slog.Int(KeyCode, c) }
func Path(p string) slog.Attr            { return slog.String(KeyPath, p) }

func DurationMS(d time.Duration) slog.Attr {
	return slog.Int64(KeyDurationMS, d.Milliseconds())
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
