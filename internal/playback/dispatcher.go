package playback

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/tessro/startify/internal/errors"
	"github.com/tessro/startify/internal/logging"
	"github.com/tessro/startify/internal/metrics"
)

// CommandKind names an outbound player command.
type CommandKind string

const (
	CommandPlay     CommandKind = "play"
	CommandPause    CommandKind = "pause"
	CommandNext     CommandKind = "next"
	CommandPrevious CommandKind = "previous"
	CommandVolume   CommandKind = "volume"
	CommandSeek     CommandKind = "seek"
	CommandTransfer CommandKind = "transfer"
)

// Command is one user intent bound for the backend.
type Command struct {
	Kind          CommandKind
	VolumePercent int
	Position      time.Duration
	DeviceID      string
}

func (c Command) String() string {
	switch c.Kind {
	case CommandVolume:
		return fmt.Sprintf("volume %d%%", c.VolumePercent)
	case CommandSeek:
		return fmt.Sprintf("seek %s", c.Position)
	case CommandTransfer:
		return fmt.Sprintf("transfer %s", c.DeviceID)
	}
	return string(c.Kind)
}

// CommandSink is the subset of the backend that accepts player commands.
type CommandSink interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Volume(ctx context.Context, percent int) error
	Seek(ctx context.Context, positionMs int64) error
	Transfer(ctx context.Context, deviceID string) error
}

// Refetcher schedules an out-of-band snapshot fetch.
type Refetcher interface {
	RequestRefetch(delay time.Duration)
}

// RefetchDelays sets how long to wait before re-fetching after commands
// whose effect is not immediate on the backend.
type RefetchDelays struct {
	Skip     time.Duration
	Transfer time.Duration
}

// DefaultRefetchDelays matches the backend's observed settle times.
var DefaultRefetchDelays = RefetchDelays{
	Skip:     200 * time.Millisecond,
	Transfer: time.Second,
}

// Dispatcher is the only producer of outbound player commands.
type Dispatcher struct {
	sink     CommandSink
	refetch  Refetcher
	delays   RefetchDelays
	logger   *slog.Logger
	recorder metrics.Recorder
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

func WithRefetcher(r Refetcher) DispatcherOption {
	return func(d *Dispatcher) { d.refetch = r }
}

func WithRefetchDelays(delays RefetchDelays) DispatcherOption {
	return func(d *Dispatcher) { d.delays = delays }
}

func WithDispatchLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

func WithDispatchRecorder(r metrics.Recorder) DispatcherOption {
	return func(d *Dispatcher) {
		if r != nil {
			d.recorder = r
		}
	}
}

// NewDispatcher creates a dispatcher sending to sink.
func NewDispatcher(sink CommandSink, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sink:     sink,
		delays:   DefaultRefetchDelays,
		logger:   slog.New(slog.DiscardHandler),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Validate checks a command against local constraints. trackDuration is the
// length of the current track, zero when nothing is playing. A rejected
// command must not be dispatched.
func Validate(cmd Command, trackDuration time.Duration) error {
	switch cmd.Kind {
	case CommandPlay, CommandPause, CommandNext, CommandPrevious:
		return nil
	case CommandVolume:
		if cmd.VolumePercent < 0 || cmd.VolumePercent > 100 {
			return fmt.Errorf("volume %d: %w", cmd.VolumePercent, apperrors.ErrVolumeOutOfRange)
		}
		return nil
	case CommandSeek:
		if trackDuration <= 0 {
			return apperrors.ErrNoActiveTrack
		}
		if cmd.Position < 0 || cmd.Position > trackDuration {
			return fmt.Errorf("seek to %s of %s: %w", cmd.Position, trackDuration, apperrors.ErrSeekOutOfRange)
		}
		return nil
	case CommandTransfer:
		if cmd.DeviceID == "" {
			return apperrors.ErrDeviceNotFound
		}
		return nil
	}
	return fmt.Errorf("unknown command %q", string(cmd.Kind))
}

// Dispatch sends cmd and then requests an accelerated re-fetch. Failures
// are logged and counted; the returned error is informational, callers that
// treat commands as fire-and-forget may ignore it. Callers must Validate first.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) error {
	err := d.send(ctx, cmd)

	switch {
	case err == nil:
		d.recorder.IncCommand(string(cmd.Kind), metrics.ResultOK)
		d.logger.Debug("command sent", logging.Command(cmd.String()))
	case ctx.Err() != nil:
		d.recorder.IncCommand(string(cmd.Kind), metrics.ResultCanceled)
		return err
	default:
		d.recorder.IncCommand(string(cmd.Kind), metrics.ResultError)
		d.logger.Warn("command failed", logging.Command(cmd.String()), logging.Error(err))
	}

	if d.refetch != nil {
		d.refetch.RequestRefetch(d.RefetchDelay(cmd.Kind))
	}
	return err
}

// RefetchDelay returns how long to wait after kind before re-fetching.
func (d *Dispatcher) RefetchDelay(kind CommandKind) time.Duration {
	switch kind {
	case CommandNext, CommandPrevious:
		return d.delays.Skip
	case CommandTransfer:
		return d.delays.Transfer
	}
	return 0
}

func (d *Dispatcher) send(ctx context.Context, cmd Command) error {
	switch cmd.Kind {
	case CommandPlay:
		return d.sink.Play(ctx)
	case CommandPause:
		return d.sink.Pause(ctx)
	case CommandNext:
		return d.sink.Next(ctx)
	case CommandPrevious:
		return d.sink.Previous(ctx)
	case CommandVolume:
		return d.sink.Volume(ctx, cmd.VolumePercent)
	case CommandSeek:
		return d.sink.Seek(ctx, cmd.Position.Milliseconds())
	case CommandTransfer:
		return d.sink.Transfer(ctx, cmd.DeviceID)
	}
	return fmt.Errorf("unknown command %q", string(cmd.Kind))
}
