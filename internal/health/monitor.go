// Package health implements the armed system health heartbeat.
package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/tessro/startify/internal/core"
	"github.com/tessro/startify/internal/metrics"
	"github.com/tessro/startify/internal/scheduler"
)

// SourceHealth is the scheduler source name for health probes.
const SourceHealth = "health"

// Checker reads the backend's error condition. A nil value means healthy;
// an error means the backend could not be asked.
type Checker interface {
	Health(ctx context.Context) (*core.SystemHealth, error)
}

// Probe performs one health check. It never fails: when the backend cannot
// be reached the result is the synthesized "service unreachable" condition.
func Probe(ctx context.Context, c Checker) *core.SystemHealth {
	h, err := c.Health(ctx)
	if err != nil {
		return core.Unreachable(err)
	}
	return h
}

// Report is a probe outcome tagged with the arming generation that issued it.
type Report struct {
	Health     *core.SystemHealth
	Generation uint64
	At         time.Time
}

// Monitor holds the armed flag and the current SystemHealth. It is not safe
// for concurrent use; the session owner goroutine drives it.
type Monitor struct {
	armed      bool
	generation uint64
	current    *core.SystemHealth
	recorder   metrics.Recorder
}

// NewMonitor creates a disarmed monitor.
func NewMonitor(recorder metrics.Recorder) *Monitor {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Monitor{recorder: recorder}
}

// Arm starts accepting reports. It returns the generation that probes must
// carry, and false if the monitor was already armed.
func (m *Monitor) Arm() (uint64, bool) {
	if m.armed {
		return m.generation, false
	}
	m.armed = true
	m.generation++
	m.recorder.SetArmed(true)
	return m.generation, true
}

// Disarm stops accepting reports. The current value is kept as is.
func (m *Monitor) Disarm() bool {
	if !m.armed {
		return false
	}
	m.armed = false
	m.generation++
	m.recorder.SetArmed(false)
	return true
}

// Armed reports whether the heartbeat is running.
func (m *Monitor) Armed() bool {
	return m.armed
}

// Generation returns the current arming generation.
func (m *Monitor) Generation() uint64 {
	return m.generation
}

// Apply replaces the current value with r, unless r was issued before the
// most recent arm or disarm. It reports whether the value was applied.
func (m *Monitor) Apply(r Report) bool {
	if !m.armed || r.Generation != m.generation {
		return false
	}
	m.current = r.Health
	if r.Health == nil {
		m.recorder.SetHealthCode(0)
	} else {
		m.recorder.SetHealthCode(r.Health.Code)
	}
	return true
}

// Dismiss clears the current value without disarming.
func (m *Monitor) Dismiss() {
	m.current = nil
	m.recorder.SetHealthCode(0)
}

// Current returns the current condition, nil when healthy.
func (m *Monitor) Current() *core.SystemHealth {
	if m.current == nil {
		return nil
	}
	h := *m.current
	return &h
}

// NewProbeTick builds the scheduler tick for one arming generation.
func NewProbeTick(c Checker, generation uint64, emit func(Report), logger *slog.Logger, recorder metrics.Recorder) scheduler.TickFunc {
	p := &scheduler.Poller[*core.SystemHealth]{
		Name: SourceHealth,
		Fetch: func(ctx context.Context) (*core.SystemHealth, error) {
			return Probe(ctx, c), nil
		},
		Emit: func(r scheduler.Result[*core.SystemHealth]) {
			emit(Report{Health: r.Value, Generation: generation, At: r.At})
		},
		IsEmpty:  func(h *core.SystemHealth) bool { return h == nil },
		Logger:   logger,
		Recorder: recorder,
	}
	return p.Tick
}
