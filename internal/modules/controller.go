// Package modules gates and tracks the engine's voice and hand modules.
package modules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tessro/startify/internal/core"
	apperrors "github.com/tessro/startify/internal/errors"
	"github.com/tessro/startify/internal/logging"
	"github.com/tessro/startify/internal/metrics"
	"github.com/tessro/startify/internal/scheduler"
)

// SourceModules is the scheduler source name for module status polls.
const SourceModules = "modules"

// StatusSource reads module status from the engine.
type StatusSource interface {
	Modules(ctx context.Context) (core.EngineModuleState, error)
}

// Toggler starts and stops modules on the engine.
type Toggler interface {
	Toggle(ctx context.Context, m core.Module, active bool) error
}

// StatusResult is one module status poll outcome.
type StatusResult = scheduler.Result[core.EngineModuleState]

// Controller tracks module state. Toggles are applied optimistically and
// every status poll overwrites them. It is not safe for concurrent use; the
// session owner goroutine drives it.
type Controller struct {
	state    core.EngineModuleState
	received bool
}

// NewController creates a controller with every module not ready.
func NewController() *Controller {
	return &Controller{}
}

// BeginToggle validates a toggle and applies it optimistically. A rejected
// toggle leaves state unchanged and must not reach the engine.
func (c *Controller) BeginToggle(m core.Module, active bool) error {
	if _, err := core.ParseModule(string(m)); err != nil {
		return fmt.Errorf("%w: %q", apperrors.ErrUnknownModule, string(m))
	}
	if !c.state.Ready(m) {
		return fmt.Errorf("%s: %w", m, apperrors.ErrModuleNotReady)
	}
	c.state = c.state.WithActive(m, active)
	return nil
}

// OnStatus overwrites local state with the engine's report. Failed polls
// keep the last known state.
func (c *Controller) OnStatus(r StatusResult) bool {
	if r.Err != nil {
		return false
	}
	changed := !c.received || c.state != r.Value
	c.state = r.Value
	c.received = true
	return changed
}

// State returns the current module state.
func (c *Controller) State() core.EngineModuleState {
	return c.state
}

// Received reports whether the engine has answered at least once.
func (c *Controller) Received() bool {
	return c.received
}

// NewStatusTick builds the scheduler tick that polls module status.
func NewStatusTick(src StatusSource, emit func(StatusResult), logger *slog.Logger, recorder metrics.Recorder) scheduler.TickFunc {
	p := &scheduler.Poller[core.EngineModuleState]{
		Name:     SourceModules,
		Fetch:    src.Modules,
		Emit:     emit,
		Logger:   logger,
		Recorder: recorder,
	}
	return p.Tick
}

// Send delivers a validated toggle to the engine and records the outcome.
func Send(ctx context.Context, t Toggler, m core.Module, active bool, logger *slog.Logger, recorder metrics.Recorder) error {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	err := t.Toggle(ctx, m, active)
	switch {
	case err == nil:
		recorder.IncCommand("toggle_"+string(m), metrics.ResultOK)
	case ctx.Err() != nil:
		recorder.IncCommand("toggle_"+string(m), metrics.ResultCanceled)
	default:
		recorder.IncCommand("toggle_"+string(m), metrics.ResultError)
		if logger != nil {
			logger.Warn("module toggle failed",
				logging.Module(string(m)),
				slog.Bool("active", active),
				logging.Error(err))
		}
	}
	return err
}
