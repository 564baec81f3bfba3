package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/tessro/startify/internal/logging"
	"github.com/tessro/startify/internal/metrics"
)

// Result is the outcome of one poll.
type Result[T any] struct {
	Value    T
	Err      error
	At       time.Time
	Duration time.Duration
}

// Poller adapts a fetch function into a TickFunc that emits one Result per
// tick. Results of a tick whose context was cancelled are dropped.
type Poller[T any] struct {
	Name     string
	Fetch    func(ctx context.Context) (T, error)
	Emit     func(Result[T])
	IsEmpty  func(T) bool
	Logger   *slog.Logger
	Recorder metrics.Recorder
	Now      func() time.Time
}

// Tick performs one fetch. It satisfies TickFunc.
func (p *Poller[T]) Tick(ctx context.Context) {
	now := p.Now
	if now == nil {
		now = time.Now
	}
	recorder := p.Recorder
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	start := now()
	value, err := p.Fetch(ctx)
	elapsed := now().Sub(start)

	if ctx.Err() != nil {
		recorder.ObservePoll(p.Name, elapsed, metrics.ResultCanceled)
		return
	}

	result := metrics.ResultOK
	switch {
	case err != nil:
		result = metrics.ResultError
		if p.Logger != nil {
			p.Logger.Debug("poll failed", logging.Source(p.Name), logging.DurationMS(elapsed), logging.Error(err))
		}
	case p.IsEmpty != nil && p.IsEmpty(value):
		result = metrics.ResultEmpty
	}
	recorder.ObservePoll(p.Name, elapsed, result)

	p.Emit(Result[T]{Value: value, Err: err, At: start, Duration: elapsed})
}
