// Package scheduler runs the named interval sources that drive polling.
//
// Each source is one gocron duration job. A source never runs two ticks at
// once: a tick that arrives while the previous one is still in flight is
// skipped, not queued. Every source owns a cancellation context that is
// cancelled by Stop, so a handler can tell that its result is no longer
// wanted.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"

	"github.com/tessro/startify/internal/logging"
	"github.com/tessro/startify/internal/metrics"
)

// TickFunc is the work done on each tick of a source. ctx is cancelled when
// the source stops.
type TickFunc func(ctx context.Context)

// Scheduler owns the gocron scheduler and the sources registered on it.
type Scheduler struct {
	scheduler gocron.Scheduler
	clock     clockwork.Clock
	logger    *slog.Logger
	recorder  metrics.Recorder

	mu       sync.Mutex
	sources  map[string]*Source
	shutdown bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger shared with gocron.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces the wall clock, for tests.
func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.recorder = r
		}
	}
}

// New creates a scheduler. Call Start to begin running sources.
func New(opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		clock:    clockwork.NewRealClock(),
		logger:   slog.New(slog.DiscardHandler),
		recorder: metrics.NoopRecorder{},
		sources:  make(map[string]*Source),
	}
	for _, opt := range opts {
		opt(s)
	}

	gs, err := gocron.NewScheduler(
		gocron.WithClock(s.clock),
		gocron.WithLogger(s.logger),
		gocron.WithStopTimeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	s.scheduler = gs
	return s, nil
}

// Start begins running registered sources.
func (s *Scheduler) Start() {
	s.logger.Debug("starting scheduler")
	s.scheduler.Start()
}

// Shutdown stops every source and the underlying scheduler. No tick starts
// after Shutdown returns.
func (s *Scheduler) Shutdown() error {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return nil
	}
	s.shutdown = true
	sources := make([]*Source, 0, len(s.sources))
	for _, src := range s.sources {
		sources = append(sources, src)
	}
	s.mu.Unlock()

	for _, src := range sources {
		src.cancelAll()
	}
	s.logger.Debug("stopping scheduler")
	return s.scheduler.Shutdown()
}

// Every registers a source that ticks immediately and then every interval.
// A stopped source of the same name is replaced; a running one is an error.
func (s *Scheduler) Every(name string, interval time.Duration, fn TickFunc) (*Source, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("source %s: interval must be positive", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shutdown {
		return nil, fmt.Errorf("source %s: scheduler is shut down", name)
	}
	if existing, ok := s.sources[name]; ok && !existing.Stopped() {
		return nil, fmt.Errorf("source %s is already running", name)
	}

	ctx, cancel := context.WithCancel(context.Background())
	src := &Source{
		name:     name,
		interval: interval,
		fn:       fn,
		ctx:      ctx,
		cancel:   cancel,
		sched:    s,
	}

	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(src.tick),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create %s job: %w", name, err)
	}
	src.job = job
	s.sources[name] = src

	s.logger.Debug("source registered",
		logging.Source(name),
		logging.Interval(interval),
		logging.JobID(job.ID().String()))
	return src, nil
}

// Source returns the registered source with the given name, or nil.
func (s *Scheduler) Source(name string) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sources[name]
}

// Source is one named periodic task.
type Source struct {
	name  string
	fn    TickFunc
	sched *Scheduler

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	job      gocron.Job
	interval time.Duration
	pending  clockwork.Timer

	running atomic.Bool
	stopped atomic.Bool
}

// Name returns the source name.
func (src *Source) Name() string {
	return src.name
}

// Interval returns the current tick interval.
func (src *Source) Interval() time.Duration {
	src.mu.Lock()
	defer src.mu.Unlock()
	return src.interval
}

// Stopped reports whether Stop has been called.
func (src *Source) Stopped() bool {
	return src.stopped.Load()
}

// Running reports whether a tick is in flight.
func (src *Source) Running() bool {
	return src.running.Load()
}

// Context returns the source's cancellation context.
func (src *Source) Context() context.Context {
	return src.ctx
}

// RunNow requests an immediate out-of-band tick. It is skipped if a tick is
// already in flight.
func (src *Source) RunNow() {
	if src.Stopped() {
		return
	}
	src.mu.Lock()
	job := src.job
	src.mu.Unlock()

	if err := job.RunNow(); err != nil {
		src.sched.logger.Debug("run now failed", logging.Source(src.name), logging.Error(err))
	}
}

// RunAfter requests a single out-of-band tick after d. A newer request
// replaces one that has not fired yet.
func (src *Source) RunAfter(d time.Duration) {
	if d <= 0 {
		src.RunNow()
		return
	}

	src.mu.Lock()
	defer src.mu.Unlock()
	if src.stopped.Load() {
		return
	}
	if src.pending != nil {
		src.pending.Stop()
	}
	src.pending = src.sched.clock.AfterFunc(d, src.RunNow)
}

// SetInterval changes the tick interval without restarting the source.
func (src *Source) SetInterval(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("source %s: interval must be positive", src.name)
	}
	src.mu.Lock()
	defer src.mu.Unlock()

	if src.stopped.Load() || d == src.interval {
		return nil
	}
	job, err := src.sched.scheduler.Update(
		src.job.ID(),
		gocron.DurationJob(d),
		gocron.NewTask(src.tick),
		gocron.WithName(src.name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to update %s interval: %w", src.name, err)
	}
	src.job = job
	src.interval = d
	src.sched.logger.Info("source interval changed", logging.Source(src.name), logging.Interval(d))
	return nil
}

// Stop cancels the source. Pending delayed ticks are dropped and any tick in
// flight sees its context cancelled. Stop is idempotent.
func (src *Source) Stop() {
	if !src.cancelAll() {
		return
	}
	src.mu.Lock()
	id := src.job.ID()
	src.mu.Unlock()

	if err := src.sched.scheduler.RemoveJob(id); err != nil {
		src.sched.logger.Debug("remove job failed", logging.Source(src.name), logging.Error(err))
	}
	src.sched.logger.Debug("source stopped", logging.Source(src.name))
}

// cancelAll marks the source stopped and cancels its context and pending tick. It
// returns false if the source was already stopped.
func (src *Source) cancelAll() bool {
	if !src.stopped.CompareAndSwap(false, true) {
		return false
	}
	src.cancel()

	src.mu.Lock()
	if src.pending != nil {
		src.pending.Stop()
		src.pending = nil
	}
	src.mu.Unlock()
	return true
}

func (src *Source) tick() {
	if src.ctx.Err() != nil {
		return
	}
	if !src.running.CompareAndSwap(false, true) {
		src.sched.recorder.IncSkippedTick(src.name)
		src.sched.logger.Debug("tick skipped, previous still in flight", logging.Source(src.name))
		return
	}
	defer src.running.Store(false)

	src.fn(src.ctx)
}
