package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tessro/startify/internal/backend/client"
	"github.com/tessro/startify/internal/core"
	apperrors "github.com/tessro/startify/internal/errors"
	"github.com/tessro/startify/internal/health"
	"github.com/tessro/startify/internal/logging"
	"github.com/tessro/startify/internal/metrics"
	"github.com/tessro/startify/internal/modules"
	"github.com/tessro/startify/internal/playback"
	"github.com/tessro/startify/internal/scheduler"
)

// Intervals sets the cadence of each poll source.
type Intervals struct {
	Snapshot time.Duration
	Devices  time.Duration
	Health   time.Duration
	Modules  time.Duration
}

// DefaultIntervals are used for any zero field.
var DefaultIntervals = Intervals{
	Snapshot: 2 * time.Second,
	Devices:  5 * time.Second,
	Health:   3 * time.Second,
	Modules:  2 * time.Second,
}

func (i Intervals) withDefaults() Intervals {
	if i.Snapshot <= 0 {
		i.Snapshot = DefaultIntervals.Snapshot
	}
	if i.Devices <= 0 {
		i.Devices = DefaultIntervals.Devices
	}
	if i.Health <= 0 {
		i.Health = DefaultIntervals.Health
	}
	if i.Modules <= 0 {
		i.Modules = DefaultIntervals.Modules
	}
	return i
}

// Options configures a Session.
type Options struct {
	Remote          core.Remote
	Intervals       Intervals
	RefetchDelays   playback.RefetchDelays
	TransferTimeout time.Duration
	Clock           clockwork.Clock
	Logger          *slog.Logger
	Recorder        metrics.Recorder

	// OnUnauthorized runs once when the backend rejects the credential,
	// typically to delete it from storage.
	OnUnauthorized func()

	// IsUnauthorized classifies poll errors. Defaults to client.IsUnauthorized.
	IsUnauthorized func(error) bool
}

// Session runs the poll sources and owns the resulting state.
type Session struct {
	opts       Options
	sched      *scheduler.Scheduler
	dispatcher *playback.Dispatcher

	ctx    context.Context
	cancel context.CancelFunc

	events chan event
	quit   chan struct{}
	done   chan struct{}

	started  atomic.Bool
	stopOnce sync.Once
	commands sync.WaitGroup

	view atomic.Pointer[View]

	subsMu  sync.Mutex
	subs    map[int]chan *View
	nextSub int

	// Set in Start, read-only afterwards.
	snapshotSrc *scheduler.Source
	devicesSrc  *scheduler.Source
	modulesSrc  *scheduler.Source

	// Owned by the run goroutine.
	state state
}

type state struct {
	status    Status
	seq       uint64
	snapshot  *core.PlaybackSnapshot
	progress  *playback.ProgressSimulator
	devices   *playback.DeviceCoordinator
	monitor   *health.Monitor
	modules   *modules.Controller
	healthSrc *scheduler.Source
	profile   *core.Profile
	lastErr   string
	lastErrAt time.Time
	intervals Intervals
}

// New creates a stopped session.
func New(opts Options) (*Session, error) {
	if opts.Remote == nil {
		return nil, errors.New("session: remote is required")
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.IsUnauthorized == nil {
		opts.IsUnauthorized = client.IsUnauthorized
	}
	if opts.RefetchDelays == (playback.RefetchDelays{}) {
		opts.RefetchDelays = playback.DefaultRefetchDelays
	}
	opts.Intervals = opts.Intervals.withDefaults()

	sched, err := scheduler.New(
		scheduler.WithLogger(opts.Logger),
		scheduler.WithRecorder(opts.Recorder),
	)
	if err != nil {
		return nil, err
	}

	s := &Session{
		opts:   opts,
		sched:  sched,
		events: make(chan event, 32),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		subs:   make(map[int]chan *View),
		state: state{
			status:    StatusStopped,
			progress:  playback.NewProgressSimulator(opts.Clock),
			devices:   playback.NewDeviceCoordinator(opts.Clock, opts.TransferTimeout),
			monitor:   health.NewMonitor(opts.Recorder),
			modules:   modules.NewController(),
			intervals: opts.Intervals,
		},
	}
	s.dispatcher = playback.NewDispatcher(opts.Remote,
		playback.WithRefetcher(s),
		playback.WithRefetchDelays(opts.RefetchDelays),
		playback.WithDispatchLogger(opts.Logger),
		playback.WithDispatchRecorder(opts.Recorder),
	)
	s.view.Store(&View{Status: StatusStopped, UpdatedAt: opts.Clock.Now()})
	return s, nil
}

// Start begins polling. A session can be started once.
func (s *Session) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("session already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	log := s.opts.Logger
	rec := s.opts.Recorder
	iv := s.opts.Intervals

	snapshotFetcher := playback.NewSnapshotFetcher(s.opts.Remote,
		func(r playback.SnapshotResult) { s.send(snapshotEvent{r}) }, log, rec)
	deviceFetcher := playback.NewDeviceFetcher(s.opts.Remote,
		func(r playback.DevicesResult) { s.send(devicesEvent{r}) }, log, rec)
	statusTick := modules.NewStatusTick(s.opts.Remote,
		func(r modules.StatusResult) { s.send(modulesEvent{r}) }, log, rec)

	var err error
	if s.snapshotSrc, err = s.sched.Every(playback.SourceSnapshot, iv.Snapshot, snapshotFetcher.Tick); err != nil {
		return err
	}
	if s.devicesSrc, err = s.sched.Every(playback.SourceDevices, iv.Devices, deviceFetcher.Tick); err != nil {
		return err
	}
	if s.modulesSrc, err = s.sched.Every(modules.SourceModules, iv.Modules, statusTick); err != nil {
		return err
	}

	s.state.status = StatusRunning
	s.publish()

	go s.run()
	s.sched.Start()

	s.commands.Add(1)
	go func() {
		defer s.commands.Done()
		p, err := s.opts.Remote.Profile(s.ctx)
		if err != nil {
			log.Debug("profile unavailable", logging.Error(err))
			return
		}
		s.send(profileEvent{p})
	}()

	log.Info("session started",
		logging.Interval(iv.Snapshot),
		slog.Duration("health_interval", iv.Health),
		slog.Duration("modules_interval", iv.Modules))
	return nil
}

// Stop tears the session down. No event is applied and no View is published
// after Stop returns. Subscription channels are closed.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		if err := s.sched.Shutdown(); err != nil {
			s.opts.Logger.Debug("scheduler shutdown", logging.Error(err))
		}
		close(s.quit)
		if s.started.Load() {
			<-s.done
		}
		s.commands.Wait()

		v := *s.view.Load()
		if v.Status == StatusRunning {
			v.Status = StatusStopped
		}
		v.Seq++
		s.view.Store(&v)

		s.subsMu.Lock()
		for id, ch := range s.subs {
			close(ch)
			delete(s.subs, id)
		}
		s.subsMu.Unlock()
		s.opts.Logger.Info("session stopped")
	})
}

// View returns the latest published view.
func (s *Session) View() *View {
	return s.view.Load()
}

// Subscribe returns a channel receiving each new View. Slow readers only
// ever see the latest one. The returned function cancels the subscription.
func (s *Session) Subscribe() (<-chan *View, func()) {
	ch := make(chan *View, 1)
	ch <- s.view.Load()

	s.subsMu.Lock()
	select {
	case <-s.quit:
		s.subsMu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subsMu.Unlock()

	return ch, func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		if c, ok := s.subs[id]; ok {
			close(c)
			delete(s.subs, id)
		}
	}
}

// Play resumes playback.
func (s *Session) Play() error { return s.command(playback.Command{Kind: playback.CommandPlay}) }

// Pause pauses playback.
func (s *Session) Pause() error { return s.command(playback.Command{Kind: playback.CommandPause}) }

// Next skips to the next track.
func (s *Session) Next() error { return s.command(playback.Command{Kind: playback.CommandNext}) }

// Previous skips to the previous track.
func (s *Session) Previous() error {
	return s.command(playback.Command{Kind: playback.CommandPrevious})
}

// TogglePlayback pauses when playing and resumes otherwise.
func (s *Session) TogglePlayback() error {
	if s.View().IsPlaying() {
		return s.Pause()
	}
	return s.Play()
}

// SetVolume sets the volume. Values outside 0..100 are rejected locally.
func (s *Session) SetVolume(percent int) error {
	return s.command(playback.Command{Kind: playback.CommandVolume, VolumePercent: percent})
}

// Seek moves the playhead. Positions outside the current track are rejected locally.
func (s *Session) Seek(position time.Duration) error {
	return s.command(playback.Command{Kind: playback.CommandSeek, Position: position})
}

// Transfer asks the backend to move playback to deviceID. The active device
// changes only once a snapshot confirms it.
func (s *Session) Transfer(deviceID string) error {
	return s.command(playback.Command{Kind: playback.CommandTransfer, DeviceID: deviceID})
}

// ToggleModule sets a module's active flag. Modules that are not ready are
// rejected without contacting the engine.
func (s *Session) ToggleModule(m core.Module, active bool) error {
	reply := make(chan error, 1)
	if !s.send(toggleEvent{module: m, active: active, reply: reply}) {
		return apperrors.ErrSessionStopped
	}
	return s.wait(reply)
}

// Arm starts the health heartbeat.
func (s *Session) Arm() error { return s.setArmed(true) }

// Disarm stops the health heartbeat. The last health value is kept.
func (s *Session) Disarm() error { return s.setArmed(false) }

// Dismiss clears the current health condition without disarming.
func (s *Session) Dismiss() {
	s.send(dismissEvent{})
}

// Refresh requests an immediate poll of every playback source.
func (s *Session) Refresh() {
	s.RequestRefetch(0)
	if s.modulesSrc != nil {
		s.modulesSrc.RunNow()
	}
}

// SetIntervals changes poll cadences on a running session.
func (s *Session) SetIntervals(iv Intervals) {
	s.send(intervalsEvent{iv.withDefaults()})
}

// RequestRefetch schedules an out-of-band snapshot and device poll.
func (s *Session) RequestRefetch(delay time.Duration) {
	if s.snapshotSrc == nil {
		return
	}
	s.snapshotSrc.RunAfter(delay)
	s.devicesSrc.RunAfter(delay)
}

func (s *Session) command(cmd playback.Command) error {
	reply := make(chan error, 1)
	if !s.send(commandEvent{cmd: cmd, reply: reply}) {
		return apperrors.ErrSessionStopped
	}
	return s.wait(reply)
}

func (s *Session) setArmed(arm bool) error {
	reply := make(chan error, 1)
	if !s.send(armEvent{arm: arm, reply: reply}) {
		return apperrors.ErrSessionStopped
	}
	return s.wait(reply)
}

func (s *Session) wait(reply chan error) error {
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return apperrors.ErrSessionStopped
	}
}

// send delivers ev to the owner. It returns false once the session stops.
func (s *Session) send(ev event) bool {
	if !s.started.Load() {
		return false
	}
	select {
	case <-s.quit:
		return false
	default:
	}
	select {
	case s.events <- ev:
		return true
	case <-s.quit:
		return false
	}
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			return
		case ev := <-s.events:
			s.apply(ev)
		}
	}
}

func (s *Session) apply(ev event) {
	st := &s.state
	log := s.opts.Logger

	switch ev := ev.(type) {
	case snapshotEvent:
		if st.status != StatusRunning {
			return
		}
		r := ev.result
		if r.Err != nil {
			if s.opts.IsUnauthorized(r.Err) {
				s.unauthenticated()
				return
			}
			st.lastErr = r.Err.Error()
			st.lastErrAt = r.At
			s.publish()
			return
		}
		st.lastErr = ""
		st.snapshot = r.Value
		st.progress.OnSnapshot(r.Value)
		st.devices.OnSnapshot(r.Value)
		s.publish()

	case devicesEvent:
		if st.status != StatusRunning || ev.result.Err != nil {
			return
		}
		if st.devices.OnDevices(ev.result.Value) {
			s.publish()
		}

	case healthEvent:
		if st.status != StatusRunning {
			return
		}
		if st.monitor.Apply(ev.report) {
			s.publish()
		}

	case modulesEvent:
		if st.status != StatusRunning {
			return
		}
		if st.modules.OnStatus(ev.result) {
			s.publish()
		}

	case profileEvent:
		st.profile = ev.profile
		s.publish()

	case intervalsEvent:
		s.applyIntervals(ev.intervals)

	case commandEvent:
		ev.reply <- s.applyCommand(ev.cmd)

	case toggleEvent:
		ev.reply <- s.applyToggle(ev.module, ev.active)

	case armEvent:
		ev.reply <- s.applyArm(ev.arm)

	case dismissEvent:
		st.monitor.Dismiss()
		s.publish()

	default:
		log.Error("unknown session event", slog.String("type", fmt.Sprintf("%T", ev)))
	}
}

func (s *Session) applyCommand(cmd playback.Command) error {
	st := &s.state
	if st.status != StatusRunning {
		return s.notRunning()
	}

	if err := playback.Validate(cmd, st.progress.Progress().TrackDuration()); err != nil {
		s.opts.Recorder.IncCommand(string(cmd.Kind), metrics.ResultRejected)
		return err
	}
	if cmd.Kind == playback.CommandTransfer {
		if err := st.devices.RequestTransfer(cmd.DeviceID); err != nil {
			s.opts.Recorder.IncCommand(string(cmd.Kind), metrics.ResultRejected)
			return err
		}
	}

	st.progress.OnLocalTransport(cmd)
	s.publish()

	s.commands.Add(1)
	go func() {
		defer s.commands.Done()
		_ = s.dispatcher.Dispatch(s.ctx, cmd)
	}()
	return nil
}

func (s *Session) applyToggle(m core.Module, active bool) error {
	st := &s.state
	if st.status != StatusRunning {
		return s.notRunning()
	}
	if err := st.modules.BeginToggle(m, active); err != nil {
		s.opts.Recorder.IncCommand("toggle_"+string(m), metrics.ResultRejected)
		return err
	}
	s.publish()

	s.commands.Add(1)
	go func() {
		defer s.commands.Done()
		_ = modules.Send(s.ctx, s.opts.Remote, m, active, s.opts.Logger, s.opts.Recorder)
		if s.ctx.Err() == nil {
			s.modulesSrc.RunNow()
		}
	}()
	return nil
}

func (s *Session) applyArm(arm bool) error {
	st := &s.state
	if st.status != StatusRunning {
		return s.notRunning()
	}

	if !arm {
		if st.monitor.Disarm() {
			if st.healthSrc != nil {
				st.healthSrc.Stop()
				st.healthSrc = nil
			}
			s.opts.Logger.Info("health heartbeat disarmed")
			s.publish()
		}
		return nil
	}

	gen, ok := st.monitor.Arm()
	if !ok {
		return nil
	}
	tick := health.NewProbeTick(s.opts.Remote, gen,
		func(r health.Report) { s.send(healthEvent{r}) },
		s.opts.Logger, s.opts.Recorder)
	src, err := s.sched.Every(health.SourceHealth, st.intervals.Health, tick)
	if err != nil {
		st.monitor.Disarm()
		return fmt.Errorf("arm health heartbeat: %w", err)
	}
	st.healthSrc = src
	s.opts.Logger.Info("health heartbeat armed", logging.Interval(st.intervals.Health))
	s.publish()
	return nil
}

func (s *Session) applyIntervals(iv Intervals) {
	st := &s.state
	st.intervals = iv
	if st.status != StatusRunning {
		return
	}
	set := func(src *scheduler.Source, d time.Duration) {
		if src == nil {
			return
		}
		if err := src.SetInterval(d); err != nil {
			s.opts.Logger.Warn("interval change failed", logging.Source(src.Name()), logging.Error(err))
		}
	}
	set(s.snapshotSrc, iv.Snapshot)
	set(s.devicesSrc, iv.Devices)
	set(s.modulesSrc, iv.Modules)
	set(st.healthSrc, iv.Health)
}

// unauthenticated forces the session out of the running state after the
// backend rejected the credential. Results still in flight are dropped by
// the status checks in apply.
func (s *Session) unauthenticated() {
	st := &s.state
	s.opts.Logger.Warn("backend rejected the session credential")

	st.status = StatusUnauthenticated
	for _, src := range []*scheduler.Source{s.snapshotSrc, s.devicesSrc, s.modulesSrc, st.healthSrc} {
		if src != nil {
			src.Stop()
		}
	}
	st.healthSrc = nil
	st.monitor.Disarm()

	if s.opts.OnUnauthorized != nil {
		s.opts.OnUnauthorized()
	}
	s.publish()
}

func (s *Session) notRunning() error {
	if s.state.status == StatusUnauthenticated {
		return apperrors.ErrNotAuthenticated
	}
	return apperrors.ErrSessionStopped
}

// publish builds a fresh View from owned state and fans it out.
func (s *Session) publish() {
	st := &s.state
	st.seq++
	v := &View{
		Seq:             st.seq,
		Status:          st.status,
		UpdatedAt:       s.opts.Clock.Now(),
		Snapshot:        st.snapshot,
		Progress:        st.progress.Progress(),
		Devices:         st.devices.Devices(),
		ActiveDevice:    st.devices.Active(),
		PendingTransfer: st.devices.Pending(),
		Armed:           st.monitor.Armed(),
		Health:          st.monitor.Current(),
		Modules:         st.modules.State(),
		ModulesKnown:    st.modules.Received(),
		Profile:         st.profile,
		LastError:       st.lastErr,
		LastErrorAt:     st.lastErrAt,
	}
	s.view.Store(v)

	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}
