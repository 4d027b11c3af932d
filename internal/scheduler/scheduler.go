package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/nhle/compliance-notifier/internal/engine"
	"github.com/nhle/compliance-notifier/internal/model"
)

// Runner performs one unit of scheduled work.
type Runner interface {
	Tick(ctx context.Context) (engine.Report, error)
}

// State represents whether a tick is in flight.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateError
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateError:
		return "error"
	}
	return "idle"
}

// Status is a snapshot of the scheduler for the dashboard and API.
type Status struct {
	State      State         `json:"-"`
	StateName  string        `json:"state"`
	Running    bool          `json:"scheduler_running"`
	Schedule   string        `json:"schedule"`
	LastRun    time.Time     `json:"last_run"`
	LastReport engine.Report `json:"last_report"`
	LastError  string        `json:"last_error,omitempty"`
	NextRun    time.Time     `json:"next_run"`
}

// Scheduler owns the recurring engine tick: one delayed first run, then
// the cron schedule. Runs never overlap; a run that would start while
// another is in flight is skipped.
type Scheduler struct {
	runner     Runner
	spec       string
	startDelay time.Duration
	log        logrus.FieldLogger

	cron    *cron.Cron
	job     cron.Job
	entryID cron.EntryID

	ctx      context.Context
	cancel   context.CancelFunc
	delay    *time.Timer
	firstRun time.Time
	wg       sync.WaitGroup

	// tickMu is held for the duration of every engine tick.
	tickMu sync.Mutex

	mu      sync.Mutex
	running bool
	status  Status
}

// New creates a Scheduler for r from cfg. cfg.Cron, when set, replaces the
// fixed interval.
func New(r Runner, cfg model.SchedulerConfig, log logrus.FieldLogger) (*Scheduler, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	spec := cfg.Cron
	if spec == "" {
		if cfg.Interval <= 0 {
			return nil, fmt.Errorf("scheduler interval must be positive, got %s", cfg.Interval)
		}
		spec = "@every " + cfg.Interval.String()
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("parsing schedule %q: %w", spec, err)
	}

	cronLog := cron.PrintfLogger(log)
	s := &Scheduler{
		runner:     r,
		spec:       spec,
		startDelay: cfg.StartDelay,
		log:        log,
		cron:       cron.New(cron.WithLogger(cronLog)),
		status:     Status{Schedule: spec},
	}
	s.job = cron.NewChain(
		cron.Recover(cronLog),
		cron.SkipIfStillRunning(cronLog),
	).Then(cron.FuncJob(s.run))

	return s, nil
}

// Start schedules the first tick after the configured start delay. The
// recurring schedule is registered when that first tick begins, so a fixed
// interval counts from it. Calling Start twice is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.ctx, s.cancel = ctx, cancel
	s.firstRun = time.Now().Add(s.startDelay)
	s.delay = time.AfterFunc(s.startDelay, func() { s.begin(ctx) })
	s.running = true

	s.log.WithFields(logrus.Fields{
		"schedule":    s.spec,
		"start_delay": s.startDelay.String(),
	}).Info("notification scheduler started")

	return nil
}

// begin registers the recurring job and performs the first tick. ctx
// identifies the Start call that armed the delay.
func (s *Scheduler) begin(ctx context.Context) {
	s.mu.Lock()
	if !s.running || s.ctx != ctx {
		s.mu.Unlock()
		return
	}
	id, err := s.cron.AddJob(s.spec, s.job)
	if err != nil {
		s.mu.Unlock()
		s.log.WithError(err).Error("scheduling engine tick")
		return
	}
	s.entryID = id
	s.cron.Start()
	s.mu.Unlock()

	s.job.Run()
}

// Stop cancels future ticks, aborts the one in flight and waits for it to
// return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.delay.Stop()
	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
		s.entryID = 0
	}
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()

	s.log.Info("notification scheduler stopped")
}

// RunNow performs a tick on the caller's goroutine, waiting for a
// scheduled tick in flight to finish first.
func (s *Scheduler) RunNow(ctx context.Context) (engine.Report, error) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	return s.tick(ctx)
}

// Status returns a snapshot of the scheduler.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.status
	st.Running = s.running
	st.StateName = st.State.String()
	switch {
	case s.running && s.entryID == 0:
		st.NextRun = s.firstRun
	case s.running:
		st.NextRun = s.cron.Entry(s.entryID).Next
	}
	return st
}

// run is the scheduled job body.
func (s *Scheduler) run() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	ctx := s.ctx
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	if !s.tickMu.TryLock() {
		s.log.Debug("tick already in progress, skipping")
		return
	}
	defer s.tickMu.Unlock()

	// Errors are logged inside tick; the schedule keeps going regardless.
	_, _ = s.tick(ctx)
}

func (s *Scheduler) tick(ctx context.Context) (engine.Report, error) {
	s.setState(StateRunning, nil, nil)

	report, err := s.runner.Tick(ctx)
	if err != nil {
		s.log.WithError(err).Error("notification tick failed")
		s.setState(StateError, &report, err)
		return report, err
	}

	s.setState(StateIdle, &report, nil)
	return report, nil
}

func (s *Scheduler) setState(state State, report *engine.Report, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.State = state
	if state == StateRunning {
		return
	}
	s.status.LastRun = time.Now()
	if report != nil {
		s.status.LastReport = *report
	}
	s.status.LastError = ""
	if err != nil {
		s.status.LastError = err.Error()
	}
}
