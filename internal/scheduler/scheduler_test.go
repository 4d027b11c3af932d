package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/compliance-notifier/internal/engine"
	"github.com/nhle/compliance-notifier/internal/model"
)

type fakeRunner struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func (f *fakeRunner) Tick(ctx context.Context) (engine.Report, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return engine.Report{}, ctx.Err()
		}
	}
	return engine.Report{Created: 1}, f.err
}

func newTestScheduler(t *testing.T, r Runner, cfg model.SchedulerConfig) *Scheduler {
	t.Helper()

	logger, _ := logtest.NewNullLogger()
	s, err := New(r, cfg, logger)
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	return s
}

func TestScheduler_FirstRunAfterStartDelay(t *testing.T) {
	r := &fakeRunner{}
	s := newTestScheduler(t, r, model.SchedulerConfig{Interval: time.Hour, StartDelay: 20 * time.Millisecond})

	require.NoError(t, s.Start())
	assert.Equal(t, int32(0), r.calls.Load())

	assert.Eventually(t, func() bool { return r.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	st := s.Status()
	assert.True(t, st.Running)
	assert.Equal(t, "@every 1h0m0s", st.Schedule)
	assert.False(t, st.NextRun.IsZero())
}

func TestScheduler_StopBeforeDelayPreventsRun(t *testing.T) {
	r := &fakeRunner{}
	s := newTestScheduler(t, r, model.SchedulerConfig{Interval: time.Hour, StartDelay: 50 * time.Millisecond})

	require.NoError(t, s.Start())
	s.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), r.calls.Load())
	assert.False(t, s.Status().Running)
}

func TestScheduler_StopAbortsInFlightTick(t *testing.T) {
	r := &fakeRunner{release: make(chan struct{})}
	s := newTestScheduler(t, r, model.SchedulerConfig{Interval: time.Hour})

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { return r.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
	assert.Equal(t, StateError, s.Status().State)
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	r := &fakeRunner{release: make(chan struct{})}
	s := newTestScheduler(t, r, model.SchedulerConfig{Interval: time.Hour})

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { return r.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateRunning, s.Status().State)

	s.job.Run()
	assert.Equal(t, int32(1), r.calls.Load())

	close(r.release)
	require.Eventually(t, func() bool { return s.Status().State == StateIdle }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, s.Status().LastReport.Created)
}

func TestScheduler_RunNowRecordsError(t *testing.T) {
	boom := errors.New("boom")
	r := &fakeRunner{err: boom}
	s := newTestScheduler(t, r, model.SchedulerConfig{Interval: time.Hour})

	_, err := s.RunNow(context.Background())
	assert.ErrorIs(t, err, boom)

	st := s.Status()
	assert.Equal(t, StateError, st.State)
	assert.Equal(t, "error", st.StateName)
	assert.Equal(t, "boom", st.LastError)

	r.err = nil
	_, err = s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Empty(t, s.Status().LastError)
}

func TestNew_CronExpression(t *testing.T) {
	r := &fakeRunner{}

	s, err := New(r, model.SchedulerConfig{Cron: "0 * * * *"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "0 * * * *", s.Status().Schedule)

	_, err = New(r, model.SchedulerConfig{Cron: "not a schedule"}, nil)
	assert.Error(t, err)

	_, err = New(r, model.SchedulerConfig{}, nil)
	assert.Error(t, err)
}

func TestScheduler_IntervalCountsFromFirstRun(t *testing.T) {
	r := &fakeRunner{}
	delay := 50 * time.Millisecond
	s := newTestScheduler(t, r, model.SchedulerConfig{Interval: time.Hour, StartDelay: delay})

	started := time.Now()
	require.NoError(t, s.Start())

	// Until the first tick only the delayed run is pending.
	assert.Empty(t, s.cron.Entries())
	assert.WithinDuration(t, started.Add(delay), s.Status().NextRun, 40*time.Millisecond)

	require.Eventually(t, func() bool { return r.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	assert.Len(t, s.cron.Entries(), 1)
	next := s.Status().NextRun
	assert.False(t, next.Before(started.Add(delay+time.Hour-time.Second)), "next run %s", next)
}
