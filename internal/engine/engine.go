package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nhle/compliance-notifier/internal/model"
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultDedupWindow = 24 * time.Hour
	DefaultDateLayout  = "1/2/2006"
)

// Options configures an Engine.
type Options struct {
	// DueSoonDays is the look-ahead of the upcoming pass.
	DueSoonDays int

	// DedupWindow suppresses a new notification while an unactioned one
	// for the same task is younger than this.
	DedupWindow time.Duration

	Strategy EscalationStrategy

	// DateLayout formats due dates in notification messages.
	DateLayout string

	// Now is the engine's clock. Defaults to time.Now.
	Now func() time.Time

	Publisher Publisher
	Logger    logrus.FieldLogger
}

// Engine scans tasks and creates reminder, overdue and escalation
// notifications. It keeps no state between ticks.
type Engine struct {
	store       Store
	dueSoonDays int
	dedupWindow time.Duration
	strategy    EscalationStrategy
	dateLayout  string
	now         func() time.Time
	publisher   Publisher
	log         logrus.FieldLogger
}

// New creates an Engine reading and writing through s.
func New(s Store, opts Options) *Engine {
	e := &Engine{
		store:       s,
		dueSoonDays: opts.DueSoonDays,
		dedupWindow: opts.DedupWindow,
		strategy:    opts.Strategy,
		dateLayout:  opts.DateLayout,
		now:         opts.Now,
		publisher:   opts.Publisher,
		log:         opts.Logger,
	}
	if e.dueSoonDays <= 0 {
		e.dueSoonDays = model.DueSoonDays
	}
	if e.dedupWindow <= 0 {
		e.dedupWindow = DefaultDedupWindow
	}
	if e.strategy == "" {
		e.strategy = StrategyHighest
	}
	if e.dateLayout == "" {
		e.dateLayout = DefaultDateLayout
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.log == nil {
		e.log = logrus.StandardLogger()
	}
	return e
}

// Pass distinguishes the upcoming and overdue scans.
type Pass string

const (
	PassUpcoming Pass = "upcoming"
	PassOverdue  Pass = "overdue"
)

// Report summarises one tick.
type Report struct {
	StartedAt time.Time `json:"started_at"`

	DueSoon int `json:"due_soon"`
	Overdue int `json:"overdue"`

	Created     int `json:"created"`
	Escalated   int `json:"escalated"`
	Deduped     int `json:"deduped"`
	Unassigned  int `json:"unassigned"`
	Failed      int `json:"failed"`
	SettingsNew int `json:"settings_created"`
}

// Tick runs the upcoming pass and then the overdue pass against a single
// instant. Every task in both sets is attempted once; a failing task is
// logged and counted, and the rest continue. An error is returned only if
// a task set could not be fetched.
func (e *Engine) Tick(ctx context.Context) (Report, error) {
	now := e.now().UTC()
	report := Report{StartedAt: now}

	dueSoon, err := e.store.GetTasksDueSoon(ctx, now, e.dueSoonDays)
	if err != nil {
		return report, fmt.Errorf("fetching due-soon tasks: %w", err)
	}
	report.DueSoon = len(dueSoon)
	e.runPass(ctx, now, PassUpcoming, dueSoon, &report)

	overdue, err := e.store.GetOverdueTasks(ctx, now)
	if err != nil {
		return report, fmt.Errorf("fetching overdue tasks: %w", err)
	}
	report.Overdue = len(overdue)
	e.runPass(ctx, now, PassOverdue, overdue, &report)

	e.log.WithFields(logrus.Fields{
		"due_soon":   report.DueSoon,
		"overdue":    report.Overdue,
		"created":    report.Created,
		"escalated":  report.Escalated,
		"deduped":    report.Deduped,
		"unassigned": report.Unassigned,
		"failed":     report.Failed,
	}).Info("notification tick finished")

	return report, nil
}

func (e *Engine) runPass(ctx context.Context, now time.Time, pass Pass, tasks []model.Task, report *Report) {
	for i := range tasks {
		task := tasks[i]

		out, err := e.ProcessTask(ctx, now, task, pass)
		if err != nil {
			report.Failed++
			e.log.WithError(err).WithFields(logrus.Fields{
				"task_id": task.ID,
				"pass":    pass,
			}).Error("processing task failed")
			continue
		}
		report.add(out)
	}
}

func (r *Report) add(out Outcome) {
	switch {
	case out.Deduped:
		r.Deduped++
	case out.Unassigned:
		r.Unassigned++
	}
	if out.Notification != nil {
		r.Created++
	}
	if out.Escalation != nil {
		r.Escalated++
	}
	if out.SettingsCreated {
		r.SettingsNew++
	}
}
