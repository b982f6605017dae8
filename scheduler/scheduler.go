package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Job is one unit of scheduled work. It receives the scheduler's context.
type Job func(ctx context.Context)

// Status is a snapshot of the scheduler state.
type Status struct {
	Running bool
	LastRun time.Time
	NextRun time.Time
	Runs    int
}

// Daily runs a job once at start, then every day at a fixed time of day.
// Every run, including manual triggers, executes on the Start goroutine, so runs
// never overlap.
type Daily struct {
	at       Clock
	loc      *time.Location
	interval time.Duration
	job      Job
	logger   *slog.Logger
	now      func() time.Time
	trigger  chan struct{}

	mu      sync.Mutex
	running bool
	lastRun time.Time
	nextRun time.Time
	runs    int
}

// NewDaily creates a scheduler. A nil loc means time.Local, a non-positive poll means one minute.
func NewDaily(at Clock, loc *time.Location, poll time.Duration, job Job, logger *slog.Logger) *Daily {
	if loc == nil {
		loc = time.Local
	}
	if poll <= 0 {
		poll = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Daily{
		at:       at,
		loc:      loc,
		interval: poll,
		job:      job,
		logger:   logger,
		now:      time.Now,
		trigger:  make(chan struct{}, 1),
	}
}

// NextRun returns the first occurrence of at strictly after t, in loc.
func NextRun(t time.Time, at Clock, loc *time.Location) time.Time {
	local := t.In(loc)
	slot := time.Date(local.Year(), local.Month(), local.Day(), at.Hour, at.Minute, 0, 0, loc)
	if !slot.After(local) {
		slot = time.Date(local.Year(), local.Month(), local.Day()+1, at.Hour, at.Minute, 0, 0, loc)
	}
	return slot
}

// Start runs the job immediately and then serves the daily schedule until ctx is done.
func (d *Daily) Start(ctx context.Context) {
	d.run(ctx, "startup")
	d.mu.Lock()
	d.nextRun = NextRun(d.now(), d.at, d.loc)
	next := d.nextRun
	d.mu.Unlock()
	d.logger.Info("scheduler started", "at", d.at.String(), "next_run", next.Format(time.RFC3339))

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			d.tick(ctx)
		case <-d.trigger:
			d.run(ctx, "manual")
		}
	}
}

// Trigger queues a manual run. It returns false if one is already queued.
func (d *Daily) Trigger() bool {
	select {
	case d.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Status returns a snapshot for monitoring.
func (d *Daily) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Status{Running: d.running, LastRun: d.lastRun, NextRun: d.nextRun, Runs: d.runs}
}

// tick fires the scheduled run when its slot has been reached and reports whether it ran.
func (d *Daily) tick(ctx context.Context) bool {
	d.mu.Lock()
	due := !d.now().Before(d.nextRun)
	d.mu.Unlock()
	if !due {
		return false
	}

	d.run(ctx, "scheduled")

	d.mu.Lock()
	// Skip every slot that passed while the job ran or the process was stalled.
	d.nextRun = NextRun(d.now(), d.at, d.loc)
	next := d.nextRun
	d.mu.Unlock()
	d.logger.Debug("next run scheduled", "next_run", next.Format(time.RFC3339))
	return true
}

func (d *Daily) run(ctx context.Context, reason string) {
	if ctx.Err() != nil {
		return
	}
	d.mu.Lock()
	d.running = true
	start := d.now()
	d.mu.Unlock()

	d.logger.Info("job starting", "reason", reason)
	d.job(ctx)

	d.mu.Lock()
	d.running = false
	d.lastRun = start
	d.runs++
	d.mu.Unlock()
	d.logger.Info("job finished", "reason", reason, "elapsed", d.now().Sub(start).String())
}
