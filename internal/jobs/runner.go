// Package jobs runs periodic background work next to the HTTP server.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/school-portal/internal/observability"
)

type Job func(ctx context.Context) error

type Runner struct {
	ctx context.Context
	log *zap.Logger
	wg  sync.WaitGroup
	now func() time.Time
}

func New(ctx context.Context, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{ctx: ctx, log: log, now: time.Now}
}

// Every runs fn on a fixed interval until the runner's context is done.
func (r *Runner) Every(interval time.Duration, name string, fn Job) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-t.C:
				r.run(name, fn)
			}
		}
	}()
}

// Daily runs fn once a day at hour:00 in loc.
func (r *Runner) Daily(hour int, loc *time.Location, name string, fn Job) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			wait := NextDaily(r.now(), hour, loc).Sub(r.now())
			t := time.NewTimer(wait)
			select {
			case <-r.ctx.Done():
				t.Stop()
				return
			case <-t.C:
				r.run(name, fn)
			}
		}
	}()
}

// Wait blocks until every job loop has exited.
func (r *Runner) Wait() { r.wg.Wait() }

func (r *Runner) run(name string, fn Job) {
	start := time.Now()
	defer func() {
		if v := recover(); v != nil {
			jobErrors.WithLabelValues(name).Inc()
			r.log.Error("job panic", zap.String("job", name), zap.Any("panic", v))
			observability.CaptureErr(fmt.Errorf("panic in job %s: %v", name, v))
		}
	}()
	if err := fn(r.ctx); err != nil {
		jobErrors.WithLabelValues(name).Inc()
		r.log.Warn("job failed", zap.String("job", name), zap.Error(err))
		observability.CaptureErr(err)
	}
	jobRuns.WithLabelValues(name).Inc()
	jobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
}

// NextDaily returns the next hour:00 in loc strictly after now.
func NextDaily(now time.Time, hour int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
