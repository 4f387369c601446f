package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Adda-Baaj/arthik-khobor/internal/logger"
	"github.com/Adda-Baaj/arthik-khobor/internal/pipeline"

	"github.com/robfig/cron/v3"
)

// Runner is the part of the pipeline the scheduler drives.
type Runner interface {
	RunAll(ctx context.Context, ids []string) (pipeline.Summary, error)
}

// Scheduler triggers a full pass over the sources on a cron expression.
// Ticks are not serialized: a pass that outlives the interval overlaps the next.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	sources []string
	log     logger.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New parses spec in the named timezone.
func New(spec, timezone string, sources []string, runner Runner, log logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.NopLogger{}
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load scheduler timezone %q: %w", timezone, err)
	}

	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		runner:  runner,
		sources: sources,
		log:     log,
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("parse cron spec %q: %w", spec, err)
	}
	return s, nil
}

// Start begins scheduling. Runs are cancelled through ctx or Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	s.log.InfoObj("scheduler started", "scheduler_started", map[string]any{
		"next": s.Next().Format(time.RFC3339),
	})
}

// Next is the time of the next scheduled run.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stop halts scheduling, cancels running passes and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.log.InfoObj("scheduler stopped", "scheduler_stopped", nil)
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	s.wg.Add(1)
	defer s.wg.Done()
	s.RunOnce(ctx)
}

// RunOnce performs one full pass and logs its summary.
func (s *Scheduler) RunOnce(ctx context.Context) pipeline.Summary {
	started := time.Now()
	s.log.InfoObj("scheduled run starting", "scheduler_run_started", map[string]any{
		"sources": s.sources,
	})

	sum, err := s.runner.RunAll(ctx, s.sources)
	fields := map[string]any{
		"stored":      sum.Total,
		"sources":     len(sum.Sources),
		"duration_ms": time.Since(started).Milliseconds(),
	}
	if err != nil {
		fields["error"] = err.Error()
		s.log.WarnObj("scheduled run finished with errors", "scheduler_run_finished", fields)
		return sum
	}
	s.log.InfoObj("scheduled run finished", "scheduler_run_finished", fields)
	return sum
}
