package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Adda-Baaj/arthik-khobor/internal/pipeline"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (f *fakeRunner) RunAll(_ context.Context, ids []string) (pipeline.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ids)
	return pipeline.Summary{Total: 3, Sources: []pipeline.SourceResult{{Source: "cnbc", Count: 3}}}, f.err
}

func TestNewValidatesSpecAndZone(t *testing.T) {
	t.Parallel()

	if _, err := New("not a cron", "Asia/Kolkata", nil, &fakeRunner{}, nil); err == nil {
		t.Fatalf("expected cron parse error")
	}
	if _, err := New("*/45 * * * *", "Mars/Olympus", nil, &fakeRunner{}, nil); err == nil {
		t.Fatalf("expected timezone error")
	}
}

func TestRunOncePassesSources(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{err: errors.New("moneycontrol blocked")}
	s, err := New("*/45 * * * *", "UTC", []string{"cnbc"}, runner, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sum := s.RunOnce(context.Background())
	if sum.Total != 3 || len(runner.calls) != 1 || runner.calls[0][0] != "cnbc" {
		t.Fatalf("unexpected run %+v %v", sum, runner.calls)
	}
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	s, err := New("*/45 * * * *", "UTC", nil, &fakeRunner{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Start(context.Background())
	if s.Next().IsZero() {
		t.Fatalf("expected next run time")
	}
	if s.Next().Minute()%45 != 0 {
		t.Fatalf("next run %v does not match the schedule", s.Next())
	}
	s.Stop()
}

type blockingRunner struct {
	started chan struct{}
	once    sync.Once
}

func (b *blockingRunner) RunAll(ctx context.Context, _ []string) (pipeline.Summary, error) {
	b.once.Do(func() { close(b.started) })
	<-ctx.Done()
	return pipeline.Summary{}, ctx.Err()
}

func TestStopCancelsRunningPass(t *testing.T) {
	t.Parallel()

	runner := &blockingRunner{started: make(chan struct{})}
	s, err := New("@every 1s", "UTC", nil, runner, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Start(context.Background())

	select {
	case <-runner.started:
	case <-time.After(3 * time.Second):
		t.Fatalf("scheduled pass never started")
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("Stop did not return while a pass was running")
	}
}
