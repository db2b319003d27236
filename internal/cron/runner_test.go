package cronrunner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunnerRunsJobWithTimeout(t *testing.T) {
	r := New(nil, context.Background())
	var calls int32
	var hadDeadline atomic.Bool
	if _, err := r.Add("tick", "@every 1s", 50*time.Millisecond, func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		hadDeadline.Store(ok)
		atomic.AddInt32(&calls, 1)
		return nil
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if r.Entries() != 1 {
		t.Fatalf("entries=%d want=1", r.Entries())
	}
	r.Start()
	deadline := time.Now().Add(3 * time.Second)
	for atomic.LoadInt32(&calls) == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	r.Stop()
	if atomic.LoadInt32(&calls) == 0 {
		t.Fatalf("job never ran")
	}
	if !hadDeadline.Load() {
		t.Fatalf("job context had no deadline")
	}
}

func TestRunnerRejectsBadSpec(t *testing.T) {
	r := New(nil, nil)
	if _, err := r.Add("bad", "not a spec", 0, func(context.Context) error { return nil }); err == nil {
		t.Fatalf("expected spec error")
	}
}

func TestRunSkipsCanceledBase(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := New(nil, ctx)
	called := false
	r.run("x", 0, func(context.Context) error {
		called = true
		return errors.New("unreachable")
	})
	if called {
		t.Fatalf("job ran after base context was canceled")
	}
}
