package poller_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/poller"
)

func TestInterval_RunsImmediatelyAndOnTick(t *testing.T) {
	var runs atomic.Int32
	iv := poller.NewInterval("test", 10*time.Millisecond, func(ctx context.Context) {
		runs.Add(1)
	})

	iv.Start(context.Background())
	deadline := time.After(2 * time.Second)
	for runs.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 runs, got %d", runs.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	iv.Stop()

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	if runs.Load() != after {
		t.Error("interval kept running after Stop")
	}
}

func TestInterval_Trigger(t *testing.T) {
	ran := make(chan struct{}, 4)
	iv := poller.NewInterval("trigger", time.Hour, func(ctx context.Context) {
		ran <- struct{}{}
	})

	iv.Start(context.Background())
	defer iv.Stop()

	<-ran // initial run

	iv.Trigger()
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("trigger did not cause a run")
	}
}

func TestInterval_StopIsIdempotent(t *testing.T) {
	ctxs := make(chan context.Context, 1)
	iv := poller.NewInterval("idle", time.Hour, func(ctx context.Context) {
		ctxs <- ctx
	})

	iv.Stop()

	iv.Start(context.Background())
	iv.Start(context.Background())
	runCtx := <-ctxs

	iv.Stop()
	iv.Stop()

	if runCtx.Err() == nil {
		t.Error("run context not cancelled after Stop")
	}
	if iv.Name() != "idle" {
		t.Errorf("Name() = %q, want idle", iv.Name())
	}
}

func TestInterval_ParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	iv := poller.NewInterval("parent", 5*time.Millisecond, func(ctx context.Context) {
		runs.Add(1)
	})
	iv.Start(ctx)
	defer iv.Stop()

	time.Sleep(20 * time.Millisecond)
	cancel()
	time.Sleep(10 * time.Millisecond)

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	if runs.Load() != after {
		t.Error("loop kept running after parent cancel")
	}
}
