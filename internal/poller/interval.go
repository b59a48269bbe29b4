package poller

import (
	"context"
	"sync"
	"time"
)

// Interval runs a function on a fixed period until stopped. It is the only
// timer the service owns, so shutting it down is a single Stop call.
type Interval struct {
	name   string
	period time.Duration
	fn     func(ctx context.Context)

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	trigger chan struct{}
}

// NewInterval creates a stopped interval. fn is called once immediately on
// Start and then every period.
func NewInterval(name string, period time.Duration, fn func(ctx context.Context)) *Interval {
	return &Interval{
		name:    name,
		period:  period,
		fn:      fn,
		trigger: make(chan struct{}, 1),
	}
}

// Start launches the loop. Starting a running interval is a no-op.
func (i *Interval) Start(ctx context.Context) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.done != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	i.cancel = cancel
	i.done = make(chan struct{})

	go i.run(ctx, i.done)
}

// Trigger requests an extra run as soon as the loop is free. Requests made
// while one is already queued are merged.
func (i *Interval) Trigger() {
	select {
	case i.trigger <- struct{}{}:
	default:
	}
}

// Stop cancels the loop and waits for an in-flight run to finish
func (i *Interval) Stop() {
	i.mu.Lock()
	cancel, done := i.cancel, i.done
	i.cancel, i.done = nil, nil
	i.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (i *Interval) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(i.period)
	defer ticker.Stop()

	i.fn(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			i.fn(ctx)
		case <-i.trigger:
			i.fn(ctx)
		}
	}
}

// Name identifies the interval in logs
func (i *Interval) Name() string {
	return i.name
}
