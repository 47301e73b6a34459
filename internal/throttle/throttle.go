// ABOUTME: FIFO throttler that paces outbound Telegram API calls
// ABOUTME: Serializes calls with a minimum interval between execution starts

package throttle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultInterval is the minimum spacing between call starts.
const DefaultInterval = 500 * time.Millisecond

// Result carries the outcome of a throttled call back to its caller.
type Result[T any] struct {
	Value T
	Err   error
}

type item struct {
	fn   func() error
	done chan error
}

// Throttler executes enqueued calls strictly one at a time, in FIFO order,
// with at least the configured interval between the start of consecutive
// executions. The pacing loop runs only while the queue is non-empty and
// exits when drained; a later enqueue restarts it.
type Throttler struct {
	limiter *rate.Limiter
	logger  *slog.Logger

	mu      sync.Mutex
	queue   []item
	running bool
}

// New creates a Throttler with the given minimum interval. A non-positive
// interval falls back to DefaultInterval.
func New(interval time.Duration, logger *slog.Logger) *Throttler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Throttler{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		logger:  logger.With("component", "throttle"),
	}
}

// Enqueue adds a call to the queue and returns immediately. The returned
// channel receives exactly one value: the call's error (nil on success).
// The channel is buffered, so the caller may abandon it without blocking
// the pacing loop. A failing call never affects subsequently queued calls.
func (t *Throttler) Enqueue(fn func() error) <-chan error {
	done := make(chan error, 1)

	t.mu.Lock()
	t.queue = append(t.queue, item{fn: fn, done: done})
	start := !t.running
	if start {
		t.running = true
	}
	t.mu.Unlock()

	if start {
		go t.loop()
	}
	return done
}

// Do enqueues a call that produces a value and returns a channel delivering
// its Result once the call has run.
func Do[T any](t *Throttler, fn func() (T, error)) <-chan Result[T] {
	out := make(chan Result[T], 1)
	errCh := t.Enqueue(func() error {
		v, err := fn()
		out <- Result[T]{Value: v, Err: err}
		return err
	})
	// Surface enqueue-level failures (panics) that bypass the inner send.
	go func() {
		if err := <-errCh; err != nil {
			select {
			case out <- Result[T]{Err: err}:
			default:
			}
		}
	}()
	return out
}

// Pending reports the number of queued, not-yet-started calls.
func (t *Throttler) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

func (t *Throttler) loop() {
	for {
		t.mu.Lock()
		if len(t.queue) == 0 {
			t.running = false
			t.mu.Unlock()
			return
		}
		next := t.queue[0]
		t.queue = t.queue[1:]
		t.mu.Unlock()

		if err := t.limiter.Wait(context.Background()); err != nil {
			next.done <- err
			continue
		}
		next.done <- t.invoke(next.fn)
	}
}

// invoke runs a single call, converting a panic into an error so the
// pacing loop survives misbehaving callbacks.
func (t *Throttler) invoke(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("throttled call panicked", "panic", r)
			err = fmt.Errorf("throttled call panicked: %v", r)
		}
	}()
	return fn()
}
