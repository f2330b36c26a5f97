// Package notification applies cooldown suppression and fans detection events out to sinks
package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"clipwatch/domain/matching"
	"clipwatch/domain/notification"
	"clipwatch/infrastructure/logging"
)

// SinkStats counts delivery outcomes for one sink
type SinkStats struct {
	Name      string `json:"name"`
	Delivered uint64 `json:"delivered"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
}

// worker owns the queue of one sink
type worker struct {
	sink      notification.Sink
	queue     chan matching.DetectionEvent
	delivered atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// Dispatcher forwards events that survive the cooldown to every sink.
// Each sink has its own buffered queue and goroutine, so Submit never blocks
// and a slow sink cannot delay the others.
type Dispatcher struct {
	cooldown  *notification.Cooldown
	workers   []*worker
	retries   int
	retryWait time.Duration
	queueSize int
	log       *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// Option is a functional option for configuring Dispatcher
type Option func(*Dispatcher)

// WithRetries sets how many times a failed send is retried
func WithRetries(n int) Option {
	return func(d *Dispatcher) {
		d.retries = n
	}
}

// WithRetryWait sets the initial delay between retries; later retries back off exponentially
func WithRetryWait(w time.Duration) Option {
	return func(d *Dispatcher) {
		d.retryWait = w
	}
}

// WithQueueSize sets the per-sink queue capacity
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		d.queueSize = n
	}
}

// WithLogger sets the dispatcher logger
func WithLogger(l *logging.Logger) Option {
	return func(d *Dispatcher) {
		d.log = l
	}
}

// NewDispatcher starts one delivery goroutine per sink
func NewDispatcher(cooldown *notification.Cooldown, sinks []notification.Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		cooldown:  cooldown,
		retries:   3,
		retryWait: 500 * time.Millisecond,
		queueSize: 64,
		log:       logging.Named("dispatch"),
	}

	for _, opt := range opts {
		opt(d)
	}
	if d.queueSize < 1 {
		d.queueSize = 1
	}

	d.ctx, d.cancel = context.WithCancel(context.Background())

	for _, s := range sinks {
		w := &worker{sink: s, queue: make(chan matching.DetectionEvent, d.queueSize)}
		d.workers = append(d.workers, w)
		d.wg.Add(1)
		go d.run(w)
	}

	return d
}

// Submit applies the cooldown and queues the event for every sink. It reports
// whether the event was emitted; suppressed events leave the cooldown unchanged.
func (d *Dispatcher) Submit(event matching.DetectionEvent) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.log.Warn().Str("clip", event.ClipName).Err(notification.ErrClosed).Msg("event dropped")
		return false
	}

	if !d.cooldown.Allow(event) {
		d.log.Debug().
			Str("clip", event.ClipName).
			Float64("end_time", event.EndTime).
			Msg("detection suppressed by cooldown")
		return false
	}

	for _, w := range d.workers {
		select {
		case w.queue <- event:
		default:
			w.dropped.Add(1)
			d.log.Warn().
				Str("sink", w.sink.Name()).
				Str("clip", event.ClipName).
				Err(notification.ErrQueueFull).
				Msg("event dropped")
		}
	}
	return true
}

func (d *Dispatcher) run(w *worker) {
	defer d.wg.Done()

	for event := range w.queue {
		if d.ctx.Err() != nil {
			w.dropped.Add(1)
			continue
		}
		if err := d.deliver(w.sink, event); err != nil {
			w.failed.Add(1)
			d.log.Error().Err(err).Msg("notification failed")
			continue
		}
		w.delivered.Add(1)
	}
}

// deliver sends one event with bounded exponential backoff
func (d *Dispatcher) deliver(sink notification.Sink, event matching.DetectionEvent) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.retryWait
	b.MaxElapsedTime = 0

	attempt := 0
	op := func() error {
		attempt++
		err := sink.Send(d.ctx, event)
		if err != nil && d.ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		if err != nil {
			d.log.Debug().Err(err).Str("sink", sink.Name()).Int("attempt", attempt).Msg("send failed")
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(d.retries, 0))), d.ctx)
	if err := backoff.Retry(op, policy); err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		return &notification.SendError{Sink: sink.Name(), ClipName: event.ClipName, Err: err}
	}
	return nil
}

// Stats returns per-sink delivery counters
func (d *Dispatcher) Stats() []SinkStats {
	out := make([]SinkStats, len(d.workers))
	for i, w := range d.workers {
		out[i] = SinkStats{
			Name:      w.sink.Name(),
			Delivered: w.delivered.Load(),
			Failed:    w.failed.Load(),
			Dropped:   w.dropped.Load(),
		}
	}
	return out
}

// Close stops accepting events and waits for queued events to drain. When ctx
// expires first, in-flight sends are cancelled and the remaining queue is discarded.
// Sinks implementing notification.Closer are closed afterwards.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	for _, w := range d.workers {
		close(w.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	var errs []error
	select {
	case <-done:
	case <-ctx.Done():
		d.cancel()
		<-done
		errs = append(errs, fmt.Errorf("notification queues not drained: %w", ctx.Err()))
	}
	d.cancel()

	for _, w := range d.workers {
		if c, ok := w.sink.(notification.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close sink %s: %w", w.sink.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}
