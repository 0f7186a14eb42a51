package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/models"
)

var ErrDeliveryFailed = errors.New("notification delivery failed")

// Stats counts dispatcher outcomes
type Stats struct {
	Sent    uint64
	Dropped uint64
	Failed  uint64
}

// Dispatcher delivers notifications in the background. Notify never blocks:
// when the queue is full the message is dropped. Delivery order across
// workers is not guaranteed.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	log     zerolog.Logger

	mu     sync.RWMutex
	queue  chan Message
	closed bool
	wg     sync.WaitGroup

	// cancels in-flight deliveries once the close grace period expires
	ctx    context.Context
	cancel context.CancelFunc

	sent    atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
}

func NewDispatcher(queueSize, workers int, timeout time.Duration, log zerolog.Logger, sinks ...Sink) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		sinks:   sinks,
		timeout: timeout,
		log:     log.With().Str("component", "notify").Logger(),
		queue:   make(chan Message, queueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

// Notify enqueues the announcement for ev and returns immediately
func (d *Dispatcher) Notify(ev models.DisposalEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped.Add(1)
		return
	}

	select {
	case d.queue <- NewMessage(ev):
	default:
		d.dropped.Add(1)
		d.log.Warn().Str("event_id", ev.ID.String()).Msg("notification queue full, dropping message")
	}
}

// Close stops accepting messages and waits up to grace for queued and
// in-flight deliveries. Anything still running afterwards is cancelled and
// left to finish in the background; Close returns after at most grace.
func (d *Dispatcher) Close(grace time.Duration) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
		d.log.Warn().Dur("grace", grace).Msg("notifications still in flight after grace period, cancelling")
	}
	d.cancel()
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Sent:    d.sent.Load(),
		Dropped: d.dropped.Load(),
		Failed:  d.failed.Load(),
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for msg := range d.queue {
		if err := d.deliver(msg); err != nil {
			d.failed.Add(1)
			d.log.Warn().Err(err).Str("event_id", msg.EventID).Msg("notification not delivered")
			continue
		}
		d.sent.Add(1)
	}
}

// deliver tries every sink; the message counts as delivered if one succeeds
func (d *Dispatcher) deliver(msg Message) error {
	ctx := d.ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	var errs []error
	delivered := false
	for _, s := range d.sinks {
		if err := deliverTo(ctx, s, msg); err != nil {
			d.log.Debug().Err(err).Str("event_id", msg.EventID).Msg("sink failed")
			errs = append(errs, err)
			continue
		}
		delivered = true
	}
	if !delivered && len(errs) > 0 {
		return errors.Join(append([]error{ErrDeliveryFailed}, errs...)...)
	}
	return nil
}

// deliverTo bounds one sink call by ctx, also for sinks that ignore it
func deliverTo(ctx context.Context, s Sink, msg Message) error {
	result := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				result <- fmt.Errorf("%w: sink panicked: %v", ErrDeliveryFailed, r)
			}
		}()
		result <- s.Deliver(ctx, msg)
	}()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
