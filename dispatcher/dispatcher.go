// Package dispatcher is the only way events enter the presentation context.
// Producers never wait on the presentation side: Dispatch appends to an
// unbounded queue and a single pump forwards events, in order, to the
// Scheduler.
package dispatcher

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	"log/slog"
	"sync"
)

var (
	_ contract.IDispatcher = (*Dispatcher)(nil)
	_ contract.Worker      = (*Dispatcher)(nil)
)

type Dispatcher struct {
	mu        sync.Mutex
	log       *slog.Logger
	scheduler contract.Scheduler
	applier   contract.EventApplier
	queue     []event.Event
	wakeup    chan struct{}
	closed    bool
}

func New(log *slog.Logger, scheduler contract.Scheduler, applier contract.EventApplier) *Dispatcher {
	return &Dispatcher{
		log:       log,
		scheduler: scheduler,
		applier:   applier,
		wakeup:    make(chan struct{}, 1),
	}
}

// Dispatch enqueues evt and returns immediately.
func (d *Dispatcher) Dispatch(evt event.Event) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return errors.ErrDispatcherClosed
	}
	d.queue = append(d.queue, evt)
	d.mu.Unlock()

	select {
	case d.wakeup <- struct{}{}:
	default:
	}
	return nil
}

// Run pumps queued events to the scheduler until ctx is done. Events still
// queued at that point are discarded and later Dispatch calls fail.
// A panic leaves the dispatcher open, so a restarted Run keeps pumping.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		for _, evt := range d.drain() {
			if err := d.schedule(evt); err != nil {
				d.log.Warn("Event dropped, scheduler unavailable", "chat_id", evt.ChatID().String(), "error", err)
			}
		}
		select {
		case <-ctx.Done():
			d.close()
			return nil
		case <-d.wakeup:
		}
	}
}

// Pending is the number of events not yet handed to the scheduler.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

func (d *Dispatcher) schedule(evt event.Event) error {
	return d.scheduler.Post(func() { d.applier.Apply(evt) })
}

func (d *Dispatcher) drain() []event.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	batch := d.queue
	d.queue = nil
	return batch
}

func (d *Dispatcher) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.queue = nil
}
