// Package presentation is the single-threaded context owning what the user
// sees. Everything that reads or mutates the view runs as a task on Loop.
package presentation

import (
	"chat-relay/contract"
	"chat-relay/errors"
	"context"
	"sync"
)

var (
	_ contract.Scheduler = (*Loop)(nil)
	_ contract.Worker    = (*Loop)(nil)
)

// Loop runs posted tasks one at a time, in submission order.
type Loop struct {
	tasks     chan func()
	done      chan struct{}
	closeOnce sync.Once
}

func NewLoop(bufferSize int) *Loop {
	return &Loop{
		tasks: make(chan func(), bufferSize),
		done:  make(chan struct{}),
	}
}

// Post queues task. It waits for room in the buffer and fails once the loop
// has stopped.
func (l *Loop) Post(task func()) error {
	select {
	case <-l.done:
		return errors.ErrLoopClosed
	default:
	}
	select {
	case <-l.done:
		return errors.ErrLoopClosed
	case l.tasks <- task:
		return nil
	}
}

// Call posts task and waits until it ran.
func (l *Loop) Call(task func()) error {
	ran := make(chan struct{})
	if err := l.Post(func() {
		defer close(ran)
		task()
	}); err != nil {
		return err
	}
	select {
	case <-ran:
		return nil
	case <-l.done:
		return errors.ErrLoopClosed
	}
}

// Run executes tasks until ctx is done. A panicking task propagates to the
// caller; the loop stays usable if Run is started again.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.closeOnce.Do(func() { close(l.done) })
			return nil
		case task := <-l.tasks:
			task()
		}
	}
}

func (l *Loop) Done() <-chan struct{} { return l.done }
