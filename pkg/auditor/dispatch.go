package auditor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var errQueueFull = errors.New("auditor: queue full")

type job struct {
	action Action
	req    *RequestSnapshot
	resp   *ResponseSnapshot
	extra  map[string]any
}

// dispatcher runs jobs on a fixed set of workers fed by a bounded queue.
type dispatcher struct {
	mu     sync.RWMutex
	closed bool
	jobs   chan job
	done   chan struct{}

	handle func(job)
	logger *slog.Logger
}

func newDispatcher(workers, size int, handle func(job), logger *slog.Logger) *dispatcher {
	d := &dispatcher{
		jobs:   make(chan job, size),
		done:   make(chan struct{}),
		handle: handle,
		logger: logger,
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := range d.jobs {
				d.run(j)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(d.done)
	}()
	return d
}

// submit never blocks.
func (d *dispatcher) submit(j job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.jobs <- j:
		return nil
	default:
		return errQueueFull
	}
}

func (d *dispatcher) run(j job) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("audit worker panic", "action", j.action.ID, "panic", fmt.Sprint(r))
		}
	}()
	d.handle(j)
}

// close stops intake and waits until queued jobs are handled or ctx is done.
func (d *dispatcher) close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *dispatcher) pending() int {
	return len(d.jobs)
}
