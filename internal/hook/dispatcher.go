package hook

import (
	"context"
	"sync"

	"github.com/ayusman/orbis/internal/log"
)

// DefaultQueueSize is the number of events buffered before Fire drops.
const DefaultQueueSize = 16

// Dispatcher delivers events to subscribed hooks on a background goroutine.
// Fire never blocks; when the queue is full the event is dropped.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	queue    chan Event

	mu      sync.Mutex
	dropped int
	runs    int

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewDispatcher creates a Dispatcher and starts its worker.
func NewDispatcher(manager *Manager, executor *Executor, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		manager:  manager,
		executor: executor,
		queue:    make(chan Event, queueSize),
		cancel:   cancel,
	}
	d.wg.Add(1)
	go d.run(ctx)
	return d
}

// Fire queues ev.
func (d *Dispatcher) Fire(ev Event) {
	select {
	case d.queue <- ev:
	default:
		d.mu.Lock()
		d.dropped++
		d.mu.Unlock()
		log.Debug("hook queue full, event dropped", "type", ev.Type)
	}
}

// Close stops the worker. Queued events that have not started are discarded
// and a running hook is killed.
func (d *Dispatcher) Close() {
	d.cancel()
	d.wg.Wait()
}

// Dropped returns how many events were discarded because the queue was full.
func (d *Dispatcher) Dropped() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}

// Runs returns how many hook executions have completed.
func (d *Dispatcher) Runs() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.runs
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-d.queue:
			d.deliver(ctx, ev)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) {
	for _, h := range d.manager.Subscribers(ev.Type) {
		if ctx.Err() != nil {
			return
		}
		if _, err := d.executor.Execute(ctx, h, ev); err != nil {
			log.Warn("hook failed", "hook", h.Manifest.Name, "event", ev.Type, "err", err)
		}
		d.mu.Lock()
		d.runs++
		d.mu.Unlock()
	}
}
