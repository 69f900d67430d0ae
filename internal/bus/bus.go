package bus

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// sweepInterval is the task-list drain frequency, roughly 10 Hz.
const sweepInterval = 100 * time.Millisecond

// Task is a unit of async work enqueued via OnAsync. It runs on its own
// goroutine; its result is delivered back onto the bus as an Event.
type Task func(ctx context.Context) Event

// TaskHandle tags a Task with a unique id, so a caller that cares can
// correlate the eventual result with the request that spawned it.
type TaskHandle struct {
	ID   uuid.UUID
	task Task
}

// NewTask wraps fn in a freshly tagged TaskHandle.
func NewTask(fn Task) TaskHandle {
	return TaskHandle{ID: uuid.New(), task: fn}
}

// Sender is the producer handle: cloneable, and the only thing
// components are allowed to hold a reference to (never the Bus
// itself — see the cyclic-reference note in the concurrency model).
type Sender struct {
	events chan<- Event
}

// Send enqueues e. It blocks while the event channel is full; the
// channel is buffered generously, and a full channel indicates a
// producer bug rather than expected backpressure.
func (s Sender) Send(e Event) {
	s.events <- e
}

// Bus is the single-consumer event queue plus its async task list.
type Bus struct {
	events chan Event
	tasks  chan TaskHandle
}

// New creates a Bus with room for a generous backlog of events and
// pending tasks.
func New() *Bus {
	return &Bus{
		events: make(chan Event, 256),
		tasks:  make(chan TaskHandle, 64),
	}
}

// Sender returns a new producer handle bound to this bus.
func (b *Bus) Sender() Sender {
	return Sender{events: b.events}
}

// Enqueue schedules fn to run asynchronously; its result event is sent
// back onto the bus once fn completes.
func (b *Bus) Enqueue(fn Task) TaskHandle {
	h := NewTask(fn)
	b.tasks <- h
	return h
}

// Next blocks until an event is available or ctx is done.
func (b *Bus) Next(ctx context.Context) (Event, bool) {
	select {
	case e := <-b.events:
		return e, true
	case <-ctx.Done():
		return Event{}, false
	}
}

// Drain returns every event currently queued without blocking, in FIFO
// order, for callers that want to process a whole backlog at once
// rather than one event at a time (the application loop uses Next).
func (b *Bus) Drain() []Event {
	var out []Event
	for {
		select {
		case e := <-b.events:
			out = append(out, e)
		default:
			return out
		}
	}
}

// RunSweeper drains the task list at sweepInterval, spawning each task
// on its own goroutine and forwarding its completion event back onto
// the bus. It returns when ctx is canceled.
func (b *Bus) RunSweeper(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return g.Wait()
		case <-ticker.C:
			b.drainTasks(ctx, g)
		}
	}
}

func (b *Bus) drainTasks(ctx context.Context, g *errgroup.Group) {
	for {
		select {
		case h := <-b.tasks:
			task := h.task
			g.Go(func() error {
				b.events <- task(ctx)
				return nil
			})
		default:
			return
		}
	}
}
