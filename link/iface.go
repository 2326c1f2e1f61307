package link

import (
	"context"
	"fmt"
	"sync"

	"github.com/encodeous/dvsim/state"
)

type Direction int

const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == In {
		return "in"
	}
	return "out"
}

// queue is a FIFO of frames, bounded unless capacity is 0.
type queue struct {
	mu       sync.Mutex
	frames   [][]byte
	capacity int
	space    chan struct{} // signalled whenever a frame is removed
}

func newQueue(capacity int) *queue {
	return &queue{
		capacity: capacity,
		space:    make(chan struct{}, 1),
	}
}

func (q *queue) full() bool {
	return q.capacity != 0 && len(q.frames) >= q.capacity
}

func (q *queue) tryPut(frame []byte) bool {
	q.mu.Lock()
	if q.full() {
		q.mu.Unlock()
		return false
	}
	q.frames = append(q.frames, frame)
	more := !q.full()
	q.mu.Unlock()

	// pass the wakeup on, several frames may have been removed while we waited
	if more {
		q.signal()
	}
	return true
}

func (q *queue) signal() {
	select {
	case q.space <- struct{}{}:
	default:
	}
}

func (q *queue) get() ([]byte, bool) {
	q.mu.Lock()
	if len(q.frames) == 0 {
		q.mu.Unlock()
		return nil, false
	}
	frame := q.frames[0]
	q.frames[0] = nil
	q.frames = q.frames[1:]
	q.mu.Unlock()

	q.signal()
	return frame, true
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// Interface is one end of a simulated physical link: a pair of frame queues.
// It is safe for concurrent use.
type Interface struct {
	Name state.Address // the node on the other side of the link
	in   *queue
	out  *queue
}

// NewInterface creates an interface whose queues hold at most capacity frames. 0 is unbounded.
func NewInterface(name state.Address, capacity int) *Interface {
	return &Interface{
		Name: name,
		in:   newQueue(capacity),
		out:  newQueue(capacity),
	}
}

func (i *Interface) queue(dir Direction) *queue {
	if dir == In {
		return i.in
	}
	return i.out
}

// Get returns the oldest frame in the queue, or false immediately if the queue is empty.
func (i *Interface) Get(dir Direction) ([]byte, bool) {
	return i.queue(dir).get()
}

// Put enqueues a frame. When block is false and the queue is full it returns ErrQueueFull.
// When block is true it waits for space until ctx is done, then returns an error wrapping both
// ErrQueueFull and the context error.
func (i *Interface) Put(ctx context.Context, dir Direction, frame []byte, block bool) error {
	q := i.queue(dir)
	for {
		if q.tryPut(frame) {
			return nil
		}
		if !block {
			return fmt.Errorf("%s queue to %s: %w", dir, i.Name, state.ErrQueueFull)
		}
		select {
		case <-q.space:
		case <-ctx.Done():
			return fmt.Errorf("%s queue to %s: %w: %w", dir, i.Name, state.ErrQueueFull, context.Cause(ctx))
		}
	}
}

func (i *Interface) Len(dir Direction) int {
	return i.queue(dir).len()
}

func (i *Interface) Capacity() int {
	return i.in.capacity
}
