// Package dispatch delivers SDK callbacks in order on a dedicated goroutine.
package dispatch

import "sync"

// Queue runs posted callbacks one at a time, in order, on its own
// goroutine. Posting never blocks.
type Queue struct {
	mu      sync.Mutex
	pending []func()
	closed  bool

	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
}

// New starts a queue.
func New() *Queue {
	q := &Queue{
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go q.run()
	return q
}

// Post queues fn. Callbacks posted after Close are dropped.
func (q *Queue) Post(fn func()) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) run() {
	defer close(q.stopped)
	for {
		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		closed := q.closed
		q.mu.Unlock()

		for _, fn := range batch {
			fn()
		}
		if closed {
			return
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-q.wake:
		case <-q.done:
		}
	}
}

// Close drops callbacks posted after this call. Already queued callbacks
// still run.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

// Stopped is closed once the goroutine has run the remaining callbacks and
// exited.
func (q *Queue) Stopped() <-chan struct{} {
	return q.stopped
}
