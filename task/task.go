// Package task defines the single-shot work envelopes that are posted
// between event and render threads, and the queue that carries them.
package task

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
)

// ErrClosed is returned when posting to a queue whose owner has shut down.
var ErrClosed = errors.New("task: queue closed")

// Func is the work carried by an Envelope.
type Func func(arg any)

// Envelope is a function, its argument and an optional completion signal.
// It is executed at most once, by whichever thread dequeues it.
type Envelope struct {
	fn   Func
	arg  any
	done chan struct{}
	ran  atomic.Bool
	exec atomic.Bool
}

// New wraps fn and arg. When wait is true the envelope carries a completion
// signal that is closed after fn returns (or after the envelope is dropped).
func New(fn Func, arg any, wait bool) *Envelope {
	e := &Envelope{fn: fn, arg: arg}
	if wait {
		e.done = make(chan struct{})
	}
	return e
}

// Run executes the envelope. Only the first call has any effect.
func (e *Envelope) Run() {
	if !e.ran.CompareAndSwap(false, true) {
		return
	}
	if e.done != nil {
		defer close(e.done)
	}
	e.exec.Store(true)
	e.fn(e.arg)
}

// Drop marks the envelope as consumed without running it and releases any
// waiter. Used when a queue is torn down with work still in it.
func (e *Envelope) Drop() {
	if !e.ran.CompareAndSwap(false, true) {
		return
	}
	if e.done != nil {
		close(e.done)
	}
}

// Done returns the completion signal, or nil for fire-and-forget envelopes.
func (e *Envelope) Done() <-chan struct{} {
	return e.done
}

// Wait blocks until the envelope has run or been dropped.
func (e *Envelope) Wait() {
	if e.done != nil {
		<-e.done
	}
}

// Executed reports whether the function actually ran, as opposed to the
// envelope being dropped.
func (e *Envelope) Executed() bool {
	return e.exec.Load()
}

// Finished reports whether the envelope has been consumed.
func (e *Envelope) Finished() bool {
	return e.ran.Load()
}

// Queue is an unbounded FIFO of envelopes owned by one thread, plus a
// one-slot wake channel that the owner selects on while idle.
//
// Posting never blocks, so an event thread can always hand work to a render
// thread no matter how far behind that thread is.
type Queue struct {
	mu     sync.Mutex
	items  *linkedlistqueue.Queue
	closed bool

	wake   chan struct{}
	posted atomic.Uint64
}

// NewQueue returns an empty open queue.
func NewQueue() *Queue {
	return &Queue{
		items: linkedlistqueue.New(),
		wake:  make(chan struct{}, 1),
	}
}

// Post appends e and wakes the owner.
func (q *Queue) Post(e *Envelope) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.items.Enqueue(e)
	q.mu.Unlock()
	q.posted.Add(1)
	q.Wake()
	return nil
}

// Wake signals the owner without posting anything. Multiple wakes before
// the owner looks collapse into one.
func (q *Queue) Wake() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Woken is the channel the owner waits on.
func (q *Queue) Woken() <-chan struct{} {
	return q.wake
}

func (q *Queue) pop() *Envelope {
	q.mu.Lock()
	defer q.mu.Unlock()
	v, ok := q.items.Dequeue()
	if !ok {
		return nil
	}
	return v.(*Envelope)
}

// Drain runs queued envelopes until the queue is empty, including any that
// are posted while draining. It returns how many ran. Must be called by the
// owning thread.
func (q *Queue) Drain() int {
	n := 0
	for e := q.pop(); e != nil; e = q.pop() {
		e.Run()
		n++
	}
	return n
}

// Len returns the number of queued envelopes.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Size()
}

// Posted returns the total number of envelopes ever accepted.
func (q *Queue) Posted() uint64 {
	return q.posted.Load()
}

// Close rejects further posts and drops whatever is still queued,
// releasing any waiters. It returns the number dropped.
func (q *Queue) Close() int {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return 0
	}
	q.closed = true
	rest := q.items.Values()
	q.items.Clear()
	q.mu.Unlock()

	for _, v := range rest {
		v.(*Envelope).Drop()
	}
	q.Wake()
	return len(rest)
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
