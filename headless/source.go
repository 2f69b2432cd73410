// Package headless is an event source with no native windowing behind it.
// Events are injected by the caller and dispatched on whichever thread owns
// the target window, exactly as a native pump would. Every native call is
// recorded with the thread it ran on, which is what the window tests assert
// against.
package headless

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/richinsley/dualthread/graphics"
	"github.com/richinsley/dualthread/options"
	"github.com/richinsley/dualthread/threadid"
)

// ErrInjectedFailure is returned by Create while FailCreate is set.
var ErrInjectedFailure = errors.New("headless: injected create failure")

// inbox is the event queue of one pumping thread.
type inbox struct {
	events chan func()
	wake   chan struct{}
}

func newInbox() *inbox {
	return &inbox{
		events: make(chan func(), 4096),
		wake:   make(chan struct{}, 1),
	}
}

// Source implements graphics.EventSource.
type Source struct {
	mu      sync.Mutex
	inboxes map[threadid.ID]*inbox
	windows []*Window

	clipboard atomic.Value
	failing   atomic.Bool
	wakes     atomic.Uint64
	pumps     atomic.Uint64
}

// NewSource returns an empty source.
func NewSource() *Source {
	s := &Source{inboxes: make(map[threadid.ID]*inbox)}
	s.clipboard.Store("")
	return s
}

// FailCreate makes every following Create fail until reset.
func (s *Source) FailCreate(fail bool) {
	s.failing.Store(fail)
}

func (s *Source) inboxFor(tid threadid.ID) *inbox {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.inboxes[tid]
	if !ok {
		in = newInbox()
		s.inboxes[tid] = in
	}
	return in
}

// Create makes a window owned by the calling thread.
func (s *Source) Create(opts *options.WindowOptions, share graphics.NativeWindow, h graphics.Handler) (graphics.NativeWindow, error) {
	if s.failing.Load() {
		return nil, ErrInjectedFailure
	}
	tid := threadid.Current()
	w := newWindow(s, tid, opts, h)
	if sw, ok := share.(*Window); ok {
		w.shared = sw
	}
	w.record("Create")

	s.mu.Lock()
	s.windows = append(s.windows, w)
	s.mu.Unlock()
	return w, nil
}

// Windows returns every window created so far, in creation order.
func (s *Source) Windows() []*Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Window(nil), s.windows...)
}

// Pump dispatches events queued for the calling thread, waiting up to
// timeout for the first one.
func (s *Source) Pump(timeout time.Duration) {
	s.pumps.Add(1)
	in := s.inboxFor(threadid.Current())
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		select {
		case ev := <-in.events:
			ev()
		case <-in.wake:
		case <-timer.C:
		}
		timer.Stop()
	}
	for {
		select {
		case ev := <-in.events:
			ev()
		default:
			return
		}
	}
}

// Wake breaks every waiting Pump.
func (s *Source) Wake() {
	s.wakes.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, in := range s.inboxes {
		select {
		case in.wake <- struct{}{}:
		default:
		}
	}
}

// Wakes returns how many times Wake was called.
func (s *Source) Wakes() uint64 {
	return s.wakes.Load()
}

// Pumps returns how many times Pump was called.
func (s *Source) Pumps() uint64 {
	return s.pumps.Load()
}
