package window

import (
	"sync"
	"sync/atomic"
)

// Registry is the process-wide list of live windows, the primary window and
// the global quit latch.
//
// The slot arena and the primary pointer only change under mu, and mu is
// never held across anything that can block.
type Registry struct {
	mu      sync.Mutex
	slots   []*Window
	free    []int
	count   int
	primary *Window

	quit atomic.Int32
}

// add inserts w. The first window of a fresh run becomes primary and clears
// the quit latch left over from the previous run.
func (r *Registry) add(w *Window) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	primary := false
	if r.count == 0 {
		r.quit.Store(0)
		r.primary = w
		primary = true
	}
	if n := len(r.free); n > 0 {
		w.slot = r.free[n-1]
		r.free = r.free[:n-1]
		r.slots[w.slot] = w
	} else {
		w.slot = len(r.slots)
		r.slots = append(r.slots, w)
	}
	r.count++
	return primary
}

// remove drops w. Primary status is cleared, never handed to another window.
func (r *Registry) remove(w *Window) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if w.slot < 0 || w.slot >= len(r.slots) || r.slots[w.slot] != w {
		return false
	}
	r.slots[w.slot] = nil
	r.free = append(r.free, w.slot)
	w.slot = -1
	r.count--
	if r.primary == w || r.count == 0 {
		r.primary = nil
	}
	return true
}

// Len returns the number of registered windows.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Primary returns the primary window, or nil once it has gone.
func (r *Registry) Primary() *Window {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.primary
}

func (r *Registry) isPrimary(w *Window) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.primary == w
}

// Windows returns a snapshot of the registered windows.
func (r *Registry) Windows() []*Window {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Window, 0, r.count)
	for _, w := range r.slots {
		if w != nil {
			out = append(out, w)
		}
	}
	return out
}

// QuitRequested reports whether the global quit latch is set.
func (r *Registry) QuitRequested() bool {
	return r.quit.Load() != 0
}

// requestQuit sets the latch. It reports whether this call set it.
func (r *Registry) requestQuit() bool {
	return r.quit.CompareAndSwap(0, 1)
}
