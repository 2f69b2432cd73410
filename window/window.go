// Package window runs native windows on an event thread while their graphics
// contexts are driven from separate render threads.
//
// Window-handle operations (move, resize, title, clipboard, destroy) always
// execute on the thread that created the native handle. Notifications travel
// the other way: native callbacks on the event thread either coalesce into
// the window's pending cell or post a task to the render thread, which
// applies them at the start of the next frame.
package window

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/richinsley/dualthread/graphics"
	"github.com/richinsley/dualthread/options"
	"github.com/richinsley/dualthread/pending"
	"github.com/richinsley/dualthread/sharegroup"
	"github.com/richinsley/dualthread/task"
	"github.com/richinsley/dualthread/threadid"
)

var (
	// ErrCreateFailed is returned by Open when the native window could not
	// be created.
	ErrCreateFailed = errors.New("window: create failed")

	// ErrClosing is returned for non-critical work submitted after a close
	// was requested.
	ErrClosing = errors.New("window: closing")

	// ErrDestroyed is returned when the owning thread is gone.
	ErrDestroyed = errors.New("window: destroyed")

	// ErrTimeout is returned when a bounded shutdown wait expires.
	ErrTimeout = errors.New("window: timed out")

	// ErrWrongThread marks a window-handle or context call made from a
	// thread that does not own it.
	ErrWrongThread = errors.New("window: called from wrong thread")
)

// Phase is a window's lifecycle position. It only moves forward.
type Phase int32

const (
	PhaseCreated Phase = iota
	PhaseRunning
	PhaseClosingRequested
	PhaseDestroyed
)

func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseRunning:
		return "running"
	case PhaseClosingRequested:
		return "closing"
	case PhaseDestroyed:
		return "destroyed"
	}
	return fmt.Sprintf("phase(%d)", int32(p))
}

// State is the per-window block read by the drawing layer each frame. It is
// written only on the render thread.
type State struct {
	Pos             image.Point
	Size            image.Point // window-manager units
	FramebufferSize image.Point // pixels
	LogicalSize     image.Point // framebuffer size divided by content scale
	ScaleX, ScaleY  float32
	MouseX, MouseY  float64
	WheelX, WheelY  float64 // accumulated since the last EndFrame
	Buttons         uint32
	Focused         bool
	Iconified       bool
}

func (s *State) recomputeLogical() {
	s.LogicalSize = s.FramebufferSize
	if s.ScaleX > 0 {
		s.LogicalSize.X = int(float32(s.FramebufferSize.X) / s.ScaleX)
	}
	if s.ScaleY > 0 {
		s.LogicalSize.Y = int(float32(s.FramebufferSize.Y) / s.ScaleY)
	}
}

// Window is one native window and its graphics context.
type Window struct {
	app  *App
	opts options.WindowOptions

	native graphics.NativeWindow
	gpu    *sharegroup.Context

	// events is nil for single-thread windows, whose render thread also
	// owns the native handle.
	events     *EventThread
	ownsEvents bool
	render     renderThread

	created   chan struct{}
	createErr error

	phase   atomic.Int32
	closing atomic.Bool
	slot    int // guarded by Registry.mu

	pending pending.Cell
	drains  atomic.Uint64

	mu    sync.RWMutex
	state State
	keys  map[int]bool

	gpuOnce     sync.Once
	destroyOnce sync.Once
	destroyed   chan struct{}
	closeErr    error
}

// Options returns the options the window was opened with.
func (w *Window) Options() options.WindowOptions {
	return w.opts
}

// Native returns the native handle. Only the owning thread may use it.
func (w *Window) Native() graphics.NativeWindow {
	return w.native
}

// GPU returns the window's share-group membership.
func (w *Window) GPU() *sharegroup.Context {
	return w.gpu
}

// EventThread returns the event thread, nil for single-thread windows.
func (w *Window) EventThread() *EventThread {
	return w.events
}

// OwnerThread is the thread that owns the native handle.
func (w *Window) OwnerThread() threadid.ID {
	if w.events != nil {
		return w.events.Thread()
	}
	return threadid.ID(w.render.tid.Load())
}

// Phase returns the lifecycle phase.
func (w *Window) Phase() Phase {
	return Phase(w.phase.Load())
}

func (w *Window) advance(p Phase) {
	for {
		cur := w.phase.Load()
		if cur >= int32(p) || w.phase.CompareAndSwap(cur, int32(p)) {
			return
		}
	}
}

// IsPrimary reports whether this is the primary window.
func (w *Window) IsPrimary() bool {
	return w.app.reg.isPrimary(w)
}

// State returns a copy of the window's state block.
func (w *Window) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// KeyDown reports whether key is held, as of the last drained frame.
func (w *Window) KeyDown(key int) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.keys[key]
}

// DrainsPosted returns how many coalesced drain tasks have been posted.
func (w *Window) DrainsPosted() uint64 {
	return w.drains.Load()
}

// Done is closed once the window is destroyed.
func (w *Window) Done() <-chan struct{} {
	return w.destroyed
}

// ShouldClose reports whether the window was asked to close, either itself
// or through the global quit latch.
func (w *Window) ShouldClose() bool {
	if w.closing.Load() {
		return true
	}
	if w.app.reg.QuitRequested() {
		w.enterClosing()
		return true
	}
	return false
}

func (w *Window) enterClosing() bool {
	first := w.closing.CompareAndSwap(false, true)
	w.advance(PhaseClosingRequested)
	return first
}

// RequestClose asks the window to close. Its render loop observes it at the
// next ShouldClose. Closing the primary window sets the global quit latch.
func (w *Window) RequestClose() {
	w.requestClose()
}

func (w *Window) requestClose() {
	if w.enterClosing() {
		w.app.debugf("window %q: close requested", w.opts.Title)
	}
	primary := w.IsPrimary()
	if primary && w.app.reg.requestQuit() {
		w.app.debugf("window %q: primary closed, quitting", w.opts.Title)
	}
	if primary || w.opts.BroadcastWake {
		w.app.wakeAll()
		return
	}
	w.render.queue.Wake()
}

// RunOnEventThread runs fn on the thread that owns the native handle. It
// runs inline when the caller already is that thread. With wait it returns
// only after fn has run. Work submitted after a close request is refused.
func (w *Window) RunOnEventThread(fn task.Func, arg any, wait bool) error {
	if w.closing.Load() {
		return ErrClosing
	}
	return w.runOnOwner(fn, arg, wait)
}

func (w *Window) runOnOwner(fn task.Func, arg any, wait bool) error {
	if w.events != nil {
		return w.events.call(fn, arg, wait, 0)
	}
	// single-thread: the render thread owns the handle
	if w.render.isCurrent() {
		fn(arg)
		return nil
	}
	e := task.New(fn, arg, wait)
	if err := w.render.queue.Post(e); err != nil {
		return ErrDestroyed
	}
	if wait {
		e.Wait()
		if !e.Executed() {
			return ErrDestroyed
		}
	}
	return nil
}

// ownerCheck guards native calls. It reports whether the caller may touch
// the handle.
func (w *Window) ownerCheck(op string) bool {
	if w.OwnerThread() == threadid.Current() {
		return true
	}
	w.app.violation(op, "event")
	return false
}

func (w *Window) setPos(arg any) {
	if p := arg.(image.Point); w.ownerCheck("SetPos") {
		w.native.SetPos(p.X, p.Y)
	}
}

func (w *Window) setSize(arg any) {
	if p := arg.(image.Point); w.ownerCheck("SetSize") {
		w.native.SetSize(p.X, p.Y)
	}
}

func (w *Window) setTitle(arg any) {
	if w.ownerCheck("SetTitle") {
		w.native.SetTitle(arg.(string))
	}
}

func (w *Window) setIconified(arg any) {
	if !w.ownerCheck("Iconify") {
		return
	}
	if arg.(bool) {
		w.native.Iconify()
	} else {
		w.native.Restore()
	}
}

func (w *Window) setClipboard(arg any) {
	if w.ownerCheck("SetClipboard") {
		w.native.SetClipboard(arg.(string))
	}
}

// SetPos moves the window. It does not wait for the move.
func (w *Window) SetPos(x, y int) error {
	return w.RunOnEventThread(w.setPos, image.Pt(x, y), false)
}

// SetSize resizes the window. It does not wait for the resize.
func (w *Window) SetSize(width, height int) error {
	return w.RunOnEventThread(w.setSize, image.Pt(width, height), false)
}

// SetTitle changes the window title.
func (w *Window) SetTitle(title string) error {
	return w.RunOnEventThread(w.setTitle, title, false)
}

// Iconify minimizes the window.
func (w *Window) Iconify() error {
	return w.RunOnEventThread(w.setIconified, true, false)
}

// Restore undoes Iconify.
func (w *Window) Restore() error {
	return w.RunOnEventThread(w.setIconified, false, false)
}

// SetClipboard sets the system clipboard.
func (w *Window) SetClipboard(s string) error {
	return w.RunOnEventThread(w.setClipboard, s, false)
}

// Clipboard reads the system clipboard through the event thread.
func (w *Window) Clipboard() (string, error) {
	var s string
	err := w.RunOnEventThread(func(any) {
		if w.ownerCheck("Clipboard") {
			s = w.native.Clipboard()
		}
	}, nil, true)
	return s, err
}

// Sync waits until every window operation submitted before it has run.
func (w *Window) Sync() error {
	return w.RunOnEventThread(func(any) {}, nil, true)
}

// Close requests a close and tears the window down. Teardown runs once: GPU
// state is released on the render thread behind all queued work, the native
// handle is destroyed on its owning thread, and the window leaves the
// registry. Every caller waits for it to finish.
func (w *Window) Close() error {
	w.requestClose()
	go w.destroyOnce.Do(w.destroy)

	if w.render.isCurrent() {
		// keep serving the barrier if another goroutine won the teardown
		for {
			select {
			case <-w.destroyed:
				return w.closeErr
			case <-w.render.queue.Woken():
				w.render.queue.Drain()
			}
		}
	}
	<-w.destroyed
	return w.closeErr
}

func (w *Window) destroy() {
	defer close(w.destroyed)
	wait := w.app.cfg.ShutdownWait.D()

	if err := w.render.barrier(w.releaseGPU, wait); err != nil {
		w.closeErr = fmt.Errorf("window %q: render barrier: %w", w.opts.Title, err)
		w.app.logf("%v", w.closeErr)
		// bookkeeping still happens exactly once, without the flush
		w.gpuOnce.Do(func() { w.gpu.Unbind() })
	}

	if w.events != nil {
		if err := w.events.call(w.destroyNative, nil, true, wait); err != nil {
			w.app.logf("window %q: native destroy: %v", w.opts.Title, err)
		}
	} else if err := w.render.barrier(w.destroyNative, wait); err != nil {
		w.app.logf("window %q: native destroy: %v", w.opts.Title, err)
	}

	w.render.queue.Close()
	w.pending.Discard()
	w.app.reg.remove(w)
	if w.ownsEvents {
		w.events.stop()
	}
	w.advance(PhaseDestroyed)
}

// releaseGPU leaves the share group. Queued deletes are only executed when
// a render thread made the context current; otherwise they stay with the
// group for a member that did.
func (w *Window) releaseGPU(any) {
	w.gpuOnce.Do(func() {
		current := w.render.attached()
		if current && w.app.deleter != nil {
			w.gpu.Flush(w.app.deleter)
		} else if !current {
			w.app.debugf("window %q never rendered, leaving deletes to its group", w.opts.Title)
		}
		if w.app.cfg.DumpOnTeardown {
			if g := w.gpu.Bound(); g != nil {
				w.app.logf("window %q teardown:\n%s", w.opts.Title, g.Dump())
			}
		}
		w.gpu.Unbind()
		if current {
			w.native.DetachCurrent()
		}
	})
}

func (w *Window) destroyNative(any) {
	if w.ownerCheck("Destroy") {
		w.native.Destroy()
	}
}
