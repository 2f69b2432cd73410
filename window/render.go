package window

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/richinsley/dualthread/task"
	"github.com/richinsley/dualthread/threadid"
)

// renderThread is the thread that owns a window's graphics context. It is
// whichever goroutine first begins a frame, pinned from then on.
type renderThread struct {
	queue *task.Queue
	tid   atomic.Int64
}

func (rt *renderThread) attach() {
	runtime.LockOSThread()
	rt.tid.Store(int64(threadid.Current()))
}

// detach undoes attach for a window that never came up.
func (rt *renderThread) detach() {
	rt.tid.Store(0)
	runtime.UnlockOSThread()
}

func (rt *renderThread) attached() bool {
	return rt.tid.Load() != 0
}

func (rt *renderThread) isCurrent() bool {
	tid := rt.tid.Load()
	return tid != 0 && threadid.ID(tid) == threadid.Current()
}

// barrier posts fn behind everything already queued and waits for it to
// run. On the render thread itself, or when no render thread ever attached,
// the queue is drained inline instead.
func (rt *renderThread) barrier(fn task.Func, timeout time.Duration) error {
	e := task.New(fn, nil, true)
	if err := rt.queue.Post(e); err != nil {
		return ErrDestroyed
	}
	if !rt.attached() || rt.isCurrent() {
		for !e.Finished() {
			rt.queue.Drain()
		}
		return nil
	}
	select {
	case <-e.Done():
		return nil
	case <-time.After(timeout):
		return ErrTimeout
	}
}

// RunOnRenderThread posts fn to run on w's render thread with its context
// current. It never blocks; it reports false when the task was dropped
// because the window is closing.
func RunOnRenderThread(w *Window, fn task.Func, arg any) bool {
	if w.closing.Load() {
		return false
	}
	return w.render.queue.Post(task.New(fn, arg, false)) == nil
}

// BeginFrame runs everything posted to the render thread, including the
// coalesced input drain, and blocks while the window is iconified or set to
// wait for events. Call it at the top of every frame on the render thread.
func (w *Window) BeginFrame() {
	w.ensureRenderThread("BeginFrame")

	w.pumpOwn(0)
	w.render.queue.Drain()

	waited := false
	for !w.ShouldClose() {
		iconified := w.State().Iconified
		if !iconified && (!w.opts.WaitEvents || waited) {
			break
		}
		w.waitWake()
		waited = true
		w.render.queue.Drain()
	}
}

// EndFrame presents the frame and executes any GPU deletes that became due.
func (w *Window) EndFrame() {
	w.ensureRenderThread("EndFrame")
	w.native.SwapBuffers()
	if w.app.deleter != nil {
		if n := w.gpu.Flush(w.app.deleter); n > 0 {
			w.app.debugf("window %q: deleted %d objects", w.opts.Title, n)
		}
	}
	w.mu.Lock()
	w.state.WheelX, w.state.WheelY = 0, 0
	w.mu.Unlock()
}

// Run drives the render loop on the calling goroutine until the window
// should close, then closes it.
func (w *Window) Run(frame func(w *Window)) error {
	for {
		w.BeginFrame()
		if w.ShouldClose() {
			break
		}
		frame(w)
		w.EndFrame()
	}
	return w.Close()
}

// pumpOwn pumps native events when this window has no event thread of its
// own, making the render thread the native owner as well.
func (w *Window) pumpOwn(timeout time.Duration) {
	if w.events == nil {
		w.app.source.Pump(timeout)
	}
}

// waitWake blocks until the window is woken. Once a close or quit has been
// observed the wait is bounded, in case a wake was missed.
func (w *Window) waitWake() {
	if w.events == nil {
		// single-thread windows get their events from the pump itself
		w.pumpOwn(w.app.cfg.EventWait.D())
		return
	}
	if w.closing.Load() || w.app.reg.QuitRequested() {
		select {
		case <-w.render.queue.Woken():
		case <-time.After(w.app.cfg.ShutdownWait.D()):
		}
		return
	}
	<-w.render.queue.Woken()
}

// ensureRenderThread pins the first caller as the render thread and makes
// the context current there. Later calls from any other thread are protocol
// violations.
func (w *Window) ensureRenderThread(op string) {
	if w.render.isCurrent() {
		return
	}
	if !w.render.attached() {
		w.render.attach()
		w.native.MakeCurrent()
		return
	}
	w.app.violation(op, "render")
}
