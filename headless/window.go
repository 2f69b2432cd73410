package headless

import (
	"image"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/richinsley/dualthread/graphics"
	"github.com/richinsley/dualthread/options"
	"github.com/richinsley/dualthread/threadid"
)

// Window is a fake native window. Geometry calls update its state and fire
// the same callbacks a window manager would, synchronously on the calling
// thread.
type Window struct {
	source *Source
	owner  threadid.ID
	inbox  *inbox
	h      graphics.Handler
	shared *Window

	mu        sync.Mutex
	title     string
	pos       image.Point
	size      image.Point
	iconified bool
	destroyed bool
	current   threadid.ID
	swaps     int
	calls     map[string]int
	threads   mapset.Set[threadid.ID]
	ctxThread mapset.Set[threadid.ID]
}

func newWindow(s *Source, owner threadid.ID, opts *options.WindowOptions, h graphics.Handler) *Window {
	return &Window{
		source:    s,
		owner:     owner,
		inbox:     s.inboxFor(owner),
		h:         h,
		title:     opts.Title,
		size:      image.Pt(opts.Width, opts.Height),
		calls:     make(map[string]int),
		threads:   mapset.NewThreadUnsafeSet[threadid.ID](),
		ctxThread: mapset.NewThreadUnsafeSet[threadid.ID](),
	}
}

// record notes a handle call and the thread it came from.
func (w *Window) record(op string) {
	w.mu.Lock()
	w.calls[op]++
	w.threads.Add(threadid.Current())
	w.mu.Unlock()
}

func (w *Window) recordContext(op string) {
	w.mu.Lock()
	w.calls[op]++
	w.ctxThread.Add(threadid.Current())
	w.mu.Unlock()
}

// Owner is the thread that created the window.
func (w *Window) Owner() threadid.ID {
	return w.owner
}

// Shared returns the window passed as share at creation.
func (w *Window) Shared() *Window {
	return w.shared
}

// HandleThreads returns every thread that made a handle call.
func (w *Window) HandleThreads() []threadid.ID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.threads.ToSlice()
}

// ContextThreads returns every thread that made a context call.
func (w *Window) ContextThreads() []threadid.ID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ctxThread.ToSlice()
}

// Calls returns how often op was called.
func (w *Window) Calls(op string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls[op]
}

// Title returns the current title.
func (w *Window) Title() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.title
}

// Pos returns the current position.
func (w *Window) Pos() image.Point {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pos
}

// Size returns the current size.
func (w *Window) Size() image.Point {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// Destroyed reports whether Destroy was called.
func (w *Window) Destroyed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.destroyed
}

// Swaps returns the number of presented frames.
func (w *Window) Swaps() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.swaps
}

func (w *Window) SetPos(x, y int) {
	w.record("SetPos")
	w.mu.Lock()
	w.pos = image.Pt(x, y)
	w.mu.Unlock()
	w.h.OnMove(x, y)
}

func (w *Window) SetSize(width, height int) {
	w.record("SetSize")
	w.mu.Lock()
	w.size = image.Pt(width, height)
	w.mu.Unlock()
	w.h.OnResize(width, height)
	w.h.OnFramebufferResize(width, height)
}

func (w *Window) SetTitle(title string) {
	w.record("SetTitle")
	w.mu.Lock()
	w.title = title
	w.mu.Unlock()
}

func (w *Window) Iconify() {
	w.record("Iconify")
	w.setIconified(true)
}

func (w *Window) Restore() {
	w.record("Restore")
	w.setIconified(false)
}

func (w *Window) setIconified(v bool) {
	w.mu.Lock()
	changed := w.iconified != v
	w.iconified = v
	w.mu.Unlock()
	if changed {
		w.h.OnIconify(v)
	}
}

func (w *Window) SetClipboard(s string) {
	w.record("SetClipboard")
	w.source.clipboard.Store(s)
}

func (w *Window) Clipboard() string {
	w.record("Clipboard")
	return w.source.clipboard.Load().(string)
}

func (w *Window) Destroy() {
	w.record("Destroy")
	w.mu.Lock()
	w.destroyed = true
	w.mu.Unlock()
}

func (w *Window) MakeCurrent() {
	w.recordContext("MakeCurrent")
	w.mu.Lock()
	w.current = threadid.Current()
	w.mu.Unlock()
}

func (w *Window) DetachCurrent() {
	w.recordContext("DetachCurrent")
	w.mu.Lock()
	w.current = 0
	w.mu.Unlock()
}

func (w *Window) SwapBuffers() {
	w.recordContext("SwapBuffers")
	w.mu.Lock()
	w.swaps++
	w.mu.Unlock()
}

// Inject queues fn to be called with the window's handler on the owning
// thread during its next Pump. Events injected together in one fn reach the
// handler back to back, before any other thread can react.
func (w *Window) Inject(fn func(h graphics.Handler)) {
	w.inbox.events <- func() { fn(w.h) }
}

func (w *Window) InjectMove(x, y int) {
	w.Inject(func(h graphics.Handler) { h.OnMove(x, y) })
}

func (w *Window) InjectResize(width, height int) {
	w.Inject(func(h graphics.Handler) {
		h.OnResize(width, height)
		h.OnFramebufferResize(width, height)
	})
}

func (w *Window) InjectContentScale(x, y float32) {
	w.Inject(func(h graphics.Handler) { h.OnContentScale(x, y) })
}

func (w *Window) InjectMouseMove(x, y float64) {
	w.Inject(func(h graphics.Handler) { h.OnMouseMove(x, y) })
}

func (w *Window) InjectScroll(dx, dy float64) {
	w.Inject(func(h graphics.Handler) { h.OnScroll(dx, dy) })
}

func (w *Window) InjectButton(button int, pressed bool) {
	w.Inject(func(h graphics.Handler) { h.OnMouseButton(button, pressed) })
}

func (w *Window) InjectKey(key int, pressed bool) {
	w.Inject(func(h graphics.Handler) { h.OnKey(key, pressed) })
}

func (w *Window) InjectFocus(focused bool) {
	w.Inject(func(h graphics.Handler) { h.OnFocus(focused) })
}

func (w *Window) InjectIconify(iconified bool) {
	w.Inject(func(h graphics.Handler) {
		w.mu.Lock()
		w.iconified = iconified
		w.mu.Unlock()
		h.OnIconify(iconified)
	})
}

// InjectClose simulates the user clicking the close button.
func (w *Window) InjectClose() {
	w.Inject(func(h graphics.Handler) { h.OnCloseRequest() })
}
