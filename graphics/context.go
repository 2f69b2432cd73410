// Package graphics declares what the window runtime needs from a native
// windowing layer and a graphics API, and what it hands back to them.
package graphics

import (
	"time"

	"github.com/richinsley/dualthread/options"
	"github.com/richinsley/dualthread/sharegroup"
)

// EventSource is a native windowing backend. Create and Pump are called on
// the event thread that owns the windows; Wake may be called from anywhere.
type EventSource interface {
	// Create opens a native window and wires its callbacks to h. share is
	// the window whose context namespace the new context should share, or
	// nil.
	Create(opts *options.WindowOptions, share NativeWindow, h Handler) (NativeWindow, error)

	// Pump waits up to timeout for native events on the calling thread and
	// dispatches any that arrive to their handlers.
	Pump(timeout time.Duration)

	// Wake breaks a Pump that is currently waiting.
	Wake()
}

// NativeWindow is a native window handle. Everything except the context
// methods must be called on the event thread that created it.
type NativeWindow interface {
	SetPos(x, y int)
	SetSize(w, h int)
	SetTitle(title string)
	Iconify()
	Restore()
	SetClipboard(s string)
	Clipboard() string
	Destroy()

	// Context methods, called on the render thread.
	MakeCurrent()
	DetachCurrent()
	SwapBuffers()
}

// Handler receives native window notifications on the event thread.
type Handler interface {
	OnMove(x, y int)
	OnResize(w, h int)
	OnFramebufferResize(w, h int)
	OnContentScale(x, y float32)
	OnMouseMove(x, y float64)
	OnScroll(dx, dy float64)
	OnMouseButton(button int, pressed bool)
	OnKey(key int, pressed bool)
	OnFocus(focused bool)
	OnIconify(iconified bool)
	OnCloseRequest()
}

// Deleter executes native deletes popped from a share group.
type Deleter = sharegroup.Deleter

// Allocator creates the native objects a render target is built from. It is
// called on a thread with a current context.
type Allocator interface {
	NewTexture(w, h int) (uint32, error)
	NewRenderbuffer(w, h int) (uint32, error)
	NewFramebuffer(color, depth uint32) (uint32, error)
	ResizeTexture(id uint32, w, h int)
}
