package glfwcontext

import (
	glfw "github.com/go-gl/glfw/v3.3/glfw"
	"github.com/richinsley/dualthread/graphics"
)

// Window is a GLFW window and its context.
type Window struct {
	win *glfw.Window
}

// wire forwards GLFW callbacks to h.
func (w *Window) wire(h graphics.Handler) {
	w.win.SetPosCallback(func(_ *glfw.Window, x, y int) {
		h.OnMove(x, y)
	})
	w.win.SetSizeCallback(func(_ *glfw.Window, width, height int) {
		h.OnResize(width, height)
	})
	w.win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		h.OnFramebufferResize(width, height)
	})
	w.win.SetContentScaleCallback(func(_ *glfw.Window, x, y float32) {
		h.OnContentScale(x, y)
	})
	w.win.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		h.OnMouseMove(x, y)
	})
	w.win.SetScrollCallback(func(_ *glfw.Window, dx, dy float64) {
		h.OnScroll(dx, dy)
	})
	w.win.SetMouseButtonCallback(func(_ *glfw.Window, b glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		h.OnMouseButton(int(b), action != glfw.Release)
	})
	w.win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		// Escape closes the window, as the close button does
		if key == glfw.KeyEscape && action == glfw.Press {
			h.OnCloseRequest()
			return
		}
		h.OnKey(int(key), action != glfw.Release)
	})
	w.win.SetFocusCallback(func(_ *glfw.Window, focused bool) {
		h.OnFocus(focused)
	})
	w.win.SetIconifyCallback(func(_ *glfw.Window, iconified bool) {
		h.OnIconify(iconified)
	})
	w.win.SetCloseCallback(func(win *glfw.Window) {
		// the runtime decides when the window goes away
		win.SetShouldClose(false)
		h.OnCloseRequest()
	})
}

// GLFW returns the underlying window.
func (w *Window) GLFW() *glfw.Window {
	return w.win
}

func (w *Window) SetPos(x, y int)           { w.win.SetPos(x, y) }
func (w *Window) SetSize(width, height int) { w.win.SetSize(width, height) }
func (w *Window) SetTitle(title string)     { w.win.SetTitle(title) }
func (w *Window) Iconify()                  { w.win.Iconify() }
func (w *Window) Restore()                  { w.win.Restore() }
func (w *Window) SetClipboard(s string)     { w.win.SetClipboardString(s) }
func (w *Window) Clipboard() string         { return w.win.GetClipboardString() }
func (w *Window) Destroy()                  { w.win.Destroy() }

// MakeCurrent makes the context current for the calling goroutine.
func (w *Window) MakeCurrent() {
	w.win.MakeContextCurrent()
}

// DetachCurrent makes no context current on the calling thread.
func (w *Window) DetachCurrent() {
	glfw.DetachCurrentContext()
}

func (w *Window) SwapBuffers() {
	w.win.SwapBuffers()
}
