package window

import (
	"image"

	"github.com/richinsley/dualthread/pending"
	"github.com/richinsley/dualthread/task"
)

// handler receives native callbacks on the event thread. High-frequency
// geometry and pointer notifications go through the pending cell; discrete
// events are posted to the render thread one by one.
type handler struct {
	w *Window
}

func (h handler) coalesce(claimed bool) {
	if claimed {
		h.w.postDrain()
	}
}

func (h handler) OnMove(x, y int) {
	h.coalesce(h.w.pending.StoreWindowPos(x, y))
}

func (h handler) OnResize(width, height int) {
	h.coalesce(h.w.pending.StoreWindowSize(width, height))
}

func (h handler) OnFramebufferResize(width, height int) {
	h.coalesce(h.w.pending.StoreFramebufferSize(width, height))
}

func (h handler) OnContentScale(x, y float32) {
	h.coalesce(h.w.pending.StoreContentScale(x, y))
}

func (h handler) OnMouseMove(x, y float64) {
	h.coalesce(h.w.pending.StoreMousePos(x, y))
}

func (h handler) OnScroll(dx, dy float64) {
	h.coalesce(h.w.pending.AddWheel(dx, dy))
}

type buttonEvent struct {
	button  int
	pressed bool
}

func (h handler) OnMouseButton(button int, pressed bool) {
	RunOnRenderThread(h.w, h.w.applyButton, buttonEvent{button, pressed})
}

type keyEvent struct {
	key     int
	pressed bool
}

func (h handler) OnKey(key int, pressed bool) {
	RunOnRenderThread(h.w, h.w.applyKey, keyEvent{key, pressed})
}

func (h handler) OnFocus(focused bool) {
	RunOnRenderThread(h.w, h.w.applyFocus, focused)
}

func (h handler) OnIconify(iconified bool) {
	RunOnRenderThread(h.w, h.w.applyIconify, iconified)
}

func (h handler) OnCloseRequest() {
	h.w.requestClose()
}

// postDrain is called by the producer that won the pending guard.
func (w *Window) postDrain() {
	w.drains.Add(1)
	if err := w.render.queue.Post(task.New(w.drainPending, nil, false)); err != nil {
		w.pending.Discard()
	}
}

// drainPending applies all coalesced state on the render thread. If new
// events land while it runs, it reclaims the guard and keeps going rather
// than leaving them for a drain that was never posted.
func (w *Window) drainPending(any) {
	for {
		if w.closing.Load() {
			w.pending.Discard()
			return
		}
		w.applyPending(w.pending.Take())
		if !w.pending.Release() {
			return
		}
	}
}

func (w *Window) applyPending(s pending.Snapshot) {
	if s.Mask == 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	st := &w.state
	if s.Mask.Has(pending.WindowPos) {
		st.Pos = image.Pt(s.PosX, s.PosY)
	}
	if s.Mask.Has(pending.WindowSize) {
		st.Size = image.Pt(s.WindowW, s.WindowH)
	}
	if s.Mask.Has(pending.FramebufferSize) {
		st.FramebufferSize = image.Pt(s.FramebufferW, s.FramebufferH)
	}
	if s.Mask.Has(pending.ContentScale) {
		st.ScaleX, st.ScaleY = s.ScaleX, s.ScaleY
	}
	if s.Mask&(pending.WindowSize|pending.FramebufferSize|pending.ContentScale) != 0 {
		st.recomputeLogical()
	}
	if s.Mask.Has(pending.MousePos) {
		st.MouseX, st.MouseY = s.MouseX, s.MouseY
	}
	if s.Mask.Has(pending.MouseWheel) {
		st.WheelX += s.WheelX
		st.WheelY += s.WheelY
	}
}

func (w *Window) applyButton(arg any) {
	ev := arg.(buttonEvent)
	if ev.button < 0 || ev.button >= 32 {
		return
	}
	w.mu.Lock()
	if ev.pressed {
		w.state.Buttons |= 1 << uint(ev.button)
	} else {
		w.state.Buttons &^= 1 << uint(ev.button)
	}
	w.mu.Unlock()
}

func (w *Window) applyKey(arg any) {
	ev := arg.(keyEvent)
	w.mu.Lock()
	if ev.pressed {
		w.keys[ev.key] = true
	} else {
		delete(w.keys, ev.key)
	}
	w.mu.Unlock()
}

func (w *Window) applyFocus(arg any) {
	w.mu.Lock()
	w.state.Focused = arg.(bool)
	w.mu.Unlock()
}

func (w *Window) applyIconify(arg any) {
	w.mu.Lock()
	w.state.Iconified = arg.(bool)
	w.mu.Unlock()
}
