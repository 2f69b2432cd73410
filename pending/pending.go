// Package pending implements the lock-free coalescing cell that sits between
// high-frequency native notifications and the render thread.
//
// Producers store the latest value of a category, set its bit in the mask and
// try to claim the queued guard. Only the producer that wins the guard posts a
// drain, so an event storm produces one drain per batch instead of one per
// event.
package pending

import (
	"math"
	"sync/atomic"
)

// Category is one bit of the pending mask.
type Category uint32

const (
	WindowSize Category = 1 << iota
	ContentScale
	MousePos
	MouseWheel
	WindowPos
	FramebufferSize
)

// All is every category.
const All = WindowSize | ContentScale | MousePos | MouseWheel | WindowPos | FramebufferSize

func (c Category) String() string {
	switch c {
	case WindowSize:
		return "window-size"
	case ContentScale:
		return "content-scale"
	case MousePos:
		return "mouse-pos"
	case MouseWheel:
		return "mouse-wheel"
	case WindowPos:
		return "window-pos"
	case FramebufferSize:
		return "framebuffer-size"
	}
	return "mixed"
}

// Has reports whether every bit of o is set in c.
func (c Category) Has(o Category) bool {
	return c&o == o
}

// wheelScale is the 16.16 fixed point unit for wheel accumulation.
const wheelScale = 1 << 16

// Cell is the coalescing storage for one window. The zero value is ready to
// use.
type Cell struct {
	mask   atomic.Uint32
	queued atomic.Uint32

	windowSize atomic.Uint64
	fbSize     atomic.Uint64
	windowPos  atomic.Uint64
	scale      atomic.Uint64
	mouseX     atomic.Uint64
	mouseY     atomic.Uint64
	wheelX     atomic.Int64
	wheelY     atomic.Int64
}

func packInts(a, b int) uint64 {
	return uint64(uint32(int32(a)))<<32 | uint64(uint32(int32(b)))
}

func unpackInts(v uint64) (int, int) {
	return int(int32(uint32(v >> 32))), int(int32(uint32(v)))
}

func packFloats(a, b float32) uint64 {
	return uint64(math.Float32bits(a))<<32 | uint64(math.Float32bits(b))
}

func unpackFloats(v uint64) (float32, float32) {
	return math.Float32frombits(uint32(v >> 32)), math.Float32frombits(uint32(v))
}

func toFixed(v float64) int64 {
	return int64(math.Round(v * wheelScale))
}

// publish marks cat pending and tries to claim the drain guard. It returns
// true when the caller must post a drain.
func (c *Cell) publish(cat Category) bool {
	c.mask.Or(uint32(cat))
	return c.queued.CompareAndSwap(0, 1)
}

// StoreWindowSize records the latest logical window size.
func (c *Cell) StoreWindowSize(w, h int) bool {
	c.windowSize.Store(packInts(w, h))
	return c.publish(WindowSize)
}

// StoreFramebufferSize records the latest framebuffer size in pixels.
func (c *Cell) StoreFramebufferSize(w, h int) bool {
	c.fbSize.Store(packInts(w, h))
	return c.publish(FramebufferSize)
}

// StoreWindowPos records the latest window position.
func (c *Cell) StoreWindowPos(x, y int) bool {
	c.windowPos.Store(packInts(x, y))
	return c.publish(WindowPos)
}

// StoreContentScale records the latest content scale.
func (c *Cell) StoreContentScale(x, y float32) bool {
	c.scale.Store(packFloats(x, y))
	return c.publish(ContentScale)
}

// StoreMousePos records the latest pointer position.
func (c *Cell) StoreMousePos(x, y float64) bool {
	c.mouseX.Store(math.Float64bits(x))
	c.mouseY.Store(math.Float64bits(y))
	return c.publish(MousePos)
}

// AddWheel accumulates a wheel delta. Unlike the other categories wheel
// deltas sum until drained.
func (c *Cell) AddWheel(dx, dy float64) bool {
	c.wheelX.Add(toFixed(dx))
	c.wheelY.Add(toFixed(dy))
	return c.publish(MouseWheel)
}

// Snapshot is the set of categories taken by one drain pass.
type Snapshot struct {
	Mask Category

	WindowW, WindowH int
	FramebufferW     int
	FramebufferH     int
	PosX, PosY       int
	ScaleX, ScaleY   float32
	MouseX, MouseY   float64
	WheelX, WheelY   float64
}

// Take swaps the mask to zero and reads every category that was set.
// Must only be called by the holder of the drain guard.
func (c *Cell) Take() Snapshot {
	s := Snapshot{Mask: Category(c.mask.Swap(0))}
	if s.Mask.Has(WindowSize) {
		s.WindowW, s.WindowH = unpackInts(c.windowSize.Load())
	}
	if s.Mask.Has(FramebufferSize) {
		s.FramebufferW, s.FramebufferH = unpackInts(c.fbSize.Load())
	}
	if s.Mask.Has(WindowPos) {
		s.PosX, s.PosY = unpackInts(c.windowPos.Load())
	}
	if s.Mask.Has(ContentScale) {
		s.ScaleX, s.ScaleY = unpackFloats(c.scale.Load())
	}
	if s.Mask.Has(MousePos) {
		s.MouseX = math.Float64frombits(c.mouseX.Load())
		s.MouseY = math.Float64frombits(c.mouseY.Load())
	}
	if s.Mask.Has(MouseWheel) {
		s.WheelX = float64(c.wheelX.Swap(0)) / wheelScale
		s.WheelY = float64(c.wheelY.Swap(0)) / wheelScale
	}
	return s
}

// Release gives up the drain guard. If more events arrived during the drain
// it reclaims the guard and returns true, and the caller keeps draining in
// the same task instead of leaving the work for a post nobody made.
func (c *Cell) Release() bool {
	c.queued.Store(0)
	if c.mask.Load() == 0 {
		return false
	}
	return c.queued.CompareAndSwap(0, 1)
}

// Discard drops all pending state and releases the guard.
func (c *Cell) Discard() {
	c.mask.Store(0)
	c.wheelX.Store(0)
	c.wheelY.Store(0)
	c.queued.Store(0)
}

// Pending returns the current mask without consuming it.
func (c *Cell) Pending() Category {
	return Category(c.mask.Load())
}

// Queued reports whether a drain currently holds the guard.
func (c *Cell) Queued() bool {
	return c.queued.Load() == 1
}
