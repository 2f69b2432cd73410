// Package glfwcontext is the GLFW backend: an event source whose windows
// carry OpenGL 4.1 core contexts, plus the GL calls that build and delete
// shared objects.
package glfwcontext

import (
	"fmt"
	"log"
	"runtime"
	"time"

	glfw "github.com/go-gl/glfw/v3.3/glfw"
	"github.com/richinsley/dualthread/graphics"
	"github.com/richinsley/dualthread/options"
)

// Source implements graphics.EventSource on top of GLFW. GLFW only allows
// one event thread, the process main thread, so it must be used with a
// shared event thread started by App.Main.
type Source struct{}

// NewSource initializes GLFW. Must be called from the main thread.
func NewSource() (*Source, error) {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init: %w", err)
	}
	log.Printf("GLFW Initialized")
	return &Source{}, nil
}

// Terminate shuts GLFW down. Must be called from the main thread after every
// window is destroyed.
func (s *Source) Terminate() {
	glfw.Terminate()
	log.Printf("GLFW Terminated")
}

func hint(on bool) int {
	if on {
		return glfw.True
	}
	return glfw.False
}

// Create opens a window on the calling thread, which becomes its owner.
func (s *Source) Create(opts *options.WindowOptions, share graphics.NativeWindow, h graphics.Handler) (graphics.NativeWindow, error) {
	var shareWin *glfw.Window
	if sw, ok := share.(*Window); ok && sw != nil {
		shareWin = sw.win
	}

	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Visible, hint(opts.Visible))
	glfw.WindowHint(glfw.Resizable, hint(opts.Resizable))

	win, err := glfw.CreateWindow(opts.Width, opts.Height, opts.Title, nil, shareWin)
	if err != nil {
		return nil, err
	}
	w := &Window{win: win}
	w.wire(h)
	return w, nil
}

// Pump dispatches pending GLFW events, waiting up to timeout for one.
func (s *Source) Pump(timeout time.Duration) {
	if timeout <= 0 {
		glfw.PollEvents()
		return
	}
	glfw.WaitEventsTimeout(timeout.Seconds())
}

// Wake posts an empty event, which GLFW allows from any thread.
func (s *Source) Wake() {
	glfw.PostEmptyEvent()
}
