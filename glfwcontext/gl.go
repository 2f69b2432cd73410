package glfwcontext

import (
	"errors"
	"fmt"
	"log"
	"sync"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/richinsley/dualthread/sharegroup"
)

var (
	glOnce sync.Once
	glErr  error
)

// InitGL loads the GL entry points. Call it on a render thread once a
// context is current.
func InitGL() error {
	glOnce.Do(func() {
		if glErr = gl.Init(); glErr == nil {
			log.Printf("OpenGL version: %s", gl.GoStr(gl.GetString(gl.VERSION)))
		}
	})
	return glErr
}

// GL deletes and allocates objects in the current context. It implements
// both graphics.Deleter and graphics.Allocator.
type GL struct{}

func (GL) DeleteObject(kind sharegroup.Kind, id uint32) {
	switch kind {
	case sharegroup.Texture:
		gl.DeleteTextures(1, &id)
	case sharegroup.Buffer:
		gl.DeleteBuffers(1, &id)
	case sharegroup.VertexArray:
		gl.DeleteVertexArrays(1, &id)
	case sharegroup.Framebuffer:
		gl.DeleteFramebuffers(1, &id)
	case sharegroup.Renderbuffer:
		gl.DeleteRenderbuffers(1, &id)
	case sharegroup.Program:
		gl.DeleteProgram(id)
	default:
		log.Printf("glfwcontext: cannot delete %v", sharegroup.Key{Kind: kind, ID: id})
	}
}

func (GL) NewTexture(w, h int) (uint32, error) {
	var tex uint32
	gl.GenTextures(1, &tex)
	if tex == 0 {
		return 0, errors.New("glGenTextures failed")
	}
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F, int32(w), int32(h), 0, gl.RGBA, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return tex, nil
}

func (GL) NewRenderbuffer(w, h int) (uint32, error) {
	var rb uint32
	gl.GenRenderbuffers(1, &rb)
	if rb == 0 {
		return 0, errors.New("glGenRenderbuffers failed")
	}
	gl.BindRenderbuffer(gl.RENDERBUFFER, rb)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH24_STENCIL8, int32(w), int32(h))
	gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
	return rb, nil
}

func (GL) NewFramebuffer(color, depth uint32) (uint32, error) {
	var fbo uint32
	gl.GenFramebuffers(1, &fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, color, 0)
	if depth != 0 {
		gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_STENCIL_ATTACHMENT, gl.RENDERBUFFER, depth)
	}
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		gl.DeleteFramebuffers(1, &fbo)
		return 0, fmt.Errorf("framebuffer is not complete: 0x%x", status)
	}
	return fbo, nil
}

func (GL) ResizeTexture(id uint32, w, h int) {
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F, int32(w), int32(h), 0, gl.RGBA, gl.FLOAT, nil)
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

// Clear fills the bound framebuffer with a solid color.
func Clear(r, g, b float32) {
	gl.ClearColor(r, g, b, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// BindFramebuffer binds fbo for drawing, zero for the window.
func BindFramebuffer(fbo uint32) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
}

// Viewport sets the drawing area.
func Viewport(w, h int) {
	gl.Viewport(0, 0, int32(w), int32(h))
}
