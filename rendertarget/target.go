// Package rendertarget provides double-buffered offscreen targets whose GPU
// objects live in a share group, so any window of the group can draw into or
// sample from them.
package rendertarget

import (
	"errors"
	"fmt"
	"image"
	"log"
	"sync"

	"github.com/richinsley/dualthread/graphics"
	"github.com/richinsley/dualthread/sharegroup"
)

var (
	// ErrReleased is returned when a target is used after its last release.
	ErrReleased = errors.New("rendertarget: released")
	// ErrNoGroup is returned by New for a context that has left its group.
	ErrNoGroup = errors.New("rendertarget: context has no share group")
)

// Target is two framebuffers, each with a color texture and a depth
// renderbuffer. A pass writes one while sampling the other, then swaps.
//
// Every object is held in the share group with exactly as many references
// as the target itself has, so the last Release queues all of them for
// deletion.
type Target struct {
	group *sharegroup.Group

	mu    sync.Mutex
	refs  int
	fbo   [2]uint32
	tex   [2]uint32
	depth [2]uint32
	read  int
	write int
	size  image.Point
}

// New allocates a target in the current context and registers it in gpu's
// share group. Anything allocated before a failure is queued for deletion.
func New(alloc graphics.Allocator, gpu *sharegroup.Context, w, h int) (*Target, error) {
	group := gpu.Group()
	if group == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoGroup, gpu.Name())
	}
	t := &Target{
		group: group,
		refs:  1,
		read:  0,
		write: 1,
		size:  image.Pt(w, h),
	}
	for i := 0; i < 2; i++ {
		tex, err := alloc.NewTexture(w, h)
		if err != nil {
			t.abandon()
			return nil, fmt.Errorf("rendertarget: texture %d: %w", i, err)
		}
		t.group.Register(sharegroup.Texture, tex)
		t.tex[i] = tex

		fbo, depth, err := t.newFramebuffer(alloc, tex, w, h)
		if err != nil {
			t.abandon()
			return nil, fmt.Errorf("rendertarget: framebuffer %d: %w", i, err)
		}
		t.fbo[i], t.depth[i] = fbo, depth
	}
	return t, nil
}

// newFramebuffer builds and registers one framebuffer tree around tex.
func (t *Target) newFramebuffer(alloc graphics.Allocator, tex uint32, w, h int) (uint32, uint32, error) {
	depth, err := alloc.NewRenderbuffer(w, h)
	if err != nil {
		return 0, 0, err
	}
	t.group.Register(sharegroup.Renderbuffer, depth)

	fbo, err := alloc.NewFramebuffer(tex, depth)
	if err != nil {
		t.group.Release(sharegroup.Renderbuffer, depth)
		return 0, 0, err
	}
	t.group.Register(sharegroup.Framebuffer, fbo)
	t.group.RegisterFramebufferDepth(fbo, sharegroup.Renderbuffer, depth)
	return fbo, depth, nil
}

// abandon drops whatever a failed New managed to register.
func (t *Target) abandon() {
	for i := 0; i < 2; i++ {
		if t.fbo[i] != 0 {
			t.group.ReleaseFramebufferTree(t.fbo[i])
		}
		if t.tex[i] != 0 {
			t.group.Release(sharegroup.Texture, t.tex[i])
		}
	}
	t.refs = 0
}

// Retain adds a user, typically another window drawing with the target.
func (t *Target) Retain() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.refs == 0 {
		return ErrReleased
	}
	t.refs++
	for i := 0; i < 2; i++ {
		t.group.RetainFramebufferTree(t.fbo[i])
		t.group.Retain(sharegroup.Texture, t.tex[i])
	}
	return nil
}

// Release drops a user. It reports whether that was the last one, in which
// case every object of the target is now pending deletion.
func (t *Target) Release() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.refs == 0 {
		log.Printf("rendertarget: release of a released target")
		return false
	}
	t.refs--
	for i := 0; i < 2; i++ {
		t.group.ReleaseFramebufferTree(t.fbo[i])
		t.group.Release(sharegroup.Texture, t.tex[i])
	}
	return t.refs == 0
}

// Refs returns the number of users.
func (t *Target) Refs() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.refs
}

// Resize changes the size of both buffers. Textures are resized in place;
// the depth attachments cannot be, so each framebuffer tree is rebuilt and
// the old one released. A texture is only resized once its new tree exists,
// so a failure leaves every buffer whose rebuild failed at its old size.
func (t *Target) Resize(alloc graphics.Allocator, w, h int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.refs == 0 {
		return ErrReleased
	}
	if t.size == image.Pt(w, h) {
		return nil
	}
	for i := 0; i < 2; i++ {
		fbo, depth, err := t.newFramebuffer(alloc, t.tex[i], w, h)
		if err != nil {
			return fmt.Errorf("rendertarget: resize framebuffer %d: %w", i, err)
		}
		alloc.ResizeTexture(t.tex[i], w, h)
		for n := 1; n < t.refs; n++ {
			t.group.RetainFramebufferTree(fbo)
		}
		for n := 0; n < t.refs; n++ {
			t.group.ReleaseFramebufferTree(t.fbo[i])
		}
		t.fbo[i], t.depth[i] = fbo, depth
	}
	t.size = image.Pt(w, h)
	return nil
}

// Swap toggles the read and write buffers. Call it after a pass has
// rendered into WriteFramebuffer.
func (t *Target) Swap() {
	t.mu.Lock()
	t.read, t.write = t.write, t.read
	t.mu.Unlock()
}

// WriteFramebuffer is the framebuffer the current pass renders into.
func (t *Target) WriteFramebuffer() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fbo[t.write]
}

// ReadTexture is the result of the previous pass.
func (t *Target) ReadTexture() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tex[t.read]
}

// Size returns the current size.
func (t *Target) Size() image.Point {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.size
}

// Group returns the share group holding the target's objects.
func (t *Target) Group() *sharegroup.Group {
	return t.group
}
