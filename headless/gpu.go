package headless

import (
	"fmt"
	"image"
	"sync"

	"github.com/richinsley/dualthread/sharegroup"
	"github.com/richinsley/dualthread/threadid"
)

// Deleter records every delete it is asked to perform.
type Deleter struct {
	mu      sync.Mutex
	deleted []sharegroup.Key
	threads map[threadid.ID]int
}

// NewDeleter returns an empty Deleter.
func NewDeleter() *Deleter {
	return &Deleter{threads: make(map[threadid.ID]int)}
}

func (d *Deleter) DeleteObject(kind sharegroup.Kind, id uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deleted = append(d.deleted, sharegroup.Key{Kind: kind, ID: id})
	d.threads[threadid.Current()]++
}

// Deleted returns the deletes in execution order.
func (d *Deleter) Deleted() []sharegroup.Key {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]sharegroup.Key(nil), d.deleted...)
}

// Threads returns how many deletes ran on each thread.
func (d *Deleter) Threads() map[threadid.ID]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[threadid.ID]int, len(d.threads))
	for k, v := range d.threads {
		out[k] = v
	}
	return out
}

// Allocator hands out sequential object names per kind.
type Allocator struct {
	mu    sync.Mutex
	next  map[sharegroup.Kind]uint32
	sizes map[sharegroup.Key]image.Point
	fbos  map[uint32][2]uint32

	// Fail, when set, makes the next allocation of that kind fail.
	Fail map[sharegroup.Kind]bool
}

// NewAllocator returns an Allocator whose first name for every kind is 1.
func NewAllocator() *Allocator {
	return &Allocator{
		next:  make(map[sharegroup.Kind]uint32),
		sizes: make(map[sharegroup.Key]image.Point),
		fbos:  make(map[uint32][2]uint32),
		Fail:  make(map[sharegroup.Kind]bool),
	}
}

func (a *Allocator) alloc(kind sharegroup.Kind) (uint32, error) {
	if a.Fail[kind] {
		delete(a.Fail, kind)
		return 0, fmt.Errorf("headless: cannot allocate %s", kind)
	}
	a.next[kind]++
	return a.next[kind], nil
}

func (a *Allocator) NewTexture(w, h int) (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id, err := a.alloc(sharegroup.Texture)
	if err == nil {
		a.sizes[sharegroup.Key{Kind: sharegroup.Texture, ID: id}] = image.Pt(w, h)
	}
	return id, err
}

func (a *Allocator) NewRenderbuffer(w, h int) (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id, err := a.alloc(sharegroup.Renderbuffer)
	if err == nil {
		a.sizes[sharegroup.Key{Kind: sharegroup.Renderbuffer, ID: id}] = image.Pt(w, h)
	}
	return id, err
}

func (a *Allocator) NewFramebuffer(color, depth uint32) (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id, err := a.alloc(sharegroup.Framebuffer)
	if err == nil {
		a.fbos[id] = [2]uint32{color, depth}
	}
	return id, err
}

func (a *Allocator) ResizeTexture(id uint32, w, h int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sizes[sharegroup.Key{Kind: sharegroup.Texture, ID: id}] = image.Pt(w, h)
}

// Size returns the allocated size of a texture or renderbuffer.
func (a *Allocator) Size(kind sharegroup.Kind, id uint32) image.Point {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sizes[sharegroup.Key{Kind: kind, ID: id}]
}

// Attachments returns the color and depth names a framebuffer was built with.
func (a *Allocator) Attachments(fbo uint32) (color, depth uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	att := a.fbos[fbo]
	return att[0], att[1]
}
