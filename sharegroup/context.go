package sharegroup

import (
	"log"
	"sync"
)

// Context is one graphics context's membership in a share group. The handle
// is passed explicitly wherever an operation needs "the current context";
// there is no thread-local current context.
type Context struct {
	name string

	mu    sync.Mutex
	group *Group
	left  bool
}

// NewContext returns an unbound context. A group is created the first time
// it touches an object, or by Bind.
func NewContext(name string) *Context {
	return &Context{name: name}
}

// Name returns the label given to NewContext.
func (c *Context) Name() string {
	return c.name
}

// Group returns the context's group, creating a private one if needed. It
// returns nil once the context has left its group with Unbind, until the
// next Bind.
func (c *Context) Group() *Group {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.left {
		return nil
	}
	if c.group == nil {
		c.group = newGroup()
		c.group.members = 1
	}
	return c.group
}

// Bound returns the current group without creating one.
func (c *Context) Bound() *Group {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.group
}

// Bind makes c join other's group, or a fresh group when other is nil or has
// itself left its group. The group c leaves is destroyed if c was its last
// member.
func (c *Context) Bind(other *Context) {
	if other == c {
		return
	}
	for {
		var target *Group
		if other != nil {
			target = other.Group()
			if target == nil {
				log.Printf("sharegroup: context %q: %q has no group, binding a fresh one", c.name, other.name)
			}
		}
		if target == nil {
			target = newGroup()
			target.members = 1
		} else {
			c.mu.Lock()
			same := c.group == target
			c.mu.Unlock()
			if same {
				return
			}
			if !target.join() {
				// other dropped its group while we were joining; it will
				// hand out a new one on the next pass.
				continue
			}
		}

		c.mu.Lock()
		old := c.group
		c.group = target
		c.left = false
		c.mu.Unlock()

		if old != nil {
			old.leave()
		}
		return
	}
}

// Unbind leaves the current group. It reports whether that destroyed the
// group. Object calls made after Unbind are logged and dropped; only Bind
// gives the context a group again.
func (c *Context) Unbind() bool {
	c.mu.Lock()
	old := c.group
	c.group = nil
	c.left = true
	c.mu.Unlock()
	if old == nil {
		return false
	}
	return old.leave()
}

// live returns the group for an object call, or logs the leaked call and
// returns nil when the context has left its group.
func (c *Context) live(op string, key Key) *Group {
	g := c.Group()
	if g == nil {
		log.Printf("sharegroup: context %q: %s of %v after leaving its group, leaked", c.name, op, key)
	}
	return g
}

// Register tracks a new object created in this context.
func (c *Context) Register(kind Kind, id uint32) {
	if g := c.live("register", Key{Kind: kind, ID: id}); g != nil {
		g.Register(kind, id)
	}
}

// Retain adds a reference to an object.
func (c *Context) Retain(kind Kind, id uint32) {
	if g := c.live("retain", Key{Kind: kind, ID: id}); g != nil {
		g.Retain(kind, id)
	}
}

// Release drops a reference to an object.
func (c *Context) Release(kind Kind, id uint32) {
	if g := c.live("release", Key{Kind: kind, ID: id}); g != nil {
		g.Release(kind, id)
	}
}

// RegisterFramebufferDepth records fbo's depth/stencil attachment.
func (c *Context) RegisterFramebufferDepth(fbo uint32, kind Kind, id uint32) {
	if g := c.live("framebuffer depth", Key{Kind: Framebuffer, ID: fbo}); g != nil {
		g.RegisterFramebufferDepth(fbo, kind, id)
	}
}

// RetainFramebufferTree retains fbo and its attachment.
func (c *Context) RetainFramebufferTree(fbo uint32) {
	if g := c.live("retain", Key{Kind: Framebuffer, ID: fbo}); g != nil {
		g.RetainFramebufferTree(fbo)
	}
}

// ReleaseFramebufferTree releases fbo and its attachment.
func (c *Context) ReleaseFramebufferTree(fbo uint32) {
	if g := c.live("release", Key{Kind: Framebuffer, ID: fbo}); g != nil {
		g.ReleaseFramebufferTree(fbo)
	}
}

// PopPendingDelete pops one queued delete from the group.
func (c *Context) PopPendingDelete() (Pending, bool) {
	g := c.Bound()
	if g == nil {
		return Pending{}, false
	}
	return g.PopPendingDelete()
}

// Flush executes every queued delete of the group through d. The caller
// must have this context current.
func (c *Context) Flush(d Deleter) int {
	g := c.Bound()
	if g == nil {
		return 0
	}
	return g.Flush(d)
}
