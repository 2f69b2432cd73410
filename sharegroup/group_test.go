package sharegroup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type recordingDeleter struct {
	deleted []Key
}

func (d *recordingDeleter) DeleteObject(kind Kind, id uint32) {
	d.deleted = append(d.deleted, Key{kind, id})
}

func TestRefcountRoundTrip(t *testing.T) {
	c := NewContext("a")
	c.Register(Texture, 7)
	c.Retain(Texture, 7)
	assert.Equal(t, 2, c.Group().Refs(Texture, 7))

	c.Release(Texture, 7)
	assert.Equal(t, 1, c.Group().Refs(Texture, 7))
	assert.False(t, c.Group().IsPendingDelete(Texture, 7))

	c.Release(Texture, 7)
	assert.Zero(t, c.Group().Refs(Texture, 7))
	assert.True(t, c.Group().IsPendingDelete(Texture, 7))

	// already removed: must not queue a second delete
	c.Release(Texture, 7)
	s := c.Group().Stats()
	assert.Equal(t, 0, s.Live)
	assert.Equal(t, 1, s.Pending)

	p, ok := c.PopPendingDelete()
	require.True(t, ok)
	assert.Equal(t, Key{Texture, 7}, p.Key)
	_, ok = c.PopPendingDelete()
	assert.False(t, ok)
}

func TestRetainUnregisteredAssumesImplicitOwner(t *testing.T) {
	g := NewContext("a").Group()
	g.Retain(Buffer, 3)
	assert.Equal(t, 2, g.Refs(Buffer, 3))

	g.Release(Buffer, 3)
	assert.Equal(t, 1, g.Refs(Buffer, 3))
	assert.False(t, g.IsPendingDelete(Buffer, 3))

	g.Release(Buffer, 3)
	assert.True(t, g.IsPendingDelete(Buffer, 3))
}

func TestReleaseUnregisteredDeletesImmediately(t *testing.T) {
	g := NewContext("a").Group()
	g.Release(Program, 11)
	g.Release(Program, 11)
	assert.Equal(t, 1, g.Stats().Pending)

	var d recordingDeleter
	assert.Equal(t, 1, g.Flush(&d))
	assert.Equal(t, []Key{{Program, 11}}, d.deleted)
}

func TestNeverInBothLiveAndPending(t *testing.T) {
	g := NewContext("a").Group()
	g.Register(VertexArray, 1)
	g.Release(VertexArray, 1)
	require.True(t, g.IsPendingDelete(VertexArray, 1))

	g.Retain(VertexArray, 1)
	assert.False(t, g.IsPendingDelete(VertexArray, 1))
	assert.Equal(t, 2, g.Refs(VertexArray, 1))

	// the stale FIFO entry is skipped
	_, ok := g.PopPendingDelete()
	assert.False(t, ok)

	g.Release(VertexArray, 1)
	g.Release(VertexArray, 1)
	var d recordingDeleter
	assert.Equal(t, 1, g.Flush(&d))
	assert.Equal(t, []Key{{VertexArray, 1}}, d.deleted)
}

func TestFramebufferCascade(t *testing.T) {
	g := NewContext("a").Group()
	g.Register(Framebuffer, 1)
	g.Register(Texture, 9)
	g.RegisterFramebufferDepth(1, Texture, 9)

	g.RetainFramebufferTree(1)
	assert.Equal(t, 2, g.Refs(Framebuffer, 1))
	assert.Equal(t, 2, g.Refs(Texture, 9))

	g.ReleaseFramebufferTree(1)
	assert.Equal(t, 1, g.Refs(Framebuffer, 1))
	assert.Equal(t, 1, g.Refs(Texture, 9))
	assert.Zero(t, g.Stats().Pending)

	g.ReleaseFramebufferTree(1)
	assert.True(t, g.IsPendingDelete(Framebuffer, 1))
	assert.True(t, g.IsPendingDelete(Texture, 9))
	_, ok := g.Attachment(1)
	assert.False(t, ok, "attachment record goes with the framebuffer")
}

func TestPayloadReturnedOnPop(t *testing.T) {
	g := NewContext("a").Group()
	g.Register(Program, 4)
	g.SetPayload(Program, 4, []int32{0, 1, 2})
	v, ok := g.Payload(Program, 4)
	require.True(t, ok)
	assert.Equal(t, []int32{0, 1, 2}, v)

	g.Release(Program, 4)
	p, ok := g.PopPendingDelete()
	require.True(t, ok)
	assert.Equal(t, []int32{0, 1, 2}, p.Payload)
	_, ok = g.Payload(Program, 4)
	assert.False(t, ok)
}

func TestBindSharesGroupAndTeardown(t *testing.T) {
	a := NewContext("a")
	b := NewContext("b")
	a.Bind(nil)
	b.Bind(a)
	g := a.Group()
	require.Same(t, g, b.Group())
	assert.Equal(t, 2, g.Members())

	ids := []uint32{1, 2, 3, 4, 5}
	for _, id := range ids {
		a.Register(Texture, id)
	}
	for i := 0; i < 3; i++ {
		for _, id := range ids {
			b.Retain(Texture, id)
		}
		for _, id := range ids {
			a.Release(Texture, id)
		}
	}
	assert.Equal(t, len(ids), g.Stats().Live)

	assert.False(t, a.Unbind())
	assert.False(t, g.Destroyed())
	for _, id := range ids {
		b.Release(Texture, id)
	}
	assert.True(t, b.Unbind())

	s := g.Stats()
	assert.True(t, s.Destroyed)
	assert.Zero(t, s.Live)
	assert.Equal(t, len(ids), s.Pending)
}

func TestRebindDestroysEmptiedGroup(t *testing.T) {
	a := NewContext("a")
	b := NewContext("b")
	old := a.Group()
	a.Bind(b)
	assert.True(t, old.Destroyed())
	assert.Same(t, b.Group(), a.Group())
	assert.Equal(t, 2, b.Group().Members())

	// binding to the group it is already in is a no-op
	a.Bind(b)
	assert.Equal(t, 2, b.Group().Members())
}

func TestCallsAfterUnbindDoNotCreateGroup(t *testing.T) {
	a := NewContext("a")
	a.Bind(nil)
	g := a.Group()
	a.Register(Texture, 3)
	assert.True(t, a.Unbind())
	assert.True(t, g.Destroyed())

	a.Register(Buffer, 1)
	a.Release(Texture, 3)
	a.RetainFramebufferTree(2)
	assert.Nil(t, a.Bound())
	assert.Nil(t, a.Group())
	_, ok := a.PopPendingDelete()
	assert.False(t, ok)
	assert.Zero(t, a.Flush(nil))
	// the old group is untouched by the late calls
	s := g.Stats()
	assert.Equal(t, 1, s.Live)
	assert.Zero(t, s.Pending)

	// joining a context that has left gives a fresh group
	b := NewContext("b")
	b.Bind(a)
	require.NotNil(t, b.Bound())
	assert.Equal(t, 1, b.Bound().Members())

	// an explicit Bind makes the context usable again
	a.Bind(b)
	a.Register(Texture, 4)
	assert.Same(t, b.Group(), a.Group())
	assert.Equal(t, 1, a.Group().Refs(Texture, 4))
}

func TestDumpDoesNotMutate(t *testing.T) {
	g := NewContext("a").Group()
	g.Register(Texture, 1)
	g.Register(Buffer, 2)
	g.Release(Buffer, 2)
	before := g.Stats()

	out := g.Dump()
	assert.Equal(t, before, g.Stats())
	assert.Contains(t, out, "texture")
	assert.Contains(t, out, "buffer")
	assert.Contains(t, out, "members=1")
	assert.GreaterOrEqual(t, strings.Count(out, "\n"), len(Kinds)+2)
}

func TestConcurrentRetainRelease(t *testing.T) {
	a := NewContext("a")
	b := NewContext("b")
	b.Bind(a)
	g := a.Group()
	for id := uint32(1); id <= 16; id++ {
		g.Register(Buffer, id)
	}

	var eg errgroup.Group
	for _, c := range []*Context{a, b, a, b} {
		c := c
		eg.Go(func() error {
			for n := 0; n < 200; n++ {
				for id := uint32(1); id <= 16; id++ {
					c.Retain(Buffer, id)
				}
				for id := uint32(1); id <= 16; id++ {
					c.Release(Buffer, id)
				}
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	s := g.Stats()
	assert.Equal(t, 16, s.Live)
	assert.Equal(t, 16, s.Kinds[Buffer].Refs)
	assert.Zero(t, s.Pending)
}
