package rendertarget

import (
	"image"
	"testing"

	"github.com/richinsley/dualthread/headless"
	"github.com/richinsley/dualthread/sharegroup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersTrees(t *testing.T) {
	alloc := headless.NewAllocator()
	gpu := sharegroup.NewContext("a")
	tg, err := New(alloc, gpu, 64, 32)
	require.NoError(t, err)

	g := tg.Group()
	for _, fbo := range []uint32{1, 2} {
		assert.Equal(t, 1, g.Refs(sharegroup.Framebuffer, fbo))
		att, ok := g.Attachment(fbo)
		require.True(t, ok)
		assert.Equal(t, sharegroup.Renderbuffer, att.Kind)
		assert.Equal(t, 1, g.Refs(sharegroup.Renderbuffer, att.ID))
		color, depth := alloc.Attachments(fbo)
		assert.Equal(t, att.ID, depth)
		assert.Equal(t, 1, g.Refs(sharegroup.Texture, color))
	}

	assert.EqualValues(t, 2, tg.WriteFramebuffer())
	assert.EqualValues(t, 1, tg.ReadTexture())
	tg.Swap()
	assert.EqualValues(t, 1, tg.WriteFramebuffer())
	assert.EqualValues(t, 2, tg.ReadTexture())
}

func TestSharedTargetOutlivesCreator(t *testing.T) {
	alloc := headless.NewAllocator()
	first := sharegroup.NewContext("first")
	second := sharegroup.NewContext("second")
	second.Bind(first)

	tg, err := New(alloc, first, 16, 16)
	require.NoError(t, err)
	require.NoError(t, tg.Retain())
	assert.Equal(t, 2, tg.Group().Refs(sharegroup.Framebuffer, 1))
	assert.Equal(t, 2, tg.Group().Refs(sharegroup.Renderbuffer, 1))

	assert.False(t, tg.Release())
	assert.False(t, first.Unbind())
	assert.Equal(t, 1, tg.Group().Refs(sharegroup.Texture, 1))

	assert.True(t, tg.Release())
	del := headless.NewDeleter()
	assert.Equal(t, 6, second.Flush(del))
	assert.ElementsMatch(t, []sharegroup.Key{
		{Kind: sharegroup.Texture, ID: 1},
		{Kind: sharegroup.Texture, ID: 2},
		{Kind: sharegroup.Framebuffer, ID: 1},
		{Kind: sharegroup.Framebuffer, ID: 2},
		{Kind: sharegroup.Renderbuffer, ID: 1},
		{Kind: sharegroup.Renderbuffer, ID: 2},
	}, del.Deleted())

	assert.ErrorIs(t, tg.Retain(), ErrReleased)
	assert.False(t, tg.Release())
}

func TestResizeRebuildsDepth(t *testing.T) {
	alloc := headless.NewAllocator()
	gpu := sharegroup.NewContext("a")
	tg, err := New(alloc, gpu, 8, 8)
	require.NoError(t, err)
	require.NoError(t, tg.Retain())
	oldFBO := tg.WriteFramebuffer()

	require.NoError(t, tg.Resize(alloc, 8, 8))
	assert.Equal(t, oldFBO, tg.WriteFramebuffer())

	require.NoError(t, tg.Resize(alloc, 20, 10))
	g := tg.Group()
	assert.Equal(t, 20, alloc.Size(sharegroup.Texture, 1).X)
	assert.True(t, g.IsPendingDelete(sharegroup.Framebuffer, oldFBO))
	att, ok := g.Attachment(tg.WriteFramebuffer())
	require.True(t, ok)
	assert.Equal(t, 2, g.Refs(sharegroup.Framebuffer, tg.WriteFramebuffer()))
	assert.Equal(t, 2, g.Refs(sharegroup.Renderbuffer, att.ID))
	assert.Equal(t, 10, alloc.Size(sharegroup.Renderbuffer, att.ID).Y)
	// textures are resized in place and keep their references
	assert.Equal(t, 2, g.Refs(sharegroup.Texture, 1))
}

func TestNewFailureQueuesPartialObjects(t *testing.T) {
	alloc := headless.NewAllocator()
	alloc.Fail[sharegroup.Framebuffer] = true
	gpu := sharegroup.NewContext("a")

	tg, err := New(alloc, gpu, 4, 4)
	assert.Nil(t, tg)
	require.Error(t, err)

	del := headless.NewDeleter()
	gpu.Flush(del)
	assert.ElementsMatch(t, []sharegroup.Key{
		{Kind: sharegroup.Texture, ID: 1},
		{Kind: sharegroup.Renderbuffer, ID: 1},
	}, del.Deleted())
	assert.Zero(t, gpu.Group().Stats().Live)
}

func TestResizeFailureKeepsTextureSize(t *testing.T) {
	alloc := headless.NewAllocator()
	gpu := sharegroup.NewContext("a")
	tg, err := New(alloc, gpu, 8, 8)
	require.NoError(t, err)
	fbo := tg.WriteFramebuffer()

	alloc.Fail[sharegroup.Framebuffer] = true
	require.Error(t, tg.Resize(alloc, 16, 16))

	assert.Equal(t, image.Pt(8, 8), tg.Size())
	assert.Equal(t, fbo, tg.WriteFramebuffer())
	for _, tex := range []uint32{1, 2} {
		assert.Equal(t, image.Pt(8, 8), alloc.Size(sharegroup.Texture, tex))
	}
	g := tg.Group()
	assert.True(t, g.IsPendingDelete(sharegroup.Renderbuffer, 3))
	assert.Equal(t, 1, g.Refs(sharegroup.Framebuffer, fbo))

	require.NoError(t, tg.Resize(alloc, 16, 16))
	assert.Equal(t, image.Pt(16, 16), alloc.Size(sharegroup.Texture, 1))
}

func TestNewRefusesContextWithoutGroup(t *testing.T) {
	alloc := headless.NewAllocator()
	gpu := sharegroup.NewContext("a")
	gpu.Bind(nil)
	gpu.Unbind()

	tg, err := New(alloc, gpu, 4, 4)
	assert.Nil(t, tg)
	assert.ErrorIs(t, err, ErrNoGroup)
}
