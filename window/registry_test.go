package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistrySlotsAndPrimary(t *testing.T) {
	var r Registry
	a, b, c := &Window{slot: -1}, &Window{slot: -1}, &Window{slot: -1}

	assert.True(t, r.add(a))
	assert.False(t, r.add(b))
	assert.Equal(t, 2, r.Len())
	assert.Same(t, a, r.Primary())

	assert.True(t, r.remove(a))
	assert.False(t, r.remove(a))
	assert.Nil(t, r.Primary())
	assert.Equal(t, -1, a.slot)

	// freed slot is reused; primary is not handed over
	assert.False(t, r.add(c))
	assert.Equal(t, 0, c.slot)
	assert.Nil(t, r.Primary())
	assert.ElementsMatch(t, []*Window{b, c}, r.Windows())
}

func TestRegistryQuitLatch(t *testing.T) {
	var r Registry
	w := &Window{slot: -1}
	r.add(w)
	assert.True(t, r.requestQuit())
	assert.False(t, r.requestQuit())
	assert.True(t, r.QuitRequested())

	// still set while any window of the old run lives
	r.add(&Window{slot: -1})
	assert.True(t, r.QuitRequested())

	r = Registry{}
	r.requestQuit()
	assert.True(t, r.add(&Window{slot: -1}))
	assert.False(t, r.QuitRequested())
}
