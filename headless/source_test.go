package headless

import (
	"runtime"
	"testing"
	"time"

	"github.com/richinsley/dualthread/graphics"
	"github.com/richinsley/dualthread/options"
	"github.com/richinsley/dualthread/sharegroup"
	"github.com/richinsley/dualthread/threadid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHandler struct {
	graphics.Handler
	moves []int
}

func (h *countingHandler) OnMove(x, y int) {
	h.moves = append(h.moves, x)
}

func onLockedThread(fn func()) {
	done := make(chan struct{})
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(done)
		fn()
	}()
	<-done
}

func TestInjectedEventsRunOnOwner(t *testing.T) {
	s := NewSource()
	h := &countingHandler{}
	onLockedThread(func() {
		nw, err := s.Create(&options.WindowOptions{Title: "a", Width: 10, Height: 10}, nil, h)
		require.NoError(t, err)
		w := nw.(*Window)
		assert.Equal(t, threadid.Current(), w.Owner())

		w.InjectMove(1, 0)
		w.InjectMove(2, 0)
		s.Pump(0)
		assert.Equal(t, []int{1, 2}, h.moves)

		// nothing queued: the wait times out
		start := time.Now()
		s.Pump(20 * time.Millisecond)
		assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
	})
}

func TestWakeBreaksPump(t *testing.T) {
	s := NewSource()
	done := make(chan time.Duration)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		s.inboxFor(threadid.Current())
		done <- 0
		start := time.Now()
		s.Pump(5 * time.Second)
		done <- time.Since(start)
	}()
	<-done
	s.Wake()
	assert.Less(t, <-done, time.Second)
	assert.EqualValues(t, 1, s.Wakes())
}

func TestFailCreate(t *testing.T) {
	s := NewSource()
	s.FailCreate(true)
	_, err := s.Create(&options.WindowOptions{}, nil, &countingHandler{})
	assert.ErrorIs(t, err, ErrInjectedFailure)
	assert.Empty(t, s.Windows())
}

func TestAllocatorNamesPerKind(t *testing.T) {
	a := NewAllocator()
	tex, err := a.NewTexture(4, 4)
	require.NoError(t, err)
	rb, err := a.NewRenderbuffer(4, 4)
	require.NoError(t, err)
	fbo, err := a.NewFramebuffer(tex, rb)
	require.NoError(t, err)
	assert.EqualValues(t, 1, tex)
	assert.EqualValues(t, 1, rb)
	assert.EqualValues(t, 1, fbo)

	a.ResizeTexture(tex, 8, 2)
	assert.Equal(t, 8, a.Size(sharegroup.Texture, tex).X)

	a.Fail[sharegroup.Texture] = true
	_, err = a.NewTexture(1, 1)
	assert.Error(t, err)
	tex2, err := a.NewTexture(1, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, tex2)
}
