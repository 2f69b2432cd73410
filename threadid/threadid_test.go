package threadid

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func onLockedThread(fn func()) {
	done := make(chan struct{})
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		fn()
		close(done)
	}()
	<-done
}

func TestCurrentStableWhenLocked(t *testing.T) {
	var first, second ID
	onLockedThread(func() {
		first = Current()
		runtime.Gosched()
		second = Current()
	})
	assert.NotZero(t, first)
	assert.Equal(t, first, second)
}

func TestCurrentDiffersAcrossLockedThreads(t *testing.T) {
	a := make(chan ID)
	release := make(chan struct{})
	for i := 0; i < 2; i++ {
		go func() {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			a <- Current()
			<-release
		}()
	}
	x, y := <-a, <-a
	close(release)
	assert.NotEqual(t, x, y)
}
