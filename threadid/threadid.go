// Package threadid identifies the OS thread the calling goroutine runs on.
//
// The result is only stable for goroutines pinned with runtime.LockOSThread,
// which is how every event and render thread in this module runs.
package threadid

// ID is an opaque OS thread identifier. Zero means "no thread".
type ID int64

// Current returns the identifier of the calling thread.
func Current() ID {
	return current()
}
