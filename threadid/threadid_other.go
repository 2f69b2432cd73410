//go:build !linux && !windows

package threadid

import (
	"bytes"
	"runtime"
	"strconv"
)

// There is no portable gettid here. A locked goroutine never migrates, so
// its goroutine id serves the same purpose.
func current() ID {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return ID(n)
}
