package window

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/richinsley/dualthread/graphics"
	"github.com/richinsley/dualthread/task"
	"github.com/richinsley/dualthread/threadid"
)

// EventThread owns native window handles and their message pump. Its loop
// alternates a bounded native wait with draining its task queue, so posted
// window-management work is never starved by a quiet pump.
type EventThread struct {
	source graphics.EventSource
	wait   time.Duration
	queue  *task.Queue

	tid      atomic.Int64
	started  chan struct{}
	done     chan struct{}
	stopping atomic.Bool
	stopOnce sync.Once
}

func newEventThread(source graphics.EventSource, wait time.Duration) *EventThread {
	return &EventThread{
		source:  source,
		wait:    wait,
		queue:   task.NewQueue(),
		started: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// start runs the loop on a new pinned goroutine and returns once it has
// recorded its thread.
func (et *EventThread) start() {
	go et.run()
	<-et.started
}

// run is the loop itself. It pins the calling goroutine, so App.Main can run
// it on the process main thread.
func (et *EventThread) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	et.tid.Store(int64(threadid.Current()))
	close(et.started)
	defer close(et.done)

	for !et.stopping.Load() {
		et.queue.Drain()
		if et.stopping.Load() {
			break
		}
		et.source.Pump(et.wait)
	}
	et.queue.Drain()
	et.queue.Close()
}

// IsCurrent reports whether the caller is this event thread.
func (et *EventThread) IsCurrent() bool {
	tid := et.tid.Load()
	return tid != 0 && threadid.ID(tid) == threadid.Current()
}

// Thread returns the OS thread the loop runs on, zero before it starts.
func (et *EventThread) Thread() threadid.ID {
	return threadid.ID(et.tid.Load())
}

func (et *EventThread) post(e *task.Envelope) error {
	if err := et.queue.Post(e); err != nil {
		return ErrDestroyed
	}
	et.source.Wake()
	return nil
}

// call executes fn on the event thread. From the event thread itself it runs
// inline. With wait the caller blocks until fn has returned and observes all
// of its effects.
func (et *EventThread) call(fn task.Func, arg any, wait bool, timeout time.Duration) error {
	if et.IsCurrent() {
		fn(arg)
		return nil
	}
	e := task.New(fn, arg, wait)
	if err := et.post(e); err != nil {
		return err
	}
	if !wait {
		return nil
	}
	if timeout <= 0 {
		e.Wait()
	} else {
		select {
		case <-e.Done():
		case <-time.After(timeout):
			return ErrTimeout
		}
	}
	if !e.Executed() {
		return ErrDestroyed
	}
	return nil
}

// stop ends the loop and joins it. Called from the event thread itself it
// only flags the loop to exit.
func (et *EventThread) stop() {
	et.stopOnce.Do(func() {
		et.stopping.Store(true)
		et.source.Wake()
	})
	if et.IsCurrent() {
		return
	}
	select {
	case <-et.started:
	default:
		// never ran; nothing to join
		et.queue.Close()
		return
	}
	<-et.done
}

// Done is closed when the loop has exited.
func (et *EventThread) Done() <-chan struct{} {
	return et.done
}
