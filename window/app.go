package window

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"

	"github.com/richinsley/dualthread/graphics"
	"github.com/richinsley/dualthread/options"
	"github.com/richinsley/dualthread/sharegroup"
	"github.com/richinsley/dualthread/task"
	"golang.org/x/sync/errgroup"
)

// ErrMainRunning is returned by Main when it is already running.
var ErrMainRunning = errors.New("window: main loop already running")

// App ties an event source to the window registry. One App is one process
// worth of windows; tests may create several.
type App struct {
	cfg     options.Config
	source  graphics.EventSource
	deleter graphics.Deleter
	reg     Registry

	mu   sync.Mutex
	main *EventThread
}

// NewApp returns an App using source for native windows and deleter for
// queued GPU deletes. deleter may be nil, in which case deletes stay queued.
func NewApp(source graphics.EventSource, deleter graphics.Deleter, cfg options.Config) *App {
	sharegroup.SetDebug(cfg.Debug)
	return &App{
		cfg:     cfg,
		source:  source,
		deleter: deleter,
	}
}

// Registry returns the App's window registry.
func (a *App) Registry() *Registry {
	return &a.reg
}

// Config returns the runtime settings.
func (a *App) Config() options.Config {
	return a.cfg
}

func (a *App) logf(format string, args ...any) {
	log.Printf(format, args...)
}

func (a *App) debugf(format string, args ...any) {
	if a.cfg.Debug {
		log.Printf(format, args...)
	}
}

// violation reports a call made from a thread that does not own the
// resource. It is a programming error: the dispatcher was bypassed.
func (a *App) violation(op, owner string) {
	err := fmt.Errorf("%w: %s outside the %s thread", ErrWrongThread, op, owner)
	if a.cfg.Debug {
		panic(err)
	}
	log.Println(err)
}

// wakeAll wakes every registered window. Used on close and shutdown paths
// so that no window stays blocked after a quit.
func (a *App) wakeAll() {
	for _, w := range a.reg.Windows() {
		w.render.queue.Wake()
	}
}

// eventThread returns the event thread for a new dual-thread window and
// whether the window owns it.
func (a *App) eventThread() (*EventThread, bool) {
	if !a.cfg.SharedEventThread {
		et := newEventThread(a.source, a.cfg.EventWait.D())
		et.start()
		return et, true
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.main == nil || a.main.stopping.Load() {
		a.main = newEventThread(a.source, a.cfg.EventWait.D())
		a.main.start()
	}
	return a.main, false
}

// Open creates a window. share, if not nil, is a window whose GPU object
// namespace the new window joins.
//
// With EventThread set the native window is created on the event thread and
// Open waits for it; the calling goroutine is free to become the render
// thread. Otherwise the calling goroutine is pinned and owns both.
func (a *App) Open(opts *options.WindowOptions, share *Window) (*Window, error) {
	var o options.WindowOptions
	if opts != nil {
		o = *opts
	}
	o.Fixup()

	w := &Window{
		app:       a,
		opts:      o,
		gpu:       sharegroup.NewContext(o.Title),
		render:    renderThread{queue: task.NewQueue()},
		created:   make(chan struct{}),
		destroyed: make(chan struct{}),
		keys:      make(map[int]bool),
		slot:      -1,
	}
	w.state = State{
		Size:            image.Pt(o.Width, o.Height),
		FramebufferSize: image.Pt(o.Width, o.Height),
		LogicalSize:     image.Pt(o.Width, o.Height),
		ScaleX:          1,
		ScaleY:          1,
		Focused:         o.Visible,
	}

	var shareNative graphics.NativeWindow
	if share != nil {
		shareNative = share.native
	}
	create := func(any) {
		defer close(w.created)
		w.native, w.createErr = a.source.Create(&w.opts, shareNative, handler{w})
		if w.createErr == nil && w.native == nil {
			w.createErr = errors.New("no native window")
		}
	}

	if o.EventThread {
		w.events, w.ownsEvents = a.eventThread()
		if err := w.events.post(task.New(create, nil, false)); err != nil {
			w.createErr = err
			close(w.created)
		}
	} else {
		w.render.attach()
		create(nil)
	}

	// always signalled, success or not
	<-w.created

	if w.createErr != nil {
		if w.ownsEvents {
			w.events.stop()
		}
		if !o.EventThread {
			w.render.detach()
		}
		return nil, fmt.Errorf("%w: %q: %w", ErrCreateFailed, o.Title, w.createErr)
	}

	if !o.EventThread {
		w.native.MakeCurrent()
	}
	if share != nil {
		w.gpu.Bind(share.gpu)
	} else {
		w.gpu.Bind(nil)
	}
	if a.reg.add(w) {
		a.debugf("window %q is primary", o.Title)
	}
	w.advance(PhaseRunning)
	return w, nil
}

// Shutdown requests a close of every window and waits until each has been
// torn down or ctx is done. The shared event thread is stopped afterwards.
func (a *App) Shutdown(ctx context.Context) error {
	windows := a.reg.Windows()
	a.reg.requestQuit()
	a.wakeAll()

	var eg errgroup.Group
	for _, w := range windows {
		w := w
		eg.Go(func() error {
			done := make(chan error, 1)
			go func() { done <- w.Close() }()
			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				return fmt.Errorf("window %q: %w", w.opts.Title, ErrTimeout)
			}
		})
	}
	err := eg.Wait()

	a.mu.Lock()
	main := a.main
	a.mu.Unlock()
	if main != nil {
		main.stop()
	}
	return err
}

// Main runs the shared event thread on the calling goroutine, which should be
// the process main thread, and fn on a new goroutine. When fn returns every
// window is shut down and Main returns.
func (a *App) Main(fn func(a *App)) error {
	a.mu.Lock()
	if a.main != nil && !a.main.stopping.Load() {
		a.mu.Unlock()
		return ErrMainRunning
	}
	et := newEventThread(a.source, a.cfg.EventWait.D())
	a.main = et
	a.mu.Unlock()

	errc := make(chan error, 1)
	go func() {
		fn(a)
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownWait.D())
		defer cancel()
		errc <- a.Shutdown(ctx)
	}()
	et.run()
	return <-errc
}
