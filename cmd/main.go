package main

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"sync"

	"github.com/richinsley/dualthread/glfwcontext"
	"github.com/richinsley/dualthread/options"
	"github.com/richinsley/dualthread/rendertarget"
	"github.com/richinsley/dualthread/window"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML file with runtime settings",
	}
	windowsFlag = &cli.IntFlag{
		Name:  "windows",
		Usage: "Number of windows to open",
		Value: 2,
	}
	widthFlag = &cli.IntFlag{
		Name:  "width",
		Usage: "Window width",
		Value: 640,
	}
	heightFlag = &cli.IntFlag{
		Name:  "height",
		Usage: "Window height",
		Value: 360,
	}
	framesFlag = &cli.IntFlag{
		Name:  "frames",
		Usage: "Close the primary window after this many frames (0 runs until closed)",
	}
	waitFlag = &cli.BoolFlag{
		Name:  "wait-events",
		Usage: "Only redraw secondary windows when something happens",
	}
	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Panic on cross-thread violations and log verbosely",
	}
	dumpFlag = &cli.BoolFlag{
		Name:  "dump",
		Usage: "Log each window's share group when it closes",
	}
)

func init() {
	runtime.LockOSThread()
}

func main() {
	app := &cli.App{
		Name:  "dualthread",
		Usage: "Open several GLFW windows rendering from their own threads",
		Flags: []cli.Flag{
			configFlag,
			windowsFlag,
			widthFlag,
			heightFlag,
			framesFlag,
			waitFlag,
			debugFlag,
			dumpFlag,
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx *cli.Context) error {
	cfg := options.DefaultConfig()
	if path := ctx.String(configFlag.Name); path != "" {
		var err error
		if cfg, err = options.LoadConfig(path); err != nil {
			return err
		}
	}
	if ctx.IsSet(debugFlag.Name) {
		cfg.Debug = ctx.Bool(debugFlag.Name)
	}
	if ctx.Bool(dumpFlag.Name) {
		cfg.DumpOnTeardown = true
	}
	// GLFW only pumps events on the main thread
	cfg.SharedEventThread = true

	src, err := glfwcontext.NewSource()
	if err != nil {
		return err
	}
	defer src.Terminate()

	app := window.NewApp(src, glfwcontext.GL{}, cfg)
	var demoErr error
	err = app.Main(func(a *window.App) {
		demoErr = demo(a, ctx)
	})
	if demoErr != nil {
		return demoErr
	}
	return err
}

// demo opens the windows and renders each from its own goroutine. The
// primary window owns a render target that every other window draws into.
func demo(a *window.App, ctx *cli.Context) error {
	n := ctx.Int(windowsFlag.Name)
	if n < 1 {
		n = 1
	}
	var primary *window.Window
	wins := make([]*window.Window, 0, n)
	for i := 0; i < n; i++ {
		opts := &options.WindowOptions{
			Title:       fmt.Sprintf("dualthread %d", i),
			Width:       ctx.Int(widthFlag.Name),
			Height:      ctx.Int(heightFlag.Name),
			Visible:     true,
			Resizable:   true,
			EventThread: true,
			WaitEvents:  i > 0 && ctx.Bool(waitFlag.Name),
		}
		w, err := a.Open(opts, primary)
		if err != nil {
			return err
		}
		if primary == nil {
			primary = w
		}
		if err := w.SetPos(80+i*40, 80+i*40); err != nil {
			log.Printf("window %d: %v", i, err)
		}
		wins = append(wins, w)
	}

	var (
		target *rendertarget.Target
		ready  = make(chan struct{})
		once   sync.Once
	)
	publish := func(t *rendertarget.Target) {
		once.Do(func() {
			target = t
			close(ready)
		})
	}

	var eg errgroup.Group
	for i, w := range wins {
		i, w := i, w
		eg.Go(func() error {
			w.BeginFrame()
			if err := glfwcontext.InitGL(); err != nil {
				publish(nil)
				if cerr := w.Close(); cerr != nil {
					log.Printf("window %d: %v", i, cerr)
				}
				return err
			}

			var own *rendertarget.Target
			if w == primary {
				t, err := rendertarget.New(glfwcontext.GL{}, w.GPU(), 256, 256)
				if err != nil {
					log.Printf("render target: %v", err)
				}
				publish(t)
				own = t
			} else {
				<-ready
				if target != nil && target.Retain() == nil {
					own = target
				}
			}
			return render(w, i, own, ctx.Int(framesFlag.Name))
		})
	}
	err := eg.Wait()

	if target != nil {
		fmt.Println(target.Group().Dump())
	}
	return err
}

// render runs the frame loop. The first BeginFrame already happened.
func render(w *window.Window, index int, target *rendertarget.Target, frames int) error {
	shade := float32(index+1) / 8
	for frame := 0; !w.ShouldClose(); frame++ {
		if target != nil {
			glfwcontext.BindFramebuffer(target.WriteFramebuffer())
			glfwcontext.Viewport(target.Size().X, target.Size().Y)
			glfwcontext.Clear(shade, 0, float32(frame%60)/60)
			target.Swap()
			glfwcontext.BindFramebuffer(0)
		}
		st := w.State()
		glfwcontext.Viewport(st.FramebufferSize.X, st.FramebufferSize.Y)
		glfwcontext.Clear(shade, 0.2, 0.3)
		w.EndFrame()

		if frames > 0 && frame+1 >= frames && w.IsPrimary() {
			w.RequestClose()
		}
		w.BeginFrame()
	}
	if target != nil {
		target.Release()
	}
	return w.Close()
}
