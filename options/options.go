package options

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// WindowOptions are the creation flags for one window.
type WindowOptions struct {
	Title     string
	Width     int
	Height    int
	Visible   bool
	Resizable bool

	// EventThread runs the window's native handle on a dedicated event
	// thread while the caller renders. Without it the caller owns both and
	// events are pumped at the start of every frame.
	EventThread bool

	// BroadcastWake sends this window's close wake to every registered
	// window instead of only itself.
	BroadcastWake bool

	// WaitEvents blocks each frame until something wakes the window.
	WaitEvents bool
}

// Fixup fills zero fields with usable defaults.
func (o *WindowOptions) Fixup() {
	if o.Width <= 0 {
		o.Width = 1280
	}
	if o.Height <= 0 {
		o.Height = 720
	}
	if o.Title == "" {
		o.Title = "dualthread"
	}
}

// Config holds process-wide runtime settings.
type Config struct {
	// EventWait bounds each native event wait on an event thread, so posted
	// window tasks are never starved.
	EventWait Duration `toml:"event_wait"`

	// ShutdownWait bounds every wait on the close path.
	ShutdownWait Duration `toml:"shutdown_wait"`

	// SharedEventThread puts every dual-thread window on one event thread.
	// GLFW requires this; the headless source does not.
	SharedEventThread bool `toml:"shared_event_thread"`

	// Debug turns cross-thread protocol violations into panics and enables
	// verbose logging.
	Debug bool `toml:"debug"`

	// DumpOnTeardown logs each window's share-group dump when it closes.
	DumpOnTeardown bool `toml:"dump_on_teardown"`
}

// DefaultConfig returns the settings used when no file is given.
func DefaultConfig() Config {
	return Config{
		EventWait:         Duration(10 * time.Millisecond),
		ShutdownWait:      Duration(2 * time.Second),
		SharedEventThread: true,
	}
}

// LoadConfig reads a TOML file on top of DefaultConfig. Unknown keys are an
// error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.EventWait <= 0 {
		return cfg, fmt.Errorf("config %s: event_wait must be positive", path)
	}
	if cfg.ShutdownWait <= 0 {
		return cfg, fmt.Errorf("config %s: shutdown_wait must be positive", path)
	}
	return cfg, nil
}

// Duration is a time.Duration that reads from TOML strings like "10ms".
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
