package options

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
event_wait = "5ms"
shared_event_thread = false
debug = true
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Millisecond, cfg.EventWait.D())
	assert.Equal(t, DefaultConfig().ShutdownWait, cfg.ShutdownWait)
	assert.False(t, cfg.SharedEventThread)
	assert.True(t, cfg.Debug)
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `event_wiat = "5ms"`))
	assert.Error(t, err)
}

func TestLoadConfigRejectsBadWait(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `event_wait = "0s"`))
	assert.Error(t, err)
}

func TestLoadConfigRejectsZeroShutdownWait(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `shutdown_wait = "0s"`))
	assert.ErrorContains(t, err, "shutdown_wait")

	_, err = LoadConfig(writeConfig(t, `shutdown_wait = "-1s"`))
	assert.Error(t, err)
}

func TestWindowOptionsFixup(t *testing.T) {
	o := WindowOptions{Width: 320}
	o.Fixup()
	assert.Equal(t, 320, o.Width)
	assert.Equal(t, 720, o.Height)
	assert.NotEmpty(t, o.Title)
}
