//go:build desktop

package cli

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	wailsevents "github.com/wailsapp/wails/v3/pkg/events"
)

func TestWindowStateHooks(t *testing.T) {
	moveResize, closing := windowStateHooks("darwin")
	assert.Equal(t, []wailsevents.WindowEventType{wailsevents.Common.WindowDidMove, wailsevents.Common.WindowDidResize}, moveResize)
	assert.Equal(t, []wailsevents.WindowEventType{wailsevents.Common.WindowClosing}, closing)

	moveResize, closing = windowStateHooks("windows")
	assert.Contains(t, moveResize, wailsevents.Windows.WindowDidMove)
	assert.Contains(t, moveResize, wailsevents.Windows.WindowDidResize)
	assert.Contains(t, moveResize, wailsevents.Common.WindowDidMove)
	assert.Contains(t, closing, wailsevents.Windows.WindowClosing)
	assert.Contains(t, closing, wailsevents.Common.WindowClosing)
}

func TestLoadWindowState(t *testing.T) {
	dir := t.TempDir()
	assert.Nil(t, loadWindowState(dir, 400, 300))

	require.NoError(t, os.WriteFile(windowStatePath(dir), []byte(`{"x":10,"y":20,"width":800,"height":600}`), 0644))
	assert.Equal(t, &windowState{X: 10, Y: 20, Width: 800, Height: 600}, loadWindowState(dir, 400, 300))
	assert.Nil(t, loadWindowState(dir, 1024, 300), "smaller than the minimum size")
}
