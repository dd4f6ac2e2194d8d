package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	other := filepath.Join(dir, "other.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Log:\n  Level: info\n"), 0644))

	load := func() (Config, error) {
		c := Default()
		err := c.LoadFile(path)
		return c, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan Config, 4)
	require.NoError(t, Watch(ctx, load, func(c Config) { changed <- c }, path))

	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0644))
	require.NoError(t, os.WriteFile(path, []byte("Log:\n  Level: debug\n"), 0644))

	select {
	case c := <-changed:
		assert.Equal(t, "debug", c.Log.Level)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after write")
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	err := Watch(context.Background(), func() (Config, error) { return Default(), nil }, func(Config) {},
		filepath.Join(t.TempDir(), "nope", "config.yaml"))
	assert.Error(t, err)
}
