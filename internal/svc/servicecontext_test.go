package svc

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiwuchat/jiwuchat-shell/internal/config"
	"github.com/jiwuchat/jiwuchat-shell/internal/deeplink"
	"github.com/jiwuchat/jiwuchat-shell/internal/events"
)

func TestNewServiceContextRejectsBadConfig(t *testing.T) {
	c := config.Default()
	c.DeepLink.Schema = "mixed"
	_, err := NewServiceContext(c)
	assert.Error(t, err)
}

func TestStartupURLReachesBus(t *testing.T) {
	c := config.Default()
	c.DeepLink.StartupDelayMs = 10
	svcCtx, err := NewServiceContext(c, WithVersion("v1"), WithDataDir(t.TempDir()))
	require.NoError(t, err)
	defer svcCtx.Close()
	assert.Equal(t, "v1", svcCtx.Version)

	got := make(chan deeplink.CallbackRecord, 1)
	events.Subscribe(svcCtx.Bus, events.TopicOAuthCallback, func(_ context.Context, rec deeplink.CallbackRecord) error {
		got <- rec
		return nil
	})

	svcCtx.Dispatcher.HandleStartupURLs([]string{"jiwuchat://oauth/callback?platform=github&action=login"})
	select {
	case rec := <-got:
		assert.Equal(t, "login", *rec.Action)
	case <-time.After(2 * time.Second):
		t.Fatal("no callback on the bus")
	}

	_, cached := svcCtx.Cache.Load()
	assert.False(t, cached, "desktop variant does not cache")
}

func TestRuntimeURLUsesFocuser(t *testing.T) {
	var focused atomic.Int32
	svcCtx, err := NewServiceContext(config.Default(), WithFocuser(deeplink.FocuserFunc(func() { focused.Add(1) })))
	require.NoError(t, err)
	defer svcCtx.Close()

	assert.True(t, svcCtx.Dispatcher.HandleRuntimeURL("jiwuchat://oauth/callback?bindSuccess=true"))
	assert.False(t, svcCtx.Dispatcher.HandleRuntimeURL("jiwuchat://other"))
	assert.Equal(t, int32(1), focused.Load())
}

func TestRuntimeURLWithoutWindowPublishesFocusHint(t *testing.T) {
	c := config.Default()
	c.DeepLink.Variant = "mobile"
	svcCtx, err := NewServiceContext(c)
	require.NoError(t, err)
	defer svcCtx.Close()

	hint := make(chan struct{}, 1)
	events.Subscribe(svcCtx.Bus, events.TopicWindowFocus, func(context.Context, map[string]any) error {
		hint <- struct{}{}
		return nil
	})

	svcCtx.Dispatcher.HandleRuntimeURL("jiwuchat://oauth/callback?token=x")
	select {
	case <-hint:
	case <-time.After(2 * time.Second):
		t.Fatal("no window-focus hint")
	}
	rec, ok := svcCtx.Cache.Load()
	require.True(t, ok)
	assert.Equal(t, "x", *rec.Token)
}
