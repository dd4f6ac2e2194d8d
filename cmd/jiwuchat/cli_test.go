package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiwuchat/jiwuchat-shell/internal/config"
	"github.com/jiwuchat/jiwuchat-shell/internal/deeplink"
	"github.com/jiwuchat/jiwuchat-shell/internal/server"
	"github.com/jiwuchat/jiwuchat-shell/internal/svc"
	"github.com/jiwuchat/jiwuchat-shell/internal/types"
)

func useConfig(t *testing.T, c config.Config) {
	t.Helper()
	prev, prevBase := ServerConfig, baseConfig
	ServerConfig, baseConfig = &c, c
	t.Cleanup(func() { ServerConfig, baseConfig = prev, prevBase })
}

func TestInstanceFileRoundTrip(t *testing.T) {
	dir := t.TempDir()

	_, err := readInstance(dir)
	assert.ErrorIs(t, err, ErrNotRunning)

	info := types.InstanceInfo{PID: 42, Addr: "127.0.0.1:5000", Variant: "mobile", Secret: "s"}
	require.NoError(t, writeInstance(dir, info))

	st, err := os.Stat(instancePath(dir))
	require.NoError(t, err)
	if filepath.Separator == '/' {
		assert.Equal(t, os.FileMode(0600), st.Mode().Perm())
	}

	got, err := readInstance(dir)
	require.NoError(t, err)
	assert.Equal(t, info, got)

	removeInstance(dir, 7)
	_, err = readInstance(dir)
	assert.NoError(t, err, "another pid's file must stay")

	removeInstance(dir, 42)
	_, err = readInstance(dir)
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestForwardURLs(t *testing.T) {
	c := config.Default()
	c.DeepLink.Variant = "mobile"
	svcCtx, err := svc.NewServiceContext(c)
	require.NoError(t, err)
	defer svcCtx.Close()

	const secret = "forward-secret"
	srv := httptest.NewServer(server.NewRouter(svcCtx, server.ServerOptions{Quiet: true, InstanceSecret: secret}))
	defer srv.Close()

	dir := t.TempDir()
	addr := strings.TrimPrefix(srv.URL, "http://")
	require.NoError(t, writeInstance(dir, types.InstanceInfo{PID: 1, Addr: addr, Secret: secret}))

	n, err := forwardURLs(context.Background(), dir, []string{
		"jiwuchat://oauth/callback?platform=github&token=abc",
		"jiwuchat://chat/42",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rec, ok := svcCtx.Cache.Load()
	require.True(t, ok)
	assert.Equal(t, "abc", *rec.Token)

	require.NoError(t, writeInstance(dir, types.InstanceInfo{PID: 1, Addr: addr, Secret: "stale"}))
	_, err = forwardURLs(context.Background(), dir, []string{"jiwuchat://oauth/callback"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestForwardURLsNotRunning(t *testing.T) {
	dir := t.TempDir()
	_, err := forwardURLs(context.Background(), dir, []string{"jiwuchat://oauth/callback"})
	assert.ErrorIs(t, err, ErrNotRunning)

	// Instance file left behind by a crashed shell
	require.NoError(t, writeInstance(dir, types.InstanceInfo{PID: 1, Addr: "127.0.0.1:1", Secret: "s"}))
	_, err = forwardURLs(context.Background(), dir, []string{"jiwuchat://oauth/callback"})
	assert.True(t, errors.Is(err, ErrNotRunning), "got %v", err)
}

func TestLockIsExclusive(t *testing.T) {
	dir := t.TempDir()

	first, err := acquireLock(dir)
	require.NoError(t, err)

	_, err = acquireLock(dir)
	assert.Error(t, err)

	releaseLock(first)
	again, err := acquireLock(dir)
	require.NoError(t, err)
	releaseLock(again)
}

func TestHandOffWithoutURLsFails(t *testing.T) {
	code := handOff(t.TempDir(), nil, errors.New("cannot acquire lock"))
	assert.Equal(t, 1, code)
}

func TestDeepLinkService(t *testing.T) {
	cache := deeplink.NewSlot()
	s := NewDeepLinkService(cache)
	assert.Nil(t, s.CachedCallback())
	assert.Nil(t, s.TakeCachedCallback())

	cache.Store(deeplink.Parse("jiwuchat://oauth/callback?action=bind&bindSuccess=true"))
	got := s.CachedCallback()
	require.NotNil(t, got)
	assert.True(t, *got.BindSuccess)

	require.NotNil(t, s.TakeCachedCallback())
	assert.Nil(t, s.CachedCallback())
}

func TestPrintParsed(t *testing.T) {
	useConfig(t, config.Default())

	var buf bytes.Buffer
	require.NoError(t, printParsed(&buf, "jiwuchat://oauth/callback?platform=github&needBind=true&oauthKey=k"))

	var out struct {
		IsOAuthCallback bool           `json:"isOAuthCallback"`
		Schema          string         `json:"schema"`
		Record          map[string]any `json:"record"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.True(t, out.IsOAuthCallback)
	assert.Equal(t, "rich", out.Schema)
	assert.Equal(t, "github", out.Record["platform"])
	assert.Equal(t, true, out.Record["needBind"])
	assert.Nil(t, out.Record["token"])

	buf.Reset()
	require.NoError(t, printParsed(&buf, "https://example.com"))
	assert.Contains(t, buf.String(), `"isOAuthCallback": false`)
}

func TestParseCommand(t *testing.T) {
	t.Setenv("JIWUCHAT_DATA_DIR", t.TempDir())
	c := config.Default()
	useConfig(t, c)
	t.Cleanup(func() { variantFlag = "" })

	cmd := SetupRootCmd(&c)
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"deeplink", "parse", "jiwuchat://oauth/callback?code=x&state=y", "--variant", "mobile"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), `"schema": "rich"`)
	assert.NotContains(t, buf.String(), `"code"`)
	assert.Equal(t, "mobile", ServerConfig.DeepLink.Variant)
}

func TestPrepareConfigLayers(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("JIWUCHAT_DATA_DIR", dataDir)
	useConfig(t, config.Default())

	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "config.yaml"), []byte("DeepLink:\n  Schema: legacy\n"), 0644))
	override := filepath.Join(t.TempDir(), "override.yaml")
	require.NoError(t, os.WriteFile(override, []byte("DeepLink:\n  StartupDelayMs: 50\n"), 0644))

	prevCfg, prevVariant, prevVerbose := cfgFile, variantFlag, verbose
	t.Cleanup(func() { cfgFile, variantFlag, verbose = prevCfg, prevVariant, prevVerbose })
	cfgFile, variantFlag, verbose = override, "", false

	require.NoError(t, prepareConfig())
	assert.Equal(t, deeplink.SchemaLegacy, ServerConfig.Schema())
	assert.Equal(t, 50, ServerConfig.DeepLink.StartupDelayMs)

	variantFlag = "tablet"
	assert.Error(t, prepareConfig())

	variantFlag = ""
	cfgFile = filepath.Join(t.TempDir(), "missing.yaml")
	assert.Error(t, prepareConfig())
}
