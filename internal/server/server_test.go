package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiwuchat/jiwuchat-shell/internal/config"
	"github.com/jiwuchat/jiwuchat-shell/internal/deeplink"
	"github.com/jiwuchat/jiwuchat-shell/internal/events"
	"github.com/jiwuchat/jiwuchat-shell/internal/middleware"
	"github.com/jiwuchat/jiwuchat-shell/internal/svc"
	"github.com/jiwuchat/jiwuchat-shell/internal/types"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T, variant deeplink.Variant) (*svc.ServiceContext, *httptest.Server) {
	t.Helper()
	c := config.Default()
	c.DeepLink.Variant = string(variant)

	svcCtx, err := svc.NewServiceContext(c, svc.WithVersion("test"))
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(svcCtx, ServerOptions{Quiet: true, InstanceSecret: testSecret}))
	t.Cleanup(func() {
		srv.Close()
		svcCtx.Close()
	})
	return svcCtx, srv
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func postDeepLink(t *testing.T, srv *httptest.Server, body, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/deeplink", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestHealth(t *testing.T) {
	_, srv := newTestServer(t, deeplink.VariantMobile)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	health := decode[types.HealthResponse](t, resp)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "test", health.Version)
	assert.Equal(t, "mobile", health.Variant)
}

func TestCachedCallbackEndpoints(t *testing.T) {
	svcCtx, srv := newTestServer(t, deeplink.VariantMobile)

	resp, err := http.Get(srv.URL + "/api/v1/oauth/callback/cached")
	require.NoError(t, err)
	assert.Nil(t, decode[types.CachedCallbackResponse](t, resp).Callback)

	svcCtx.Cache.Store(deeplink.Parse("jiwuchat://oauth/callback?platform=github&needBind=true&oauthKey=k"))

	resp, err = http.Get(srv.URL + "/api/v1/oauth/callback/cached")
	require.NoError(t, err)
	got := decode[types.CachedCallbackResponse](t, resp).Callback
	require.NotNil(t, got)
	require.NotNil(t, got.OAuthKey)
	assert.Equal(t, "k", *got.OAuthKey)

	resp, err = http.Get(srv.URL + "/api/v1/oauth/callback/cached?take=true")
	require.NoError(t, err)
	assert.NotNil(t, decode[types.CachedCallbackResponse](t, resp).Callback)
	_, ok := svcCtx.Cache.Load()
	assert.False(t, ok, "take should clear the slot")

	svcCtx.Cache.Store(deeplink.Parse("jiwuchat://oauth/callback?bindSuccess=true"))
	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/oauth/callback/cached", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_, ok = svcCtx.Cache.Load()
	assert.False(t, ok)
}

func TestCachedCallbackRejectsOtherLoopbackOrigins(t *testing.T) {
	svcCtx, srv := newTestServer(t, deeplink.VariantMobile)
	svcCtx.Cache.Store(deeplink.Parse("jiwuchat://oauth/callback?token=secret"))

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/oauth/callback/cached", nil)
	req.Header.Set("Origin", "http://localhost:8081")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/v1/oauth/callback/cached", nil)
	req.Header.Set("Origin", svcCtx.Config.App.FrontendURL)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	got := decode[types.CachedCallbackResponse](t, resp).Callback
	require.NotNil(t, got)
	assert.Equal(t, "secret", *got.Token)
}

func TestForwardDeepLinks(t *testing.T) {
	svcCtx, srv := newTestServer(t, deeplink.VariantMobile)

	received := make(chan deeplink.CallbackRecord, 4)
	events.Subscribe(svcCtx.Bus, events.TopicOAuthCallback, func(_ context.Context, rec deeplink.CallbackRecord) error {
		received <- rec
		return nil
	})

	token, err := middleware.IssueInstanceToken(testSecret, "test")
	require.NoError(t, err)

	body := `{"urls":["jiwuchat://oauth/callback?platform=gitee&token=t","jiwuchat://settings","https://x"]}`
	resp := postDeepLink(t, srv, body, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decode[types.OpenDeepLinkResponse](t, resp).Accepted)

	select {
	case rec := <-received:
		require.NotNil(t, rec.Platform)
		assert.Equal(t, "gitee", *rec.Platform)
	case <-time.After(2 * time.Second):
		t.Fatal("callback was not published")
	}

	cached, ok := svcCtx.Cache.Load()
	require.True(t, ok)
	assert.Equal(t, "t", *cached.Token)
}

func TestForwardDeepLinksRequiresToken(t *testing.T) {
	_, srv := newTestServer(t, deeplink.VariantDesktop)
	body := `{"urls":["jiwuchat://oauth/callback?token=t"]}`

	resp := postDeepLink(t, srv, body, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	forged, err := middleware.IssueInstanceToken("wrong", "test")
	require.NoError(t, err)
	resp = postDeepLink(t, srv, body, forged)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestForwardDeepLinksRejectsEmpty(t *testing.T) {
	_, srv := newTestServer(t, deeplink.VariantDesktop)
	token, err := middleware.IssueInstanceToken(testSecret, "test")
	require.NoError(t, err)

	resp := postDeepLink(t, srv, `{"urls":[]}`, token)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postDeepLink(t, srv, `{not json`, token)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRunPicksFreePort(t *testing.T) {
	c := config.Default()
	c.Server.Port = 0

	ctx, cancel := context.WithCancel(context.Background())
	addrCh := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, c, ServerOptions{Quiet: true, OnListen: func(addr string) { addrCh <- addr }})
	}()

	var addr string
	select {
	case addr = <-addrCh:
	case err := <-done:
		t.Fatalf("Run returned early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not start")
	}
	assert.False(t, strings.HasSuffix(addr, ":0"))

	resp, err := http.Get("http://" + addr + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
