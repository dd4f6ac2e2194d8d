package middleware

import (
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/jiwuchat/jiwuchat-shell/internal/httputil"
)

// IsLocalhostOrigin reports whether origin points at a loopback host or the
// embedded webview.
func IsLocalhostOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if isWebviewOrigin(origin) {
		return true
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// OriginSet holds extra origins accepted besides loopback ones.
type OriginSet map[string]bool

// NewOriginSet normalises each URL to scheme://host.
func NewOriginSet(urls ...string) OriginSet {
	s := make(OriginSet, len(urls))
	for _, raw := range urls {
		if u, err := url.Parse(raw); err == nil && u.Host != "" {
			s[u.Scheme+"://"+u.Host] = true
		}
	}
	return s
}

// Allows reports whether a request with this Origin header may be served.
// An empty origin is a same-origin or non-browser request.
func (s OriginSet) Allows(origin string) bool {
	if origin == "" || IsLocalhostOrigin(origin) {
		return true
	}
	return s.has(origin)
}

// AllowsExact is the check for routes that hand out callback tokens. Only
// the webview and the configured origins pass; other loopback ports do not.
func (s OriginSet) AllowsExact(origin string) bool {
	return origin == "" || isWebviewOrigin(origin) || s.has(origin)
}

func (s OriginSet) has(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return s[u.Scheme+"://"+u.Host]
}

// isWebviewOrigin matches the Wails asset origins (wails://localhost on
// macOS and Linux, http://wails.localhost on Windows).
func isWebviewOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Scheme == "wails" || strings.EqualFold(u.Hostname(), "wails.localhost")
}

// TrustedOrigin rejects browser requests whose Origin fails AllowsExact.
func TrustedOrigin(allowed OriginSet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowed.AllowsExact(r.Header.Get("Origin")) {
				httputil.ErrorWithCode(w, http.StatusForbidden, "origin not allowed")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORS answers preflights and sets CORS headers for allowed origins only.
func CORS(allowed OriginSet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && allowed.Allows(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
