package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/jiwuchat/jiwuchat-shell/internal/config"
	"github.com/jiwuchat/jiwuchat-shell/internal/handler"
	"github.com/jiwuchat/jiwuchat-shell/internal/handler/deeplink"
	"github.com/jiwuchat/jiwuchat-shell/internal/logging"
	"github.com/jiwuchat/jiwuchat-shell/internal/middleware"
	"github.com/jiwuchat/jiwuchat-shell/internal/svc"
	"github.com/jiwuchat/jiwuchat-shell/internal/websocket"
)

// ServerOptions holds optional dependencies for the server
type ServerOptions struct {
	SvcCtx *svc.ServiceContext // Pre-initialized service context
	Quiet  bool                // Suppress request logging and startup lines

	// InstanceSecret signs tokens for POST /api/v1/deeplink. A random one is
	// generated when empty.
	InstanceSecret string

	// OnListen is called with the bound address once the listener is up.
	OnListen func(addr string)
}

// Run starts the local API with the given configuration.
// It blocks until the context is cancelled or the server fails.
func Run(ctx context.Context, c config.Config, opts ...ServerOptions) error {
	var o ServerOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	return run(ctx, c, o)
}

func run(ctx context.Context, c config.Config, opts ServerOptions) error {
	svcCtx := opts.SvcCtx
	if svcCtx == nil {
		var err error
		svcCtx, err = svc.NewServiceContext(c)
		if err != nil {
			return err
		}
		defer svcCtx.Close()
	}
	if opts.InstanceSecret == "" {
		secret, err := middleware.NewInstanceSecret()
		if err != nil {
			return err
		}
		opts.InstanceSecret = secret
	}

	ln, err := net.Listen("tcp", c.ServerAddr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", c.ServerAddr(), err)
	}
	addr := ln.Addr().String()

	go svcCtx.Hub.Run(ctx)

	// ReadTimeout/WriteTimeout are omitted: they set deadlines on the net.Conn
	// and would cut hijacked WebSocket connections.
	httpServer := &http.Server{
		Handler:     NewRouter(svcCtx, opts),
		IdleTimeout: 120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Serve(ln)
	}()

	if !opts.Quiet {
		fmt.Printf("Server ready at http://%s\n", addr)
	}
	logging.Infof("[server] listening on %s", addr)
	if opts.OnListen != nil {
		opts.OnListen(addr)
	}

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logging.Info("[server] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// NewRouter builds the chi router for the local API.
func NewRouter(svcCtx *svc.ServiceContext, opts ServerOptions) http.Handler {
	origins := middleware.NewOriginSet(svcCtx.Config.App.FrontendURL)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if !opts.Quiet {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(origins))

	r.Get("/health", handler.HealthCheckHandler(svcCtx))
	r.Get("/ws", websocket.Handler(svcCtx.Hub, origins))

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.TrustedOrigin(origins))
			r.Get("/oauth/callback/cached", deeplink.GetCachedCallbackHandler(svcCtx))
			r.Delete("/oauth/callback/cached", deeplink.ClearCachedCallbackHandler(svcCtx))
		})

		// Forwarding from another process on this machine
		r.Group(func(r chi.Router) {
			r.Use(middleware.InstanceAuth(opts.InstanceSecret))
			r.Post("/deeplink", deeplink.OpenDeepLinkHandler(svcCtx))
		})
	})
	return r
}
