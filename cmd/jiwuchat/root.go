package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jiwuchat/jiwuchat-shell/internal/config"
	"github.com/jiwuchat/jiwuchat-shell/internal/deeplink"
	"github.com/jiwuchat/jiwuchat-shell/internal/defaults"
	"github.com/jiwuchat/jiwuchat-shell/internal/logging"
	"github.com/jiwuchat/jiwuchat-shell/internal/middleware"
	"github.com/jiwuchat/jiwuchat-shell/internal/server"
	"github.com/jiwuchat/jiwuchat-shell/internal/svc"
	"github.com/jiwuchat/jiwuchat-shell/internal/types"
)

// ServeCmd creates the serve command (headless shell)
func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve [url...]",
		Short: "Run the shell without a native window",
		Long: `Run the local HTTP/WebSocket API without a native window. A browser
frontend connects to /ws and receives oauth-callback messages; it can also pull
the cached callback from /api/v1/oauth/callback/cached.

Headless mode uses the mobile variant unless one is configured.`,
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(RunHeadless(args))
		},
	}
}

// RunHeadless runs the shell until SIGINT/SIGTERM and returns the exit code.
// A second invocation hands its deep links to the running one.
func RunHeadless(args []string) int {
	c := *ServerConfig
	if c.DeepLink.Variant == "" {
		c.DeepLink.Variant = string(deeplink.VariantMobile)
	}
	urls := deeplink.ExtractURLs(args, c.App.Scheme)

	dataDir, err := defaults.EnsureDataDir()
	if err != nil {
		fmt.Printf("\033[31mError: Failed to initialize data directory: %v\033[0m\n", err)
		return 1
	}

	// Enforce single instance with lock file
	lockFile, err := acquireLock(dataDir)
	if err != nil {
		return handOff(dataDir, urls, err)
	}
	defer releaseLock(lockFile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\n\033[33mReceived signal: %v - Shutting down...\033[0m\n", sig)
		cancel()
	}()

	svcCtx, err := svc.NewServiceContext(c, svc.WithDataDir(dataDir), svc.WithVersion(AppVersion))
	if err != nil {
		fmt.Printf("\033[31mError: %v\033[0m\n", err)
		return 1
	}
	defer svcCtx.Close()

	registerOnStartup(c)
	watchConfig(ctx)

	err = serveAPI(ctx, c, svcCtx, dataDir, !verbose, func(addr string) {
		svcCtx.Dispatcher.HandleStartupURLs(urls)
		printStartupBanner(addr, dataDir, c.Variant())
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError: %v\033[0m\n", err)
		return 1
	}
	fmt.Println("\n\033[32mJiwuChat stopped.\033[0m")
	return 0
}

// serveAPI runs the local API until ctx is done. While it runs the instance
// file tells other processes where to forward deep links.
func serveAPI(ctx context.Context, c config.Config, svcCtx *svc.ServiceContext, dataDir string, quiet bool, onReady func(addr string)) error {
	secret, err := middleware.NewInstanceSecret()
	if err != nil {
		return err
	}
	pid := os.Getpid()
	defer removeInstance(dataDir, pid)

	return server.Run(ctx, c, server.ServerOptions{
		SvcCtx:         svcCtx,
		Quiet:          quiet,
		InstanceSecret: secret,
		OnListen: func(addr string) {
			info := types.InstanceInfo{
				PID:       pid,
				Addr:      addr,
				Variant:   string(c.Variant()),
				StartedAt: time.Now().UTC().Format(time.RFC3339),
				Secret:    secret,
			}
			if err := writeInstance(dataDir, info); err != nil {
				logging.Warnf("[shell] %v; deep links from other processes will not arrive", err)
			}
			if onReady != nil {
				onReady(addr)
			}
		},
	})
}

// handOff runs in a second process: deep links go to the running instance,
// anything else is refused.
func handOff(dataDir string, urls []string, lockErr error) int {
	if len(urls) > 0 {
		n, err := forwardURLs(context.Background(), dataDir, urls)
		if err == nil {
			fmt.Printf("Handed %d link(s) to the running JiwuChat (%d OAuth callback(s))\n", len(urls), n)
			return 0
		}
		fmt.Printf("\033[31mError: %v\033[0m\n", err)
	}
	fmt.Printf("\033[31mError: %v\033[0m\n", lockErr)
	fmt.Println("\033[33mJiwuChat is already running. Only one instance allowed per user.\033[0m")
	return 1
}

// registerOnStartup registers the URL scheme with the OS. Failures are
// logged; the shell still runs.
func registerOnStartup(c config.Config) {
	if !c.IsRegisterOnStartup() {
		return
	}
	err := deeplink.Register(deeplink.Registration{Scheme: c.App.Scheme, AppName: c.App.Name})
	switch {
	case errors.Is(err, deeplink.ErrRegisterUnsupported):
		logging.Debugf("[shell] scheme registration: %v", err)
	case err != nil:
		logging.Warnf("[shell] failed to register %s:// handler: %v", c.App.Scheme, err)
	default:
		logging.Infof("[shell] registered %s:// handler", c.App.Scheme)
	}
}

// watchConfig applies log level changes from the config files without a
// restart.
func watchConfig(ctx context.Context) {
	files := configFiles()
	if len(files) == 0 {
		return
	}
	onChange := func(c config.Config) {
		if verbose {
			return
		}
		logging.SetLevel(c.Log.Level)
	}
	if err := config.Watch(ctx, loadLayeredConfig, onChange, files...); err != nil {
		logging.Debugf("[shell] config watch disabled: %v", err)
	}
}

// printStartupBanner prints a clean, clickable startup message
func printStartupBanner(addr, dataDir string, variant deeplink.Variant) {
	fmt.Println()
	fmt.Println("  \033[1;32mJiwuChat shell is running\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1;36m→\033[0m API:       \033[4;34mhttp://%s\033[0m\n", addr)
	fmt.Printf("  \033[1;36m→\033[0m WebSocket: \033[4;34mws://%s/ws\033[0m\n", addr)
	fmt.Printf("  \033[2mVariant: %s  Data: %s\033[0m\n", variant, dataDir)
	fmt.Println()
	fmt.Println("  \033[2mPress Ctrl+C to stop\033[0m")
	fmt.Println()
}
