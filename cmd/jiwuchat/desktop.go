//go:build desktop

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	goruntime "runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wailsapp/wails/v3/pkg/application"
	wailsevents "github.com/wailsapp/wails/v3/pkg/events"

	"github.com/jiwuchat/jiwuchat-shell/internal/deeplink"
	"github.com/jiwuchat/jiwuchat-shell/internal/defaults"
	"github.com/jiwuchat/jiwuchat-shell/internal/devlog"
	"github.com/jiwuchat/jiwuchat-shell/internal/events"
	"github.com/jiwuchat/jiwuchat-shell/internal/logging"
	"github.com/jiwuchat/jiwuchat-shell/internal/svc"
)

const singleInstanceID = "com.jiwuchat.shell"

// windowState persists the main window position and size between restarts.
// Uses absolute screen coordinates so it restores to the correct monitor.
type windowState struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func windowStatePath(dataDir string) string {
	return filepath.Join(dataDir, "window-state.json")
}

// loadWindowState returns nil when nothing usable was saved.
func loadWindowState(dataDir string, minWidth, minHeight int) *windowState {
	data, err := os.ReadFile(windowStatePath(dataDir))
	if err != nil {
		return nil
	}
	var state windowState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil
	}
	if state.Width < minWidth || state.Height < minHeight {
		return nil
	}
	return &state
}

func saveWindowState(dataDir string, window *application.WebviewWindow) {
	w, h := window.Size()
	// Minimized or not yet visible windows report zero sizes
	if w <= 0 || h <= 0 {
		return
	}
	x, y := window.Position()
	data, err := json.Marshal(windowState{X: x, Y: y, Width: w, Height: h})
	if err != nil {
		return
	}
	_ = os.WriteFile(windowStatePath(dataDir), data, 0644)
}

// windowStateHooks lists the window events that save the window state.
// Windows also gets its platform events: the Common mapping goes through an
// async chain that drops events in the alpha framework.
func windowStateHooks(goos string) (moveResize, closing []wailsevents.WindowEventType) {
	moveResize = []wailsevents.WindowEventType{wailsevents.Common.WindowDidMove, wailsevents.Common.WindowDidResize}
	closing = []wailsevents.WindowEventType{wailsevents.Common.WindowClosing}
	if goos == "windows" {
		moveResize = append(moveResize, wailsevents.Windows.WindowDidMove, wailsevents.Windows.WindowDidResize)
		closing = append(closing, wailsevents.Windows.WindowClosing)
	}
	return moveResize, closing
}

// RunDesktop starts the shell with a native window.
func RunDesktop(args []string) {
	c := *ServerConfig
	startupURLs := deeplink.ExtractURLs(args, c.App.Scheme)

	dataDir, err := defaults.EnsureDataDir()
	if err != nil {
		fmt.Printf("\033[31mError: Failed to initialize data directory: %v\033[0m\n", err)
		os.Exit(1)
	}

	// The window does not exist yet when the first URL can arrive
	var mainWindow atomic.Pointer[application.WebviewWindow]
	focuser := deeplink.FocuserFunc(func() {
		if w := mainWindow.Load(); w != nil {
			devlog.Printf("[Desktop] show and focus main window\n")
			w.Show()
			w.Focus()
		}
	})

	svcCtx, err := svc.NewServiceContext(c,
		svc.WithFocuser(focuser),
		svc.WithDataDir(dataDir),
		svc.WithVersion(AppVersion),
	)
	if err != nil {
		fmt.Printf("\033[31mError: %v\033[0m\n", err)
		os.Exit(1)
	}
	defer svcCtx.Close()

	wailsApp := application.New(application.Options{
		Name:        c.App.Name,
		Description: "JiwuChat desktop shell",
		Services: []application.Service{
			application.NewService(NewDeepLinkService(svcCtx.Cache)),
		},
		Mac: application.MacOptions{
			ApplicationShouldTerminateAfterLastWindowClosed: true,
		},
		Linux: application.LinuxOptions{
			ProgramName: "jiwuchat",
		},
		// A second launch exits right away; its arguments land here.
		SingleInstance: &application.SingleInstanceOptions{
			UniqueID: singleInstanceID,
			OnSecondInstanceLaunch: func(data application.SecondInstanceData) {
				devlog.Printf("[Desktop] second instance launched: %v\n", data.Args)
				handled := false
				for _, u := range deeplink.ExtractURLs(data.Args, c.App.Scheme) {
					if svcCtx.Dispatcher.HandleRuntimeURL(u) {
						handled = true
					}
				}
				if !handled {
					focuser.ShowAndFocus()
				}
			},
		},
		OnShutdown: func() {
			fmt.Println("\n\033[32mJiwuChat stopped.\033[0m")
		},
	})

	// Headless mode may hold the lock even though Wails saw no other window
	lockFile, err := acquireLock(dataDir)
	if err != nil {
		fmt.Printf("\033[31mError: %v\033[0m\n", err)
		fmt.Println("\033[33mJiwuChat is already running in headless mode.\033[0m")
		os.Exit(1)
	}
	defer releaseLock(lockFile)

	// Bus events reach the webview as Wails events of the same name
	events.Subscribe(svcCtx.Bus, events.TopicOAuthCallback, func(_ context.Context, payload any) error {
		wailsApp.Event.Emit(events.TopicOAuthCallback, payload)
		return nil
	})

	winWidth, winHeight := c.Window.Width, c.Window.Height
	saved := loadWindowState(dataDir, c.Window.MinWidth, c.Window.MinHeight)
	if saved != nil {
		winWidth, winHeight = saved.Width, saved.Height
	}

	window := wailsApp.Window.NewWithOptions(application.WebviewWindowOptions{
		Name:      "main",
		Title:     c.App.Name,
		Width:     winWidth,
		Height:    winHeight,
		MinWidth:  c.Window.MinWidth,
		MinHeight: c.Window.MinHeight,
		URL:       c.App.FrontendURL,
	})
	mainWindow.Store(window)

	// Gate saves until after restore is complete so initial placement doesn't overwrite saved state
	var stateRestored atomic.Bool
	restoreDelay := 200 * time.Millisecond
	if goruntime.GOOS == "windows" {
		restoreDelay = 500 * time.Millisecond
	}
	if saved != nil {
		go func() {
			time.Sleep(restoreDelay)
			window.SetPosition(saved.X, saved.Y)
			stateRestored.Store(true)
		}()
	} else {
		stateRestored.Store(true)
	}
	saveMoveResize := func(*application.WindowEvent) {
		if stateRestored.Load() {
			saveWindowState(dataDir, window)
		}
	}
	var stateSaved atomic.Bool
	saveOnClose := func(*application.WindowEvent) {
		if stateSaved.CompareAndSwap(false, true) {
			saveWindowState(dataDir, window)
		}
	}
	moveResize, closing := windowStateHooks(goruntime.GOOS)
	for _, ev := range moveResize {
		window.RegisterHook(ev, saveMoveResize)
	}
	for _, ev := range closing {
		window.RegisterHook(ev, saveOnClose)
	}

	// Startup URLs are delayed from here: the webview starts loading now.
	router := deeplink.NewLaunchRouter(svcCtx.Dispatcher)
	wailsApp.Event.OnApplicationEvent(wailsevents.Common.ApplicationStarted, func(*application.ApplicationEvent) {
		devlog.Printf("[Desktop] application started, %d startup url(s)\n", len(startupURLs))
		router.Start(startupURLs)
	})
	// macOS delivers URLs as events, both the launching one and those sent
	// to the running app.
	wailsApp.Event.OnApplicationEvent(wailsevents.Common.ApplicationLaunchedWithUrl, func(e *application.ApplicationEvent) {
		u := e.Context().URL()
		devlog.Printf("[Desktop] opened with url %s\n", u)
		router.Open(u)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registerOnStartup(c)
	watchConfig(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := serveAPI(ctx, c, svcCtx, dataDir, true, func(addr string) {
			devlog.Printf("[Desktop] local API at %s\n", addr)
		})
		if err != nil {
			// The window works without the local API; only forwarding and /ws are lost
			logging.Warnf("[Desktop] local API stopped: %v", err)
		}
	}()

	// Run Wails event loop on main thread (blocks until app.Quit()).
	if err := wailsApp.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Desktop error: %v\n", err)
	}

	cancel()
	wg.Wait()
}
