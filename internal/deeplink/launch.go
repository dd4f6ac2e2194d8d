package deeplink

import "sync/atomic"

// LaunchRouter routes URLs the platform reports as "opened" to the startup
// or runtime path. macOS uses one application event both for the URL that
// launched the app and for URLs sent to it later, so the only distinction is
// whether the app has finished starting.
type LaunchRouter struct {
	d       *Dispatcher
	started atomic.Bool
}

// NewLaunchRouter wraps d.
func NewLaunchRouter(d *Dispatcher) *LaunchRouter {
	return &LaunchRouter{d: d}
}

// Start marks the app as running and handles its command-line URLs as
// startup URLs.
func (r *LaunchRouter) Start(urls []string) {
	r.started.Store(true)
	r.d.HandleStartupURLs(urls)
}

// Open handles one opened URL. Before Start it is a startup URL, after it a
// runtime URL (immediate emit, window focus).
func (r *LaunchRouter) Open(raw string) bool {
	if r.started.Load() {
		return r.d.HandleRuntimeURL(raw)
	}
	if !r.d.Accepts(raw) {
		return false
	}
	r.d.HandleStartupURLs([]string{raw})
	return true
}
