package deeplink

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Variant selects the timing and caching behaviour of a shell build.
type Variant string

const (
	VariantDesktop Variant = "desktop"
	VariantMobile  Variant = "mobile"
)

// Valid reports whether v names a known variant.
func (v Variant) Valid() bool {
	return v == VariantDesktop || v == VariantMobile
}

// StartupDelay is how long a startup URL waits before it is emitted. The
// webview loads asynchronously, so the frontend may not be listening yet when
// the shell's own setup runs.
func (v Variant) StartupDelay() time.Duration {
	if v == VariantMobile {
		return 200 * time.Millisecond
	}
	return 500 * time.Millisecond
}

// CachesCallbacks reports whether the variant keeps the last record in a Slot.
func (v Variant) CachesCallbacks() bool {
	return v == VariantMobile
}

// Emitter delivers a named event with a payload to the frontend.
type Emitter interface {
	Emit(event string, payload any) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(event string, payload any) error

func (f EmitterFunc) Emit(event string, payload any) error { return f(event, payload) }

// Focuser brings the main window to the front.
type Focuser interface {
	ShowAndFocus()
}

// FocuserFunc adapts a function to Focuser.
type FocuserFunc func()

func (f FocuserFunc) ShowAndFocus() { f() }

// Options configures a Dispatcher.
type Options struct {
	Scheme  string
	Schema  Schema
	Variant Variant

	// StartupDelay overrides the variant's delay when positive.
	StartupDelay time.Duration

	Emitter Emitter
	// Focuser is optional; without it runtime URLs only emit.
	Focuser Focuser
	// Cache is written only when the variant caches callbacks.
	Cache *Slot

	Logger *slog.Logger
}

// Dispatcher filters deep links for the OAuth callback, parses them and emits
// the result. It keeps no state between URLs apart from the optional cache.
type Dispatcher struct {
	scheme  string
	schema  Schema
	variant Variant
	delay   time.Duration
	emitter Emitter
	focuser Focuser
	cache   *Slot
	log     *slog.Logger

	pending sync.WaitGroup
}

// NewDispatcher builds a Dispatcher. An Emitter is required.
func NewDispatcher(opts Options) (*Dispatcher, error) {
	if opts.Emitter == nil {
		return nil, fmt.Errorf("deeplink: emitter is required")
	}
	if opts.Scheme == "" {
		opts.Scheme = DefaultScheme
	}
	if opts.Schema == "" {
		opts.Schema = SchemaRich
	}
	if !opts.Schema.Valid() {
		return nil, fmt.Errorf("deeplink: unknown schema %q", opts.Schema)
	}
	if opts.Variant == "" {
		opts.Variant = VariantDesktop
	}
	if !opts.Variant.Valid() {
		return nil, fmt.Errorf("deeplink: unknown variant %q", opts.Variant)
	}
	delay := opts.StartupDelay
	if delay <= 0 {
		delay = opts.Variant.StartupDelay()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	d := &Dispatcher{
		scheme:  opts.Scheme,
		schema:  opts.Schema,
		variant: opts.Variant,
		delay:   delay,
		emitter: opts.Emitter,
		focuser: opts.Focuser,
		log:     log.With("component", "deeplink"),
	}
	if opts.Variant.CachesCallbacks() {
		d.cache = opts.Cache
	}
	return d, nil
}

// Scheme returns the custom scheme this dispatcher accepts.
func (d *Dispatcher) Scheme() string { return d.scheme }

// Accepts reports whether raw is an OAuth callback for this dispatcher.
func (d *Dispatcher) Accepts(raw string) bool {
	return IsOAuthCallback(d.scheme, raw)
}

// HandleStartupURLs handles the URLs the process was launched with. Each
// qualifying URL is emitted once from its own goroutine after the startup
// delay; this call returns without waiting. There is no ordering between the
// emissions and no way to cancel them.
func (d *Dispatcher) HandleStartupURLs(urls []string) {
	for _, raw := range urls {
		if !d.Accepts(raw) {
			continue
		}
		rec := d.schema.Parse(raw)
		d.remember(rec)

		d.pending.Add(1)
		go func() {
			defer d.pending.Done()
			time.Sleep(d.delay)
			d.emit(rec, "startup")
		}()
	}
}

// HandleRuntimeURL handles a URL delivered to the already running shell. The
// event is emitted on the calling goroutine with no delay, then the main
// window is shown and focused.
func (d *Dispatcher) HandleRuntimeURL(raw string) bool {
	if !d.Accepts(raw) {
		return false
	}
	rec := d.schema.Parse(raw)
	d.remember(rec)
	d.emit(rec, "runtime")
	if d.focuser != nil {
		d.focuser.ShowAndFocus()
	}
	return true
}

// Wait blocks until every delayed startup emission has been attempted.
func (d *Dispatcher) Wait() {
	d.pending.Wait()
}

func (d *Dispatcher) remember(rec CallbackRecord) {
	if d.cache != nil {
		d.cache.Store(rec)
	}
}

func (d *Dispatcher) emit(rec CallbackRecord, path string) {
	if err := d.emitter.Emit(EventOAuthCallback, rec); err != nil {
		d.log.Warn("emit oauth callback failed", "path", path, "platform", deref(rec.Platform), "error", err)
		return
	}
	d.log.Debug("oauth callback emitted", "path", path, "platform", deref(rec.Platform), "action", deref(rec.Action))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
