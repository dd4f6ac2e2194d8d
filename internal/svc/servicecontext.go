package svc

import (
	"context"
	"errors"
	"fmt"

	"github.com/jiwuchat/jiwuchat-shell/internal/config"
	"github.com/jiwuchat/jiwuchat-shell/internal/deeplink"
	"github.com/jiwuchat/jiwuchat-shell/internal/events"
	"github.com/jiwuchat/jiwuchat-shell/internal/logging"
	"github.com/jiwuchat/jiwuchat-shell/internal/realtime"
)

// ServiceContext wires the deep-link pipeline: the dispatcher publishes onto
// the bus, and the bus feeds every frontend transport.
type ServiceContext struct {
	Config  config.Config
	DataDir string
	Version string

	Bus        *events.Subject
	Cache      *deeplink.Slot
	Hub        *realtime.Hub
	Dispatcher *deeplink.Dispatcher
}

// Option customises NewServiceContext.
type Option func(*options)

type options struct {
	focuser deeplink.Focuser
	dataDir string
	version string
	busOpts []events.SubjectOption
}

// WithFocuser sets how the main window is raised on a runtime URL. Without
// one the shell publishes TopicWindowFocus for browser frontends.
func WithFocuser(f deeplink.Focuser) Option {
	return func(o *options) { o.focuser = f }
}

func WithDataDir(dir string) Option {
	return func(o *options) { o.dataDir = dir }
}

func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// WithBusOptions passes options through to the event bus.
func WithBusOptions(opts ...events.SubjectOption) Option {
	return func(o *options) { o.busOpts = append(o.busOpts, opts...) }
}

func NewServiceContext(c config.Config, opts ...Option) (*ServiceContext, error) {
	o := options{version: "dev"}
	for _, opt := range opts {
		opt(&o)
	}

	bus := events.NewSubject(append([]events.SubjectOption{events.WithLogger(logging.Slog())}, o.busOpts...)...)
	svcCtx := &ServiceContext{
		Config:  c,
		DataDir: o.dataDir,
		Version: o.version,
		Bus:     bus,
		Cache:   deeplink.NewSlot(),
		Hub:     realtime.NewHub(),
	}

	focuser := o.focuser
	if focuser == nil {
		focuser = deeplink.FocuserFunc(func() {
			if err := bus.Publish(events.TopicWindowFocus, map[string]any{}); err != nil {
				logging.Debugf("[svc] window focus hint: %v", err)
			}
		})
	}

	d, err := deeplink.NewDispatcher(deeplink.Options{
		Scheme:       c.App.Scheme,
		Schema:       c.Schema(),
		Variant:      c.Variant(),
		StartupDelay: c.StartupDelay(),
		Emitter:      BusEmitter(bus),
		Focuser:      focuser,
		Cache:        svcCtx.Cache,
		Logger:       logging.Slog(),
	})
	if err != nil {
		events.Complete(bus)
		return nil, fmt.Errorf("create dispatcher: %w", err)
	}
	svcCtx.Dispatcher = d

	realtime.RegisterCallbackHandler(svcCtx.Hub, svcCtx.Cache)
	for _, topic := range events.Frontend() {
		events.Subscribe(bus, topic, hubBridge(svcCtx.Hub, topic))
	}
	return svcCtx, nil
}

// BusEmitter adapts the bus to the dispatcher's Emitter.
func BusEmitter(bus *events.Subject) deeplink.Emitter {
	return deeplink.EmitterFunc(func(event string, payload any) error {
		return bus.Publish(event, payload)
	})
}

// hubBridge forwards a bus topic to WebSocket clients under the same name.
func hubBridge(hub *realtime.Hub, topic string) func(context.Context, any) error {
	return func(_ context.Context, payload any) error {
		err := hub.Broadcast(&realtime.Message{Type: topic, Data: payload})
		if errors.Is(err, realtime.ErrNoClients) && topic == events.TopicOAuthCallback {
			logging.Warnf("[svc] %s not delivered: no frontend connected", topic)
		}
		return err
	}
}

// Close stops the bus once pending startup emissions have been attempted.
// Events already queued are still delivered.
func (s *ServiceContext) Close() {
	s.Dispatcher.Wait()
	events.Complete(s.Bus)
}
