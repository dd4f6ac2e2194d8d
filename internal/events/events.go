// Package events is the shell's in-process event bus. Producers publish to a
// topic; every subscriber of that topic receives the value on the bus loop.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned when publishing to a completed Subject.
var ErrClosed = errors.New("events: subject closed")

// HandlerFunc is the function called when an event is delivered.
type HandlerFunc func(context.Context, any) error

// SubjectOption configures a Subject
type SubjectOption func(*subjectConfig)

type subjectConfig struct {
	bufferSize     int
	syncDelivery   bool
	publishTimeout time.Duration
	handlerTimeout time.Duration
	logger         *slog.Logger
}

// WithBufferSize sets the event channel buffer size
func WithBufferSize(size int) SubjectOption {
	return func(cfg *subjectConfig) {
		cfg.bufferSize = size
	}
}

// WithLogger sets a structured logger for handler errors
func WithLogger(logger *slog.Logger) SubjectOption {
	return func(cfg *subjectConfig) {
		cfg.logger = logger
	}
}

// WithSyncDelivery runs handlers inline on the bus loop, one at a time.
// Use it when handlers must not run concurrently (e.g. WebSocket writes).
func WithSyncDelivery() SubjectOption {
	return func(cfg *subjectConfig) {
		cfg.syncDelivery = true
	}
}

// WithPublishTimeout bounds how long Publish waits for buffer space.
func WithPublishTimeout(d time.Duration) SubjectOption {
	return func(cfg *subjectConfig) {
		cfg.publishTimeout = d
	}
}

type event struct {
	topic   string
	message any
}

// Subscription represents a handler subscribed to a specific topic.
type Subscription struct {
	Topic       string
	ID          string
	Handler     HandlerFunc
	Unsubscribe func()
}

type subscriberMap map[string]map[string]Subscription

// Subject fans published values out to topic subscribers.
type Subject struct {
	subscribers atomic.Pointer[subscriberMap]
	nextSubID   atomic.Int64
	delivered   atomic.Int64

	events   chan event
	shutdown chan struct{}
	closed   atomic.Bool
	// sendMu keeps sends and the shutdown close apart so nothing is queued
	// after the final drain.
	sendMu sync.RWMutex
	wg     sync.WaitGroup

	config subjectConfig
}

// NewSubject creates a Subject and starts its delivery loop.
func NewSubject(opts ...SubjectOption) *Subject {
	cfg := subjectConfig{
		bufferSize:     256,
		publishTimeout: 5 * time.Second,
		handlerTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Subject{
		events:   make(chan event, cfg.bufferSize),
		shutdown: make(chan struct{}),
		config:   cfg,
	}
	empty := make(subscriberMap)
	s.subscribers.Store(&empty)

	s.wg.Add(1)
	go s.loop()
	return s
}

// Emit publishes value to topic.
func Emit[T any](s *Subject, topic string, value T) error {
	return s.Publish(topic, value)
}

// Publish queues value for delivery to topic's subscribers. It fails when the
// subject is closed or the buffer stays full past the publish timeout.
func (s *Subject) Publish(topic string, value any) error {
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.closed.Load() {
		return ErrClosed
	}
	timer := time.NewTimer(s.config.publishTimeout)
	defer timer.Stop()

	select {
	case s.events <- event{topic: topic, message: value}:
		return nil
	case <-s.shutdown:
		return ErrClosed
	case <-timer.C:
		return fmt.Errorf("events: publish %q timed out after %s", topic, s.config.publishTimeout)
	}
}

// Subscribe registers a typed handler for topic. Values of another type are
// reported to the handler-error log and skipped.
func Subscribe[T any](s *Subject, topic string, handler func(context.Context, T) error) Subscription {
	wrapped := HandlerFunc(func(ctx context.Context, data any) error {
		typed, ok := data.(T)
		if !ok {
			return fmt.Errorf("type assertion failed for %T, expected %T", data, *new(T))
		}
		return handler(ctx, typed)
	})

	sub := Subscription{
		Topic:   topic,
		ID:      fmt.Sprintf("%s-%d", topic, s.nextSubID.Add(1)),
		Handler: wrapped,
	}
	s.update(func(m subscriberMap) {
		if m[topic] == nil {
			m[topic] = make(map[string]Subscription)
		}
		m[topic][sub.ID] = sub
	})

	id := sub.ID
	sub.Unsubscribe = func() {
		s.update(func(m subscriberMap) {
			delete(m[topic], id)
			if len(m[topic]) == 0 {
				delete(m, topic)
			}
		})
	}
	return sub
}

// Delivered returns how many events the loop has handed to subscribers.
// With sync delivery the handlers have returned by the time it is counted.
func (s *Subject) Delivered() int64 {
	return s.delivered.Load()
}

// Complete stops the delivery loop. Idempotent; waits at most five seconds.
func Complete(s *Subject) {
	if s == nil || !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.sendMu.Lock()
	close(s.shutdown)
	s.sendMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}
}

func (s *Subject) loop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.shutdown:
			s.drain()
			return
		case evt := <-s.events:
			s.dispatch(evt)
		}
	}
}

// drain delivers whatever was queued before shutdown.
func (s *Subject) drain() {
	for {
		select {
		case evt := <-s.events:
			s.dispatch(evt)
		default:
			return
		}
	}
}

func (s *Subject) dispatch(evt event) {
	subs := s.subscribers.Load()
	for _, sub := range (*subs)[evt.topic] {
		s.deliver(sub, evt)
	}
	s.delivered.Add(1)
}

// update applies fn to a copy of the subscriber map and swaps it in.
func (s *Subject) update(fn func(subscriberMap)) {
	for {
		old := s.subscribers.Load()
		next := make(subscriberMap, len(*old))
		for topic, subs := range *old {
			cp := make(map[string]Subscription, len(subs))
			for id, sub := range subs {
				cp[id] = sub
			}
			next[topic] = cp
		}
		fn(next)
		if s.subscribers.CompareAndSwap(old, &next) {
			return
		}
	}
}

func (s *Subject) deliver(sub Subscription, evt event) {
	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.handlerTimeout)
		defer cancel()
		if err := sub.Handler(ctx, evt.message); err != nil && s.config.logger != nil {
			s.config.logger.Debug("event handler error",
				"topic", evt.topic,
				"subscription_id", sub.ID,
				"error", err)
		}
	}
	if s.config.syncDelivery {
		run()
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		run()
	}()
}
