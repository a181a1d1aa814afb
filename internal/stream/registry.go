package stream

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"webhook-tester/internal/webhook"
)

const (
	DefaultSendTimeout = time.Second
	DefaultBufferSize  = 16
	idLength           = 12
)

// Metrics receives per-delivery outcomes of a broadcast.
type Metrics interface {
	FrameDelivered()
	FrameFailed()
}

type noopMetrics struct{}

func (noopMetrics) FrameDelivered() {}
func (noopMetrics) FrameFailed()    {}

// Option configures a Registry.
type Option func(*Registry)

// WithSendTimeout bounds each delivery attempt to a single subscriber.
func WithSendTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.sendTimeout = d
		}
	}
}

// WithBufferSize sets the frame buffer of channel-backed subscribers.
func WithBufferSize(n int) Option {
	return func(r *Registry) {
		if n >= 0 {
			r.bufferSize = n
		}
	}
}

func WithLogger(logger *zerolog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(r *Registry) {
		if m != nil {
			r.metrics = m
		}
	}
}

// Registry is the set of live subscribers. Membership changes take the write
// lock; a broadcast works on a copy of the membership taken under the read
// lock.
type Registry struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	sendTimeout time.Duration
	bufferSize  int
	logger      *zerolog.Logger
	metrics     Metrics
}

func NewRegistry(opts ...Option) *Registry {
	nop := zerolog.Nop()
	r := &Registry{
		subscribers: make(map[string]*Subscriber),
		sendTimeout: DefaultSendTimeout,
		bufferSize:  DefaultBufferSize,
		logger:      &nop,
		metrics:     noopMetrics{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe registers a channel-backed subscriber. Read its frames from
// Frames until Done is closed.
func (r *Registry) Subscribe() *Subscriber {
	sink := newChanSink(r.bufferSize)
	return r.add(sink, sink.ch)
}

// SubscribeSink registers a subscriber delivering to sink.
func (r *Registry) SubscribeSink(sink Sink) *Subscriber {
	return r.add(sink, nil)
}

func (r *Registry) add(sink Sink, frames <-chan []byte) *Subscriber {
	r.mu.Lock()
	id := r.newID()
	sub := &Subscriber{
		id:     id,
		sink:   sink,
		frames: frames,
		done:   make(chan struct{}),
	}
	r.subscribers[id] = sub
	total := len(r.subscribers)
	r.mu.Unlock()

	r.logger.Info().
		Str("subscriber_id", id).
		Int("total_subscribers", total).
		Msg("Subscriber connected")
	return sub
}

// newID must be called with r.mu held.
func (r *Registry) newID() string {
	for {
		id, err := gonanoid.New(idLength)
		if err != nil {
			id = uuid.NewString()
		}
		if _, taken := r.subscribers[id]; !taken {
			return id
		}
	}
}

// Unsubscribe removes the subscriber with the given id. Unknown ids are ignored.
func (r *Registry) Unsubscribe(id string) {
	r.mu.Lock()
	sub, ok := r.subscribers[id]
	if ok {
		delete(r.subscribers, id)
	}
	total := len(r.subscribers)
	r.mu.Unlock()
	if !ok {
		return
	}

	sub.close()
	r.logger.Info().
		Str("subscriber_id", id).
		Int("total_subscribers", total).
		Msg("Subscriber disconnected")
}

// Broadcast delivers event to every current subscriber. Deliveries run
// concurrently, each bounded by the send timeout; subscribers whose sink
// fails are removed once all deliveries have finished.
func (r *Registry) Broadcast(event webhook.Event) {
	frame, err := EncodeFrame(event)
	if err != nil {
		r.logger.Error().Err(err).Str("event_id", event.ID).Msg("Failed to encode event frame")
		return
	}

	r.mu.RLock()
	subs := make([]*Subscriber, 0, len(r.subscribers))
	for _, s := range r.subscribers {
		subs = append(subs, s)
	}
	r.mu.RUnlock()
	if len(subs) == 0 {
		return
	}

	var (
		failedMu sync.Mutex
		failed   []string
		g        errgroup.Group
	)
	for _, sub := range subs {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), r.sendTimeout)
			defer cancel()
			if err := sub.sink.Write(ctx, frame); err != nil {
				r.metrics.FrameFailed()
				r.logger.Debug().
					Err(err).
					Str("subscriber_id", sub.id).
					Str("event_id", event.ID).
					Msg("Delivery failed, dropping subscriber")
				failedMu.Lock()
				failed = append(failed, sub.id)
				failedMu.Unlock()
				return nil
			}
			r.metrics.FrameDelivered()
			return nil
		})
	}
	_ = g.Wait()

	for _, id := range failed {
		r.Unsubscribe(id)
	}

	r.logger.Debug().
		Str("event_id", event.ID).
		Int("subscribers", len(subs)).
		Int("failed", len(failed)).
		Msg("Event broadcast")
}

// Count returns the number of active subscribers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers)
}

// Has reports whether id is an active subscriber.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.subscribers[id]
	return ok
}

// Close removes every subscriber, closing their sinks.
func (r *Registry) Close() {
	r.mu.Lock()
	subs := r.subscribers
	r.subscribers = make(map[string]*Subscriber)
	r.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
	r.logger.Info().Int("closed_subscribers", len(subs)).Msg("Subscriber registry shut down")
}
