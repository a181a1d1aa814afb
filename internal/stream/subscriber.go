package stream

import (
	"context"
	"errors"
	"sync"
)

// ErrSinkClosed is returned when writing to a sink that has been closed.
var ErrSinkClosed = errors.New("sink closed")

// Sink receives encoded frames for one subscriber. Write must honour ctx
// cancellation; implementations must be safe for concurrent Write and Close.
type Sink interface {
	Write(ctx context.Context, frame []byte) error
	Close() error
}

// Subscriber is one live viewer registered with a Registry.
type Subscriber struct {
	id     string
	sink   Sink
	frames <-chan []byte
	done   chan struct{}
	once   sync.Once
}

func (s *Subscriber) ID() string { return s.id }

// Frames returns the channel the subscriber's frames arrive on. It is nil for
// subscribers created with SubscribeSink.
func (s *Subscriber) Frames() <-chan []byte { return s.frames }

// Done is closed once the subscriber has been removed from its registry.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

func (s *Subscriber) close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.sink.Close()
	})
}

// chanSink hands frames to a buffered channel read by the connection writer.
// The channel itself is never closed; readers stop on the subscriber's Done.
type chanSink struct {
	ch     chan []byte
	closed chan struct{}
	once   sync.Once
}

func newChanSink(size int) *chanSink {
	return &chanSink{
		ch:     make(chan []byte, size),
		closed: make(chan struct{}),
	}
}

func (c *chanSink) Write(ctx context.Context, frame []byte) error {
	select {
	case <-c.closed:
		return ErrSinkClosed
	default:
	}
	select {
	case c.ch <- frame:
		return nil
	case <-c.closed:
		return ErrSinkClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *chanSink) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}
