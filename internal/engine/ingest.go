package engine

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"webhook-tester/internal/audit"
	"webhook-tester/internal/history"
	"webhook-tester/internal/instrument"
	"webhook-tester/internal/stream"
	"webhook-tester/internal/webhook"
)

// Ingestor turns received webhook calls into events: it records each one in
// the history buffer, broadcasts it to live subscribers and queues it for the
// audit log, in that order.
type Ingestor struct {
	mu       sync.Mutex
	clock    *webhook.Clock
	history  *history.Buffer
	registry *stream.Registry
	audit    audit.Log
	counters *instrument.Counters
	logger   *zerolog.Logger
}

func NewIngestor(buf *history.Buffer, reg *stream.Registry, auditLog audit.Log, counters *instrument.Counters, logger *zerolog.Logger) *Ingestor {
	if auditLog == nil {
		auditLog = audit.Nop{}
	}
	if counters == nil {
		counters = instrument.NewCounters()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Ingestor{
		clock:    webhook.NewClock(),
		history:  buf,
		registry: reg,
		audit:    auditLog,
		counters: counters,
		logger:   logger,
	}
}

// Ingest records raw and returns the resulting event. It always succeeds;
// audit log failures are reported by the audit writer.
//
// The whole sequence runs under one lock, so timestamps, buffer order, the
// order each subscriber sees and the audit order all agree, and an event is
// visible in the buffer before any subscriber receives it.
//
// Broadcast runs under that lock, so a subscriber that stops reading delays
// every concurrent Ingest call by up to the registry's send timeout, after
// which the subscriber is removed.
func (i *Ingestor) Ingest(ctx context.Context, raw webhook.Raw) webhook.Event {
	i.mu.Lock()
	event := webhook.NewEvent(raw, i.clock.Now())
	i.history.Record(event)
	i.registry.Broadcast(event)
	i.audit.Append(event)
	i.mu.Unlock()

	i.counters.EventIngested()
	i.logger.Info().
		Str("trace_id", instrument.GetTraceID(ctx)).
		Str("event_id", event.ID).
		Str("method", event.Method).
		Str("timestamp", event.Timestamp).
		Msg("Webhook received")
	return event
}
