package instrument

import (
	"sync/atomic"
	"time"
)

// Counters tracks what the service has done since it started. It satisfies
// the stream and audit Metrics interfaces.
type Counters struct {
	started        time.Time
	ingested       atomic.Int64
	delivered      atomic.Int64
	deliveryFailed atomic.Int64
	auditWritten   atomic.Int64
	auditFailed    atomic.Int64
}

func NewCounters() *Counters {
	return &Counters{started: time.Now()}
}

func (c *Counters) EventIngested()     { c.ingested.Add(1) }
func (c *Counters) FrameDelivered()    { c.delivered.Add(1) }
func (c *Counters) FrameFailed()       { c.deliveryFailed.Add(1) }
func (c *Counters) AuditWritten(n int) { c.auditWritten.Add(int64(n)) }
func (c *Counters) AuditFailed(n int)  { c.auditFailed.Add(int64(n)) }

// CounterSnapshot is a point-in-time copy of Counters.
type CounterSnapshot struct {
	UptimeSeconds    float64 `json:"uptime_seconds"`
	EventsIngested   int64   `json:"events_ingested"`
	FramesDelivered  int64   `json:"frames_delivered"`
	DeliveryFailures int64   `json:"delivery_failures"`
	AuditWritten     int64   `json:"audit_written"`
	AuditFailures    int64   `json:"audit_failures"`
}

func (c *Counters) Snapshot() CounterSnapshot {
	return CounterSnapshot{
		UptimeSeconds:    time.Since(c.started).Seconds(),
		EventsIngested:   c.ingested.Load(),
		FramesDelivered:  c.delivered.Load(),
		DeliveryFailures: c.deliveryFailed.Load(),
		AuditWritten:     c.auditWritten.Load(),
		AuditFailures:    c.auditFailed.Load(),
	}
}
