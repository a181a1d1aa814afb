package engine

import (
	"bufio"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"webhook-tester/internal/history"
	"webhook-tester/internal/instrument"
	"webhook-tester/internal/logging"
	"webhook-tester/internal/stream"
)

type Handler struct {
	ingestor  *Ingestor
	history   *history.Buffer
	registry  *stream.Registry
	counters  *instrument.Counters
	heartbeat time.Duration
}

func NewHandler(ing *Ingestor, buf *history.Buffer, reg *stream.Registry, counters *instrument.Counters, heartbeat time.Duration) *Handler {
	if counters == nil {
		counters = instrument.NewCounters()
	}
	return &Handler{
		ingestor:  ing,
		history:   buf,
		registry:  reg,
		counters:  counters,
		heartbeat: heartbeat,
	}
}

// Webhook handles any request to /webhook.
func (h *Handler) Webhook(c *fiber.Ctx) error {
	raw, err := rawFromRequest(c)
	if err != nil {
		return err
	}
	h.ingestor.Ingest(c.UserContext(), raw)
	return c.Status(fiber.StatusOK).SendString("Webhook received")
}

// Logs handles GET /api/logs: recent events, newest first. Supports
// ?filter=<expression> and ?limit=<n>.
func (h *Handler) Logs(c *fiber.Ctx) error {
	events := h.history.Snapshot()

	if src := c.Query("filter"); src != "" {
		prog, err := CompileFilter(src)
		if err != nil {
			return InvalidFilterError(err)
		}
		events = FilterEvents(events, prog)
	}

	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return InvalidParamError("limit", v)
		}
		if limit < len(events) {
			events = events[:limit]
		}
	}

	return c.JSON(events)
}

// Events handles GET /events: a server-sent-events stream of every event
// ingested after the subscription is registered.
func (h *Handler) Events(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	sub := h.registry.Subscribe()
	logger := logging.FromContext(c.UserContext()).With().Str("subscriber_id", sub.ID()).Logger()
	heartbeat := h.heartbeat

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer h.registry.Unsubscribe(sub.ID())
		if err := streamFrames(w, sub, heartbeat); err != nil {
			logger.Debug().Err(err).Msg("Event stream closed")
		}
	})
	return nil
}

// streamFrames copies the subscriber's frames to w until the subscriber is
// removed or a write fails.
func streamFrames(w *bufio.Writer, sub *stream.Subscriber, heartbeat time.Duration) error {
	// fasthttp sends the response headers with the first body bytes, so open
	// the stream with a comment to make the client see them immediately.
	if err := writeFlush(w, stream.Connected); err != nil {
		return err
	}

	var tick <-chan time.Time
	if heartbeat > 0 {
		t := time.NewTicker(heartbeat)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case frame := <-sub.Frames():
			if err := writeFlush(w, frame); err != nil {
				return err
			}
		case <-tick:
			if err := writeFlush(w, stream.Heartbeat); err != nil {
				return err
			}
		case <-sub.Done():
			return nil
		}
	}
}

func writeFlush(w *bufio.Writer, b []byte) error {
	if _, err := w.Write(b); err != nil {
		return err
	}
	return w.Flush()
}

// Stats handles GET /api/stats.
func (h *Handler) Stats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"history": fiber.Map{
				"length":   h.history.Len(),
				"capacity": h.history.Cap(),
			},
			"subscribers": h.registry.Count(),
			"counters":    h.counters.Snapshot(),
		},
	})
}

// Health handles GET /health.
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
