package instrument

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webhook-tester/internal/logging"
)

func TestMiddleware_GeneratesTraceID(t *testing.T) {
	logger := zerolog.Nop()
	app := fiber.New()
	app.Use(Middleware(&logger))

	var seen string
	app.Get("/", func(c *fiber.Ctx) error {
		seen = GetTraceID(c.UserContext())
		assert.NotNil(t, logging.FromContext(c.UserContext()))
		return c.SendString("ok")
	})

	resp, err := app.Test(httptestRequest(t, ""), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, resp.Header.Get(TraceHeader))
}

func TestMiddleware_PropagatesTraceID(t *testing.T) {
	logger := zerolog.Nop()
	app := fiber.New()
	app.Use(Middleware(&logger))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(GetTraceID(c.UserContext()))
	})

	resp, err := app.Test(httptestRequest(t, "trace-123"), -1)
	require.NoError(t, err)
	assert.Equal(t, "trace-123", resp.Header.Get(TraceHeader))
}

func httptestRequest(t *testing.T, traceID string) *http.Request {
	t.Helper()
	req, err := http.NewRequest("GET", "/", nil)
	require.NoError(t, err)
	if traceID != "" {
		req.Header.Set(TraceHeader, traceID)
	}
	return req
}

func TestCounters(t *testing.T) {
	c := NewCounters()
	c.EventIngested()
	c.EventIngested()
	c.FrameDelivered()
	c.FrameFailed()
	c.AuditWritten(3)
	c.AuditFailed(1)

	s := c.Snapshot()
	assert.Equal(t, int64(2), s.EventsIngested)
	assert.Equal(t, int64(1), s.FramesDelivered)
	assert.Equal(t, int64(1), s.DeliveryFailures)
	assert.Equal(t, int64(3), s.AuditWritten)
	assert.Equal(t, int64(1), s.AuditFailures)
	assert.GreaterOrEqual(t, s.UptimeSeconds, 0.0)
}

type statusError struct{ status int }

func (e statusError) Error() string    { return fmt.Sprintf("status %d", e.status) }
func (e statusError) HTTPStatus() int { return e.status }

func TestErrorStatus(t *testing.T) {
	assert.Equal(t, 400, ErrorStatus(statusError{status: 400}))
	assert.Equal(t, 422, ErrorStatus(fmt.Errorf("wrapped: %w", statusError{status: 422})))
	assert.Equal(t, 404, ErrorStatus(fiber.ErrNotFound))
	assert.Equal(t, 500, ErrorStatus(errors.New("boom")))
}

func TestMiddleware_LogsClientErrorsWithTheirStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(ErrorStatus(err)).SendString(err.Error())
		},
	})
	app.Use(Middleware(&logger))
	app.Get("/", func(c *fiber.Ctx) error {
		return statusError{status: 400}
	})

	resp, err := app.Test(httptestRequest(t, ""), -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, float64(400), line["status"])
	assert.Equal(t, "Request handled", line["message"])
}
