package instrument

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"webhook-tester/internal/logging"
)

const TraceHeader = "X-Trace-ID"

type ctxKey int

const traceIDKey ctxKey = iota

// WithTraceID sets the trace ID in the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// GetTraceID returns the trace ID from the context.
func GetTraceID(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return ""
}

// StatusCoder is implemented by errors that know the HTTP status they are
// rendered with.
type StatusCoder interface {
	HTTPStatus() int
}

// ErrorStatus returns the status the app's error handler will render err
// with: the error's own status if it carries one, otherwise 500.
func ErrorStatus(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatus()
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	return fiber.StatusInternalServerError
}

// Middleware propagates (or generates) a trace ID for each request, attaches
// a request-scoped logger to the user context, and logs the request outcome.
// Streaming responses are logged when the handler returns, not when the
// stream ends.
func Middleware(logger *zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		traceID := c.Get(TraceHeader)
		if traceID == "" {
			traceID = uuid.New().String()
		}
		c.Set(TraceHeader, traceID)

		reqLogger := logger.With().Str("trace_id", traceID).Logger()
		ctx := WithTraceID(c.UserContext(), traceID)
		ctx = logging.WithLogger(ctx, &reqLogger)
		c.SetUserContext(ctx)

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = ErrorStatus(err)
		}
		ev := reqLogger.Debug()
		if status >= 500 {
			ev = reqLogger.Warn()
		}
		ev.Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("Request handled")

		return err
	}
}
