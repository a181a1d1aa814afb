package webhook

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is ISO-8601 in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Raw is a received webhook call as handed over by the HTTP layer.
type Raw struct {
	Method  string
	Headers map[string]string
	Query   map[string]any
	Body    any
}

// Event is the recorded form of one webhook call. It is never mutated after
// NewEvent returns.
type Event struct {
	ID        string            `json:"id"`
	Timestamp string            `json:"timestamp"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	Query     map[string]any    `json:"query"`
	Body      any               `json:"body"`
}

// NewEvent assigns an id and formats at as the event timestamp. Header keys
// are lower-cased, and the header and query maps are copied so the caller may
// reuse its own.
func NewEvent(raw Raw, at time.Time) Event {
	headers := make(map[string]string, len(raw.Headers))
	for k, v := range raw.Headers {
		headers[strings.ToLower(k)] = v
	}
	query := make(map[string]any, len(raw.Query))
	for k, v := range raw.Query {
		query[k] = v
	}
	return Event{
		ID:        uuid.New().String(),
		Timestamp: at.UTC().Format(TimestampLayout),
		Method:    strings.ToUpper(raw.Method),
		Headers:   headers,
		Query:     query,
		Body:      raw.Body,
	}
}

// Env exposes the event's fields by their JSON names, for expression filters.
func (e Event) Env() map[string]any {
	return map[string]any{
		"id":        e.ID,
		"timestamp": e.Timestamp,
		"method":    e.Method,
		"headers":   e.Headers,
		"query":     e.Query,
		"body":      e.Body,
	}
}
