package stream

import (
	"bytes"
	"encoding/json"
	"fmt"

	"webhook-tester/internal/webhook"
)

// Heartbeat and Connected are SSE comment lines; clients ignore them.
var (
	Heartbeat = []byte(": ping\n\n")
	Connected = []byte(": connected\n\n")
)

// EncodeFrame renders event as a server-sent-events block: one data field
// holding the JSON record, terminated by a blank line.
func EncodeFrame(event webhook.Event) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("data: ")
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(event); err != nil {
		return nil, fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	// Encode ends with a newline; one more terminates the event.
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
