package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"

	"webhook-tester/internal/webhook"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var separator = strings.Repeat("-", 50)

// FormatEntry renders one audit entry: a timestamped banner, a dump of the
// whole record, and a separator line.
func FormatEntry(event webhook.Event, format string) ([]byte, error) {
	var dump []byte
	var err error
	switch format {
	case FormatYAML:
		dump, err = dumpYAML(event)
	default:
		dump, err = dumpJSON(event)
	}
	if err != nil {
		return nil, fmt.Errorf("dump event %s: %w", event.ID, err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "[%s] Incoming Webhook Request:\n", event.Timestamp)
	buf.Write(bytes.TrimRight(dump, "\n"))
	buf.WriteByte('\n')
	buf.WriteString(separator)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func dumpJSON(event webhook.Event) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(event); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func dumpYAML(event webhook.Event) ([]byte, error) {
	// MapSlice keeps the record's field order.
	doc := yaml.MapSlice{
		{Key: "id", Value: event.ID},
		{Key: "timestamp", Value: event.Timestamp},
		{Key: "method", Value: event.Method},
		{Key: "headers", Value: event.Headers},
		{Key: "query", Value: event.Query},
		{Key: "body", Value: event.Body},
	}
	return yaml.MarshalWithOptions(doc, yaml.Indent(2))
}
