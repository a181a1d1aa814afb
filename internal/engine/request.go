package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"webhook-tester/internal/webhook"
)

// rawFromRequest extracts method, headers, query and body from the request.
// JSON and URL-encoded bodies are decoded; any other non-empty body is kept
// as text, and an empty body becomes an empty object.
func rawFromRequest(c *fiber.Ctx) (webhook.Raw, error) {
	body, err := parseBody(c)
	if err != nil {
		return webhook.Raw{}, err
	}
	return webhook.Raw{
		Method:  utils.CopyString(c.Method()),
		Headers: requestHeaders(c),
		Query:   requestQuery(c),
		Body:    body,
	}, nil
}

func requestHeaders(c *fiber.Ctx) map[string]string {
	headers := make(map[string]string)
	c.Request().Header.VisitAll(func(key, value []byte) {
		k := strings.ToLower(string(key))
		if prev, ok := headers[k]; ok {
			headers[k] = prev + ", " + string(value)
			return
		}
		headers[k] = string(value)
	})
	return headers
}

func requestQuery(c *fiber.Ctx) map[string]any {
	values := make(url.Values)
	c.Request().URI().QueryArgs().VisitAll(func(key, value []byte) {
		k := string(key)
		values[k] = append(values[k], string(value))
	})
	return expandValues(values)
}

// expandValues keeps single values as strings and repeated keys as lists,
// and decodes bracketed keys into nested objects: user[name]=x becomes
// {"user":{"name":"x"}} and tags[]=a becomes {"tags":["a"]}. A key that is
// malformed or conflicts with an earlier one is kept flat.
func expandValues(values url.Values) map[string]any {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(values))
	for _, k := range keys {
		v := values[k]
		path, ok := splitKey(k)
		if !ok || !insertPath(out, path, v) {
			out[k] = collapse(v)
		}
	}
	return out
}

// splitKey splits a[b][c] into [a b c]. A trailing [] yields an empty last
// segment.
func splitKey(key string) ([]string, bool) {
	open := strings.IndexByte(key, '[')
	if open <= 0 {
		return []string{key}, true
	}
	path := []string{key[:open]}
	rest := key[open:]
	for rest != "" {
		if rest[0] != '[' {
			return nil, false
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, false
		}
		path = append(path, rest[1:end])
		rest = rest[end+1:]
	}
	for i, seg := range path[:len(path)-1] {
		if seg == "" && i > 0 {
			return nil, false
		}
	}
	return path, true
}

func insertPath(m map[string]any, path []string, v []string) bool {
	var leaf any = collapse(v)
	if path[len(path)-1] == "" {
		path = path[:len(path)-1]
		leaf = v
	}

	cur := m
	for _, seg := range path[:len(path)-1] {
		existing, found := cur[seg]
		if !found {
			next := make(map[string]any)
			cur[seg] = next
			cur = next
			continue
		}
		next, isMap := existing.(map[string]any)
		if !isMap {
			return false
		}
		cur = next
	}

	last := path[len(path)-1]
	if _, taken := cur[last]; taken {
		return false
	}
	cur[last] = leaf
	return true
}

func collapse(v []string) any {
	if len(v) == 1 {
		return v[0]
	}
	return v
}

func parseBody(c *fiber.Ctx) (any, error) {
	body := bytes.TrimSpace(c.Body())
	if len(body) == 0 {
		return map[string]any{}, nil
	}

	switch {
	case c.Is("json") || strings.HasSuffix(mediaType(c), "+json"):
		var v any
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, InvalidPayloadError(fmt.Errorf("decode json: %w", err))
		}
		return v, nil
	case mediaType(c) == fiber.MIMEApplicationForm:
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, InvalidPayloadError(fmt.Errorf("decode form: %w", err))
		}
		return expandValues(values), nil
	default:
		return string(body), nil
	}
}

func mediaType(c *fiber.Ctx) string {
	ct := strings.ToLower(c.Get(fiber.HeaderContentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}
