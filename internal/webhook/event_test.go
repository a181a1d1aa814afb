package webhook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	at := time.Date(2024, 3, 9, 10, 11, 12, 345_678_000, time.FixedZone("CET", 3600))
	raw := Raw{
		Method:  "post",
		Headers: map[string]string{"Content-Type": "application/json", "X-Signature": "abc"},
		Query:   map[string]any{"a": "1", "tag": []string{"x", "y"}},
		Body:    map[string]any{"hello": "world"},
	}

	ev := NewEvent(raw, at)

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "2024-03-09T09:11:12.345Z", ev.Timestamp)
	assert.Equal(t, "POST", ev.Method)
	assert.Equal(t, map[string]string{"content-type": "application/json", "x-signature": "abc"}, ev.Headers)
	assert.Equal(t, []string{"x", "y"}, ev.Query["tag"])
	assert.Equal(t, map[string]any{"hello": "world"}, ev.Body)

	raw.Query["a"] = "changed"
	assert.Equal(t, "1", ev.Query["a"], "query map must be copied")
}

func TestNewEvent_UniqueIDs(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		ev := NewEvent(Raw{Method: "POST"}, time.Now())
		_, dup := seen[ev.ID]
		require.False(t, dup, "duplicate id %s", ev.ID)
		seen[ev.ID] = struct{}{}
	}
}

func TestNewEvent_NilMapsBecomeEmpty(t *testing.T) {
	ev := NewEvent(Raw{Method: "GET"}, time.Now())
	assert.NotNil(t, ev.Headers)
	assert.NotNil(t, ev.Query)
	assert.Nil(t, ev.Body)
}

func TestClock_NeverGoesBackwards(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	readings := []time.Time{base, base.Add(time.Second), base.Add(-time.Minute), base.Add(2 * time.Second)}
	i := 0
	c := NewClockFunc(func() time.Time {
		t := readings[i]
		i++
		return t
	})

	assert.Equal(t, base, c.Now())
	assert.Equal(t, base.Add(time.Second), c.Now())
	assert.Equal(t, base.Add(time.Second), c.Now(), "stepped-back clock is clamped")
	assert.Equal(t, base.Add(2*time.Second), c.Now())
}
