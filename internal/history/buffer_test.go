package history

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webhook-tester/internal/webhook"
)

func event(id string) webhook.Event {
	return webhook.Event{ID: id, Method: "POST"}
}

func ids(events []webhook.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func TestBuffer_LengthIsMinOfInsertsAndCapacity(t *testing.T) {
	for _, capacity := range []int{0, 1, 2, 5, 50} {
		for _, n := range []int{0, 1, 3, 50, 51, 120} {
			t.Run(fmt.Sprintf("cap=%d/n=%d", capacity, n), func(t *testing.T) {
				b := New(capacity)
				for i := 0; i < n; i++ {
					b.Record(event(fmt.Sprint(i)))
				}

				snap := b.Snapshot()
				want := min(n, capacity)
				require.Len(t, snap, want)
				assert.Equal(t, want, b.Len())
				for i, e := range snap {
					assert.Equal(t, fmt.Sprint(n-1-i), e.ID, "position %d", i)
				}
			})
		}
	}
}

func TestBuffer_EvictsExactlyTheOldest(t *testing.T) {
	const capacity = 4
	b := New(capacity)
	for i := 1; i <= capacity+1; i++ {
		b.Record(event(fmt.Sprintf("e%d", i)))
	}

	assert.Equal(t, []string{"e5", "e4", "e3", "e2"}, ids(b.Snapshot()))
}

func TestBuffer_ZeroCapacityStaysEmpty(t *testing.T) {
	b := New(0)
	b.Record(event("a"))
	b.Record(event("b"))

	assert.Empty(t, b.Snapshot())
	assert.NotNil(t, b.Snapshot())
	assert.Equal(t, 0, b.Cap())
}

func TestBuffer_NegativeCapacityIsZero(t *testing.T) {
	b := New(-3)
	b.Record(event("a"))
	assert.Equal(t, 0, b.Cap())
	assert.Empty(t, b.Snapshot())
}

func TestBuffer_SnapshotIsIndependent(t *testing.T) {
	b := New(3)
	b.Record(event("a"))
	b.Record(event("b"))

	snap := b.Snapshot()
	b.Record(event("c"))
	b.Record(event("d"))
	assert.Equal(t, []string{"b", "a"}, ids(snap))

	snap[0].ID = "mutated"
	assert.Equal(t, []string{"d", "c", "b"}, ids(b.Snapshot()))
}

func TestBuffer_ConcurrentRecordAndSnapshot(t *testing.T) {
	const capacity = 8
	b := New(capacity)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				b.Record(event(fmt.Sprintf("%d-%d", w, i)))
			}
		}(w)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			snap := b.Snapshot()
			if len(snap) > capacity {
				t.Errorf("snapshot length %d exceeds capacity", len(snap))
				return
			}
		}
	}()
	wg.Wait()
	<-done

	assert.Len(t, b.Snapshot(), capacity)
}
