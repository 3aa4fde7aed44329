package arbor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ev(msg string) queuedEvent {
	return queuedEvent{rec: Record{Message: msg}}
}

func TestBoundedQueueFIFO(t *testing.T) {
	q := newBoundedQueue(4)
	q.pushDropOldest(ev("1"))
	q.pushDropOldest(ev("2"))
	q.pushDropOldest(ev("3"))

	batch := q.popBatch(10)
	require.Len(t, batch, 3)
	assert.Equal(t, "1", batch[0].rec.Message)
	assert.Equal(t, "2", batch[1].rec.Message)
	assert.Equal(t, "3", batch[2].rec.Message)
	assert.Equal(t, 0, q.len())
}

func TestBoundedQueuePartialPopPreservesOrder(t *testing.T) {
	q := newBoundedQueue(10)
	for _, m := range []string{"a", "b", "c", "d", "e"} {
		q.pushDropOldest(ev(m))
	}
	first := q.popBatch(2)
	require.Len(t, first, 2)
	assert.Equal(t, []string{"a", "b"}, []string{first[0].rec.Message, first[1].rec.Message})

	rest := q.popBatch(10)
	require.Len(t, rest, 3)
	assert.Equal(t, "c", rest[0].rec.Message)
	assert.Equal(t, "d", rest[1].rec.Message)
	assert.Equal(t, "e", rest[2].rec.Message)
}

func TestBoundedQueueDropOldest(t *testing.T) {
	q := newBoundedQueue(3)
	for _, m := range []string{"1", "2", "3", "4", "5"} {
		q.pushDropOldest(ev(m))
	}
	assert.Equal(t, 3, q.len())
	batch := q.popBatch(10)
	require.Len(t, batch, 3)
	assert.Equal(t, []string{"3", "4", "5"}, []string{batch[0].rec.Message, batch[1].rec.Message, batch[2].rec.Message})
}

func TestBoundedQueueDropNewest(t *testing.T) {
	q := newBoundedQueue(3)
	for _, m := range []string{"1", "2", "3"} {
		dropped := q.pushDropNewest(ev(m))
		assert.False(t, dropped)
	}
	dropped := q.pushDropNewest(ev("4"))
	assert.True(t, dropped)

	batch := q.popBatch(10)
	require.Len(t, batch, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{batch[0].rec.Message, batch[1].rec.Message, batch[2].rec.Message})
}

func TestBoundedQueueWrapAround(t *testing.T) {
	q := newBoundedQueue(3)
	q.pushDropOldest(ev("1"))
	q.pushDropOldest(ev("2"))
	_ = q.popBatch(1) // head advances past slot 0
	q.pushDropOldest(ev("3"))
	q.pushDropOldest(ev("4")) // wraps into slot 0

	batch := q.popBatch(10)
	require.Len(t, batch, 3)
	assert.Equal(t, []string{"2", "3", "4"}, []string{batch[0].rec.Message, batch[1].rec.Message, batch[2].rec.Message})
}

func TestBoundedQueueFullAndCap(t *testing.T) {
	q := newBoundedQueue(2)
	assert.Equal(t, 2, q.cap())
	assert.False(t, q.full())
	q.pushDropOldest(ev("1"))
	q.pushDropOldest(ev("2"))
	assert.True(t, q.full())
}
