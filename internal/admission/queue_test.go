package admission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id string, d time.Duration) *Entry {
	return &Entry{ID: id, WorkClass: "m", EstimatedDuration: d}
}

func TestQueueFIFO(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	a, b, c := entry("a", time.Second), entry("b", 2*time.Second), entry("c", 3*time.Second)

	assert.Equal(t, 0, q.NextPosition())
	q.Enqueue(a)
	assert.Equal(t, 1, q.NextPosition())
	q.Enqueue(b)
	q.Enqueue(c)

	assert.Equal(t, 3, q.Len())
	assert.Equal(t, 0, q.Position(a))
	assert.Equal(t, 2, q.Position(c))

	head, err := q.DequeueHead()
	require.NoError(t, err)
	assert.Same(t, a, head)
	assert.Equal(t, 0, q.Position(b))
	assert.Equal(t, -1, q.Position(a))
	assert.False(t, q.Contains(a))
}

func TestQueueDequeueEmpty(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	_, err := q.DequeueHead()
	require.ErrorIs(t, err, ErrEmptyQueue)

	q.Enqueue(entry("a", time.Second))
	_, err = q.DequeueHead()
	require.NoError(t, err)
	_, err = q.DequeueHead()
	require.ErrorIs(t, err, ErrEmptyQueue)
}

func TestQueueEstimatedWait(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	next := entry("n", 3*time.Second)
	assert.Equal(t, 3*time.Second, q.EstimatedWait(next), "empty queue waits only for itself")

	q.Enqueue(entry("a", time.Second))
	q.Enqueue(entry("b", 500*time.Millisecond))
	assert.Equal(t, 4500*time.Millisecond, q.EstimatedWait(next))

	_, err := q.DequeueHead()
	require.NoError(t, err)
	assert.Equal(t, 3500*time.Millisecond, q.EstimatedWait(next))
}

func TestQueueRemove(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	a, b, c := entry("a", time.Second), entry("b", time.Second), entry("c", time.Second)
	q.Enqueue(a)
	q.Enqueue(b)
	q.Enqueue(c)

	require.NoError(t, q.Remove(b))
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, 1, q.Position(c))
	assert.Equal(t, 2*time.Second, q.EstimatedWait(entry("x", 0)))

	require.ErrorIs(t, q.Remove(b), ErrEntryNotFound)
	require.ErrorIs(t, q.Remove(nil), ErrEntryNotFound)

	other := NewQueue()
	require.ErrorIs(t, other.Remove(a), ErrEntryNotFound)
}

func TestQueueIsFull(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	for i := range 3 {
		assert.False(t, q.IsFull(3), "len %d", i)
		q.Enqueue(entry("e", time.Second))
	}
	assert.True(t, q.IsFull(3))
	assert.True(t, q.IsFull(2))
}

func TestQueueEach(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	for _, id := range []string{"a", "b", "c"} {
		q.Enqueue(entry(id, time.Second))
	}

	var seen []string
	q.Each(func(pos int, e *Entry) bool {
		seen = append(seen, e.ID)
		return pos < 1
	})
	assert.Equal(t, []string{"a", "b"}, seen)
}
