package admission

import (
	"container/list"
	"time"
)

// Entry is one admitted unit of work. It occupies one slot of the queue from
// admission until its work is confirmed finished.
type Entry struct {
	ID                string
	WorkClass         string
	EnqueuedAt        time.Time
	EstimatedDuration time.Duration

	element *list.Element
	owner   *Queue
}

// Queue is a FIFO of entries, oldest first. It does not enforce capacity and
// is not synchronized: the Controller owns both concerns.
type Queue struct {
	entries *list.List
	// total is the sum of EstimatedDuration over queued entries.
	total time.Duration
}

func NewQueue() *Queue {
	return &Queue{entries: list.New()}
}

// Len returns the number of queued entries.
func (q *Queue) Len() int {
	return q.entries.Len()
}

// IsFull reports whether an arrival must be rejected under capacity.
func (q *Queue) IsFull(capacity int) bool {
	return q.Len() >= capacity
}

// NextPosition is the 0-based position the next enqueued entry will take.
func (q *Queue) NextPosition() int {
	return q.Len()
}

// EstimatedWait returns the expected time until e finishes if it were enqueued
// now: the estimates of every queued entry plus its own.
func (q *Queue) EstimatedWait(e *Entry) time.Duration {
	return q.total + e.EstimatedDuration
}

// Enqueue appends e to the tail.
func (q *Queue) Enqueue(e *Entry) {
	e.element = q.entries.PushBack(e)
	e.owner = q
	q.total += e.EstimatedDuration
}

// DequeueHead removes and returns the oldest entry.
func (q *Queue) DequeueHead() (*Entry, error) {
	front := q.entries.Front()
	if front == nil {
		return nil, ErrEmptyQueue
	}
	e := front.Value.(*Entry)
	q.detach(e)
	return e, nil
}

// Remove takes e out of the queue wherever it sits.
func (q *Queue) Remove(e *Entry) error {
	if e == nil || e.owner != q || e.element == nil {
		return ErrEntryNotFound
	}
	q.detach(e)
	return nil
}

// Contains reports whether e is currently queued.
func (q *Queue) Contains(e *Entry) bool {
	return e != nil && e.owner == q && e.element != nil
}

// Position returns the 0-based position of e, or -1 when it is not queued.
func (q *Queue) Position(e *Entry) int {
	if !q.Contains(e) {
		return -1
	}
	i := 0
	for el := q.entries.Front(); el != nil; el = el.Next() {
		if el == e.element {
			return i
		}
		i++
	}
	return -1
}

// Each calls fn for every entry from oldest to newest until fn returns false.
func (q *Queue) Each(fn func(pos int, e *Entry) bool) {
	i := 0
	for el := q.entries.Front(); el != nil; el = el.Next() {
		if !fn(i, el.Value.(*Entry)) {
			return
		}
		i++
	}
}

func (q *Queue) detach(e *Entry) {
	q.entries.Remove(e.element)
	q.total -= e.EstimatedDuration
	e.element = nil
	e.owner = nil
}
