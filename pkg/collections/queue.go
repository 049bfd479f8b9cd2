package collections

// Queue is a FIFO queue backed by a slice with a moving head. Consumed
// slots are reclaimed once more than half of a large backing array is dead.
type Queue[T any] struct {
	data []T
	head int
}

// NewQueue creates a queue with room for capacity values.
func NewQueue[T any](capacity int) *Queue[T] {
	return &Queue[T]{data: make([]T, 0, capacity)}
}

// Push appends v to the back of the queue.
func (q *Queue[T]) Push(v T) {
	q.data = append(q.data, v)
}

// Pop removes and returns the front value.
func (q *Queue[T]) Pop() (T, bool) {
	if q.head >= len(q.data) {
		var zero T
		return zero, false
	}
	v := q.data[q.head]
	q.head++
	if q.head > 1024 && q.head > len(q.data)/2 {
		n := copy(q.data, q.data[q.head:])
		q.data = q.data[:n]
		q.head = 0
	}
	return v, true
}

// Len returns the number of queued values.
func (q *Queue[T]) Len() int {
	return len(q.data) - q.head
}
