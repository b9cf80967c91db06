// Package queue provides the FIFO worklist that drives fixed-point
// iteration in tests and example drivers.
package queue

import "errors"

// A Queue is a FIFO worklist. An element that is already waiting in the
// queue is not enqueued a second time.
type Queue[E comparable] struct {
	elements []E
	waiting  map[E]struct{}
}

// Push enqueues e, reporting whether it was added (false when e is
// already waiting).
func (q *Queue[E]) Push(e E) bool {
	if _, found := q.waiting[e]; found {
		return false
	}
	if q.waiting == nil {
		q.waiting = make(map[E]struct{})
	}
	q.waiting[e] = struct{}{}
	q.elements = append(q.elements, e)
	return true
}

func (q *Queue[E]) Empty() bool {
	return len(q.elements) == 0
}

func (q *Queue[E]) Len() int {
	return len(q.elements)
}

var ErrEmpty = errors.New("queue is empty")

func (q *Queue[E]) Pop() E {
	if q.Empty() {
		panic(ErrEmpty)
	}

	e := q.elements[0]
	q.elements = q.elements[1:]
	delete(q.waiting, e)
	return e
}
