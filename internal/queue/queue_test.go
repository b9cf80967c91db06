package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueue(t *testing.T) {
	var q Queue[int]
	assert.True(t, q.Empty())

	assert.True(t, q.Push(1))
	assert.False(t, q.Empty())
	assert.Equal(t, q.Pop(), 1)
	assert.True(t, q.Empty())

	assert.True(t, q.Push(2))
	assert.True(t, q.Push(3))
	assert.False(t, q.Push(2), "2 is already waiting")
	assert.Equal(t, q.Len(), 2)

	assert.Equal(t, q.Pop(), 2)
	assert.Equal(t, q.Pop(), 3)
	assert.True(t, q.Empty())

	assert.True(t, q.Push(2), "2 was popped and may be enqueued again")
	assert.Equal(t, q.Pop(), 2)

	assert.Panics(t, func() { q.Pop() })
}
