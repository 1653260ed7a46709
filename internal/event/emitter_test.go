package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitter_DispatchesByKind(t *testing.T) {
	e := NewEmitter[string, int]()

	var a, b []int
	e.On("a", func(v int) { a = append(a, v) })
	e.On("b", func(v int) { b = append(b, v) })

	e.Emit("a", 1)
	e.Emit("b", 2)
	e.Emit("a", 3)
	e.Emit("c", 4)

	assert.Equal(t, []int{1, 3}, a)
	assert.Equal(t, []int{2}, b)
}

func TestEmitter_RegistrationOrder(t *testing.T) {
	e := NewEmitter[int, struct{}]()
	var order []string
	e.On(0, func(struct{}) { order = append(order, "first") })
	e.On(0, func(struct{}) { order = append(order, "second") })
	e.Emit(0, struct{}{})
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestEmitter_Off(t *testing.T) {
	e := NewEmitter[string, int]()
	var calls int
	id := e.On("x", func(int) { calls++ })
	keep := e.On("x", func(int) {})
	require.NotEqual(t, id, keep)
	assert.Equal(t, 2, e.ListenerCount("x"))

	assert.True(t, e.Off(id))
	assert.False(t, e.Off(id))
	assert.Equal(t, 1, e.ListenerCount("x"))

	e.Emit("x", 0)
	assert.Zero(t, calls)

	assert.True(t, e.Off(keep))
	assert.Zero(t, e.ListenerCount("x"))
}

func TestEmitter_ListenerAddedDuringEmit(t *testing.T) {
	e := NewEmitter[string, int]()
	var late int
	e.On("x", func(int) {
		e.On("x", func(int) { late++ })
	})

	e.Emit("x", 0)
	assert.Zero(t, late, "listener added during dispatch must not run in the same dispatch")
	e.Emit("x", 0)
	assert.Equal(t, 1, late)
}
