package receiver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCarryOver_AppendConsume(t *testing.T) {
	var b carryOver
	b.append([]byte("hello"))
	b.append([]byte(" world"))
	assert.Equal(t, 11, b.len())

	b.consume(6)
	assert.Equal(t, []byte("world"), b.bytes())

	b.consume(5)
	assert.Equal(t, 0, b.len())
	assert.Equal(t, 0, b.off, "fully consumed buffer resets its offset")
}

func TestCarryOver_CompactsConsumedPrefix(t *testing.T) {
	var b carryOver
	b.append(make([]byte, 64))
	b.consume(40)
	capacity := cap(b.data)

	b.append([]byte{1, 2, 3})
	assert.Equal(t, 0, b.off)
	assert.Equal(t, 27, b.len())
	assert.Equal(t, []byte{1, 2, 3}, b.bytes()[24:])
	assert.Equal(t, capacity, cap(b.data), "compaction reuses the backing array")
}

func TestCarryOver_ConsumeTooMuchPanics(t *testing.T) {
	var b carryOver
	b.append([]byte{1})
	assert.Panics(t, func() { b.consume(2) })
}
