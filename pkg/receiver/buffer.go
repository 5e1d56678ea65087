package receiver

// carryOver holds bytes received but not yet decoded. Consumed bytes are
// skipped with a read offset and reclaimed lazily, so feeding many small
// chunks does not copy the whole backlog on every call.
type carryOver struct {
	data []byte
	off  int
}

func (b *carryOver) append(p []byte) {
	if b.off > 0 && b.off >= cap(b.data)/2 {
		n := copy(b.data, b.data[b.off:])
		b.data = b.data[:n]
		b.off = 0
	}
	b.data = append(b.data, p...)
}

// bytes returns the unconsumed bytes. The slice is only valid until the next
// append or consume.
func (b *carryOver) bytes() []byte {
	return b.data[b.off:]
}

func (b *carryOver) len() int {
	return len(b.data) - b.off
}

func (b *carryOver) consume(n int) {
	if n > b.len() {
		panic("receiver: consume beyond buffered bytes")
	}
	b.off += n
	if b.off == len(b.data) {
		b.reset()
	}
}

func (b *carryOver) reset() {
	b.data = b.data[:0]
	b.off = 0
}
