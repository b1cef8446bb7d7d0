package ptcop

// RingBuffer keeps the last len(Buffer) values written to it. Cursor is the
// index of the latest value.
type RingBuffer[T any] struct {
	Buffer []T
	Cursor int
}

// WriteWrap writes values in order, overwriting the oldest ones.
func (r *RingBuffer[T]) WriteWrap(values []T) {
	if skip := len(values) - len(r.Buffer); skip > 0 {
		r.Cursor = (r.Cursor + skip) % len(r.Buffer)
		values = values[skip:]
	}
	for _, v := range values {
		r.WriteWrapSingle(v)
	}
}

func (r *RingBuffer[T]) WriteWrapSingle(value T) {
	r.Cursor = (r.Cursor + 1) % len(r.Buffer)
	r.Buffer[r.Cursor] = value
}

// Back returns the value written n writes ago; Back(0) is the latest.
func (r *RingBuffer[T]) Back(n int) T {
	i := (r.Cursor - n) % len(r.Buffer)
	if i < 0 {
		i += len(r.Buffer)
	}
	return r.Buffer[i]
}

// Clear zeroes the buffer and rewinds the cursor.
func (r *RingBuffer[T]) Clear() {
	clear(r.Buffer)
	r.Cursor = 0
}
