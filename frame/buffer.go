package frame

// Buffer carries unconsumed input samples between calls.
//
// Samples are appended with Append, the caller processes Frames() hops from
// Samples(), then drops them with Consume. The backing array is reused, so
// once it has grown to the largest call size no further allocation happens.
type Buffer struct {
	geom Geometry
	data []complex128
}

// NewBuffer creates an empty buffer for g.
func NewBuffer(g Geometry) *Buffer {
	return &Buffer{
		geom: g,
		data: make([]complex128, 0, 2*g.Slen),
	}
}

// Prime appends n zero samples.
func (b *Buffer) Prime(n int) {
	for i := 0; i < n; i++ {
		b.data = append(b.data, 0)
	}
}

// Append adds in to the end of the buffer.
func (b *Buffer) Append(in []complex128) {
	b.data = append(b.data, in...)
}

// Samples returns the buffered samples. The slice is only valid until the
// next Append, Consume or Reset.
func (b *Buffer) Samples() []complex128 {
	return b.data
}

// Len returns the number of buffered samples.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Frames returns how many hops the buffered samples allow.
func (b *Buffer) Frames() int {
	return b.geom.Frames(len(b.data))
}

// Consume drops the first n samples.
func (b *Buffer) Consume(n int) {
	if n >= len(b.data) {
		b.data = b.data[:0]
		return
	}
	remaining := copy(b.data, b.data[n:])
	b.data = b.data[:remaining]
}

// Reset empties the buffer without releasing its storage.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
}
