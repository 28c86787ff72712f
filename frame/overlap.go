package frame

// OverlapAdd reconstructs a continuous stream from inverse-transformed
// frames that overlap by len1 samples.
type OverlapAdd struct {
	len1 int
	tail []complex128 // x_old
}

// NewOverlapAdd creates a reconstructor with a zeroed tail.
func NewOverlapAdd(g Geometry) *OverlapAdd {
	return &OverlapAdd{
		len1: g.Len1,
		tail: make([]complex128, g.Len1),
	}
}

// Add writes tail + y[0:len1] into dst and keeps y[len1:2*len1] as the new
// tail. dst must hold len1 samples and y at least 2*len1.
func (o *OverlapAdd) Add(dst, y []complex128) {
	for i := 0; i < o.len1; i++ {
		dst[i] = o.tail[i] + y[i]
	}
	copy(o.tail, y[o.len1:2*o.len1])
}

// Tail returns the retained overlap samples. Callers must not modify it.
func (o *OverlapAdd) Tail() []complex128 {
	return o.tail
}

// Reset zeroes the tail.
func (o *OverlapAdd) Reset() {
	clear(o.tail)
}
