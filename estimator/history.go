package estimator

import (
	"gonum.org/v1/gonum/floats"
)

// History is a bounded ring of magnitude frames and their squared
// deviations from the running mean.
//
// Invariants after every Push:
//
//	sums == Σ retained frames
//	devs == Σ retained deviation frames
//
// Slots are allocated the first time they are filled; once the ring is full
// Push does not allocate.
type History struct {
	nfft     int
	capacity int

	frames [][]float64
	devs   [][]float64
	head   int // slot of the oldest frame
	size   int

	sums   []float64
	devSum []float64
	mean   []float64
}

// NewHistory creates an empty history for frames of length nfft.
func NewHistory(nfft, capacity int) *History {
	return &History{
		nfft:     nfft,
		capacity: capacity,
		frames:   make([][]float64, capacity),
		devs:     make([][]float64, capacity),
		sums:     make([]float64, nfft),
		devSum:   make([]float64, nfft),
		mean:     make([]float64, nfft),
	}
}

// Push appends a magnitude frame, evicting the oldest when full.
// The frame is copied; frame must have length nfft.
func (h *History) Push(frame []float64) {
	var slot int
	if h.size == h.capacity {
		slot = h.head
		floats.Sub(h.sums, h.frames[slot])
		floats.Sub(h.devSum, h.devs[slot])
		h.head = (h.head + 1) % h.capacity
	} else {
		slot = (h.head + h.size) % h.capacity
		if h.frames[slot] == nil {
			h.frames[slot] = make([]float64, h.nfft)
			h.devs[slot] = make([]float64, h.nfft)
		}
		h.size++
	}

	copy(h.frames[slot], frame)
	floats.Add(h.sums, frame)

	floats.ScaleTo(h.mean, 1/float64(h.size), h.sums)
	dev := h.devs[slot]
	floats.SubTo(dev, frame, h.mean)
	floats.Mul(dev, dev)
	floats.Add(h.devSum, dev)
}

// Len returns the number of retained frames.
func (h *History) Len() int {
	return h.size
}

// Capacity returns the maximum number of retained frames.
func (h *History) Capacity() int {
	return h.capacity
}

// Sums returns the running sum of retained magnitude frames.
// Callers must not modify it.
func (h *History) Sums() []float64 {
	return h.sums
}

// Devs returns the running sum of retained squared-deviation frames.
// Callers must not modify it.
func (h *History) Devs() []float64 {
	return h.devSum
}

// Recent returns the i-th most recent frame, 0 being the newest.
// It panics if i is out of range. Callers must not modify it.
func (h *History) Recent(i int) []float64 {
	if i < 0 || i >= h.size {
		panic("estimator: history index out of range")
	}
	return h.frames[(h.head+h.size-1-i)%h.capacity]
}

// Reset drops all frames and zeroes the sums. Slot storage is kept.
func (h *History) Reset() {
	h.head = 0
	h.size = 0
	clear(h.sums)
	clear(h.devSum)
}
