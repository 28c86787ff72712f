package frame

import (
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

// WindowKind selects the analysis window shape.
type WindowKind int

const (
	// WindowHann is the scaled Hann window used for audio-rate streams.
	WindowHann WindowKind = iota
	// WindowRectangular is the all-ones window used for wide IF streams.
	WindowRectangular
)

// AudioMaxSampleRate is the highest sample rate treated as audio.
const AudioMaxSampleRate = 24000

// String returns the window name.
func (k WindowKind) String() string {
	switch k {
	case WindowHann:
		return "hann"
	case WindowRectangular:
		return "rectangular"
	default:
		return "unknown"
	}
}

// WindowKindFor picks the window for a sample rate.
func WindowKindFor(sampleRate float64) WindowKind {
	if sampleRate <= AudioMaxSampleRate {
		return WindowHann
	}
	return WindowRectangular
}

// NewWindow builds the analysis window for g.
//
// The Hann window is scaled so that its samples sum to Len2, which makes
// 50% overlap-add close to unity gain.
func NewWindow(kind WindowKind, g Geometry) []float64 {
	win := make([]float64, g.Slen)
	for i := range win {
		win[i] = 1
	}
	if kind == WindowRectangular {
		return win
	}

	window.Hann(win)
	floats.Scale(float64(g.Len2)/floats.Sum(win), win)
	return win
}

// Apply writes win ⊙ x into dst and zero-fills the rest of dst.
// dst must be at least len(win) long and x at least len(win).
func Apply(dst []complex128, win []float64, x []complex128) {
	for i, w := range win {
		dst[i] = complex(real(x[i])*w, imag(x[i])*w)
	}
	clear(dst[len(win):])
}
