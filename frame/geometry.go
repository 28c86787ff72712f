package frame

import (
	"errors"
	"fmt"
	"math"
)

const (
	// FrameDuration is the analysis frame length in seconds.
	FrameDuration = 0.02

	// OverlapPercent is the share of each frame overlapping its successor.
	OverlapPercent = 50

	// AudioRegimeMaxFFT is the exclusive upper bound on nFFT for the narrow
	// audio regime; larger transforms use the wide IF regime.
	AudioRegimeMaxFFT = 1200

	// SmallHistoryFFT is the nFFT below which the long noise history is kept.
	SmallHistoryFFT = 1000

	// LongHistory and ShortHistory are the noise history capacities in frames.
	LongHistory  = 2000
	ShortHistory = 200
)

// ErrInvalidGeometry is returned when a sample rate cannot produce a usable frame.
var ErrInvalidGeometry = errors.New("invalid frame geometry")

// Geometry holds the frame sizes derived from a sample rate.
type Geometry struct {
	SampleRate float64
	Slen       int // analysis frame length
	Len1       int // overlap length
	Len2       int // hop length
	NFFT       int // transform size
}

// NewGeometry derives frame sizes for the given sample rate.
//
// Returns ErrInvalidGeometry (wrapped) when the rate is not a finite positive
// number or when it is too low to yield a frame of at least two samples.
func NewGeometry(sampleRate float64) (Geometry, error) {
	if math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) || sampleRate <= 0 {
		return Geometry{}, fmt.Errorf("%w: sample rate %v", ErrInvalidGeometry, sampleRate)
	}

	slen := int(math.Floor(FrameDuration * sampleRate))
	if slen%2 == 1 {
		slen++
	}
	if slen < 2 {
		return Geometry{}, fmt.Errorf("%w: sample rate %v gives frame length %d", ErrInvalidGeometry, sampleRate, slen)
	}

	len1 := slen * OverlapPercent / 100
	return Geometry{
		SampleRate: sampleRate,
		Slen:       slen,
		Len1:       len1,
		Len2:       slen - len1,
		NFFT:       2 * slen,
	}, nil
}

// Frames returns the number of hops that can be processed from n buffered
// samples. It is never negative.
func (g Geometry) Frames(n int) int {
	frames := n/g.Len2 - g.Slen/g.Len2
	if frames < 0 {
		return 0
	}
	return frames
}

// AudioRegime reports whether the narrow audio estimator applies.
func (g Geometry) AudioRegime() bool {
	return g.NFFT < AudioRegimeMaxFFT
}

// HistoryCapacity returns how many frames the noise history retains.
func (g Geometry) HistoryCapacity() int {
	if g.NFFT < SmallHistoryFFT {
		return LongHistory
	}
	return ShortHistory
}

// String implements fmt.Stringer for log fields.
func (g Geometry) String() string {
	return fmt.Sprintf("Sr=%.0f Slen=%d len1=%d len2=%d nFFT=%d", g.SampleRate, g.Slen, g.Len1, g.Len2, g.NFFT)
}
