package pipeline

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// ResampleBlock converts the sample rate of a complex stream by linear
// interpolation. State carries across calls, so splitting the stream does
// not change the output.
type ResampleBlock struct {
	name     string
	inRate   float64
	outRate  float64
	ratio    float64 // input samples per output sample
	position float64 // next output position relative to the current call; -1 is last
	last     complex128
}

// NewResampleBlock creates a resampler from inRate to outRate Hz.
//
// Returns ErrInvalidRate (wrapped) for non-positive or non-finite rates.
func NewResampleBlock(name string, inRate, outRate float64) (*ResampleBlock, error) {
	for _, r := range []float64{inRate, outRate} {
		if !(r > 0) || math.IsInf(r, 0) {
			logrus.WithFields(logrus.Fields{
				"function":    "NewResampleBlock",
				"input_rate":  inRate,
				"output_rate": outRate,
			}).Error("Sample rate validation failed")
			return nil, fmt.Errorf("%w: input=%v, output=%v", ErrInvalidRate, inRate, outRate)
		}
	}

	logrus.WithFields(logrus.Fields{
		"function":    "NewResampleBlock",
		"name":        name,
		"input_rate":  inRate,
		"output_rate": outRate,
		"ratio":       inRate / outRate,
	}).Info("Resample block created")

	return &ResampleBlock{
		name:    name,
		inRate:  inRate,
		outRate: outRate,
		ratio:   inRate / outRate,
	}, nil
}

// Kind returns KindResample.
func (r *ResampleBlock) Kind() Kind { return KindResample }

// Name returns the block name.
func (r *ResampleBlock) Name() string { return r.name }

// Rates returns the input and output sample rates.
func (r *ResampleBlock) Rates() (in, out float64) {
	return r.inRate, r.outRate
}

// Process resamples in. Equal rates return in unchanged.
func (r *ResampleBlock) Process(in []complex128) ([]complex128, error) {
	if len(in) == 0 {
		return nil, nil
	}
	if r.inRate == r.outRate {
		return in, nil
	}

	n := len(in)
	out := make([]complex128, 0, int(float64(n)/r.ratio)+1)
	for r.position <= float64(n-1) {
		idx := int(math.Floor(r.position))
		frac := r.position - float64(idx)

		var a complex128
		if idx < 0 {
			a = r.last
		} else {
			a = in[idx]
		}
		b := a
		if idx+1 < n {
			b = in[idx+1]
		}
		out = append(out, a+(b-a)*complex(frac, 0))
		r.position += r.ratio
	}

	r.position -= float64(n)
	r.last = in[n-1]
	return out, nil
}

// Reset forgets the interpolation state.
func (r *ResampleBlock) Reset() {
	r.position = 0
	r.last = 0
}

// Close is a no-op.
func (r *ResampleBlock) Close() error { return nil }
