package pipeline

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// MaxGain is the largest accepted linear gain (+12 dB).
const MaxGain = 4.0

// GainBlock applies a linear gain to every sample.
// Gain values: 0.0 = silence, 1.0 = no change, >1.0 = amplification.
type GainBlock struct {
	name string
	gain float64
}

// NewGainBlock creates a gain block.
//
// Returns ErrInvalidGain (wrapped) when gain is outside [0, MaxGain].
func NewGainBlock(name string, gain float64) (*GainBlock, error) {
	if err := validateGain(gain); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewGainBlock",
			"gain":     gain,
			"error":    err.Error(),
		}).Error("Gain validation failed")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewGainBlock",
		"name":     name,
		"gain":     gain,
	}).Info("Gain block created")

	return &GainBlock{name: name, gain: gain}, nil
}

// Kind returns KindGain.
func (g *GainBlock) Kind() Kind { return KindGain }

// Name returns the block name.
func (g *GainBlock) Name() string { return g.name }

// Process scales in in place and returns it.
func (g *GainBlock) Process(in []complex128) ([]complex128, error) {
	k := complex(g.gain, 0)
	for i := range in {
		in[i] *= k
	}
	return in, nil
}

// SetGain updates the gain.
func (g *GainBlock) SetGain(gain float64) error {
	if err := validateGain(gain); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"function": "GainBlock.SetGain",
		"old_gain": g.gain,
		"new_gain": gain,
	}).Info("Gain updated")
	g.gain = gain
	return nil
}

// Gain returns the current gain.
func (g *GainBlock) Gain() float64 {
	return g.gain
}

// Reset is a no-op; the block is stateless.
func (g *GainBlock) Reset() {}

// Close is a no-op.
func (g *GainBlock) Close() error { return nil }

func validateGain(gain float64) error {
	if math.IsNaN(gain) || gain < 0 || gain > MaxGain {
		return fmt.Errorf("%w: %v (must be in [0, %v])", ErrInvalidGain, gain, MaxGain)
	}
	return nil
}
