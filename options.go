package logmmse

import (
	"fmt"
	"math"

	"github.com/opd-ai/logmmse/gain"
)

// DefaultNoiseFrames is the number of Slen blocks used for bootstrap.
const DefaultNoiseFrames = 6

// Options contains the configuration for a Session.
type Options struct {
	// SampleRate of the stream in Hz. Determines frame geometry and regime.
	SampleRate float64

	// Bandwidth of the signal of interest in Hz, 0 < Bandwidth <= SampleRate.
	Bandwidth float64

	// OverSubtraction scales the noise floor seen by the gain rule (η).
	OverSubtraction float64

	// Smoothing is the decision-directed factor aa.
	Smoothing float64

	// KsiMin floors the a-priori SNR.
	KsiMin float64

	// NoiseFrames is the default bootstrap length in Slen blocks.
	NoiseFrames int

	// ZeroRepair copies the previous bin magnitude into exact-zero bins.
	ZeroRepair bool

	// GainCeiling caps the per-bin gain.
	GainCeiling float64
}

// NewOptions creates Options with default tuning for the given rate and
// bandwidth.
func NewOptions(sampleRate, bandwidth float64) *Options {
	return &Options{
		SampleRate:      sampleRate,
		Bandwidth:       bandwidth,
		OverSubtraction: 1.0,
		Smoothing:       gain.DefaultSmoothing,
		KsiMin:          gain.DefaultKsiMin,
		NoiseFrames:     DefaultNoiseFrames,
		ZeroRepair:      true,
		GainCeiling:     gain.DefaultCeiling,
	}
}

// Validate checks every field. Errors wrap ErrInvalidConfig.
func (o *Options) Validate() error {
	if o == nil {
		return fmt.Errorf("%w: nil options", ErrInvalidConfig)
	}
	if !finitePositive(o.SampleRate) {
		return fmt.Errorf("%w: sample rate %v", ErrInvalidConfig, o.SampleRate)
	}
	if err := validateBandwidth(o.Bandwidth, o.SampleRate); err != nil {
		return err
	}
	if !finitePositive(o.OverSubtraction) {
		return fmt.Errorf("%w: over-subtraction %v must be positive", ErrInvalidConfig, o.OverSubtraction)
	}
	if o.NoiseFrames < 1 {
		return fmt.Errorf("%w: noise frames %d must be at least 1", ErrInvalidConfig, o.NoiseFrames)
	}
	if err := o.gainParams().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (o *Options) gainParams() gain.Params {
	return gain.Params{
		Smoothing: o.Smoothing,
		KsiMin:    o.KsiMin,
		Ceiling:   o.GainCeiling,
	}
}

func validateBandwidth(bw, sr float64) error {
	if !finitePositive(bw) || bw > sr {
		return fmt.Errorf("%w: bandwidth %v must be in (0, %v]", ErrInvalidConfig, bw, sr)
	}
	return nil
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
