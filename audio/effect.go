package audio

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/logmmse"
	"github.com/opd-ai/logmmse/pipeline"
)

// AudioEffect defines the interface for PCM audio processing effects.
//
// Effects may return a different number of samples than they receive.
type AudioEffect interface {
	// Process applies the effect to PCM audio samples.
	Process(samples []int16) ([]int16, error)

	// GetName returns a human-readable name for the effect.
	GetName() string

	// Close releases any resources used by the effect.
	Close() error
}

// EffectConfig configures a NoiseReductionEffect.
type EffectConfig struct {
	SampleRate float64 // PCM sample rate in Hz
	Bandwidth  float64 // voice bandwidth in Hz; defaults to SampleRate/2
	MakeupGain float64 // linear gain after noise reduction; 0 or 1 disables it
	Metrics    *pipeline.Metrics
}

// NoiseReductionEffect removes stationary background noise from mono PCM.
//
// The first Slen·NoiseFrames samples are taken as noise-only and used to
// bootstrap the noise floor, so output starts once they have arrived. From
// then on output lags input by one analysis frame.
type NoiseReductionEffect struct {
	pipe    *pipeline.Pipeline
	nr      *pipeline.LogMMSEBlock
	work    []complex128
	pcm     []int16
	clipped int
}

// NewNoiseReductionEffect builds the effect and its processing pipeline.
func NewNoiseReductionEffect(cfg EffectConfig) (*NoiseReductionEffect, error) {
	bw := cfg.Bandwidth
	if bw == 0 {
		bw = cfg.SampleRate / 2
	}

	nr, err := pipeline.NewLogMMSEBlock("logmmse", logmmse.NewOptions(cfg.SampleRate, bw))
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "NewNoiseReductionEffect",
			"sample_rate": cfg.SampleRate,
			"bandwidth":   bw,
			"error":       err.Error(),
		}).Error("Failed to create noise reduction block")
		return nil, err
	}

	pipe := pipeline.New(cfg.Metrics)
	pipe.Add(nr)

	if cfg.MakeupGain != 0 && cfg.MakeupGain != 1 {
		g, err := pipeline.NewGainBlock("makeup", cfg.MakeupGain)
		if err != nil {
			_ = pipe.Close()
			return nil, err
		}
		pipe.Add(g)
	}

	logrus.WithFields(logrus.Fields{
		"function":    "NewNoiseReductionEffect",
		"sample_rate": cfg.SampleRate,
		"bandwidth":   bw,
		"blocks":      pipe.Names(),
	}).Info("Noise reduction effect created")

	return &NoiseReductionEffect{pipe: pipe, nr: nr}, nil
}

// Process denoises samples. The returned slice is reused by the next call.
func (e *NoiseReductionEffect) Process(samples []int16) ([]int16, error) {
	if len(samples) == 0 {
		return samples, nil
	}

	e.work = ToComplex(e.work, samples)
	out, err := e.pipe.Process(e.work)
	if err != nil {
		return nil, fmt.Errorf("noise reduction failed: %w", err)
	}

	var clipped int
	e.pcm, clipped = ToPCM(e.pcm, out)
	if clipped > 0 {
		e.clipped += clipped
		logrus.WithFields(logrus.Fields{
			"function":      "NoiseReductionEffect.Process",
			"clipped_count": clipped,
			"total_samples": len(out),
		}).Warn("Audio clipping detected after noise reduction")
	}

	return e.pcm, nil
}

// GetName returns the effect name.
func (e *NoiseReductionEffect) GetName() string {
	return "LogMMSENoiseReduction"
}

// SetHold freezes or releases the noise floor.
func (e *NoiseReductionEffect) SetHold(hold bool) {
	e.nr.SetHold(hold)
}

// SetBandwidth changes the voice bandwidth. The effect bootstraps again
// from the samples that follow.
func (e *NoiseReductionEffect) SetBandwidth(bw float64) error {
	return e.nr.SetBandwidth(bw)
}

// Stats returns the noise reducer diagnostics.
func (e *NoiseReductionEffect) Stats() logmmse.Stats {
	return e.nr.Stats()
}

// Bootstrapped reports whether output has started.
func (e *NoiseReductionEffect) Bootstrapped() bool {
	return e.nr.Session().Bootstrapped()
}

// Clipped returns the number of output samples clipped so far.
func (e *NoiseReductionEffect) Clipped() int {
	return e.clipped
}

// Close releases the pipeline.
func (e *NoiseReductionEffect) Close() error {
	return e.pipe.Close()
}
