package pipeline

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/logmmse"
)

// LogMMSEBlock wraps a Session and bootstraps it from the head of the
// stream.
//
// Until NoiseFrames·Slen samples have arrived the block buffers its input
// and returns nothing. It then samples the noise floor from those samples
// and processes them as well, so the output stream has no gap.
type LogMMSEBlock struct {
	name        string
	session     *logmmse.Session
	noiseFrames int
	pending     []complex128
	closed      bool
}

// NewLogMMSEBlock creates a noise-reduction block. opts.NoiseFrames sets
// the bootstrap length.
func NewLogMMSEBlock(name string, opts *logmmse.Options) (*LogMMSEBlock, error) {
	s, err := logmmse.New(opts)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":     "NewLogMMSEBlock",
		"name":         name,
		"noise_frames": opts.NoiseFrames,
		"slen":         s.Geometry().Slen,
	}).Info("Noise reduction block created")

	return &LogMMSEBlock{
		name:        name,
		session:     s,
		noiseFrames: opts.NoiseFrames,
	}, nil
}

// Kind returns KindLogMMSE.
func (b *LogMMSEBlock) Kind() Kind { return KindLogMMSE }

// Name returns the block name.
func (b *LogMMSEBlock) Name() string { return b.name }

// Process denoises in, bootstrapping the session first if needed.
// After Close it returns logmmse.ErrClosed without buffering.
func (b *LogMMSEBlock) Process(in []complex128) ([]complex128, error) {
	if b.closed {
		return nil, logmmse.ErrClosed
	}
	if b.session.Bootstrapped() {
		return b.session.Process(in)
	}

	b.pending = append(b.pending, in...)
	need := b.BootstrapLen()
	if len(b.pending) < need {
		return nil, nil
	}

	if err := b.session.Sample(b.pending[:need], b.noiseFrames); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "LogMMSEBlock.Process",
		"name":     b.name,
		"samples":  len(b.pending),
	}).Info("Noise reduction block bootstrapped from stream")

	out, err := b.session.Process(b.pending)
	b.pending = nil
	return out, err
}

// BootstrapLen returns the number of samples buffered before output starts.
func (b *LogMMSEBlock) BootstrapLen() int {
	return b.noiseFrames * b.session.Geometry().Slen
}

// SetHold freezes or releases the noise floor.
func (b *LogMMSEBlock) SetHold(hold bool) {
	b.session.SetHold(hold)
}

// SetBandwidth changes the bandwidth; the block bootstraps again from the
// samples that follow.
func (b *LogMMSEBlock) SetBandwidth(bw float64) error {
	b.pending = nil
	return b.session.SetBandwidth(bw)
}

// Stats returns the session diagnostics.
func (b *LogMMSEBlock) Stats() logmmse.Stats {
	return b.session.Stats()
}

// Session exposes the wrapped session.
func (b *LogMMSEBlock) Session() *logmmse.Session {
	return b.session
}

// Reset drops all state; the block bootstraps again from the next samples.
func (b *LogMMSEBlock) Reset() {
	b.pending = nil
	b.session.Reset()
}

// Close releases the session.
func (b *LogMMSEBlock) Close() error {
	b.closed = true
	b.pending = nil
	return b.session.Close()
}
