package logmmse

import (
	"fmt"
	"io"
	"math/cmplx"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/opd-ai/logmmse/estimator"
	"github.com/opd-ai/logmmse/fft"
	"github.com/opd-ai/logmmse/frame"
	"github.com/opd-ai/logmmse/gain"
)

// Session is a streaming LogMMSE noise reducer for one complex stream.
//
// A Session is not safe for concurrent use. Independent sessions share
// nothing and may run on separate goroutines.
type Session struct {
	opts   Options
	params gain.Params
	geom   frame.Geometry

	window  []float64
	engine  *fft.Engine
	history *estimator.History
	floor   *estimator.Floor
	buffer  *frame.Buffer
	overlap *frame.OverlapAdd

	prevPower []float64 // Xk_prev

	spec   []complex128
	y      []complex128
	mag    []float64
	gains  []float64
	lambda []float64
	mean   []float64

	hold         bool
	bootstrapped bool
	closed       bool
}

// New creates a Session. Sample must be called before Process.
//
// Returns ErrInvalidConfig (wrapped) for bad options and ErrBackend
// (wrapped) if the transform plan cannot be built.
func New(opts *Options) (*Session, error) {
	log := newLogger("New")

	if err := opts.Validate(); err != nil {
		log.withError(err, "validate options").error("Invalid session options")
		return nil, err
	}

	s := &Session{
		opts:   *opts,
		params: opts.gainParams(),
	}
	if err := s.build(); err != nil {
		log.withError(err, "build session").error("Failed to build session")
		return nil, err
	}

	log.withFields(logrus.Fields{
		"sample_rate": s.geom.SampleRate,
		"bandwidth":   s.opts.Bandwidth,
		"slen":        s.geom.Slen,
		"nfft":        s.geom.NFFT,
		"audio":       s.geom.AudioRegime(),
		"window":      frame.WindowKindFor(s.geom.SampleRate).String(),
	}).info("Session created")

	return s, nil
}

// build allocates every component for the configured sample rate.
func (s *Session) build() error {
	geom, err := frame.NewGeometry(s.opts.SampleRate)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	engine, err := fft.NewEngine(geom.NFFT)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}

	n := geom.NFFT
	s.geom = geom
	s.window = frame.NewWindow(frame.WindowKindFor(geom.SampleRate), geom)
	s.engine = engine
	s.history = estimator.NewHistory(n, geom.HistoryCapacity())
	s.floor = estimator.NewFloor(n, geom.AudioRegime())
	s.floor.SetHold(s.hold)
	s.buffer = frame.NewBuffer(geom)
	s.overlap = frame.NewOverlapAdd(geom)
	s.prevPower = make([]float64, n)
	s.spec = make([]complex128, n)
	s.y = make([]complex128, n)
	s.mag = make([]float64, n)
	s.gains = make([]float64, n)
	s.lambda = make([]float64, n)
	s.mean = make([]float64, n)
	s.bootstrapped = false
	return nil
}

// Sample bootstraps the noise floor from a known-noisy segment.
//
// The first noiseFrames·Slen samples of x are split into non-overlapping
// Slen blocks; their mean magnitude spectrum seeds the floor. A
// non-positive noiseFrames selects Options.NoiseFrames. Any previous state
// is discarded. After Sample the session is primed with one frame of zeros,
// so Process output lags its input by Slen samples.
func (s *Session) Sample(x []complex128, noiseFrames int) error {
	if s.closed {
		return ErrClosed
	}
	if noiseFrames <= 0 {
		noiseFrames = s.opts.NoiseFrames
	}

	log := newLogger("Sample").withFields(logrus.Fields{
		"noise_frames": noiseFrames,
		"samples":      len(x),
	})

	slen := s.geom.Slen
	if len(x) < noiseFrames*slen {
		err := fmt.Errorf("%w: have %d, need %d", ErrShortSample, len(x), noiseFrames*slen)
		log.withError(err, "check length").error("Bootstrap segment too short")
		return err
	}

	s.clearState()

	for j := 0; j < noiseFrames; j++ {
		frame.Apply(s.spec, s.window, x[j*slen:(j+1)*slen])
		s.engine.Forward(s.spec, s.spec)
		magnitudes(s.mag, s.spec, false)
		s.history.Push(s.mag)
		floats.Add(s.mean, s.mag)
	}
	floats.Scale(1/float64(noiseFrames), s.mean)

	if zeros := countNonPositive(s.mean); zeros > 0 {
		log.withField("zero_bins", zeros).warn("Bootstrap spectrum has empty bins, repairing floor")
	}
	s.floor.Seed(s.mean)

	s.buffer.Prime(slen)
	s.bootstrapped = true

	minLevel, maxLevel := floats.Min(s.floor.Values()), floats.Max(s.floor.Values())
	log.withFields(logrus.Fields{
		"floor_min": minLevel,
		"floor_max": maxLevel,
	}).info("Session bootstrapped")

	return nil
}

// SetBandwidth validates and stores a new bandwidth and rebuilds all state.
// The session must be bootstrapped again afterwards.
func (s *Session) SetBandwidth(bw float64) error {
	if s.closed {
		return ErrClosed
	}

	log := newLogger("SetBandwidth").withFields(logrus.Fields{
		"old_bandwidth": s.opts.Bandwidth,
		"new_bandwidth": bw,
	})

	if err := validateBandwidth(bw, s.opts.SampleRate); err != nil {
		log.withError(err, "validate bandwidth").error("Invalid bandwidth")
		return err
	}

	s.opts.Bandwidth = bw
	if err := s.build(); err != nil {
		log.withError(err, "rebuild").error("Failed to rebuild session")
		return err
	}

	log.info("Bandwidth changed, bootstrap required")
	return nil
}

// SetHold freezes (true) or releases (false) the noise-floor estimator.
func (s *Session) SetHold(hold bool) {
	s.hold = hold
	if s.floor != nil {
		s.floor.SetHold(hold)
	}
	if debugEnabled() {
		newLogger("SetHold").withField("hold", hold).debug("Noise floor hold changed")
	}
}

// OutputLen returns how many samples Process would emit for an input of
// n samples given the currently buffered residual.
func (s *Session) OutputLen(n int) int {
	if s.buffer == nil {
		return 0
	}
	return s.geom.Frames(s.buffer.Len()+n) * s.geom.Len2
}

// Process denoises in and returns the completed hops.
//
// The output holds OutputLen(len(in)) samples; input that does not complete
// a hop is buffered for the next call. Splitting a stream across calls does
// not change the concatenated output.
func (s *Session) Process(in []complex128) ([]complex128, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	out := make([]complex128, s.OutputLen(len(in)))
	n, err := s.ProcessInto(out, in)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

// ProcessInto is Process writing into dst. It returns the number of samples
// written. dst must hold at least OutputLen(len(in)) samples, otherwise
// io.ErrShortBuffer (wrapped) is returned and no input is consumed.
func (s *Session) ProcessInto(dst, in []complex128) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}

	need := s.OutputLen(len(in))
	if len(dst) < need {
		return 0, fmt.Errorf("%w: need %d samples, have %d", io.ErrShortBuffer, need, len(dst))
	}

	s.buffer.Append(in)
	frames := s.buffer.Frames()
	x := s.buffer.Samples()
	len2 := s.geom.Len2

	for k := 0; k < frames; k++ {
		start := k * len2
		s.processFrame(dst[start:start+len2], x[start:start+s.geom.Slen])
	}
	s.buffer.Consume(frames * len2)

	if debugEnabled() {
		newLogger("ProcessInto").withFields(logrus.Fields{
			"input":      len(in),
			"frames":     frames,
			"residual":   s.buffer.Len(),
			"generation": s.floor.Generation(),
		}).debug("Processed input")
	}

	return frames * len2, nil
}

// processFrame runs one analysis frame x (Slen samples) and writes one hop
// of reconstructed output into out.
func (s *Session) processFrame(out, x []complex128) {
	frame.Apply(s.spec, s.window, x)
	s.engine.Forward(s.spec, s.spec)

	magnitudes(s.mag, s.spec, s.opts.ZeroRepair)

	s.history.Push(s.mag)
	s.floor.Update(s.history)

	floats.ScaleTo(s.lambda, s.opts.OverSubtraction, s.floor.Values())
	gain.Compute(s.gains, s.mag, s.prevPower, s.lambda, s.params)
	gain.UpdatePrior(s.prevPower, s.gains, s.mag)

	for z, h := range s.gains {
		s.spec[z] *= complex(h, 0)
	}
	s.engine.Inverse(s.y, s.spec)
	s.overlap.Add(out, s.y)
}

// Reset clears the gain memory, the overlap tail, the noise floor, the
// history and any buffered input. The session must be bootstrapped again.
// Hold is kept.
func (s *Session) Reset() {
	if s.closed {
		return
	}
	s.clearState()
	s.bootstrapped = false
	newLogger("Reset").info("Session reset")
}

func (s *Session) clearState() {
	clear(s.prevPower)
	clear(s.mean)
	s.overlap.Reset()
	s.history.Reset()
	s.floor.Reset()
	s.buffer.Reset()
}

// Bootstrapped reports whether Sample has run since the last rebuild or Reset.
func (s *Session) Bootstrapped() bool {
	return s.bootstrapped
}

// Geometry returns the frame geometry in use.
func (s *Session) Geometry() frame.Geometry {
	return s.geom
}

// NoiseFloor returns a copy of the current per-bin noise power.
func (s *Session) NoiseFloor() []float64 {
	if s.floor == nil {
		return nil
	}
	return append([]float64(nil), s.floor.Values()...)
}

// Close releases the session's buffers. Further calls return ErrClosed.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.bootstrapped = false
	s.engine = nil
	s.history = nil
	s.floor = nil
	s.buffer = nil
	s.overlap = nil
	newLogger("Close").info("Session closed")
	return nil
}

func (s *Session) ready() error {
	if s.closed {
		return ErrClosed
	}
	if !s.bootstrapped {
		return ErrNotBootstrapped
	}
	return nil
}

// magnitudes writes |spec| into dst. With repair set, an exactly zero bin
// above DC takes the magnitude of the bin below it.
func magnitudes(dst []float64, spec []complex128, repair bool) {
	for z, v := range spec {
		m := cmplx.Abs(v)
		if m == 0 && z > 0 && repair {
			m = dst[z-1]
		}
		dst[z] = m
	}
}

func countNonPositive(v []float64) int {
	n := 0
	for _, x := range v {
		if !(x > 0) {
			n++
		}
	}
	return n
}
