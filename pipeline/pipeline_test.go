package pipeline

import (
	"errors"
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/logmmse"
)

func noise(rng *rand.Rand, n int, sigma float64) []complex128 {
	out := make([]complex128, n)
	for i := range out {
		out[i] = complex(rng.NormFloat64()*sigma, rng.NormFloat64()*sigma)
	}
	return out
}

func metricValue(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var pb dto.Metric
	require.NoError(t, m.Write(&pb))
	switch {
	case pb.Counter != nil:
		return pb.GetCounter().GetValue()
	case pb.Gauge != nil:
		return pb.GetGauge().GetValue()
	case pb.Histogram != nil:
		return float64(pb.GetHistogram().GetSampleCount())
	}
	t.Fatalf("unsupported metric type")
	return 0
}

type failingBlock struct {
	closeErr error
}

func (f *failingBlock) Kind() Kind   { return KindGain }
func (f *failingBlock) Name() string { return "failing" }
func (f *failingBlock) Process([]complex128) ([]complex128, error) {
	return nil, errors.New("boom")
}
func (f *failingBlock) Reset()       {}
func (f *failingBlock) Close() error { return f.closeErr }

func TestKindString(t *testing.T) {
	assert.Equal(t, "logmmse", KindLogMMSE.String())
	assert.Equal(t, "gain", KindGain.String())
	assert.Equal(t, "resample", KindResample.String())
	assert.Equal(t, "unknown(9)", Kind(9).String())
}

func TestGainBlock(t *testing.T) {
	tests := []struct {
		name      string
		gain      float64
		expectErr bool
	}{
		{name: "silence", gain: 0},
		{name: "unity", gain: 1},
		{name: "max", gain: MaxGain},
		{name: "negative", gain: -0.5, expectErr: true},
		{name: "too_high", gain: MaxGain + 0.1, expectErr: true},
		{name: "nan", gain: math.NaN(), expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGainBlock("g", tt.gain)
			if tt.expectErr {
				assert.ErrorIs(t, err, ErrInvalidGain)
				assert.Nil(t, g)
				return
			}
			require.NoError(t, err)
			out, err := g.Process([]complex128{1 + 2i, -3})
			require.NoError(t, err)
			assert.Equal(t, []complex128{complex(tt.gain, 2*tt.gain), complex(-3*tt.gain, 0)}, out)
		})
	}

	t.Run("set_gain", func(t *testing.T) {
		g, err := NewGainBlock("g", 1)
		require.NoError(t, err)
		require.NoError(t, g.SetGain(2))
		assert.Equal(t, 2.0, g.Gain())
		assert.ErrorIs(t, g.SetGain(5), ErrInvalidGain)
		assert.Equal(t, 2.0, g.Gain())
	})
}

func TestResampleBlockValidation(t *testing.T) {
	for _, rates := range [][2]float64{{0, 48000}, {48000, -1}, {math.Inf(1), 8000}, {math.NaN(), 8000}} {
		_, err := NewResampleBlock("r", rates[0], rates[1])
		assert.ErrorIs(t, err, ErrInvalidRate)
	}
}

func TestResampleBlockSameRate(t *testing.T) {
	r, err := NewResampleBlock("r", 16000, 16000)
	require.NoError(t, err)
	in := []complex128{1, 2, 3}
	out, err := r.Process(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestResampleBlockUpsampleLinear(t *testing.T) {
	r, err := NewResampleBlock("r", 8000, 16000)
	require.NoError(t, err)

	out, err := r.Process([]complex128{0, 2, 4, 6})
	require.NoError(t, err)
	assert.Equal(t, []complex128{0, 1, 2, 3, 4, 5, 6}, out)

	// the next call interpolates from the last sample of the previous one
	out, err = r.Process([]complex128{8, 10})
	require.NoError(t, err)
	assert.Equal(t, []complex128{7, 8, 9, 10}, out)
}

func TestResampleBlockDownsample(t *testing.T) {
	r, err := NewResampleBlock("r", 48000, 16000)
	require.NoError(t, err)

	in := make([]complex128, 30)
	for i := range in {
		in[i] = complex(float64(i), -float64(i))
	}
	out, err := r.Process(in)
	require.NoError(t, err)
	require.Len(t, out, 10)
	for i, v := range out {
		assert.Equal(t, complex(float64(3*i), -float64(3*i)), v)
	}
}

func TestResampleBlockSplitInvariance(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	in := noise(rng, 1000, 1)

	whole, err := NewResampleBlock("a", 44100, 16000)
	require.NoError(t, err)
	split, err := NewResampleBlock("b", 44100, 16000)
	require.NoError(t, err)

	want, err := whole.Process(in)
	require.NoError(t, err)

	var got []complex128
	for _, chunk := range [][]complex128{in[:1], in[1:333], in[333:334], in[334:]} {
		out, err := split.Process(chunk)
		require.NoError(t, err)
		got = append(got, out...)
	}

	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, 0, cmplx.Abs(want[i]-got[i]), 1e-9, "sample %d", i)
	}
}

func TestResampleBlockReset(t *testing.T) {
	r, err := NewResampleBlock("r", 8000, 16000)
	require.NoError(t, err)
	_, err = r.Process([]complex128{1, 2, 3})
	require.NoError(t, err)
	r.Reset()
	out, err := r.Process([]complex128{0, 2})
	require.NoError(t, err)
	assert.Equal(t, []complex128{0, 1, 2}, out)
}

func TestLogMMSEBlockBootstrapsFromStream(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	opts := logmmse.NewOptions(16000, 4000)
	b, err := NewLogMMSEBlock("nr", opts)
	require.NoError(t, err)
	defer b.Close()

	slen := b.Session().Geometry().Slen
	need := b.BootstrapLen()
	require.Equal(t, opts.NoiseFrames*slen, need)

	out, err := b.Process(noise(rng, need-1, 0.1))
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.False(t, b.Session().Bootstrapped())

	// completing the bootstrap also emits the buffered samples
	out, err = b.Process(noise(rng, 1, 0.1))
	require.NoError(t, err)
	assert.True(t, b.Session().Bootstrapped())
	assert.Len(t, out, need)

	out, err = b.Process(noise(rng, 160, 0.1))
	require.NoError(t, err)
	assert.Len(t, out, 160)
}

func TestLogMMSEBlockControls(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	b, err := NewLogMMSEBlock("nr", logmmse.NewOptions(16000, 4000))
	require.NoError(t, err)
	defer b.Close()

	_, err = b.Process(noise(rng, b.BootstrapLen(), 0.1))
	require.NoError(t, err)

	b.SetHold(true)
	assert.True(t, b.Stats().Hold)

	require.NoError(t, b.SetBandwidth(2000))
	assert.False(t, b.Session().Bootstrapped())
	assert.ErrorIs(t, b.SetBandwidth(0), logmmse.ErrInvalidConfig)

	out, err := b.Process(noise(rng, b.BootstrapLen(), 0.1))
	require.NoError(t, err)
	assert.Len(t, out, b.BootstrapLen())

	b.Reset()
	assert.False(t, b.Session().Bootstrapped())
	assert.Equal(t, 0, b.Stats().HistoryLen)
}

func TestLogMMSEBlockClosed(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	b, err := NewLogMMSEBlock("nr", logmmse.NewOptions(16000, 4000))
	require.NoError(t, err)
	require.NoError(t, b.Close())

	for i := 0; i < 3; i++ {
		out, err := b.Process(noise(rng, b.BootstrapLen(), 0.1))
		assert.ErrorIs(t, err, logmmse.ErrClosed)
		assert.Nil(t, out)
		assert.Empty(t, b.pending)
	}
}

func TestNewLogMMSEBlockInvalid(t *testing.T) {
	_, err := NewLogMMSEBlock("nr", logmmse.NewOptions(0, 1))
	assert.ErrorIs(t, err, logmmse.ErrInvalidConfig)
}

func TestPipelineChain(t *testing.T) {
	p := New(nil)
	g1, err := NewGainBlock("half", 0.5)
	require.NoError(t, err)
	g2, err := NewGainBlock("triple", 3)
	require.NoError(t, err)

	i1 := p.Add(g1)
	i2 := p.Add(g2)
	assert.Equal(t, 0, i1)
	assert.Equal(t, 1, i2)
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, []string{"half", "triple"}, p.Names())

	out, err := p.Process([]complex128{2, 4i})
	require.NoError(t, err)
	assert.Equal(t, []complex128{3, 6i}, out)

	require.NoError(t, p.SetEnabled(i2, false))
	assert.False(t, p.Enabled(i2))
	assert.True(t, p.Enabled(i1))
	out, err = p.Process([]complex128{2})
	require.NoError(t, err)
	assert.Equal(t, []complex128{1}, out)

	blk, err := p.Block(i1)
	require.NoError(t, err)
	assert.Same(t, g1, blk)
}

func TestPipelineGainFirstWorksInPlace(t *testing.T) {
	p := New(nil)
	g, err := NewGainBlock("double", 2)
	require.NoError(t, err)
	p.Add(g)

	in := []complex128{1, 2i}
	kept := append([]complex128(nil), in...)

	out, err := p.Process(kept)
	require.NoError(t, err)
	assert.Equal(t, []complex128{2, 4i}, out)
	assert.Equal(t, []complex128{2, 4i}, kept)
	assert.Equal(t, []complex128{1, 2i}, in)
}

func TestPipelineIndexErrors(t *testing.T) {
	p := New(nil)
	assert.ErrorIs(t, p.SetEnabled(0, true), ErrNoSuchBlock)
	_, err := p.Block(-1)
	assert.ErrorIs(t, err, ErrNoSuchBlock)
	assert.False(t, p.Enabled(3))
}

func TestPipelineStopsOnError(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	p := New(m)
	p.Add(&failingBlock{})
	g, err := NewGainBlock("after", 1)
	require.NoError(t, err)
	p.Add(g)

	_, err = p.Process([]complex128{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "block 0 (failing) failed")
	assert.Equal(t, 1.0, metricValue(t, m.Errors.WithLabelValues("failing")))
	assert.Equal(t, 0.0, metricValue(t, m.Samples.WithLabelValues("after")))
}

func TestPipelineCloseJoinsErrors(t *testing.T) {
	closeErr := errors.New("close failed")
	p := New(nil)
	p.Add(&failingBlock{closeErr: closeErr})
	p.Add(&failingBlock{})

	err := p.Close()
	assert.ErrorIs(t, err, closeErr)
	assert.Equal(t, 0, p.Len())
}

func TestPipelineNoiseReduction(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	p := New(m)

	nr, err := NewLogMMSEBlock("nr", logmmse.NewOptions(16000, 4000))
	require.NoError(t, err)
	rs, err := NewResampleBlock("rs", 16000, 8000)
	require.NoError(t, err)
	p.Add(nr)
	p.Add(rs)
	defer p.Close()

	var inEnergy, outEnergy float64
	var produced int
	for i := 0; i < 40; i++ {
		in := noise(rng, 320, 0.1)
		for _, v := range in {
			inEnergy += real(v)*real(v) + imag(v)*imag(v)
		}
		out, err := p.Process(in)
		require.NoError(t, err)
		produced += len(out)
		for _, v := range out {
			outEnergy += real(v)*real(v) + imag(v)*imag(v)
		}
	}

	// half rate, and the noise mostly removed
	assert.InDelta(t, 40*320/2, produced, 2)
	assert.Less(t, outEnergy, 0.25*inEnergy/2)

	assert.Equal(t, float64(40*320), metricValue(t, m.Samples.WithLabelValues("nr")))
	assert.Equal(t, 40.0, metricValue(t, m.BlockDuration.WithLabelValues("nr").(prometheus.Metric)))
	assert.Equal(t, 1.0, metricValue(t, m.Enabled.WithLabelValues("rs")))
	assert.Equal(t, float64(nr.Stats().Generation), metricValue(t, m.FloorGeneration.WithLabelValues("nr")))

	require.NoError(t, p.SetEnabled(1, false))
	assert.Equal(t, 0.0, metricValue(t, m.Enabled.WithLabelValues("rs")))

	p.Reset()
	assert.False(t, nr.Session().Bootstrapped())
}
