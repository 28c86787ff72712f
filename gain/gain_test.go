package gain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestE1ReferenceValues(t *testing.T) {
	tests := []struct {
		v    float64
		want float64
	}{
		{v: 0.1, want: 1.8229239584193906},
		{v: 0.5, want: 0.5597735947761608},
		{v: 1, want: 0.21938393439552029},
		{v: 2, want: 0.04890051070806112},
		{v: 5, want: 0.0011482955912753257},
		{v: 10, want: 4.156968929685324e-06},
	}

	for _, tt := range tests {
		got := E1(tt.v)
		assert.InEpsilon(t, tt.want, got, 1e-9, "E1(%v)", tt.v)
	}
}

func TestE1Regions(t *testing.T) {
	t.Run("above_upper_is_zero", func(t *testing.T) {
		assert.Equal(t, 0.0, E1(200.5))
		assert.Equal(t, 0.0, E1(1e6))
	})

	t.Run("below_lower_is_asymptotic", func(t *testing.T) {
		v := 1e-8
		assert.Equal(t, -EulerGamma-math.Log(v), E1(v))
	})

	t.Run("non_positive_is_inf", func(t *testing.T) {
		assert.True(t, math.IsInf(E1(0), 1))
		assert.True(t, math.IsInf(E1(-1), 1))
	})

	t.Run("continuous_at_series_switch", func(t *testing.T) {
		below := E1(math.Nextafter(1, 0))
		above := E1(math.Nextafter(1, 2))
		assert.InEpsilon(t, below, above, 1e-9)
	})

	t.Run("asymptotic_matches_series_near_lower", func(t *testing.T) {
		// the dropped series terms are O(v), far below 1e-6 relative
		assert.InEpsilon(t, e1Series(E1Lower), E1(math.Nextafter(E1Lower, 0)), 1e-6)
	})

	t.Run("strictly_decreasing", func(t *testing.T) {
		prev := math.Inf(1)
		for v := 1e-6; v < 200; v *= 1.5 {
			cur := E1(v)
			assert.Less(t, cur, prev, "E1 must decrease at v=%v", v)
			assert.Greater(t, cur, 0.0)
			prev = cur
		}
	})

	t.Run("large_argument_bound", func(t *testing.T) {
		// e^{-v}/(v+1) < E1(v) < e^{-v}/v
		for _, v := range []float64{20, 50, 100, 199} {
			got := E1(v)
			assert.Greater(t, got, math.Exp(-v)/(v+1))
			assert.Less(t, got, math.Exp(-v)/v)
		}
	})
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(p *Params)
		expectErr bool
	}{
		{name: "defaults", mutate: func(p *Params) {}},
		{name: "smoothing_zero", mutate: func(p *Params) { p.Smoothing = 0 }, expectErr: true},
		{name: "smoothing_one", mutate: func(p *Params) { p.Smoothing = 1 }, expectErr: true},
		{name: "ksi_min_zero", mutate: func(p *Params) { p.KsiMin = 0 }, expectErr: true},
		{name: "ksi_min_nan", mutate: func(p *Params) { p.KsiMin = math.NaN() }, expectErr: true},
		{name: "ceiling_negative", mutate: func(p *Params) { p.Ceiling = -1 }, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			err := p.Validate()
			if tt.expectErr {
				assert.ErrorIs(t, err, ErrInvalidParams)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestComputeBounds(t *testing.T) {
	p := DefaultParams()
	const n = 64

	noise := make([]float64, n)
	for i := range noise {
		noise[i] = 1
	}

	// sweep magnitude and prior power over many decades
	for _, priorScale := range []float64{0, 1e-6, 1e-2, 1, 100, 1e6} {
		mag := make([]float64, n)
		prev := make([]float64, n)
		for i := range mag {
			mag[i] = math.Pow(10, -4+8*float64(i)/n)
			prev[i] = priorScale * float64(i%5)
		}
		dst := make([]float64, n)
		Compute(dst, mag, prev, noise, p)

		for k, h := range dst {
			require.False(t, math.IsNaN(h), "bin %d NaN", k)
			assert.GreaterOrEqual(t, h, 0.0, "bin %d", k)
			assert.LessOrEqual(t, h, 1.0+1e-12, "bin %d", k)
		}
	}
}

func TestComputeFirstFrameRule(t *testing.T) {
	p := DefaultParams()
	mag := []float64{3}
	noise := []float64{1}
	dst := make([]float64, 1)

	Compute(dst, mag, []float64{0}, noise, p)

	gamma := 9.0
	ksi := (1-p.Smoothing)*(gamma-1) + p.Smoothing
	a := ksi / (ksi + 1)
	want := a * math.Exp(0.5*E1(a*gamma))
	assert.InDelta(t, want, dst[0], 1e-12)
}

func TestComputeDecisionDirected(t *testing.T) {
	p := DefaultParams()
	mag := []float64{2, 0.1}
	noise := []float64{1, 1}
	prev := []float64{50, 0}
	dst := make([]float64, 2)

	Compute(dst, mag, prev, noise, p)

	// bin 0: prior dominated
	ksi0 := p.Smoothing*50 + (1-p.Smoothing)*3
	a0 := ksi0 / (ksi0 + 1)
	assert.InDelta(t, a0*math.Exp(0.5*E1(a0*4)), dst[0], 1e-12)

	// bin 1: floored at ksi_min
	a1 := p.KsiMin / (p.KsiMin + 1)
	assert.InDelta(t, a1*math.Exp(0.5*E1(a1*0.01)), dst[1], 1e-12)
}

func TestComputeClipsPosteriorSNR(t *testing.T) {
	p := DefaultParams()
	prev := []float64{1}
	noise := []float64{1}
	a := make([]float64, 1)
	b := make([]float64, 1)

	Compute(a, []float64{100}, prev, noise, p)
	Compute(b, []float64{1000}, prev, noise, p)

	assert.Equal(t, a[0], b[0], "gamma above 40 must be clipped")
}

func TestStrongSignalPassesNoiseSuppressed(t *testing.T) {
	p := DefaultParams()
	noise := []float64{1, 1}
	prev := []float64{1e4, 1e-4}
	mag := []float64{100, 0.8}
	dst := make([]float64, 2)

	Compute(dst, mag, prev, noise, p)

	assert.Greater(t, dst[0], 0.97)
	assert.Less(t, dst[1], 0.2)
}

func TestBinCeiling(t *testing.T) {
	assert.Equal(t, 1.0, Bin(DefaultKsiMin, 0, 1))
	assert.Equal(t, 0.5, Bin(DefaultKsiMin, 1e-9, 0.5))
	assert.LessOrEqual(t, Bin(1e9, 40, 1.2), 1.2)
}

func TestUpdatePrior(t *testing.T) {
	prev := make([]float64, 3)
	UpdatePrior(prev, []float64{0.5, 1, 0}, []float64{4, 3, 7})
	assert.Equal(t, []float64{4, 9, 0}, prev)
}

func BenchmarkCompute(b *testing.B) {
	p := DefaultParams()
	const n = 1920
	mag := make([]float64, n)
	prev := make([]float64, n)
	noise := make([]float64, n)
	dst := make([]float64, n)
	for i := range mag {
		mag[i] = float64(i%13) + 0.5
		prev[i] = float64(i % 7)
		noise[i] = 4
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Compute(dst, mag, prev, noise, p)
	}
}
