package estimator

import (
	"math"
	"slices"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

const (
	// MinHistory is the number of frames the history must exceed before the
	// floor is updated.
	MinHistory = 100

	// RecentFrames is the number of newest frames averaged by the audio regime.
	RecentFrames = 12

	// AudioSmoothing is the moving-average width of the audio regime.
	AudioSmoothing = 6

	// WideSmoothing is the moving-average width applied to the bootstrap
	// floor in the wide IF regime.
	WideSmoothing = 120

	// CenterMaskPercent is the half-width of the excluded centre region,
	// as a percentage of nFFT.
	CenterMaskPercent = 15

	// PercentileDivisor selects the θ reference at index nFFT/10.
	PercentileDivisor = 10

	// PercentileSurplus scales the θ reference.
	PercentileSurplus = 1.2

	// MinPower replaces an all-zero floor.
	MinPower = 1e-12
)

// Floor is the per-bin noise power estimate.
type Floor struct {
	nfft  int
	audio bool

	mu2      []float64
	backup   []float64
	cand     []float64
	devSq    []float64
	sorted   []float64
	prefix   []float64
	selected []bool

	generation int64
	stable     bool
	hold       bool
	minLevel   float64
	maxLevel   float64
}

// NewFloor returns a zero floor for nfft bins. audio selects the audio
// regime; otherwise the wide IF regime is used.
func NewFloor(nfft int, audio bool) *Floor {
	return &Floor{
		nfft:     nfft,
		audio:    audio,
		mu2:      make([]float64, nfft),
		backup:   make([]float64, nfft),
		cand:     make([]float64, nfft),
		devSq:    make([]float64, nfft),
		sorted:   make([]float64, nfft),
		prefix:   make([]float64, nfft+1),
		selected: make([]bool, nfft),
	}
}

// Seed initialises the floor from the mean bootstrap magnitude spectrum.
// The wide IF regime smooths the mean over WideSmoothing bins before
// squaring. Non-positive bins are repaired from their neighbours.
func (f *Floor) Seed(meanMag []float64) {
	copy(f.mu2, meanMag)
	if !f.audio {
		MovingAverage(f.mu2, f.mu2, WideSmoothing, f.prefix)
	}
	floats.Mul(f.mu2, f.mu2)
	RepairPositive(f.mu2)

	f.generation = 0
	f.stable = false
	f.minLevel = 0
	f.maxLevel = 0
	clear(f.selected)
}

// Update refines the floor from h. It reports whether the floor values
// changed. Nothing happens while held or while h holds MinHistory frames
// or fewer.
func (f *Floor) Update(h *History) bool {
	if f.hold || h.Len() <= MinHistory {
		return false
	}

	var changed bool
	if f.audio {
		changed = f.updateAudio(h)
	} else {
		changed = f.updateWide(h)
	}
	f.generation++

	if changed && logrus.IsLevelEnabled(logrus.DebugLevel) {
		logrus.WithFields(logrus.Fields{
			"function":   "Floor.Update",
			"generation": f.generation,
			"audio":      f.audio,
			"min_level":  f.minLevel,
			"max_level":  f.maxLevel,
		}).Debug("Noise floor updated")
	}
	return changed
}

func (f *Floor) updateAudio(h *History) bool {
	if f.generation == 0 {
		MovingAverage(f.cand, f.mu2, AudioSmoothing, f.prefix)
		f.minLevel = floats.Min(f.cand)
		f.maxLevel = floats.Max(f.cand)
		return false
	}

	n := min(RecentFrames, h.Len())
	clear(f.cand)
	for i := 0; i < n; i++ {
		floats.Add(f.cand, h.Recent(i))
	}
	floats.Scale(1/float64(n), f.cand)
	floats.Mul(f.cand, f.cand)
	MovingAverage(f.cand, f.cand, AudioSmoothing, f.prefix)

	tmin := floats.Min(f.cand)
	tmax := floats.Max(f.cand)
	if !(tmin > 0) || tmin+tmax >= f.minLevel+f.maxLevel {
		return false
	}

	copy(f.mu2, f.cand)
	f.minLevel = tmin
	f.maxLevel = tmax
	f.stable = true
	return true
}

func (f *Floor) updateWide(h *History) bool {
	n := float64(h.Len())
	half := f.nfft / 2
	mask := f.nfft * CenterMaskPercent / 100

	floats.ScaleTo(f.cand, 1/n, h.Sums())
	floats.ScaleTo(f.devSq, 1/n, h.Devs())
	floats.Mul(f.devSq, f.devSq)
	for z := range f.devSq {
		d := z - half
		if d < 0 {
			d = -d
		}
		if d < mask {
			f.devSq[z] = math.Inf(1)
		}
	}

	copy(f.sorted, f.devSq)
	slices.Sort(f.sorted)
	theta := f.sorted[f.nfft/PercentileDivisor] * PercentileSurplus

	copy(f.backup, f.mu2)
	clear(f.mu2)
	measured := false
	for z, d := range f.devSq {
		m := f.cand[z]
		f.selected[z] = d < theta && m > 0
		if f.selected[z] {
			f.mu2[z] = m * m
			measured = true
		}
	}

	if !measured {
		copy(f.mu2, f.backup)
		return false
	}

	interpolateGaps(f.mu2, f.selected)
	f.minLevel = floats.Min(f.mu2)
	f.maxLevel = floats.Max(f.mu2)
	f.stable = true
	return true
}

// Values returns the current floor. Callers must not modify it.
func (f *Floor) Values() []float64 {
	return f.mu2
}

// Selected reports which bins were measured directly by the last wide IF
// update. Callers must not modify it.
func (f *Floor) Selected() []bool {
	return f.selected
}

// Generation returns the number of updates run since Seed.
func (f *Floor) Generation() int64 {
	return f.generation
}

// Stable reports whether a measured floor has been committed.
func (f *Floor) Stable() bool {
	return f.stable
}

// Levels returns the recorded minimum and maximum floor levels.
func (f *Floor) Levels() (minLevel, maxLevel float64) {
	return f.minLevel, f.maxLevel
}

// SetHold freezes or releases the floor.
func (f *Floor) SetHold(hold bool) {
	f.hold = hold
}

// Held reports whether the floor is frozen.
func (f *Floor) Held() bool {
	return f.hold
}

// Audio reports whether the audio regime is in use.
func (f *Floor) Audio() bool {
	return f.audio
}

// Reset zeroes the floor and its update state. Hold is kept.
func (f *Floor) Reset() {
	clear(f.mu2)
	clear(f.selected)
	f.generation = 0
	f.stable = false
	f.minLevel = 0
	f.maxLevel = 0
}

// MovingAverage writes the centred moving average of src over w samples
// into dst. Near the edges the window is truncated and the average taken
// over the samples that remain. prefix must have length len(src)+1.
// dst may alias src.
func MovingAverage(dst, src []float64, w int, prefix []float64) {
	n := len(src)
	prefix[0] = 0
	for i, v := range src {
		prefix[i+1] = prefix[i] + v
	}
	for i := 0; i < n; i++ {
		lo := max(i-w/2, 0)
		hi := min(i-w/2+w, n)
		dst[i] = (prefix[hi] - prefix[lo]) / float64(hi-lo)
	}
}

// RepairPositive replaces non-positive or NaN entries with the nearest
// positive entry to their left, or to their right at the leading edge.
// If no entry is positive every entry becomes MinPower.
func RepairPositive(v []float64) {
	first := slices.IndexFunc(v, func(x float64) bool { return x > 0 })
	if first < 0 {
		for i := range v {
			v[i] = MinPower
		}
		return
	}
	last := v[first]
	for i := range v {
		if v[i] > 0 {
			last = v[i]
			continue
		}
		v[i] = last
	}
}

// interpolateGaps fills unselected bins linearly between selected
// neighbours and extends the outermost selected values to the edges.
// At least one bin must be selected.
func interpolateGaps(v []float64, selected []bool) {
	first, last := -1, -1
	for q, ok := range selected {
		if !ok {
			continue
		}
		if last >= 0 && q-last > 1 {
			step := (v[q] - v[last]) / float64(q-last)
			for w := last + 1; w < q; w++ {
				v[w] = v[last] + step*float64(w-last)
			}
		}
		if first < 0 {
			first = q
		}
		last = q
	}
	for w := 0; w < first; w++ {
		v[w] = v[first]
	}
	for w := last + 1; w < len(v); w++ {
		v[w] = v[last]
	}
}
