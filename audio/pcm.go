// Package audio adapts LogMMSE noise reduction to 16-bit PCM voice streams.
//
// Real-valued PCM is carried in the real part of the complex samples the
// noise reducer works on; the imaginary part of the output is discarded.
// NoiseReductionEffect implements the AudioEffect interface for PCM chunks,
// and OpusDenoiser decodes Opus packets with pion/opus before denoising.
package audio

import (
	"encoding/binary"
	"math"
)

// pcmScale maps int16 full scale to [-1, 1).
const pcmScale = 32768.0

// ToComplex converts PCM samples to complex samples in [-1, 1), reusing dst
// when it has enough capacity.
func ToComplex(dst []complex128, pcm []int16) []complex128 {
	dst = grow(dst, len(pcm))
	for i, v := range pcm {
		dst[i] = complex(float64(v)/pcmScale, 0)
	}
	return dst
}

// ToPCM converts the real part of x back to PCM, reusing dst when it has
// enough capacity. It returns the samples and how many were clipped.
func ToPCM(dst []int16, x []complex128) ([]int16, int) {
	if cap(dst) < len(x) {
		dst = make([]int16, len(x))
	}
	dst = dst[:len(x)]

	clipped := 0
	for i, v := range x {
		s := math.Round(real(v) * pcmScale)
		switch {
		case s > math.MaxInt16:
			dst[i] = math.MaxInt16
			clipped++
		case s < math.MinInt16:
			dst[i] = math.MinInt16
			clipped++
		default:
			dst[i] = int16(s)
		}
	}
	return dst, clipped
}

// BytesToPCM decodes little-endian 16-bit samples.
func BytesToPCM(dst []int16, b []byte) []int16 {
	n := len(b) / 2
	if cap(dst) < n {
		dst = make([]int16, n)
	}
	dst = dst[:n]
	for i := range dst {
		dst[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return dst
}

// Downmix averages interleaved stereo into mono in place and returns the
// mono slice.
func Downmix(stereo []int16) []int16 {
	n := len(stereo) / 2
	for i := 0; i < n; i++ {
		stereo[i] = int16((int32(stereo[2*i]) + int32(stereo[2*i+1])) / 2)
	}
	return stereo[:n]
}

func grow(dst []complex128, n int) []complex128 {
	if cap(dst) < n {
		return make([]complex128, n)
	}
	return dst[:n]
}
