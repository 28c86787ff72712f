// Package gain implements the Ephraim–Malah log-spectral amplitude (LogMMSE)
// gain rule with a decision-directed a-priori SNR estimate.
//
// For every bin k with magnitude σ[k] and noise power λ[k]:
//
//	γ = min(σ²/λ, 40)                         a-posteriori SNR
//	ξ = aa·Xprev/λ + (1-aa)·max(γ-1, 0)       a-priori SNR, floored at ksi_min
//	A = ξ/(ξ+1)
//	H = A·exp(E1(A·γ)/2)
//
// When the previous denoised power spectrum is all zero (the first frame of
// a session) ξ = (1-aa)·max(γ-1, 0) + aa instead.
package gain

import (
	"errors"
	"fmt"
	"math"
)

const (
	// DefaultSmoothing is the decision-directed smoothing factor aa.
	DefaultSmoothing = 0.98

	// MaxPosteriorSNR clips the a-posteriori SNR γ.
	MaxPosteriorSNR = 40.0

	// DefaultCeiling caps the gain so bins are never amplified.
	DefaultCeiling = 1.0
)

// DefaultKsiMin is the a-priori SNR floor, 10^(-25/10).
var DefaultKsiMin = math.Pow(10, -2.5)

// ErrInvalidParams is returned by Params.Validate.
var ErrInvalidParams = errors.New("invalid gain parameters")

// Params configures the gain rule.
type Params struct {
	Smoothing float64 // aa, in (0, 1)
	KsiMin    float64 // ξ floor, > 0
	Ceiling   float64 // upper bound on H, > 0
}

// DefaultParams returns aa = 0.98, ksi_min = 10^(-2.5) and a unity ceiling.
func DefaultParams() Params {
	return Params{
		Smoothing: DefaultSmoothing,
		KsiMin:    DefaultKsiMin,
		Ceiling:   DefaultCeiling,
	}
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	if !(p.Smoothing > 0 && p.Smoothing < 1) {
		return fmt.Errorf("%w: smoothing %v must be in (0, 1)", ErrInvalidParams, p.Smoothing)
	}
	if !(p.KsiMin > 0) || math.IsInf(p.KsiMin, 0) {
		return fmt.Errorf("%w: ksi_min %v must be positive", ErrInvalidParams, p.KsiMin)
	}
	if !(p.Ceiling > 0) || math.IsInf(p.Ceiling, 0) {
		return fmt.Errorf("%w: ceiling %v must be positive", ErrInvalidParams, p.Ceiling)
	}
	return nil
}

// Compute fills dst with the LogMMSE gain of every bin.
//
// Parameters:
//   - dst: output gains, len(mag)
//   - mag: current frame magnitudes σ
//   - prevPower: previous frame denoised power spectrum (Xk_prev)
//   - noisePower: noise power λ, strictly positive
//   - p: rule parameters
//
// All slices must share the same length. Compute does not allocate.
func Compute(dst, mag, prevPower, noisePower []float64, p Params) {
	first := allZero(prevPower)
	aa := p.Smoothing

	for k, sigma := range mag {
		lambda := noisePower[k]
		gamma := math.Min(sigma*sigma/lambda, MaxPosteriorSNR)
		excess := math.Max(gamma-1, 0)

		var ksi float64
		if first {
			ksi = (1-aa)*excess + aa
		} else {
			ksi = math.Max(aa*prevPower[k]/lambda+(1-aa)*excess, p.KsiMin)
		}

		dst[k] = Bin(ksi, gamma, p.Ceiling)
	}
}

// Bin returns the gain for one bin given its a-priori SNR ksi and
// a-posteriori SNR gamma, capped at ceiling.
func Bin(ksi, gamma, ceiling float64) float64 {
	a := ksi / (ksi + 1)
	v := a * gamma
	if v <= 0 {
		// E1 diverges at zero; the limit of the gain is +Inf.
		return ceiling
	}
	h := a * math.Exp(0.5*E1(v))
	if h > ceiling || math.IsNaN(h) {
		return ceiling
	}
	return h
}

// UpdatePrior stores (H·σ)² into prevPower for the next frame.
func UpdatePrior(prevPower, gains, mag []float64) {
	for k, h := range gains {
		s := h * mag[k]
		prevPower[k] = s * s
	}
}

func allZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
