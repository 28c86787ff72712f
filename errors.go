package logmmse

import "errors"

// Sentinel errors for Session operations.
// These errors enable reliable error classification using errors.Is().

// Configuration errors.
var (
	// ErrInvalidConfig indicates an invalid sample rate, bandwidth or
	// tuning parameter.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrBackend indicates the FFT backend could not build a plan.
	ErrBackend = errors.New("fft backend error")
)

// Bootstrap errors.
var (
	// ErrShortSample indicates fewer bootstrap samples than noiseFrames·Slen.
	ErrShortSample = errors.New("not enough bootstrap samples")
)

// Processing errors.
var (
	// ErrNotBootstrapped indicates Process was called before Sample.
	ErrNotBootstrapped = errors.New("session not bootstrapped")

	// ErrClosed indicates the session has been closed.
	ErrClosed = errors.New("session closed")
)
