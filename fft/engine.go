// Package fft wraps the gonum complex FFT as a preallocated forward/inverse
// pair of a fixed size.
//
// An Engine owns its work buffers and must be confined to one goroutine.
// The inverse transform is normalized by 1/n so that Inverse(Forward(x)) == x.
package fft

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/dsp/fourier"
)

// ErrPlan is returned when a transform plan cannot be built.
var ErrPlan = errors.New("fft plan construction failed")

// Engine performs complex-to-complex transforms of a fixed size.
type Engine struct {
	n     int
	scale float64
	plan  *fourier.CmplxFFT
	work  []complex128
}

// NewEngine builds a transform plan of size n.
//
// Parameters:
//   - n: transform length, must be positive
//
// Returns:
//   - *Engine: plan with preallocated buffers
//   - error: ErrPlan (wrapped) if the backend rejects the size
func NewEngine(n int) (engine *Engine, err error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: size %d", ErrPlan, n)
	}

	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"function": "NewEngine",
				"size":     n,
				"panic":    r,
			}).Error("FFT backend rejected plan")
			engine = nil
			err = fmt.Errorf("%w: size %d: %v", ErrPlan, n, r)
		}
	}()

	plan := fourier.NewCmplxFFT(n)

	logrus.WithFields(logrus.Fields{
		"function": "NewEngine",
		"size":     n,
	}).Debug("FFT plan allocated")

	return &Engine{
		n:     n,
		scale: 1 / float64(n),
		plan:  plan,
		work:  make([]complex128, n),
	}, nil
}

// Len returns the transform size.
func (e *Engine) Len() int {
	return e.n
}

// Forward writes the DFT of src into dst. Both must have length Len();
// src is left untouched.
func (e *Engine) Forward(dst, src []complex128) {
	copy(e.work, src)
	e.plan.Coefficients(dst, e.work)
}

// Inverse writes the normalized inverse DFT of src into dst. Both must have
// length Len(); src is left untouched.
func (e *Engine) Inverse(dst, src []complex128) {
	copy(e.work, src)
	e.plan.Sequence(dst, e.work)
	for i, v := range dst {
		dst[i] = complex(real(v)*e.scale, imag(v)*e.scale)
	}
}
