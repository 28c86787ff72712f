// Package pipeline composes noise reduction with other per-stream blocks.
//
// A Pipeline holds its blocks in an index arena. Each link can be enabled or
// bypassed without rewiring, and blocks are addressed by the index Add
// returned. Samples flow through enabled blocks in insertion order.
//
// Block kinds form a closed set:
//
//	KindLogMMSE   streaming LogMMSE noise reduction (LogMMSEBlock)
//	KindGain      linear gain (GainBlock)
//	KindResample  linear-interpolation rate conversion (ResampleBlock)
package pipeline

import (
	"errors"
	"fmt"
)

// Kind identifies a block type.
type Kind int

const (
	KindLogMMSE Kind = iota
	KindGain
	KindResample
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindLogMMSE:
		return "logmmse"
	case KindGain:
		return "gain"
	case KindResample:
		return "resample"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Block is one processing stage of a pipeline.
//
// Process may return fewer or more samples than it received; blocks that
// buffer internally return an empty slice until they have output.
// Process may reuse in as its output.
type Block interface {
	Kind() Kind
	Name() string
	Process(in []complex128) ([]complex128, error)
	Reset()
	Close() error
}

// Sentinel errors for pipeline operations.
var (
	// ErrNoSuchBlock indicates an index outside the pipeline.
	ErrNoSuchBlock = errors.New("no such block")

	// ErrInvalidGain indicates a gain outside [0, MaxGain].
	ErrInvalidGain = errors.New("invalid gain")

	// ErrInvalidRate indicates a non-positive or non-finite sample rate.
	ErrInvalidRate = errors.New("invalid sample rate")
)
