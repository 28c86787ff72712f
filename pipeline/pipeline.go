package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

type link struct {
	block   Block
	enabled bool
}

// Pipeline runs samples through a sequence of blocks.
//
// A Pipeline is not safe for concurrent use.
type Pipeline struct {
	links   []link
	metrics *Metrics
}

// New creates an empty pipeline. metrics may be nil.
func New(metrics *Metrics) *Pipeline {
	logrus.WithFields(logrus.Fields{
		"function": "pipeline.New",
		"metrics":  metrics != nil,
	}).Info("Creating processing pipeline")

	return &Pipeline{metrics: metrics}
}

// Add appends an enabled block and returns its index.
func (p *Pipeline) Add(b Block) int {
	idx := len(p.links)
	p.links = append(p.links, link{block: b, enabled: true})
	p.metrics.setEnabled(b.Name(), true)

	logrus.WithFields(logrus.Fields{
		"function": "Pipeline.Add",
		"index":    idx,
		"block":    b.Name(),
		"kind":     b.Kind().String(),
	}).Info("Block added to pipeline")

	return idx
}

// SetEnabled enables or bypasses the block at idx.
func (p *Pipeline) SetEnabled(idx int, enabled bool) error {
	if idx < 0 || idx >= len(p.links) {
		return fmt.Errorf("%w: index %d of %d", ErrNoSuchBlock, idx, len(p.links))
	}
	p.links[idx].enabled = enabled
	p.metrics.setEnabled(p.links[idx].block.Name(), enabled)

	logrus.WithFields(logrus.Fields{
		"function": "Pipeline.SetEnabled",
		"index":    idx,
		"block":    p.links[idx].block.Name(),
		"enabled":  enabled,
	}).Info("Block state changed")

	return nil
}

// Enabled reports whether the block at idx is enabled. Out-of-range
// indices report false.
func (p *Pipeline) Enabled(idx int) bool {
	if idx < 0 || idx >= len(p.links) {
		return false
	}
	return p.links[idx].enabled
}

// Block returns the block at idx.
func (p *Pipeline) Block(idx int) (Block, error) {
	if idx < 0 || idx >= len(p.links) {
		return nil, fmt.Errorf("%w: index %d of %d", ErrNoSuchBlock, idx, len(p.links))
	}
	return p.links[idx].block, nil
}

// Len returns the number of blocks, enabled or not.
func (p *Pipeline) Len() int {
	return len(p.links)
}

// Names returns the block names in order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.links))
	for i, l := range p.links {
		names[i] = l.block.Name()
	}
	return names
}

// Process runs in through every enabled block in order.
// Processing stops at the first failing block.
//
// Blocks may work in place: a GainBlock that is the first enabled link
// scales the caller's in slice. Pass a copy if in must stay intact.
func (p *Pipeline) Process(in []complex128) ([]complex128, error) {
	cur := in
	for i, l := range p.links {
		if !l.enabled {
			continue
		}

		start := time.Now()
		out, err := l.block.Process(cur)
		p.metrics.observe(l.block, len(cur), time.Since(start), err)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Pipeline.Process",
				"index":    i,
				"block":    l.block.Name(),
				"error":    err.Error(),
			}).Error("Block processing failed")
			return nil, fmt.Errorf("block %d (%s) failed: %w", i, l.block.Name(), err)
		}
		cur = out
	}

	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		logrus.WithFields(logrus.Fields{
			"function":       "Pipeline.Process",
			"input_samples":  len(in),
			"output_samples": len(cur),
		}).Debug("Pipeline processing completed")
	}

	return cur, nil
}

// Reset resets every block, enabled or not.
func (p *Pipeline) Reset() {
	for _, l := range p.links {
		l.block.Reset()
	}
}

// Close closes every block and empties the pipeline.
func (p *Pipeline) Close() error {
	var errs []error
	for i, l := range p.links {
		if err := l.block.Close(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Pipeline.Close",
				"index":    i,
				"block":    l.block.Name(),
				"error":    err.Error(),
			}).Error("Failed to close block")
			errs = append(errs, fmt.Errorf("block %d (%s) close failed: %w", i, l.block.Name(), err))
		}
	}
	p.links = p.links[:0]

	logrus.WithFields(logrus.Fields{
		"function": "Pipeline.Close",
		"errors":   len(errs),
	}).Info("Pipeline closed")

	return errors.Join(errs...)
}
