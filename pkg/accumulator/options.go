// Package accumulator implements the per-column online statistics of a
// profiling session. Every structure held by a Column has a size fixed at
// construction, so memory does not grow with the number of rows.
package accumulator

import (
	"github.com/ajitpratap0/prism/pkg/config"
	"github.com/ajitpratap0/prism/pkg/errors"
	"github.com/ajitpratap0/prism/pkg/sketch"
)

// Options are the tuning constants shared by every column of a session.
type Options struct {
	SampleWindowSize  int
	MajorityThreshold float64
	NewQuantile       sketch.QuantileFactory
	RegisterBits      int
	TopKWidth         int
	FrequencyWidth    int
	FrequencyDepth    int
	// SampleValues is how many leading present values are kept for
	// pattern checks at report time.
	SampleValues int
}

// NewOptions derives column options from a validated configuration.
func NewOptions(cfg *config.ProfileConfig) (*Options, error) {
	newQuantile, err := sketch.NewQuantileFactory(
		cfg.Sketches.QuantileBackend,
		cfg.Sketches.QuantileSketchCapacity,
		cfg.Sketches.QuantileRelativeAccuracy,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindConfig, "invalid quantile sketch settings")
	}
	if _, err := sketch.NewCardinality(cfg.Sketches.CardinalityRegisterBits); err != nil {
		return nil, errors.Wrap(err, errors.KindConfig, "invalid cardinality sketch settings")
	}
	return &Options{
		SampleWindowSize:  cfg.Sampling.SampleWindowSize,
		MajorityThreshold: cfg.Sampling.MajorityThreshold,
		NewQuantile:       newQuantile,
		RegisterBits:      cfg.Sketches.CardinalityRegisterBits,
		TopKWidth:         cfg.Sketches.TopKWidth,
		FrequencyWidth:    cfg.Sketches.FrequencyWidth,
		FrequencyDepth:    cfg.Sketches.FrequencyDepth,
		SampleValues:      cfg.Quality.PIISampleSize,
	}, nil
}
