// Package config provides the configuration system for Prism.
// It defines a single ProfileConfig structure that every profiling session is
// constructed from, so sketch sizes, sample windows and parser limits are
// configuration rather than constants scattered through the engine.
//
// The configuration is organized into logical sections:
//   - Sampling: type-inference sample window and majority threshold
//   - Sketches: quantile, cardinality, frequency and duplicate sketch sizing
//   - Input: format, delimiter, header, chunking and buffer limits
//   - JSON: flattening limits for record-oriented JSON
//   - Quality: PII sampling, correlation and histogram bounds
//   - Observability: logging, metrics and tracing
//
// Example usage:
//
//	cfg := config.NewProfileConfig()
//	cfg.Sampling.SampleWindowSize = 5000
//	cfg.Sketches.CardinalityRegisterBits = 16
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"

	prismerrors "github.com/ajitpratap0/prism/pkg/errors"
)

// Quantile sketch backends.
const (
	QuantileBackendTDigest  = "tdigest"
	QuantileBackendDDSketch = "ddsketch"
)

// Input formats.
const (
	FormatAuto = "auto"
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatAvro = "avro"
)

// ProfileConfig is the configuration record a profiling session is built from.
type ProfileConfig struct {
	// Sampling controls per-column type inference
	Sampling SamplingConfig `yaml:"sampling" json:"sampling"`

	// Sketches controls the size and accuracy of the approximate accumulators
	Sketches SketchConfig `yaml:"sketches" json:"sketches"`

	// Input controls how bytes are interpreted
	Input InputConfig `yaml:"input" json:"input"`

	// JSON controls flattening of record-oriented JSON
	JSON JSONConfig `yaml:"json" json:"json"`

	// Quality controls derived quality signals
	Quality QualityConfig `yaml:"quality" json:"quality"`

	// Observability settings for monitoring and debugging
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// SamplingConfig contains type-inference settings.
type SamplingConfig struct {
	// SampleWindowSize is the number of observations per column inspected before the type locks
	SampleWindowSize int `yaml:"sample_window_size" json:"sample_window_size"`
	// MajorityThreshold is the share a candidate type must exceed to be locked (0.5-1.0)
	MajorityThreshold float64 `yaml:"majority_threshold" json:"majority_threshold"`
}

// SketchConfig contains accuracy/memory trade-offs of every sketch.
type SketchConfig struct {
	// QuantileBackend selects the quantile sketch (tdigest, ddsketch)
	QuantileBackend string `yaml:"quantile_backend" json:"quantile_backend"`
	// QuantileSketchCapacity is the t-digest compression; centroid count stays within a small multiple of it
	QuantileSketchCapacity int `yaml:"quantile_sketch_capacity" json:"quantile_sketch_capacity"`
	// QuantileRelativeAccuracy is the DDSketch relative accuracy guarantee
	QuantileRelativeAccuracy float64 `yaml:"quantile_relative_accuracy" json:"quantile_relative_accuracy"`
	// CardinalityRegisterBits is the HyperLogLog precision p; the sketch holds 2^p registers (4-18)
	CardinalityRegisterBits int `yaml:"cardinality_register_bits" json:"cardinality_register_bits"`
	// TopKWidth is the number of exact top-value candidates kept per column
	TopKWidth int `yaml:"top_k_width" json:"top_k_width"`
	// FrequencyWidth is the count-min sketch counters per row
	FrequencyWidth int `yaml:"frequency_width" json:"frequency_width"`
	// FrequencyDepth is the count-min sketch row count
	FrequencyDepth int `yaml:"frequency_depth" json:"frequency_depth"`
	// DuplicateFilterCapacity is the expected row count the duplicate filter is sized for
	DuplicateFilterCapacity uint `yaml:"duplicate_filter_capacity" json:"duplicate_filter_capacity"`
	// DuplicateFalsePositiveRate is the target false-positive rate of the duplicate filter
	DuplicateFalsePositiveRate float64 `yaml:"duplicate_false_positive_rate" json:"duplicate_false_positive_rate"`
}

// InputConfig contains parsing settings.
type InputConfig struct {
	// Format selects the input format (auto, csv, json, avro)
	Format string `yaml:"format" json:"format"`
	// Delimiter forces a field delimiter for delimited input; empty means sniff
	Delimiter string `yaml:"delimiter" json:"delimiter"`
	// HasHeader forces header presence; nil means sniff
	HasHeader *bool `yaml:"has_header,omitempty" json:"has_header,omitempty"`
	// SniffBytes is the sample size inspected before streaming begins
	SniffBytes int `yaml:"sniff_bytes" json:"sniff_bytes"`
	// ChunkSize is the read size of chunk sources
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`
	// MaxPendingBytes bounds the unterminated tail carried between chunks
	MaxPendingBytes int `yaml:"max_pending_bytes" json:"max_pending_bytes"`
	// Compression selects input decompression (auto, none, gzip, zstd, lz4, s2, snappy, deflate)
	Compression string `yaml:"compression" json:"compression"`
}

// JSONConfig contains flattening limits.
type JSONConfig struct {
	// MaxNestedDepth is the deepest object level flattened into dot keys
	MaxNestedDepth int `yaml:"max_nested_depth" json:"max_nested_depth"`
	// MaxKeys caps the number of distinct flattened columns
	MaxKeys int `yaml:"max_keys" json:"max_keys"`
}

// QualityConfig contains quality signal settings.
type QualityConfig struct {
	// PIISampleSize is the number of leading present values scanned for PII patterns
	PIISampleSize int `yaml:"pii_sample_size" json:"pii_sample_size"`
	// PIIMatchThreshold is the share of the sample that must match a pattern
	PIIMatchThreshold float64 `yaml:"pii_match_threshold" json:"pii_match_threshold"`
	// CorrelationMaxColumns bounds the pairwise correlation accumulator
	CorrelationMaxColumns int `yaml:"correlation_max_columns" json:"correlation_max_columns"`
	// MinHistogramBins is the lower bound of the dynamic bin count
	MinHistogramBins int `yaml:"min_histogram_bins" json:"min_histogram_bins"`
	// MaxHistogramBins is the upper bound of the dynamic bin count
	MaxHistogramBins int `yaml:"max_histogram_bins" json:"max_histogram_bins"`
}

// ObservabilityConfig contains monitoring and observability settings.
type ObservabilityConfig struct {
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level"`
	// LogEncoding selects the log encoder (json, console)
	LogEncoding string `yaml:"log_encoding" json:"log_encoding"`
	// EnableMetrics activates Prometheus metrics collection
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	// MetricsAddr is the listen address of the metrics endpoint; empty disables serving
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
	// EnableTracing activates OpenTelemetry tracing
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing"`
	// TracingSampleRate controls trace sampling (0.0-1.0)
	TracingSampleRate float64 `yaml:"tracing_sample_rate" json:"tracing_sample_rate"`
}

// NewProfileConfig creates a ProfileConfig with defaults tuned for
// single-session columns up to ~10^8 values.
func NewProfileConfig() *ProfileConfig {
	return &ProfileConfig{
		Sampling: SamplingConfig{
			SampleWindowSize:  1000,
			MajorityThreshold: 0.8,
		},
		Sketches: SketchConfig{
			QuantileBackend:            QuantileBackendTDigest,
			QuantileSketchCapacity:     200,
			QuantileRelativeAccuracy:   0.01,
			CardinalityRegisterBits:    14, // ~0.8% standard error, 16KiB
			TopKWidth:                  10,
			FrequencyWidth:             2048,
			FrequencyDepth:             4,
			DuplicateFilterCapacity:    1_000_000,
			DuplicateFalsePositiveRate: 0.001,
		},
		Input: InputConfig{
			Format:          FormatAuto,
			SniffBytes:      64 * 1024,
			ChunkSize:       1024 * 1024,
			MaxPendingBytes: 64 * 1024 * 1024,
			Compression:     "auto",
		},
		JSON: JSONConfig{
			MaxNestedDepth: 3,
			MaxKeys:        500,
		},
		Quality: QualityConfig{
			PIISampleSize:         100,
			PIIMatchThreshold:     0.3,
			CorrelationMaxColumns: 20,
			MinHistogramBins:      10,
			MaxHistogramBins:      50,
		},
		Observability: ObservabilityConfig{
			LogLevel:          "info",
			LogEncoding:       "json",
			EnableMetrics:     false,
			EnableTracing:     false,
			TracingSampleRate: 1.0,
		},
	}
}

// Validate validates the configuration for correctness.
// Returns a CONFIG_ERROR describing the first invalid field, nil otherwise.
func (c *ProfileConfig) Validate() error {
	if err := c.validate(); err != nil {
		return prismerrors.Wrap(err, prismerrors.KindConfig, "invalid configuration")
	}
	return nil
}

func (c *ProfileConfig) validate() error {
	if c.Sampling.SampleWindowSize <= 0 {
		return fmt.Errorf("sample_window_size must be positive")
	}
	if c.Sampling.MajorityThreshold < 0.5 || c.Sampling.MajorityThreshold > 1 {
		return fmt.Errorf("majority_threshold must be within [0.5, 1]")
	}
	switch c.Sketches.QuantileBackend {
	case QuantileBackendTDigest, QuantileBackendDDSketch:
	default:
		return fmt.Errorf("unknown quantile_backend %q", c.Sketches.QuantileBackend)
	}
	if c.Sketches.QuantileSketchCapacity < 20 {
		return fmt.Errorf("quantile_sketch_capacity must be at least 20")
	}
	if c.Sketches.QuantileRelativeAccuracy <= 0 || c.Sketches.QuantileRelativeAccuracy >= 1 {
		return fmt.Errorf("quantile_relative_accuracy must be within (0, 1)")
	}
	if c.Sketches.CardinalityRegisterBits < 4 || c.Sketches.CardinalityRegisterBits > 18 {
		return fmt.Errorf("cardinality_register_bits must be within [4, 18]")
	}
	if c.Sketches.TopKWidth <= 0 {
		return fmt.Errorf("top_k_width must be positive")
	}
	if c.Sketches.FrequencyWidth <= 0 || c.Sketches.FrequencyDepth <= 0 {
		return fmt.Errorf("frequency_width and frequency_depth must be positive")
	}
	if c.Sketches.DuplicateFilterCapacity == 0 {
		return fmt.Errorf("duplicate_filter_capacity must be positive")
	}
	if c.Sketches.DuplicateFalsePositiveRate <= 0 || c.Sketches.DuplicateFalsePositiveRate >= 1 {
		return fmt.Errorf("duplicate_false_positive_rate must be within (0, 1)")
	}
	switch c.Input.Format {
	case FormatAuto, FormatCSV, FormatJSON, FormatAvro:
	default:
		return fmt.Errorf("unknown format %q", c.Input.Format)
	}
	if len(c.Input.Delimiter) > 1 && c.Input.Delimiter != `\t` {
		return fmt.Errorf("delimiter must be a single byte")
	}
	if c.Input.SniffBytes <= 0 {
		return fmt.Errorf("sniff_bytes must be positive")
	}
	if c.Input.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive")
	}
	if c.Input.MaxPendingBytes < c.Input.SniffBytes {
		return fmt.Errorf("max_pending_bytes must be at least sniff_bytes")
	}
	if c.JSON.MaxNestedDepth < 0 {
		return fmt.Errorf("max_nested_depth cannot be negative")
	}
	if c.JSON.MaxKeys <= 0 {
		return fmt.Errorf("max_keys must be positive")
	}
	if c.Quality.PIISampleSize < 0 {
		return fmt.Errorf("pii_sample_size cannot be negative")
	}
	if c.Quality.PIIMatchThreshold <= 0 || c.Quality.PIIMatchThreshold > 1 {
		return fmt.Errorf("pii_match_threshold must be within (0, 1]")
	}
	if c.Quality.CorrelationMaxColumns < 0 {
		return fmt.Errorf("correlation_max_columns cannot be negative")
	}
	if c.Quality.MinHistogramBins <= 0 || c.Quality.MaxHistogramBins < c.Quality.MinHistogramBins {
		return fmt.Errorf("histogram bin bounds must satisfy 0 < min <= max")
	}
	return nil
}

// DelimiterByte returns the forced delimiter byte, or 0 when the sniffer decides.
func (i *InputConfig) DelimiterByte() byte {
	if i.Delimiter == "" {
		return 0
	}
	if i.Delimiter == `\t` {
		return '\t'
	}
	return i.Delimiter[0]
}
