package config

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	prismerrors "github.com/ajitpratap0/prism/pkg/errors"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// PRISM_SAMPLING_SAMPLE_WINDOW_SIZE=5000.
const EnvPrefix = "PRISM"

// FlagKeys maps CLI flag names to configuration keys.
var FlagKeys = map[string]string{
	"sample-window":     "sampling.sample_window_size",
	"majority":          "sampling.majority_threshold",
	"quantile-backend":  "sketches.quantile_backend",
	"quantile-capacity": "sketches.quantile_sketch_capacity",
	"hll-precision":     "sketches.cardinality_register_bits",
	"topk":              "sketches.top_k_width",
	"format":            "input.format",
	"delimiter":         "input.delimiter",
	"header":            "input.has_header",
	"chunk-size":        "input.chunk_size",
	"compression":       "input.compression",
	"log-level":         "observability.log_level",
	"metrics-addr":      "observability.metrics_addr",
	"trace":             "observability.enable_tracing",
}

type override struct {
	key   string
	apply func(v *viper.Viper, key string, c *ProfileConfig)
}

var overrides = []override{
	{"sampling.sample_window_size", func(v *viper.Viper, k string, c *ProfileConfig) { c.Sampling.SampleWindowSize = v.GetInt(k) }},
	{"sampling.majority_threshold", func(v *viper.Viper, k string, c *ProfileConfig) { c.Sampling.MajorityThreshold = v.GetFloat64(k) }},
	{"sketches.quantile_backend", func(v *viper.Viper, k string, c *ProfileConfig) { c.Sketches.QuantileBackend = v.GetString(k) }},
	{"sketches.quantile_sketch_capacity", func(v *viper.Viper, k string, c *ProfileConfig) { c.Sketches.QuantileSketchCapacity = v.GetInt(k) }},
	{"sketches.cardinality_register_bits", func(v *viper.Viper, k string, c *ProfileConfig) { c.Sketches.CardinalityRegisterBits = v.GetInt(k) }},
	{"sketches.top_k_width", func(v *viper.Viper, k string, c *ProfileConfig) { c.Sketches.TopKWidth = v.GetInt(k) }},
	{"sketches.frequency_width", func(v *viper.Viper, k string, c *ProfileConfig) { c.Sketches.FrequencyWidth = v.GetInt(k) }},
	{"sketches.frequency_depth", func(v *viper.Viper, k string, c *ProfileConfig) { c.Sketches.FrequencyDepth = v.GetInt(k) }},
	{"input.format", func(v *viper.Viper, k string, c *ProfileConfig) { c.Input.Format = v.GetString(k) }},
	{"input.delimiter", func(v *viper.Viper, k string, c *ProfileConfig) { c.Input.Delimiter = v.GetString(k) }},
	{"input.has_header", func(v *viper.Viper, k string, c *ProfileConfig) {
		h := v.GetBool(k)
		c.Input.HasHeader = &h
	}},
	{"input.chunk_size", func(v *viper.Viper, k string, c *ProfileConfig) { c.Input.ChunkSize = v.GetInt(k) }},
	{"input.sniff_bytes", func(v *viper.Viper, k string, c *ProfileConfig) { c.Input.SniffBytes = v.GetInt(k) }},
	{"input.compression", func(v *viper.Viper, k string, c *ProfileConfig) { c.Input.Compression = v.GetString(k) }},
	{"observability.log_level", func(v *viper.Viper, k string, c *ProfileConfig) { c.Observability.LogLevel = v.GetString(k) }},
	{"observability.metrics_addr", func(v *viper.Viper, k string, c *ProfileConfig) {
		c.Observability.MetricsAddr = v.GetString(k)
		c.Observability.EnableMetrics = c.Observability.MetricsAddr != ""
	}},
	{"observability.enable_tracing", func(v *viper.Viper, k string, c *ProfileConfig) { c.Observability.EnableTracing = v.GetBool(k) }},
}

// LoadWithOverrides builds the effective configuration: defaults, then the
// optional YAML file, then PRISM_* environment variables, then explicitly set
// flags from the given flag set. The result is validated.
func LoadWithOverrides(path string, flags *pflag.FlagSet) (*ProfileConfig, error) {
	cfg := NewProfileConfig()
	if path != "" {
		if err := Load(path, cfg); err != nil {
			return nil, err
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range FlagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, prismerrors.Wrap(err, prismerrors.KindConfig, "failed to bind flag").
					WithDetail("flag", name)
			}
		}
	}

	for _, o := range overrides {
		if v.IsSet(o.key) {
			o.apply(v, o.key, cfg)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
