package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	prismerrors "github.com/ajitpratap0/prism/pkg/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *ProfileConfig)
		valid  bool
	}{
		{"defaults", func(c *ProfileConfig) {}, true},
		{"zero sample window", func(c *ProfileConfig) { c.Sampling.SampleWindowSize = 0 }, false},
		{"threshold below half", func(c *ProfileConfig) { c.Sampling.MajorityThreshold = 0.3 }, false},
		{"unknown backend", func(c *ProfileConfig) { c.Sketches.QuantileBackend = "gk" }, false},
		{"ddsketch backend", func(c *ProfileConfig) { c.Sketches.QuantileBackend = QuantileBackendDDSketch }, true},
		{"register bits too small", func(c *ProfileConfig) { c.Sketches.CardinalityRegisterBits = 3 }, false},
		{"tab delimiter escape", func(c *ProfileConfig) { c.Input.Delimiter = `\t` }, true},
		{"multi byte delimiter", func(c *ProfileConfig) { c.Input.Delimiter = "::" }, false},
		{"pending smaller than sniff", func(c *ProfileConfig) { c.Input.MaxPendingBytes = 10 }, false},
		{"inverted histogram bounds", func(c *ProfileConfig) { c.Quality.MaxHistogramBins = 5 }, false},
		{"unknown format", func(c *ProfileConfig) { c.Input.Format = "parquet" }, false},
		{"avro format", func(c *ProfileConfig) { c.Input.Format = FormatAvro }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewProfileConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, prismerrors.IsKind(err, prismerrors.KindConfig))
		})
	}
}

func TestDelimiterByte(t *testing.T) {
	in := InputConfig{}
	assert.Equal(t, byte(0), in.DelimiterByte())
	in.Delimiter = ";"
	assert.Equal(t, byte(';'), in.DelimiterByte())
	in.Delimiter = `\t`
	assert.Equal(t, byte('\t'), in.DelimiterByte())
}

func TestLoadKeepsDefaultsAndSubstitutesEnv(t *testing.T) {
	t.Setenv("PRISM_TEST_WINDOW", "250")
	path := filepath.Join(t.TempDir(), "prism.yaml")
	content := "sampling:\n  sample_window_size: ${PRISM_TEST_WINDOW}\nsketches:\n  top_k_width: 25\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := NewProfileConfig()
	require.NoError(t, Load(path, cfg))

	assert.Equal(t, 250, cfg.Sampling.SampleWindowSize)
	assert.Equal(t, 25, cfg.Sketches.TopKWidth)
	assert.Equal(t, 200, cfg.Sketches.QuantileSketchCapacity)
}

func TestLoadMissingFile(t *testing.T) {
	err := Load(filepath.Join(t.TempDir(), "absent.yaml"), NewProfileConfig())
	require.Error(t, err)
	assert.True(t, prismerrors.IsKind(err, prismerrors.KindConfig))
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := NewProfileConfig()
	cfg.Sketches.TopKWidth = 7
	require.NoError(t, Save(path, cfg))

	loaded := NewProfileConfig()
	require.NoError(t, Load(path, loaded))
	assert.Equal(t, cfg, loaded)
}

func TestLoadWithOverrides(t *testing.T) {
	t.Setenv("PRISM_SKETCHES_TOP_K_WIDTH", "15")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("sample-window", 1000, "")
	flags.String("format", "auto", "")
	flags.Bool("header", false, "")
	require.NoError(t, flags.Parse([]string{"--sample-window=300", "--header"}))

	cfg, err := LoadWithOverrides("", flags)
	require.NoError(t, err)

	assert.Equal(t, 300, cfg.Sampling.SampleWindowSize)
	assert.Equal(t, 15, cfg.Sketches.TopKWidth)
	assert.Equal(t, FormatAuto, cfg.Input.Format)
	require.NotNil(t, cfg.Input.HasHeader)
	assert.True(t, *cfg.Input.HasHeader)
}

func TestLoadWithOverridesRejectsInvalid(t *testing.T) {
	t.Setenv("PRISM_SKETCHES_CARDINALITY_REGISTER_BITS", "40")

	_, err := LoadWithOverrides("", nil)
	require.Error(t, err)
	assert.True(t, prismerrors.IsKind(err, prismerrors.KindConfig))
}
