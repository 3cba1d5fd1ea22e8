package shufflenet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	require.NoError(t, cfg.ValidateClassifier())

	assert.Equal(t, DepthMultiplier10, cfg.DepthMultiplier)
	assert.Equal(t, 32, cfg.OutputStride)
	assert.Equal(t, float32(4e-5), cfg.WeightDecay)
	assert.InDelta(t, 0.997, cfg.BatchNorm.Momentum, 1e-7)
	assert.Equal(t, float32(1e-5), cfg.BatchNorm.Epsilon)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"output stride 2", func(c *Config) { c.OutputStride = 2 }, ErrInvalidOutputStride},
		{"output stride 0", func(c *Config) { c.OutputStride = 0 }, ErrInvalidOutputStride},
		{"output stride 4", func(c *Config) { c.OutputStride = 4 }, nil},
		{"depth 0.3", func(c *Config) { c.DepthMultiplier = 0.3 }, ErrUnknownDepthMultiplier},
		{"depth 2.0", func(c *Config) { c.DepthMultiplier = DepthMultiplier20 }, nil},
		{"stride checked before depth", func(c *Config) { c.OutputStride = 2; c.DepthMultiplier = 0.3 }, ErrInvalidOutputStride},
		{"negative weight decay", func(c *Config) { c.WeightDecay = -1 }, ErrInvalidWeightDecay},
		{"zero weight decay", func(c *Config) { c.WeightDecay = 0 }, nil},
		{"momentum", func(c *Config) { c.BatchNorm.Momentum = 1.5 }, ErrInvalidBatchNorm},
		{"epsilon", func(c *Config) { c.BatchNorm.Epsilon = 0 }, ErrInvalidBatchNorm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestConfigValidateClassifier(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumClasses = 0
	assert.NoError(t, cfg.Validate())
	assert.ErrorIs(t, cfg.ValidateClassifier(), ErrInvalidNumClasses)

	cfg.DepthMultiplier = 0.3
	assert.ErrorIs(t, cfg.ValidateClassifier(), ErrUnknownDepthMultiplier)
}

func TestDepthMultiplier(t *testing.T) {
	tests := []struct {
		d     DepthMultiplier
		depth int
		final int
		str   string
	}{
		{DepthMultiplier05, 48, 1024, "0.5"},
		{DepthMultiplier10, 116, 1024, "1.0"},
		{DepthMultiplier15, 176, 1024, "1.5"},
		{DepthMultiplier20, 224, 2048, "2.0"},
	}
	for _, tt := range tests {
		depth, err := tt.d.InitialDepth()
		require.NoError(t, err)
		assert.Equal(t, tt.depth, depth)
		assert.Equal(t, tt.final, tt.d.FinalChannels())
		assert.Equal(t, tt.str, tt.d.String())

		parsed, err := ParseDepthMultiplier(tt.str)
		require.NoError(t, err)
		assert.Equal(t, tt.d, parsed)
	}

	_, err := DepthMultiplier(0.3).InitialDepth()
	assert.ErrorIs(t, err, ErrUnknownDepthMultiplier)
	_, err = ParseDepthMultiplier("0.3")
	assert.ErrorIs(t, err, ErrUnknownDepthMultiplier)
	_, err = ParseDepthMultiplier("wide")
	assert.ErrorIs(t, err, ErrUnknownDepthMultiplier)

	d, err := ParseDepthMultiplier("2")
	require.NoError(t, err)
	assert.Equal(t, DepthMultiplier20, d)
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
depth_multiplier: 0.5
output_stride: 16
weight_decay: 0.0001
small_backend: true
num_classes: 10
batch_norm:
  momentum: 0.99
`))
	require.NoError(t, err)

	assert.Equal(t, DepthMultiplier05, cfg.DepthMultiplier)
	assert.Equal(t, 16, cfg.OutputStride)
	assert.InDelta(t, 1e-4, cfg.WeightDecay, 1e-9)
	assert.True(t, cfg.SmallBackend)
	assert.Equal(t, 10, cfg.NumClasses)
	assert.InDelta(t, 0.99, cfg.BatchNorm.Momentum, 1e-7)
	assert.Equal(t, float32(1e-5), cfg.BatchNorm.Epsilon, "epsilon keeps its default")
}

func TestParseConfig_Errors(t *testing.T) {
	_, err := ParseConfig([]byte("output_stride: 2\n"))
	assert.ErrorIs(t, err, ErrInvalidOutputStride)

	_, err = ParseConfig([]byte("depth_multiplier: 0.3\n"))
	assert.ErrorIs(t, err, ErrUnknownDepthMultiplier)

	_, err = ParseConfig([]byte("dropout: 0.5\n"))
	assert.Error(t, err, "unknown fields are rejected")

	_, err = ParseConfig([]byte("output_stride: [1, 2]\n"))
	assert.Error(t, err)
}

func TestParseConfig_Empty(t *testing.T) {
	cfg, err := ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shufflenet.yaml")
	require.NoError(t, os.WriteFile(path, []byte("depth_multiplier: 1.5\noutput_stride: 8\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DepthMultiplier15, cfg.DepthMultiplier)
	assert.Equal(t, 8, cfg.OutputStride)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigMetadata(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SmallBackend = true
	assert.Equal(t, map[string]string{
		"depth_multiplier": "1.0",
		"output_stride":    "32",
		"small_backend":    "true",
		"num_classes":      "1000",
	}, cfg.Metadata())
}
