package shufflenet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Configuration errors.
var (
	ErrInvalidOutputStride    = errors.New("shufflenet: output stride cannot be lower than 4")
	ErrUnknownDepthMultiplier = errors.New("shufflenet: unknown depth multiplier")
	ErrInvalidWeightDecay     = errors.New("shufflenet: weight decay must be non-negative")
	ErrInvalidNumClasses      = errors.New("shufflenet: number of classes must be positive")
	ErrInvalidBatchNorm       = errors.New("shufflenet: invalid batch norm parameters")
	ErrInvalidInput           = errors.New("shufflenet: invalid input")
)

// MinOutputStride is the resolution reduction of the entry stem.
const MinOutputStride = 4

// DepthMultiplier selects the base channel width of the network.
type DepthMultiplier float64

// Supported depth multipliers.
const (
	DepthMultiplier05 DepthMultiplier = 0.5
	DepthMultiplier10 DepthMultiplier = 1.0
	DepthMultiplier15 DepthMultiplier = 1.5
	DepthMultiplier20 DepthMultiplier = 2.0
)

// initialDepths maps a depth multiplier to the output channels of the first stage.
var initialDepths = map[DepthMultiplier]int{
	DepthMultiplier05: 48,
	DepthMultiplier10: 116,
	DepthMultiplier15: 176,
	DepthMultiplier20: 224,
}

// InitialDepth returns the output channels of the first stage.
func (d DepthMultiplier) InitialDepth() (int, error) {
	depth, ok := initialDepths[d]
	if !ok {
		return 0, fmt.Errorf("%w: %v (want 0.5, 1.0, 1.5 or 2.0)", ErrUnknownDepthMultiplier, float64(d))
	}
	return depth, nil
}

// FinalChannels returns the width of the 1x1 convolution before pooling.
func (d DepthMultiplier) FinalChannels() int {
	if d == DepthMultiplier20 {
		return 2048
	}
	return 1024
}

// String formats the multiplier with one decimal, e.g. "1.0".
func (d DepthMultiplier) String() string {
	return strconv.FormatFloat(float64(d), 'f', 1, 64)
}

// ParseDepthMultiplier parses "0.5", "1", "1.0" and similar.
func ParseDepthMultiplier(s string) (DepthMultiplier, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownDepthMultiplier, s)
	}
	d := DepthMultiplier(v)
	if _, err := d.InitialDepth(); err != nil {
		return 0, err
	}
	return d, nil
}

// BatchNormConfig holds the parameters shared by every batch norm layer.
type BatchNormConfig struct {
	Momentum float32 `yaml:"momentum"`
	Epsilon  float32 `yaml:"epsilon"`
}

// Config configures a ShuffleNet V2 network.
type Config struct {
	DepthMultiplier DepthMultiplier `yaml:"depth_multiplier"`
	OutputStride    int             `yaml:"output_stride"`
	WeightDecay     float32         `yaml:"weight_decay"`
	SmallBackend    bool            `yaml:"small_backend"` // Caps the last stage at 2x the initial depth
	NumClasses      int             `yaml:"num_classes"`   // Classifier only
	BatchNorm       BatchNormConfig `yaml:"batch_norm"`
}

// DefaultConfig returns the ImageNet configuration at depth multiplier 1.0.
func DefaultConfig() Config {
	return Config{
		DepthMultiplier: DepthMultiplier10,
		OutputStride:    32,
		WeightDecay:     4e-5,
		NumClasses:      1000,
		BatchNorm: BatchNormConfig{
			Momentum: 0.997,
			Epsilon:  1e-5,
		},
	}
}

// Validate checks the backbone settings: output stride, depth multiplier,
// weight decay and batch norm parameters, in that order.
func (c Config) Validate() error {
	if c.OutputStride < MinOutputStride {
		return fmt.Errorf("%w: got %d", ErrInvalidOutputStride, c.OutputStride)
	}
	if _, err := c.DepthMultiplier.InitialDepth(); err != nil {
		return err
	}
	if c.WeightDecay < 0 {
		return fmt.Errorf("%w: got %g", ErrInvalidWeightDecay, c.WeightDecay)
	}
	if c.BatchNorm.Momentum < 0 || c.BatchNorm.Momentum > 1 {
		return fmt.Errorf("%w: momentum %g outside [0, 1]", ErrInvalidBatchNorm, c.BatchNorm.Momentum)
	}
	if c.BatchNorm.Epsilon <= 0 {
		return fmt.Errorf("%w: epsilon must be positive, got %g", ErrInvalidBatchNorm, c.BatchNorm.Epsilon)
	}
	return nil
}

// ValidateClassifier runs Validate and additionally checks the class count.
func (c Config) ValidateClassifier() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.NumClasses <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidNumClasses, c.NumClasses)
	}
	return nil
}

// LoadConfig reads a YAML configuration file. Missing fields keep their
// DefaultConfig values; unknown fields are an error.
//
// Example file:
//
//	depth_multiplier: 0.5
//	output_stride: 16
//	weight_decay: 0.00004
//	num_classes: 10
func LoadConfig(path string) (Config, error) {
	//nolint:gosec // G304: Path is provided by user, file inclusion is intentional for config loading
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML configuration over DefaultConfig and validates it.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MarshalYAML writes the multiplier as a plain number.
func (d DepthMultiplier) MarshalYAML() (any, error) {
	return float64(d), nil
}

// Metadata returns the configuration as string pairs for weight files.
func (c Config) Metadata() map[string]string {
	return map[string]string{
		"depth_multiplier": c.DepthMultiplier.String(),
		"output_stride":    strconv.Itoa(c.OutputStride),
		"small_backend":    strconv.FormatBool(c.SmallBackend),
		"num_classes":      strconv.Itoa(c.NumClasses),
	}
}
