// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package shufflenet

import (
	"github.com/born-ml/shufflenet/internal/shufflenet"
	"github.com/born-ml/shufflenet/tensor"
)

// Config holds the architecture and training hyperparameters.
type Config = shufflenet.Config

// BatchNormConfig holds batch norm momentum and epsilon.
type BatchNormConfig = shufflenet.BatchNormConfig

// DepthMultiplier scales the channel width of every stage.
type DepthMultiplier = shufflenet.DepthMultiplier

// Supported depth multipliers.
const (
	DepthMultiplier05 = shufflenet.DepthMultiplier05
	DepthMultiplier10 = shufflenet.DepthMultiplier10
	DepthMultiplier15 = shufflenet.DepthMultiplier15
	DepthMultiplier20 = shufflenet.DepthMultiplier20
)

// MinOutputStride is the resolution reduction of the entry stem.
const MinOutputStride = shufflenet.MinOutputStride

// StagePlan is the resolved stride, dilation and width of one stage.
type StagePlan = shufflenet.StagePlan

// Models.
type (
	Classifier[B tensor.Backend]  = shufflenet.Classifier[B]
	Backbone[B tensor.Backend]    = shufflenet.Backbone[B]
	BranchExits[B tensor.Backend] = shufflenet.BranchExits[B]
)

// Model types recorded in weight files.
const (
	ModelTypeClassifier = shufflenet.ModelTypeClassifier
	ModelTypeBackbone   = shufflenet.ModelTypeBackbone
)

// Errors.
var (
	ErrInvalidOutputStride    = shufflenet.ErrInvalidOutputStride
	ErrUnknownDepthMultiplier = shufflenet.ErrUnknownDepthMultiplier
	ErrInvalidWeightDecay     = shufflenet.ErrInvalidWeightDecay
	ErrInvalidNumClasses      = shufflenet.ErrInvalidNumClasses
	ErrInvalidBatchNorm       = shufflenet.ErrInvalidBatchNorm
	ErrInvalidInput           = shufflenet.ErrInvalidInput
	ErrIncompatibleWeights    = shufflenet.ErrIncompatibleWeights
)

// DefaultConfig returns depth multiplier 1.0, output stride 32, weight decay
// 4e-5 and 1000 classes.
func DefaultConfig() Config {
	return shufflenet.DefaultConfig()
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	return shufflenet.LoadConfig(path)
}

// ParseConfig decodes and validates a YAML configuration.
func ParseConfig(data []byte) (Config, error) {
	return shufflenet.ParseConfig(data)
}

// ParseDepthMultiplier parses "0.5", "1.0", "1.5" or "2.0".
func ParseDepthMultiplier(s string) (DepthMultiplier, error) {
	return shufflenet.ParseDepthMultiplier(s)
}

// PlanStages resolves stride, dilation and width of every stage for cfg.
func PlanStages(cfg Config) ([]StagePlan, error) {
	return shufflenet.PlanStages(cfg)
}

// NewClassifier builds a freshly initialized classifier for inputs with
// inChannels channels.
func NewClassifier[B tensor.Backend](inChannels int, cfg Config, backend B) (*Classifier[B], error) {
	return shufflenet.NewClassifier(inChannels, cfg, backend)
}

// NewBackbone builds a freshly initialized backbone for inputs with
// inChannels channels.
func NewBackbone[B tensor.Backend](inChannels int, cfg Config, backend B) (*Backbone[B], error) {
	return shufflenet.NewBackbone(inChannels, cfg, backend)
}

// Classify runs a freshly initialized classifier on input [N, H, W, C] and
// returns class probabilities [N, numClasses].
func Classify[B tensor.Backend](input *tensor.Tensor[float32, B], numClasses int, cfg Config) (*tensor.Tensor[float32, B], error) {
	return shufflenet.Classify(input, numClasses, cfg)
}

// Base runs a freshly initialized backbone on input [N, H, W, C] and returns
// the final feature map and the branch exits keyed by output stride.
func Base[B tensor.Backend](input *tensor.Tensor[float32, B], cfg Config) (*tensor.Tensor[float32, B], BranchExits[B], error) {
	return shufflenet.Base(input, cfg)
}

// ChannelShuffle interleaves the two halves of the channel axis.
func ChannelShuffle[B tensor.Backend](x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return shufflenet.ChannelShuffle(x)
}

// ConcatShuffleSplit concatenates a and b along channels, shuffles the
// result and splits it into two equal halves.
func ConcatShuffleSplit[B tensor.Backend](a, b *tensor.Tensor[float32, B]) (left, right *tensor.Tensor[float32, B]) {
	return shufflenet.ConcatShuffleSplit(a, b)
}

// SafeTensorsExt is the weight file extension that selects the SafeTensors
// format; any other extension uses the .born format.
const SafeTensorsExt = shufflenet.SafeTensorsExt
