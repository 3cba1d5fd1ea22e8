// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/shufflenet/internal/nn"
	"github.com/born-ml/shufflenet/tensor"
)

// Module is the base interface for all neural network components.
type Module[B tensor.Backend] = nn.Module[B]

// Parameter is a named weight tensor, trainable or not.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// Activation selects the function applied after a layer's affine transform.
type Activation = nn.Activation

// Activation functions.
const (
	ActivationNone    = nn.ActivationNone
	ActivationReLU    = nn.ActivationReLU
	ActivationSoftmax = nn.ActivationSoftmax
)

// Regularizer computes a penalty for a weight tensor.
type Regularizer = nn.Regularizer

// L2 returns a regularizer computing factor * sum(w^2).
func L2(factor float32) Regularizer {
	return nn.L2(factor)
}

// Layer types.
type (
	Conv2D[B tensor.Backend]          = nn.Conv2D[B]
	Conv2DConfig                      = nn.Conv2DConfig
	DepthwiseConv2D[B tensor.Backend] = nn.DepthwiseConv2D[B]
	DepthwiseConv2DConfig             = nn.DepthwiseConv2DConfig
	BatchNorm[B tensor.Backend]       = nn.BatchNorm[B]
	MaxPool2D[B tensor.Backend]       = nn.MaxPool2D[B]
	GlobalAvgPool2D[B tensor.Backend] = nn.GlobalAvgPool2D[B]
	Linear[B tensor.Backend]          = nn.Linear[B]
	Sequential[B tensor.Backend]      = nn.Sequential[B]
)

// NewConv2D creates a 2D convolution layer from cfg.
func NewConv2D[B tensor.Backend](cfg Conv2DConfig, backend B) *Conv2D[B] {
	return nn.NewConv2D(cfg, backend)
}

// NewDepthwiseConv2D creates a depthwise convolution layer from cfg.
func NewDepthwiseConv2D[B tensor.Backend](cfg DepthwiseConv2DConfig, backend B) *DepthwiseConv2D[B] {
	return nn.NewDepthwiseConv2D(cfg, backend)
}

// NewBatchNorm creates a batch normalization layer over channels.
func NewBatchNorm[B tensor.Backend](channels int, momentum, epsilon float32, backend B) *BatchNorm[B] {
	return nn.NewBatchNorm(channels, momentum, epsilon, backend)
}

// NewMaxPool2D creates a max pooling layer.
func NewMaxPool2D[B tensor.Backend](kernelSize, stride int, padding tensor.Padding, backend B) *MaxPool2D[B] {
	return nn.NewMaxPool2D(kernelSize, stride, padding, backend)
}

// NewGlobalAvgPool2D creates a layer averaging over height and width.
func NewGlobalAvgPool2D[B tensor.Backend](backend B) *GlobalAvgPool2D[B] {
	return nn.NewGlobalAvgPool2D(backend)
}

// NewLinear creates a fully connected layer with Xavier-initialized weights
// and zero bias. Use NewLinearSoftmax for a He-initialized softmax head.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, backend)
}

// NewLinearSoftmax creates a He-initialized fully connected layer followed by softmax.
func NewLinearSoftmax[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, backend,
		nn.WithKernelInit[B](nn.HeNormal[B]),
		nn.WithActivation[B](nn.ActivationSoftmax),
	)
}

// NewSequential creates a container applying modules in order.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return nn.NewSequential[B](modules...)
}

// StateDict returns the named parameters of m.
func StateDict[B tensor.Backend](m Module[B]) map[string]*tensor.RawTensor {
	return nn.StateDict(m)
}

// LoadStateDict restores m from a state dictionary.
func LoadStateDict[B tensor.Backend](m Module[B], stateDict map[string]*tensor.RawTensor) error {
	return nn.LoadStateDict(m, stateDict)
}

// SetTraining switches m between training and inference behavior.
func SetTraining[B tensor.Backend](m Module[B], training bool) {
	nn.SetTraining(m, training)
}

// CountParameters returns the number of trainable and non-trainable scalar weights in m.
func CountParameters[B tensor.Backend](m Module[B]) (trainable, nonTrainable int) {
	return nn.CountParameters(m)
}

// RegularizationLoss sums the regularization penalties of params.
func RegularizationLoss[B tensor.Backend](params []*Parameter[B]) float64 {
	return nn.RegularizationLoss(params)
}
