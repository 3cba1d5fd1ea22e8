// Package nn implements the neural network layers used to assemble
// channels-last convolutional networks.
//
// This package provides building blocks for constructing networks:
//   - Module interface: Base interface for all NN components
//   - Parameter: Named weights, trainable or not, with an optional regularizer
//   - Conv2D, DepthwiseConv2D, BatchNorm, pooling and Linear layers
//   - Sequential: Container for stacking layers
//
// Design inspired by Keras layers and PyTorch's nn.Module, adapted for Go generics.
package nn

import (
	"github.com/born-ml/shufflenet/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Every NN module must implement:
//   - Forward: Compute output from input
//   - Parameters: Return all parameters, trainable or not
//
// Modules can be composed to build complex architectures:
//
//	model := nn.NewSequential[Backend](
//	    nn.NewConv2D(nn.Conv2DConfig{InChannels: 3, OutChannels: 24, KernelSize: 3}, backend),
//	    nn.NewReLU[Backend](),
//	)
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	//
	// Spatial modules expect channels-last input [batch, height, width, channels].
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns every parameter of this module, including
	// non-trainable state such as batch norm moving statistics.
	//
	// Returns an empty slice for modules without parameters
	// (e.g., activation functions).
	Parameters() []*Parameter[B]
}

// Stateful is implemented by modules that can export and restore their
// parameters by name.
type Stateful interface {
	StateDict() map[string]*tensor.RawTensor
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}

// TrainingModule is implemented by modules whose forward pass differs
// between training and inference (e.g., BatchNorm).
type TrainingModule interface {
	SetTraining(training bool)
}

// StateDict returns the named parameters of m.
//
// Modules implementing Stateful control their own naming; for other modules
// parameters are keyed by Parameter.Name.
func StateDict[B tensor.Backend](m Module[B]) map[string]*tensor.RawTensor {
	if s, ok := m.(Stateful); ok {
		return s.StateDict()
	}
	return paramStateDict(m.Parameters())
}

// LoadStateDict restores the parameters of m from stateDict.
func LoadStateDict[B tensor.Backend](m Module[B], stateDict map[string]*tensor.RawTensor) error {
	if s, ok := m.(Stateful); ok {
		return s.LoadStateDict(stateDict)
	}
	return loadParams(m.Parameters(), stateDict)
}

// SetTraining switches m between training and inference behaviour if it
// supports it. Modules without training behaviour are left untouched.
func SetTraining[B tensor.Backend](m Module[B], training bool) {
	if tm, ok := m.(TrainingModule); ok {
		tm.SetTraining(training)
	}
}

// CountParameters returns the number of trainable and non-trainable scalar
// weights in m.
func CountParameters[B tensor.Backend](m Module[B]) (trainable, nonTrainable int) {
	for _, p := range m.Parameters() {
		if p.Trainable() {
			trainable += p.NumElements()
		} else {
			nonTrainable += p.NumElements()
		}
	}
	return trainable, nonTrainable
}

// RegularizationLoss sums the regularization penalties of params.
func RegularizationLoss[B tensor.Backend](params []*Parameter[B]) float64 {
	var total float64
	for _, p := range params {
		total += p.Penalty()
	}
	return total
}
