package nn

import (
	"github.com/born-ml/shufflenet/internal/tensor"
)

// Activation selects an activation fused into a layer's forward pass.
type Activation int

// Supported fused activations.
const (
	ActivationNone Activation = iota
	ActivationReLU
	ActivationSoftmax
)

// String returns the Keras-style activation name.
func (a Activation) String() string {
	switch a {
	case ActivationReLU:
		return "relu"
	case ActivationSoftmax:
		return "softmax"
	default:
		return "linear"
	}
}

// activate runs a on x. Softmax normalizes the last axis.
func activate[B tensor.Backend](a Activation, x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	switch a {
	case ActivationReLU:
		return x.ReLU()
	case ActivationSoftmax:
		return x.Softmax(-1)
	default:
		return x
	}
}

// ReLU is a Rectified Linear Unit activation module.
//
// Applies the element-wise function: f(x) = max(0, x)
//
// Example:
//
//	relu := nn.NewReLU[Backend]()
//	output := relu.Forward(input)  // All negative values become 0
type ReLU[B tensor.Backend] struct{}

// NewReLU creates a new ReLU activation module.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return &ReLU[B]{}
}

// Forward applies ReLU activation: f(x) = max(0, x).
func (r *ReLU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return input.ReLU()
}

// Parameters returns an empty slice (ReLU has no parameters).
func (r *ReLU[B]) Parameters() []*Parameter[B] {
	return nil
}

// String returns a string representation of the layer.
func (r *ReLU[B]) String() string {
	return "ReLU()"
}

// Softmax normalizes its input into probabilities along the last axis.
type Softmax[B tensor.Backend] struct{}

// NewSoftmax creates a new Softmax module.
func NewSoftmax[B tensor.Backend]() *Softmax[B] {
	return &Softmax[B]{}
}

// Forward applies softmax along the last axis.
func (s *Softmax[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return input.Softmax(-1)
}

// Parameters returns an empty slice (Softmax has no parameters).
func (s *Softmax[B]) Parameters() []*Parameter[B] {
	return nil
}

// String returns a string representation of the layer.
func (s *Softmax[B]) String() string {
	return "Softmax(dim=-1)"
}
