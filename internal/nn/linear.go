package nn

import (
	"fmt"

	"github.com/born-ml/shufflenet/internal/tensor"
)

// Linear implements a fully connected (dense) layer.
//
// Performs the transformation: y = activation(x @ W.T + b)
// where:
//   - x is the input tensor with shape [batch_size, in_features]
//   - W is the weight matrix with shape [out_features, in_features]
//   - b is the bias vector with shape [out_features]
//   - y is the output tensor with shape [batch_size, out_features]
//
// Weights are initialized using Xavier/Glorot initialization unless
// WithKernelInit selects another initializer. Biases are initialized to zeros.
//
// Example:
//
//	backend := cpu.New()
//	layer := nn.NewLinear(1024, 1000, backend,
//	    nn.WithKernelInit(nn.HeNormal[*cpu.CPUBackend]),
//	    nn.WithActivation[*cpu.CPUBackend](nn.ActivationSoftmax))
//
//	output := layer.Forward(features)  // shape: [batch, 1000], rows sum to 1
type Linear[B tensor.Backend] struct {
	inFeatures  int
	outFeatures int
	activation  Activation
	weight      *Parameter[B] // [out_features, in_features]
	bias        *Parameter[B] // [out_features]
	backend     B
}

type linearOptions[B tensor.Backend] struct {
	init       Initializer[B]
	activation Activation
	noBias     bool
}

// LinearOption configures NewLinear.
type LinearOption[B tensor.Backend] func(*linearOptions[B])

// WithKernelInit sets the weight initializer.
func WithKernelInit[B tensor.Backend](init Initializer[B]) LinearOption[B] {
	return func(o *linearOptions[B]) { o.init = init }
}

// WithActivation fuses an activation into the layer output.
func WithActivation[B tensor.Backend](a Activation) LinearOption[B] {
	return func(o *linearOptions[B]) { o.activation = a }
}

// WithoutBias drops the bias term.
func WithoutBias[B tensor.Backend]() LinearOption[B] {
	return func(o *linearOptions[B]) { o.noBias = true }
}

// NewLinear creates a new Linear layer.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B, opts ...LinearOption[B]) *Linear[B] {
	if inFeatures <= 0 || outFeatures <= 0 {
		panic(fmt.Sprintf("linear: invalid features in=%d, out=%d", inFeatures, outFeatures))
	}

	o := linearOptions[B]{init: Xavier[B]}
	for _, opt := range opts {
		opt(&o)
	}

	weight := NewParameter("weight", o.init(inFeatures, outFeatures, tensor.Shape{outFeatures, inFeatures}, backend))

	var bias *Parameter[B]
	if !o.noBias {
		bias = NewParameter("bias", Zeros(tensor.Shape{outFeatures}, backend))
	}

	return &Linear[B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		activation:  o.activation,
		weight:      weight,
		bias:        bias,
		backend:     backend,
	}
}

// Forward computes the output of the linear layer.
//
// Input shape: [batch_size, in_features]
// Output shape: [batch_size, out_features]
func (l *Linear[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	inputShape := input.Shape()
	if len(inputShape) != 2 {
		panic(fmt.Sprintf("Linear.Forward: expected 2D input [batch, features], got shape %v", inputShape))
	}
	if inputShape[1] != l.inFeatures {
		panic(fmt.Sprintf("Linear.Forward: expected input with %d features, got %d", l.inFeatures, inputShape[1]))
	}

	// [batch_size, in_features] @ [in_features, out_features] = [batch_size, out_features]
	output := input.MatMul(l.weight.Tensor().Transpose())

	if l.bias != nil {
		output = output.Add(l.bias.Tensor())
	}

	return activate(l.activation, output)
}

// Parameters returns [weight, bias] if bias is present, otherwise [weight].
func (l *Linear[B]) Parameters() []*Parameter[B] {
	if l.bias != nil {
		return []*Parameter[B]{l.weight, l.bias}
	}
	return []*Parameter[B]{l.weight}
}

// Weight returns the weight parameter.
func (l *Linear[B]) Weight() *Parameter[B] {
	return l.weight
}

// Bias returns the bias parameter.
func (l *Linear[B]) Bias() *Parameter[B] {
	return l.bias
}

// InFeatures returns the number of input features.
func (l *Linear[B]) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the number of output features.
func (l *Linear[B]) OutFeatures() int {
	return l.outFeatures
}

// Activation returns the fused activation.
func (l *Linear[B]) Activation() Activation {
	return l.activation
}

// StateDict returns a map of parameter names to raw tensors.
func (l *Linear[B]) StateDict() map[string]*tensor.RawTensor {
	return paramStateDict(l.Parameters())
}

// LoadStateDict loads parameters from a state dictionary.
func (l *Linear[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if err := loadParams(l.Parameters(), stateDict); err != nil {
		return fmt.Errorf("linear: %w", err)
	}
	return nil
}

// String returns a string representation of the layer.
func (l *Linear[B]) String() string {
	return fmt.Sprintf("Linear(%d->%d, activation=%s)", l.inFeatures, l.outFeatures, l.activation)
}
