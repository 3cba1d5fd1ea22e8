package nn

import (
	"fmt"

	"github.com/born-ml/shufflenet/internal/tensor"
)

// Conv2DConfig describes a Conv2D layer.
//
// Zero Stride and Dilation default to 1.
type Conv2DConfig struct {
	InChannels  int
	OutChannels int
	KernelSize  int
	Stride      int
	Dilation    int
	Padding     tensor.Padding
	UseBias     bool
	Activation  Activation  // Applied after the bias
	Regularizer Regularizer // Kernel regularizer, may be nil
}

func (c Conv2DConfig) withDefaults() Conv2DConfig {
	if c.Stride == 0 {
		c.Stride = 1
	}
	if c.Dilation == 0 {
		c.Dilation = 1
	}
	return c
}

// Conv2D is a 2D convolutional layer over channels-last input.
//
// Performs convolution: output = activation(Conv2D(input, weight) + bias)
//
// Input shape:  [batch, height, width, in_channels]
// Weight shape: [kernel_h, kernel_w, in_channels, out_channels]
// Bias shape:   [out_channels]
// Output shape: [batch, out_h, out_w, out_channels]
//
// With SAME padding out_h = ceil(height / stride).
//
// Example:
//
//	conv := nn.NewConv2D(nn.Conv2DConfig{
//	    InChannels: 3, OutChannels: 24, KernelSize: 3, Stride: 2,
//	    Padding: tensor.PaddingSame, UseBias: true, Activation: nn.ActivationReLU,
//	}, backend)
//	output := conv.Forward(input) // [N, 112, 112, 24] for 224x224 input
type Conv2D[B tensor.Backend] struct {
	cfg Conv2DConfig

	weight *Parameter[B] // [kernel_h, kernel_w, in_channels, out_channels]
	bias   *Parameter[B] // [out_channels] or nil

	backend B
}

// NewConv2D creates a new 2D convolutional layer with Xavier initialization.
//
// Initialization:
//   - Weights: Xavier/Glorot uniform initialization
//   - Bias: Zeros
func NewConv2D[B tensor.Backend](cfg Conv2DConfig, backend B) *Conv2D[B] {
	cfg = cfg.withDefaults()
	if cfg.InChannels <= 0 || cfg.OutChannels <= 0 {
		panic(fmt.Sprintf("conv2d: invalid channels in=%d, out=%d", cfg.InChannels, cfg.OutChannels))
	}
	if cfg.KernelSize <= 0 {
		panic(fmt.Sprintf("conv2d: invalid kernel size %d", cfg.KernelSize))
	}
	params := tensor.Conv2DParams{Stride: cfg.Stride, Dilation: cfg.Dilation, Padding: cfg.Padding}
	if err := params.Validate(); err != nil {
		panic(fmt.Sprintf("conv2d: %v", err))
	}

	k := cfg.KernelSize
	fanIn, fanOut := convFans(k, k, cfg.InChannels, cfg.OutChannels)
	weight := NewParameter("weight", Xavier(fanIn, fanOut, tensor.Shape{k, k, cfg.InChannels, cfg.OutChannels}, backend))
	weight.SetRegularizer(cfg.Regularizer)

	var bias *Parameter[B]
	if cfg.UseBias {
		bias = NewParameter("bias", Zeros(tensor.Shape{cfg.OutChannels}, backend))
	}

	return &Conv2D[B]{
		cfg:     cfg,
		weight:  weight,
		bias:    bias,
		backend: backend,
	}
}

// Forward performs the forward pass.
//
// Input: [batch, height, width, in_channels]
// Output: [batch, out_h, out_w, out_channels].
func (c *Conv2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	inputShape := input.Shape()
	if len(inputShape) != 4 {
		panic(fmt.Sprintf("conv2d: expected 4D input [N,H,W,C], got %dD", len(inputShape)))
	}
	if inputShape[3] != c.cfg.InChannels {
		panic(fmt.Sprintf("conv2d: input channels %d != expected %d", inputShape[3], c.cfg.InChannels))
	}

	outputRaw := c.backend.Conv2D(input.Raw(), c.weight.Tensor().Raw(), c.params())
	output := tensor.New[float32, B](outputRaw, c.backend)

	// Bias [out_channels] broadcasts over the trailing channel axis.
	if c.bias != nil {
		output = output.Add(c.bias.Tensor())
	}

	return activate(c.cfg.Activation, output)
}

func (c *Conv2D[B]) params() tensor.Conv2DParams {
	return tensor.Conv2DParams{Stride: c.cfg.Stride, Dilation: c.cfg.Dilation, Padding: c.cfg.Padding}
}

// Parameters returns [weight, bias] or [weight] when the layer has no bias.
func (c *Conv2D[B]) Parameters() []*Parameter[B] {
	if c.bias != nil {
		return []*Parameter[B]{c.weight, c.bias}
	}
	return []*Parameter[B]{c.weight}
}

// StateDict returns a map of parameter names to raw tensors.
func (c *Conv2D[B]) StateDict() map[string]*tensor.RawTensor {
	return paramStateDict(c.Parameters())
}

// LoadStateDict loads parameters from a state dictionary.
func (c *Conv2D[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if err := loadParams(c.Parameters(), stateDict); err != nil {
		return fmt.Errorf("conv2d: %w", err)
	}
	return nil
}

// Weight returns the kernel parameter.
func (c *Conv2D[B]) Weight() *Parameter[B] {
	return c.weight
}

// Bias returns the bias parameter, or nil.
func (c *Conv2D[B]) Bias() *Parameter[B] {
	return c.bias
}

// Config returns the layer configuration.
func (c *Conv2D[B]) Config() Conv2DConfig {
	return c.cfg
}

// String returns a string representation of the layer.
func (c *Conv2D[B]) String() string {
	return fmt.Sprintf("Conv2D(%d->%d, kernel=%dx%d, stride=%d, dilation=%d, padding=%s, activation=%s)",
		c.cfg.InChannels, c.cfg.OutChannels, c.cfg.KernelSize, c.cfg.KernelSize,
		c.cfg.Stride, c.cfg.Dilation, c.cfg.Padding, c.cfg.Activation)
}
