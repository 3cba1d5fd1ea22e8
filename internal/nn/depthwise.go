package nn

import (
	"fmt"

	"github.com/born-ml/shufflenet/internal/tensor"
)

// DepthwiseConv2DConfig describes a DepthwiseConv2D layer.
//
// Zero Stride and Dilation default to 1.
type DepthwiseConv2DConfig struct {
	Channels    int
	KernelSize  int
	Stride      int
	Dilation    int
	Padding     tensor.Padding
	UseBias     bool
	Regularizer Regularizer
}

// DepthwiseConv2D convolves every channel with its own spatial filter.
//
// Input shape:  [batch, height, width, channels]
// Weight shape: [kernel_h, kernel_w, channels, 1]
// Output shape: [batch, out_h, out_w, channels]
type DepthwiseConv2D[B tensor.Backend] struct {
	cfg DepthwiseConv2DConfig

	weight *Parameter[B]
	bias   *Parameter[B]

	backend B
}

// NewDepthwiseConv2D creates a depthwise convolution with Xavier-initialized filters.
func NewDepthwiseConv2D[B tensor.Backend](cfg DepthwiseConv2DConfig, backend B) *DepthwiseConv2D[B] {
	if cfg.Stride == 0 {
		cfg.Stride = 1
	}
	if cfg.Dilation == 0 {
		cfg.Dilation = 1
	}
	if cfg.Channels <= 0 || cfg.KernelSize <= 0 {
		panic(fmt.Sprintf("depthwise_conv2d: invalid channels %d or kernel size %d", cfg.Channels, cfg.KernelSize))
	}
	params := tensor.Conv2DParams{Stride: cfg.Stride, Dilation: cfg.Dilation, Padding: cfg.Padding}
	if err := params.Validate(); err != nil {
		panic(fmt.Sprintf("depthwise_conv2d: %v", err))
	}

	k := cfg.KernelSize
	fanIn, fanOut := convFans(k, k, cfg.Channels, 1)
	weight := NewParameter("weight", Xavier(fanIn, fanOut, tensor.Shape{k, k, cfg.Channels, 1}, backend))
	weight.SetRegularizer(cfg.Regularizer)

	var bias *Parameter[B]
	if cfg.UseBias {
		bias = NewParameter("bias", Zeros(tensor.Shape{cfg.Channels}, backend))
	}

	return &DepthwiseConv2D[B]{cfg: cfg, weight: weight, bias: bias, backend: backend}
}

// Forward performs the forward pass.
func (d *DepthwiseConv2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	inputShape := input.Shape()
	if len(inputShape) != 4 || inputShape[3] != d.cfg.Channels {
		panic(fmt.Sprintf("depthwise_conv2d: expected input [N,H,W,%d], got %v", d.cfg.Channels, inputShape))
	}

	params := tensor.Conv2DParams{Stride: d.cfg.Stride, Dilation: d.cfg.Dilation, Padding: d.cfg.Padding}
	output := tensor.New[float32, B](d.backend.DepthwiseConv2D(input.Raw(), d.weight.Tensor().Raw(), params), d.backend)
	if d.bias != nil {
		output = output.Add(d.bias.Tensor())
	}
	return output
}

// Parameters returns [weight, bias] or [weight] when the layer has no bias.
func (d *DepthwiseConv2D[B]) Parameters() []*Parameter[B] {
	if d.bias != nil {
		return []*Parameter[B]{d.weight, d.bias}
	}
	return []*Parameter[B]{d.weight}
}

// StateDict returns a map of parameter names to raw tensors.
func (d *DepthwiseConv2D[B]) StateDict() map[string]*tensor.RawTensor {
	return paramStateDict(d.Parameters())
}

// LoadStateDict loads parameters from a state dictionary.
func (d *DepthwiseConv2D[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if err := loadParams(d.Parameters(), stateDict); err != nil {
		return fmt.Errorf("depthwise_conv2d: %w", err)
	}
	return nil
}

// Weight returns the filter parameter.
func (d *DepthwiseConv2D[B]) Weight() *Parameter[B] {
	return d.weight
}

// Bias returns the bias parameter, or nil.
func (d *DepthwiseConv2D[B]) Bias() *Parameter[B] {
	return d.bias
}

// Config returns the layer configuration.
func (d *DepthwiseConv2D[B]) Config() DepthwiseConv2DConfig {
	return d.cfg
}

// String returns a string representation of the layer.
func (d *DepthwiseConv2D[B]) String() string {
	return fmt.Sprintf("DepthwiseConv2D(%d, kernel=%dx%d, stride=%d, dilation=%d, padding=%s)",
		d.cfg.Channels, d.cfg.KernelSize, d.cfg.KernelSize, d.cfg.Stride, d.cfg.Dilation, d.cfg.Padding)
}
