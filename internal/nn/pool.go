package nn

import (
	"fmt"

	"github.com/born-ml/shufflenet/internal/tensor"
)

// MaxPool2D is a 2D max pooling layer.
//
// Max pooling reduces spatial dimensions by taking the maximum value
// in each window. Unlike Conv2D, MaxPool2D has no learnable parameters.
//
// Input shape:  [batch, height, width, channels]
// Output shape: [batch, out_height, out_width, channels]
//
// With SAME padding out_height = ceil(height / stride) and padded cells
// never win the maximum.
//
// Example:
//
//	pool := nn.NewMaxPool2D(2, 2, tensor.PaddingSame, backend)
//	output := pool.Forward(input) // [32, 14, 14, 64] for [32, 28, 28, 64]
type MaxPool2D[B tensor.Backend] struct {
	params  tensor.Pool2DParams
	backend B
}

// NewMaxPool2D creates a new 2D max pooling layer.
func NewMaxPool2D[B tensor.Backend](kernelSize, stride int, padding tensor.Padding, backend B) *MaxPool2D[B] {
	if kernelSize <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid kernel size %d", kernelSize))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid stride %d", stride))
	}

	return &MaxPool2D[B]{
		params:  tensor.Pool2DParams{Size: kernelSize, Stride: stride, Padding: padding},
		backend: backend,
	}
}

// Forward performs the forward pass.
func (m *MaxPool2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	inputShape := input.Shape()
	if len(inputShape) != 4 {
		panic(fmt.Sprintf("maxpool2d: expected 4D input [N,H,W,C], got %dD", len(inputShape)))
	}
	return tensor.New[float32, B](m.backend.MaxPool2D(input.Raw(), m.params), m.backend)
}

// Parameters returns an empty slice (MaxPool2D has no parameters).
func (m *MaxPool2D[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{}
}

// String returns a string representation of the layer.
func (m *MaxPool2D[B]) String() string {
	return fmt.Sprintf("MaxPool2D(kernel_size=%d, stride=%d, padding=%s)",
		m.params.Size, m.params.Stride, m.params.Padding)
}

// KernelSize returns the pooling kernel size.
func (m *MaxPool2D[B]) KernelSize() int {
	return m.params.Size
}

// Stride returns the stride.
func (m *MaxPool2D[B]) Stride() int {
	return m.params.Stride
}

// Padding returns the padding mode.
func (m *MaxPool2D[B]) Padding() tensor.Padding {
	return m.params.Padding
}

// ComputeOutputSize computes output spatial dimensions for given input size.
//
// Returns: [out_height, out_width].
func (m *MaxPool2D[B]) ComputeOutputSize(inputH, inputW int) [2]int {
	p := m.params
	return [2]int{
		tensor.SpatialWindow(inputH, p.Size, p.Stride, 1, p.Padding).Out,
		tensor.SpatialWindow(inputW, p.Size, p.Stride, 1, p.Padding).Out,
	}
}

// GlobalAvgPool2D averages each channel over all spatial positions:
// [batch, height, width, channels] -> [batch, channels].
type GlobalAvgPool2D[B tensor.Backend] struct {
	backend B
}

// NewGlobalAvgPool2D creates a global average pooling layer.
func NewGlobalAvgPool2D[B tensor.Backend](backend B) *GlobalAvgPool2D[B] {
	return &GlobalAvgPool2D[B]{backend: backend}
}

// Forward performs the forward pass.
func (g *GlobalAvgPool2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return tensor.New[float32, B](g.backend.GlobalAvgPool2D(input.Raw()), g.backend)
}

// Parameters returns an empty slice.
func (g *GlobalAvgPool2D[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{}
}

// String returns a string representation of the layer.
func (g *GlobalAvgPool2D[B]) String() string {
	return "GlobalAvgPool2D()"
}
