package tensor

import "fmt"

// Padding selects how spatial borders are handled by convolution and pooling.
type Padding int

// Padding modes.
const (
	// PaddingValid applies no padding; windows must fit inside the input.
	PaddingValid Padding = iota
	// PaddingSame pads so that out = ceil(in / stride).
	PaddingSame
)

// String returns the padding name.
func (p Padding) String() string {
	switch p {
	case PaddingValid:
		return "valid"
	case PaddingSame:
		return "same"
	default:
		return "unknown"
	}
}

// Conv2DParams configures Conv2D and DepthwiseConv2D.
type Conv2DParams struct {
	Stride   int
	Dilation int
	Padding  Padding
}

// Pool2DParams configures pooling windows.
type Pool2DParams struct {
	Size    int
	Stride  int
	Padding Padding
}

// Validate checks stride and dilation.
func (p Conv2DParams) Validate() error {
	if p.Stride <= 0 {
		return fmt.Errorf("invalid stride %d", p.Stride)
	}
	if p.Dilation <= 0 {
		return fmt.Errorf("invalid dilation %d", p.Dilation)
	}
	return nil
}

// WindowGeometry describes one spatial axis of a sliding window.
type WindowGeometry struct {
	Out    int // Output size
	PadLow int // Padding before the first input element
}

// SpatialWindow computes the output size and leading padding of one spatial
// axis for a window of kernel taps spaced dilation apart.
//
// SAME follows TensorFlow: out = ceil(in/stride); the total padding is
// max((out-1)*stride + effective - in, 0) and the odd pixel goes to the end.
func SpatialWindow(in, kernel, stride, dilation int, padding Padding) WindowGeometry {
	effective := (kernel-1)*dilation + 1
	switch padding {
	case PaddingSame:
		out := (in + stride - 1) / stride
		total := max((out-1)*stride+effective-in, 0)
		return WindowGeometry{Out: out, PadLow: total / 2}
	default:
		out := (in-effective)/stride + 1
		return WindowGeometry{Out: out, PadLow: 0}
	}
}
