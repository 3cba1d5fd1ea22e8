package shufflenet

import (
	"fmt"

	"github.com/born-ml/shufflenet/internal/tensor"
)

// channelAxis is the channel dimension of NHWC feature maps.
const channelAxis = 3

// ChannelShuffle interleaves the two halves of the channel axis:
// output channel 2i is input channel i and output channel 2i+1 is input
// channel D/2+i.
//
// The input must be [batch, height, width, D] with D even; otherwise it panics.
func ChannelShuffle[B tensor.Backend](x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := x.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("channel_shuffle: expected 4D input, got %v", shape))
	}
	n, h, w, d := shape[0], shape[1], shape[2], shape[3]
	if d%2 != 0 {
		panic(fmt.Sprintf("channel_shuffle: channel depth %d is odd", d))
	}

	return x.Reshape(n, h, w, 2, d/2).
		Transpose(0, 1, 2, 4, 3).
		Reshape(n, h, w, d)
}

// ShufflePermutation returns the source channel of every output channel of
// ChannelShuffle for depth d.
func ShufflePermutation(d int) []int {
	if d <= 0 || d%2 != 0 {
		panic(fmt.Sprintf("channel_shuffle: channel depth %d must be positive and even", d))
	}
	perm := make([]int, d)
	half := d / 2
	for i := range half {
		perm[2*i] = i
		perm[2*i+1] = half + i
	}
	return perm
}

// ConcatShuffleSplit concatenates a and b on the channel axis, shuffles the
// result and splits it into two halves of equal depth.
//
// a and b must agree on batch and spatial size and their channel sum must be even.
func ConcatShuffleSplit[B tensor.Backend](a, b *tensor.Tensor[float32, B]) (left, right *tensor.Tensor[float32, B]) {
	x := tensor.Cat([]*tensor.Tensor[float32, B]{a, b}, channelAxis)
	halves := ChannelShuffle(x).Chunk(2, channelAxis)
	return halves[0], halves[1]
}
