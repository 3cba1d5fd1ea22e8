package nn

import (
	"math"

	"github.com/born-ml/shufflenet/internal/tensor"
	"gonum.org/v1/gonum/stat/distuv"
)

// Initializer creates a weight tensor of the given shape from its fan-in and fan-out.
type Initializer[B tensor.Backend] func(fanIn, fanOut int, shape tensor.Shape, backend B) *tensor.Tensor[float32, B]

// truncatedNormalStd is the standard deviation of a unit normal truncated
// to [-2, 2]. Dividing by it keeps the variance of the truncated draw.
const truncatedNormalStd = 0.87962566103423978

// Xavier (Glorot) initialization for weights.
//
// Initializes weights with values drawn from a uniform distribution:
// U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out)))
//
// This initialization helps maintain variance of activations across layers.
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
	dist := distuv.Uniform{Min: -bound, Max: bound}

	t := tensor.Zeros[float32](shape, backend)
	data := t.Data()
	for i := range data {
		data[i] = float32(dist.Rand())
	}
	return t
}

// HeNormal initialization for weights feeding ReLU or softmax units.
//
// Draws from a normal distribution with stddev sqrt(2/fan_in), truncated at
// two standard deviations.
func HeNormal[B tensor.Backend](fanIn, _ int, shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	sigma := math.Sqrt(2.0/float64(fanIn)) / truncatedNormalStd
	dist := distuv.Normal{Mu: 0, Sigma: sigma}

	t := tensor.Zeros[float32](shape, backend)
	data := t.Data()
	for i := range data {
		v := dist.Rand()
		for math.Abs(v) > 2*sigma {
			v = dist.Rand()
		}
		data[i] = float32(v)
	}
	return t
}

// Zeros creates a tensor filled with zeros.
//
// This is commonly used for bias initialization.
func Zeros[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return tensor.Zeros[float32](shape, backend)
}

// Ones creates a tensor filled with ones.
func Ones[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return tensor.Ones[float32](shape, backend)
}

// Randn creates a tensor with random values from standard normal distribution.
func Randn[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return tensor.Randn[float32](shape, backend)
}

// convFans returns Keras-style fans for a [K_h, K_w, in, out] kernel.
func convFans(kernelH, kernelW, in, out int) (fanIn, fanOut int) {
	receptive := kernelH * kernelW
	return in * receptive, out * receptive
}
