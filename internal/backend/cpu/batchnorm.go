package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/shufflenet/internal/tensor"
)

// BatchNorm normalizes input along its last (channel) axis:
//
//	y = (x - mean) / sqrt(variance + epsilon) * scale + offset
//
// mean, variance, scale and offset are 1-D tensors of length C.
func (cpu *CPUBackend) BatchNorm(input, mean, variance, scale, offset *tensor.RawTensor, epsilon float32) *tensor.RawTensor {
	requireFloat("batchnorm", input.DType())
	c := input.Shape().Channels()
	for name, p := range map[string]*tensor.RawTensor{"mean": mean, "variance": variance, "scale": scale, "offset": offset} {
		if p.NumElements() != c {
			panic(fmt.Sprintf("batchnorm: %s has %d elements, input has %d channels", name, p.NumElements(), c))
		}
		if p.DType() != input.DType() {
			panic(fmt.Sprintf("batchnorm: %s dtype %s doesn't match input %s", name, p.DType(), input.DType()))
		}
	}

	result := cpu.newResult("batchnorm", input.Shape(), input.DType())
	switch input.DType() {
	case tensor.Float32:
		batchNorm(values[float32](input), values[float32](mean), values[float32](variance),
			values[float32](scale), values[float32](offset), values[float32](result), float64(epsilon))
	case tensor.Float64:
		batchNorm(values[float64](input), values[float64](mean), values[float64](variance),
			values[float64](scale), values[float64](offset), values[float64](result), float64(epsilon))
	}
	return result
}

func batchNorm[T tensor.DType](x, mean, variance, scale, offset, out []T, epsilon float64) {
	c := len(mean)
	// Fold the statistics into a per-channel affine transform.
	mul := make([]T, c)
	add := make([]T, c)
	for ch := 0; ch < c; ch++ {
		inv := 1 / math.Sqrt(float64(variance[ch])+epsilon)
		mul[ch] = T(inv) * scale[ch]
		add[ch] = offset[ch] - mean[ch]*mul[ch]
	}
	for i, v := range x {
		ch := i % c
		out[i] = v*mul[ch] + add[ch]
	}
}

// Moments computes the per-channel mean and biased variance of input over
// every axis except the last.
func (cpu *CPUBackend) Moments(input *tensor.RawTensor) (mean, variance *tensor.RawTensor) {
	requireFloat("moments", input.DType())
	c := input.Shape().Channels()

	mean = cpu.newResult("moments", tensor.Shape{c}, input.DType())
	variance = cpu.newResult("moments", tensor.Shape{c}, input.DType())
	switch input.DType() {
	case tensor.Float32:
		moments(values[float32](input), values[float32](mean), values[float32](variance))
	case tensor.Float64:
		moments(values[float64](input), values[float64](mean), values[float64](variance))
	}
	return mean, variance
}

func moments[T tensor.DType](x, mean, variance []T) {
	c := len(mean)
	count := len(x) / c
	sum := make([]float64, c)
	for i, v := range x {
		sum[i%c] += float64(v)
	}
	for ch := range sum {
		sum[ch] /= float64(count)
		mean[ch] = T(sum[ch])
	}
	sq := make([]float64, c)
	for i, v := range x {
		d := float64(v) - sum[i%c]
		sq[i%c] += d * d
	}
	for ch := range sq {
		variance[ch] = T(sq[ch] / float64(count))
	}
}
