package cpu

import (
	"math"

	"github.com/born-ml/shufflenet/internal/tensor"
)

// ReLU applies max(0, x) element-wise.
func (cpu *CPUBackend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("relu", x,
		func(v float32) float32 { return max(v, 0) },
		func(v float64) float64 { return max(v, 0) })
}

// Softmax computes softmax along dim.
//
// The maximum along dim is subtracted before exponentiation for numerical stability.
func (cpu *CPUBackend) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	requireFloat("softmax", x.DType())
	shape := x.Shape()
	dim = tensor.NormalizeDim(dim, len(shape))

	outer, inner := 1, 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}

	result := cpu.newResult("softmax", shape, x.DType())
	switch x.DType() {
	case tensor.Float32:
		softmax(values[float32](x), values[float32](result), outer, shape[dim], inner)
	case tensor.Float64:
		softmax(values[float64](x), values[float64](result), outer, shape[dim], inner)
	}
	return result
}

func softmax[T tensor.DType](x, out []T, outer, size, inner int) {
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			base := o*size*inner + in

			maxVal := x[base]
			for i := 1; i < size; i++ {
				maxVal = max(maxVal, x[base+i*inner])
			}

			var sum float64
			for i := 0; i < size; i++ {
				e := math.Exp(float64(x[base+i*inner] - maxVal))
				out[base+i*inner] = T(e)
				sum += e
			}

			for i := 0; i < size; i++ {
				out[base+i*inner] = T(float64(out[base+i*inner]) / sum)
			}
		}
	}
}
