package cpu

import (
	"github.com/born-ml/shufflenet/internal/tensor"
)

// Sum reduces all elements to a scalar tensor.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	requireFloat("sum", x.DType())
	result := cpu.newResult("sum", tensor.Shape{}, x.DType())
	switch x.DType() {
	case tensor.Float32:
		values[float32](result)[0] = float32(sum(values[float32](x)))
	case tensor.Float64:
		values[float64](result)[0] = sum(values[float64](x))
	}
	return result
}

func sum[T tensor.DType](x []T) float64 {
	var s float64
	for _, v := range x {
		s += float64(v)
	}
	return s
}

// MeanDim averages x along dim, keeping it as size 1 when keepDim is set.
func (cpu *CPUBackend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	requireFloat("mean_dim", x.DType())
	shape := x.Shape()
	dim = tensor.NormalizeDim(dim, len(shape))

	outer, inner := 1, 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}

	outShape := make(tensor.Shape, 0, len(shape))
	for i, d := range shape {
		switch {
		case i != dim:
			outShape = append(outShape, d)
		case keepDim:
			outShape = append(outShape, 1)
		}
	}

	result := cpu.newResult("mean_dim", outShape, x.DType())
	switch x.DType() {
	case tensor.Float32:
		meanDim(values[float32](x), values[float32](result), outer, shape[dim], inner)
	case tensor.Float64:
		meanDim(values[float64](x), values[float64](result), outer, shape[dim], inner)
	}
	return result
}

func meanDim[T tensor.DType](x, out []T, outer, size, inner int) {
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			var s float64
			for i := 0; i < size; i++ {
				s += float64(x[(o*size+i)*inner+in])
			}
			out[o*inner+in] = T(s / float64(size))
		}
	}
}
