package cpu

import (
	"fmt"

	"github.com/born-ml/shufflenet/internal/tensor"
)

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("add", a, b,
		func(x, y float32) float32 { return x + y },
		func(x, y float64) float64 { return x + y })
}

// Mul performs element-wise multiplication with NumPy-style broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("mul", a, b,
		func(x, y float32) float32 { return x * y },
		func(x, y float64) float64 { return x * y })
}

// AddScalar adds scalar to every element.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	return cpu.unary("add_scalar", x,
		func(v float32) float32 { return v + float32(scalar) },
		func(v float64) float64 { return v + scalar })
}

// MulScalar multiplies every element by scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	return cpu.unary("mul_scalar", x,
		func(v float32) float32 { return v * float32(scalar) },
		func(v float64) float64 { return v * scalar })
}

func (cpu *CPUBackend) unary(op string, x *tensor.RawTensor, f32 func(float32) float32, f64 func(float64) float64) *tensor.RawTensor {
	requireFloat(op, x.DType())
	result := cpu.newResult(op, x.Shape(), x.DType())
	switch x.DType() {
	case tensor.Float32:
		mapValues(values[float32](result), values[float32](x), f32)
	case tensor.Float64:
		mapValues(values[float64](result), values[float64](x), f64)
	}
	return result
}

func mapValues[T tensor.DType](dst, src []T, f func(T) T) {
	for i, v := range src {
		dst[i] = f(v)
	}
}

func (cpu *CPUBackend) binary(op string, a, b *tensor.RawTensor, f32 func(x, y float32) float32, f64 func(x, y float64) float64) *tensor.RawTensor {
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch %s vs %s", op, a.DType(), b.DType()))
	}
	requireFloat(op, a.DType())

	outShape, _, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}

	result := cpu.newResult(op, outShape, a.DType())
	switch a.DType() {
	case tensor.Float32:
		broadcastBinary(values[float32](result), values[float32](a), values[float32](b), outShape, a.Shape(), b.Shape(), f32)
	case tensor.Float64:
		broadcastBinary(values[float64](result), values[float64](a), values[float64](b), outShape, a.Shape(), b.Shape(), f64)
	}
	return result
}

// broadcastStrides returns strides of shape aligned to outShape, with zero
// stride on broadcast dimensions.
func broadcastStrides(shape, outShape tensor.Shape) []int {
	strides := make([]int, len(outShape))
	own := shape.ComputeStrides()
	offset := len(outShape) - len(shape)
	for i := range shape {
		if shape[i] != 1 {
			strides[offset+i] = own[i]
		}
	}
	return strides
}

func broadcastBinary[T tensor.DType](dst, a, b []T, outShape, aShape, bShape tensor.Shape, f func(x, y T) T) {
	// Fast path: identical shapes.
	if aShape.Equal(bShape) {
		for i := range dst {
			dst[i] = f(a[i], b[i])
		}
		return
	}

	// Fast path: b repeats along the leading dims (e.g. a per-channel bias).
	if len(b) > 0 && len(a) == len(dst) && len(dst)%len(b) == 0 && trailingMatch(outShape, bShape) {
		n := len(b)
		for i := range dst {
			dst[i] = f(a[i], b[i%n])
		}
		return
	}

	aStrides := broadcastStrides(aShape, outShape)
	bStrides := broadcastStrides(bShape, outShape)
	coords := make([]int, len(outShape))
	aIdx, bIdx := 0, 0
	for i := range dst {
		dst[i] = f(a[aIdx], b[bIdx])

		// Advance the multi-index like an odometer.
		for d := len(outShape) - 1; d >= 0; d-- {
			coords[d]++
			aIdx += aStrides[d]
			bIdx += bStrides[d]
			if coords[d] < outShape[d] {
				break
			}
			aIdx -= aStrides[d] * coords[d]
			bIdx -= bStrides[d] * coords[d]
			coords[d] = 0
		}
	}
}

// trailingMatch reports whether shape, ignoring leading size-1 dims, equals
// the trailing dims of outShape.
func trailingMatch(outShape, shape tensor.Shape) bool {
	start := 0
	for start < len(shape) && shape[start] == 1 {
		start++
	}
	trimmed := shape[start:]
	if len(trimmed) > len(outShape) {
		return false
	}
	return tensor.Shape(outShape[len(outShape)-len(trimmed):]).Equal(trimmed)
}
