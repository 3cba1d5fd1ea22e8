package cpu

import (
	"fmt"

	"github.com/born-ml/shufflenet/internal/tensor"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"
)

// MatMul performs 2-D matrix multiplication: (M, K) @ (K, N) -> (M, N).
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("matmul: dtype mismatch %s vs %s", a.DType(), b.DType()))
	}
	requireFloat("matmul", a.DType())

	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: expected 2D tensors, got %v and %v", aShape, bShape))
	}
	m, k, n := aShape[0], aShape[1], bShape[1]
	if bShape[0] != k {
		panic(fmt.Sprintf("matmul: inner dimensions mismatch %v @ %v", aShape, bShape))
	}

	result := cpu.newResult("matmul", tensor.Shape{m, n}, a.DType())
	switch a.DType() {
	case tensor.Float32:
		gemm32(values[float32](a), values[float32](b), values[float32](result), m, k, n)
	case tensor.Float64:
		gemm64(values[float64](a), values[float64](b), values[float64](result), m, k, n)
	}
	return result
}

// gemm32 computes c = a @ b for row-major a[m,k], b[k,n], c[m,n].
func gemm32(a, b, c []float32, m, k, n int) {
	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1,
		blas32.General{Rows: m, Cols: k, Stride: k, Data: a},
		blas32.General{Rows: k, Cols: n, Stride: n, Data: b},
		0,
		blas32.General{Rows: m, Cols: n, Stride: n, Data: c})
}

// gemm64 computes c = a @ b for row-major a[m,k], b[k,n], c[m,n].
func gemm64(a, b, c []float64, m, k, n int) {
	blas64.Gemm(blas.NoTrans, blas.NoTrans, 1,
		blas64.General{Rows: m, Cols: k, Stride: k, Data: a},
		blas64.General{Rows: k, Cols: n, Stride: n, Data: b},
		0,
		blas64.General{Rows: m, Cols: n, Stride: n, Data: c})
}

// gemm dispatches to the BLAS routine matching T.
func gemm[T tensor.DType](a, b, c []T, m, k, n int) {
	switch av := any(a).(type) {
	case []float32:
		gemm32(av, any(b).([]float32), any(c).([]float32), m, k, n)
	case []float64:
		gemm64(av, any(b).([]float64), any(c).([]float64), m, k, n)
	}
}
