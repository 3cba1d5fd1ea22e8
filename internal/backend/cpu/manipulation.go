package cpu

import (
	"fmt"

	"github.com/born-ml/shufflenet/internal/tensor"
)

// Reshape returns a copy of t with a new shape. One dimension may be -1.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	shape, err := newShape.Infer(t.NumElements())
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	result := cpu.newResult("reshape", shape, t.DType())
	copy(result.Data(), t.Data())
	return result
}

// Transpose permutes the axes of t. Without axes, the dimension order is reversed.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	rank := len(shape)
	if len(axes) == 0 {
		axes = make([]int, rank)
		for i := range axes {
			axes[i] = rank - 1 - i
		}
	}
	if len(axes) != rank {
		panic(fmt.Sprintf("transpose: got %d axes for rank %d tensor", len(axes), rank))
	}
	seen := make([]bool, rank)
	perm := make([]int, rank)
	for i, a := range axes {
		a = tensor.NormalizeDim(a, rank)
		if seen[a] {
			panic(fmt.Sprintf("transpose: repeated axis %d in %v", a, axes))
		}
		seen[a] = true
		perm[i] = a
	}

	outShape := make(tensor.Shape, rank)
	for i, a := range perm {
		outShape[i] = shape[a]
	}

	result := cpu.newResult("transpose", outShape, t.DType())
	switch t.DType() {
	case tensor.Float32:
		permute(values[float32](t), values[float32](result), shape, outShape, perm)
	case tensor.Float64:
		permute(values[float64](t), values[float64](result), shape, outShape, perm)
	default:
		panic(fmt.Sprintf("transpose: unsupported dtype %s", t.DType()))
	}
	return result
}

func permute[T tensor.DType](src, dst []T, shape, outShape tensor.Shape, perm []int) {
	inStrides := shape.ComputeStrides()
	// Source stride for each output axis.
	strides := make([]int, len(perm))
	for i, a := range perm {
		strides[i] = inStrides[a]
	}

	coords := make([]int, len(outShape))
	srcIdx := 0
	for i := range dst {
		dst[i] = src[srcIdx]
		for d := len(outShape) - 1; d >= 0; d-- {
			coords[d]++
			srcIdx += strides[d]
			if coords[d] < outShape[d] {
				break
			}
			srcIdx -= strides[d] * coords[d]
			coords[d] = 0
		}
	}
}

// Cat concatenates tensors along dim.
//
// All tensors must match in rank, dtype and every dimension except dim.
func (cpu *CPUBackend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(tensors) == 0 {
		panic("cat: at least one tensor required")
	}

	first := tensors[0]
	rank := len(first.Shape())
	dim = tensor.NormalizeDim(dim, rank)

	outShape := first.Shape().Clone()
	outShape[dim] = 0
	for i, t := range tensors {
		s := t.Shape()
		if len(s) != rank {
			panic(fmt.Sprintf("cat: tensor %d has rank %d, expected %d", i, len(s), rank))
		}
		if t.DType() != first.DType() {
			panic(fmt.Sprintf("cat: tensor %d has dtype %s, expected %s", i, t.DType(), first.DType()))
		}
		for d := 0; d < rank; d++ {
			if d != dim && s[d] != first.Shape()[d] {
				panic(fmt.Sprintf("cat: tensor %d shape %v incompatible with %v at dimension %d", i, s, first.Shape(), d))
			}
		}
		outShape[dim] += s[dim]
	}

	result := cpu.newResult("cat", outShape, first.DType())

	// Treat each tensor as [outer, dim*inner] bytes and interleave the rows.
	outer := 1
	for d := 0; d < dim; d++ {
		outer *= outShape[d]
	}
	elem := first.DType().Size()
	innerBytes := elem
	for d := dim + 1; d < rank; d++ {
		innerBytes *= outShape[d]
	}

	out := result.Data()
	outRow := outShape[dim] * innerBytes
	offset := 0
	for _, t := range tensors {
		src := t.Data()
		rowBytes := t.Shape()[dim] * innerBytes
		for o := 0; o < outer; o++ {
			copy(out[o*outRow+offset:o*outRow+offset+rowBytes], src[o*rowBytes:(o+1)*rowBytes])
		}
		offset += rowBytes
	}
	return result
}

// Chunk splits x into n equal parts along dim.
func (cpu *CPUBackend) Chunk(x *tensor.RawTensor, n, dim int) []*tensor.RawTensor {
	if n <= 0 {
		panic(fmt.Sprintf("chunk: n must be positive, got %d", n))
	}
	shape := x.Shape()
	rank := len(shape)
	dim = tensor.NormalizeDim(dim, rank)
	if shape[dim]%n != 0 {
		panic(fmt.Sprintf("chunk: dimension %d (size %d) not divisible by %d", dim, shape[dim], n))
	}

	partShape := shape.Clone()
	partShape[dim] = shape[dim] / n

	outer := 1
	for d := 0; d < dim; d++ {
		outer *= shape[d]
	}
	innerBytes := x.DType().Size()
	for d := dim + 1; d < rank; d++ {
		innerBytes *= shape[d]
	}

	src := x.Data()
	srcRow := shape[dim] * innerBytes
	partRow := partShape[dim] * innerBytes

	parts := make([]*tensor.RawTensor, n)
	for i := range parts {
		part := cpu.newResult("chunk", partShape, x.DType())
		dst := part.Data()
		for o := 0; o < outer; o++ {
			start := o*srcRow + i*partRow
			copy(dst[o*partRow:(o+1)*partRow], src[start:start+partRow])
		}
		parts[i] = part
	}
	return parts
}
