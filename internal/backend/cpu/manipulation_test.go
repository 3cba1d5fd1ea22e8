package cpu

import (
	"testing"

	"github.com/born-ml/shufflenet/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReshape_Infer(t *testing.T) {
	backend := New()
	x := raw32(t, seq32(12), 2, 6)

	out := backend.Reshape(x, tensor.Shape{-1, 3, 2})
	require.Equal(t, tensor.Shape{2, 3, 2}, out.Shape())
	assert.Equal(t, x.AsFloat32(), out.AsFloat32())

	// Result owns its buffer.
	out.AsFloat32()[0] = 99
	assert.Equal(t, float32(1), x.AsFloat32()[0])
}

func TestReshape_BadCountPanics(t *testing.T) {
	backend := New()
	x := raw32(t, seq32(12), 2, 6)

	assert.Panics(t, func() { backend.Reshape(x, tensor.Shape{5, 2}) })
}

func TestTranspose_2D(t *testing.T) {
	backend := New()
	x := raw32(t, seq32(6), 2, 3)

	out := backend.Transpose(x)
	require.Equal(t, tensor.Shape{3, 2}, out.Shape())
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, out.AsFloat32())
}

func TestTranspose_LastTwoAxes(t *testing.T) {
	backend := New()
	// [1, 1, 1, 2, 3] -> [1, 1, 1, 3, 2]: the channel shuffle pattern.
	x := raw32(t, []float32{0, 1, 2, 3, 4, 5}, 1, 1, 1, 2, 3)

	out := backend.Transpose(x, 0, 1, 2, 4, 3)
	require.Equal(t, tensor.Shape{1, 1, 1, 3, 2}, out.Shape())
	assert.Equal(t, []float32{0, 3, 1, 4, 2, 5}, out.AsFloat32())
}

func TestTranspose_RepeatedAxisPanics(t *testing.T) {
	backend := New()
	x := raw32(t, seq32(6), 2, 3)

	assert.Panics(t, func() { backend.Transpose(x, 0, 0) })
}

func TestCat_LastDim(t *testing.T) {
	backend := New()
	a := raw32(t, []float32{1, 2, 3, 4}, 1, 1, 2, 2)
	b := raw32(t, []float32{5, 6}, 1, 1, 2, 1)

	out := backend.Cat([]*tensor.RawTensor{a, b}, -1)
	require.Equal(t, tensor.Shape{1, 1, 2, 3}, out.Shape())
	assert.Equal(t, []float32{1, 2, 5, 3, 4, 6}, out.AsFloat32())
}

func TestCat_FirstDim(t *testing.T) {
	backend := New()
	a := raw32(t, []float32{1, 2}, 1, 2)
	b := raw32(t, []float32{3, 4, 5, 6}, 2, 2)

	out := backend.Cat([]*tensor.RawTensor{a, b}, 0)
	require.Equal(t, tensor.Shape{3, 2}, out.Shape())
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, out.AsFloat32())
}

func TestCat_MismatchPanics(t *testing.T) {
	backend := New()
	a := raw32(t, seq32(4), 1, 2, 2)
	b := raw32(t, seq32(6), 1, 3, 2)

	assert.Panics(t, func() { backend.Cat([]*tensor.RawTensor{a, b}, -1) })
	assert.PanicsWithValue(t, "cat: at least one tensor required", func() { backend.Cat(nil, 0) })
}

func TestChunk_LastDim(t *testing.T) {
	backend := New()
	x := raw32(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, 1, 1, 2, 4)

	parts := backend.Chunk(x, 2, -1)
	require.Len(t, parts, 2)
	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, parts[0].Shape())
	assert.Equal(t, []float32{1, 2, 5, 6}, parts[0].AsFloat32())
	assert.Equal(t, []float32{3, 4, 7, 8}, parts[1].AsFloat32())
}

func TestChunk_CatRoundTrip(t *testing.T) {
	backend := New()
	x := raw32(t, seq32(2*3*4*6), 2, 3, 4, 6)

	parts := backend.Chunk(x, 3, 3)
	back := backend.Cat(parts, 3)
	assert.Equal(t, x.AsFloat32(), back.AsFloat32())
}

func TestChunk_IndivisiblePanics(t *testing.T) {
	backend := New()
	x := raw32(t, seq32(6), 2, 3)

	assert.Panics(t, func() { backend.Chunk(x, 2, 1) })
}
