package cpu

import (
	"testing"

	"github.com/born-ml/shufflenet/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestName(t *testing.T) {
	backend := New()
	assert.Equal(t, "CPU", backend.Name())
	assert.Equal(t, tensor.CPU, backend.Device())
}

func TestAdd_SameShape(t *testing.T) {
	backend := New()
	a := raw32(t, []float32{1, 2, 3, 4}, 2, 2)
	b := raw32(t, []float32{10, 20, 30, 40}, 2, 2)

	assert.Equal(t, []float32{11, 22, 33, 44}, backend.Add(a, b).AsFloat32())
}

func TestAdd_ChannelBias(t *testing.T) {
	backend := New()
	a := raw32(t, seq32(6), 1, 1, 2, 3)
	bias := raw32(t, []float32{100, 200, 300}, 3)

	out := backend.Add(a, bias)
	require.Equal(t, tensor.Shape{1, 1, 2, 3}, out.Shape())
	assert.Equal(t, []float32{101, 202, 303, 104, 205, 306}, out.AsFloat32())
}

func TestMul_BroadcastColumn(t *testing.T) {
	backend := New()
	a := raw32(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	col := raw32(t, []float32{2, 10}, 2, 1)

	out := backend.Mul(a, col)
	require.Equal(t, tensor.Shape{2, 3}, out.Shape())
	assert.Equal(t, []float32{2, 4, 6, 40, 50, 60}, out.AsFloat32())
}

func TestAdd_IncompatiblePanics(t *testing.T) {
	backend := New()
	a := raw32(t, seq32(6), 2, 3)
	b := raw32(t, seq32(4), 2, 2)

	assert.Panics(t, func() { backend.Add(a, b) })
}

func TestScalarOps(t *testing.T) {
	backend := New()
	x := raw32(t, []float32{1, -2, 3}, 3)

	assert.Equal(t, []float32{2, -1, 4}, backend.AddScalar(x, 1).AsFloat32())
	assert.Equal(t, []float32{-2, 4, -6}, backend.MulScalar(x, -2).AsFloat32())
}

func TestMatMul(t *testing.T) {
	backend := New()
	a := raw32(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	b := raw32(t, []float32{7, 8, 9, 10, 11, 12}, 3, 2)

	out := backend.MatMul(a, b)
	require.Equal(t, tensor.Shape{2, 2}, out.Shape())
	assert.Equal(t, []float32{58, 64, 139, 154}, out.AsFloat32())
}

func TestMatMul_InnerMismatchPanics(t *testing.T) {
	backend := New()
	a := raw32(t, seq32(6), 2, 3)
	b := raw32(t, seq32(4), 2, 2)

	assert.Panics(t, func() { backend.MatMul(a, b) })
}

func TestReLU(t *testing.T) {
	backend := New()
	x := raw32(t, []float32{-1, 0, 2.5, -0.1}, 4)

	assert.Equal(t, []float32{0, 0, 2.5, 0}, backend.ReLU(x).AsFloat32())
}

func TestSoftmax_RowsSumToOne(t *testing.T) {
	backend := New()
	x := raw32(t, []float32{1, 2, 3, 1000, 1000, 1000}, 2, 3)

	out := backend.Softmax(x, -1).AsFloat32()
	assert.InDelta(t, 1.0, float64(out[0]+out[1]+out[2]), 1e-5)
	assert.InDelta(t, 1.0, float64(out[3]+out[4]+out[5]), 1e-5)
	assert.Less(t, out[0], out[1])
	assert.Less(t, out[1], out[2])
	assert.InDelta(t, 1.0/3.0, float64(out[4]), 1e-5)
}

func TestSoftmax_Dim0(t *testing.T) {
	backend := New()
	x := raw32(t, []float32{0, 5, 0, 5}, 2, 2)

	out := backend.Softmax(x, 0).AsFloat32()
	assert.InDeltaSlice(t, []float32{0.5, 0.5, 0.5, 0.5}, out, 1e-6)
}

func TestSum(t *testing.T) {
	backend := New()
	out := backend.Sum(raw32(t, seq32(4), 2, 2))

	assert.Equal(t, 0, len(out.Shape()))
	assert.Equal(t, []float32{10}, out.AsFloat32())
}

func TestMeanDim(t *testing.T) {
	backend := New()
	x := raw32(t, seq32(6), 2, 3)

	out := backend.MeanDim(x, 1, false)
	require.Equal(t, tensor.Shape{2}, out.Shape())
	assert.Equal(t, []float32{2, 5}, out.AsFloat32())

	kept := backend.MeanDim(x, 0, true)
	require.Equal(t, tensor.Shape{1, 3}, kept.Shape())
	assert.Equal(t, []float32{2.5, 3.5, 4.5}, kept.AsFloat32())
}
