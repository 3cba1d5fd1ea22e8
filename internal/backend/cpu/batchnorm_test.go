package cpu

import (
	"math"
	"testing"

	"github.com/born-ml/shufflenet/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchNorm_Identity(t *testing.T) {
	backend := New()

	x := raw32(t, seq32(12), 1, 2, 2, 3)
	zeros := raw32(t, []float32{0, 0, 0}, 3)
	ones := raw32(t, []float32{1, 1, 1}, 3)

	out := backend.BatchNorm(x, zeros, ones, ones, zeros, 0)
	assert.InDeltaSlice(t, x.AsFloat32(), out.AsFloat32(), 1e-6)
}

func TestBatchNorm_PerChannel(t *testing.T) {
	backend := New()

	x := raw32(t, []float32{
		1, 10,
		3, 30,
	}, 1, 1, 2, 2)
	mean := raw32(t, []float32{2, 20}, 2)
	variance := raw32(t, []float32{1, 100}, 2)
	scale := raw32(t, []float32{2, 1}, 2)
	offset := raw32(t, []float32{0.5, -1}, 2)

	out := backend.BatchNorm(x, mean, variance, scale, offset, 0)
	assert.InDeltaSlice(t, []float32{-1.5, -2, 2.5, 0}, out.AsFloat32(), 1e-5)
}

func TestBatchNorm_Epsilon(t *testing.T) {
	backend := New()

	x := raw32(t, []float32{1}, 1)
	zero := raw32(t, []float32{0}, 1)
	one := raw32(t, []float32{1}, 1)

	out := backend.BatchNorm(x, zero, zero, one, zero, 1e-2)
	assert.InDelta(t, 1/math.Sqrt(1e-2), out.AsFloat32()[0], 1e-4)
}

func TestBatchNorm_WrongLengthPanics(t *testing.T) {
	backend := New()
	x := raw32(t, seq32(6), 1, 1, 2, 3)
	p := raw32(t, []float32{0, 0}, 2)

	assert.Panics(t, func() { backend.BatchNorm(x, p, p, p, p, 1e-5) })
}

func TestMoments(t *testing.T) {
	backend := New()

	x := raw32(t, []float32{
		1, 5,
		3, 5,
		5, 5,
		7, 5,
	}, 2, 1, 2, 2)
	mean, variance := backend.Moments(x)

	require.Equal(t, tensor.Shape{2}, mean.Shape())
	assert.InDeltaSlice(t, []float32{4, 5}, mean.AsFloat32(), 1e-6)
	assert.InDeltaSlice(t, []float32{5, 0}, variance.AsFloat32(), 1e-6)
}
