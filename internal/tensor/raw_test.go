package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRaw(t *testing.T) {
	r, err := NewRaw(Shape{2, 3}, Float32, CPU)
	require.NoError(t, err)

	assert.Equal(t, Shape{2, 3}, r.Shape())
	assert.Equal(t, []int{3, 1}, r.Strides())
	assert.Equal(t, 24, r.ByteSize())
	assert.Equal(t, Float32, r.DType())
	assert.Equal(t, "CPU", r.Device().String())

	_, err = NewRaw(Shape{2, 0}, Float32, CPU)
	assert.Error(t, err)
}

func TestRawTensor_Clone(t *testing.T) {
	r := MustNewRaw(Shape{3}, Float64, CPU)
	copy(r.AsFloat64(), []float64{1, 2, 3})

	c := r.Clone()
	c.AsFloat64()[0] = 42

	assert.Equal(t, []float64{1, 2, 3}, r.AsFloat64())
	assert.Equal(t, []float64{42, 2, 3}, c.AsFloat64())
}

func TestRawTensor_View(t *testing.T) {
	r := MustNewRaw(Shape{2, 3}, Float32, CPU)
	v, err := r.View(Shape{3, 2})
	require.NoError(t, err)

	v.AsFloat32()[5] = 7
	assert.Equal(t, float32(7), r.AsFloat32()[5])

	_, err = r.View(Shape{4})
	assert.Error(t, err)
}

func TestRawTensor_CopyFrom(t *testing.T) {
	src := MustNewRaw(Shape{2}, Float32, CPU)
	copy(src.AsFloat32(), []float32{5, 6})

	dst := MustNewRaw(Shape{2}, Float32, CPU)
	require.NoError(t, dst.CopyFrom(src))
	assert.Equal(t, []float32{5, 6}, dst.AsFloat32())

	assert.Error(t, dst.CopyFrom(MustNewRaw(Shape{3}, Float32, CPU)))
	assert.Error(t, dst.CopyFrom(MustNewRaw(Shape{2}, Float64, CPU)))
}

func TestRawTensor_WrongDTypePanics(t *testing.T) {
	r := MustNewRaw(Shape{2}, Float32, CPU)
	assert.Panics(t, func() { r.AsFloat64() })
}

func TestDataType(t *testing.T) {
	assert.Equal(t, 4, Float32.Size())
	assert.Equal(t, 8, Float64.Size())
	assert.Equal(t, "float32", Float32.String())
	assert.Equal(t, "float64", Float64.String())
}
