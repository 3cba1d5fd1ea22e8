package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/shufflenet/backend/cpu"
	"github.com/born-ml/shufflenet/tensor"
)

func TestPublicCreation(t *testing.T) {
	backend := cpu.New()

	z := tensor.Zeros[float32](tensor.Shape{1, 2, 2, 3}, backend)
	assert.Equal(t, 12, z.Shape().NumElements())
	assert.Equal(t, tensor.Float32, z.Raw().DType())

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{1, 1, 2, 2}, backend)
	require.NoError(t, err)
	y := tensor.Cat([]*tensor.Tensor[float32, *cpu.Backend]{x, x}, 3)
	assert.Equal(t, []int{1, 1, 2, 4}, []int(y.Shape()))
	assert.Equal(t, []float32{1, 2, 1, 2, 3, 4, 3, 4}, y.Data())

	_, err = tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{2, 2}, backend)
	assert.Error(t, err)

	raw, err := tensor.NewRaw(tensor.Shape{2}, tensor.Float64, tensor.CPU)
	require.NoError(t, err)
	assert.Equal(t, 16, raw.ByteSize())
	assert.Equal(t, "same", tensor.PaddingSame.String())
}
