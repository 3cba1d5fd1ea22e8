package nn_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/shufflenet/backend/cpu"
	"github.com/born-ml/shufflenet/nn"
	"github.com/born-ml/shufflenet/tensor"
)

func TestPublicBlock(t *testing.T) {
	backend := cpu.New()
	block := nn.NewSequential[*cpu.Backend](
		nn.NewConv2D(nn.Conv2DConfig{
			InChannels:  3,
			OutChannels: 8,
			KernelSize:  3,
			Stride:      2,
			Padding:     tensor.PaddingSame,
			UseBias:     true,
			Activation:  nn.ActivationReLU,
			Regularizer: nn.L2(1e-4),
		}, backend),
		nn.NewBatchNorm(8, 0.997, 1e-5, backend),
		nn.NewGlobalAvgPool2D(backend),
		nn.NewLinearSoftmax(8, 4, backend),
	)

	x := tensor.Randn[float32](tensor.Shape{2, 9, 9, 3}, backend)
	y := block.Forward(x)
	require.Equal(t, []int{2, 4}, []int(y.Shape()))

	trainable, nonTrainable := nn.CountParameters[*cpu.Backend](block)
	assert.Equal(t, 3*3*3*8+8+2*8+8*4+4, trainable)
	assert.Equal(t, 2*8, nonTrainable)
	assert.Positive(t, nn.RegularizationLoss(block.Parameters()))

	sd := nn.StateDict[*cpu.Backend](block)
	assert.Contains(t, sd, "0.weight")
	assert.Contains(t, sd, "1.moving_variance")
	assert.Contains(t, sd, "3.weight")

	other := nn.NewSequential[*cpu.Backend](
		nn.NewConv2D(nn.Conv2DConfig{InChannels: 3, OutChannels: 8, KernelSize: 3, Stride: 2, Padding: tensor.PaddingSame, UseBias: true, Activation: nn.ActivationReLU}, backend),
		nn.NewBatchNorm(8, 0.997, 1e-5, backend),
		nn.NewGlobalAvgPool2D(backend),
		nn.NewLinearSoftmax(8, 4, backend),
	)
	require.NoError(t, nn.LoadStateDict[*cpu.Backend](other, sd))
	assert.InDeltaSlice(t, y.Data(), other.Forward(x).Data(), 1e-6)
}
