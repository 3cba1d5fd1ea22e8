package shufflenet

import (
	"github.com/born-ml/shufflenet/internal/nn"
	"github.com/born-ml/shufflenet/internal/tensor"
)

// Entry stem geometry.
const (
	stemChannels   = 24
	stemKernelSize = 3
	stemStride     = 2
	poolSize       = 2
	poolStride     = 2
)

// NewBatchNorm creates a batch norm layer with the configured momentum and epsilon.
func NewBatchNorm[B tensor.Backend](channels int, cfg BatchNormConfig, backend B) *nn.BatchNorm[B] {
	return nn.NewBatchNorm(channels, cfg.Momentum, cfg.Epsilon, backend)
}

// regularizer returns the L2 kernel penalty for cfg.
func regularizer(cfg Config) nn.Regularizer {
	return nn.L2(cfg.WeightDecay)
}

// pointwise is a 1x1 convolution with ReLU and L2 kernel regularization.
func pointwise[B tensor.Backend](in, out int, cfg Config, backend B) *nn.Conv2D[B] {
	return nn.NewConv2D(nn.Conv2DConfig{
		InChannels:  in,
		OutChannels: out,
		KernelSize:  1,
		Stride:      1,
		Padding:     tensor.PaddingSame,
		UseBias:     true,
		Activation:  nn.ActivationReLU,
		Regularizer: regularizer(cfg),
	}, backend)
}

// depthwise is a 3x3 depthwise convolution without activation.
func depthwise[B tensor.Backend](channels, stride, rate int, backend B) *nn.DepthwiseConv2D[B] {
	return nn.NewDepthwiseConv2D(nn.DepthwiseConv2DConfig{
		Channels:   channels,
		KernelSize: 3,
		Stride:     stride,
		Dilation:   rate,
		Padding:    tensor.PaddingSame,
		UseBias:    true,
	}, backend)
}

// NewEntryStem builds the stem that reduces resolution 4x and produces 24 channels:
// 3x3 conv (stride 2, ReLU) -> batch norm -> 2x2 max pool (stride 2).
func NewEntryStem[B tensor.Backend](inChannels int, cfg Config, backend B) *nn.Sequential[B] {
	return nn.NewSequential[B](
		nn.NewConv2D(nn.Conv2DConfig{
			InChannels:  inChannels,
			OutChannels: stemChannels,
			KernelSize:  stemKernelSize,
			Stride:      stemStride,
			Padding:     tensor.PaddingSame,
			UseBias:     true,
			Activation:  nn.ActivationReLU,
			Regularizer: regularizer(cfg),
		}, backend),
		NewBatchNorm(stemChannels, cfg.BatchNorm, backend),
		nn.NewMaxPool2D(poolSize, poolStride, tensor.PaddingSame, backend),
	)
}

// NewBasicUnit builds the channel- and resolution-preserving unit applied to
// the left half after every shuffle: 1x1 conv -> BN -> 3x3 depthwise (dilated
// by rate) -> BN -> 1x1 conv -> BN.
func NewBasicUnit[B tensor.Backend](channels, rate int, cfg Config, backend B) *nn.Sequential[B] {
	return nn.NewSequential[B](
		pointwise(channels, channels, cfg, backend),
		NewBatchNorm(channels, cfg.BatchNorm, backend),
		depthwise(channels, 1, rate, backend),
		NewBatchNorm(channels, cfg.BatchNorm, backend),
		pointwise(channels, channels, cfg, backend),
		NewBatchNorm(channels, cfg.BatchNorm, backend),
	)
}

// NewDownsamplingUnit builds the two branches of a downsampling unit. Both
// must be applied to the same input; their outputs together have outChannels
// channels (2*inChannels when outChannels is zero).
//
// Right: 1x1 conv -> BN -> 3x3 depthwise (stride, rate) -> BN -> 1x1 conv -> BN.
// Left:  3x3 depthwise (stride, rate) -> BN -> 1x1 conv -> BN.
func NewDownsamplingUnit[B tensor.Backend](inChannels, outChannels, stride, rate int, cfg Config, backend B) (left, right *nn.Sequential[B]) {
	if outChannels == 0 {
		outChannels = 2 * inChannels
	}
	half := outChannels / 2

	right = nn.NewSequential[B](
		pointwise(inChannels, inChannels, cfg, backend),
		NewBatchNorm(inChannels, cfg.BatchNorm, backend),
		depthwise(inChannels, stride, rate, backend),
		NewBatchNorm(inChannels, cfg.BatchNorm, backend),
		pointwise(inChannels, half, cfg, backend),
		NewBatchNorm(half, cfg.BatchNorm, backend),
	)

	left = nn.NewSequential[B](
		depthwise(inChannels, stride, rate, backend),
		NewBatchNorm(inChannels, cfg.BatchNorm, backend),
		pointwise(inChannels, half, cfg, backend),
		NewBatchNorm(half, cfg.BatchNorm, backend),
	)

	return left, right
}
