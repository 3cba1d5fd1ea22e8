package nn

import (
	"fmt"

	"github.com/born-ml/shufflenet/internal/tensor"
)

// BatchNorm normalizes channels-last activations per channel.
//
// In inference mode the moving statistics are used:
//
//	y = (x - moving_mean) / sqrt(moving_variance + epsilon) * gamma + beta
//
// In training mode the batch moments are used instead and the moving
// statistics are updated:
//
//	moving = moving*momentum + batch*(1 - momentum)
//
// gamma and beta are trainable; moving_mean and moving_variance are not.
type BatchNorm[B tensor.Backend] struct {
	channels int
	momentum float32
	epsilon  float32
	training bool

	gamma          *Parameter[B]
	beta           *Parameter[B]
	movingMean     *Parameter[B]
	movingVariance *Parameter[B]

	backend B
}

// NewBatchNorm creates a batch normalization layer over channels.
//
// gamma and moving_variance start at one, beta and moving_mean at zero.
func NewBatchNorm[B tensor.Backend](channels int, momentum, epsilon float32, backend B) *BatchNorm[B] {
	if channels <= 0 {
		panic(fmt.Sprintf("batchnorm: invalid channels %d", channels))
	}
	if momentum < 0 || momentum > 1 {
		panic(fmt.Sprintf("batchnorm: momentum %g outside [0, 1]", momentum))
	}
	if epsilon <= 0 {
		panic(fmt.Sprintf("batchnorm: epsilon must be positive, got %g", epsilon))
	}

	shape := tensor.Shape{channels}
	return &BatchNorm[B]{
		channels:       channels,
		momentum:       momentum,
		epsilon:        epsilon,
		gamma:          NewParameter("gamma", Ones(shape, backend)),
		beta:           NewParameter("beta", Zeros(shape, backend)),
		movingMean:     NewBuffer("moving_mean", Zeros(shape, backend)),
		movingVariance: NewBuffer("moving_variance", Ones(shape, backend)),
		backend:        backend,
	}
}

// Forward normalizes input along its last axis.
func (bn *BatchNorm[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if c := input.Shape().Channels(); c != bn.channels {
		panic(fmt.Sprintf("batchnorm: input has %d channels, expected %d", c, bn.channels))
	}

	mean, variance := bn.movingMean.Tensor().Raw(), bn.movingVariance.Tensor().Raw()
	if bn.training {
		mean, variance = bn.backend.Moments(input.Raw())
		bn.updateMoving(bn.movingMean, mean)
		bn.updateMoving(bn.movingVariance, variance)
	}

	out := bn.backend.BatchNorm(input.Raw(), mean, variance,
		bn.gamma.Tensor().Raw(), bn.beta.Tensor().Raw(), bn.epsilon)
	return tensor.New[float32, B](out, bn.backend)
}

func (bn *BatchNorm[B]) updateMoving(moving *Parameter[B], batch *tensor.RawTensor) {
	m := bn.momentum
	data := moving.Tensor().Data()
	for i, v := range batch.AsFloat32() {
		data[i] = data[i]*m + v*(1-m)
	}
}

// SetTraining switches between batch statistics (training) and moving
// statistics (inference).
func (bn *BatchNorm[B]) SetTraining(training bool) {
	bn.training = training
}

// Training reports whether the layer is in training mode.
func (bn *BatchNorm[B]) Training() bool {
	return bn.training
}

// Parameters returns [gamma, beta, moving_mean, moving_variance].
func (bn *BatchNorm[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{bn.gamma, bn.beta, bn.movingMean, bn.movingVariance}
}

// StateDict returns a map of parameter names to raw tensors.
func (bn *BatchNorm[B]) StateDict() map[string]*tensor.RawTensor {
	return paramStateDict(bn.Parameters())
}

// LoadStateDict loads parameters from a state dictionary.
func (bn *BatchNorm[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if err := loadParams(bn.Parameters(), stateDict); err != nil {
		return fmt.Errorf("batchnorm: %w", err)
	}
	return nil
}

// Momentum returns the moving average momentum.
func (bn *BatchNorm[B]) Momentum() float32 {
	return bn.momentum
}

// Epsilon returns the variance epsilon.
func (bn *BatchNorm[B]) Epsilon() float32 {
	return bn.epsilon
}

// Channels returns the number of normalized channels.
func (bn *BatchNorm[B]) Channels() int {
	return bn.channels
}

// String returns a string representation of the layer.
func (bn *BatchNorm[B]) String() string {
	return fmt.Sprintf("BatchNorm(%d, momentum=%g, epsilon=%g)", bn.channels, bn.momentum, bn.epsilon)
}
