package shufflenet

import (
	"fmt"

	"github.com/born-ml/shufflenet/internal/tensor"
)

// inputChannels validates a [batch, height, width, channels] input and
// returns its channel count.
func inputChannels[B tensor.Backend](input *tensor.Tensor[float32, B]) (int, error) {
	shape := input.Shape()
	if len(shape) != 4 {
		return 0, fmt.Errorf("%w: expected [batch, height, width, channels], got %v", ErrInvalidInput, shape)
	}
	return shape[3], nil
}

// Classify builds a freshly initialized classifier sized for input and
// returns its class probabilities [batch, numClasses].
//
// cfg.NumClasses is replaced by numClasses. Configuration errors are
// reported before any layer is constructed.
func Classify[B tensor.Backend](input *tensor.Tensor[float32, B], numClasses int, cfg Config) (*tensor.Tensor[float32, B], error) {
	cfg.NumClasses = numClasses
	if err := cfg.ValidateClassifier(); err != nil {
		return nil, err
	}
	channels, err := inputChannels(input)
	if err != nil {
		return nil, err
	}

	model, err := NewClassifier(channels, cfg, input.Backend())
	if err != nil {
		return nil, err
	}
	return model.Forward(input), nil
}

// Base builds a freshly initialized backbone sized for input and returns the
// final feature map together with the branch exits.
func Base[B tensor.Backend](input *tensor.Tensor[float32, B], cfg Config) (*tensor.Tensor[float32, B], BranchExits[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	channels, err := inputChannels(input)
	if err != nil {
		return nil, nil, err
	}

	model, err := NewBackbone(channels, cfg, input.Backend())
	if err != nil {
		return nil, nil, err
	}
	features, exits := model.ForwardWithExits(input)
	return features, exits, nil
}
