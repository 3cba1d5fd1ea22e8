package shufflenet

import (
	"fmt"

	"github.com/born-ml/shufflenet/internal/nn"
	"github.com/born-ml/shufflenet/internal/tensor"
)

// Classifier is the full ShuffleNet V2: backbone -> 1x1 conv -> global
// average pool -> dense softmax head.
type Classifier[B tensor.Backend] struct {
	backbone *Backbone[B]

	conv  *nn.Conv2D[B]
	pool  *nn.GlobalAvgPool2D[B]
	dense *nn.Linear[B]
}

// NewClassifier validates cfg (including NumClasses) and builds a freshly
// initialized classifier for inputs with inChannels channels.
func NewClassifier[B tensor.Backend](inChannels int, cfg Config, backend B) (*Classifier[B], error) {
	if err := cfg.ValidateClassifier(); err != nil {
		return nil, err
	}
	backbone, err := NewBackbone(inChannels, cfg, backend)
	if err != nil {
		return nil, err
	}

	final := cfg.DepthMultiplier.FinalChannels()
	return &Classifier[B]{
		backbone: backbone,
		conv: nn.NewConv2D(nn.Conv2DConfig{
			InChannels:  backbone.OutChannels(),
			OutChannels: final,
			KernelSize:  1,
			Stride:      1,
			Padding:     tensor.PaddingSame,
			UseBias:     true,
			Regularizer: regularizer(cfg),
		}, backend),
		pool: nn.NewGlobalAvgPool2D(backend),
		dense: nn.NewLinear(final, cfg.NumClasses, backend,
			nn.WithKernelInit[B](nn.HeNormal[B]),
			nn.WithActivation[B](nn.ActivationSoftmax),
		),
	}, nil
}

// Forward returns class probabilities [batch, num_classes]; every row sums to one.
func (c *Classifier[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	x = c.backbone.Forward(x)
	x = c.conv.Forward(x)
	x = c.pool.Forward(x)
	return c.dense.Forward(x)
}

// Backbone returns the feature extractor.
func (c *Classifier[B]) Backbone() *Backbone[B] {
	return c.backbone
}

// Config returns the configuration the classifier was built with.
func (c *Classifier[B]) Config() Config {
	return c.backbone.cfg
}

// Parameters returns every parameter, backbone first.
func (c *Classifier[B]) Parameters() []*nn.Parameter[B] {
	params := c.backbone.Parameters()
	params = append(params, c.conv.Parameters()...)
	return append(params, c.dense.Parameters()...)
}

// SetTraining switches every batch norm layer between batch and moving statistics.
func (c *Classifier[B]) SetTraining(training bool) {
	c.backbone.SetTraining(training)
}

// RegularizationLoss returns the sum of all L2 kernel penalties.
func (c *Classifier[B]) RegularizationLoss() float64 {
	return nn.RegularizationLoss(c.Parameters())
}

// StateDict returns the backbone parameters plus "logits.conv.*" and "logits.dense.*".
func (c *Classifier[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := c.backbone.StateDict()
	nn.PrefixStateDict(stateDict, c.conv.StateDict(), "logits.conv.")
	nn.PrefixStateDict(stateDict, c.dense.StateDict(), "logits.dense.")
	return stateDict
}

// LoadStateDict restores the classifier from names produced by StateDict.
func (c *Classifier[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if err := c.backbone.LoadStateDict(stateDict); err != nil {
		return err
	}
	if err := c.conv.LoadStateDict(nn.SubStateDict(stateDict, "logits.conv.")); err != nil {
		return fmt.Errorf("logits.conv: %w", err)
	}
	if err := c.dense.LoadStateDict(nn.SubStateDict(stateDict, "logits.dense.")); err != nil {
		return fmt.Errorf("logits.dense: %w", err)
	}
	return nil
}

// String returns a short description of the classifier.
func (c *Classifier[B]) String() string {
	cfg := c.backbone.cfg
	return fmt.Sprintf("ShuffleNetV2(depth_multiplier=%s, output_stride=%d, num_classes=%d)",
		cfg.DepthMultiplier, cfg.OutputStride, cfg.NumClasses)
}
