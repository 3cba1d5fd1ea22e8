package shufflenet

import (
	"fmt"
	"strconv"

	"github.com/born-ml/shufflenet/internal/nn"
	"github.com/born-ml/shufflenet/internal/tensor"
)

// BranchExits maps an output stride label ("4", "8", ...) to the feature map
// at that stride: the stem output plus the output of every stage that
// reduced resolution.
type BranchExits[B tensor.Backend] map[string]*tensor.Tensor[float32, B]

// Backbone is ShuffleNet V2 without the classification head: entry stem
// followed by three stages.
type Backbone[B tensor.Backend] struct {
	cfg        Config
	inChannels int

	stem   *nn.Sequential[B]
	stages []*Stage[B]

	backend B
}

// NewBackbone validates cfg and builds a freshly initialized backbone for
// inputs with inChannels channels.
func NewBackbone[B tensor.Backend](inChannels int, cfg Config, backend B) (*Backbone[B], error) {
	plans, err := PlanStages(cfg)
	if err != nil {
		return nil, err
	}
	if inChannels <= 0 {
		return nil, fmt.Errorf("%w: %d input channels", ErrInvalidInput, inChannels)
	}

	stages := make([]*Stage[B], len(plans))
	channels := stemChannels
	for i, plan := range plans {
		stages[i] = NewStage(channels, plan, cfg, backend)
		channels = plan.OutChannels
	}

	return &Backbone[B]{
		cfg:        cfg,
		inChannels: inChannels,
		stem:       NewEntryStem(inChannels, cfg, backend),
		stages:     stages,
		backend:    backend,
	}, nil
}

// Forward returns the final feature map [batch, H/os, W/os, channels].
func (m *Backbone[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	out, _ := m.ForwardWithExits(x)
	return out
}

// ForwardWithExits returns the final feature map and the branch exits.
func (m *Backbone[B]) ForwardWithExits(x *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], BranchExits[B]) {
	m.checkInput(x)

	exits := make(BranchExits[B])
	x = m.stem.Forward(x)
	exits[strconv.Itoa(MinOutputStride)] = x

	for _, stage := range m.stages {
		x = stage.Forward(x)
		if plan := stage.Plan(); plan.Strided() {
			exits[strconv.Itoa(plan.OutputStride)] = x
		}
	}
	return x, exits
}

func (m *Backbone[B]) checkInput(x *tensor.Tensor[float32, B]) {
	shape := x.Shape()
	if len(shape) != 4 || shape[3] != m.inChannels {
		panic(fmt.Sprintf("shufflenet: expected input [N,H,W,%d], got %v", m.inChannels, shape))
	}
}

// Config returns the configuration the backbone was built with.
func (m *Backbone[B]) Config() Config {
	return m.cfg
}

// InChannels returns the expected input channel count.
func (m *Backbone[B]) InChannels() int {
	return m.inChannels
}

// OutChannels returns the channel count of the final feature map.
func (m *Backbone[B]) OutChannels() int {
	return m.stages[len(m.stages)-1].Plan().OutChannels
}

// Plans returns the resolved plan of every stage.
func (m *Backbone[B]) Plans() []StagePlan {
	plans := make([]StagePlan, len(m.stages))
	for i, s := range m.stages {
		plans[i] = s.Plan()
	}
	return plans
}

// Stem returns the entry stem.
func (m *Backbone[B]) Stem() *nn.Sequential[B] {
	return m.stem
}

// Stages returns the stages in application order.
func (m *Backbone[B]) Stages() []*Stage[B] {
	return m.stages
}

// Parameters returns every parameter, stem first.
func (m *Backbone[B]) Parameters() []*nn.Parameter[B] {
	params := m.stem.Parameters()
	for _, s := range m.stages {
		params = append(params, s.Parameters()...)
	}
	return params
}

// SetTraining switches every batch norm layer between batch and moving statistics.
func (m *Backbone[B]) SetTraining(training bool) {
	m.stem.SetTraining(training)
	for _, s := range m.stages {
		s.SetTraining(training)
	}
}

// RegularizationLoss returns the sum of all L2 kernel penalties.
func (m *Backbone[B]) RegularizationLoss() float64 {
	return nn.RegularizationLoss(m.Parameters())
}

// StateDict returns parameters named "stem.*" and "stage_N.*".
func (m *Backbone[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	nn.PrefixStateDict(stateDict, m.stem.StateDict(), "stem.")
	for _, s := range m.stages {
		nn.PrefixStateDict(stateDict, s.StateDict(), s.Plan().Name+".")
	}
	return stateDict
}

// LoadStateDict restores the backbone from names produced by StateDict.
// Extra entries are ignored.
func (m *Backbone[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if err := m.stem.LoadStateDict(nn.SubStateDict(stateDict, "stem.")); err != nil {
		return fmt.Errorf("stem: %w", err)
	}
	for _, s := range m.stages {
		name := s.Plan().Name
		if err := s.LoadStateDict(nn.SubStateDict(stateDict, name+".")); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// String returns a short description of the backbone.
func (m *Backbone[B]) String() string {
	return fmt.Sprintf("ShuffleNetV2Base(depth_multiplier=%s, output_stride=%d, small_backend=%t)",
		m.cfg.DepthMultiplier, m.cfg.OutputStride, m.cfg.SmallBackend)
}
