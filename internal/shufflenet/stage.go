package shufflenet

import (
	"fmt"
	"strings"

	"github.com/born-ml/shufflenet/internal/nn"
	"github.com/born-ml/shufflenet/internal/tensor"
)

// Stage is one downsampling unit followed by Units shuffle/basic-unit steps.
type Stage[B tensor.Backend] struct {
	plan       StagePlan
	inChannels int

	left  *nn.Sequential[B]
	right *nn.Sequential[B]
	units []*nn.Sequential[B]
}

// NewStage builds the layers of a stage from its plan.
func NewStage[B tensor.Backend](inChannels int, plan StagePlan, cfg Config, backend B) *Stage[B] {
	left, right := NewDownsamplingUnit(inChannels, plan.OutChannels, plan.Stride, plan.DownsampleRate, cfg, backend)

	half := plan.OutChannels / 2
	units := make([]*nn.Sequential[B], plan.Units)
	for i := range units {
		units[i] = NewBasicUnit(half, plan.Rate, cfg, backend)
	}

	return &Stage[B]{
		plan:       plan,
		inChannels: inChannels,
		left:       left,
		right:      right,
		units:      units,
	}
}

// Forward applies both downsampling branches to x, then for every unit
// concat-shuffle-splits the branches and runs the unit on the left half.
// The stage closes by concatenating both branches.
func (s *Stage[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	left := s.left.Forward(x)
	right := s.right.Forward(x)

	for _, unit := range s.units {
		left, right = ConcatShuffleSplit(left, right)
		left = unit.Forward(left)
	}

	return tensor.Cat([]*tensor.Tensor[float32, B]{left, right}, channelAxis)
}

// Plan returns the resolved stage plan.
func (s *Stage[B]) Plan() StagePlan {
	return s.plan
}

// Branches returns the left and right downsampling branches.
func (s *Stage[B]) Branches() (left, right *nn.Sequential[B]) {
	return s.left, s.right
}

// Units returns the basic units in application order.
func (s *Stage[B]) Units() []*nn.Sequential[B] {
	return s.units
}

// Parameters returns the parameters of the downsampling branches and units.
func (s *Stage[B]) Parameters() []*nn.Parameter[B] {
	params := append(s.left.Parameters(), s.right.Parameters()...)
	for _, unit := range s.units {
		params = append(params, unit.Parameters()...)
	}
	return params
}

// SetTraining propagates the training flag to every batch norm layer.
func (s *Stage[B]) SetTraining(training bool) {
	s.left.SetTraining(training)
	s.right.SetTraining(training)
	for _, unit := range s.units {
		unit.SetTraining(training)
	}
}

// unitPrefix names basic units from one: "unit_1.", "unit_2.", ...
func unitPrefix(i int) string {
	return fmt.Sprintf("unit_%d.", i+1)
}

// StateDict returns parameters named "down.left.*", "down.right.*" and "unit_N.*".
func (s *Stage[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	nn.PrefixStateDict(stateDict, s.left.StateDict(), "down.left.")
	nn.PrefixStateDict(stateDict, s.right.StateDict(), "down.right.")
	for i, unit := range s.units {
		nn.PrefixStateDict(stateDict, unit.StateDict(), unitPrefix(i))
	}
	return stateDict
}

// LoadStateDict restores the stage from names produced by StateDict.
func (s *Stage[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if err := s.left.LoadStateDict(nn.SubStateDict(stateDict, "down.left.")); err != nil {
		return fmt.Errorf("down.left: %w", err)
	}
	if err := s.right.LoadStateDict(nn.SubStateDict(stateDict, "down.right.")); err != nil {
		return fmt.Errorf("down.right: %w", err)
	}
	for i, unit := range s.units {
		prefix := unitPrefix(i)
		if err := unit.LoadStateDict(nn.SubStateDict(stateDict, prefix)); err != nil {
			return fmt.Errorf("%s: %w", strings.TrimSuffix(prefix, "."), err)
		}
	}
	return nil
}

// String describes the stage plan.
func (s *Stage[B]) String() string {
	return fmt.Sprintf("Stage(%s, in=%d)", s.plan, s.inChannels)
}
