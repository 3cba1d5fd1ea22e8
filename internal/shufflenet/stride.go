package shufflenet

import "fmt"

// NumStages is the number of stages after the entry stem.
const NumStages = 3

// stageSpec is the static description of one stage.
type stageSpec struct {
	name        string
	units       int
	outChannels int
	stride      int
}

// stageTable returns the per-stage specs for a given initial depth.
func stageTable(initialDepth int, smallBackend bool) [NumStages]stageSpec {
	last := 4 * initialDepth
	if smallBackend {
		last = 2 * initialDepth
	}
	return [NumStages]stageSpec{
		{name: "stage_2", units: 3, outChannels: initialDepth, stride: 2},
		{name: "stage_3", units: 7, outChannels: 2 * initialDepth, stride: 2},
		{name: "stage_4", units: 3, outChannels: last, stride: 2},
	}
}

// StagePlan is the resolved construction plan of one stage.
type StagePlan struct {
	Name        string // Scope name, e.g. "stage_2"
	Units       int    // Number of basic units after the downsampling unit
	OutChannels int    // Channels leaving the stage
	Stride      int    // Stride applied by the downsampling unit (1 or nominal)

	// DownsampleRate is the dilation of the downsampling unit: the rate
	// in effect before this stage converted its stride into dilation.
	DownsampleRate int
	// Rate is the dilation of the basic units.
	Rate int
	// OutputStride is the cumulative stride after the stage.
	OutputStride int
}

// Strided reports whether the stage reduces spatial resolution.
func (p StagePlan) Strided() bool {
	return p.Stride != 1
}

// String returns a one-line description of the plan.
func (p StagePlan) String() string {
	return fmt.Sprintf("%s: units=%d out=%d stride=%d rate=%d/%d output_stride=%d",
		p.Name, p.Units, p.OutChannels, p.Stride, p.DownsampleRate, p.Rate, p.OutputStride)
}

// strideState tracks the cumulative stride and dilation rate across stages.
type strideState struct {
	stride int
	rate   int
}

// advance applies one stage with the given nominal stride. Once another
// stride would overshoot the budget the stage keeps its resolution and the
// nominal stride multiplies the dilation rate instead.
func (s *strideState) advance(nominal, outputStride int) (stride, rate int) {
	if s.stride*nominal > outputStride {
		s.rate *= nominal
		return 1, s.rate
	}
	s.stride *= nominal
	return nominal, s.rate
}

// PlanStages validates cfg and resolves stride and dilation for every stage.
func PlanStages(cfg Config) ([]StagePlan, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	depth, err := cfg.DepthMultiplier.InitialDepth()
	if err != nil {
		return nil, err
	}

	state := strideState{stride: MinOutputStride, rate: 1}
	plans := make([]StagePlan, 0, NumStages)
	for _, row := range stageTable(depth, cfg.SmallBackend) {
		oldRate := state.rate
		stride, rate := state.advance(row.stride, cfg.OutputStride)
		plans = append(plans, StagePlan{
			Name:           row.name,
			Units:          row.units,
			OutChannels:    row.outChannels,
			Stride:         stride,
			DownsampleRate: oldRate,
			Rate:           rate,
			OutputStride:   state.stride,
		})
	}
	return plans, nil
}
