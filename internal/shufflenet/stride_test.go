package shufflenet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanStages_StrideAndRate(t *testing.T) {
	tests := []struct {
		outputStride    int
		strides         []int
		rates           []int
		downsampleRates []int
		outputStrides   []int
	}{
		{32, []int{2, 2, 2}, []int{1, 1, 1}, []int{1, 1, 1}, []int{8, 16, 32}},
		{16, []int{2, 2, 1}, []int{1, 1, 2}, []int{1, 1, 1}, []int{8, 16, 16}},
		{8, []int{2, 1, 1}, []int{1, 2, 4}, []int{1, 1, 2}, []int{8, 8, 8}},
		{4, []int{1, 1, 1}, []int{2, 4, 8}, []int{1, 2, 4}, []int{4, 4, 4}},
		{64, []int{2, 2, 2}, []int{1, 1, 1}, []int{1, 1, 1}, []int{8, 16, 32}},
		{12, []int{2, 1, 1}, []int{1, 2, 4}, []int{1, 1, 2}, []int{8, 8, 8}},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.OutputStride = tt.outputStride
		plans, err := PlanStages(cfg)
		require.NoError(t, err)
		require.Len(t, plans, NumStages)

		for i, p := range plans {
			assert.Equal(t, tt.strides[i], p.Stride, "os=%d stage %d stride", tt.outputStride, i)
			assert.Equal(t, tt.rates[i], p.Rate, "os=%d stage %d rate", tt.outputStride, i)
			assert.Equal(t, tt.downsampleRates[i], p.DownsampleRate, "os=%d stage %d downsample rate", tt.outputStride, i)
			assert.Equal(t, tt.outputStrides[i], p.OutputStride, "os=%d stage %d output stride", tt.outputStride, i)
			assert.Equal(t, p.Stride != 1, p.Strided())
		}
	}
}

func TestPlanStages_NeverExceedsBudget(t *testing.T) {
	for _, os := range []int{8, 16, 32} {
		cfg := DefaultConfig()
		cfg.OutputStride = os
		plans, err := PlanStages(cfg)
		require.NoError(t, err)

		total := MinOutputStride
		for _, p := range plans {
			total *= p.Stride
		}
		assert.Equal(t, min(os, 4*2*2*2), total, "output stride %d", os)
	}

	for os := 4; os <= 100; os++ {
		cfg := DefaultConfig()
		cfg.OutputStride = os
		plans, err := PlanStages(cfg)
		require.NoError(t, err)
		assert.LessOrEqual(t, plans[NumStages-1].OutputStride, os)
	}
}

func TestPlanStages_Channels(t *testing.T) {
	tests := []struct {
		d     DepthMultiplier
		small bool
		want  []int
	}{
		{DepthMultiplier05, false, []int{48, 96, 192}},
		{DepthMultiplier10, false, []int{116, 232, 464}},
		{DepthMultiplier10, true, []int{116, 232, 232}},
		{DepthMultiplier15, false, []int{176, 352, 704}},
		{DepthMultiplier20, false, []int{224, 448, 896}},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.DepthMultiplier = tt.d
		cfg.SmallBackend = tt.small
		plans, err := PlanStages(cfg)
		require.NoError(t, err)

		for i, p := range plans {
			assert.Equal(t, tt.want[i], p.OutChannels, "%s small=%t stage %d", tt.d, tt.small, i)
		}
		assert.Equal(t, []int{3, 7, 3}, []int{plans[0].Units, plans[1].Units, plans[2].Units})
		assert.Equal(t, []string{"stage_2", "stage_3", "stage_4"}, []string{plans[0].Name, plans[1].Name, plans[2].Name})
	}
}

func TestPlanStages_Errors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutputStride = 2
	_, err := PlanStages(cfg)
	assert.ErrorIs(t, err, ErrInvalidOutputStride)

	cfg = DefaultConfig()
	cfg.DepthMultiplier = 0.3
	_, err = PlanStages(cfg)
	assert.ErrorIs(t, err, ErrUnknownDepthMultiplier)
}

func TestStagePlanString(t *testing.T) {
	p := StagePlan{Name: "stage_4", Units: 3, OutChannels: 464, Stride: 1, DownsampleRate: 1, Rate: 2, OutputStride: 16}
	assert.Equal(t, "stage_4: units=3 out=464 stride=1 rate=1/2 output_stride=16", p.String())
}
