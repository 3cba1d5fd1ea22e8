package cpu

import (
	"fmt"
	"testing"

	"github.com/born-ml/shufflenet/internal/parallel"
	"github.com/born-ml/shufflenet/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConv2D_SameShapes(t *testing.T) {
	backend := New()

	tests := []struct {
		inH, inW, kernel, stride int
		wantH, wantW             int
	}{
		{32, 32, 3, 2, 16, 16},
		{7, 7, 3, 2, 4, 4},
		{5, 6, 3, 1, 5, 6},
		{8, 8, 1, 1, 8, 8},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%dx%d_k%d_s%d", tt.inH, tt.inW, tt.kernel, tt.stride), func(t *testing.T) {
			input := raw32(t, make([]float32, 2*tt.inH*tt.inW*3), 2, tt.inH, tt.inW, 3)
			kernel := raw32(t, make([]float32, tt.kernel*tt.kernel*3*4), tt.kernel, tt.kernel, 3, 4)

			out := backend.Conv2D(input, kernel, tensor.Conv2DParams{Stride: tt.stride, Dilation: 1, Padding: tensor.PaddingSame})
			assert.Equal(t, tensor.Shape{2, tt.wantH, tt.wantW, 4}, out.Shape())
		})
	}
}

func TestConv2D_KnownValues(t *testing.T) {
	backend := New()

	// 3x3 single-channel input, 2x2 all-ones kernel, VALID: sums of 2x2 windows.
	input := raw32(t, seq32(9), 1, 3, 3, 1)
	kernel := raw32(t, []float32{1, 1, 1, 1}, 2, 2, 1, 1)

	out := backend.Conv2D(input, kernel, tensor.Conv2DParams{Stride: 1, Dilation: 1, Padding: tensor.PaddingValid})
	require.Equal(t, tensor.Shape{1, 2, 2, 1}, out.Shape())
	assert.Equal(t, []float32{12, 16, 24, 28}, out.AsFloat32())
}

func TestConv2D_MatchesDirect(t *testing.T) {
	backend := NewWithConfig(parallel.DefaultConfig().Coarse())

	cases := []tensor.Conv2DParams{
		{Stride: 1, Dilation: 1, Padding: tensor.PaddingSame},
		{Stride: 2, Dilation: 1, Padding: tensor.PaddingSame},
		{Stride: 1, Dilation: 2, Padding: tensor.PaddingSame},
		{Stride: 2, Dilation: 1, Padding: tensor.PaddingValid},
	}

	inShape := tensor.Shape{2, 7, 6, 3}
	kShape := tensor.Shape{3, 3, 3, 5}
	in := make([]float32, inShape.NumElements())
	for i := range in {
		in[i] = float32(i%11) - 5
	}
	k := make([]float32, kShape.NumElements())
	for i := range k {
		k[i] = float32(i%7)*0.25 - 0.75
	}

	for _, p := range cases {
		t.Run(fmt.Sprintf("s%d_d%d_%s", p.Stride, p.Dilation, p.Padding), func(t *testing.T) {
			want, wantShape := naiveConv(in, inShape, k, kShape, p)

			out := backend.Conv2D(raw32(t, in, inShape...), raw32(t, k, kShape...), p)
			require.Equal(t, wantShape, out.Shape())
			assert.InDeltaSlice(t, want, out.AsFloat32(), 1e-4)
		})
	}
}

func TestConv2D_Pointwise(t *testing.T) {
	backend := New()

	// 1x1 kernel swaps two channels and sums them into a third.
	input := raw32(t, []float32{1, 2, 3, 4}, 1, 1, 2, 2)
	kernel := raw32(t, []float32{
		0, 1, 1,
		1, 0, 1,
	}, 1, 1, 2, 3)

	out := backend.Conv2D(input, kernel, tensor.Conv2DParams{Stride: 1, Dilation: 1})
	require.Equal(t, tensor.Shape{1, 1, 2, 3}, out.Shape())
	assert.Equal(t, []float32{2, 1, 3, 4, 3, 7}, out.AsFloat32())
}

func TestConv2D_Float64(t *testing.T) {
	backend := New()

	input, err := tensor.NewRaw(tensor.Shape{1, 2, 2, 1}, tensor.Float64, tensor.CPU)
	require.NoError(t, err)
	copy(input.AsFloat64(), []float64{1, 2, 3, 4})
	kernel, err := tensor.NewRaw(tensor.Shape{2, 2, 1, 1}, tensor.Float64, tensor.CPU)
	require.NoError(t, err)
	copy(kernel.AsFloat64(), []float64{1, 0, 0, 1})

	out := backend.Conv2D(input, kernel, tensor.Conv2DParams{Stride: 1, Dilation: 1})
	assert.Equal(t, []float64{5}, out.AsFloat64())
}

func TestConv2D_ChannelMismatchPanics(t *testing.T) {
	backend := New()
	input := raw32(t, make([]float32, 16*3), 1, 4, 4, 3)
	kernel := raw32(t, make([]float32, 9*2*4), 3, 3, 2, 4)

	assert.PanicsWithValue(t, "conv2d: input channels 3 don't match kernel C_in 2", func() {
		backend.Conv2D(input, kernel, tensor.Conv2DParams{Stride: 1, Dilation: 1, Padding: tensor.PaddingSame})
	})
}

func TestConv2D_InvalidStridePanics(t *testing.T) {
	backend := New()
	input := raw32(t, make([]float32, 16), 1, 4, 4, 1)
	kernel := raw32(t, make([]float32, 9), 3, 3, 1, 1)

	assert.Panics(t, func() {
		backend.Conv2D(input, kernel, tensor.Conv2DParams{Stride: 0, Dilation: 1})
	})
}

func BenchmarkConv2D(b *testing.B) {
	backend := New()
	input := tensor.MustNewRaw(tensor.Shape{1, 56, 56, 24}, tensor.Float32, tensor.CPU)
	kernel := tensor.MustNewRaw(tensor.Shape{3, 3, 24, 24}, tensor.Float32, tensor.CPU)
	params := tensor.Conv2DParams{Stride: 1, Dilation: 1, Padding: tensor.PaddingSame}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = backend.Conv2D(input, kernel, params)
	}
}
