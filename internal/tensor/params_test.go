package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpatialWindow_Same(t *testing.T) {
	tests := []struct {
		in, kernel, stride, dilation int
		want                         WindowGeometry
	}{
		{224, 3, 2, 1, WindowGeometry{Out: 112, PadLow: 0}}, // total pad 1 goes to the end
		{32, 3, 1, 1, WindowGeometry{Out: 32, PadLow: 1}},
		{7, 3, 2, 1, WindowGeometry{Out: 4, PadLow: 1}},
		{16, 3, 1, 2, WindowGeometry{Out: 16, PadLow: 2}},
		{4, 2, 2, 1, WindowGeometry{Out: 2, PadLow: 0}},
		{5, 2, 2, 1, WindowGeometry{Out: 3, PadLow: 0}},
		{1, 3, 2, 1, WindowGeometry{Out: 1, PadLow: 1}},
	}

	for _, tt := range tests {
		got := SpatialWindow(tt.in, tt.kernel, tt.stride, tt.dilation, PaddingSame)
		assert.Equal(t, tt.want, got, "in=%d k=%d s=%d d=%d", tt.in, tt.kernel, tt.stride, tt.dilation)
	}
}

func TestSpatialWindow_Valid(t *testing.T) {
	assert.Equal(t, WindowGeometry{Out: 30}, SpatialWindow(32, 3, 1, 1, PaddingValid))
	assert.Equal(t, WindowGeometry{Out: 15}, SpatialWindow(32, 3, 2, 1, PaddingValid))
	assert.Equal(t, WindowGeometry{Out: 28}, SpatialWindow(32, 3, 1, 2, PaddingValid))
}

func TestConv2DParams_Validate(t *testing.T) {
	assert.NoError(t, Conv2DParams{Stride: 1, Dilation: 1}.Validate())
	assert.Error(t, Conv2DParams{Stride: 0, Dilation: 1}.Validate())
	assert.Error(t, Conv2DParams{Stride: 1, Dilation: 0}.Validate())
}

func TestPadding_String(t *testing.T) {
	assert.Equal(t, "valid", PaddingValid.String())
	assert.Equal(t, "same", PaddingSame.String())
	assert.Equal(t, "unknown", Padding(7).String())
}
