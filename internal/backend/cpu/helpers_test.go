package cpu

import (
	"testing"

	"github.com/born-ml/shufflenet/internal/tensor"
	"github.com/stretchr/testify/require"
)

func raw32(t *testing.T, data []float32, shape ...int) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(tensor.Shape(shape), tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	require.Len(t, data, r.NumElements())
	copy(r.AsFloat32(), data)
	return r
}

func seq32(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i + 1)
	}
	return out
}

// naiveConv is a direct NHWC convolution used as a reference.
func naiveConv(in []float32, inShape tensor.Shape, k []float32, kShape tensor.Shape, p tensor.Conv2DParams) ([]float32, tensor.Shape) {
	n, h, w, c := inShape[0], inShape[1], inShape[2], inShape[3]
	kh, kw, oc := kShape[0], kShape[1], kShape[3]
	rows := tensor.SpatialWindow(h, kh, p.Stride, p.Dilation, p.Padding)
	cols := tensor.SpatialWindow(w, kw, p.Stride, p.Dilation, p.Padding)
	out := make([]float32, n*rows.Out*cols.Out*oc)
	for b := 0; b < n; b++ {
		for oh := 0; oh < rows.Out; oh++ {
			for ow := 0; ow < cols.Out; ow++ {
				for o := 0; o < oc; o++ {
					var s float32
					for i := 0; i < kh; i++ {
						ih := oh*p.Stride + i*p.Dilation - rows.PadLow
						for j := 0; j < kw; j++ {
							iw := ow*p.Stride + j*p.Dilation - cols.PadLow
							if ih < 0 || ih >= h || iw < 0 || iw >= w {
								continue
							}
							for ci := 0; ci < c; ci++ {
								s += in[((b*h+ih)*w+iw)*c+ci] * k[((i*kw+j)*c+ci)*oc+o]
							}
						}
					}
					out[((b*rows.Out+oh)*cols.Out+ow)*oc+o] = s
				}
			}
		}
	}
	return out, tensor.Shape{n, rows.Out, cols.Out, oc}
}
