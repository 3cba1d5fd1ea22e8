package cpu

import (
	"fmt"

	"github.com/born-ml/shufflenet/internal/parallel"
	"github.com/born-ml/shufflenet/internal/tensor"
)

// MaxPool2D applies max pooling over [N, H, W, C] input.
//
// With SAME padding, padded cells never contribute to the maximum.
func (cpu *CPUBackend) MaxPool2D(input *tensor.RawTensor, params tensor.Pool2DParams) *tensor.RawTensor {
	shape := input.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("maxpool2d: input must be 4D [N, H, W, C], got %v", shape))
	}
	if params.Size <= 0 || params.Stride <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid window size %d / stride %d", params.Size, params.Stride))
	}
	requireFloat("maxpool2d", input.DType())

	rows := tensor.SpatialWindow(shape[1], params.Size, params.Stride, 1, params.Padding)
	cols := tensor.SpatialWindow(shape[2], params.Size, params.Stride, 1, params.Padding)
	if rows.Out <= 0 || cols.Out <= 0 {
		panic(fmt.Sprintf("maxpool2d: window %d does not fit input %dx%d", params.Size, shape[1], shape[2]))
	}
	g := convGeometry{
		batch: shape[0], inH: shape[1], inW: shape[2], inC: shape[3],
		kH: params.Size, kW: params.Size,
		outH: rows.Out, outW: cols.Out,
		padTop: rows.PadLow, padLeft: cols.PadLow,
		stride: params.Stride, dilation: 1,
	}

	result := cpu.newResult("maxpool2d", tensor.Shape{g.batch, g.outH, g.outW, g.inC}, input.DType())
	switch input.DType() {
	case tensor.Float32:
		maxPool(values[float32](input), values[float32](result), g, cpu.parallel)
	case tensor.Float64:
		maxPool(values[float64](input), values[float64](result), g, cpu.parallel)
	}
	return result
}

func maxPool[T tensor.DType](input, output []T, g convGeometry, cfg parallel.Config) {
	c := g.inC
	parallel.ForBatch(g.batch, g.outH, func(n, oh int) {
		image := input[n*g.inH*g.inW*c:]
		for ow := 0; ow < g.outW; ow++ {
			out := output[((n*g.outH+oh)*g.outW+ow)*c:][:c]
			first := true
			for kh := 0; kh < g.kH; kh++ {
				ih := oh*g.stride + kh - g.padTop
				if ih < 0 || ih >= g.inH {
					continue
				}
				for kw := 0; kw < g.kW; kw++ {
					iw := ow*g.stride + kw - g.padLeft
					if iw < 0 || iw >= g.inW {
						continue
					}
					px := image[(ih*g.inW+iw)*c:][:c]
					if first {
						copy(out, px)
						first = false
						continue
					}
					for ch, v := range px {
						if v > out[ch] {
							out[ch] = v
						}
					}
				}
			}
		}
	}, cfg.Coarse())
}

// GlobalAvgPool2D averages over the spatial axes: [N, H, W, C] -> [N, C].
func (cpu *CPUBackend) GlobalAvgPool2D(input *tensor.RawTensor) *tensor.RawTensor {
	shape := input.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("global_avg_pool2d: input must be 4D [N, H, W, C], got %v", shape))
	}
	requireFloat("global_avg_pool2d", input.DType())

	result := cpu.newResult("global_avg_pool2d", tensor.Shape{shape[0], shape[3]}, input.DType())
	switch input.DType() {
	case tensor.Float32:
		globalAvgPool(values[float32](input), values[float32](result), shape)
	case tensor.Float64:
		globalAvgPool(values[float64](input), values[float64](result), shape)
	}
	return result
}

func globalAvgPool[T tensor.DType](input, output []T, shape tensor.Shape) {
	n, pixels, c := shape[0], shape[1]*shape[2], shape[3]
	for b := 0; b < n; b++ {
		out := output[b*c : (b+1)*c]
		for p := 0; p < pixels; p++ {
			px := input[(b*pixels+p)*c:][:c]
			for ch, v := range px {
				out[ch] += v
			}
		}
		scale := T(1) / T(pixels)
		for ch := range out {
			out[ch] *= scale
		}
	}
}
