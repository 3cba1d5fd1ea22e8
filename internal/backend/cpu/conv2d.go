package cpu

import (
	"fmt"

	"github.com/born-ml/shufflenet/internal/parallel"
	"github.com/born-ml/shufflenet/internal/tensor"
)

// convGeometry holds the resolved sizes of a spatial convolution.
type convGeometry struct {
	batch, inH, inW, inC int
	kH, kW               int
	outH, outW           int
	padTop, padLeft      int
	stride, dilation     int
}

func resolveConv(op string, input, kernel *tensor.RawTensor, params tensor.Conv2DParams) convGeometry {
	if err := params.Validate(); err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}
	in, k := input.Shape(), kernel.Shape()
	if len(in) != 4 {
		panic(fmt.Sprintf("%s: input must be 4D [N, H, W, C], got %v", op, in))
	}
	if len(k) != 4 {
		panic(fmt.Sprintf("%s: kernel must be 4D [K_h, K_w, C_in, C_out], got %v", op, k))
	}
	if input.DType() != kernel.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch %s vs %s", op, input.DType(), kernel.DType()))
	}
	requireFloat(op, input.DType())

	rows := tensor.SpatialWindow(in[1], k[0], params.Stride, params.Dilation, params.Padding)
	cols := tensor.SpatialWindow(in[2], k[1], params.Stride, params.Dilation, params.Padding)
	if rows.Out <= 0 || cols.Out <= 0 {
		panic(fmt.Sprintf("%s: kernel %dx%d (dilation %d) does not fit input %dx%d with %s padding",
			op, k[0], k[1], params.Dilation, in[1], in[2], params.Padding))
	}

	return convGeometry{
		batch: in[0], inH: in[1], inW: in[2], inC: in[3],
		kH: k[0], kW: k[1],
		outH: rows.Out, outW: cols.Out,
		padTop: rows.PadLow, padLeft: cols.PadLow,
		stride: params.Stride, dilation: params.Dilation,
	}
}

// Conv2D performs 2-D convolution on channels-last input using im2col + GEMM.
//
// Input:  [N, H, W, C_in]
// Kernel: [K_h, K_w, C_in, C_out]
// Output: [N, H_out, W_out, C_out].
func (cpu *CPUBackend) Conv2D(input, kernel *tensor.RawTensor, params tensor.Conv2DParams) *tensor.RawTensor {
	g := resolveConv("conv2d", input, kernel, params)
	k := kernel.Shape()
	if k[2] != g.inC {
		panic(fmt.Sprintf("conv2d: input channels %d don't match kernel C_in %d", g.inC, k[2]))
	}
	outC := k[3]

	result := cpu.newResult("conv2d", tensor.Shape{g.batch, g.outH, g.outW, outC}, input.DType())
	switch input.DType() {
	case tensor.Float32:
		conv2d(values[float32](input), values[float32](kernel), values[float32](result), g, outC, cpu.parallel)
	case tensor.Float64:
		conv2d(values[float64](input), values[float64](kernel), values[float64](result), g, outC, cpu.parallel)
	}
	return result
}

func conv2d[T tensor.DType](input, kernel, output []T, g convGeometry, outC int, cfg parallel.Config) {
	// Pointwise convolution is a plain matrix product over all pixels.
	if g.kH == 1 && g.kW == 1 && g.stride == 1 {
		gemm(input, kernel, output, g.batch*g.inH*g.inW, g.inC, outC)
		return
	}

	patch := g.kH * g.kW * g.inC
	pixels := g.outH * g.outW
	col := make([]T, pixels*patch)
	inImage := g.inH * g.inW * g.inC

	for n := 0; n < g.batch; n++ {
		im2col(input[n*inImage:(n+1)*inImage], col, g, cfg)
		gemm(col, kernel, output[n*pixels*outC:(n+1)*pixels*outC], pixels, patch, outC)
	}
}

// im2col lays out one image as [H_out*W_out, K_h*K_w*C_in]; taps that fall
// into padding are zero.
func im2col[T tensor.DType](image, col []T, g convGeometry, cfg parallel.Config) {
	patch := g.kH * g.kW * g.inC
	parallel.For(g.outH, func(oh int) {
		for ow := 0; ow < g.outW; ow++ {
			row := col[(oh*g.outW+ow)*patch : (oh*g.outW+ow+1)*patch]
			idx := 0
			for kh := 0; kh < g.kH; kh++ {
				ih := oh*g.stride + kh*g.dilation - g.padTop
				for kw := 0; kw < g.kW; kw++ {
					iw := ow*g.stride + kw*g.dilation - g.padLeft
					dst := row[idx : idx+g.inC]
					idx += g.inC
					if ih < 0 || ih >= g.inH || iw < 0 || iw >= g.inW {
						clear(dst)
						continue
					}
					src := (ih*g.inW + iw) * g.inC
					copy(dst, image[src:src+g.inC])
				}
			}
		}
	}, cfg.Coarse())
}
