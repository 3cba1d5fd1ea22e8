package cpu

import (
	"fmt"

	"github.com/born-ml/shufflenet/internal/parallel"
	"github.com/born-ml/shufflenet/internal/tensor"
)

// DepthwiseConv2D convolves each channel with its own filter.
//
// Input:  [N, H, W, C]
// Kernel: [K_h, K_w, C, 1]
// Output: [N, H_out, W_out, C].
func (cpu *CPUBackend) DepthwiseConv2D(input, kernel *tensor.RawTensor, params tensor.Conv2DParams) *tensor.RawTensor {
	g := resolveConv("depthwise_conv2d", input, kernel, params)
	k := kernel.Shape()
	if k[2] != g.inC || k[3] != 1 {
		panic(fmt.Sprintf("depthwise_conv2d: kernel %v incompatible with %d input channels (want [K_h, K_w, %d, 1])",
			k, g.inC, g.inC))
	}

	result := cpu.newResult("depthwise_conv2d", tensor.Shape{g.batch, g.outH, g.outW, g.inC}, input.DType())
	switch input.DType() {
	case tensor.Float32:
		depthwise(values[float32](input), values[float32](kernel), values[float32](result), g, cpu.parallel)
	case tensor.Float64:
		depthwise(values[float64](input), values[float64](kernel), values[float64](result), g, cpu.parallel)
	}
	return result
}

func depthwise[T tensor.DType](input, kernel, output []T, g convGeometry, cfg parallel.Config) {
	c := g.inC
	parallel.ForBatch(g.batch, g.outH, func(n, oh int) {
		image := input[n*g.inH*g.inW*c:]
		for ow := 0; ow < g.outW; ow++ {
			out := output[((n*g.outH+oh)*g.outW+ow)*c:][:c]
			clear(out)
			for kh := 0; kh < g.kH; kh++ {
				ih := oh*g.stride + kh*g.dilation - g.padTop
				if ih < 0 || ih >= g.inH {
					continue
				}
				for kw := 0; kw < g.kW; kw++ {
					iw := ow*g.stride + kw*g.dilation - g.padLeft
					if iw < 0 || iw >= g.inW {
						continue
					}
					px := image[(ih*g.inW+iw)*c:][:c]
					w := kernel[(kh*g.kW+kw)*c:][:c]
					for ch := range out {
						out[ch] += px[ch] * w[ch]
					}
				}
			}
		}
	}, cfg.Coarse())
}
