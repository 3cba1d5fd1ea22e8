package shufflenet

import (
	"fmt"
	"io"

	"github.com/born-ml/shufflenet/internal/nn"
	"github.com/born-ml/shufflenet/internal/onnx"
	"github.com/born-ml/shufflenet/internal/serialization"
	"github.com/born-ml/shufflenet/internal/tensor"
)

// ONNX producer recorded in exported models.
const onnxProducer = "born-shufflenet"

// featureMap is an NCHW value in the exported graph.
type featureMap struct {
	name    string
	c, h, w int
}

// onnxExporter lowers the NHWC model to an NCHW ONNX graph.
type onnxExporter[B tensor.Backend] struct {
	b        *onnx.GraphBuilder
	shuffles int
}

// ExportONNX writes the classifier as an ONNX model (IR 8, opset 13).
//
// inputShape is [batch, height, width, channels]; a batch of zero or less
// is exported as the symbolic dimension "batch". The graph takes NHWC input
// like Forward and returns probabilities [batch, num_classes].
func (c *Classifier[B]) ExportONNX(w io.Writer, inputShape tensor.Shape) error {
	e, x, batch, err := newONNXExporter[B](c.backbone, inputShape)
	if err != nil {
		return err
	}

	if x, err = e.backbone(c.backbone, x); err != nil {
		return err
	}
	if x, err = e.conv("logits.conv.", c.conv, x); err != nil {
		return err
	}
	pooled := e.b.AddNode("GlobalAveragePool", []string{x.name})
	flat := e.b.AddNode("Flatten", []string{pooled}, onnx.AttrInt("axis", 1))
	probs := e.dense("logits.dense.", c.dense, flat)
	e.b.AddOutput(probs, onnx.TensorProtoFloat, batch, onnx.Dim(int64(c.dense.OutFeatures())))

	return onnx.WriteModel(w, e.b.Model(onnxProducer, serialization.Version))
}

// ExportONNX writes the backbone as an ONNX model (IR 8, opset 13) whose
// single output is the final NHWC feature map.
func (m *Backbone[B]) ExportONNX(w io.Writer, inputShape tensor.Shape) error {
	e, x, batch, err := newONNXExporter[B](m, inputShape)
	if err != nil {
		return err
	}

	if x, err = e.backbone(m, x); err != nil {
		return err
	}
	nhwc := e.b.AddNode("Transpose", []string{x.name}, onnx.AttrInts("perm", 0, 2, 3, 1))
	e.b.AddOutput(nhwc, onnx.TensorProtoFloat, batch,
		onnx.Dim(int64(x.h)), onnx.Dim(int64(x.w)), onnx.Dim(int64(x.c)))

	return onnx.WriteModel(w, e.b.Model(onnxProducer, serialization.Version))
}

func newONNXExporter[B tensor.Backend](m *Backbone[B], inputShape tensor.Shape) (*onnxExporter[B], featureMap, onnx.DimensionProto, error) {
	if len(inputShape) != 4 || inputShape[1] <= 0 || inputShape[2] <= 0 || inputShape[3] != m.InChannels() {
		return nil, featureMap{}, onnx.DimensionProto{}, fmt.Errorf("%w: export shape %v, want [batch, height, width, %d]",
			ErrInvalidInput, inputShape, m.InChannels())
	}

	batch := onnx.DimParam("batch")
	if inputShape[0] > 0 {
		batch = onnx.Dim(int64(inputShape[0]))
	}
	h, w, c := inputShape[1], inputShape[2], inputShape[3]

	e := &onnxExporter[B]{b: onnx.NewGraphBuilder("shufflenet_v2")}
	in := e.b.AddInput("input", onnx.TensorProtoFloat, batch, onnx.Dim(int64(h)), onnx.Dim(int64(w)), onnx.Dim(int64(c)))
	nchw := e.b.AddNode("Transpose", []string{in}, onnx.AttrInts("perm", 0, 3, 1, 2))
	return e, featureMap{name: nchw, c: c, h: h, w: w}, batch, nil
}

func (e *onnxExporter[B]) backbone(m *Backbone[B], x featureMap) (featureMap, error) {
	x, err := e.sequential("stem.", m.Stem(), x)
	if err != nil {
		return x, err
	}
	for _, s := range m.Stages() {
		if x, err = e.stage(s.Plan().Name+".", s, x); err != nil {
			return x, err
		}
	}
	return x, nil
}

func (e *onnxExporter[B]) stage(prefix string, s *Stage[B], x featureMap) (featureMap, error) {
	leftSeq, rightSeq := s.Branches()
	left, err := e.sequential(prefix+"down.left.", leftSeq, x)
	if err != nil {
		return x, err
	}
	right, err := e.sequential(prefix+"down.right.", rightSeq, x)
	if err != nil {
		return x, err
	}

	for i, unit := range s.Units() {
		left, right = e.concatShuffleSplit(left, right)
		if left, err = e.sequential(prefix+unitPrefix(i), unit, left); err != nil {
			return x, err
		}
	}
	return e.concat(left, right), nil
}

func (e *onnxExporter[B]) concat(a, b featureMap) featureMap {
	out := e.b.AddNode("Concat", []string{a.name, b.name}, onnx.AttrInt("axis", 1))
	return featureMap{name: out, c: a.c + b.c, h: a.h, w: a.w}
}

// concatShuffleSplit mirrors ConcatShuffleSplit in NCHW: the channel
// interleave is Reshape [N,2,C/2,HW] -> Transpose(0,2,1,3) -> Reshape [N,C,H,W].
func (e *onnxExporter[B]) concatShuffleSplit(a, b featureMap) (left, right featureMap) {
	x := e.concat(a, b)
	prefix := fmt.Sprintf("shuffle_%d.", e.shuffles)
	e.shuffles++

	grouped := e.b.AddInt64Initializer(prefix+"grouped_shape", 0, 2, int64(x.c/2), -1)
	restored := e.b.AddInt64Initializer(prefix+"restored_shape", 0, int64(x.c), int64(x.h), int64(x.w))

	y := e.b.AddNode("Reshape", []string{x.name, grouped})
	y = e.b.AddNode("Transpose", []string{y}, onnx.AttrInts("perm", 0, 2, 1, 3))
	y = e.b.AddNode("Reshape", []string{y, restored})

	halves := e.b.AddMultiOutputNode("Split", []string{y}, 2, onnx.AttrInt("axis", 1))
	half := x.c / 2
	return featureMap{name: halves[0], c: half, h: x.h, w: x.w},
		featureMap{name: halves[1], c: half, h: x.h, w: x.w}
}

func (e *onnxExporter[B]) sequential(prefix string, seq *nn.Sequential[B], x featureMap) (featureMap, error) {
	var err error
	for i := range seq.Len() {
		name := fmt.Sprintf("%s%d.", prefix, i)
		switch layer := seq.Module(i).(type) {
		case *nn.Conv2D[B]:
			x, err = e.conv(name, layer, x)
		case *nn.DepthwiseConv2D[B]:
			x = e.depthwise(name, layer, x)
		case *nn.BatchNorm[B]:
			x = e.batchNorm(name, layer, x)
		case *nn.MaxPool2D[B]:
			x = e.maxPool(layer, x)
		default:
			err = fmt.Errorf("shufflenet: onnx export: unsupported layer %T at %s", layer, name)
		}
		if err != nil {
			return x, err
		}
	}
	return x, nil
}

// window returns output size and [low, high] padding of one spatial axis.
func window(in, kernel, stride, dilation int, padding tensor.Padding) (out, low, high int) {
	g := tensor.SpatialWindow(in, kernel, stride, dilation, padding)
	effective := (kernel-1)*dilation + 1
	high = max((g.Out-1)*stride+effective-in-g.PadLow, 0)
	return g.Out, g.PadLow, high
}

// spatialAttrs returns the output size and the kernel_shape, strides and
// pads attributes (plus dilations for convolutions).
func spatialAttrs(x featureMap, kernel, stride, dilation int, padding tensor.Padding, withDilation bool) (h, w int, attrs []onnx.AttributeProto) {
	h, top, bottom := window(x.h, kernel, stride, dilation, padding)
	w, left, right := window(x.w, kernel, stride, dilation, padding)
	attrs = []onnx.AttributeProto{
		onnx.AttrInts("kernel_shape", int64(kernel), int64(kernel)),
		onnx.AttrInts("strides", int64(stride), int64(stride)),
		onnx.AttrInts("pads", int64(top), int64(left), int64(bottom), int64(right)),
	}
	if withDilation {
		attrs = append(attrs, onnx.AttrInts("dilations", int64(dilation), int64(dilation)))
	}
	return h, w, attrs
}

func (e *onnxExporter[B]) conv(prefix string, layer *nn.Conv2D[B], x featureMap) (featureMap, error) {
	cfg := layer.Config()
	k, in, out := cfg.KernelSize, cfg.InChannels, cfg.OutChannels

	// [KH, KW, in, out] -> [out, in, KH, KW]
	hwio := layer.Weight().Tensor().Data()
	oihw := make([]float32, len(hwio))
	for kh := range k {
		for kw := range k {
			for i := range in {
				for o := range out {
					oihw[((o*in+i)*k+kh)*k+kw] = hwio[((kh*k+kw)*in+i)*out+o]
				}
			}
		}
	}

	inputs := []string{x.name, e.b.AddInitializer(prefix+"weight", []int64{int64(out), int64(in), int64(k), int64(k)}, oihw)}
	if bias := layer.Bias(); bias != nil {
		inputs = append(inputs, e.b.AddInitializer(prefix+"bias", []int64{int64(out)}, bias.Tensor().Data()))
	}

	h, w, attrs := spatialAttrs(x, k, cfg.Stride, cfg.Dilation, cfg.Padding, true)
	y := e.b.AddNode("Conv", inputs, append(attrs, onnx.AttrInt("group", 1))...)

	switch cfg.Activation {
	case nn.ActivationNone:
	case nn.ActivationReLU:
		y = e.b.AddNode("Relu", []string{y})
	default:
		return x, fmt.Errorf("shufflenet: onnx export: unsupported conv activation %s", cfg.Activation)
	}
	return featureMap{name: y, c: out, h: h, w: w}, nil
}

func (e *onnxExporter[B]) depthwise(prefix string, layer *nn.DepthwiseConv2D[B], x featureMap) featureMap {
	cfg := layer.Config()
	k, c := cfg.KernelSize, cfg.Channels

	// [KH, KW, C, 1] -> [C, 1, KH, KW]
	src := layer.Weight().Tensor().Data()
	dst := make([]float32, len(src))
	for kh := range k {
		for kw := range k {
			for ch := range c {
				dst[(ch*k+kh)*k+kw] = src[(kh*k+kw)*c+ch]
			}
		}
	}

	inputs := []string{x.name, e.b.AddInitializer(prefix+"weight", []int64{int64(c), 1, int64(k), int64(k)}, dst)}
	if bias := layer.Bias(); bias != nil {
		inputs = append(inputs, e.b.AddInitializer(prefix+"bias", []int64{int64(c)}, bias.Tensor().Data()))
	}

	h, w, attrs := spatialAttrs(x, k, cfg.Stride, cfg.Dilation, cfg.Padding, true)
	y := e.b.AddNode("Conv", inputs, append(attrs, onnx.AttrInt("group", int64(c)))...)
	return featureMap{name: y, c: c, h: h, w: w}
}

func (e *onnxExporter[B]) batchNorm(prefix string, layer *nn.BatchNorm[B], x featureMap) featureMap {
	inputs := []string{x.name}
	for _, p := range layer.Parameters() { // gamma, beta, moving_mean, moving_variance
		inputs = append(inputs, e.b.AddInitializer(prefix+p.Name(), []int64{int64(layer.Channels())}, p.Tensor().Data()))
	}
	y := e.b.AddNode("BatchNormalization", inputs,
		onnx.AttrFloat("epsilon", layer.Epsilon()),
		onnx.AttrFloat("momentum", layer.Momentum()),
	)
	return featureMap{name: y, c: x.c, h: x.h, w: x.w}
}

func (e *onnxExporter[B]) maxPool(layer *nn.MaxPool2D[B], x featureMap) featureMap {
	h, w, attrs := spatialAttrs(x, layer.KernelSize(), layer.Stride(), 1, layer.Padding(), false)
	y := e.b.AddNode("MaxPool", []string{x.name}, attrs...)
	return featureMap{name: y, c: x.c, h: h, w: w}
}

func (e *onnxExporter[B]) dense(prefix string, layer *nn.Linear[B], x string) string {
	// Linear stores [out, in]; Gemm computes x @ W^T with transB=1.
	inputs := []string{x, e.b.AddInitializer(prefix+"weight",
		[]int64{int64(layer.OutFeatures()), int64(layer.InFeatures())}, layer.Weight().Tensor().Data())}
	if bias := layer.Bias(); bias != nil {
		inputs = append(inputs, e.b.AddInitializer(prefix+"bias", []int64{int64(layer.OutFeatures())}, bias.Tensor().Data()))
	}
	y := e.b.AddNode("Gemm", inputs, onnx.AttrInt("transB", 1))
	if layer.Activation() == nn.ActivationSoftmax {
		y = e.b.AddNode("Softmax", []string{y}, onnx.AttrInt("axis", 1))
	}
	return y
}
