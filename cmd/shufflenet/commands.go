package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/born-ml/shufflenet/backend/cpu"
	"github.com/born-ml/shufflenet/internal/onnx"
	"github.com/born-ml/shufflenet/internal/serialization"
	"github.com/born-ml/shufflenet/shufflenet"
	"github.com/born-ml/shufflenet/tensor"
)

func runVersion(_ []string, stdout, _ io.Writer) error {
	_, err := fmt.Fprintf(stdout, "shufflenet %s (born format v%d, onnx ir %d opset %d)\n",
		version, serialization.FormatVersion, onnx.IRVersion, onnx.OpsetVersion)
	return err
}

func runSummary(args []string, stdout, stderr io.Writer) error {
	var mf modelFlags
	fs := newFlagSet("summary", stderr)
	mf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := mf.resolve(fs)
	if err != nil {
		return err
	}

	m, _, _, err := mf.build(cfg, mf.backend())
	if err != nil {
		return err
	}
	return m.Summary(stdout)
}

func runInit(args []string, stdout, stderr io.Writer) error {
	var mf modelFlags
	fs := newFlagSet("init", stderr)
	mf.register(fs)
	out := fs.String("out", "shufflenet.born", "Output .born file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := mf.resolve(fs)
	if err != nil {
		return err
	}
	log := mf.logger(stderr)

	m, _, _, err := mf.build(cfg, mf.backend())
	if err != nil {
		return err
	}
	log.Debug("model built", "model", m.String())
	if err := m.SaveWeights(*out); err != nil {
		return err
	}
	log.Info("weights written", "path", *out)
	_, err = fmt.Fprintln(stdout, *out)
	return err
}

func runInfer(args []string, stdout, stderr io.Writer) error {
	var mf modelFlags
	fs := newFlagSet("infer", stderr)
	mf.register(fs)
	weights := fs.String("weights", "", "Load weights from a .born file")
	size := fs.Int("size", 224, "Input height and width")
	batch := fs.Int("batch", 1, "Batch size")
	input := fs.String("input", "random", "Input values: random, zeros or ones")
	topK := fs.Int("topk", 5, "Classes to print per sample")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := mf.resolve(fs)
	if err != nil {
		return err
	}
	if *size <= 0 || *batch <= 0 {
		return fmt.Errorf("invalid input size %d or batch %d", *size, *batch)
	}
	log := mf.logger(stderr)

	backend := mf.backend()
	m, classifier, backbone, err := mf.build(cfg, backend)
	if err != nil {
		return err
	}
	if *weights != "" {
		if err := m.LoadWeights(*weights); err != nil {
			return err
		}
		log.Debug("weights loaded", "path", *weights)
	}

	shape := tensor.Shape{*batch, *size, *size, mf.inChannels}
	var x *tensor.Tensor[float32, *cpu.Backend]
	switch *input {
	case "random":
		x = tensor.Randn[float32](shape, backend)
	case "zeros":
		x = tensor.Zeros[float32](shape, backend)
	case "ones":
		x = tensor.Ones[float32](shape, backend)
	default:
		return fmt.Errorf("unknown input %q", *input)
	}
	log.Debug("running", "model", m.String(), "input", shape)

	if classifier == nil {
		features, exits := backbone.ForwardWithExits(x)
		fmt.Fprintf(stdout, "features %v\n", features.Shape())
		strides := make([]int, 0, len(exits))
		for k := range exits {
			s, err := strconv.Atoi(k)
			if err != nil {
				return fmt.Errorf("unexpected branch exit %q", k)
			}
			strides = append(strides, s)
		}
		sort.Ints(strides)
		for _, s := range strides {
			k := strconv.Itoa(s)
			fmt.Fprintf(stdout, "exit %s %v\n", k, exits[k].Shape())
		}
		return nil
	}

	probs := classifier.Forward(x)
	classes := probs.Shape()[1]
	data := probs.Data()
	for n := range *batch {
		row := data[n*classes : (n+1)*classes]
		parts := make([]string, 0, *topK)
		for _, c := range topClasses(row, *topK) {
			parts = append(parts, fmt.Sprintf("%d:%.4f", c, row[c]))
		}
		fmt.Fprintf(stdout, "sample %d: %s\n", n, strings.Join(parts, " "))
	}
	return nil
}

// topClasses returns the indices of the k largest probabilities, highest first.
func topClasses(probs []float32, k int) []int {
	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return probs[idx[a]] > probs[idx[b]] })
	return idx[:min(max(k, 0), len(idx))]
}

func runExport(args []string, stdout, stderr io.Writer) error {
	var mf modelFlags
	fs := newFlagSet("export", stderr)
	mf.register(fs)
	weights := fs.String("weights", "", "Load weights from a .born file")
	out := fs.String("out", "shufflenet.onnx", "Output .onnx file")
	size := fs.Int("size", 224, "Input height and width")
	batch := fs.Int("batch", 0, "Batch size (0 = symbolic)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := mf.resolve(fs)
	if err != nil {
		return err
	}
	log := mf.logger(stderr)

	m, classifier, backbone, err := mf.build(cfg, mf.backend())
	if err != nil {
		return err
	}
	if *weights != "" {
		if err := m.LoadWeights(*weights); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	shape := tensor.Shape{*batch, *size, *size, mf.inChannels}
	if classifier != nil {
		err = classifier.ExportONNX(&buf, shape)
	} else {
		err = backbone.ExportONNX(&buf, shape)
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	log.Info("onnx model written", "path", *out, "bytes", buf.Len())
	_, err = fmt.Fprintln(stdout, *out)
	return err
}

func runInspect(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("inspect", stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("inspect takes exactly one file")
	}
	path := fs.Arg(0)

	if strings.EqualFold(filepath.Ext(path), shufflenet.SafeTensorsExt) {
		r, err := serialization.NewSafeTensorsReader(path)
		if err != nil {
			return err
		}
		defer func() { _ = r.Close() }()
		return describeSafeTensors(stdout, r)
	}

	r, err := serialization.NewBornReader(path)
	if err == nil {
		defer func() { _ = r.Close() }()
		return describeBorn(stdout, r)
	}
	if !errors.Is(err, serialization.ErrInvalidMagic) {
		return err
	}

	model, err := onnx.ParseFile(path)
	if err != nil {
		return err
	}
	return describeONNX(stdout, model)
}

func describeBorn(w io.Writer, r *serialization.BornReader) error {
	h := r.Header()
	fmt.Fprintf(w, "format: born v%d (written by %s)\n", r.Version(), h.BornVersion)
	fmt.Fprintf(w, "model: %s\n", h.ModelType)

	writeMetadata(w, h.Metadata)

	var elements int
	for _, meta := range h.Tensors {
		elements += tensor.Shape(meta.Shape).NumElements()
	}
	_, err := fmt.Fprintf(w, "tensors: %d (%d elements)\n", len(h.Tensors), elements)
	return err
}

func describeSafeTensors(w io.Writer, r *serialization.SafeTensorsReader) error {
	fmt.Fprintln(w, "format: safetensors")
	fmt.Fprintf(w, "model: %s\n", r.Metadata()[serialization.MetadataModelType])
	writeMetadata(w, r.Metadata())

	names := r.TensorNames()
	var elements int
	for _, name := range names {
		info, err := r.TensorInfo(name)
		if err != nil {
			return err
		}
		elements += tensor.Shape(info.Shape).NumElements()
	}
	_, err := fmt.Fprintf(w, "tensors: %d (%d elements)\n", len(names), elements)
	return err
}

func writeMetadata(w io.Writer, metadata map[string]string) {
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %s\n", k, metadata[k])
	}
}

func describeONNX(w io.Writer, m *onnx.ModelProto) error {
	fmt.Fprintf(w, "format: onnx ir %d\n", m.IRVersion)
	fmt.Fprintf(w, "producer: %s %s\n", m.ProducerName, m.ProducerVersion)
	if m.Graph == nil {
		return errors.New("onnx model has no graph")
	}
	for _, v := range m.Graph.Inputs {
		fmt.Fprintf(w, "input %s %s\n", v.Name, formatDims(v.Shape))
	}
	for _, v := range m.Graph.Outputs {
		fmt.Fprintf(w, "output %s %s\n", v.Name, formatDims(v.Shape))
	}
	fmt.Fprintf(w, "initializers: %d\n", len(m.Graph.Initializers))

	hist := onnx.OpHistogram(m.Graph)
	for _, op := range onnx.SortedOpTypes(hist) {
		fmt.Fprintf(w, "  %-20s %d\n", op, hist[op])
	}
	return nil
}

func formatDims(dims []onnx.DimensionProto) string {
	parts := make([]string, len(dims))
	for i, d := range dims {
		if d.DimParam != "" {
			parts[i] = d.DimParam
		} else {
			parts[i] = strconv.FormatInt(d.DimValue, 10)
		}
	}
	return "[" + strings.Join(parts, ",") + "]"
}
