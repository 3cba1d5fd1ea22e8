package onnx

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// GraphBuilder assembles a GraphProto in topological order. Node names and
// intermediate value names are generated from the op type.
type GraphBuilder struct {
	graph   GraphProto
	counter map[string]int
	names   map[string]bool
}

// NewGraphBuilder creates an empty graph.
func NewGraphBuilder(name string) *GraphBuilder {
	return &GraphBuilder{
		graph:   GraphProto{Name: name},
		counter: make(map[string]int),
		names:   make(map[string]bool),
	}
}

// AddInput declares a graph input.
func (b *GraphBuilder) AddInput(name string, elemType int32, dims ...DimensionProto) string {
	b.claim(name)
	b.graph.Inputs = append(b.graph.Inputs, ValueInfoProto{Name: name, ElemType: elemType, Shape: dims})
	return name
}

// AddOutput declares an existing value as a graph output.
func (b *GraphBuilder) AddOutput(name string, elemType int32, dims ...DimensionProto) {
	b.graph.Outputs = append(b.graph.Outputs, ValueInfoProto{Name: name, ElemType: elemType, Shape: dims})
}

// AddInitializer adds a float32 weight tensor and returns its name.
func (b *GraphBuilder) AddInitializer(name string, dims []int64, data []float32) string {
	b.claim(name)
	raw := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(v))
	}
	b.graph.Initializers = append(b.graph.Initializers, TensorProto{
		Name:     name,
		DataType: TensorProtoFloat,
		Dims:     append([]int64(nil), dims...),
		RawData:  raw,
	})
	return name
}

// AddInt64Initializer adds an int64 constant (e.g. a Reshape target) and returns its name.
func (b *GraphBuilder) AddInt64Initializer(name string, data ...int64) string {
	b.claim(name)
	raw := make([]byte, 8*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint64(raw[8*i:], uint64(v)) //nolint:gosec // G115: two's complement
	}
	b.graph.Initializers = append(b.graph.Initializers, TensorProto{
		Name:     name,
		DataType: TensorProtoInt64,
		Dims:     []int64{int64(len(data))},
		RawData:  raw,
	})
	return name
}

// AddNode appends a single-output node and returns the output value name.
func (b *GraphBuilder) AddNode(opType string, inputs []string, attrs ...AttributeProto) string {
	return b.AddMultiOutputNode(opType, inputs, 1, attrs...)[0]
}

// AddMultiOutputNode appends a node with numOutputs outputs and returns their names.
func (b *GraphBuilder) AddMultiOutputNode(opType string, inputs []string, numOutputs int, attrs ...AttributeProto) []string {
	idx := b.counter[opType]
	b.counter[opType]++
	name := fmt.Sprintf("%s_%d", opType, idx)

	outputs := make([]string, numOutputs)
	for i := range outputs {
		outputs[i] = fmt.Sprintf("%s_out%d", name, i)
		b.claim(outputs[i])
	}

	b.graph.Nodes = append(b.graph.Nodes, NodeProto{
		Name:       name,
		OpType:     opType,
		Inputs:     append([]string(nil), inputs...),
		Outputs:    outputs,
		Attributes: attrs,
	})
	return outputs
}

// claim registers a value name. Duplicate names are programming errors.
func (b *GraphBuilder) claim(name string) {
	if b.names[name] {
		panic(fmt.Sprintf("onnx: duplicate value name %q", name))
	}
	b.names[name] = true
}

// Graph returns the assembled graph.
func (b *GraphBuilder) Graph() *GraphProto {
	g := b.graph
	return &g
}

// Model wraps the graph in a ModelProto with the default IR and opset versions.
func (b *GraphBuilder) Model(producer, producerVersion string) *ModelProto {
	return &ModelProto{
		IRVersion:       IRVersion,
		OpsetImport:     []OperatorSetID{{Version: OpsetVersion}},
		ProducerName:    producer,
		ProducerVersion: producerVersion,
		Graph:           b.Graph(),
	}
}

// OpHistogram counts nodes by op type.
func OpHistogram(g *GraphProto) map[string]int {
	hist := make(map[string]int)
	for _, n := range g.Nodes {
		hist[n.OpType]++
	}
	return hist
}

// SortedOpTypes returns the op types of a histogram in name order.
func SortedOpTypes(hist map[string]int) []string {
	ops := make([]string, 0, len(hist))
	for op := range hist {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// Float32Data decodes the raw data of a float32 initializer.
func (t *TensorProto) Float32Data() ([]float32, error) {
	if t.DataType != TensorProtoFloat {
		return nil, fmt.Errorf("onnx: tensor %s has data type %d, not float", t.Name, t.DataType)
	}
	if int64(len(t.RawData)) != 4*t.NumElements() {
		return nil, fmt.Errorf("onnx: tensor %s has %d raw bytes for %d elements", t.Name, len(t.RawData), t.NumElements())
	}
	out := make([]float32, len(t.RawData)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(t.RawData[4*i:]))
	}
	return out, nil
}

// Int64Data decodes the raw data of an int64 initializer.
func (t *TensorProto) Int64Data() ([]int64, error) {
	if t.DataType != TensorProtoInt64 {
		return nil, fmt.Errorf("onnx: tensor %s has data type %d, not int64", t.Name, t.DataType)
	}
	if int64(len(t.RawData)) != 8*t.NumElements() {
		return nil, fmt.Errorf("onnx: tensor %s has %d raw bytes for %d elements", t.Name, len(t.RawData), t.NumElements())
	}
	out := make([]int64, len(t.RawData)/8)
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(t.RawData[8*i:])) //nolint:gosec // G115: two's complement
	}
	return out, nil
}
