package onnx

import (
	"fmt"
	"io"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers from onnx.proto.
const (
	modelIRVersion       protowire.Number = 1
	modelProducerName    protowire.Number = 2
	modelProducerVersion protowire.Number = 3
	modelDomain          protowire.Number = 4
	modelModelVersion    protowire.Number = 5
	modelDocString       protowire.Number = 6
	modelGraph           protowire.Number = 7
	modelOpsetImport     protowire.Number = 8

	opsetDomain  protowire.Number = 1
	opsetVersion protowire.Number = 2

	graphNode        protowire.Number = 1
	graphName        protowire.Number = 2
	graphInitializer protowire.Number = 5
	graphDocString   protowire.Number = 10
	graphInput       protowire.Number = 11
	graphOutput      protowire.Number = 12

	nodeInput     protowire.Number = 1
	nodeOutput    protowire.Number = 2
	nodeName      protowire.Number = 3
	nodeOpType    protowire.Number = 4
	nodeAttribute protowire.Number = 5
	nodeDomain    protowire.Number = 7

	attrName   protowire.Number = 1
	attrF      protowire.Number = 2
	attrI      protowire.Number = 3
	attrS      protowire.Number = 4
	attrFloats protowire.Number = 7
	attrInts   protowire.Number = 8
	attrType   protowire.Number = 20

	tensorDims     protowire.Number = 1
	tensorDataType protowire.Number = 2
	tensorName     protowire.Number = 8
	tensorRawData  protowire.Number = 9

	valueInfoName protowire.Number = 1
	valueInfoType protowire.Number = 2

	typeTensorType protowire.Number = 1

	tensorTypeElemType protowire.Number = 1
	tensorTypeShape    protowire.Number = 2

	shapeDim protowire.Number = 1

	dimValue protowire.Number = 1
	dimParam protowire.Number = 2
)

// Marshal encodes a model in protobuf wire format.
func Marshal(m *ModelProto) []byte {
	var b []byte
	b = appendVarintField(b, modelIRVersion, m.IRVersion)
	b = appendStringField(b, modelProducerName, m.ProducerName)
	b = appendStringField(b, modelProducerVersion, m.ProducerVersion)
	b = appendStringField(b, modelDomain, m.Domain)
	if m.ModelVersion != 0 {
		b = appendVarintField(b, modelModelVersion, m.ModelVersion)
	}
	b = appendStringField(b, modelDocString, m.DocString)
	if m.Graph != nil {
		b = protowire.AppendTag(b, modelGraph, protowire.BytesType)
		b = protowire.AppendBytes(b, appendGraph(nil, m.Graph))
	}
	for _, op := range m.OpsetImport {
		var sub []byte
		sub = appendStringField(sub, opsetDomain, op.Domain)
		sub = appendVarintField(sub, opsetVersion, op.Version)
		b = protowire.AppendTag(b, modelOpsetImport, protowire.BytesType)
		b = protowire.AppendBytes(b, sub)
	}
	return b
}

// WriteModel encodes m and writes it to w.
func WriteModel(w io.Writer, m *ModelProto) error {
	if _, err := w.Write(Marshal(m)); err != nil {
		return fmt.Errorf("onnx: write model: %w", err)
	}
	return nil
}

func appendGraph(b []byte, g *GraphProto) []byte {
	for i := range g.Nodes {
		b = protowire.AppendTag(b, graphNode, protowire.BytesType)
		b = protowire.AppendBytes(b, appendNode(nil, &g.Nodes[i]))
	}
	b = appendStringField(b, graphName, g.Name)
	for i := range g.Initializers {
		b = protowire.AppendTag(b, graphInitializer, protowire.BytesType)
		b = protowire.AppendBytes(b, appendTensor(nil, &g.Initializers[i]))
	}
	b = appendStringField(b, graphDocString, g.DocString)
	for i := range g.Inputs {
		b = protowire.AppendTag(b, graphInput, protowire.BytesType)
		b = protowire.AppendBytes(b, appendValueInfo(nil, &g.Inputs[i]))
	}
	for i := range g.Outputs {
		b = protowire.AppendTag(b, graphOutput, protowire.BytesType)
		b = protowire.AppendBytes(b, appendValueInfo(nil, &g.Outputs[i]))
	}
	return b
}

func appendNode(b []byte, n *NodeProto) []byte {
	for _, in := range n.Inputs {
		b = protowire.AppendTag(b, nodeInput, protowire.BytesType)
		b = protowire.AppendString(b, in)
	}
	for _, out := range n.Outputs {
		b = protowire.AppendTag(b, nodeOutput, protowire.BytesType)
		b = protowire.AppendString(b, out)
	}
	b = appendStringField(b, nodeName, n.Name)
	b = appendStringField(b, nodeOpType, n.OpType)
	for i := range n.Attributes {
		b = protowire.AppendTag(b, nodeAttribute, protowire.BytesType)
		b = protowire.AppendBytes(b, appendAttribute(nil, &n.Attributes[i]))
	}
	b = appendStringField(b, nodeDomain, n.Domain)
	return b
}

func appendAttribute(b []byte, a *AttributeProto) []byte {
	b = appendStringField(b, attrName, a.Name)
	switch a.Type {
	case AttributeProtoFloat:
		b = protowire.AppendTag(b, attrF, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(a.F))
	case AttributeProtoInt:
		b = appendVarintField(b, attrI, a.I)
	case AttributeProtoString:
		b = protowire.AppendTag(b, attrS, protowire.BytesType)
		b = protowire.AppendBytes(b, a.S)
	case AttributeProtoFloats:
		for _, f := range a.Floats {
			b = protowire.AppendTag(b, attrFloats, protowire.Fixed32Type)
			b = protowire.AppendFixed32(b, math.Float32bits(f))
		}
	case AttributeProtoInts:
		for _, v := range a.Ints {
			b = appendVarintField(b, attrInts, v)
		}
	}
	b = appendVarintField(b, attrType, int64(a.Type))
	return b
}

func appendTensor(b []byte, t *TensorProto) []byte {
	for _, d := range t.Dims {
		b = appendVarintField(b, tensorDims, d)
	}
	b = appendVarintField(b, tensorDataType, int64(t.DataType))
	b = appendStringField(b, tensorName, t.Name)
	b = protowire.AppendTag(b, tensorRawData, protowire.BytesType)
	b = protowire.AppendBytes(b, t.RawData)
	return b
}

func appendValueInfo(b []byte, v *ValueInfoProto) []byte {
	var shape []byte
	for _, d := range v.Shape {
		var dim []byte
		if d.DimParam != "" {
			dim = appendStringField(dim, dimParam, d.DimParam)
		} else {
			dim = appendVarintField(dim, dimValue, d.DimValue)
		}
		shape = protowire.AppendTag(shape, shapeDim, protowire.BytesType)
		shape = protowire.AppendBytes(shape, dim)
	}

	var tensorType []byte
	tensorType = appendVarintField(tensorType, tensorTypeElemType, int64(v.ElemType))
	tensorType = protowire.AppendTag(tensorType, tensorTypeShape, protowire.BytesType)
	tensorType = protowire.AppendBytes(tensorType, shape)

	var typ []byte
	typ = protowire.AppendTag(typ, typeTensorType, protowire.BytesType)
	typ = protowire.AppendBytes(typ, tensorType)

	b = appendStringField(b, valueInfoName, v.Name)
	b = protowire.AppendTag(b, valueInfoType, protowire.BytesType)
	b = protowire.AppendBytes(b, typ)
	return b
}

func appendVarintField(b []byte, num protowire.Number, v int64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v)) //nolint:gosec // G115: int64 fields use two's complement varints
}

// appendStringField skips empty strings, matching proto2 optional semantics.
func appendStringField(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}
