package onnx

import (
	"errors"
	"fmt"
	"math"
	"os"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformed is returned for input that is not a valid encoded model.
var ErrMalformed = errors.New("onnx: malformed protobuf")

// field is one decoded key/value pair of a protobuf message.
type field struct {
	num     protowire.Number
	typ     protowire.Type
	varint  uint64
	fixed32 uint32
	bytes   []byte
}

// forEachField decodes the top-level fields of a message. Unknown wire types
// are skipped.
func forEachField(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(b)
		case protowire.Fixed32Type:
			f.fixed32, n = protowire.ConsumeFixed32(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("%w: field %d: %w", ErrMalformed, num, protowire.ParseError(n))
		}
		b = b[n:]

		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func (f field) expect(typ protowire.Type) error {
	if f.typ != typ {
		return fmt.Errorf("%w: field %d has wire type %d, want %d", ErrMalformed, f.num, f.typ, typ)
	}
	return nil
}

func (f field) int64Value() (int64, error) {
	if err := f.expect(protowire.VarintType); err != nil {
		return 0, err
	}
	return int64(f.varint), nil //nolint:gosec // G115: two's complement varint
}

func (f field) stringValue() (string, error) {
	if err := f.expect(protowire.BytesType); err != nil {
		return "", err
	}
	return string(f.bytes), nil
}

// int64Values accepts both packed and unpacked repeated varints.
func (f field) int64Values() ([]int64, error) {
	switch f.typ {
	case protowire.VarintType:
		return []int64{int64(f.varint)}, nil //nolint:gosec // G115: two's complement varint
	case protowire.BytesType:
		var out []int64
		for b := f.bytes; len(b) > 0; {
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: packed field %d: %w", ErrMalformed, f.num, protowire.ParseError(n))
			}
			out = append(out, int64(v)) //nolint:gosec // G115: two's complement varint
			b = b[n:]
		}
		return out, nil
	default:
		return nil, f.expect(protowire.VarintType)
	}
}

// float32Values accepts both packed and unpacked repeated floats.
func (f field) float32Values() ([]float32, error) {
	switch f.typ {
	case protowire.Fixed32Type:
		return []float32{math.Float32frombits(f.fixed32)}, nil
	case protowire.BytesType:
		var out []float32
		for b := f.bytes; len(b) > 0; {
			v, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: packed field %d: %w", ErrMalformed, f.num, protowire.ParseError(n))
			}
			out = append(out, math.Float32frombits(v))
			b = b[n:]
		}
		return out, nil
	default:
		return nil, f.expect(protowire.Fixed32Type)
	}
}

// ParseFile decodes an ONNX model from file.
func ParseFile(path string) (*ModelProto, error) {
	//nolint:gosec // G304: Path is provided by user, file inclusion is intentional for ONNX model loading
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Unmarshal(data)
}

// Unmarshal decodes an ONNX model. Fields outside the supported subset are skipped.
func Unmarshal(data []byte) (*ModelProto, error) {
	m := &ModelProto{}
	err := forEachField(data, func(f field) error {
		var err error
		switch f.num {
		case modelIRVersion:
			m.IRVersion, err = f.int64Value()
		case modelProducerName:
			m.ProducerName, err = f.stringValue()
		case modelProducerVersion:
			m.ProducerVersion, err = f.stringValue()
		case modelDomain:
			m.Domain, err = f.stringValue()
		case modelModelVersion:
			m.ModelVersion, err = f.int64Value()
		case modelDocString:
			m.DocString, err = f.stringValue()
		case modelGraph:
			if err = f.expect(protowire.BytesType); err == nil {
				m.Graph, err = decodeGraph(f.bytes)
			}
		case modelOpsetImport:
			var op OperatorSetID
			if err = f.expect(protowire.BytesType); err == nil {
				op, err = decodeOpset(f.bytes)
				m.OpsetImport = append(m.OpsetImport, op)
			}
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}
	return m, nil
}

func decodeOpset(b []byte) (OperatorSetID, error) {
	var op OperatorSetID
	err := forEachField(b, func(f field) error {
		var err error
		switch f.num {
		case opsetDomain:
			op.Domain, err = f.stringValue()
		case opsetVersion:
			op.Version, err = f.int64Value()
		}
		return err
	})
	return op, err
}

func decodeGraph(b []byte) (*GraphProto, error) {
	g := &GraphProto{}
	err := forEachField(b, func(f field) error {
		switch f.num {
		case graphName:
			var err error
			g.Name, err = f.stringValue()
			return err
		case graphDocString:
			var err error
			g.DocString, err = f.stringValue()
			return err
		case graphNode, graphInitializer, graphInput, graphOutput:
		default:
			return nil
		}

		if err := f.expect(protowire.BytesType); err != nil {
			return err
		}
		switch f.num {
		case graphNode:
			n, err := decodeNode(f.bytes)
			if err != nil {
				return fmt.Errorf("node %d: %w", len(g.Nodes), err)
			}
			g.Nodes = append(g.Nodes, n)
		case graphInitializer:
			t, err := decodeTensor(f.bytes)
			if err != nil {
				return fmt.Errorf("initializer %d: %w", len(g.Initializers), err)
			}
			g.Initializers = append(g.Initializers, t)
		case graphInput:
			v, err := decodeValueInfo(f.bytes)
			if err != nil {
				return fmt.Errorf("input %d: %w", len(g.Inputs), err)
			}
			g.Inputs = append(g.Inputs, v)
		case graphOutput:
			v, err := decodeValueInfo(f.bytes)
			if err != nil {
				return fmt.Errorf("output %d: %w", len(g.Outputs), err)
			}
			g.Outputs = append(g.Outputs, v)
		}
		return nil
	})
	return g, err
}

func decodeNode(b []byte) (NodeProto, error) {
	var n NodeProto
	err := forEachField(b, func(f field) error {
		var err error
		var s string
		switch f.num {
		case nodeInput:
			s, err = f.stringValue()
			n.Inputs = append(n.Inputs, s)
		case nodeOutput:
			s, err = f.stringValue()
			n.Outputs = append(n.Outputs, s)
		case nodeName:
			n.Name, err = f.stringValue()
		case nodeOpType:
			n.OpType, err = f.stringValue()
		case nodeDomain:
			n.Domain, err = f.stringValue()
		case nodeAttribute:
			var a AttributeProto
			if err = f.expect(protowire.BytesType); err == nil {
				a, err = decodeAttribute(f.bytes)
				n.Attributes = append(n.Attributes, a)
			}
		}
		return err
	})
	return n, err
}

func decodeAttribute(b []byte) (AttributeProto, error) {
	var a AttributeProto
	err := forEachField(b, func(f field) error {
		var err error
		switch f.num {
		case attrName:
			a.Name, err = f.stringValue()
		case attrF:
			if err = f.expect(protowire.Fixed32Type); err == nil {
				a.F = math.Float32frombits(f.fixed32)
			}
		case attrI:
			a.I, err = f.int64Value()
		case attrS:
			if err = f.expect(protowire.BytesType); err == nil {
				a.S = append([]byte(nil), f.bytes...)
			}
		case attrFloats:
			var vs []float32
			vs, err = f.float32Values()
			a.Floats = append(a.Floats, vs...)
		case attrInts:
			var vs []int64
			vs, err = f.int64Values()
			a.Ints = append(a.Ints, vs...)
		case attrType:
			var v int64
			v, err = f.int64Value()
			a.Type = int32(v) //nolint:gosec // G115: enum value
		}
		return err
	})
	return a, err
}

func decodeTensor(b []byte) (TensorProto, error) {
	var t TensorProto
	err := forEachField(b, func(f field) error {
		var err error
		switch f.num {
		case tensorDims:
			var vs []int64
			vs, err = f.int64Values()
			t.Dims = append(t.Dims, vs...)
		case tensorDataType:
			var v int64
			v, err = f.int64Value()
			t.DataType = int32(v) //nolint:gosec // G115: enum value
		case tensorName:
			t.Name, err = f.stringValue()
		case tensorRawData:
			if err = f.expect(protowire.BytesType); err == nil {
				t.RawData = append([]byte(nil), f.bytes...)
			}
		}
		return err
	})
	return t, err
}

func decodeValueInfo(b []byte) (ValueInfoProto, error) {
	var v ValueInfoProto
	err := forEachField(b, func(f field) error {
		switch f.num {
		case valueInfoName:
			var err error
			v.Name, err = f.stringValue()
			return err
		case valueInfoType:
			if err := f.expect(protowire.BytesType); err != nil {
				return err
			}
			return forEachField(f.bytes, func(f field) error {
				if f.num != typeTensorType {
					return nil
				}
				if err := f.expect(protowire.BytesType); err != nil {
					return err
				}
				return decodeTensorType(f.bytes, &v)
			})
		}
		return nil
	})
	return v, err
}

func decodeTensorType(b []byte, v *ValueInfoProto) error {
	return forEachField(b, func(f field) error {
		switch f.num {
		case tensorTypeElemType:
			e, err := f.int64Value()
			v.ElemType = int32(e) //nolint:gosec // G115: enum value
			return err
		case tensorTypeShape:
			if err := f.expect(protowire.BytesType); err != nil {
				return err
			}
			return forEachField(f.bytes, func(f field) error {
				if f.num != shapeDim {
					return nil
				}
				if err := f.expect(protowire.BytesType); err != nil {
					return err
				}
				var d DimensionProto
				err := forEachField(f.bytes, func(f field) error {
					var err error
					switch f.num {
					case dimValue:
						d.DimValue, err = f.int64Value()
					case dimParam:
						d.DimParam, err = f.stringValue()
					}
					return err
				})
				v.Shape = append(v.Shape, d)
				return err
			})
		}
		return nil
	})
}
