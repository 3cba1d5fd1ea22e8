package onnx

// ONNX protobuf data structures (hand-written subset).

// Versions written by this package.
const (
	IRVersion    = 8
	OpsetVersion = 13
)

// ModelProto represents an ONNX model.
type ModelProto struct {
	IRVersion       int64           // IR version (e.g., 7, 8, 9)
	OpsetImport     []OperatorSetID // Opset version(s)
	ProducerName    string          // Framework name
	ProducerVersion string          // Framework version
	Domain          string          // Model domain
	ModelVersion    int64           // Model version number
	DocString       string          // Model description
	Graph           *GraphProto     // Computation graph
}

// GraphProto represents the computation graph.
type GraphProto struct {
	Name         string           // Graph name
	Nodes        []NodeProto      // Operation nodes in topological order
	Inputs       []ValueInfoProto // Graph inputs
	Outputs      []ValueInfoProto // Graph outputs
	Initializers []TensorProto    // Weight tensors
	DocString    string           // Graph description
}

// NodeProto represents a single operation.
type NodeProto struct {
	Name       string           // Node name (optional)
	OpType     string           // Operation type (e.g., "Conv", "Relu")
	Inputs     []string         // Input value names
	Outputs    []string         // Output value names
	Attributes []AttributeProto // Operation attributes
	Domain     string           // Custom domain (empty for default)
}

// Attribute returns the named attribute.
func (n *NodeProto) Attribute(name string) (AttributeProto, bool) {
	for _, a := range n.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return AttributeProto{}, false
}

// TensorProto represents an initializer tensor.
type TensorProto struct {
	Name     string  // Tensor name
	DataType int32   // Element data type
	Dims     []int64 // Tensor shape
	RawData  []byte  // Little-endian element bytes
}

// NumElements returns the element count implied by Dims.
func (t *TensorProto) NumElements() int64 {
	n := int64(1)
	for _, d := range t.Dims {
		n *= d
	}
	return n
}

// ValueInfoProto describes a graph input or output tensor.
type ValueInfoProto struct {
	Name     string           // Value name
	ElemType int32            // Element data type
	Shape    []DimensionProto // Dimensions
}

// DimensionProto describes a single dimension.
type DimensionProto struct {
	DimValue int64  // Static dimension value (e.g., 224 for image size)
	DimParam string // Symbolic dimension name (e.g., "batch")
}

// Dim returns a static dimension.
func Dim(v int64) DimensionProto { return DimensionProto{DimValue: v} }

// DimParam returns a symbolic dimension.
func DimParam(name string) DimensionProto { return DimensionProto{DimParam: name} }

// AttributeProto represents a node attribute.
type AttributeProto struct {
	Name   string    // Attribute name
	Type   int32     // Attribute type
	F      float32   // FLOAT value
	I      int64     // INT value
	S      []byte    // STRING value
	Floats []float32 // FLOATS array
	Ints   []int64   // INTS array
}

// OperatorSetID identifies opset version.
type OperatorSetID struct {
	Domain  string // Operator domain (empty for default)
	Version int64  // Opset version number
}

// ONNX data types (TensorProto.DataType).
const (
	TensorProtoUndefined = 0
	TensorProtoFloat     = 1  // float32
	TensorProtoInt64     = 7  // int64
	TensorProtoDouble    = 11 // float64
)

// ONNX attribute types (AttributeProto.Type).
const (
	AttributeProtoUndefined = 0
	AttributeProtoFloat     = 1 // FLOAT
	AttributeProtoInt       = 2 // INT
	AttributeProtoString    = 3 // STRING
	AttributeProtoFloats    = 6 // FLOATS
	AttributeProtoInts      = 7 // INTS
)

// AttrFloat builds a FLOAT attribute.
func AttrFloat(name string, v float32) AttributeProto {
	return AttributeProto{Name: name, Type: AttributeProtoFloat, F: v}
}

// AttrInt builds an INT attribute.
func AttrInt(name string, v int64) AttributeProto {
	return AttributeProto{Name: name, Type: AttributeProtoInt, I: v}
}

// AttrString builds a STRING attribute.
func AttrString(name, v string) AttributeProto {
	return AttributeProto{Name: name, Type: AttributeProtoString, S: []byte(v)}
}

// AttrInts builds an INTS attribute.
func AttrInts(name string, v ...int64) AttributeProto {
	return AttributeProto{Name: name, Type: AttributeProtoInts, Ints: v}
}

// AttrFloats builds a FLOATS attribute.
func AttrFloats(name string, v ...float32) AttributeProto {
	return AttributeProto{Name: name, Type: AttributeProtoFloats, Floats: v}
}
