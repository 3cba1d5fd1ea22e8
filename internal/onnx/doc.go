// Package onnx writes and reads the subset of the ONNX protobuf format needed
// to exchange convolutional networks with other frameworks.
//
// Messages are encoded field by field with protowire using the field numbers
// of onnx.proto, so no generated code is required.
//
// Key components:
//   - ModelProto: Top-level model with IR version, opset imports and graph
//   - GraphProto: Nodes, inputs, outputs and initializers
//   - NodeProto: Single operation (Conv, BatchNormalization, Relu, ...)
//   - TensorProto: Initializer tensor (float32 or int64)
//   - ValueInfoProto: Graph input/output type and shape
//   - GraphBuilder: Helper that names nodes and intermediate values
//
// Example usage:
//
//	b := onnx.NewGraphBuilder("shufflenet_v2")
//	b.AddInput("input", onnx.TensorProtoFloat, onnx.DimParam("batch"), onnx.Dim(3), onnx.Dim(224), onnx.Dim(224))
//	w := b.AddInitializer("conv.weight", []int64{24, 3, 3, 3}, weights)
//	y := b.AddNode("Conv", []string{"input", w}, onnx.AttrInts("strides", 2, 2))
//	b.AddOutput(y, onnx.TensorProtoFloat, onnx.DimParam("batch"), onnx.Dim(24), onnx.Dim(112), onnx.Dim(112))
//	data := onnx.Marshal(b.Model("born"))
package onnx
