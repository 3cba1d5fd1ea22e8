package tensor

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations.
//
// Spatial operations use the channels-last layout [N, H, W, C].
//
// Implementations:
//   - CPU: Pure Go, GEMM through gonum BLAS
type Backend interface {
	// Element-wise binary operations (NumPy broadcasting)
	Add(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor

	// Scalar operations
	AddScalar(x *RawTensor, scalar float64) *RawTensor
	MulScalar(x *RawTensor, scalar float64) *RawTensor

	// Matrix operations: (M, K) @ (K, N) -> (M, N)
	MatMul(a, b *RawTensor) *RawTensor

	// Convolutional operations
	// Conv2D kernel layout: [K_h, K_w, C_in, C_out]
	Conv2D(input, kernel *RawTensor, params Conv2DParams) *RawTensor
	// DepthwiseConv2D kernel layout: [K_h, K_w, C, 1]
	DepthwiseConv2D(input, kernel *RawTensor, params Conv2DParams) *RawTensor
	MaxPool2D(input *RawTensor, params Pool2DParams) *RawTensor
	GlobalAvgPool2D(input *RawTensor) *RawTensor

	// Normalization along the last axis
	BatchNorm(input, mean, variance, scale, offset *RawTensor, epsilon float32) *RawTensor
	Moments(input *RawTensor) (mean, variance *RawTensor)

	// Activation functions
	ReLU(x *RawTensor) *RawTensor
	Softmax(x *RawTensor, dim int) *RawTensor

	// Shape operations
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor

	// Manipulation operations
	Cat(tensors []*RawTensor, dim int) *RawTensor
	Chunk(x *RawTensor, n, dim int) []*RawTensor

	// Reduction operations
	Sum(x *RawTensor) *RawTensor
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor

	// Metadata
	Name() string
	Device() Device
}
