package tensor

// Backend defines the interface that compute backends implement.
// Backends handle the actual computation for tensor operations and always
// return freshly allocated results.
//
// Implementations:
//   - CPU: pure Go, optionally fanned out across goroutines
type Backend interface {
	// Element-wise binary operations (NumPy-style broadcasting)
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Matrix operations
	MatMul(a, b *RawTensor) *RawTensor // [M, K] @ [K, N] -> [M, N]

	// Scalar operations (element-wise with scalar)
	MulScalar(x *RawTensor, scalar any) *RawTensor
	AddScalar(x *RawTensor, scalar any) *RawTensor

	// Math operations (element-wise)
	Sqrt(x *RawTensor) *RawTensor
	Rsqrt(x *RawTensor) *RawTensor // 1/sqrt(x)

	// Activation functions
	ReLU(x *RawTensor) *RawTensor
	Sigmoid(x *RawTensor) *RawTensor
	Tanh(x *RawTensor) *RawTensor

	// Reduction operations
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor

	// Shape operations
	Reshape(x *RawTensor, newShape Shape) *RawTensor
	Transpose(x *RawTensor, axes ...int) *RawTensor
	Expand(x *RawTensor, shape Shape) *RawTensor // broadcast to shape

	// Metadata
	Name() string
	Device() Device
}
