package cpu

import (
	"fmt"

	"github.com/born-ml/stochnorm/internal/parallel"
	"github.com/born-ml/stochnorm/internal/tensor"
)

func add[T float](x, y T) T { return x + y }
func sub[T float](x, y T) T { return x - y }
func mul[T float](x, y T) T { return x * y }
func div[T float](x, y T) T { return x / y }

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("add", a, b, add[float32], add[float64])
}

// Sub performs element-wise subtraction with NumPy-style broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("sub", a, b, sub[float32], sub[float64])
}

// Mul performs element-wise multiplication with NumPy-style broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("mul", a, b, mul[float32], mul[float64])
}

// Div performs element-wise division with NumPy-style broadcasting.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("div", a, b, div[float32], div[float64])
}

func (cpu *CPUBackend) binary(
	op string,
	a, b *tensor.RawTensor,
	f32 func(x, y float32) float32,
	f64 func(x, y float64) float64,
) *tensor.RawTensor {
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch %s vs %s", op, a.DType(), b.DType()))
	}
	checkFloat(op, a)

	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}
	result := cpu.alloc(op, outShape, a.DType())

	switch a.DType() {
	case tensor.Float32:
		if needsBroadcast {
			broadcastBinary(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), outShape, a.Shape(), b.Shape(), f32, cpu.parallel)
		} else {
			sameShapeBinary(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), f32, cpu.parallel)
		}
	case tensor.Float64:
		if needsBroadcast {
			broadcastBinary(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), outShape, a.Shape(), b.Shape(), f64, cpu.parallel)
		} else {
			sameShapeBinary(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), f64, cpu.parallel)
		}
	}

	return result
}

func sameShapeBinary[T float](out, a, b []T, f func(x, y T) T, cfg parallel.Config) {
	parallel.ForChunks(len(out), func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = f(a[i], b[i])
		}
	}, cfg)
}

func broadcastBinary[T float](out, a, b []T, outShape, aShape, bShape tensor.Shape, f func(x, y T) T, cfg parallel.Config) {
	aStrides := tensor.BroadcastStrides(aShape, outShape)
	bStrides := tensor.BroadcastStrides(bShape, outShape)

	parallel.ForChunks(len(out), func(start, end int) {
		for i := start; i < end; i++ {
			aOff, bOff := 0, 0
			rem := i
			for d := len(outShape) - 1; d >= 0; d-- {
				idx := rem % outShape[d]
				rem /= outShape[d]
				aOff += idx * aStrides[d]
				bOff += idx * bStrides[d]
			}
			out[i] = f(a[aOff], b[bOff])
		}
	}, cfg)
}
