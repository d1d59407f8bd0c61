package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/stochnorm/internal/parallel"
	"github.com/born-ml/stochnorm/internal/tensor"
)

func sqrtOp[T float](v T) T  { return T(math.Sqrt(float64(v))) }
func rsqrtOp[T float](v T) T { return T(1 / math.Sqrt(float64(v))) }
func tanhOp[T float](v T) T  { return T(math.Tanh(float64(v))) }

func reluOp[T float](v T) T {
	if v > 0 {
		return v
	}
	return 0
}

func sigmoidOp[T float](v T) T {
	return T(1 / (1 + math.Exp(-float64(v))))
}

// Sqrt computes element-wise square root.
func (cpu *CPUBackend) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("sqrt", x, sqrtOp[float32], sqrtOp[float64])
}

// Rsqrt computes element-wise reciprocal square root: 1/sqrt(x).
func (cpu *CPUBackend) Rsqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("rsqrt", x, rsqrtOp[float32], rsqrtOp[float64])
}

// ReLU computes max(0, x).
func (cpu *CPUBackend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("relu", x, reluOp[float32], reluOp[float64])
}

// Sigmoid computes 1/(1+exp(-x)).
func (cpu *CPUBackend) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("sigmoid", x, sigmoidOp[float32], sigmoidOp[float64])
}

// Tanh computes the hyperbolic tangent.
func (cpu *CPUBackend) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("tanh", x, tanhOp[float32], tanhOp[float64])
}

// MulScalar multiplies each element by a scalar value.
// The scalar may be any Go float or integer type.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	s := toFloat64("mulScalar", scalar)
	return cpu.unary("mulScalar", x,
		func(v float32) float32 { return v * float32(s) },
		func(v float64) float64 { return v * s },
	)
}

// AddScalar adds a scalar value to each element.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	s := toFloat64("addScalar", scalar)
	return cpu.unary("addScalar", x,
		func(v float32) float32 { return v + float32(s) },
		func(v float64) float64 { return v + s },
	)
}

func (cpu *CPUBackend) unary(
	op string,
	x *tensor.RawTensor,
	f32 func(float32) float32,
	f64 func(float64) float64,
) *tensor.RawTensor {
	checkFloat(op, x)
	result := cpu.alloc(op, x.Shape(), x.DType())

	switch x.DType() {
	case tensor.Float32:
		mapSlice(result.AsFloat32(), x.AsFloat32(), f32, cpu.parallel)
	case tensor.Float64:
		mapSlice(result.AsFloat64(), x.AsFloat64(), f64, cpu.parallel)
	}

	return result
}

func mapSlice[T float](dst, src []T, f func(T) T, cfg parallel.Config) {
	parallel.ForChunks(len(dst), func(start, end int) {
		for i := start; i < end; i++ {
			dst[i] = f(src[i])
		}
	}, cfg)
}

func toFloat64(op string, scalar any) float64 {
	switch v := scalar.(type) {
	case float32:
		return float64(v)
	case float64:
		return v
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	default:
		panic(fmt.Sprintf("%s: unsupported scalar type %T", op, scalar))
	}
}
