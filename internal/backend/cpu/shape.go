package cpu

import (
	"fmt"

	"github.com/born-ml/stochnorm/internal/parallel"
	"github.com/born-ml/stochnorm/internal/tensor"
)

// Reshape returns a copy of x with a new shape of the same element count.
func (cpu *CPUBackend) Reshape(x *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	result, err := x.WithShape(newShape)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	return result
}

// Expand broadcasts x to shape following NumPy rules.
func (cpu *CPUBackend) Expand(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	checkFloat("expand", x)
	outShape, _, err := tensor.BroadcastShapes(x.Shape(), shape)
	if err != nil || !outShape.Equal(shape) {
		panic(fmt.Sprintf("expand: cannot broadcast %v to %v", x.Shape(), shape))
	}
	result := cpu.alloc("expand", shape, x.DType())
	strides := tensor.BroadcastStrides(x.Shape(), shape)

	switch x.DType() {
	case tensor.Float32:
		gather(result.AsFloat32(), x.AsFloat32(), shape, strides, cpu.parallel)
	case tensor.Float64:
		gather(result.AsFloat64(), x.AsFloat64(), shape, strides, cpu.parallel)
	}
	return result
}

// Transpose permutes the dimensions of x.
// With no axes the dimension order is reversed.
//
// Example:
//
//	y := backend.Transpose(x, 2, 0, 1) // [2, 3, 4] -> [4, 2, 3]
func (cpu *CPUBackend) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	checkFloat("transpose", x)
	shape := x.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: expected %d axes, got %d", ndim, len(axes)))
	}

	seen := make([]bool, ndim)
	outShape := make(tensor.Shape, ndim)
	strides := make([]int, ndim)
	inStrides := x.Strides()
	for i, ax := range axes {
		if ax < 0 {
			ax += ndim
		}
		if ax < 0 || ax >= ndim || seen[ax] {
			panic(fmt.Sprintf("transpose: invalid permutation %v for %dD tensor", axes, ndim))
		}
		seen[ax] = true
		outShape[i] = shape[ax]
		strides[i] = inStrides[ax]
	}

	result := cpu.alloc("transpose", outShape, x.DType())
	switch x.DType() {
	case tensor.Float32:
		gather(result.AsFloat32(), x.AsFloat32(), outShape, strides, cpu.parallel)
	case tensor.Float64:
		gather(result.AsFloat64(), x.AsFloat64(), outShape, strides, cpu.parallel)
	}
	return result
}

// gather fills dst (row-major in outShape) reading src through strides.
func gather[T float](dst, src []T, outShape tensor.Shape, strides []int, cfg parallel.Config) {
	parallel.ForChunks(len(dst), func(start, end int) {
		for i := start; i < end; i++ {
			off := 0
			rem := i
			for d := len(outShape) - 1; d >= 0; d-- {
				off += (rem % outShape[d]) * strides[d]
				rem /= outShape[d]
			}
			dst[i] = src[off]
		}
	}, cfg)
}
