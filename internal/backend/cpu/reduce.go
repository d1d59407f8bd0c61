package cpu

import (
	"fmt"

	"github.com/born-ml/stochnorm/internal/parallel"
	"github.com/born-ml/stochnorm/internal/tensor"
)

// SumDim sums tensor elements along the specified dimension.
//
// Parameters:
//   - dim: dimension to reduce (supports negative indexing: -1 = last dim)
//   - keepDim: if true, keep the reduced dimension with size 1; if false, remove it
//
// Accumulation happens in float64 regardless of dtype.
//
// Example:
//
//	y := backend.SumDim(x, -1, true)   // [2, 3, 4] -> [2, 3, 1]
//	z := backend.SumDim(x, -1, false)  // [2, 3, 4] -> [2, 3]
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return cpu.reduceDim("sumdim", x, dim, keepDim, false)
}

// MeanDim computes the mean of tensor elements along the specified dimension.
func (cpu *CPUBackend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return cpu.reduceDim("meandim", x, dim, keepDim, true)
}

func (cpu *CPUBackend) reduceDim(op string, x *tensor.RawTensor, dim int, keepDim, mean bool) *tensor.RawTensor {
	checkFloat(op, x)
	shape := x.Shape()

	dim, err := shape.NormalizeAxis(dim)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}

	var outShape tensor.Shape
	if keepDim {
		outShape = shape.Clone()
		outShape[dim] = 1
	} else {
		outShape = make(tensor.Shape, 0, len(shape)-1)
		outShape = append(outShape, shape[:dim]...)
		outShape = append(outShape, shape[dim+1:]...)
	}
	result := cpu.alloc(op, outShape, x.DType())

	outer := shape[:dim].NumElements()
	inner := shape[dim+1:].NumElements()
	n := shape[dim]

	switch x.DType() {
	case tensor.Float32:
		reduceAxis(result.AsFloat32(), x.AsFloat32(), outer, n, inner, mean, cpu.parallel)
	case tensor.Float64:
		reduceAxis(result.AsFloat64(), x.AsFloat64(), outer, n, inner, mean, cpu.parallel)
	}

	return result
}

// reduceAxis views src as [outer, n, inner] and reduces the middle axis into dst [outer, inner].
func reduceAxis[T float](dst, src []T, outer, n, inner int, mean bool, cfg parallel.Config) {
	parallel.ForChunks(len(dst), func(start, end int) {
		for idx := start; idx < end; idx++ {
			o, i := idx/inner, idx%inner
			base := o*n*inner + i
			var acc float64
			for k := 0; k < n; k++ {
				acc += float64(src[base+k*inner])
			}
			if mean {
				acc /= float64(n)
			}
			dst[idx] = T(acc)
		}
	}, cfg)
}
