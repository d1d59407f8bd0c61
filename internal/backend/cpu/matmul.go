package cpu

import (
	"fmt"

	"github.com/born-ml/stochnorm/internal/parallel"
	"github.com/born-ml/stochnorm/internal/tensor"
)

// MatMul performs 2D matrix multiplication: [M, K] @ [K, N] -> [M, N].
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("matmul: dtype mismatch %s vs %s", a.DType(), b.DType()))
	}
	checkFloat("matmul", a)

	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: expected 2D tensors, got %v and %v", aShape, bShape))
	}
	if aShape[1] != bShape[0] {
		panic(fmt.Sprintf("matmul: inner dimensions differ: %v @ %v", aShape, bShape))
	}

	m, k, n := aShape[0], aShape[1], bShape[1]
	result := cpu.alloc("matmul", tensor.Shape{m, n}, a.DType())

	switch a.DType() {
	case tensor.Float32:
		matmul(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), m, k, n, cpu.parallel)
	case tensor.Float64:
		matmul(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), m, k, n, cpu.parallel)
	}
	return result
}

// matmul uses i-p-j loop order so the inner loop walks both b and out contiguously.
func matmul[T float](out, a, b []T, m, k, n int, cfg parallel.Config) {
	rowCfg := cfg
	rowCfg.MinChunkSize = max(1, cfg.MinChunkSize/max(1, k*n))
	parallel.ForChunks(m, func(start, end int) {
		for i := start; i < end; i++ {
			row := out[i*n : (i+1)*n]
			for p := 0; p < k; p++ {
				av := a[i*k+p]
				if av == 0 {
					continue
				}
				bRow := b[p*n : (p+1)*n]
				for j := range row {
					row[j] += av * bRow[j]
				}
			}
		}
	}, rowCfg)
}
