// Package cpu implements the pure-Go CPU backend.
package cpu

import (
	"fmt"

	"github.com/born-ml/stochnorm/internal/parallel"
	"github.com/born-ml/stochnorm/internal/tensor"
)

// float is the element constraint shared by the typed kernels.
type float interface {
	float32 | float64
}

// CPUBackend implements tensor operations on CPU.
//
// Element loops are split across goroutines through internal/parallel when
// the tensor is large enough; every operation still completes before it returns.
type CPUBackend struct {
	device   tensor.Device
	parallel parallel.Config
}

// New creates a new CPU backend using all available cores.
func New() *CPUBackend {
	return &CPUBackend{
		device:   tensor.CPU,
		parallel: parallel.DefaultConfig(),
	}
}

// NewWithConfig creates a CPU backend with an explicit parallel configuration.
func NewWithConfig(cfg parallel.Config) *CPUBackend {
	return &CPUBackend{
		device:   tensor.CPU,
		parallel: cfg,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// alloc creates a result tensor, panicking with the operation name on failure.
func (cpu *CPUBackend) alloc(op string, shape tensor.Shape, dtype tensor.DataType) *tensor.RawTensor {
	result, err := tensor.NewRaw(shape, dtype, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", op, err))
	}
	return result
}

func checkFloat(op string, x *tensor.RawTensor) {
	if x.DType() != tensor.Float32 && x.DType() != tensor.Float64 {
		panic(fmt.Sprintf("%s: unsupported dtype %s (only float32/float64 supported)", op, x.DType()))
	}
}
