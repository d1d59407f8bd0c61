// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go CPU backend.
//
// Element-wise operations, reductions and matrix multiplication are split
// across goroutines once a tensor is large enough; results are identical to
// the sequential path.
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
package cpu

import (
	internalcpu "github.com/born-ml/stochnorm/internal/backend/cpu"
	"github.com/born-ml/stochnorm/internal/parallel"
	"github.com/born-ml/stochnorm/tensor"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// ParallelConfig controls how the backend splits work across goroutines.
type ParallelConfig = parallel.Config

// New creates a CPU backend with the default parallel configuration.
func New() *Backend {
	return internalcpu.New()
}

// NewWithConfig creates a CPU backend with an explicit parallel configuration.
//
// Example:
//
//	backend := cpu.NewWithConfig(cpu.ParallelConfig{Enabled: true, NumWorkers: 4, MinChunkSize: 4096})
func NewWithConfig(cfg ParallelConfig) *Backend {
	return internalcpu.NewWithConfig(cfg)
}
