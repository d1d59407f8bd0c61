// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package rng provides the explicit random streams that drive dropout masks,
// weight initialization and synthetic data.
//
// A Stream is identified by a key and a fork counter. Fork advances the
// counter and returns an independent child; Split derives a child without
// advancing. Two streams with equal keys produce identical draws.
//
// Example:
//
//	streams := rng.NewRegistry(42)
//	drop, err := nn.NewDropout(nn.DropoutConfig{P: 0.5}, streams.Stream("dropout"), backend)
package rng

import "github.com/born-ml/stochnorm/internal/rng"

// Key identifies a stream.
type Key = rng.Key

// Source is the draw interface consumed by tensor creation and initialization.
type Source = rng.Source

// Stream is a deterministic random stream with an explicit fork counter.
type Stream = rng.Stream

// Registry hands out one stream per identifier, all rooted at one seed.
type Registry = rng.Registry

// New creates the root stream for seed and name.
func New(seed uint64, name string) *Stream {
	return rng.New(seed, name)
}

// FromKey recreates a stream from its key.
func FromKey(key Key) *Stream {
	return rng.FromKey(key)
}

// NewRegistry creates an empty registry for seed.
func NewRegistry(seed uint64) *Registry {
	return rng.NewRegistry(seed)
}
