// Package metrics provides running summary statistics over repeated observations.
package metrics

import (
	"fmt"
	"math"
)

// Accumulator tracks per-element mean and variance over a stream of
// equally sized observations using Welford's update.
//
// Example:
//
//	acc := metrics.NewAccumulator(4)
//	for range trials {
//	    _ = acc.Add(sample)
//	}
//	mean := acc.Mean()
//
// An Accumulator is not safe for concurrent use.
type Accumulator struct {
	count int
	mean  []float64
	m2    []float64
}

// NewAccumulator creates an accumulator for observations of size elements.
func NewAccumulator(size int) *Accumulator {
	return &Accumulator{
		mean: make([]float64, size),
		m2:   make([]float64, size),
	}
}

// Add folds one observation into the statistics.
func (a *Accumulator) Add(sample []float32) error {
	if len(sample) != len(a.mean) {
		return fmt.Errorf("metrics: sample has %d elements, want %d", len(sample), len(a.mean))
	}
	a.count++
	n := float64(a.count)
	for i, v := range sample {
		x := float64(v)
		delta := x - a.mean[i]
		a.mean[i] += delta / n
		a.m2[i] += delta * (x - a.mean[i])
	}
	return nil
}

// Count returns the number of observations added.
func (a *Accumulator) Count() int {
	return a.count
}

// Size returns the number of elements per observation.
func (a *Accumulator) Size() int {
	return len(a.mean)
}

// Mean returns a copy of the per-element mean.
func (a *Accumulator) Mean() []float64 {
	out := make([]float64, len(a.mean))
	copy(out, a.mean)
	return out
}

// Variance returns the per-element sample variance (divided by n-1).
// All entries are zero until at least two observations have been added.
func (a *Accumulator) Variance() []float64 {
	out := make([]float64, len(a.m2))
	if a.count < 2 {
		return out
	}
	for i, m2 := range a.m2 {
		out[i] = m2 / float64(a.count-1)
	}
	return out
}

// MaxAbsDeviation returns max_i |mean_i - target_i|.
func (a *Accumulator) MaxAbsDeviation(target []float32) float64 {
	worst := 0.0
	for i, m := range a.mean {
		if i >= len(target) {
			break
		}
		worst = math.Max(worst, math.Abs(m-float64(target[i])))
	}
	return worst
}

// GrandMean returns the mean over all elements of the per-element means.
func (a *Accumulator) GrandMean() float64 {
	if len(a.mean) == 0 {
		return 0
	}
	sum := 0.0
	for _, m := range a.mean {
		sum += m
	}
	return sum / float64(len(a.mean))
}
