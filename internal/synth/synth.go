// Package synth generates synthetic datasets for the demos and tests.
//
// Every generator draws from an explicit rng.Source, so a dataset is fully
// determined by the stream it was given.
package synth

import (
	"fmt"

	"github.com/born-ml/stochnorm/internal/rng"
	"github.com/born-ml/stochnorm/internal/tensor"
)

// LinearData draws n samples of y = X @ weights + bias + noise*ε
// with X and ε standard normal.
//
// Returns X with shape [n, len(weights)] and y with shape [n, 1].
//
// Example:
//
//	x, y, err := synth.LinearData(1000, []float32{2, -3.4}, 4.2, 0.01, rng.New(0, "data"), backend)
func LinearData[B tensor.Backend](n int, weights []float32, bias float32, noise float64, src rng.Source, backend B) (*tensor.Tensor[float32, B], *tensor.Tensor[float32, B], error) {
	if n <= 0 {
		return nil, nil, fmt.Errorf("synth: sample count must be positive, got %d", n)
	}
	if len(weights) == 0 {
		return nil, nil, fmt.Errorf("synth: at least one weight is required")
	}
	if noise < 0 {
		return nil, nil, fmt.Errorf("synth: noise must be non-negative, got %g", noise)
	}

	d := len(weights)
	x := tensor.Randn[float32](tensor.Shape{n, d}, src, backend)
	y := tensor.Zeros[float32](tensor.Shape{n, 1}, backend)

	xs, ys := x.Data(), y.Data()
	for i := range n {
		sum := bias
		for j, w := range weights {
			sum += xs[i*d+j] * w
		}
		ys[i] = sum + float32(noise*src.NormFloat64())
	}
	return x, y, nil
}

// GaussianClasses draws n samples split evenly between two isotropic
// Gaussian classes in dim dimensions, with means at -sep/2 and +sep/2 on
// every axis and unit variance.
//
// Returns X with shape [n, dim] and the class label (0 or 1) of each row.
// Labels alternate, starting with 0.
func GaussianClasses[B tensor.Backend](n, dim int, sep float64, src rng.Source, backend B) (*tensor.Tensor[float32, B], []int, error) {
	if n <= 0 || dim <= 0 {
		return nil, nil, fmt.Errorf("synth: sample count and dimension must be positive, got %d and %d", n, dim)
	}

	x := tensor.Zeros[float32](tensor.Shape{n, dim}, backend)
	labels := make([]int, n)
	data := x.Data()
	for i := range n {
		label := i % 2
		labels[i] = label
		center := sep / 2
		if label == 0 {
			center = -center
		}
		for j := range dim {
			data[i*dim+j] = float32(center + src.NormFloat64())
		}
	}
	return x, labels, nil
}
