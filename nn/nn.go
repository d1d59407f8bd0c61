// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/stochnorm/internal/nn"
	"github.com/born-ml/stochnorm/internal/rng"
	"github.com/born-ml/stochnorm/internal/tensor"
)

// Module interface defines the common interface for all neural network modules.
type Module[B tensor.Backend] = nn.Module[B]

// Container is implemented by modules that hold sub-modules.
type Container[B tensor.Backend] = nn.Container[B]

// Stochastic is implemented by modules that draw from a random stream.
type Stochastic = nn.Stochastic

// Parameter represents a trainable parameter in a neural network.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter creates a new parameter with the given name and tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// Errors returned by module constructors and forward passes.
var (
	ErrInvalidConfig = nn.ErrInvalidConfig
	ErrInvalidShape  = nn.ErrInvalidShape
)

// Mode selects training or evaluation behavior.
type Mode = nn.Mode

// Module modes.
const (
	Training   Mode = nn.Training
	Evaluation Mode = nn.Evaluation
)

// ParseMode parses "training" or "evaluation" (or "train", "eval").
func ParseMode(s string) (Mode, error) {
	return nn.ParseMode(s)
}

// SetMode switches the tree m belongs to into mode.
func SetMode[B tensor.Backend](m Module[B], mode Mode) {
	nn.SetMode(m, mode)
}

// SetTrainingMode switches m and every nested module to Training.
func SetTrainingMode[B tensor.Backend](m Module[B]) {
	nn.SetTrainingMode(m)
}

// SetEvaluationMode switches m and every nested module to Evaluation.
func SetEvaluationMode[B tensor.Backend](m Module[B]) {
	nn.SetEvaluationMode(m)
}

// Walk calls fn for m and then, depth-first, for every nested module.
func Walk[B tensor.Backend](m Module[B], fn func(Module[B])) {
	nn.Walk(m, fn)
}

// Modes returns the distinct modes reported in the tree rooted at m.
func Modes[B tensor.Backend](m Module[B]) []Mode {
	return nn.Modes(m)
}

// DropoutConfig configures a Dropout layer.
type DropoutConfig = nn.DropoutConfig

// Dropout zeroes elements with probability P during training and scales the
// kept ones by 1/(1-P). In evaluation mode it returns its input unchanged.
type Dropout[B tensor.Backend] = nn.Dropout[B]

// NewDropout creates a dropout layer drawing masks from stream.
//
// Example:
//
//	drop, err := nn.NewDropout(nn.DropoutConfig{P: 0.5}, rng.New(0, "dropout"), backend)
func NewDropout[B tensor.Backend](cfg DropoutConfig, stream *rng.Stream, backend B) (*Dropout[B], error) {
	return nn.NewDropout(cfg, stream, backend)
}

// VarianceEstimator selects the batch variance normalization.
type VarianceEstimator = nn.VarianceEstimator

// Variance estimators.
const (
	BiasedVariance   VarianceEstimator = nn.BiasedVariance
	UnbiasedVariance VarianceEstimator = nn.UnbiasedVariance
)

// BatchNormConfig configures a BatchNorm layer.
type BatchNormConfig = nn.BatchNormConfig

// DefaultBatchNormConfig returns the configuration for numFeatures features on
// the last axis with momentum 0.99 and epsilon 1e-5.
func DefaultBatchNormConfig(numFeatures int) BatchNormConfig {
	return nn.DefaultBatchNormConfig(numFeatures)
}

// BatchNorm normalizes with batch statistics in training mode and with its
// running statistics in evaluation mode.
type BatchNorm[B tensor.Backend] = nn.BatchNorm[B]

// NewBatchNorm creates a batch normalization layer.
func NewBatchNorm[B tensor.Backend](cfg BatchNormConfig, backend B) (*BatchNorm[B], error) {
	return nn.NewBatchNorm(cfg, backend)
}

// NewBatchNormFromState creates a batch normalization layer and loads stateDict into it.
func NewBatchNormFromState[B tensor.Backend](cfg BatchNormConfig, stateDict map[string]*tensor.RawTensor, backend B) (*BatchNorm[B], error) {
	return nn.NewBatchNormFromState(cfg, stateDict, backend)
}

// Linear represents a fully connected layer: y = x @ W.T + b.
type Linear[B tensor.Backend] = nn.Linear[B]

// NewLinear creates a linear layer with Xavier weights drawn from src.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, src rng.Source, backend B) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, src, backend)
}

// ReLU applies max(0, x).
type ReLU[B tensor.Backend] = nn.ReLU[B]

// NewReLU creates a ReLU activation.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return nn.NewReLU[B]()
}

// Sigmoid applies 1 / (1 + exp(-x)).
type Sigmoid[B tensor.Backend] = nn.Sigmoid[B]

// NewSigmoid creates a Sigmoid activation.
func NewSigmoid[B tensor.Backend]() *Sigmoid[B] {
	return nn.NewSigmoid[B]()
}

// Tanh applies the hyperbolic tangent.
type Tanh[B tensor.Backend] = nn.Tanh[B]

// NewTanh creates a Tanh activation.
func NewTanh[B tensor.Backend]() *Tanh[B] {
	return nn.NewTanh[B]()
}

// Sequential chains modules and runs all of them in one mode.
type Sequential[B tensor.Backend] = nn.Sequential[B]

// NewSequential creates a container that runs modules in order.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return nn.NewSequential(modules...)
}

// MSELoss computes mean squared error.
type MSELoss[B tensor.Backend] = nn.MSELoss[B]

// NewMSELoss creates a new MSE loss function.
func NewMSELoss[B tensor.Backend](backend B) *MSELoss[B] {
	return nn.NewMSELoss(backend)
}

// CrossEntropyLoss computes softmax cross-entropy over class logits.
type CrossEntropyLoss[B tensor.Backend] = nn.CrossEntropyLoss[B]

// NewCrossEntropyLoss creates a new cross-entropy loss function.
func NewCrossEntropyLoss[B tensor.Backend](backend B) *CrossEntropyLoss[B] {
	return nn.NewCrossEntropyLoss(backend)
}

// Argmax returns the predicted class of every row of logits.
func Argmax[B tensor.Backend](logits *tensor.Tensor[float32, B]) ([]int, error) {
	return nn.Argmax(logits)
}

// Accuracy returns the fraction of rows whose argmax equals the target class.
func Accuracy[B tensor.Backend](logits *tensor.Tensor[float32, B], targets []int) (float32, error) {
	return nn.Accuracy(logits, targets)
}

// Xavier returns Xavier/Glorot uniform weights drawn from src.
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, src rng.Source, backend B) *tensor.Tensor[float32, B] {
	return nn.Xavier(fanIn, fanOut, shape, src, backend)
}

// Zeros returns a zero-initialized float32 tensor.
func Zeros[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return nn.Zeros(shape, backend)
}

// Ones returns a one-initialized float32 tensor.
func Ones[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return nn.Ones(shape, backend)
}

// Checkpoint bundles a model with metadata for saving.
type Checkpoint[B tensor.Backend] = nn.Checkpoint[B]

// LoadCheckpoint restores model, including its mode, from path.
func LoadCheckpoint[B tensor.Backend](path string, model Module[B]) (*Checkpoint[B], error) {
	return nn.LoadCheckpoint(path, model)
}
