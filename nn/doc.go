// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the mode-dependent neural network modules.
//
// # Overview
//
// This package contains:
//   - Dropout: inverted dropout with an explicit random stream
//   - BatchNorm: batch normalization with running statistics
//   - Linear, ReLU, Sigmoid, Tanh and Sequential for composing models
//   - Mode propagation: SetTrainingMode and SetEvaluationMode
//   - MSELoss, CrossEntropyLoss and Accuracy for scoring outputs
//   - Checkpoints: state dicts saved with the model mode
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/stochnorm/backend/cpu"
//	    "github.com/born-ml/stochnorm/nn"
//	    "github.com/born-ml/stochnorm/rng"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    streams := rng.NewRegistry(42)
//
//	    bn, _ := nn.NewBatchNorm(nn.DefaultBatchNormConfig(128), backend)
//	    drop, _ := nn.NewDropout(nn.DropoutConfig{P: 0.1}, streams.Stream("dropout"), backend)
//	    model := nn.NewSequential[*cpu.Backend](
//	        nn.NewLinear(784, 128, streams.Stream("init"), backend),
//	        bn,
//	        drop,
//	        nn.NewReLU[*cpu.Backend](),
//	    )
//
//	    out, err := model.Forward(x)        // training: masks drawn, statistics updated
//	    nn.SetEvaluationMode(model)
//	    out, err = model.Forward(x)         // evaluation: deterministic
//	}
//
// # Modes
//
// Every module starts in Training mode. A container owns the mode of the
// modules added to it, so SetMode on any module of a tree switches the whole
// tree and a forward pass never mixes modes. A module belongs to at most one
// container; adding it to a second one panics. Apply runs a module in an
// explicit mode without changing the stored one.
package nn
