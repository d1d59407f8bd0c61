// Package config loads and validates the YAML run configuration.
//
// A configuration file looks like:
//
//	seed: 7
//	log_level: info
//	model:
//	  inputs: 8
//	  hidden: 16
//	  outputs: 1
//	  dropout:
//	    p: 0.5
//	  batchnorm:
//	    momentum: 0.99
//	    epsilon: 1e-5
//	train:
//	  steps: 20
//	  batch_size: 32
//
// Fields missing from the file keep the values from Default.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/stochnorm/internal/logger"
	"github.com/born-ml/stochnorm/internal/nn"
)

// Config is the complete run configuration.
type Config struct {
	Seed      uint64       `yaml:"seed"`
	LogLevel  string       `yaml:"log_level"`
	LogFormat string       `yaml:"log_format"`
	Model     ModelConfig  `yaml:"model"`
	Train     TrainConfig  `yaml:"train"`
	Data      DataConfig   `yaml:"data"`
	Server    ServerConfig `yaml:"server"`
}

// ModelConfig describes linear -> batchnorm -> dropout -> relu -> linear.
type ModelConfig struct {
	Inputs    int             `yaml:"inputs"`
	Hidden    int             `yaml:"hidden"`
	Outputs   int             `yaml:"outputs"`
	Dropout   DropoutConfig   `yaml:"dropout"`
	BatchNorm BatchNormConfig `yaml:"batchnorm"`
}

// DropoutConfig holds the dropout layer settings.
type DropoutConfig struct {
	P             float64 `yaml:"p"`
	BroadcastDims []int   `yaml:"broadcast_dims"`
}

// BatchNormConfig holds the batch normalization settings.
type BatchNormConfig struct {
	Momentum float64 `yaml:"momentum"`
	Epsilon  float64 `yaml:"epsilon"`
	Unbiased bool    `yaml:"unbiased"`
}

// TrainConfig controls the training-mode passes.
type TrainConfig struct {
	Steps     int `yaml:"steps"`
	BatchSize int `yaml:"batch_size"`
}

// DataConfig controls the synthetic dataset.
type DataConfig struct {
	Noise float64 `yaml:"noise"`
}

// ServerConfig controls the HTTP inspection server.
type ServerConfig struct {
	Address     string        `yaml:"address"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Seed:      0,
		LogLevel:  "info",
		LogFormat: logger.FormatText,
		Model: ModelConfig{
			Inputs:  8,
			Hidden:  16,
			Outputs: 1,
			Dropout: DropoutConfig{P: 0.5},
			BatchNorm: BatchNormConfig{
				Momentum: 0.99,
				Epsilon:  1e-5,
			},
		},
		Train: TrainConfig{
			Steps:     20,
			BatchSize: 32,
		},
		Data: DataConfig{Noise: 0.01},
		Server: ServerConfig{
			Address:     "127.0.0.1:8080",
			ReadTimeout: 30 * time.Second,
		},
	}
}

// Load reads and validates the configuration file at path.
func Load(path string) (Config, error) {
	//nolint:gosec // G304: the config path is supplied by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every problem in the configuration at once.
func (c Config) Validate() error {
	var errs []error

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != logger.FormatText && c.LogFormat != logger.FormatJSON {
		errs = append(errs, fmt.Errorf("log_format must be %q or %q, got %q", logger.FormatText, logger.FormatJSON, c.LogFormat))
	}
	if c.Model.Inputs <= 0 || c.Model.Hidden <= 0 || c.Model.Outputs <= 0 {
		errs = append(errs, fmt.Errorf("model sizes must be positive, got inputs=%d hidden=%d outputs=%d",
			c.Model.Inputs, c.Model.Hidden, c.Model.Outputs))
	}
	if err := c.DropoutConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("model.dropout: %w", err))
	}
	if err := c.BatchNormConfig(max(c.Model.Hidden, 1)).Validate(); err != nil {
		errs = append(errs, fmt.Errorf("model.batchnorm: %w", err))
	}
	if c.Train.Steps <= 0 {
		errs = append(errs, fmt.Errorf("train.steps must be positive, got %d", c.Train.Steps))
	}
	minBatch := 1
	if c.Model.BatchNorm.Unbiased {
		minBatch = 2
	}
	if c.Train.BatchSize < minBatch {
		errs = append(errs, fmt.Errorf("train.batch_size must be at least %d, got %d", minBatch, c.Train.BatchSize))
	}
	if math.IsNaN(c.Data.Noise) || c.Data.Noise < 0 {
		errs = append(errs, fmt.Errorf("data.noise must be non-negative, got %g", c.Data.Noise))
	}
	if c.Server.Address == "" {
		errs = append(errs, errors.New("server.address must not be empty"))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must not be negative, got %s", c.Server.ReadTimeout))
	}

	return errors.Join(errs...)
}

// DropoutConfig returns the dropout layer configuration.
func (c Config) DropoutConfig() nn.DropoutConfig {
	return nn.DropoutConfig{
		P:             c.Model.Dropout.P,
		BroadcastDims: append([]int(nil), c.Model.Dropout.BroadcastDims...),
	}
}

// BatchNormConfig returns the batch normalization configuration for
// numFeatures features on the last axis.
func (c Config) BatchNormConfig(numFeatures int) nn.BatchNormConfig {
	cfg := nn.DefaultBatchNormConfig(numFeatures)
	cfg.Momentum = c.Model.BatchNorm.Momentum
	cfg.Epsilon = c.Model.BatchNorm.Epsilon
	if c.Model.BatchNorm.Unbiased {
		cfg.Variance = nn.UnbiasedVariance
	}
	return cfg
}
