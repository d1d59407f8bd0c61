package config

import "time"

// Overrides carries command-line values that take precedence over the file.
// A nil field means "not set on the command line".
type Overrides struct {
	Seed          *uint64
	LogLevel      *string
	LogFormat     *string
	Hidden        *int
	DropoutP      *float64
	BroadcastDims []int
	Momentum      *float64
	Epsilon       *float64
	Unbiased      *bool
	Steps         *int
	BatchSize     *int
	Address       *string
	ReadTimeout   *time.Duration
}

// ApplyOverrides returns a copy of c with every set override applied,
// validated again.
func (c Config) ApplyOverrides(o Overrides) (Config, error) {
	set(&c.Seed, o.Seed)
	set(&c.LogLevel, o.LogLevel)
	set(&c.LogFormat, o.LogFormat)
	set(&c.Model.Hidden, o.Hidden)
	set(&c.Model.Dropout.P, o.DropoutP)
	if o.BroadcastDims != nil {
		c.Model.Dropout.BroadcastDims = append([]int(nil), o.BroadcastDims...)
	}
	set(&c.Model.BatchNorm.Momentum, o.Momentum)
	set(&c.Model.BatchNorm.Epsilon, o.Epsilon)
	set(&c.Model.BatchNorm.Unbiased, o.Unbiased)
	set(&c.Train.Steps, o.Steps)
	set(&c.Train.BatchSize, o.BatchSize)
	set(&c.Server.Address, o.Address)
	set(&c.Server.ReadTimeout, o.ReadTimeout)

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
