package utils

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/julian-vuoso/perceptron-solver/m"
)

// Config holds training configuration
type Config struct {
	Architecture []int // hidden layer sizes; empty for a single-layer network
	DataPath     string
	InputNum     int
	OutputNum    int
	Epochs       int
	LearningRate float64
	Activator    string
	Workers      int
	Bias         bool
}

// ParseArchitecture parses a space or comma separated list of hidden layer
// sizes. An empty string means no hidden layers.
func ParseArchitecture(archStr string) ([]int, error) {
	archParts := strings.FieldsFunc(archStr, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	arch := make([]int, len(archParts))
	for i, s := range archParts {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		arch[i] = n
	}
	return arch, nil
}

// ValidateConfig validates training configuration
func ValidateConfig(config *Config) error {
	for i, n := range config.Architecture {
		if n <= 0 {
			return fmt.Errorf("hidden layer %d must have a positive size, got %d", i, n)
		}
	}

	if config.InputNum <= 0 {
		return fmt.Errorf("input dimension must be positive")
	}

	if config.OutputNum <= 0 {
		return fmt.Errorf("output dimension must be positive")
	}

	if config.Epochs <= 0 {
		return fmt.Errorf("epochs must be positive")
	}

	if config.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive")
	}

	if config.Workers < 0 {
		return fmt.Errorf("workers can't be negative")
	}

	if _, ok := m.ActivatorLookup[config.Activator]; !ok {
		return fmt.Errorf("unknown activation %q", config.Activator)
	}

	return nil
}

// NetworkConfig converts a validated Config into the network's own Config.
// With Bias set the network gets one extra constant input.
func (c *Config) NetworkConfig(name string, seed uint64) m.Config {
	inputNum := c.InputNum
	if c.Bias {
		inputNum++
	}
	return m.Config{
		Name:               name,
		InputNum:           inputNum,
		HiddenLayerNeurons: c.Architecture,
		OutputNum:          c.OutputNum,
		Activator:          m.ActivatorLookup[c.Activator],
		LearningRate:       c.LearningRate,
		Epochs:             c.Epochs,
		Workers:            c.Workers,
		Seed:               seed,
	}
}
