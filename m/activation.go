package m

import (
	"fmt"
	"math"
)

// Activator is the activation pair shared by every neuron of a network.
// Both methods receive the weighted sum of a neuron's inputs.
type Activator interface {
	Activate(sum float64) float64
	Derive(sum float64) float64
	fmt.Stringer
}

var ActivatorLookup = map[string]Activator{
	"sigmoid": Sigmoid{},
	"tanh":    Tanh{},
	"relu":    ReLU{},
	"linear":  Linear{},
}

type Sigmoid struct{}

func (s Sigmoid) Activate(sum float64) float64 {
	return 1.0 / (1.0 + math.Exp(-sum))
}

func (s Sigmoid) Derive(sum float64) float64 {
	a := s.Activate(sum)
	return a * (1 - a)
}

func (s Sigmoid) String() string {
	return "sigmoid"
}

type Tanh struct{}

func (t Tanh) Activate(sum float64) float64 {
	return math.Tanh(sum)
}

func (t Tanh) Derive(sum float64) float64 {
	return 1.0 - (math.Tanh(sum) * math.Tanh(sum))
}

func (t Tanh) String() string {
	return "tanh"
}

type ReLU struct{} // leaky, so hidden neurons never stop learning entirely

func (r ReLU) Activate(sum float64) float64 {
	if sum < 0 {
		return 0.0001 * sum
	}
	return sum
}

func (r ReLU) Derive(sum float64) float64 {
	if sum < 0 {
		return 0.0001
	}
	return 1
}

func (r ReLU) String() string {
	return "relu"
}

// Linear is the identity; with no hidden layers it reduces training to the
// single-layer delta rule.
type Linear struct{}

func (Linear) Activate(sum float64) float64 { return sum }
func (Linear) Derive(float64) float64       { return 1 }
func (Linear) String() string               { return "linear" }

// ActivatorFuncs adapts a caller-supplied function pair. F and DF must be
// paired consistently; nothing checks that DF is the derivative of F.
type ActivatorFuncs struct {
	Name string
	F    func(float64) float64
	DF   func(float64) float64
}

func (a ActivatorFuncs) Activate(sum float64) float64 { return a.F(sum) }
func (a ActivatorFuncs) Derive(sum float64) float64   { return a.DF(sum) }

func (a ActivatorFuncs) String() string {
	if a.Name == "" {
		return "custom"
	}
	return a.Name
}

func validActivator(a Activator) bool {
	if a == nil {
		return false
	}
	if f, ok := a.(ActivatorFuncs); ok {
		return f.F != nil && f.DF != nil
	}
	return true
}
