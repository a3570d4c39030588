package m

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrNoCachedInput is returned by Neuron.Train when no training forward pass
// has stored the neuron's input.
var ErrNoCachedInput = errors.New("neuron has no cached training input")

// Neuron holds one weight vector. Its weights and cached input are only ever
// written by the goroutine currently evaluating this neuron.
type Neuron struct {
	weights   *mat.VecDense
	index     int
	hidden    bool
	lastInput mat.Matrix
	activator Activator
}

func newNeuron(act Activator, weights []float64, index int, hidden bool) *Neuron {
	return &Neuron{
		weights:   mat.NewVecDense(len(weights), weights),
		index:     index,
		hidden:    hidden,
		activator: act,
	}
}

func (n *Neuron) Index() int   { return n.index }
func (n *Neuron) Hidden() bool { return n.hidden }
func (n *Neuron) Dim() int     { return n.weights.Len() }

// Weights returns a copy of the neuron's weight vector.
func (n *Neuron) Weights() []float64 {
	w := make([]float64, n.weights.Len())
	for i := range w {
		w[i] = n.weights.AtVec(i)
	}
	return w
}

// SetWeights overwrites the weight vector. The length can't change.
func (n *Neuron) SetWeights(w []float64) error {
	if len(w) != n.weights.Len() {
		return fmt.Errorf("%w: neuron %d has %d weights, got %d", ErrDimension, n.index, n.weights.Len(), len(w))
	}
	for i, v := range w {
		n.weights.SetVec(i, v)
	}
	return nil
}

// Activation returns f(input·w) for every sample row of input. In training
// mode the input is kept for the following Train call.
func (n *Neuron) Activation(input mat.Matrix, training bool) (*mat.VecDense, error) {
	sums, err := n.sums(input)
	if err != nil {
		return nil, err
	}
	if training {
		n.lastInput = input
	}
	return applyVec(n.activator.Activate, sums), nil
}

// Derivative returns f'(input·w) against the current weights.
func (n *Neuron) Derivative(input mat.Matrix) (*mat.VecDense, error) {
	sums, err := n.sums(input)
	if err != nil {
		return nil, err
	}
	return applyVec(n.activator.Derive, sums), nil
}

// Train computes the neuron's delta for the cached batch and applies the
// delta rule to its weights. The output neuron reads column Index() of
// targets (samples × outputs). A hidden neuron reads column Index() of
// superiorWeights (neurons above × this layer's size) and weighs it with
// superiorDeltas (neurons above × samples). It returns copies of the
// updated weights and of the delta, one entry per sample.
func (n *Neuron) Train(targets, superiorWeights, superiorDeltas mat.Matrix, learningRate float64) (*mat.VecDense, *mat.VecDense, error) {
	if n.lastInput == nil {
		return nil, nil, fmt.Errorf("training neuron %d: %w", n.index, ErrNoCachedInput)
	}
	samples, _ := n.lastInput.Dims()

	// derivative and error both use the cached input, never a fresh one
	derived, err := n.Derivative(n.lastInput)
	if err != nil {
		return nil, nil, err
	}

	var signal *mat.VecDense
	if !n.hidden {
		if targets == nil {
			return nil, nil, fmt.Errorf("%w: output neuron %d has no targets", ErrDimension, n.index)
		}
		tr, tc := targets.Dims()
		if tr != samples || n.index >= tc {
			return nil, nil, fmt.Errorf("%w: targets are %dx%d, output neuron %d trained on %d samples",
				ErrDimension, tr, tc, n.index, samples)
		}
		out, err := n.Activation(n.lastInput, false)
		if err != nil {
			return nil, nil, err
		}
		signal = subtractVec(mat.NewVecDense(samples, GetColumn(targets, n.index)), out)
	} else {
		if superiorWeights == nil || superiorDeltas == nil {
			return nil, nil, fmt.Errorf("%w: hidden neuron %d has no superior layer", ErrDimension, n.index)
		}
		wr, wc := superiorWeights.Dims()
		dr, dc := superiorDeltas.Dims()
		if wr != dr || dc != samples || n.index >= wc {
			return nil, nil, fmt.Errorf("%w: superior weights %dx%d and deltas %dx%d don't fit hidden neuron %d over %d samples",
				ErrDimension, wr, wc, dr, dc, n.index, samples)
		}
		column := mat.Col(nil, n.index, superiorWeights)
		signal = mat.NewVecDense(samples, nil)
		signal.MulVec(superiorDeltas.T(), mat.NewVecDense(len(column), column))
	}
	delta := multiplyVec(signal, derived)

	grad := mat.NewVecDense(n.weights.Len(), nil)
	grad.MulVec(n.lastInput.T(), delta)
	n.weights.AddScaledVec(n.weights, learningRate, grad)

	return mat.VecDenseCopyOf(n.weights), delta, nil
}

func (n *Neuron) clearCache() {
	n.lastInput = nil
}

func (n *Neuron) sums(input mat.Matrix) (*mat.VecDense, error) {
	r, c := input.Dims()
	if c != n.weights.Len() {
		return nil, fmt.Errorf("%w: neuron %d expects %d inputs, got %d", ErrDimension, n.index, n.weights.Len(), c)
	}
	if r == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrDimension)
	}
	return weightedSums(input, n.weights), nil
}

func (n *Neuron) String() string {
	return fmt.Sprintf("Neuron(index=%d, hidden=%t, w=%v)", n.index, n.hidden, n.Weights())
}
