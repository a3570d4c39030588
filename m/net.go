package m

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidLayout reports a network that can't be built from its Config.
	ErrInvalidLayout = errors.New("invalid network layout")
	// ErrDimension reports a batch or weight whose width doesn't match a layer.
	ErrDimension = errors.New("dimension mismatch")
)

type Config struct {
	Name               string
	InputNum           int
	HiddenLayerNeurons []int // sizes of the hidden layers, input side first
	OutputNum          int
	Activator          Activator
	LearningRate       float64
	Epochs             int
	Workers            int           // 0: one goroutine per neuron, 1: sequential
	Seed               uint64        // seeds the default sampler, 0 picks one from the clock
	Sampler            WeightSampler // defaults to U[-1, 1]
}

// Network is a fully connected feed-forward network. Only weight values
// change after construction.
type Network struct {
	config Config
	layers [][]*Neuron
}

func NewNetwork(c Config) (*Network, error) {
	if c.InputNum <= 0 {
		return nil, fmt.Errorf("%w: input dimension %d", ErrInvalidLayout, c.InputNum)
	}
	if c.OutputNum <= 0 {
		return nil, fmt.Errorf("%w: output dimension %d", ErrInvalidLayout, c.OutputNum)
	}
	if !validActivator(c.Activator) {
		return nil, fmt.Errorf("%w: missing activation function pair", ErrInvalidLayout)
	}

	layout := make([]int, 0, len(c.HiddenLayerNeurons)+1)
	for i, size := range c.HiddenLayerNeurons {
		if size <= 0 {
			return nil, fmt.Errorf("%w: hidden layer %d has %d neurons", ErrInvalidLayout, i, size)
		}
		layout = append(layout, size)
	}
	layout = append(layout, c.OutputNum)
	c.HiddenLayerNeurons = append([]int(nil), c.HiddenLayerNeurons...)

	sampler := c.Sampler
	if sampler == nil {
		sampler = UniformSampler(-1, 1, c.Seed)
	}

	net := &Network{
		config: c,
		layers: make([][]*Neuron, len(layout)),
	}
	lastLayer := len(layout) - 1
	for l, size := range layout {
		dim := c.InputNum
		if l > 0 {
			dim = layout[l-1]
		}
		net.layers[l] = make([]*Neuron, size)
		for i := range net.layers[l] {
			w := sampler(dim)
			if len(w) != dim {
				return nil, fmt.Errorf("%w: sampler returned %d weights for %d inputs", ErrDimension, len(w), dim)
			}
			net.layers[l][i] = newNeuron(c.Activator, w, i, l != lastLayer)
		}
	}

	return net, nil
}

func (net *Network) lastIndex() int {
	return len(net.layers) - 1
}

func (net *Network) Config() Config { return net.config }
func (net *Network) InputNum() int  { return net.config.InputNum }
func (net *Network) LayerCount() int {
	return len(net.layers)
}

// Layout returns the neuron count of every layer, output layer last.
func (net *Network) Layout() []int {
	layout := make([]int, len(net.layers))
	for i, layer := range net.layers {
		layout[i] = len(layer)
	}
	return layout
}

func (net *Network) Neuron(layer, index int) *Neuron {
	return net.layers[layer][index]
}

// Activation propagates input (samples × InputNum) through every layer and
// returns the output layer's activations (samples × OutputNum). Neurons of
// a layer run concurrently; a layer starts only after the previous one has
// finished. In training mode each neuron keeps the input it was given.
func (net *Network) Activation(input mat.Matrix, training bool) (*mat.Dense, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: missing input", ErrDimension)
	}
	if _, c := input.Dims(); c != net.config.InputNum {
		return nil, fmt.Errorf("%w: network expects %d inputs, got %d", ErrDimension, net.config.InputNum, c)
	}

	activationValues := input
	var out *mat.Dense
	for l, layer := range net.layers {
		results := make([]*mat.VecDense, len(layer))
		values := activationValues
		err := forEachNeuron(len(layer), net.config.Workers, func(i int) error {
			r, err := layer[i].Activation(values, training)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("activating layer %d: %w", l, err)
		}
		out = stackColumns(results)
		activationValues = out
	}

	return out, nil
}

// Train runs one forward pass over the whole batch and then propagates the
// deltas from the output layer down, updating every weight once.
func (net *Network) Train(inputs, targets mat.Matrix, learningRate float64) error {
	if err := net.checkBatch(inputs, targets); err != nil {
		return err
	}
	defer net.clearCaches()

	if _, err := net.Activation(inputs, true); err != nil {
		return fmt.Errorf("training forward pass: %w", err)
	}

	// superior carries the updated weights and deltas of the layer above
	var superior struct {
		weights mat.Matrix
		deltas  mat.Matrix
	}
	for l := net.lastIndex(); l >= 0; l-- {
		layer := net.layers[l]
		weights := make([]*mat.VecDense, len(layer))
		deltas := make([]*mat.VecDense, len(layer))
		supW, supD := superior.weights, superior.deltas
		err := forEachNeuron(len(layer), net.config.Workers, func(i int) error {
			w, d, err := layer[i].Train(targets, supW, supD, learningRate)
			if err != nil {
				return err
			}
			weights[i], deltas[i] = w, d
			return nil
		})
		if err != nil {
			return fmt.Errorf("training layer %d: %w", l, err)
		}
		superior.weights = stackRows(weights)
		superior.deltas = stackRows(deltas)
	}

	return nil
}

// Fit calls Train once per epoch over the same batch. report, when not nil,
// receives the error measured after each epoch.
func (net *Network) Fit(inputs, targets mat.Matrix, epochs int, report func(epoch int, loss float64)) error {
	for epoch := 1; epoch <= epochs; epoch++ {
		if err := net.Train(inputs, targets, net.config.LearningRate); err != nil {
			return fmt.Errorf("epoch %d: %w", epoch, err)
		}
		if report == nil {
			continue
		}
		loss, err := net.Error(inputs, targets)
		if err != nil {
			return fmt.Errorf("epoch %d: %w", epoch, err)
		}
		report(epoch, loss)
	}
	return nil
}

// Error is half the sum of squared differences between targets and the
// network's output over the whole batch.
func (net *Network) Error(inputs, targets mat.Matrix) (float64, error) {
	if err := net.checkBatch(inputs, targets); err != nil {
		return 0, err
	}
	out, err := net.Activation(inputs, false)
	if err != nil {
		return 0, err
	}
	diff := mat.DenseCopyOf(targets)
	diff.Sub(diff, out)
	diff.MulElem(diff, diff)
	return mat.Sum(diff) / 2, nil
}

// Predict activates the network for a single sample.
func (net *Network) Predict(sample []float64) ([]float64, error) {
	if len(sample) != net.config.InputNum {
		return nil, fmt.Errorf("%w: network expects %d inputs, got %d", ErrDimension, net.config.InputNum, len(sample))
	}
	out, err := net.Activation(mat.NewDense(1, len(sample), sample), false)
	if err != nil {
		return nil, err
	}
	return mat.Row(nil, 0, out), nil
}

func (net *Network) checkBatch(inputs, targets mat.Matrix) error {
	if inputs == nil || targets == nil {
		return fmt.Errorf("%w: missing inputs or targets", ErrDimension)
	}
	ir, ic := inputs.Dims()
	tr, tc := targets.Dims()
	if ic != net.config.InputNum {
		return fmt.Errorf("%w: network expects %d inputs, got %d", ErrDimension, net.config.InputNum, ic)
	}
	if tc != net.config.OutputNum {
		return fmt.Errorf("%w: network produces %d outputs, targets have %d", ErrDimension, net.config.OutputNum, tc)
	}
	if ir != tr {
		return fmt.Errorf("%w: %d input samples but %d target samples", ErrDimension, ir, tr)
	}
	return nil
}

func (net *Network) clearCaches() {
	for _, layer := range net.layers {
		for _, n := range layer {
			n.clearCache()
		}
	}
}

func (net *Network) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Network(%s, %s, layout=%v)", net.config.Name, net.config.Activator, net.Layout())
	for l, layer := range net.layers {
		fmt.Fprintf(&b, "\n  layer %d:", l)
		for _, n := range layer {
			fmt.Fprintf(&b, " %v", n)
		}
	}
	return b.String()
}
