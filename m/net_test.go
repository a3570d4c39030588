package m

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func newTestNetwork(t *testing.T, c Config) *Network {
	t.Helper()
	net, err := NewNetwork(c)
	require.NoError(t, err)
	return net
}

func allWeights(net *Network) [][][]float64 {
	w := make([][][]float64, net.LayerCount())
	for l, size := range net.Layout() {
		w[l] = make([][]float64, size)
		for i := range w[l] {
			w[l][i] = net.Neuron(l, i).Weights()
		}
	}
	return w
}

func xorBatch(t *testing.T) (*mat.Dense, *mat.Dense) {
	t.Helper()
	x, y, err := WithBias(XORLines(), 1).Matrices()
	require.NoError(t, err)
	return x, y
}

func TestNewNetworkShape(t *testing.T) {
	hidden := []int{4, 3}
	net := newTestNetwork(t, Config{
		InputNum:           5,
		HiddenLayerNeurons: hidden,
		OutputNum:          2,
		Activator:          Sigmoid{},
		Seed:               7,
	})

	assert.Equal(t, []int{4, 3, 2}, net.Layout())
	assert.Equal(t, []int{4, 3}, hidden, "caller's layout must not be modified")

	dims := []int{5, 4, 3}
	for l, size := range net.Layout() {
		for i := 0; i < size; i++ {
			n := net.Neuron(l, i)
			assert.Equal(t, dims[l], n.Dim(), "layer %d neuron %d", l, i)
			assert.Equal(t, i, n.Index())
			assert.Equal(t, l != 2, n.Hidden())
			for _, w := range n.Weights() {
				assert.True(t, w >= -1 && w <= 1, "initial weight %v out of [-1, 1]", w)
			}
		}
	}
}

func TestNewNetworkWithoutHiddenLayers(t *testing.T) {
	net := newTestNetwork(t, Config{InputNum: 3, OutputNum: 2, Activator: Linear{}, Seed: 1})
	assert.Equal(t, []int{2}, net.Layout())
	assert.False(t, net.Neuron(0, 0).Hidden())
	assert.Equal(t, 3, net.Neuron(0, 1).Dim())
}

func TestNewNetworkInvalidLayout(t *testing.T) {
	cases := map[string]Config{
		"zero hidden":     {InputNum: 2, HiddenLayerNeurons: []int{3, 0}, OutputNum: 1, Activator: Sigmoid{}},
		"negative hidden": {InputNum: 2, HiddenLayerNeurons: []int{-1}, OutputNum: 1, Activator: Sigmoid{}},
		"no outputs":      {InputNum: 2, OutputNum: 0, Activator: Sigmoid{}},
		"no inputs":       {InputNum: 0, OutputNum: 1, Activator: Sigmoid{}},
		"no activator":    {InputNum: 2, OutputNum: 1},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewNetwork(c)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidLayout))
		})
	}
}

func TestNewNetworkSamplerWidth(t *testing.T) {
	_, err := NewNetwork(Config{
		InputNum:  2,
		OutputNum: 1,
		Activator: Sigmoid{},
		Sampler:   func(int) []float64 { return []float64{1} },
	})
	require.ErrorIs(t, err, ErrDimension)
}

func TestNewNetworkSeedIsReproducible(t *testing.T) {
	c := Config{InputNum: 3, HiddenLayerNeurons: []int{2}, OutputNum: 1, Activator: Sigmoid{}, Seed: 99}
	a := newTestNetwork(t, c)
	b := newTestNetwork(t, c)
	assert.Equal(t, allWeights(a), allWeights(b))
}

func TestActivationIsPure(t *testing.T) {
	net := newTestNetwork(t, Config{
		InputNum:           3,
		HiddenLayerNeurons: []int{4},
		OutputNum:          2,
		Activator:          Tanh{},
		Seed:               3,
	})
	before := allWeights(net)
	input := mat.NewDense(2, 3, []float64{
		0.1, 0.2, 0.3,
		-1, 0, 1,
	})

	first, err := net.Activation(input, false)
	require.NoError(t, err)
	second, err := net.Activation(input, false)
	require.NoError(t, err)

	r, c := first.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
	assert.True(t, mat.Equal(first, second))
	assert.Equal(t, before, allWeights(net))
	for l, size := range net.Layout() {
		for i := 0; i < size; i++ {
			assert.Nil(t, net.Neuron(l, i).lastInput)
		}
	}
}

func TestActivationBatchMatchesSamples(t *testing.T) {
	net := newTestNetwork(t, Config{
		InputNum:           2,
		HiddenLayerNeurons: []int{3},
		OutputNum:          2,
		Activator:          Sigmoid{},
		Seed:               11,
	})
	samples := [][]float64{{0.5, -0.25}, {1, 2}, {-3, 0}}
	batch := mat.NewDense(3, 2, nil)
	for i, s := range samples {
		batch.SetRow(i, s)
	}

	out, err := net.Activation(batch, false)
	require.NoError(t, err)
	for i, s := range samples {
		single, err := net.Predict(s)
		require.NoError(t, err)
		assert.InDeltaSlice(t, single, mat.Row(nil, i, out), 1e-12)
	}
}

func TestActivationDimensionMismatch(t *testing.T) {
	net := newTestNetwork(t, Config{InputNum: 3, OutputNum: 1, Activator: Sigmoid{}, Seed: 1})
	_, err := net.Activation(mat.NewDense(1, 2, nil), false)
	require.ErrorIs(t, err, ErrDimension)

	_, err = net.Predict([]float64{1})
	require.ErrorIs(t, err, ErrDimension)
}

func TestTrainSingleLayerLinear(t *testing.T) {
	net := newTestNetwork(t, Config{InputNum: 2, OutputNum: 1, Activator: Linear{}, Seed: 1})
	require.NoError(t, net.Neuron(0, 0).SetWeights([]float64{0.5, -0.5}))

	inputs := mat.NewDense(2, 2, []float64{
		1, 0,
		0, 1,
	})
	targets := mat.NewDense(2, 1, []float64{1, 0})

	require.NoError(t, net.Train(inputs, targets, 0.1))
	assert.InDeltaSlice(t, []float64{0.55, -0.45}, net.Neuron(0, 0).Weights(), 1e-12)

	// error before the update was (0.5² + 0.5²) / 2, after it (0.45² + 0.45²) / 2
	loss, err := net.Error(inputs, targets)
	require.NoError(t, err)
	assert.InDelta(t, 0.2025, loss, 1e-12)
}

func TestTrainHiddenDeltaUsesOutputColumn(t *testing.T) {
	net := newTestNetwork(t, Config{
		InputNum:           2,
		HiddenLayerNeurons: []int{2},
		OutputNum:          1,
		Activator:          Linear{},
		Seed:               1,
	})
	require.NoError(t, net.Neuron(0, 0).SetWeights([]float64{0.1, 0.2}))
	require.NoError(t, net.Neuron(0, 1).SetWeights([]float64{-0.3, 0.4}))
	require.NoError(t, net.Neuron(1, 0).SetWeights([]float64{0.5, -0.6}))

	inputs := mat.NewDense(1, 2, []float64{1, 2})
	targets := mat.NewDense(1, 1, []float64{1})
	require.NoError(t, net.Train(inputs, targets, 0.1))

	// hidden outputs are 0.5 and 0.5, the output is -0.05, its delta 1.05
	outDelta := 1.05
	out := []float64{0.5 + 0.1*outDelta*0.5, -0.6 + 0.1*outDelta*0.5}
	assert.InDeltaSlice(t, out, net.Neuron(1, 0).Weights(), 1e-12)

	// hidden neuron i is driven by column i of the updated output weights
	d0 := outDelta * out[0]
	d1 := outDelta * out[1]
	assert.InDeltaSlice(t, []float64{0.1 + 0.1*d0*1, 0.2 + 0.1*d0*2}, net.Neuron(0, 0).Weights(), 1e-12)
	assert.InDeltaSlice(t, []float64{-0.3 + 0.1*d1*1, 0.4 + 0.1*d1*2}, net.Neuron(0, 1).Weights(), 1e-12)
}

func TestTrainMutatesOnlyWeights(t *testing.T) {
	net := newTestNetwork(t, Config{
		InputNum:           3,
		HiddenLayerNeurons: []int{3, 2},
		OutputNum:          1,
		Activator:          Sigmoid{},
		Seed:               5,
	})
	x, y := xorBatch(t)
	before := allWeights(net)

	require.NoError(t, net.Train(x, y, 0.5))

	assert.Equal(t, []int{3, 2, 1}, net.Layout())
	assert.NotEqual(t, before, allWeights(net))
	for l, size := range net.Layout() {
		for i := 0; i < size; i++ {
			n := net.Neuron(l, i)
			assert.Equal(t, i, n.Index())
			assert.Equal(t, len(before[l][i]), n.Dim())
			assert.Nil(t, n.lastInput, "cache must be cleared once Train returns")
		}
	}
}

func TestTrainRejectsMismatchedBatch(t *testing.T) {
	net := newTestNetwork(t, Config{InputNum: 2, OutputNum: 1, Activator: Sigmoid{}, Seed: 1})
	before := allWeights(net)

	err := net.Train(mat.NewDense(2, 2, nil), mat.NewDense(3, 1, nil), 0.1)
	require.ErrorIs(t, err, ErrDimension)
	err = net.Train(mat.NewDense(2, 2, nil), mat.NewDense(2, 2, nil), 0.1)
	require.ErrorIs(t, err, ErrDimension)
	err = net.Train(mat.NewDense(2, 3, nil), mat.NewDense(2, 1, nil), 0.1)
	require.ErrorIs(t, err, ErrDimension)
	_, err = net.Error(mat.NewDense(2, 2, nil), nil)
	require.ErrorIs(t, err, ErrDimension)

	assert.Equal(t, before, allWeights(net))
}

func TestSequentialAndParallelTrainingAgree(t *testing.T) {
	x, y := xorBatch(t)
	c := Config{
		InputNum:           3,
		HiddenLayerNeurons: []int{4, 3},
		OutputNum:          1,
		Activator:          Sigmoid{},
		Seed:               21,
	}

	results := map[int][][][]float64{}
	for _, workers := range []int{0, 1, 2} {
		c.Workers = workers
		net := newTestNetwork(t, c)
		for epoch := 0; epoch < 50; epoch++ {
			require.NoError(t, net.Train(x, y, 0.5))
		}
		results[workers] = allWeights(net)
	}
	assert.Equal(t, results[1], results[0])
	assert.Equal(t, results[1], results[2])
}

func TestFitReportsEveryEpoch(t *testing.T) {
	x, y := xorBatch(t)
	net := newTestNetwork(t, Config{
		InputNum:           3,
		HiddenLayerNeurons: []int{4},
		OutputNum:          1,
		Activator:          Sigmoid{},
		LearningRate:       0.5,
		Seed:               2,
	})

	var losses []float64
	require.NoError(t, net.Fit(x, y, 300, func(epoch int, loss float64) {
		assert.Equal(t, len(losses)+1, epoch)
		losses = append(losses, loss)
	}))
	require.Len(t, losses, 300)
	assert.Less(t, losses[len(losses)-1], losses[0])
}

func TestXORConverges(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping convergence run in short mode")
	}
	// neurons have no bias, so the batch carries a constant input column
	x, y := xorBatch(t)
	seeds := []uint64{1, 2, 3, 4, 5}
	converged := 0
	for _, seed := range seeds {
		net := newTestNetwork(t, Config{
			Name:               "xor",
			InputNum:           3,
			HiddenLayerNeurons: []int{4},
			OutputNum:          1,
			Activator:          Sigmoid{},
			LearningRate:       0.5,
			Seed:               seed,
		})
		require.NoError(t, net.Fit(x, y, 5000, nil))
		loss, err := net.Error(x, y)
		require.NoError(t, err)
		require.False(t, math.IsNaN(loss))
		if loss < 0.05 {
			converged++
		}
	}
	assert.GreaterOrEqual(t, converged, len(seeds)-1, "XOR converged for %d of %d seeds", converged, len(seeds))
}

func TestLinearRegressionConverges(t *testing.T) {
	// y = 2a - b is exactly representable by a single linear neuron
	inputs := mat.NewDense(4, 2, []float64{
		1, 0,
		0, 1,
		1, 1,
		2, 1,
	})
	targets := mat.NewDense(4, 1, []float64{2, -1, 1, 3})
	net := newTestNetwork(t, Config{InputNum: 2, OutputNum: 1, Activator: Linear{}, LearningRate: 0.05, Seed: 8})

	require.NoError(t, net.Fit(inputs, targets, 2000, nil))
	assert.True(t, floats.EqualApprox([]float64{2, -1}, net.Neuron(0, 0).Weights(), 1e-6),
		"weights %v", net.Neuron(0, 0).Weights())
}

func TestNetworkString(t *testing.T) {
	net := newTestNetwork(t, Config{Name: "tiny", InputNum: 1, OutputNum: 1, Activator: Sigmoid{}, Seed: 1})
	assert.Contains(t, net.String(), "tiny")
	assert.Contains(t, net.String(), "sigmoid")
	assert.Contains(t, net.String(), "Neuron(index=0")
}
