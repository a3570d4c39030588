// perceptron-train: trains a layered perceptron network on a CSV dataset or
// the built-in XOR table and reports the error as it goes.
//
// Usage:
//
//	perceptron-train --arch="4" --act=sigmoid --epochs=5000 --lr=0.5
//	perceptron-train --data=samples.csv --inputs=3 --outputs=1 --arch="5 3"
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/julian-vuoso/perceptron-solver/m"
	"github.com/julian-vuoso/perceptron-solver/utils"
)

var (
	dataPath     = flag.String("data", "", "CSV dataset (inputs then targets per line); empty trains on XOR")
	inputs       = flag.Int("inputs", 2, "Number of input columns in the dataset")
	outputs      = flag.Int("outputs", 1, "Number of target columns in the dataset")
	arch         = flag.String("arch", "4", "Hidden layer sizes, e.g. \"5 3\"; empty for a single layer")
	activation   = flag.String("act", "sigmoid", "Activation: sigmoid, tanh, relu, linear")
	epochs       = flag.Int("epochs", 5000, "Number of training epochs")
	learningRate = flag.Float64("lr", 0.5, "Learning rate")
	workers      = flag.Int("workers", 0, "Concurrent neurons per layer (0: one goroutine per neuron, 1: sequential)")
	bias         = flag.Bool("bias", true, "Append a constant bias input to every sample")
	normalize    = flag.Bool("normalize", false, "Z-score normalize the input columns")
	seed         = flag.Uint64("seed", 42, "Random seed for the initial weights")
	report       = flag.Int("report", 500, "Print the error every N epochs")
	target       = flag.Float64("target", 0, "Stop once the error drops below this value")
	verbose      = flag.Bool("verbose", true, "Verbose output")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose

	hidden, err := utils.ParseArchitecture(*arch)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing architecture: %v\n", err)
		os.Exit(1)
	}
	config := &utils.Config{
		Architecture: hidden,
		DataPath:     *dataPath,
		InputNum:     *inputs,
		OutputNum:    *outputs,
		Epochs:       *epochs,
		LearningRate: *learningRate,
		Activator:    *activation,
		Workers:      *workers,
		Bias:         *bias,
	}
	if err := utils.ValidateConfig(config); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintln(utils.Output, "╔══════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(utils.Output, "║                    Perceptron Trainer                        ║")
	fmt.Fprintln(utils.Output, "╚══════════════════════════════════════════════════════════════╝")
	fmt.Fprintf(utils.Output, "\nConfiguration:\n")
	fmt.Fprintf(utils.Output, "  Dataset:       %s\n", datasetName(config.DataPath))
	fmt.Fprintf(utils.Output, "  Hidden:        %v\n", config.Architecture)
	fmt.Fprintf(utils.Output, "  Activation:    %s\n", config.Activator)
	fmt.Fprintf(utils.Output, "  Epochs:        %d\n", config.Epochs)
	fmt.Fprintf(utils.Output, "  Learning Rate: %.4f\n", config.LearningRate)
	fmt.Fprintf(utils.Output, "  Bias input:    %v\n", config.Bias)
	fmt.Fprintln(utils.Output)

	stats := &utils.TimingStats{}
	totalStart := time.Now()

	start := time.Now()
	lines, err := loadLines(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading data: %v\n", err)
		os.Exit(1)
	}
	if *normalize {
		lines = m.NormalizeLines(lines, m.CalculateStdDev(lines), m.CalculateMean(lines))
	}
	if config.Bias {
		lines = m.WithBias(lines, 1)
	}
	x, y, err := lines.Matrices()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building batch: %v\n", err)
		os.Exit(1)
	}
	stats.DataLoadingTime = time.Since(start)
	fmt.Fprintf(utils.Output, "Loaded %d samples\n", len(lines))

	start = time.Now()
	net, err := m.NewNetwork(config.NetworkConfig(datasetName(config.DataPath), *seed))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building network: %v\n", err)
		os.Exit(1)
	}
	stats.ModelInitTime = time.Since(start)
	fmt.Fprintf(utils.Output, "Network layout: %v\n", net.Layout())

	fmt.Fprintln(utils.Output, "\nStarting training...")
	completed := 0
	var loss float64
	for epoch := 1; epoch <= config.Epochs; epoch++ {
		start = time.Now()
		if err := net.Train(x, y, config.LearningRate); err != nil {
			fmt.Fprintf(os.Stderr, "Error at epoch %d: %v\n", epoch, err)
			os.Exit(1)
		}
		stats.TrainTime += time.Since(start)
		completed = epoch

		start = time.Now()
		loss, err = net.Error(x, y)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error measuring epoch %d: %v\n", epoch, err)
			os.Exit(1)
		}
		stats.ErrorTime += time.Since(start)

		if *report > 0 && epoch%*report == 0 {
			fmt.Fprintf(utils.Output, "Epoch %d/%d | Error: %.6f\n", epoch, config.Epochs, loss)
		}
		if loss < *target {
			fmt.Fprintf(utils.Output, "Reached error %.6f at epoch %d\n", loss, epoch)
			break
		}
	}
	stats.TotalTime = time.Since(totalStart)
	fmt.Fprintf(utils.Output, "\nTraining complete! Final error: %.6f\n", loss)

	if *verbose {
		for i, line := range lines {
			out, err := net.Predict(line.Inputs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error predicting sample %d: %v\n", i, err)
				os.Exit(1)
			}
			fmt.Fprintf(utils.Output, "  %v -> %.4f (want %v)\n", line.Inputs, out, line.Targets)
		}
	}

	utils.PrintTimingStats(stats, completed)
}

func datasetName(path string) string {
	if path == "" {
		return "xor"
	}
	return path
}

func loadLines(config *utils.Config) (m.Lines, error) {
	if config.DataPath == "" {
		if config.InputNum != 2 || config.OutputNum != 1 {
			return nil, fmt.Errorf("the XOR table has 2 inputs and 1 output")
		}
		return m.XORLines(), nil
	}
	f, err := os.Open(config.DataPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return m.GetLines(f, config.InputNum, config.OutputNum)
}
