package m

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

type Line struct {
	Inputs  []float64
	Targets []float64
}
type Lines []Line

// XORLines is the XOR truth table.
func XORLines() Lines {
	return Lines{
		{Inputs: []float64{0, 0}, Targets: []float64{0}},
		{Inputs: []float64{0, 1}, Targets: []float64{1}},
		{Inputs: []float64{1, 0}, Targets: []float64{1}},
		{Inputs: []float64{1, 1}, Targets: []float64{0}},
	}
}

// GetLines reads one sample per CSV record: inputNum inputs followed by
// outputNum targets. Blank lines and lines starting with '#' are skipped.
func GetLines(reader io.Reader, inputNum, outputNum int) (Lines, error) {
	r := csv.NewReader(reader)
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var lines Lines
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return lines, fmt.Errorf("reading csv: %w", err)
		}
		lineNum, _ := r.FieldPos(0)
		if len(record) != inputNum+outputNum {
			return lines, errInvalidLine{
				lineNum:  lineNum,
				splits:   len(record),
				expected: inputNum + outputNum,
			}
		}

		inputs := make([]float64, inputNum)
		targets := make([]float64, outputNum)
		for i, split := range record {
			num, err := strconv.ParseFloat(strings.TrimSpace(split), 64)
			if err != nil {
				if i < inputNum {
					return lines, fmt.Errorf("line %d: parsing input: %w", lineNum, err)
				}
				return lines, fmt.Errorf("line %d: parsing target: %w", lineNum, err)
			}
			if i < inputNum {
				inputs[i] = num
			} else {
				targets[i-inputNum] = num
			}
		}
		lines = append(lines, Line{
			Inputs:  inputs,
			Targets: targets,
		})
	}
	return lines, nil
}

type errInvalidLine struct {
	lineNum  int
	splits   int
	expected int
}

func (e errInvalidLine) Error() string {
	return fmt.Sprintf("at line %d, expected %d values, got %d",
		e.lineNum, e.expected, e.splits)
}

// Matrices stacks the samples into an inputs matrix and a targets matrix,
// one row per line.
func (lines Lines) Matrices() (inputs, targets *mat.Dense, err error) {
	if len(lines) == 0 {
		return nil, nil, fmt.Errorf("%w: no samples", ErrDimension)
	}
	inputNum, outputNum := len(lines[0].Inputs), len(lines[0].Targets)
	if inputNum == 0 || outputNum == 0 {
		return nil, nil, fmt.Errorf("%w: samples need inputs and targets", ErrDimension)
	}
	inputs = mat.NewDense(len(lines), inputNum, nil)
	targets = mat.NewDense(len(lines), outputNum, nil)
	for i, line := range lines {
		if len(line.Inputs) != inputNum || len(line.Targets) != outputNum {
			return nil, nil, fmt.Errorf("%w: sample %d has %d inputs and %d targets, want %d and %d",
				ErrDimension, i, len(line.Inputs), len(line.Targets), inputNum, outputNum)
		}
		inputs.SetRow(i, line.Inputs)
		targets.SetRow(i, line.Targets)
	}
	return inputs, targets, nil
}

// WithBias returns a copy of lines with a constant input appended to every
// sample. Neurons carry no bias term of their own.
func WithBias(lines Lines, value float64) Lines {
	biased := make(Lines, len(lines))
	for i, line := range lines {
		inputs := make([]float64, len(line.Inputs)+1)
		copy(inputs, line.Inputs)
		inputs[len(line.Inputs)] = value
		biased[i] = Line{
			Inputs:  inputs,
			Targets: line.Targets,
		}
	}
	return biased
}

func NormalizeLines(lines Lines, std []float64, mean []float64) Lines {
	normalizedLines := make(Lines, len(lines))
	for i, line := range lines {
		normalizedInputs := make([]float64, len(line.Inputs))
		for j, x := range line.Inputs {
			if std[j] == 0 {
				// constant column, e.g. a bias input
				normalizedInputs[j] = x
				continue
			}
			normalizedInputs[j] = (x - mean[j]) / std[j]
		}

		normalizedLines[i] = Line{
			Inputs:  normalizedInputs,
			Targets: line.Targets,
		}
	}
	return normalizedLines
}

func CalculateMean(lines Lines) []float64 {
	mean, _ := columnStats(lines)
	return mean
}

// CalculateStdDev is the population standard deviation of every input column.
func CalculateStdDev(lines Lines) []float64 {
	_, std := columnStats(lines)
	return std
}

func columnStats(lines Lines) (mean, std []float64) {
	if len(lines) == 0 {
		return nil, nil
	}

	numEntries := len(lines[0].Inputs)
	mean = make([]float64, numEntries)
	std = make([]float64, numEntries)
	column := make([]float64, len(lines))
	for j := 0; j < numEntries; j++ {
		for i, line := range lines {
			column[i] = line.Inputs[j]
		}
		mean[j], std[j] = stat.PopMeanStdDev(column, nil)
	}
	return mean, std
}
