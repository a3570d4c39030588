package m

import (
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// WeightSampler returns the initial weights of a neuron with dim inputs.
type WeightSampler func(dim int) []float64

// UniformSampler draws every weight independently from U[min, max].
func UniformSampler(min, max float64, seed uint64) WeightSampler {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	dist := distuv.Uniform{
		Min: min,
		Max: max,
		Src: rand.NewSource(seed),
	}
	return func(dim int) []float64 {
		data := make([]float64, dim)
		for i := range data {
			data[i] = dist.Rand()
		}
		return data
	}
}

// weightedSums returns input·w, one sum per sample row of input.
func weightedSums(input mat.Matrix, w mat.Vector) *mat.VecDense {
	r, _ := input.Dims()
	o := mat.NewVecDense(r, nil)
	o.MulVec(input, w)
	return o
}

func applyVec(fn func(float64) float64, v mat.Vector) *mat.VecDense {
	o := mat.NewVecDense(v.Len(), nil)
	for i := 0; i < v.Len(); i++ {
		o.SetVec(i, fn(v.AtVec(i)))
	}
	return o
}

func multiplyVec(a, b mat.Vector) *mat.VecDense {
	o := mat.NewVecDense(a.Len(), nil)
	o.MulElemVec(a, b)
	return o
}

func subtractVec(a, b mat.Vector) *mat.VecDense {
	o := mat.NewVecDense(a.Len(), nil)
	o.SubVec(a, b)
	return o
}

// stackRows builds a matrix whose row i is vs[i].
func stackRows(vs []*mat.VecDense) *mat.Dense {
	o := mat.NewDense(len(vs), vs[0].Len(), nil)
	for i, v := range vs {
		o.SetRow(i, v.RawVector().Data)
	}
	return o
}

// stackColumns builds a matrix whose column j is vs[j]: the batch-major
// layout (samples × neurons) consumed by the next layer.
func stackColumns(vs []*mat.VecDense) *mat.Dense {
	o := mat.NewDense(vs[0].Len(), len(vs), nil)
	for j, v := range vs {
		o.SetCol(j, v.RawVector().Data)
	}
	return o
}

func GetColumn(matrix mat.Matrix, j int) []float64 {
	rows, _ := matrix.Dims()
	column := make([]float64, rows)
	for i := 0; i < rows; i++ {
		column[i] = matrix.At(i, j)
	}
	return column
}
