// Package projection places a prompt among a fixed set of anchor concepts in
// a three dimensional embedding space.
package projection

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Dims is the number of principal components kept.
const Dims = 3

var (
	// ErrNoVectors is returned when there is nothing to project.
	ErrNoVectors = errors.New("no vectors to project")

	// ErrDimensionMismatch is returned when vectors differ in length.
	ErrDimensionMismatch = errors.New("vectors have different dimensions")
)

// Project centres vectors and projects each onto the top three principal
// components. variance holds the fraction of total variance explained by
// each kept component. Components that do not exist, because there are too
// few vectors or dimensions, are reported as zero.
func Project(vectors [][]float64) (coords [][Dims]float64, variance [Dims]float64, err error) {
	n := len(vectors)
	if n == 0 {
		return nil, variance, ErrNoVectors
	}
	d := len(vectors[0])
	if d == 0 {
		return nil, variance, ErrNoVectors
	}

	data := mat.NewDense(n, d, nil)
	for i, v := range vectors {
		if len(v) != d {
			return nil, variance, fmt.Errorf("%w: row %d has %d, want %d", ErrDimensionMismatch, i, len(v), d)
		}
		data.SetRow(i, v)
	}

	coords = make([][Dims]float64, n)
	if n < 2 {
		return coords, variance, nil
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(data, nil); !ok {
		return nil, variance, errors.New("principal component analysis failed")
	}

	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	vars := pc.VarsTo(nil)

	k := min(Dims, len(vars))

	var total float64
	for _, v := range vars {
		total += v
	}
	if total > 0 {
		for i := range k {
			variance[i] = vars[i] / total
		}
	}

	centred := centre(data)
	var proj mat.Dense
	proj.Mul(centred, vecs.Slice(0, d, 0, k))

	for i := range n {
		for j := range k {
			coords[i][j] = proj.At(i, j)
		}
	}
	return coords, variance, nil
}

// centre returns a copy of m with each column's mean subtracted.
func centre(m *mat.Dense) *mat.Dense {
	n, d := m.Dims()
	out := mat.DenseCopyOf(m)
	col := make([]float64, n)
	for j := range d {
		mat.Col(col, j, m)
		mean := stat.Mean(col, nil)
		for i := range n {
			out.Set(i, j, col[i]-mean)
		}
	}
	return out
}
