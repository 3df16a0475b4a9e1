package core

import (
	"errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// CSR is a compressed sparse row matrix. Fields are exported so the matrix
// survives gob encoding.
type CSR struct {
	R, C    int
	IndPtr  []int     // len R+1; row i occupies Indices[IndPtr[i]:IndPtr[i+1]]
	Indices []int     // column index per stored value, ascending within a row
	Data    []float64 // stored non-zero values
}

// FromDense compresses a gonum matrix, dropping exact zeros.
func FromDense(m mat.Matrix) *CSR {
	r, c := m.Dims()
	s := &CSR{R: r, C: c, IndPtr: make([]int, r+1)}
	for i := range r {
		for j := range c {
			if v := m.At(i, j); v != 0 {
				s.Indices = append(s.Indices, j)
				s.Data = append(s.Data, v)
			}
		}
		s.IndPtr[i+1] = len(s.Data)
	}
	return s
}

// NNZ returns the number of stored values.
func (s *CSR) NNZ() int { return len(s.Data) }

// Density is NNZ divided by R*C.
func (s *CSR) Density() float64 {
	if s.R == 0 || s.C == 0 {
		return 0
	}
	return float64(s.NNZ()) / float64(s.R*s.C)
}

// Row returns a dense copy of row i.
func (s *CSR) Row(i int) []float64 {
	v := make([]float64, s.C)
	for k := s.IndPtr[i]; k < s.IndPtr[i+1]; k++ {
		v[s.Indices[k]] = s.Data[k]
	}
	return v
}

// RowNorms returns the Euclidean norm of every row.
func (s *CSR) RowNorms() []float64 {
	out := make([]float64, s.R)
	for i := range s.R {
		if row := s.Data[s.IndPtr[i]:s.IndPtr[i+1]]; len(row) > 0 {
			out[i] = floats.Norm(row, 2)
		}
	}
	return out
}

// DotRow computes the dot product of row i with the dense vector x.
func (s *CSR) DotRow(i int, x []float64) (float64, error) {
	if len(x) != s.C {
		return 0, errors.New("core: mismatched lengths")
	}
	sum := 0.0
	for k := s.IndPtr[i]; k < s.IndPtr[i+1]; k++ {
		sum += s.Data[k] * x[s.Indices[k]]
	}
	return sum, nil
}
