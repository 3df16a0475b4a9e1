package model

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"sort"

	"github.com/Nutonspeed/BN-Aura/pkg/core"
)

// NearestNeighbors is a brute-force cosine-distance neighbor index over the
// rows of a sparse matrix. It keeps the fitted rows so that any indexed row
// can be used as a query.
type NearestNeighbors struct {
	K     int
	X     *core.CSR
	Norms []float64
}

// Neighbor is a single query hit.
type Neighbor struct {
	Index    int
	Distance float64
}

// NewNearestNeighbors creates an index returning k neighbors by default.
func NewNearestNeighbors(k int) *NearestNeighbors {
	return &NearestNeighbors{K: k}
}

// Fit stores the matrix and precomputes the row norms.
// This is the "lazy" part of a nearest-neighbor model.
func (m *NearestNeighbors) Fit(X *core.CSR) error {
	if X == nil || X.R == 0 {
		return ErrEmptyInput
	}
	m.X = X
	m.Norms = X.RowNorms()
	return nil
}

// Row returns the dense fitted row i.
func (m *NearestNeighbors) Row(i int) ([]float64, error) {
	if m.X == nil {
		return nil, ErrNotFitted
	}
	if i < 0 || i >= m.X.R {
		return nil, fmt.Errorf("knn: row %d out of range [0,%d)", i, m.X.R)
	}
	return m.X.Row(i), nil
}

// KNeighbors returns the k fitted rows closest to x by cosine distance,
// nearest first. Equal distances are ordered by row index. k <= 0 uses m.K.
func (m *NearestNeighbors) KNeighbors(x []float64, k int) ([]Neighbor, error) {
	if m.X == nil {
		return nil, ErrNotFitted
	}
	if len(x) != m.X.C {
		return nil, ErrShape
	}
	if k <= 0 {
		k = m.K
	}
	k = min(k, m.X.R)

	qNorm := 0.0
	for _, v := range x {
		qNorm += v * v
	}
	qNorm = math.Sqrt(qNorm)

	nbrs := make([]Neighbor, m.X.R)
	for j := range m.X.R {
		dot, _ := m.X.DotRow(j, x)
		nbrs[j] = Neighbor{Index: j, Distance: cosineDistance(dot, qNorm, m.Norms[j])}
	}
	sort.SliceStable(nbrs, func(a, b int) bool { return nbrs[a].Distance < nbrs[b].Distance })
	return nbrs[:k], nil
}

// cosineDistance mirrors the convention that a zero vector is orthogonal to
// everything, distance 1.
func cosineDistance(dot, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 1
	}
	d := 1 - dot/(na*nb)
	if d < 0 {
		return 0
	}
	return d
}

// MarshalBinary implements encoding.BinaryMarshaler using gob.
func (m *NearestNeighbors) MarshalBinary() ([]byte, error) {
	if m.X == nil {
		return nil, ErrNotFitted
	}
	var buf bytes.Buffer
	type wire NearestNeighbors
	if err := gob.NewEncoder(&buf).Encode((*wire)(m)); err != nil {
		return nil, fmt.Errorf("knn: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler using gob.
func (m *NearestNeighbors) UnmarshalBinary(data []byte) error {
	type wire NearestNeighbors
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode((*wire)(m)); err != nil {
		return fmt.Errorf("knn: decode: %w", err)
	}
	return nil
}
