package model

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// GradientBoostingClassifier is a binary classifier that boosts shallow
// regression trees on the log-loss gradient.
type GradientBoostingClassifier struct {
	NEstimators     int
	LearningRate    float64
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int

	// fitted state
	Init        float64 // prior log-odds
	Trees       []*RegressionTree
	NFeatures   int
	Importances []float64
}

// BoostingOption is a functional config for GradientBoostingClassifier.
type BoostingOption func(*GradientBoostingClassifier)

func WithNEstimators(n int) BoostingOption {
	return func(m *GradientBoostingClassifier) { m.NEstimators = n }
}
func WithLearningRate(lr float64) BoostingOption {
	return func(m *GradientBoostingClassifier) { m.LearningRate = lr }
}
func WithTreeDepth(d int) BoostingOption {
	return func(m *GradientBoostingClassifier) { m.MaxDepth = d }
}
func WithTreeMinSamplesSplit(n int) BoostingOption {
	return func(m *GradientBoostingClassifier) { m.MinSamplesSplit = n }
}
func WithTreeMinSamplesLeaf(n int) BoostingOption {
	return func(m *GradientBoostingClassifier) { m.MinSamplesLeaf = n }
}

// NewGradientBoostingClassifier returns a classifier with 100 depth-3 trees
// and a learning rate of 0.1.
func NewGradientBoostingClassifier(opts ...BoostingOption) *GradientBoostingClassifier {
	m := &GradientBoostingClassifier{
		NEstimators:     100,
		LearningRate:    0.1,
		MaxDepth:        3,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Fit trains the ensemble on X (n x p) and 0/1 labels y.
// Boosting is deterministic: no row or column subsampling is performed.
func (m *GradientBoostingClassifier) Fit(X [][]float64, y []int) error {
	p, err := validateXY(X, len(y))
	if err != nil {
		return fmt.Errorf("gbm: %w", err)
	}
	n := len(X)
	pos := 0
	for _, lab := range y {
		switch lab {
		case 0:
		case 1:
			pos++
		default:
			return fmt.Errorf("gbm: label %d is not binary", lab)
		}
	}

	m.NFeatures = p
	m.Init = LogOdds(float64(pos) / float64(n))
	m.Trees = make([]*RegressionTree, 0, m.NEstimators)

	raw := make([]float64, n)
	for i := range raw {
		raw[i] = m.Init
	}
	residual := make([]float64, n)
	hess := make([]float64, n)
	gains := make([]float64, p)

	for range m.NEstimators {
		for i := range n {
			prob := Sigmoid(raw[i])
			residual[i] = float64(y[i]) - prob
			hess[i] = prob * (1 - prob)
		}
		tree := NewRegressionTree(
			WithMaxDepth(m.MaxDepth),
			WithMinSamplesSplit(m.MinSamplesSplit),
			WithMinSamplesLeaf(m.MinSamplesLeaf),
		)
		if err := tree.Fit(X, residual, hess, nil); err != nil {
			return fmt.Errorf("gbm: fit tree %d: %w", len(m.Trees), err)
		}
		for i := range n {
			raw[i] += m.LearningRate * tree.predictSingle(X[i])
		}
		for j, g := range tree.Gains {
			gains[j] += g
		}
		m.Trees = append(m.Trees, tree)
	}

	m.Importances = normalize(gains)
	return nil
}

// DecisionFunction returns the raw log-odds score of each row.
func (m *GradientBoostingClassifier) DecisionFunction(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i := range X {
		s := m.Init
		for _, t := range m.Trees {
			s += m.LearningRate * t.predictSingle(X[i])
		}
		out[i] = s
	}
	return out
}

// PredictProba returns p(y=1) for each row.
func (m *GradientBoostingClassifier) PredictProba(X [][]float64) []float64 {
	out := m.DecisionFunction(X)
	for i, s := range out {
		out[i] = Sigmoid(s)
	}
	return out
}

// Predict thresholds PredictProba at 0.5.
func (m *GradientBoostingClassifier) Predict(X [][]float64) []int {
	return BinaryPredFromProba(m.PredictProba(X), 0.5)
}

// FeatureImportances returns impurity-decrease importances summing to 1,
// or all zeros when the ensemble never split.
func (m *GradientBoostingClassifier) FeatureImportances() []float64 {
	out := make([]float64, len(m.Importances))
	copy(out, m.Importances)
	return out
}

// Fitted reports whether Fit has completed.
func (m *GradientBoostingClassifier) Fitted() bool { return m.NFeatures > 0 }

// MarshalBinary implements encoding.BinaryMarshaler using gob.
func (m *GradientBoostingClassifier) MarshalBinary() ([]byte, error) {
	if !m.Fitted() {
		return nil, ErrNotFitted
	}
	var buf bytes.Buffer
	// alias type drops the methods so gob does not recurse into MarshalBinary
	type wire GradientBoostingClassifier
	if err := gob.NewEncoder(&buf).Encode((*wire)(m)); err != nil {
		return nil, fmt.Errorf("gbm: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler using gob.
func (m *GradientBoostingClassifier) UnmarshalBinary(data []byte) error {
	type wire GradientBoostingClassifier
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode((*wire)(m)); err != nil {
		return fmt.Errorf("gbm: decode: %w", err)
	}
	return nil
}

func normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	total := 0.0
	for _, x := range v {
		total += x
	}
	if total <= 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / total
	}
	return out
}
