package model

import "errors"

var (
	// ErrNotFitted is returned when a model is used before Fit.
	ErrNotFitted = errors.New("model: not fitted")
	// ErrEmptyInput is returned when Fit receives no rows.
	ErrEmptyInput = errors.New("model: empty X")
	// ErrShape is returned when rows, labels or feature counts disagree.
	ErrShape = errors.New("model: inconsistent input shape")
)

// Classifier is a binary supervised learner over dense feature rows with
// labels 0/1.
type Classifier interface {
	Fit(X [][]float64, y []int) error
	Predict(X [][]float64) []int
	PredictProba(X [][]float64) []float64 // returns p(y=1)
}

// ImportanceReporter exposes normalized per-feature importances aligned with
// the training column order.
type ImportanceReporter interface {
	FeatureImportances() []float64
}

// validateXY checks the rectangular shape of X and its agreement with y.
func validateXY(X [][]float64, n int) (int, error) {
	if len(X) == 0 {
		return 0, ErrEmptyInput
	}
	if n != len(X) {
		return 0, ErrShape
	}
	p := len(X[0])
	for i := range X {
		if len(X[i]) != p {
			return 0, ErrShape
		}
	}
	return p, nil
}
