package model

import "math"

// Sigmoid maps log-odds to a probability.
func Sigmoid(x float64) float64 { return 1.0 / (1.0 + math.Exp(-x)) }

// LogOdds is the inverse of Sigmoid, clamped away from 0 and 1.
func LogOdds(p float64) float64 {
	p = clampProba(p)
	return math.Log(p / (1 - p))
}

// LogLoss is the mean binary cross-entropy of yPred probabilities against 0/1 labels.
func LogLoss(yTrue []int, yPred []float64) float64 {
	n := len(yTrue)
	if n == 0 {
		return 0
	}
	s := 0.0
	for i := range n {
		p := clampProba(yPred[i])
		if yTrue[i] == 1 {
			s -= math.Log(p)
		} else {
			s -= math.Log(1 - p)
		}
	}
	return s / float64(n)
}

func clampProba(p float64) float64 { return math.Min(math.Max(p, 1e-12), 1-1e-12) }
