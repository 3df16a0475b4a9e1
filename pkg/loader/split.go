package loader

import (
	"math/rand"
	"sort"
)

// TrainTestSplit shuffles rows with rng and holds out round(n*testRatio)
// of them for testing. Row order inside each side follows the permutation.
func TrainTestSplit(X [][]float64, y []int, testRatio float64, rng *rand.Rand) (XTrain, XTest [][]float64, yTrain, yTest []int) {
	n := len(X)
	indices := rng.Perm(n)
	nTest := testCount(n, testRatio)
	for i := range n {
		if i < nTest {
			XTest = append(XTest, X[indices[i]])
			yTest = append(yTest, y[indices[i]])
		} else {
			XTrain = append(XTrain, X[indices[i]])
			yTrain = append(yTrain, y[indices[i]])
		}
	}
	return
}

// StratifiedSplit holds out testRatio of each label separately so both sides
// keep the label proportions of y.
func StratifiedSplit(X [][]float64, y []int, testRatio float64, rng *rand.Rand) (XTrain, XTest [][]float64, yTrain, yTest []int) {
	byLabel := map[int][]int{}
	for i, lab := range y {
		byLabel[lab] = append(byLabel[lab], i)
	}
	labels := make([]int, 0, len(byLabel))
	for lab := range byLabel {
		labels = append(labels, lab)
	}
	sort.Ints(labels)

	for _, lab := range labels {
		idx := byLabel[lab]
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		nTest := testCount(len(idx), testRatio)
		for k, i := range idx {
			if k < nTest {
				XTest = append(XTest, X[i])
				yTest = append(yTest, y[i])
			} else {
				XTrain = append(XTrain, X[i])
				yTrain = append(yTrain, y[i])
			}
		}
	}
	return
}

func testCount(n int, ratio float64) int {
	if ratio <= 0 {
		return 0
	}
	if ratio >= 1 {
		return n
	}
	t := int(float64(n)*ratio + 0.5)
	return min(max(t, 1), n-1)
}
