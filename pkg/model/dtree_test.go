package model_test

import (
	"math"
	"testing"

	"github.com/Nutonspeed/BN-Aura/pkg/model"
)

func TestRegressionTreeStepFunction(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {10}, {11}, {12}}
	target := []float64{0, 0, 0, 5, 5, 5}

	tree := model.NewRegressionTree(model.WithMaxDepth(1))
	if err := tree.Fit(X, target, nil, nil); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if tree.Root.Leaf {
		t.Fatal("root should split")
	}
	if tree.Root.Threshold != 6.5 {
		t.Errorf("threshold = %g, want midpoint 6.5", tree.Root.Threshold)
	}
	got := tree.Predict([][]float64{{0}, {6}, {7}, {100}})
	want := []float64{0, 0, 5, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Predict[%d] = %g, want %g", i, got[i], want[i])
		}
	}
	if tree.Gains[0] <= 0 {
		t.Errorf("gain = %g, want positive", tree.Gains[0])
	}
}

func TestRegressionTreeNewtonLeaves(t *testing.T) {
	X := [][]float64{{0}, {0}}
	target := []float64{1, 3}
	hess := []float64{0.5, 0.5}

	tree := model.NewRegressionTree()
	if err := tree.Fit(X, target, hess, nil); err != nil {
		t.Fatal(err)
	}
	// constant feature: single leaf holding sum(g)/sum(h)
	if !tree.Root.Leaf {
		t.Fatal("constant feature should not split")
	}
	if got := tree.Predict([][]float64{{0}})[0]; math.Abs(got-4) > 1e-12 {
		t.Errorf("leaf = %g, want 4", got)
	}
}

func TestRegressionTreeMinSamplesLeaf(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {4}}
	target := []float64{10, 0, 0, 0}

	tree := model.NewRegressionTree(model.WithMaxDepth(1), model.WithMinSamplesLeaf(2))
	if err := tree.Fit(X, target, nil, nil); err != nil {
		t.Fatal(err)
	}
	if tree.Root.Leaf {
		t.Fatal("expected a split")
	}
	if tree.Root.Left.N < 2 || tree.Root.Right.N < 2 {
		t.Errorf("leaf sizes %d/%d violate min leaf 2", tree.Root.Left.N, tree.Root.Right.N)
	}
}

func TestRegressionTreeMissingValues(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {10}, {11}, {math.NaN()}}
	target := []float64{0, 0, 0, 5, 5, 0}

	tree := model.NewRegressionTree(model.WithMaxDepth(1))
	if err := tree.Fit(X, target, nil, nil); err != nil {
		t.Fatal(err)
	}
	// NaN joins the larger child, which is the left side here
	if tree.Root.Left.N != 4 || tree.Root.Right.N != 2 {
		t.Errorf("children = %d/%d, want 4/2", tree.Root.Left.N, tree.Root.Right.N)
	}
	if got := tree.Predict([][]float64{{math.NaN()}})[0]; got != tree.Root.Left.Value {
		t.Errorf("NaN routed to %g, want left value %g", got, tree.Root.Left.Value)
	}
}
