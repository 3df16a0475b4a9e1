package model_test

import (
	"math"
	"strings"
	"testing"

	"github.com/Nutonspeed/BN-Aura/pkg/model"
)

func TestPrecisionRecallF1(t *testing.T) {
	yTrue := []int{1, 1, 1, 0, 0, 0}
	yPred := []int{1, 1, 0, 1, 0, 0}

	p, r, f1 := model.PrecisionRecallF1(yTrue, yPred, 1)
	if math.Abs(p-2.0/3) > 1e-12 || math.Abs(r-2.0/3) > 1e-12 || math.Abs(f1-2.0/3) > 1e-12 {
		t.Errorf("got p=%g r=%g f1=%g, want 2/3 each", p, r, f1)
	}
	if acc := model.Accuracy(yTrue, yPred); math.Abs(acc-4.0/6) > 1e-12 {
		t.Errorf("accuracy = %g", acc)
	}
	if acc := model.Accuracy(nil, nil); acc != 0 {
		t.Errorf("empty accuracy = %g, want 0", acc)
	}
}

func TestClassificationReport(t *testing.T) {
	yTrue := []int{0, 0, 0, 1}
	yPred := []int{0, 0, 1, 1}

	r := model.NewClassificationReport(yTrue, yPred, map[int]string{0: "retained", 1: "churned"})
	if len(r.Classes) != 2 {
		t.Fatalf("classes = %d, want 2", len(r.Classes))
	}
	if r.Classes[0].Label != "retained" || r.Classes[0].Support != 3 {
		t.Errorf("class 0 = %+v", r.Classes[0])
	}
	if r.Classes[1].Precision != 0.5 || r.Classes[1].Recall != 1 {
		t.Errorf("class 1 = %+v", r.Classes[1])
	}
	if r.Accuracy != 0.75 {
		t.Errorf("accuracy = %g, want 0.75", r.Accuracy)
	}
	if r.WeightedAvg.Support != 4 {
		t.Errorf("weighted support = %d, want 4", r.WeightedAvg.Support)
	}

	s := r.String()
	for _, want := range []string{"retained", "churned", "macro avg", "weighted avg"} {
		if !strings.Contains(s, want) {
			t.Errorf("report missing %q:\n%s", want, s)
		}
	}
}

func TestLogLoss(t *testing.T) {
	got := model.LogLoss([]int{1, 0}, []float64{0.5, 0.5})
	if math.Abs(got-math.Ln2) > 1e-12 {
		t.Errorf("LogLoss = %g, want ln 2", got)
	}
	if v := model.LogLoss([]int{1}, []float64{0}); math.IsInf(v, 0) {
		t.Error("LogLoss must clamp probabilities")
	}
	if p := model.Sigmoid(model.LogOdds(0.3)); math.Abs(p-0.3) > 1e-12 {
		t.Errorf("Sigmoid(LogOdds(0.3)) = %g", p)
	}
}
