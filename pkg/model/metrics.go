package model

import (
	"fmt"
	"sort"
	"strings"
)

// Accuracy is the fraction of matching labels.
func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	c := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			c++
		}
	}
	return float64(c) / float64(len(yTrue))
}

func BinaryPredFromProba(proba []float64, threshold float64) []int {
	out := make([]int, len(proba))
	for i, p := range proba {
		if p >= threshold {
			out[i] = 1
		} else {
			out[i] = 0
		}
	}
	return out
}

// PrecisionRecallF1 treats label positive as the positive class.
func PrecisionRecallF1(yTrue []int, yPred []int, positive int) (prec, rec, f1 float64) {
	tp, fp, fn := 0, 0, 0
	for i := range yTrue {
		if yPred[i] == positive && yTrue[i] == positive {
			tp++
		}
		if yPred[i] == positive && yTrue[i] != positive {
			fp++
		}
		if yPred[i] != positive && yTrue[i] == positive {
			fn++
		}
	}
	if tp+fp > 0 {
		prec = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		rec = float64(tp) / float64(tp+fn)
	}
	if prec+rec > 0 {
		f1 = 2 * prec * rec / (prec + rec)
	}
	return
}

// ClassMetrics are the per-label scores of a classification report.
type ClassMetrics struct {
	Label     string  `yaml:"label"`
	Precision float64 `yaml:"precision"`
	Recall    float64 `yaml:"recall"`
	F1        float64 `yaml:"f1"`
	Support   int     `yaml:"support"`
}

// ClassificationReport summarizes per-class and averaged scores.
type ClassificationReport struct {
	Classes     []ClassMetrics `yaml:"classes"`
	Accuracy    float64        `yaml:"accuracy"`
	MacroAvg    ClassMetrics   `yaml:"macro_avg"`
	WeightedAvg ClassMetrics   `yaml:"weighted_avg"`
}

// NewClassificationReport computes the report over every label present in
// yTrue or yPred. names maps labels to display names; missing entries fall
// back to the numeric label.
func NewClassificationReport(yTrue, yPred []int, names map[int]string) ClassificationReport {
	seen := map[int]struct{}{}
	for i := range yTrue {
		seen[yTrue[i]] = struct{}{}
		seen[yPred[i]] = struct{}{}
	}
	labels := make([]int, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	r := ClassificationReport{Accuracy: Accuracy(yTrue, yPred)}
	total := 0
	for _, l := range labels {
		p, rc, f := PrecisionRecallF1(yTrue, yPred, l)
		support := 0
		for _, y := range yTrue {
			if y == l {
				support++
			}
		}
		name, ok := names[l]
		if !ok {
			name = fmt.Sprint(l)
		}
		r.Classes = append(r.Classes, ClassMetrics{Label: name, Precision: p, Recall: rc, F1: f, Support: support})
		total += support
	}

	r.MacroAvg = ClassMetrics{Label: "macro avg", Support: total}
	r.WeightedAvg = ClassMetrics{Label: "weighted avg", Support: total}
	if len(r.Classes) == 0 {
		return r
	}
	for _, c := range r.Classes {
		r.MacroAvg.Precision += c.Precision / float64(len(r.Classes))
		r.MacroAvg.Recall += c.Recall / float64(len(r.Classes))
		r.MacroAvg.F1 += c.F1 / float64(len(r.Classes))
		if total > 0 {
			w := float64(c.Support) / float64(total)
			r.WeightedAvg.Precision += c.Precision * w
			r.WeightedAvg.Recall += c.Recall * w
			r.WeightedAvg.F1 += c.F1 * w
		}
	}
	return r
}

// String renders the report as a fixed-width table.
func (r ClassificationReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%14s %10s %10s %10s %10s\n", "", "precision", "recall", "f1-score", "support")
	for _, c := range r.Classes {
		writeRow(&b, c)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%14s %10s %10s %10.2f %10d\n", "accuracy", "", "", r.Accuracy, r.MacroAvg.Support)
	writeRow(&b, r.MacroAvg)
	writeRow(&b, r.WeightedAvg)
	return b.String()
}

func writeRow(b *strings.Builder, c ClassMetrics) {
	fmt.Fprintf(b, "%14s %10.2f %10.2f %10.2f %10d\n", c.Label, c.Precision, c.Recall, c.F1, c.Support)
}
