// Package report renders training results for humans and for the run
// summary artifact.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Nutonspeed/BN-Aura/pkg/model"
)

// Importance pairs a feature name with its normalized importance.
type Importance struct {
	Feature    string  `yaml:"feature"`
	Importance float64 `yaml:"importance"`
}

// RankImportances pairs names with values and sorts by importance
// descending, then name.
func RankImportances(names []string, values []float64) []Importance {
	out := make([]Importance, len(names))
	for i, n := range names {
		out[i] = Importance{Feature: n}
		if i < len(values) {
			out[i].Importance = values[i]
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Importance != out[b].Importance {
			return out[a].Importance > out[b].Importance
		}
		return out[a].Feature < out[b].Feature
	})
	return out
}

// Summary is the YAML document written next to each model.
type Summary struct {
	RunID       string                      `yaml:"run_id"`
	Program     string                      `yaml:"program"`
	Clinic      string                      `yaml:"clinic"`
	TrainedAt   time.Time                   `yaml:"trained_at"`
	Seed        int64                       `yaml:"seed"`
	Source      string                      `yaml:"source"`
	TrainRows   int                         `yaml:"train_rows,omitempty"`
	TestRows    int                         `yaml:"test_rows,omitempty"`
	Accuracy    float64                     `yaml:"accuracy,omitempty"`
	LogLoss     float64                     `yaml:"log_loss,omitempty"`
	Report      *model.ClassificationReport `yaml:"classification_report,omitempty"`
	Importances []Importance                `yaml:"feature_importance,omitempty"`
	Matrix      *MatrixStats                `yaml:"matrix,omitempty"`
	Artifacts   []string                    `yaml:"artifacts"`
}

// MatrixStats describes the recommender's customer-item matrix.
type MatrixStats struct {
	Customers    int     `yaml:"customers"`
	Treatments   int     `yaml:"treatments"`
	Interactions int     `yaml:"interactions"`
	NonZero      int     `yaml:"non_zero"`
	Sparsity     float64 `yaml:"sparsity"`
}

// Marshal encodes the summary as YAML.
func (s *Summary) Marshal() ([]byte, error) {
	out, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("report: encode summary: %w", err)
	}
	return out, nil
}

// PrintClassification writes the evaluation block printed by the churn and
// lead trainers.
func PrintClassification(w io.Writer, title string, acc float64, r model.ClassificationReport, imps []Importance) {
	fmt.Fprintf(w, "=== %s ===\n", title)
	fmt.Fprintf(w, "Accuracy: %.4f\n\n", acc)
	fmt.Fprintln(w, "Classification Report:")
	fmt.Fprintln(w, r.String())
	fmt.Fprintln(w, "Feature Importance:")
	for _, imp := range imps {
		fmt.Fprintf(w, "  %-24s %.4f\n", imp.Feature, imp.Importance)
	}
}

// PrintMatrix writes the recommender's training block.
func PrintMatrix(w io.Writer, title string, m MatrixStats) {
	fmt.Fprintf(w, "=== %s ===\n", title)
	fmt.Fprintf(w, "Interactions: %d\n", m.Interactions)
	fmt.Fprintf(w, "Matrix shape: %d customers x %d treatments\n", m.Customers, m.Treatments)
	fmt.Fprintf(w, "Non-zero cells: %d (sparsity %.2f%%)\n", m.NonZero, m.Sparsity*100)
}
