// Package trainer runs the fit-evaluate-persist pipeline shared by the
// boosted-tree programs.
package trainer

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Nutonspeed/BN-Aura/internal/artifact"
	"github.com/Nutonspeed/BN-Aura/internal/config"
	"github.com/Nutonspeed/BN-Aura/internal/report"
	"github.com/Nutonspeed/BN-Aura/pkg/data"
	"github.com/Nutonspeed/BN-Aura/pkg/loader"
	"github.com/Nutonspeed/BN-Aura/pkg/model"
)

// Options configures one training run.
type Options struct {
	Program     string // short name used in artifact keys, e.g. "churn"
	Title       string
	ModelPrefix string // model artifact prefix, e.g. "churn_model"
	LabelNames  map[int]string

	Clinic   string
	Seed     int64
	TestSize float64
	Boosting config.BoostingConfig
	Source   string
	Plot     bool

	Store artifact.Store
	Out   io.Writer
	Log   logrus.FieldLogger
}

// Result is what a training run hands back to its caller.
type Result struct {
	RunID       string
	Accuracy    float64
	LogLoss     float64
	Report      model.ClassificationReport
	Importances []report.Importance
	Model       *model.GradientBoostingClassifier
	TrainRows   int
	TestRows    int
	Artifacts   []string
}

// NewClassifier builds the boosted-tree classifier described by cfg.
func NewClassifier(cfg config.BoostingConfig) *model.GradientBoostingClassifier {
	return model.NewGradientBoostingClassifier(
		model.WithNEstimators(cfg.NEstimators),
		model.WithLearningRate(cfg.LearningRate),
		model.WithTreeDepth(cfg.MaxDepth),
		model.WithTreeMinSamplesSplit(cfg.MinSamplesSplit),
		model.WithTreeMinSamplesLeaf(cfg.MinSamplesLeaf),
	)
}

// ModelKey is the artifact key of the classifier for clinic.
func ModelKey(prefix, clinic string) string { return artifact.Key(prefix, clinic, "gob") }

// Classify splits table, fits the classifier, prints the evaluation and
// persists the model with its run summary.
func Classify(ctx context.Context, table *data.Table, opts Options) (*Result, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	if table.Len() < 2 {
		return nil, fmt.Errorf("trainer: need at least 2 rows, got %d", table.Len())
	}
	if opts.Clinic == "" {
		return nil, fmt.Errorf("trainer: clinic id required")
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	var base logrus.FieldLogger = logrus.StandardLogger()
	if opts.Log != nil {
		base = opts.Log
	}
	res := &Result{RunID: uuid.NewString()}
	log := base.WithFields(logrus.Fields{
		"program": opts.Program,
		"clinic":  opts.Clinic,
		"run_id":  res.RunID,
	})

	rng := rand.New(rand.NewSource(opts.Seed))
	split, method := loader.StratifiedSplit, "stratified"
	// a class with a single row cannot appear on both sides
	if pos := table.Positives(); pos < 2 || table.Len()-pos < 2 {
		split, method = loader.TrainTestSplit, "random"
	}
	XTrain, XTest, yTrain, yTest := split(table.X, table.Y, opts.TestSize, rng)
	res.TrainRows, res.TestRows = len(XTrain), len(XTest)
	log.WithFields(logrus.Fields{
		"train_rows": res.TrainRows,
		"test_rows":  res.TestRows,
		"positives":  table.Positives(),
		"split":      method,
	}).Info("dataset split")

	clf := NewClassifier(opts.Boosting)
	start := time.Now()
	if err := clf.Fit(XTrain, yTrain); err != nil {
		return nil, fmt.Errorf("trainer: fit: %w", err)
	}
	log.WithField("elapsed", time.Since(start).String()).Info("model fitted")
	res.Model = clf

	proba := clf.PredictProba(XTest)
	yPred := model.BinaryPredFromProba(proba, 0.5)
	res.Accuracy = model.Accuracy(yTest, yPred)
	res.LogLoss = model.LogLoss(yTest, proba)
	res.Report = model.NewClassificationReport(yTest, yPred, opts.LabelNames)
	res.Importances = Importances(table.Schema.FeatureNames, clf)

	report.PrintClassification(out, opts.Title, res.Accuracy, res.Report, res.Importances)

	modelKey := ModelKey(opts.ModelPrefix, opts.Clinic)
	if err := artifact.SaveBinary(ctx, opts.Store, modelKey, clf); err != nil {
		return nil, fmt.Errorf("trainer: save model: %w", err)
	}
	res.Artifacts = append(res.Artifacts, opts.Store.Location(modelKey))

	if opts.Plot {
		png, err := report.ImportanceChart(opts.Title+" feature importance", res.Importances)
		if err != nil {
			return nil, err
		}
		key := artifact.Key(opts.Program+"_importance", opts.Clinic, "png")
		if err := opts.Store.Save(ctx, key, png); err != nil {
			return nil, fmt.Errorf("trainer: save chart: %w", err)
		}
		res.Artifacts = append(res.Artifacts, opts.Store.Location(key))
	}

	summary := &report.Summary{
		RunID:       res.RunID,
		Program:     opts.Program,
		Clinic:      opts.Clinic,
		TrainedAt:   time.Now().UTC(),
		Seed:        opts.Seed,
		Source:      opts.Source,
		TrainRows:   res.TrainRows,
		TestRows:    res.TestRows,
		Accuracy:    res.Accuracy,
		LogLoss:     res.LogLoss,
		Report:      &res.Report,
		Importances: res.Importances,
		Artifacts:   res.Artifacts,
	}
	if err := SaveSummary(ctx, opts.Store, summary); err != nil {
		return nil, err
	}

	for _, a := range res.Artifacts {
		fmt.Fprintf(out, "Saved %s\n", a)
	}
	log.WithField("accuracy", res.Accuracy).Info("training complete")
	return res, nil
}

// Importances ranks the fitted importances of r against the column names.
func Importances(names []string, r model.ImportanceReporter) []report.Importance {
	return report.RankImportances(names, r.FeatureImportances())
}

// SaveSummary writes the run summary YAML under <program>_report_<clinic>.yaml.
func SaveSummary(ctx context.Context, store artifact.Store, s *report.Summary) error {
	body, err := s.Marshal()
	if err != nil {
		return err
	}
	key := artifact.Key(s.Program+"_report", s.Clinic, "yaml")
	if err := store.Save(ctx, key, body); err != nil {
		return fmt.Errorf("trainer: save summary: %w", err)
	}
	return nil
}

// LoadClassifier reads a persisted classifier.
func LoadClassifier(ctx context.Context, store artifact.Store, prefix, clinic string) (*model.GradientBoostingClassifier, error) {
	clf := &model.GradientBoostingClassifier{}
	if err := artifact.LoadBinary(ctx, store, ModelKey(prefix, clinic), clf); err != nil {
		return nil, err
	}
	return clf, nil
}
