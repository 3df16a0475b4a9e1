// Package leads trains the lead-scoring classifier.
package leads

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/Nutonspeed/BN-Aura/internal/artifact"
	"github.com/Nutonspeed/BN-Aura/internal/config"
	"github.com/Nutonspeed/BN-Aura/internal/report"
	"github.com/Nutonspeed/BN-Aura/internal/trainer"
	"github.com/Nutonspeed/BN-Aura/pkg/data"
	"github.com/Nutonspeed/BN-Aura/pkg/model"
)

const (
	Program     = "lead_scoring"
	ModelPrefix = "lead_scoring_model"
	LabelColumn = "converted"

	// noiseStd is the spread of the Gaussian noise added to the synthetic
	// conversion score before thresholding.
	noiseStd = 0.1
)

var FeatureNames = []string{
	"urgency_score",
	"days_since_contact",
	"response_rate",
	"budget_specified",
	"contact_completeness",
	"age",
	"concern_count",
	"treatment_history",
}

var Schema = data.Schema{FeatureNames: FeatureNames, Label: LabelColumn}

// Lead is one prospective customer.
type Lead struct {
	UrgencyScore        float64
	DaysSinceContact    float64
	ResponseRate        float64
	BudgetSpecified     bool
	ContactCompleteness float64
	Age                 float64
	ConcernCount        float64
	TreatmentHistory    float64
	Converted           bool
}

// Features returns the lead in FeatureNames order.
func (l Lead) Features() []float64 {
	budget := 0.0
	if l.BudgetSpecified {
		budget = 1
	}
	return []float64{
		l.UrgencyScore,
		l.DaysSinceContact,
		l.ResponseRate,
		budget,
		l.ContactCompleteness,
		l.Age,
		l.ConcernCount,
		l.TreatmentHistory,
	}
}

// baseScore is the noiseless conversion score behind the synthetic label.
func (l Lead) baseScore() float64 {
	budget := 0.0
	if l.BudgetSpecified {
		budget = 1
	}
	return 0.30*(l.UrgencyScore/10) +
		0.20*l.ResponseRate +
		0.15*budget +
		0.15*(1-l.DaysSinceContact/90) +
		0.10*l.ContactCompleteness +
		0.10*math.Min(l.TreatmentHistory, 5)/5
}

// Generate synthesizes n labelled leads. The noise for each lead is drawn
// after its features so the sequence depends only on the seed.
func Generate(n int, rng *rand.Rand) []Lead {
	out := make([]Lead, n)
	for i := range out {
		l := Lead{
			UrgencyScore:        float64(1 + rng.Intn(10)),
			DaysSinceContact:    float64(rng.Intn(91)),
			ResponseRate:        rng.Float64(),
			BudgetSpecified:     rng.Float64() < 0.5,
			ContactCompleteness: rng.Float64(),
			Age:                 float64(20 + rng.Intn(46)),
			ConcernCount:        float64(1 + rng.Intn(5)),
			TreatmentHistory:    float64(rng.Intn(11)),
		}
		l.Converted = l.baseScore()+noiseStd*rng.NormFloat64() > 0.5
		out[i] = l
	}
	return out
}

// Table converts leads to a training table.
func Table(leads []Lead) *data.Table {
	t := &data.Table{Schema: Schema}
	for _, l := range leads {
		t.X = append(t.X, l.Features())
		y := 0
		if l.Converted {
			y = 1
		}
		t.Y = append(t.Y, y)
	}
	return t
}

type Options struct {
	Clinic   string
	Config   *config.Config
	DataPath string
	Plot     bool
	Store    artifact.Store
	Out      io.Writer
	Log      logrus.FieldLogger
}

// Result carries the accuracy and importance records back to the caller.
type Result struct {
	Accuracy    float64
	Importances []report.Importance
	Run         *trainer.Result
}

// Train fits the lead-scoring classifier and saves it as
// lead_scoring_model_<clinic>.gob.
func Train(ctx context.Context, opts Options) (*Result, error) {
	cfg := opts.Config
	var (
		table  *data.Table
		source = "synthetic"
	)
	if opts.DataPath == "" {
		table = Table(Generate(cfg.Samples, rand.New(rand.NewSource(cfg.Seed))))
	} else {
		t, skipped, err := data.ReadTableFile(opts.DataPath, Schema)
		if err != nil {
			return nil, fmt.Errorf("leads: load %s: %w", opts.DataPath, err)
		}
		if skipped > 0 && opts.Log != nil {
			opts.Log.WithField("skipped", skipped).Warn("skipped malformed lead records")
		}
		table, source = t, opts.DataPath
	}

	run, err := trainer.Classify(ctx, table, trainer.Options{
		Program:     Program,
		Title:       "Lead Scoring Model",
		ModelPrefix: ModelPrefix,
		LabelNames:  map[int]string{0: "not_converted", 1: "converted"},
		Clinic:      opts.Clinic,
		Seed:        cfg.Seed,
		TestSize:    cfg.TestSize,
		Boosting:    cfg.Boosting,
		Source:      source,
		Plot:        opts.Plot,
		Store:       opts.Store,
		Out:         opts.Out,
		Log:         opts.Log,
	})
	if err != nil {
		return nil, err
	}
	return &Result{Accuracy: run.Accuracy, Importances: run.Importances, Run: run}, nil
}

// Lead categories returned by Score.
const (
	CategoryHot  = "hot"
	CategoryWarm = "warm"
	CategoryCold = "cold"
)

// LeadScore is a 0-100 conversion score and its category.
type LeadScore struct {
	Probability float64
	Score       int
	Category    string
}

// Score rates a lead with a fitted classifier.
func Score(clf model.Classifier, l Lead) LeadScore {
	p := clf.PredictProba([][]float64{l.Features()})[0]
	s := int(math.Round(p * 100))
	return LeadScore{Probability: p, Score: s, Category: Category(s)}
}

// Category buckets a 0-100 score: hot from 75, warm from 50.
func Category(score int) string {
	switch {
	case score >= 75:
		return CategoryHot
	case score >= 50:
		return CategoryWarm
	}
	return CategoryCold
}

// LoadModel reads the persisted classifier for clinic.
func LoadModel(ctx context.Context, store artifact.Store, clinic string) (*model.GradientBoostingClassifier, error) {
	return trainer.LoadClassifier(ctx, store, ModelPrefix, clinic)
}
