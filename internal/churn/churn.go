// Package churn trains the customer-churn classifier.
package churn

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/Nutonspeed/BN-Aura/internal/artifact"
	"github.com/Nutonspeed/BN-Aura/internal/config"
	"github.com/Nutonspeed/BN-Aura/internal/trainer"
	"github.com/Nutonspeed/BN-Aura/pkg/data"
	"github.com/Nutonspeed/BN-Aura/pkg/model"
)

const (
	Program     = "churn"
	ModelPrefix = "churn_model"
	LabelColumn = "churned"
)

// FeatureNames is the model's column order.
var FeatureNames = []string{
	"days_since_last_visit",
	"total_visits",
	"avg_spend",
	"loyalty_points",
	"email_open_rate",
	"sms_response_rate",
	"missed_appointments",
	"sentiment_score",
}

// Schema is the churn training table layout.
var Schema = data.Schema{FeatureNames: FeatureNames, Label: LabelColumn}

// Record is one customer's churn features.
type Record struct {
	DaysSinceLastVisit float64
	TotalVisits        float64
	AvgSpend           float64
	LoyaltyPoints      float64
	EmailOpenRate      float64
	SMSResponseRate    float64
	MissedAppointments float64
	SentimentScore     float64
	Churned            bool
}

// Features returns the record in FeatureNames order.
func (r Record) Features() []float64 {
	return []float64{
		r.DaysSinceLastVisit,
		r.TotalVisits,
		r.AvgSpend,
		r.LoyaltyPoints,
		r.EmailOpenRate,
		r.SMSResponseRate,
		r.MissedAppointments,
		r.SentimentScore,
	}
}

// Probability is the heuristic churn probability behind the synthetic label.
func (r Record) Probability() float64 {
	return 0.35*(r.DaysSinceLastVisit/365) +
		0.25*(1-math.Min(r.TotalVisits, 50)/50) +
		0.20*(r.MissedAppointments/5) +
		0.20*((1-r.SentimentScore)/2)
}

// Generate synthesizes n labelled records. The data source is simulated
// until a clinic data feed exists.
func Generate(n int, rng *rand.Rand) []Record {
	out := make([]Record, n)
	for i := range out {
		r := Record{
			DaysSinceLastVisit: float64(1 + rng.Intn(365)),
			TotalVisits:        float64(1 + rng.Intn(50)),
			AvgSpend:           math.Max(500, 5000+2000*rng.NormFloat64()),
			LoyaltyPoints:      float64(rng.Intn(5001)),
			EmailOpenRate:      rng.Float64(),
			SMSResponseRate:    rng.Float64(),
			MissedAppointments: float64(rng.Intn(6)),
			SentimentScore:     rng.Float64()*2 - 1,
		}
		r.Churned = r.Probability() > 0.5
		out[i] = r
	}
	return out
}

// Table converts records to a training table.
func Table(records []Record) *data.Table {
	t := &data.Table{Schema: Schema}
	for _, r := range records {
		t.X = append(t.X, r.Features())
		y := 0
		if r.Churned {
			y = 1
		}
		t.Y = append(t.Y, y)
	}
	return t
}

// Options configures Train.
type Options struct {
	Clinic   string
	Config   *config.Config
	DataPath string // CSV of real records; empty => synthetic
	Plot     bool
	Store    artifact.Store
	Out      io.Writer
	Log      logrus.FieldLogger
}

// Train builds the dataset, fits and evaluates the classifier, and saves
// it as churn_model_<clinic>.gob.
func Train(ctx context.Context, opts Options) (*trainer.Result, error) {
	cfg := opts.Config
	table, source, err := load(opts, cfg)
	if err != nil {
		return nil, err
	}
	return trainer.Classify(ctx, table, trainer.Options{
		Program:     Program,
		Title:       "Churn Prediction Model",
		ModelPrefix: ModelPrefix,
		LabelNames:  map[int]string{0: "retained", 1: "churned"},
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
}

func load(opts Options, cfg *config.Config) (*data.Table, string, error) {
	if opts.DataPath == "" {
		return Table(Generate(cfg.Samples, rand.New(rand.NewSource(cfg.Seed)))), "synthetic", nil
	}
	t, skipped, err := data.ReadTableFile(opts.DataPath, Schema)
	if err != nil {
		return nil, "", fmt.Errorf("churn: load %s: %w", opts.DataPath, err)
	}
	if skipped > 0 && opts.Log != nil {
		opts.Log.WithField("skipped", skipped).Warn("skipped malformed churn records")
	}
	return t, opts.DataPath, nil
}

// Risk levels returned by Assess.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Assessment is the churn risk of one customer.
type Assessment struct {
	Probability float64
	Level       string
}

// Assess scores a record with a fitted classifier.
func Assess(clf model.Classifier, r Record) Assessment {
	p := clf.PredictProba([][]float64{r.Features()})[0]
	return Assessment{Probability: p, Level: RiskLevel(p)}
}

// RiskLevel buckets a churn probability.
func RiskLevel(p float64) string {
	switch {
	case p >= 0.7:
		return RiskHigh
	case p >= 0.4:
		return RiskMedium
	}
	return RiskLow
}

// LoadModel reads the persisted classifier for clinic.
func LoadModel(ctx context.Context, store artifact.Store, clinic string) (*model.GradientBoostingClassifier, error) {
	return trainer.LoadClassifier(ctx, store, ModelPrefix, clinic)
}
