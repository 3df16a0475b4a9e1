// Package recommend fits the treatment recommender: a cosine nearest-neighbor
// index over the customer-by-treatment purchase matrix.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Nutonspeed/BN-Aura/internal/artifact"
	"github.com/Nutonspeed/BN-Aura/internal/config"
	"github.com/Nutonspeed/BN-Aura/internal/report"
	"github.com/Nutonspeed/BN-Aura/internal/trainer"
	"github.com/Nutonspeed/BN-Aura/pkg/core"
	"github.com/Nutonspeed/BN-Aura/pkg/model"
)

const (
	Program       = "treatment_recommender"
	IndexPrefix   = "treatment_recommender"
	MappingPrefix = "treatment_mappings"
)

// IndexKey and MappingKey are the artifact keys for clinic.
func IndexKey(clinic string) string   { return artifact.Key(IndexPrefix, clinic, "gob") }
func MappingKey(clinic string) string { return artifact.Key(MappingPrefix, clinic, "gob") }

// Model is a fitted recommender: the neighbor index and its id mapping.
type Model struct {
	Index   *model.NearestNeighbors
	Mapping *Mapping
}

// Fit builds the matrix from raw interactions and fits the index.
func Fit(rows []Interaction, k int) (*Model, report.MatrixStats, error) {
	agg := Aggregate(rows)
	dense, mapping, err := BuildMatrix(agg)
	if err != nil {
		return nil, report.MatrixStats{}, err
	}
	sparse := core.FromDense(dense)
	index := model.NewNearestNeighbors(k)
	if err := index.Fit(sparse); err != nil {
		return nil, report.MatrixStats{}, fmt.Errorf("recommend: fit index: %w", err)
	}
	stats := report.MatrixStats{
		Customers:    sparse.R,
		Treatments:   sparse.C,
		Interactions: len(rows),
		NonZero:      sparse.NNZ(),
		Sparsity:     1 - sparse.Density(),
	}
	return &Model{Index: index, Mapping: mapping}, stats, nil
}

// Recommendation is a treatment the customer has not bought yet, scored by
// similarity-weighted neighbor purchases.
type Recommendation struct {
	TreatmentID string
	Score       float64
}

// Recommend returns up to n treatments for customerID using k neighbors.
// An unknown customer yields an empty result.
func (m *Model) Recommend(customerID string, n, k int) ([]Recommendation, error) {
	row := m.Mapping.CustomerRow(customerID)
	if row < 0 || n <= 0 {
		return nil, nil
	}
	if k <= 0 {
		k = m.Index.K
	}
	query, err := m.Index.Row(row)
	if err != nil {
		return nil, err
	}
	// one extra neighbor because the customer is its own nearest match
	nbrs, err := m.Index.KNeighbors(query, k+1)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(m.Mapping.Treatments))
	used := 0
	for _, nb := range nbrs {
		if nb.Index == row || used == k {
			continue
		}
		used++
		sim := 1 - nb.Distance
		if sim <= 0 {
			continue
		}
		for j, v := range m.Index.X.Row(nb.Index) {
			if query[j] == 0 && v > 0 {
				scores[j] += sim * v
			}
		}
	}

	var out []Recommendation
	for j, s := range scores {
		if s > 0 {
			out = append(out, Recommendation{TreatmentID: m.Mapping.Treatments[j], Score: s})
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		return out[a].TreatmentID < out[b].TreatmentID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// Options configures Train.
type Options struct {
	Clinic   string
	Config   *config.Config
	DataPath string // CSV of interactions; empty => synthetic
	Store    artifact.Store
	Out      io.Writer
	Log      logrus.FieldLogger
}

// TrainResult describes a finished recommender run.
type TrainResult struct {
	RunID     string
	Model     *Model
	Stats     report.MatrixStats
	Artifacts []string
}

// Train fits the recommender and persists the index and the mapping.
func Train(ctx context.Context, opts Options) (*TrainResult, error) {
	if opts.Clinic == "" {
		return nil, fmt.Errorf("recommend: clinic id required")
	}
	cfg := opts.Config
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	res := &TrainResult{RunID: uuid.NewString()}
	log := fieldLogger(opts.Log).WithFields(logrus.Fields{
		"program": Program,
		"clinic":  opts.Clinic,
		"run_id":  res.RunID,
	})

	rows, source, err := loadInteractions(opts, cfg, log)
	if err != nil {
		return nil, err
	}
	m, stats, err := Fit(rows, cfg.Recommender.NNeighbors)
	if err != nil {
		return nil, err
	}
	res.Model, res.Stats = m, stats
	log.WithFields(logrus.Fields{
		"customers":  stats.Customers,
		"treatments": stats.Treatments,
		"non_zero":   stats.NonZero,
	}).Info("neighbor index fitted")

	report.PrintMatrix(out, "Treatment Recommender", stats)

	if err := artifact.SaveBinary(ctx, opts.Store, IndexKey(opts.Clinic), m.Index); err != nil {
		return nil, fmt.Errorf("recommend: save index: %w", err)
	}
	if err := artifact.SaveBinary(ctx, opts.Store, MappingKey(opts.Clinic), m.Mapping); err != nil {
		return nil, fmt.Errorf("recommend: save mapping: %w", err)
	}
	res.Artifacts = []string{
		opts.Store.Location(IndexKey(opts.Clinic)),
		opts.Store.Location(MappingKey(opts.Clinic)),
	}

	summary := &report.Summary{
		RunID:     res.RunID,
		Program:   Program,
		Clinic:    opts.Clinic,
		TrainedAt: time.Now().UTC(),
		Seed:      cfg.Seed,
		Source:    source,
		Matrix:    &stats,
		Artifacts: res.Artifacts,
	}
	if err := trainer.SaveSummary(ctx, opts.Store, summary); err != nil {
		return nil, err
	}
	for _, a := range res.Artifacts {
		fmt.Fprintf(out, "Saved %s\n", a)
	}
	log.Info("training complete")
	return res, nil
}

func loadInteractions(opts Options, cfg *config.Config, log logrus.FieldLogger) ([]Interaction, string, error) {
	if opts.DataPath == "" {
		rng := rand.New(rand.NewSource(cfg.Seed))
		rc := cfg.Recommender
		return GenerateInteractions(rng, rc.Customers, rc.Treatments, rc.Interactions), "synthetic", nil
	}
	rows, skipped, err := ReadInteractionsFile(opts.DataPath)
	if err != nil {
		return nil, "", fmt.Errorf("recommend: load %s: %w", opts.DataPath, err)
	}
	if skipped > 0 {
		log.WithField("skipped", skipped).Warn("skipped malformed interaction rows")
	}
	return rows, opts.DataPath, nil
}

// Load reads the persisted index and mapping for clinic.
func Load(ctx context.Context, store artifact.Store, clinic string) (*Model, error) {
	m := &Model{Index: &model.NearestNeighbors{}, Mapping: &Mapping{}}
	if err := artifact.LoadBinary(ctx, store, IndexKey(clinic), m.Index); err != nil {
		return nil, err
	}
	if err := artifact.LoadBinary(ctx, store, MappingKey(clinic), m.Mapping); err != nil {
		return nil, err
	}
	if m.Index.X == nil || m.Index.X.R != len(m.Mapping.Customers) {
		return nil, fmt.Errorf("recommend: index and mapping for %s disagree", clinic)
	}
	return m, nil
}

// QueryOptions configures Recommend.
type QueryOptions struct {
	Clinic     string
	CustomerID string
	N          int // recommendations to return
	K          int // neighbors to consult; 0 uses the fitted default
	Store      artifact.Store
	Log        logrus.FieldLogger
}

// Recommend loads the clinic's artifacts and recommends treatments for one
// customer. A clinic without a trained recommender and an unknown customer
// both produce a logged message, an empty result and a nil error.
func Recommend(ctx context.Context, q QueryOptions) ([]Recommendation, error) {
	log := fieldLogger(q.Log).WithFields(logrus.Fields{
		"clinic":   q.Clinic,
		"customer": q.CustomerID,
	})
	trained, err := q.Store.Exists(ctx, IndexKey(q.Clinic))
	if err != nil {
		return nil, err
	}
	if !trained {
		log.WithField("artifact", q.Store.Location(IndexKey(q.Clinic))).Warn("no recommender trained for clinic")
		return nil, nil
	}
	m, err := Load(ctx, q.Store, q.Clinic)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			log.WithError(err).Warn("recommender artifacts incomplete for clinic")
			return nil, nil
		}
		return nil, err
	}
	if m.Mapping.CustomerRow(q.CustomerID) < 0 {
		log.Info("customer not found in interaction matrix")
		return nil, nil
	}
	return m.Recommend(q.CustomerID, q.N, q.K)
}

func fieldLogger(l logrus.FieldLogger) logrus.FieldLogger {
	if l == nil {
		return logrus.StandardLogger()
	}
	return l
}
