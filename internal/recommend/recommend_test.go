package recommend_test

import (
	"bytes"
	"context"
	"errors"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/Nutonspeed/BN-Aura/internal/artifact"
	"github.com/Nutonspeed/BN-Aura/internal/config"
	"github.com/Nutonspeed/BN-Aura/internal/logger"
	"github.com/Nutonspeed/BN-Aura/internal/recommend"
)

// A bought T1,T2; B bought T1,T2,T3; C only T4.
var handRows = []recommend.Interaction{
	{CustomerID: "A", TreatmentID: "T1", Count: 1},
	{CustomerID: "A", TreatmentID: "T1", Count: 1},
	{CustomerID: "A", TreatmentID: "T2", Count: 1},
	{CustomerID: "B", TreatmentID: "T1", Count: 1},
	{CustomerID: "B", TreatmentID: "T2", Count: 1},
	{CustomerID: "B", TreatmentID: "T3", Count: 3},
	{CustomerID: "C", TreatmentID: "T4", Count: 5},
}

func TestAggregate(t *testing.T) {
	agg := recommend.Aggregate(handRows)
	if len(agg) != 6 {
		t.Fatalf("pairs = %d, want 6", len(agg))
	}
	if agg[0] != (recommend.Interaction{CustomerID: "A", TreatmentID: "T1", Count: 2}) {
		t.Errorf("first pair = %+v, want A/T1 summed to 2", agg[0])
	}
}

func TestBuildMatrix(t *testing.T) {
	d, m, err := recommend.BuildMatrix(recommend.Aggregate(handRows))
	if err != nil {
		t.Fatalf("BuildMatrix: %v", err)
	}
	if r, c := d.Dims(); r != 3 || c != 4 {
		t.Fatalf("dims = %dx%d, want 3x4", r, c)
	}
	if d.At(0, 0) != 2 || d.At(1, 2) != 3 || d.At(2, 3) != 5 || d.At(0, 3) != 0 {
		t.Errorf("unexpected cells:\n%v", d.RawMatrix().Data)
	}
	if m.CustomerRow("B") != 1 || m.CustomerRow("Z") != -1 {
		t.Errorf("CustomerRow lookups wrong: %v", m.Customers)
	}

	if _, _, err := recommend.BuildMatrix(nil); !errors.Is(err, recommend.ErrNoInteractions) {
		t.Errorf("empty err = %v, want ErrNoInteractions", err)
	}
}

func TestModelRecommend(t *testing.T) {
	m, stats, err := recommend.Fit(handRows, 2)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if stats.Customers != 3 || stats.Treatments != 4 || stats.NonZero != 6 || stats.Interactions != 7 {
		t.Errorf("stats = %+v", stats)
	}
	if math.Abs(stats.Sparsity-0.5) > 1e-12 {
		t.Errorf("sparsity = %g, want 0.5", stats.Sparsity)
	}

	recs, err := m.Recommend("A", 5, 2)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	// only B is similar to A, and B's unique purchase is T3
	if len(recs) != 1 || recs[0].TreatmentID != "T3" {
		t.Fatalf("recs = %+v, want [T3]", recs)
	}
	want := 3 * 3 / math.Sqrt(5*11)
	if math.Abs(recs[0].Score-want) > 1e-9 {
		t.Errorf("score = %g, want %g", recs[0].Score, want)
	}

	// C shares nothing with anyone
	if recs, _ := m.Recommend("C", 5, 2); len(recs) != 0 {
		t.Errorf("C recs = %+v, want none", recs)
	}
	if recs, err := m.Recommend("nobody", 5, 2); err != nil || len(recs) != 0 {
		t.Errorf("unknown customer = %v, %v", recs, err)
	}
	if recs, _ := m.Recommend("A", 0, 2); len(recs) != 0 {
		t.Errorf("n=0 returned %v", recs)
	}
}

func TestRecommendExcludesPurchased(t *testing.T) {
	rows := recommend.GenerateInteractions(rand.New(rand.NewSource(42)), 30, 10, 150)
	m, _, err := recommend.Fit(rows, 5)
	if err != nil {
		t.Fatal(err)
	}

	bought := map[string]map[string]bool{}
	for _, r := range rows {
		if bought[r.CustomerID] == nil {
			bought[r.CustomerID] = map[string]bool{}
		}
		bought[r.CustomerID][r.TreatmentID] = true
	}

	for _, c := range m.Mapping.Customers {
		recs, err := m.Recommend(c, 3, 0)
		if err != nil {
			t.Fatalf("Recommend(%s): %v", c, err)
		}
		if len(recs) > 3 {
			t.Errorf("%s: %d recs, want at most 3", c, len(recs))
		}
		for i, r := range recs {
			if bought[c][r.TreatmentID] {
				t.Errorf("%s: recommended purchased treatment %s", c, r.TreatmentID)
			}
			if r.Score <= 0 {
				t.Errorf("%s: non-positive score %g", c, r.Score)
			}
			if i > 0 && r.Score > recs[i-1].Score {
				t.Errorf("%s: scores not descending", c)
			}
		}
	}
}

func TestMappingMatchesDistinctIDs(t *testing.T) {
	rows := recommend.GenerateInteractions(rand.New(rand.NewSource(7)), 100, 20, 500)
	m, _, err := recommend.Fit(rows, 5)
	if err != nil {
		t.Fatal(err)
	}
	cs, ts := map[string]bool{}, map[string]bool{}
	for _, r := range rows {
		cs[r.CustomerID] = true
		ts[r.TreatmentID] = true
		if r.Count < 1 || r.Count > 5 {
			t.Errorf("count %d out of range", r.Count)
		}
	}
	if len(m.Mapping.Customers) != len(cs) || len(m.Mapping.Treatments) != len(ts) {
		t.Errorf("mapping %d x %d, want %d x %d", len(m.Mapping.Customers), len(m.Mapping.Treatments), len(cs), len(ts))
	}
	if !sort.StringsAreSorted(m.Mapping.Customers) || !sort.StringsAreSorted(m.Mapping.Treatments) {
		t.Error("mapping ids are not sorted")
	}
	if m.Index.X.R != len(cs) || m.Index.X.C != len(ts) {
		t.Errorf("index %dx%d", m.Index.X.R, m.Index.X.C)
	}
}

func TestTrainLoadRecommend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := artifact.NewFileStore(dir)
	var out bytes.Buffer

	res, err := recommend.Train(ctx, recommend.Options{
		Clinic: "clinic_001",
		Config: config.Default(),
		Store:  store,
		Out:    &out,
		Log:    logger.Discard(),
	})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if res.Stats.Interactions != 500 || res.Stats.Customers > 100 || res.Stats.Treatments > 20 {
		t.Errorf("stats = %+v", res.Stats)
	}
	for _, name := range []string{
		"treatment_recommender_clinic_001.gob",
		"treatment_mappings_clinic_001.gob",
		"treatment_recommender_report_clinic_001.yaml",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("artifact %s: %v", name, err)
		}
	}
	if !strings.Contains(out.String(), "Matrix shape") {
		t.Errorf("output = %q", out.String())
	}

	loaded, err := recommend.Load(ctx, store, "clinic_001")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	customer := loaded.Mapping.Customers[0]
	want, _ := res.Model.Recommend(customer, 5, 0)

	got, err := recommend.Recommend(ctx, recommend.QueryOptions{
		Clinic:     "clinic_001",
		CustomerID: customer,
		N:          5,
		Store:      store,
		Log:        logger.Discard(),
	})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("loaded recs %v, trained recs %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("rec %d: %+v vs %+v", i, got[i], want[i])
		}
	}

	unknown, err := recommend.Recommend(ctx, recommend.QueryOptions{
		Clinic: "clinic_001", CustomerID: "CUST_9999", N: 5, Store: store, Log: logger.Discard(),
	})
	if err != nil || len(unknown) != 0 {
		t.Errorf("unknown customer = %v, %v; want empty and nil", unknown, err)
	}
}

func TestRecommendWithoutArtifacts(t *testing.T) {
	ctx := context.Background()
	store := artifact.NewFileStore(t.TempDir())
	query := recommend.QueryOptions{
		Clinic:     "untrained",
		CustomerID: "CUST_0001",
		N:          5,
		Store:      store,
		Log:        logger.Discard(),
	}

	recs, err := recommend.Recommend(ctx, query)
	if err != nil {
		t.Errorf("err = %v, want nil for an untrained clinic", err)
	}
	if len(recs) != 0 {
		t.Errorf("recs = %v, want empty", recs)
	}

	// an index without its mapping is treated the same way
	m, _, err := recommend.Fit(handRows, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := artifact.SaveBinary(ctx, store, recommend.IndexKey("untrained"), m.Index); err != nil {
		t.Fatal(err)
	}
	query.CustomerID = "A"
	recs, err = recommend.Recommend(ctx, query)
	if err != nil || len(recs) != 0 {
		t.Errorf("index without mapping = %v, %v; want empty and nil", recs, err)
	}

	if _, err := recommend.Load(ctx, artifact.NewFileStore(t.TempDir()), "untrained"); !errors.Is(err, artifact.ErrNotFound) {
		t.Errorf("Load err = %v, want ErrNotFound", err)
	}
}

func TestReadInteractionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "interactions.csv")
	body := "customer_id,treatment_id,purchase_count\n" +
		"A,T1,2\n" +
		"B,T2,x\n" +
		"C,T3,0\n" +
		",T4,1\n" +
		"D\n" +
		"E,T5,4\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	rows, skipped, err := recommend.ReadInteractionsFile(path)
	if err != nil {
		t.Fatalf("ReadInteractionsFile: %v", err)
	}
	if len(rows) != 2 || skipped != 4 {
		t.Errorf("rows=%d skipped=%d, want 2 and 4", len(rows), skipped)
	}

	res, err := recommend.Train(context.Background(), recommend.Options{
		Clinic:   "csv",
		Config:   config.Default(),
		DataPath: path,
		Store:    artifact.NewFileStore(t.TempDir()),
		Log:      logger.Discard(),
	})
	if err != nil {
		t.Fatalf("Train from CSV: %v", err)
	}
	if res.Stats.Customers != 2 || res.Stats.Treatments != 2 {
		t.Errorf("stats = %+v", res.Stats)
	}
}
