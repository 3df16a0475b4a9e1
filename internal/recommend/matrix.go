package recommend

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/Nutonspeed/BN-Aura/pkg/data"
)

// ErrNoInteractions is returned when there is nothing to build a matrix from.
var ErrNoInteractions = errors.New("recommend: no interactions")

// Interaction is a purchase count of one treatment by one customer.
type Interaction struct {
	CustomerID  string
	TreatmentID string
	Count       int
}

// GenerateInteractions simulates rows purchase events over the given number
// of customers and treatments. Counts are uniform in [1,5].
func GenerateInteractions(rng *rand.Rand, customers, treatments, rows int) []Interaction {
	out := make([]Interaction, rows)
	for i := range out {
		out[i] = Interaction{
			CustomerID:  fmt.Sprintf("CUST_%04d", 1+rng.Intn(customers)),
			TreatmentID: fmt.Sprintf("TRT_%03d", 1+rng.Intn(treatments)),
			Count:       1 + rng.Intn(5),
		}
	}
	return out
}

// Aggregate sums counts per (customer, treatment) pair. The result is sorted
// by customer then treatment.
func Aggregate(rows []Interaction) []Interaction {
	type pairKey struct{ c, t string }
	sums := map[pairKey]int{}
	for _, r := range rows {
		sums[pairKey{r.CustomerID, r.TreatmentID}] += r.Count
	}
	out := make([]Interaction, 0, len(sums))
	for k, v := range sums {
		out = append(out, Interaction{CustomerID: k.c, TreatmentID: k.t, Count: v})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].CustomerID != out[b].CustomerID {
			return out[a].CustomerID < out[b].CustomerID
		}
		return out[a].TreatmentID < out[b].TreatmentID
	})
	return out
}

// Mapping translates matrix rows to customer ids and columns to treatment ids.
type Mapping struct {
	Customers  []string
	Treatments []string
}

// CustomerRow returns the row of id, or -1.
func (m *Mapping) CustomerRow(id string) int {
	i := sort.SearchStrings(m.Customers, id)
	if i < len(m.Customers) && m.Customers[i] == id {
		return i
	}
	return -1
}

func (m *Mapping) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	type wire Mapping
	if err := gob.NewEncoder(&buf).Encode((*wire)(m)); err != nil {
		return nil, fmt.Errorf("recommend: encode mapping: %w", err)
	}
	return buf.Bytes(), nil
}

func (m *Mapping) UnmarshalBinary(b []byte) error {
	type wire Mapping
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode((*wire)(m)); err != nil {
		return fmt.Errorf("recommend: decode mapping: %w", err)
	}
	return nil
}

// BuildMatrix pivots aggregated interactions into a dense customer-by-treatment
// matrix. Rows and columns follow the sorted distinct ids; missing pairs are 0.
func BuildMatrix(agg []Interaction) (*mat.Dense, *Mapping, error) {
	if len(agg) == 0 {
		return nil, nil, ErrNoInteractions
	}
	cs, ts := map[string]struct{}{}, map[string]struct{}{}
	for _, r := range agg {
		cs[r.CustomerID] = struct{}{}
		ts[r.TreatmentID] = struct{}{}
	}
	m := &Mapping{Customers: sortedKeys(cs), Treatments: sortedKeys(ts)}

	col := make(map[string]int, len(m.Treatments))
	for j, t := range m.Treatments {
		col[t] = j
	}
	d := mat.NewDense(len(m.Customers), len(m.Treatments), nil)
	for _, r := range agg {
		i, j := m.CustomerRow(r.CustomerID), col[r.TreatmentID]
		d.Set(i, j, d.At(i, j)+float64(r.Count))
	}
	return d, m, nil
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// InteractionColumns is the CSV header expected by ReadInteractions.
var InteractionColumns = []string{"customer_id", "treatment_id", "purchase_count"}

// ReadInteractionsFile loads interaction rows from a headed CSV. Rows with a
// non-integer or non-positive count are skipped and counted.
func ReadInteractionsFile(path string) ([]Interaction, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	recs, skipped, err := data.ReadRecords(f, InteractionColumns)
	if err != nil {
		return nil, skipped, err
	}
	out := make([]Interaction, 0, len(recs))
	for _, r := range recs {
		n, err := strconv.Atoi(r[2])
		if err != nil || n <= 0 || r[0] == "" || r[1] == "" {
			skipped++
			continue
		}
		out = append(out, Interaction{CustomerID: r[0], TreatmentID: r[1], Count: n})
	}
	return out, skipped, nil
}
