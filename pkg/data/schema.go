package data

import "fmt"

// Schema describes the columns of a labelled training table.
type Schema struct {
	FeatureNames []string
	Label        string
}

// Table is a dense feature matrix with 0/1 labels aligned to a Schema.
type Table struct {
	Schema Schema
	X      [][]float64
	Y      []int
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.X) }

// Validate checks that every row matches the schema width and has a label.
func (t *Table) Validate() error {
	if len(t.X) != len(t.Y) {
		return fmt.Errorf("data: %d rows but %d labels", len(t.X), len(t.Y))
	}
	for i, row := range t.X {
		if len(row) != len(t.Schema.FeatureNames) {
			return fmt.Errorf("data: row %d has %d features, schema has %d", i, len(row), len(t.Schema.FeatureNames))
		}
	}
	return nil
}

// Positives counts rows labelled 1.
func (t *Table) Positives() int {
	n := 0
	for _, y := range t.Y {
		if y == 1 {
			n++
		}
	}
	return n
}
