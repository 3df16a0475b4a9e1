package data

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrMissingColumn is returned when a CSV header lacks a required column.
var ErrMissingColumn = errors.New("data: missing column")

// ReadRecords reads a headed CSV and returns, for every data row, the
// values of columns in the requested order. Rows that are too short are
// skipped and counted.
func ReadRecords(r io.Reader, columns []string) (rows [][]string, skipped int, err error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("data: read header: %w", err)
	}
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(h)] = i
	}
	cols := make([]int, len(columns))
	for i, c := range columns {
		j, ok := pos[c]
		if !ok {
			return nil, 0, fmt.Errorf("%w %q", ErrMissingColumn, c)
		}
		cols[i] = j
	}

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("data: read row: %w", err)
		}
		out := make([]string, len(cols))
		ok := true
		for i, j := range cols {
			if j >= len(rec) {
				ok = false
				break
			}
			out[i] = strings.TrimSpace(rec[j])
		}
		if !ok {
			skipped++
			continue
		}
		rows = append(rows, out)
	}
	return rows, skipped, nil
}

// ReadTable parses a headed CSV into a Table using the schema's feature and
// label columns. Records with unparsable values are skipped and counted.
func ReadTable(r io.Reader, schema Schema) (*Table, int, error) {
	columns := append(append([]string(nil), schema.FeatureNames...), schema.Label)
	rows, skipped, err := ReadRecords(r, columns)
	if err != nil {
		return nil, skipped, err
	}

	t := &Table{Schema: schema}
	nf := len(schema.FeatureNames)
	for _, rec := range rows {
		x := make([]float64, nf)
		valid := true
		for i := range nf {
			v, err := strconv.ParseFloat(rec[i], 64)
			if err != nil {
				valid = false
				break
			}
			x[i] = v
		}
		if !valid {
			skipped++
			continue
		}
		y, err := ParseLabel(rec[nf])
		if err != nil {
			skipped++
			continue
		}
		t.X = append(t.X, x)
		t.Y = append(t.Y, y)
	}
	return t, skipped, nil
}

// ReadTableFile opens path and reads it with ReadTable.
func ReadTableFile(path string, schema Schema) (*Table, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()
	return ReadTable(file, schema)
}

// ParseLabel accepts 0/1 and boolean spellings.
func ParseLabel(s string) (int, error) {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "1.0":
		return 1, nil
	case "0", "false", "no", "0.0":
		return 0, nil
	}
	return 0, fmt.Errorf("data: invalid label %q", s)
}
