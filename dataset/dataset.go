//
// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

// Package dataset holds tabular data read from CSV files.
//
// Cells are kept as the exact strings read from the source so that columns
// which are not rewritten are written back unchanged. Numeric views of a
// column report missing and non-numeric cells positionally instead of
// dropping them.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	log "github.com/golang/glog"
)

// Dataset is an immutable table with named columns.
type Dataset struct {
	header []string
	index  map[string]int
	rows   [][]string
}

// New returns a Dataset with the given header and rows. Every row must have
// one cell per column. The slices are copied.
func New(header []string, rows [][]string) (*Dataset, error) {
	if len(header) == 0 {
		return nil, errors.New("dataset.New: header is empty")
	}
	h := append([]string(nil), header...)
	index := indexColumns(h)
	rs := make([][]string, len(rows))
	for i, r := range rows {
		if len(r) != len(h) {
			return nil, fmt.Errorf("dataset.New: row %d has %d cells, want %d", i+1, len(r), len(h))
		}
		rs[i] = append([]string(nil), r...)
	}
	return &Dataset{header: h, index: index, rows: rs}, nil
}

// indexColumns maps column names to positions. Repeated names are suffixed
// with ".1", ".2", ... in place.
func indexColumns(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		if _, dup := index[name]; dup {
			for n := 1; ; n++ {
				renamed := fmt.Sprintf("%s.%d", name, n)
				if _, taken := index[renamed]; !taken {
					log.Warningf("dataset: duplicate column %q renamed to %q", name, renamed)
					name = renamed
					header[i] = renamed
					break
				}
			}
		}
		index[name] = i
	}
	return index
}

// ReadCSV reads a comma-separated table whose first record is the header.
func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("dataset.ReadCSV: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("dataset.ReadCSV: no header row")
	}
	// Strip a UTF-8 byte order mark left by spreadsheet exports.
	records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	d, err := New(records[0], records[1:])
	if err != nil {
		return nil, fmt.Errorf("dataset.ReadCSV: %w", err)
	}
	return d, nil
}

// LoadCSV reads the CSV file at path.
func LoadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset.LoadCSV: %w", err)
	}
	defer f.Close()
	d, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("dataset.LoadCSV %s: %w", path, err)
	}
	log.V(1).Infof("dataset: loaded %s with %d columns and %d rows", path, len(d.header), len(d.rows))
	return d, nil
}

// Header returns the column names in order.
func (d *Dataset) Header() []string {
	return append([]string(nil), d.header...)
}

// NumRows returns the number of data rows.
func (d *Dataset) NumRows() int { return len(d.rows) }

// HasColumn reports whether the dataset has a column with the given name.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Row returns a copy of the i-th data row.
func (d *Dataset) Row(i int) []string {
	return append([]string(nil), d.rows[i]...)
}

// Cell returns the raw cell of the given row and column.
func (d *Dataset) Cell(row int, column string) (string, bool) {
	c, ok := d.index[column]
	if !ok || row < 0 || row >= len(d.rows) {
		return "", false
	}
	return d.rows[row][c], true
}

// NumericColumn is a numeric view of one column. Values[i] is meaningful only
// when Valid[i] is true.
type NumericColumn struct {
	Values []float64
	Valid  []bool
}

// Retained returns the valid values in row order.
func (c NumericColumn) Retained() []float64 {
	out := make([]float64, 0, len(c.Values))
	for i, v := range c.Values {
		if c.Valid[i] {
			out = append(out, v)
		}
	}
	return out
}

// NumValid returns the number of valid entries.
func (c NumericColumn) NumValid() int {
	n := 0
	for _, ok := range c.Valid {
		if ok {
			n++
		}
	}
	return n
}

// Numeric coerces the named column to numbers. Missing and non-numeric cells
// are reported as invalid.
func (d *Dataset) Numeric(name string) (NumericColumn, error) {
	c, ok := d.index[name]
	if !ok {
		return NumericColumn{}, fmt.Errorf("dataset: column %q not found", name)
	}
	col := NumericColumn{
		Values: make([]float64, len(d.rows)),
		Valid:  make([]bool, len(d.rows)),
	}
	for i, r := range d.rows {
		col.Values[i], col.Valid[i] = ParseNumber(r[c])
	}
	return col, nil
}

// missingTokens are the cell values read as missing, following the defaults
// of common dataframe libraries.
var missingTokens = map[string]bool{
	"":         true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"-1.#IND":  true,
	"-1.#QNAN": true,
	"-NaN":     true,
	"-nan":     true,
	"1.#IND":   true,
	"1.#QNAN":  true,
	"<NA>":     true,
	"N/A":      true,
	"NA":       true,
	"NULL":     true,
	"NaN":      true,
	"None":     true,
	"n/a":      true,
	"nan":      true,
	"null":     true,
}

// IsMissing reports whether a raw cell denotes a missing value.
func IsMissing(cell string) bool {
	return missingTokens[strings.TrimSpace(cell)]
}

// ParseNumber parses a raw cell as a float64. It reports false for missing
// cells, cells that are not numbers and NaN. Infinities are valid.
func ParseNumber(cell string) (float64, bool) {
	if IsMissing(cell) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		// Out-of-range literals parse to ±Inf alongside ErrRange.
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return v, true
		}
		return 0, false
	}
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// WithColumn returns a copy of d in which the named column holds cells. d is
// not modified.
func (d *Dataset) WithColumn(name string, cells []string) (*Dataset, error) {
	c, ok := d.index[name]
	if !ok {
		return nil, fmt.Errorf("dataset.WithColumn: column %q not found", name)
	}
	if len(cells) != len(d.rows) {
		return nil, fmt.Errorf("dataset.WithColumn: got %d cells for %d rows", len(cells), len(d.rows))
	}
	rows := make([][]string, len(d.rows))
	for i, r := range d.rows {
		row := append([]string(nil), r...)
		row[c] = cells[i]
		rows[i] = row
	}
	index := make(map[string]int, len(d.index))
	for k, v := range d.index {
		index[k] = v
	}
	return &Dataset{header: append([]string(nil), d.header...), index: index, rows: rows}, nil
}

// WriteCSV writes the header and all rows to w.
func (d *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.header); err != nil {
		return fmt.Errorf("dataset.WriteCSV: %w", err)
	}
	if err := cw.WriteAll(d.rows); err != nil {
		return fmt.Errorf("dataset.WriteCSV: %w", err)
	}
	return nil
}

// SaveCSV writes the dataset to the file at path, replacing it.
func (d *Dataset) SaveCSV(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dataset.SaveCSV: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("dataset.SaveCSV: %w", cerr)
		}
	}()
	return d.WriteCSV(f)
}
