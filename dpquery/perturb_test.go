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

package dpquery

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/google/differential-privacy/dpquery/dataset"
	"github.com/google/differential-privacy/dpquery/noise"
	"github.com/google/go-cmp/cmp"
)

func runFor(t *testing.T, e *Engine, d *dataset.Dataset, column string, mech noise.Kind) *Result {
	t.Helper()
	cfg := snapshot(mech, Sum)
	cfg.Column = column
	res, err := e.Run(cfg, d)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

// Scenario E.
func TestPerturbColumnKeepsMissingValues(t *testing.T) {
	d, err := dataset.New([]string{"id", "x", "note"}, [][]string{
		{"r1", "4", "first, quoted"},
		{"r2", "", "second"},
	})
	if err != nil {
		t.Fatalf("dataset.New: %v", err)
	}
	e := newTestEngine(t, 20)
	out, err := e.PerturbColumn(runFor(t, e, d, "x", noise.LaplaceNoise), d)
	if err != nil {
		t.Fatalf("PerturbColumn: %v", err)
	}
	if got, _ := out.Cell(1, "x"); got != "" {
		t.Errorf("missing value exported as %q, want empty", got)
	}
	if diff := cmp.Diff([]string{"r1", "first, quoted"}, []string{out.Row(0)[0], out.Row(0)[2]}); diff != "" {
		t.Errorf("non-target columns changed (-want +got):\n%s", diff)
	}
	cell, _ := out.Cell(0, "x")
	if _, err := strconv.ParseFloat(cell, 64); err != nil {
		t.Errorf("perturbed value %q is not a number: %v", cell, err)
	}
	if cell == "4" {
		t.Errorf("value was exported without noise")
	}
	if got, _ := d.Cell(0, "x"); got != "4" {
		t.Errorf("input dataset modified: Cell(0, x) = %q", got)
	}
}

func TestPerturbColumnTreatsNonNumericAsMissing(t *testing.T) {
	d := numbersDataset(t)
	e := newTestEngine(t, 21)
	out, err := e.PerturbColumn(runFor(t, e, d, "messy", noise.GaussianAnalyticNoise), d)
	if err != nil {
		t.Fatalf("PerturbColumn: %v", err)
	}
	for i, wantEmpty := range []bool{false, true, true, true, false} {
		got, _ := out.Cell(i, "messy")
		if (got == "") != wantEmpty {
			t.Errorf("row %d exported as %q, want empty %t", i, got, wantEmpty)
		}
	}
}

func TestPerturbColumnNoiseScale(t *testing.T) {
	// With bounds [0, 10] and ε = 1 every value gets Laplace(0, 10) noise,
	// so the perturbed values are rarely equal to the clipped input.
	const rows = 2000
	cells := make([][]string, rows)
	for i := range cells {
		cells[i] = []string{"20"} // clipped to 10
	}
	d, err := dataset.New([]string{"x"}, cells)
	if err != nil {
		t.Fatalf("dataset.New: %v", err)
	}
	e := newTestEngine(t, 22)
	out, err := e.PerturbColumn(runFor(t, e, d, "x", noise.LaplaceNoise), d)
	if err != nil {
		t.Fatalf("PerturbColumn: %v", err)
	}
	col, err := out.Numeric("x")
	if err != nil {
		t.Fatalf("Numeric: %v", err)
	}
	var sum, outside float64
	for _, v := range col.Retained() {
		sum += v
		if v < 0 || v > 10 {
			outside++
		}
	}
	// Laplace(0, 10) has standard deviation 10√2.
	tol := 4.41717 * 10 * math.Sqrt2 / math.Sqrt(rows)
	if mean := sum / rows; math.Abs(mean-10) > tol {
		t.Errorf("mean of perturbed values = %f, want 10 ± %f", mean, tol)
	}
	if outside == 0 {
		t.Errorf("no perturbed value left [0, 10]; output must not be clipped after noise")
	}
}

func TestPerturbColumnErrors(t *testing.T) {
	d := numbersDataset(t)
	e := newTestEngine(t, 23)
	_, err := e.PerturbColumn(nil, d)
	wantKind(t, err, ConfigurationError)

	res := runFor(t, e, d, "x", noise.LaplaceNoise)
	other, err := dataset.New([]string{"y"}, [][]string{{"1"}})
	if err != nil {
		t.Fatalf("dataset.New: %v", err)
	}
	_, err = e.PerturbColumn(res, other)
	wantKind(t, err, ConfigurationError)

	broken := *res
	broken.Epsilon = 0
	_, err = e.PerturbColumn(&broken, d)
	wantKind(t, err, MechanismError)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestExport(t *testing.T) {
	d := numbersDataset(t)
	e := newTestEngine(t, 24)
	res := runFor(t, e, d, "x", noise.LaplaceNoise)

	var buf bytes.Buffer
	if err := e.Export(res, d, &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	back, err := dataset.ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV of export: %v", err)
	}
	if diff := cmp.Diff(d.Header(), back.Header()); diff != "" {
		t.Errorf("exported header mismatch (-want +got):\n%s", diff)
	}
	if back.NumRows() != d.NumRows() {
		t.Errorf("exported %d rows, want %d", back.NumRows(), d.NumRows())
	}

	wantKind(t, e.Export(res, d, failingWriter{}), ExportError)
	wantKind(t, e.Export(nil, d, &buf), ConfigurationError)
}

func TestExportFile(t *testing.T) {
	d := numbersDataset(t)
	e := newTestEngine(t, 25)
	res := runFor(t, e, d, "x", noise.LaplaceNoise)
	dir := t.TempDir()

	path := filepath.Join(dir, "out.csv")
	if err := e.ExportFile(res, d, path); err != nil {
		t.Fatalf("ExportFile: %v", err)
	}
	back, err := dataset.LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if got, _ := back.Cell(2, "label"); got != "c" {
		t.Errorf("exported label = %q, want c", got)
	}

	wantKind(t, e.ExportFile(res, d, filepath.Join(dir, "missing", "out.csv")), ExportError)

	skipped := filepath.Join(dir, "skipped.csv")
	wantKind(t, e.ExportFile(nil, d, skipped), ConfigurationError)
	if _, err := os.Stat(skipped); !os.IsNotExist(err) {
		t.Errorf("ExportFile created %s despite failing", skipped)
	}
}

func TestFormatFloat(t *testing.T) {
	for _, tc := range []struct {
		v    float64
		want string
	}{
		{0, "0"},
		{12.5, "12.5"},
		{-3.25, "-3.25"},
		{0.0001, "0.0001"},
		{0.00001, "1e-05"},
		{123456789, "123456789"},
		{1e16, "1e+16"},
	} {
		if got := formatFloat(tc.v); got != tc.want {
			t.Errorf("formatFloat(%g) = %q, want %q", tc.v, got, tc.want)
		}
	}
}
