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
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	log "github.com/golang/glog"
	"github.com/google/differential-privacy/dpquery/dataset"
	"github.com/google/differential-privacy/dpquery/dpagg"
	"github.com/google/differential-privacy/dpquery/noise"
)

// PerturbColumn returns a copy of d in which every value of the column of res
// is clipped into the bounds of res and perturbed independently. Missing and
// non-numeric cells become empty. Other columns are copied unchanged and d is
// not modified.
//
// The noise is calibrated to a sensitivity of max - min with the mechanism, ε
// and δ of res, which must come from a successful Run.
func (e *Engine) PerturbColumn(res *Result, d *dataset.Dataset) (*dataset.Dataset, error) {
	if res == nil {
		return nil, &Error{Kind: ConfigurationError, Message: "no successful result to export; run a query first"}
	}
	if d == nil || !d.HasColumn(res.Column) {
		return nil, &Error{Kind: ConfigurationError, Message: fmt.Sprintf("column not found: %s", res.Column)}
	}
	lower, upper := res.Bounds.Min, res.Bounds.Max
	m, err := noise.New(res.Mechanism, &noise.Options{
		Epsilon:     res.Epsilon,
		Delta:       res.delta(),
		Sensitivity: upper - lower,
		Source:      e.src,
	})
	if err != nil {
		return nil, newError(MechanismError, err, "building %s mechanism for export failed", res.Mechanism)
	}

	col, err := d.Numeric(res.Column)
	if err != nil {
		return nil, newError(DataError, err, "converting column %q to numbers failed", res.Column)
	}
	cells := make([]string, len(col.Values))
	for i, v := range col.Values {
		if !col.Valid[i] {
			continue
		}
		clipped, err := dpagg.ClampFloat64(v, lower, upper)
		if err != nil {
			return nil, newError(ConfigurationError, err, "invalid bounds")
		}
		cells[i] = formatFloat(m.Perturb(clipped))
	}
	out, err := d.WithColumn(res.Column, cells)
	if err != nil {
		return nil, newError(DataError, err, "replacing column %q failed", res.Column)
	}
	log.V(1).Infof("dpquery: perturbed %d of %d values of %q with %s", col.NumValid(), len(cells), res.Column, m)
	return out, nil
}

// Export perturbs the column of res in d and writes the result to w as CSV.
func (e *Engine) Export(res *Result, d *dataset.Dataset, w io.Writer) error {
	out, err := e.PerturbColumn(res, d)
	if err != nil {
		return err
	}
	if err := out.WriteCSV(w); err != nil {
		return newError(ExportError, err, "writing perturbed dataset failed")
	}
	return nil
}

// ExportFile perturbs the column of res in d and writes the result to the CSV
// file at path. No file is created when the perturbation fails.
func (e *Engine) ExportFile(res *Result, d *dataset.Dataset, path string) error {
	out, err := e.PerturbColumn(res, d)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return newError(ExportError, err, "creating %s failed", path)
	}
	if err := out.WriteCSV(f); err != nil {
		f.Close()
		return newError(ExportError, err, "writing %s failed", path)
	}
	if err := f.Close(); err != nil {
		return newError(ExportError, err, "writing %s failed", path)
	}
	return nil
}

// formatFloat renders v in positional notation between 1e-4 and 1e16 and in
// exponent notation outside, using the fewest digits that round-trip.
func formatFloat(v float64) string {
	if a := math.Abs(v); a == 0 || (a >= 1e-4 && a < 1e16) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
