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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/differential-privacy/dpquery/noise"
)

// Bounds is the clipping range [Min, Max].
type Bounds struct {
	Min, Max float64
}

// MarshalJSON encodes the bounds as a two-element array.
func (b Bounds) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{b.Min, b.Max})
}

// Result is the outcome of a successful Engine.Run. Scalar queries set Value;
// the histogram query sets Hist and BinEdges.
type Result struct {
	Epsilon   float64    `json:"epsilon"`
	Mechanism noise.Kind `json:"mechanism"`
	Query     Query      `json:"query"`
	Column    string     `json:"column"`
	Bounds    Bounds     `json:"bounds"`
	Delta     *float64   `json:"delta,omitempty"` // Set for Gaussian noise only.
	Value     *float64   `json:"value,omitempty"`
	Hist      []float64  `json:"hist,omitempty"`
	BinEdges  []float64  `json:"bin_edges,omitempty"`

	// Sensitivity is the sensitivity the noise was calibrated to, per bin for
	// histograms.
	Sensitivity float64 `json:"sensitivity"`
	// NoiseScale is b = Δ/ε for Laplace noise and σ for Gaussian noise.
	NoiseScale float64 `json:"noise_scale"`
	// N is the number of values retained after dropping missing and
	// non-numeric entries.
	N int `json:"n"`
}

// delta returns δ, or 0 for mechanisms that do not use it.
func (r *Result) delta() float64 {
	if r.Delta == nil {
		return 0
	}
	return *r.Delta
}

// ConfidenceInterval returns an interval that contains the raw statistic with
// probability 1 - alpha. It is only defined for scalar queries.
func (r *Result) ConfidenceInterval(alpha float64) (noise.ConfidenceInterval, error) {
	if r.Value == nil {
		return noise.ConfidenceInterval{}, fmt.Errorf("ConfidenceInterval: %s result has no scalar value", r.Query)
	}
	return noise.ConfidenceIntervalFor(r.Mechanism, r.NoiseScale, *r.Value, alpha)
}

// Envelope is the response shape handed to presentation layers.
type Envelope struct {
	OK      bool    `json:"ok"`
	Message string  `json:"message"`
	Result  *Result `json:"result"`
	Failure *Error  `json:"failure,omitempty"`
}

// Response wraps the return values of Engine.Run. Errors that are not *Error
// are reported as MechanismError.
func Response(res *Result, err error) Envelope {
	if err != nil {
		var e *Error
		if !errors.As(err, &e) {
			e = newError(MechanismError, err, "computation failed")
		}
		return Envelope{OK: false, Message: e.Message, Failure: e}
	}
	if res == nil {
		e := &Error{Kind: MechanismError, Message: "no result"}
		return Envelope{OK: false, Message: e.Message, Failure: e}
	}
	msg := "differentially private computation completed"
	if res.Query == Histogram {
		msg = fmt.Sprintf("differentially private %s histogram completed", res.Mechanism)
	}
	return Envelope{OK: true, Message: msg, Result: res}
}
