//
// Copyright 2020 Google LLC
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

package dpagg

import (
	"fmt"
	"math"

	log "github.com/golang/glog"
	"github.com/google/differential-privacy/dpquery/noise"
	"github.com/google/differential-privacy/dpquery/rand"
)

// BoundedSum calculates a differentially private sum of a collection of float64
// values.
//
// Each value is clamped into [Lower, Upper] before it is added, so a single
// value changes the sum by at most Upper - Lower, which is the sensitivity
// the noise is calibrated to.
//
// Not thread-safe.
type BoundedSum struct {
	// Parameters
	params
	lower float64
	upper float64

	// State variables
	sum   float64
	count int64
	state aggregationState
}

// BoundedSumOptions contains the options necessary to initialize a BoundedSum.
type BoundedSumOptions struct {
	Epsilon float64    // Privacy parameter ε. Required.
	Delta   float64    // Privacy parameter δ. Required with Gaussian noise, ignored with Laplace noise.
	Lower   float64    // Lower bound on the values added. Required.
	Upper   float64    // Upper bound on the values added. Required, must be greater than Lower.
	Noise   noise.Kind // Type of noise used. Defaults to Laplace noise.
	// Source of randomness for the noise draws. Defaults to rand.Default().
	Source *rand.Source
}

// NewBoundedSum returns a new BoundedSum, initialized at 0.
func NewBoundedSum(opt *BoundedSumOptions) (*BoundedSum, error) {
	if opt == nil {
		opt = &BoundedSumOptions{} // Prevents panicking due to a nil pointer dereference.
	}
	p := params{epsilon: opt.Epsilon, delta: opt.Delta, noiseKind: noiseKindOrDefault(opt.Noise), src: opt.Source}
	if err := checkBoundsAndParams(opt.Lower, opt.Upper, p); err != nil {
		return nil, fmt.Errorf("NewBoundedSum: %w", err)
	}
	return &BoundedSum{params: p, lower: opt.Lower, upper: opt.Upper}, nil
}

// Add clamps e into the bounds and adds it to the sum. NaN values are ignored.
func (bs *BoundedSum) Add(e float64) error {
	if err := checkState(bs.state); err != nil {
		return fmt.Errorf("BoundedSum.Add: %w", err)
	}
	if math.IsNaN(e) {
		log.V(2).Infof("BoundedSum.Add: ignoring NaN")
		return nil
	}
	clamped, err := ClampFloat64(e, bs.lower, bs.upper)
	if err != nil {
		return fmt.Errorf("BoundedSum.Add: %w", err)
	}
	bs.sum += clamped
	bs.count++
	return nil
}

// RawSum returns the sum of the clamped values without noise.
func (bs *BoundedSum) RawSum() float64 { return bs.sum }

// Count returns the number of values added so far.
func (bs *BoundedSum) Count() int64 { return bs.count }

// Sensitivity returns Upper - Lower.
func (bs *BoundedSum) Sensitivity() float64 { return bs.upper - bs.lower }

// Mechanism returns the noise mechanism the result is perturbed with.
func (bs *BoundedSum) Mechanism() (noise.Mechanism, error) {
	return bs.mechanism(bs.Sensitivity())
}

// Result returns a differentially private estimate of the sum of the values
// added. The method can be called only once.
//
// The returned value is not clamped to [Lower * n, Upper * n].
func (bs *BoundedSum) Result() (float64, error) {
	if err := checkState(bs.state); err != nil {
		return 0, fmt.Errorf("BoundedSum.Result: %w", err)
	}
	m, err := bs.Mechanism()
	if err != nil {
		return 0, fmt.Errorf("BoundedSum.Result: %w", err)
	}
	bs.state = resultReturned
	return m.Perturb(bs.sum), nil
}
