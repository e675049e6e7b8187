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

	"github.com/google/differential-privacy/dpquery/noise"
	"github.com/google/differential-privacy/dpquery/rand"
)

// BoundedMean calculates a differentially private mean of a collection of
// float64 values.
//
// The values are clamped into [Lower, Upper] and the mean of the n values
// added is perturbed with noise calibrated to a sensitivity of
// (Upper - Lower) / n. n itself is treated as public.
//
// Not thread-safe.
type BoundedMean struct {
	sum   *BoundedSum
	state aggregationState
}

// BoundedMeanOptions contains the options necessary to initialize a BoundedMean.
type BoundedMeanOptions struct {
	Epsilon float64    // Privacy parameter ε. Required.
	Delta   float64    // Privacy parameter δ. Required with Gaussian noise, ignored with Laplace noise.
	Lower   float64    // Lower bound on the values added. Required.
	Upper   float64    // Upper bound on the values added. Required, must be greater than Lower.
	Noise   noise.Kind // Type of noise used. Defaults to Laplace noise.
	// Source of randomness for the noise draws. Defaults to rand.Default().
	Source *rand.Source
}

// NewBoundedMean returns a new BoundedMean.
func NewBoundedMean(opt *BoundedMeanOptions) (*BoundedMean, error) {
	if opt == nil {
		opt = &BoundedMeanOptions{} // Prevents panicking due to a nil pointer dereference.
	}
	bs, err := NewBoundedSum(&BoundedSumOptions{
		Epsilon: opt.Epsilon,
		Delta:   opt.Delta,
		Lower:   opt.Lower,
		Upper:   opt.Upper,
		Noise:   opt.Noise,
		Source:  opt.Source,
	})
	if err != nil {
		return nil, fmt.Errorf("NewBoundedMean: %w", err)
	}
	return &BoundedMean{sum: bs}, nil
}

// Add clamps e into the bounds and adds it to the mean. NaN values are ignored.
func (bm *BoundedMean) Add(e float64) error {
	if err := checkState(bm.state); err != nil {
		return fmt.Errorf("BoundedMean.Add: %w", err)
	}
	if err := bm.sum.Add(e); err != nil {
		return fmt.Errorf("BoundedMean.Add: %w", err)
	}
	return nil
}

// Count returns the number of values added so far.
func (bm *BoundedMean) Count() int64 { return bm.sum.Count() }

// RawMean returns the mean of the clamped values without noise, or 0 if no
// values were added.
func (bm *BoundedMean) RawMean() float64 {
	if bm.sum.Count() == 0 {
		return 0
	}
	return bm.sum.RawSum() / float64(bm.sum.Count())
}

// Sensitivity returns (Upper - Lower) / n. It returns Upper - Lower when no
// value has been added.
func (bm *BoundedMean) Sensitivity() float64 {
	n := bm.sum.Count()
	if n == 0 {
		return bm.sum.Sensitivity()
	}
	return bm.sum.Sensitivity() / float64(n)
}

// Mechanism returns the noise mechanism the result is perturbed with.
func (bm *BoundedMean) Mechanism() (noise.Mechanism, error) {
	return bm.sum.mechanism(bm.Sensitivity())
}

// Result returns a differentially private estimate of the mean of the values
// added. The method can be called only once and fails if no value was added.
func (bm *BoundedMean) Result() (float64, error) {
	if err := checkState(bm.state); err != nil {
		return 0, fmt.Errorf("BoundedMean.Result: %w", err)
	}
	if bm.sum.Count() == 0 {
		return 0, fmt.Errorf("BoundedMean.Result: mean of zero values is undefined")
	}
	m, err := bm.Mechanism()
	if err != nil {
		return 0, fmt.Errorf("BoundedMean.Result: %w", err)
	}
	bm.state = resultReturned
	bm.sum.state = resultReturned
	return m.Perturb(bm.RawMean()), nil
}
