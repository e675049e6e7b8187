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

// Count calculates a differentially private count of a collection of values
// using the Laplace or Gaussian mechanism.
//
// Adding or removing one record changes the count by at most 1, which is the
// sensitivity the noise is calibrated to. The provided differentially private
// count is an unbiased estimate of the raw count.
//
// Not thread-safe.
type Count struct {
	params
	count int64
	state aggregationState
}

// CountOptions contains the options necessary to initialize a Count.
type CountOptions struct {
	Epsilon float64    // Privacy parameter ε. Required.
	Delta   float64    // Privacy parameter δ. Required with Gaussian noise, ignored with Laplace noise.
	Noise   noise.Kind // Type of noise used. Defaults to Laplace noise.
	// Source of randomness for the noise draws. Defaults to rand.Default().
	Source *rand.Source
}

// NewCount returns a new Count, initialized at 0.
func NewCount(opt *CountOptions) (*Count, error) {
	if opt == nil {
		opt = &CountOptions{} // Prevents panicking due to a nil pointer dereference.
	}
	p := params{epsilon: opt.Epsilon, delta: opt.Delta, noiseKind: noiseKindOrDefault(opt.Noise), src: opt.Source}
	// Check that the parameters are compatible with the noise chosen.
	if _, err := p.mechanism(1); err != nil {
		return nil, fmt.Errorf("NewCount: %w", err)
	}
	return &Count{params: p}, nil
}

// Increment increments the count by one.
func (c *Count) Increment() error {
	return c.IncrementBy(1)
}

// IncrementBy increments the count by the given value.
func (c *Count) IncrementBy(count int64) error {
	if err := checkState(c.state); err != nil {
		return fmt.Errorf("Count.IncrementBy: %w", err)
	}
	c.count += count
	return nil
}

// RawCount returns the count without noise.
func (c *Count) RawCount() int64 { return c.count }

// Sensitivity returns 1.
func (c *Count) Sensitivity() float64 { return 1 }

// Mechanism returns the noise mechanism the result is perturbed with.
func (c *Count) Mechanism() (noise.Mechanism, error) {
	return c.mechanism(c.Sensitivity())
}

// Result returns a differentially private estimate of the current count. The
// method can be called only once.
//
// The returned value may be negative or fractional. Rounding or setting
// negative results to 0 is post-processing left to the caller.
func (c *Count) Result() (float64, error) {
	if err := checkState(c.state); err != nil {
		return 0, fmt.Errorf("Count.Result: %w", err)
	}
	m, err := c.Mechanism()
	if err != nil {
		return 0, fmt.Errorf("Count.Result: %w", err)
	}
	c.state = resultReturned
	return m.Perturb(float64(c.count)), nil
}
