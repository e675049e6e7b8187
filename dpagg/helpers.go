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

// Package dpagg contains differentially private aggregation primitives.
//
// Every aggregation clamps its inputs into the bounds it was created with,
// derives the sensitivity of its raw statistic from those bounds and returns
// the statistic perturbed by a noise.Mechanism. Aggregations are single-use:
// once the noised result has been returned, further Adds and Results fail.
//
// Aggregations are not thread-safe.
package dpagg

import (
	"errors"
	"fmt"

	"github.com/google/differential-privacy/dpquery/checks"
	"github.com/google/differential-privacy/dpquery/noise"
	"github.com/google/differential-privacy/dpquery/rand"
)

// ClampFloat64 clamps e within lower and upper, such that lower is returned
// if e < lower, and upper is returned if e > upper. Otherwise, e is returned.
func ClampFloat64(e, lower, upper float64) (float64, error) {
	if lower > upper {
		return 0, fmt.Errorf("lower must be less than or equal to upper, got lower = %v, upper = %v", lower, upper)
	}
	if e > upper {
		return upper, nil
	}
	if e < lower {
		return lower, nil
	}
	return e, nil
}

// noiseKindOrDefault returns Laplace noise for an unset kind.
func noiseKindOrDefault(k noise.Kind) noise.Kind {
	if k == noise.Unrecognised {
		return noise.LaplaceNoise
	}
	return k
}

// params are the privacy parameters shared by all aggregations.
type params struct {
	epsilon   float64
	delta     float64
	noiseKind noise.Kind
	src       *rand.Source
}

// mechanism builds the noise mechanism for a statistic of the given sensitivity.
func (p params) mechanism(sensitivity float64) (noise.Mechanism, error) {
	return noise.New(p.noiseKind, &noise.Options{
		Epsilon:     p.epsilon,
		Delta:       p.delta,
		Sensitivity: sensitivity,
		Source:      p.src,
	})
}

// checkBoundsAndParams validates the bounds and, by constructing a mechanism
// for the full bounds range, the privacy parameters.
func checkBoundsAndParams(lower, upper float64, p params) error {
	if err := checks.CheckBoundsFloat64Strict(lower, upper); err != nil {
		return err
	}
	_, err := p.mechanism(upper - lower)
	return err
}

func checkState(s aggregationState) error {
	if s != defaultState {
		return errors.New(s.errorMessage())
	}
	return nil
}

