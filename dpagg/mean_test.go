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
	"math"
	"testing"

	"github.com/google/differential-privacy/dpquery/noise"
	"github.com/google/differential-privacy/dpquery/rand"
)

func TestBoundedMeanSensitivity(t *testing.T) {
	for _, tc := range []struct {
		values          []float64
		lower, upper    float64
		wantMean        float64
		wantSensitivity float64
	}{
		{[]float64{1, 2, 3, 4, 5}, 0, 10, 3, 2},
		{[]float64{-5, 5}, 0, 4, 2, 2},
		{[]float64{7}, 0, 10, 7, 10},
	} {
		bm, err := NewBoundedMean(&BoundedMeanOptions{Epsilon: 1, Lower: tc.lower, Upper: tc.upper})
		if err != nil {
			t.Fatalf("NewBoundedMean: %v", err)
		}
		for _, v := range tc.values {
			if err := bm.Add(v); err != nil {
				t.Fatalf("Add(%f): %v", v, err)
			}
		}
		if got := bm.RawMean(); !nearEqual(got, tc.wantMean, 1e-12) {
			t.Errorf("RawMean() = %f, want %f (values %v)", got, tc.wantMean, tc.values)
		}
		if got := bm.Sensitivity(); !nearEqual(got, tc.wantSensitivity, 1e-12) {
			t.Errorf("Sensitivity() = %f, want %f (values %v)", got, tc.wantSensitivity, tc.values)
		}
	}
}

func TestBoundedMeanResultFailsWithoutValues(t *testing.T) {
	bm, err := NewBoundedMean(&BoundedMeanOptions{Epsilon: 1, Lower: 0, Upper: 1})
	if err != nil {
		t.Fatalf("NewBoundedMean: %v", err)
	}
	if got := bm.RawMean(); got != 0 {
		t.Errorf("RawMean() of no values = %f, want 0", got)
	}
	if _, err := bm.Result(); err == nil {
		t.Errorf("Result() of no values: got nil error")
	}
	// A failed Result does not consume the aggregation.
	if err := bm.Add(0.5); err != nil {
		t.Errorf("Add after failed Result: %v", err)
	}
}

func TestBoundedMeanGaussianScale(t *testing.T) {
	bm, err := NewBoundedMean(&BoundedMeanOptions{
		Epsilon: ln3,
		Delta:   0.10985556344445052,
		Lower:   0,
		Upper:   4,
		Noise:   noise.GaussianAnalyticNoise,
	})
	if err != nil {
		t.Fatalf("NewBoundedMean: %v", err)
	}
	for i := 0; i < 4; i++ {
		bm.Add(float64(i))
	}
	m, err := bm.Mechanism()
	if err != nil {
		t.Fatalf("Mechanism: %v", err)
	}
	// Δ = 4 / 4 = 1 calibrates to σ = 1 with these privacy parameters.
	if got := m.Scale(); !nearEqual(got, 1, 1e-8) {
		t.Errorf("Scale() = %f, want 1", got)
	}
}

func TestBoundedMeanResultStatistics(t *testing.T) {
	const numberOfSamples = 20000
	mean, _ := meanAndVarianceOfResults(t, numberOfSamples, func(src *rand.Source) float64 {
		bm, err := NewBoundedMean(&BoundedMeanOptions{Epsilon: 1, Lower: 0, Upper: 10, Source: src})
		if err != nil {
			t.Fatalf("NewBoundedMean: %v", err)
		}
		for _, v := range []float64{1, 2, 3, 4, 5} {
			bm.Add(v)
		}
		r, err := bm.Result()
		if err != nil {
			t.Fatalf("Result: %v", err)
		}
		return r
	})
	// Laplace(0, 2) has variance 8.
	if tol := 4.41717 * math.Sqrt(8.0/numberOfSamples); !nearEqual(mean, 3, tol) {
		t.Errorf("mean of noised means = %f, want 3 ± %f", mean, tol)
	}
}

func TestBoundedMeanIsSingleUse(t *testing.T) {
	bm, err := NewBoundedMean(&BoundedMeanOptions{Epsilon: 1, Lower: 0, Upper: 1})
	if err != nil {
		t.Fatalf("NewBoundedMean: %v", err)
	}
	bm.Add(0.5)
	if _, err := bm.Result(); err != nil {
		t.Fatalf("first Result: %v", err)
	}
	if _, err := bm.Result(); err == nil {
		t.Errorf("second Result: got nil error")
	}
	if err := bm.Add(1); err == nil {
		t.Errorf("Add after Result: got nil error")
	}
}
