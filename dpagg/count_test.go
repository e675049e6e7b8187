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

	"github.com/google/differential-privacy/dpquery/rand"
)

func TestCountRawAndSensitivity(t *testing.T) {
	c, err := NewCount(&CountOptions{Epsilon: 1})
	if err != nil {
		t.Fatalf("NewCount: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := c.Increment(); err != nil {
			t.Fatalf("Increment: %v", err)
		}
	}
	c.IncrementBy(3)
	if got := c.RawCount(); got != 8 {
		t.Errorf("RawCount() = %d, want 8", got)
	}
	if got := c.Sensitivity(); got != 1 {
		t.Errorf("Sensitivity() = %f, want 1", got)
	}
	m, err := c.Mechanism()
	if err != nil {
		t.Fatalf("Mechanism: %v", err)
	}
	if got := m.Scale(); got != 1 {
		t.Errorf("Scale() = %f, want 1", got)
	}
}

func TestCountResultStatistics(t *testing.T) {
	const numberOfSamples = 20000
	mean, variance := meanAndVarianceOfResults(t, numberOfSamples, func(src *rand.Source) float64 {
		c, err := NewCount(&CountOptions{Epsilon: 1, Source: src})
		if err != nil {
			t.Fatalf("NewCount: %v", err)
		}
		c.IncrementBy(5)
		r, err := c.Result()
		if err != nil {
			t.Fatalf("Result: %v", err)
		}
		return r
	})
	// Laplace(0, 1) has variance 2.
	if tol := 4.41717 * math.Sqrt(2.0/numberOfSamples); !nearEqual(mean, 5, tol) {
		t.Errorf("mean of noised counts = %f, want 5 ± %f", mean, tol)
	}
	if tol := 4.41717 * math.Sqrt(5.0) * 2.0 / math.Sqrt(numberOfSamples); !nearEqual(variance, 2, tol) {
		t.Errorf("variance of noised counts = %f, want 2 ± %f", variance, tol)
	}
}

func TestCountIsSingleUse(t *testing.T) {
	c, err := NewCount(nil)
	if err == nil {
		t.Fatalf("NewCount(nil): got %v, want error for zero epsilon", c)
	}
	c, err = NewCount(&CountOptions{Epsilon: 1})
	if err != nil {
		t.Fatalf("NewCount: %v", err)
	}
	if _, err := c.Result(); err != nil {
		t.Fatalf("first Result: %v", err)
	}
	if _, err := c.Result(); err == nil {
		t.Errorf("second Result: got nil error")
	}
	if err := c.Increment(); err == nil {
		t.Errorf("Increment after Result: got nil error")
	}
}
