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

package noise

import (
	"math"
	"testing"
)

func TestCeilPowerOfTwoInputIsNotInDomain(t *testing.T) {
	for _, x := range []float64{
		0.0,
		-1.0,
		math.Inf(-1),
		math.Inf(1),
		math.NaN(),
		math.MaxFloat64,
		math.Pow(2.001, 1023.0),
	} {
		if got := ceilPowerOfTwo(x); !math.IsNaN(got) {
			t.Errorf("ceilPowerOfTwo(%f) = %f, want NaN", x, got)
		}
	}
}

func TestCeilPowerOfTwoInputIsPowerOfTwo(t *testing.T) {
	for exponent := -1022.0; exponent <= 1023; exponent++ {
		x := math.Pow(2.0, exponent)
		if got := ceilPowerOfTwo(x); got != x {
			t.Errorf("ceilPowerOfTwo(%e) = %e, want %e", x, got, x)
		}
	}
}

func TestCeilPowerOfTwoInputIsNotPowerOfTwo(t *testing.T) {
	for exponent := -1022.0; exponent <= -1.0; exponent++ {
		x := math.Pow(2.001, exponent)
		want := math.Pow(2.0, exponent)
		if got := ceilPowerOfTwo(x); got != want {
			t.Errorf("ceilPowerOfTwo(%e) = %e, want %e", x, got, want)
		}
	}
	for _, tc := range []struct{ x, want float64 }{
		{0.99, 1.0},
		{1.01, 2.0},
		{10, 16},
		{1000, 1024},
	} {
		if got := ceilPowerOfTwo(tc.x); got != tc.want {
			t.Errorf("ceilPowerOfTwo(%f) = %f, want %f", tc.x, got, tc.want)
		}
	}
}

func TestRoundToMultipleOfPowerOfTwo(t *testing.T) {
	for _, tc := range []struct{ x, granularity, want float64 }{
		{0, 1, 0},
		{0.4, 1, 0},
		{0.6, 1, 1},
		{-0.6, 1, -1},
		{5.3, 0.5, 5.5},
		{5.2, 0.5, 5},
		{15, 0.125, 15},
		{100, 64, 128},
	} {
		if got := roundToMultipleOfPowerOfTwo(tc.x, tc.granularity); got != tc.want {
			t.Errorf("roundToMultipleOfPowerOfTwo(%f, %f) = %f, want %f", tc.x, tc.granularity, got, tc.want)
		}
	}
}

func TestGranularityFor(t *testing.T) {
	g, err := granularityFor(10, granularityParam)
	if err != nil {
		t.Fatalf("granularityFor(10): %v", err)
	}
	if want := math.Exp2(-36); g != want {
		t.Errorf("granularityFor(10, 2^40) = %e, want %e", g, want)
	}
	if _, err := granularityFor(math.Inf(1), granularityParam); err == nil {
		t.Errorf("granularityFor(+Inf): got nil error")
	}
	if _, err := granularityFor(0, granularityParam); err == nil {
		t.Errorf("granularityFor(0): got nil error")
	}
}
