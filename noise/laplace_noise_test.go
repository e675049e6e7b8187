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

	"github.com/google/differential-privacy/dpquery/rand"
	"github.com/google/differential-privacy/dpquery/stattestutils"
	"github.com/grd/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

func TestLaplaceStatistics(t *testing.T) {
	const numberOfSamples = 125000
	for _, tc := range []struct {
		sensitivity, epsilon, mean, variance float64
	}{
		{
			sensitivity: 1.0,
			epsilon:     1.0,
			mean:        0.0,
			variance:    2.0,
		},
		{
			sensitivity: 1.0,
			epsilon:     ln3,
			mean:        0.0,
			variance:    2.0 / (ln3 * ln3),
		},
		{
			sensitivity: 1.0,
			epsilon:     ln3,
			mean:        45941223.02107,
			variance:    2.0 / (ln3 * ln3),
		},
		{
			sensitivity: 2.0,
			epsilon:     2.0 * ln3,
			mean:        0.0,
			variance:    2.0 / (ln3 * ln3),
		},
		{
			sensitivity: 10.0,
			epsilon:     1.0,
			mean:        15.0,
			variance:    200.0,
		},
	} {
		lap, err := NewLaplace(&LaplaceOptions{Epsilon: tc.epsilon, Sensitivity: tc.sensitivity, Source: rand.NewSeededSource(1)})
		if err != nil {
			t.Fatalf("NewLaplace(%+v): %v", tc, err)
		}
		noisedSamples := make(stat.Float64Slice, numberOfSamples)
		for i := 0; i < numberOfSamples; i++ {
			noisedSamples[i] = lap.Perturb(tc.mean)
		}
		sampleMean, sampleVariance := stat.Mean(noisedSamples), stat.Variance(noisedSamples)
		// Assuming that the Laplace samples have a mean of tc.mean and a variance
		// of tc.variance, sampleMean is approximately Gaussian distributed with a
		// standard deviation of sqrt(tc.variance / numberOfSamples).
		//
		// The meanErrorTolerance is set to the 99.9995% quantile of the anticipated distribution. Thus,
		// the test falsely rejects with a probability of 10⁻⁵.
		meanErrorTolerance := 4.41717 * math.Sqrt(tc.variance/float64(numberOfSamples))
		// sampleVariance is approximately Gaussian distributed with a mean of
		// tc.variance and a standard deviation of sqrt(5) * tc.variance / sqrt(numberOfSamples).
		varianceErrorTolerance := 4.41717 * math.Sqrt(5.0) * tc.variance / math.Sqrt(float64(numberOfSamples))

		if !nearEqual(sampleMean, tc.mean, meanErrorTolerance) {
			t.Errorf("got mean = %f, want %f (parameters %+v)", sampleMean, tc.mean, tc)
		}
		if !nearEqual(sampleVariance, tc.variance, varianceErrorTolerance) {
			t.Errorf("got variance = %f, want %f (parameters %+v)", sampleVariance, tc.variance, tc)
		}
	}
}

func TestLaplaceMatchesDistribution(t *testing.T) {
	const numberOfSamples = 20000
	lap, err := NewLaplace(&LaplaceOptions{Epsilon: 1, Sensitivity: 10, Source: rand.NewSeededSource(3)})
	if err != nil {
		t.Fatalf("NewLaplace: %v", err)
	}
	samples := make([]float64, numberOfSamples)
	for i := range samples {
		samples[i] = lap.Perturb(15)
	}
	want := distuv.Laplace{Mu: 15, Scale: 10}
	d := stattestutils.KolmogorovSmirnovStatistic(samples, want.CDF)
	if crit := stattestutils.KolmogorovSmirnovCriticalValue(numberOfSamples, 1e-5); d > crit {
		t.Errorf("Kolmogorov-Smirnov distance to Laplace(15, 10) is %f, want at most %f", d, crit)
	}
}

func TestNewLaplaceRejectsInvalidParameters(t *testing.T) {
	for _, tc := range []struct {
		desc                 string
		epsilon, sensitivity float64
	}{
		{"zero epsilon", 0, 1},
		{"negative epsilon", -1, 1},
		{"epsilon below 2^-50", math.Exp2(-51), 1},
		{"infinite epsilon", math.Inf(1), 1},
		{"NaN epsilon", math.NaN(), 1},
		{"zero sensitivity", 1, 0},
		{"negative sensitivity", 1, -3},
		{"infinite sensitivity", 1, math.Inf(1)},
		{"NaN sensitivity", 1, math.NaN()},
		{"scale overflows", math.Exp2(-50), math.MaxFloat64},
	} {
		if m, err := NewLaplace(&LaplaceOptions{Epsilon: tc.epsilon, Sensitivity: tc.sensitivity}); err == nil {
			t.Errorf("NewLaplace with %s: got %v, want error", tc.desc, m)
		}
	}
	if _, err := NewLaplace(nil); err == nil {
		t.Errorf("NewLaplace(nil): got nil error")
	}
}

func TestLaplaceScale(t *testing.T) {
	for _, tc := range []struct {
		epsilon, sensitivity, want float64
	}{
		{1, 10, 10},
		{0.5, 1, 2},
		{ln3, 2, 2 / ln3},
	} {
		lap, err := NewLaplace(&LaplaceOptions{Epsilon: tc.epsilon, Sensitivity: tc.sensitivity})
		if err != nil {
			t.Fatalf("NewLaplace(ε=%f, Δ=%f): %v", tc.epsilon, tc.sensitivity, err)
		}
		if got := lap.Scale(); got != tc.want {
			t.Errorf("NewLaplace(ε=%f, Δ=%f).Scale() = %f, want %f", tc.epsilon, tc.sensitivity, got, tc.want)
		}
		if lap.Epsilon() != tc.epsilon || lap.Sensitivity() != tc.sensitivity {
			t.Errorf("NewLaplace(ε=%f, Δ=%f) reports ε=%f, Δ=%f", tc.epsilon, tc.sensitivity, lap.Epsilon(), lap.Sensitivity())
		}
	}
}

func TestLaplacePerturbDrawsIndependently(t *testing.T) {
	lap, err := NewLaplace(&LaplaceOptions{Epsilon: 1, Sensitivity: 1, Source: rand.NewSeededSource(5)})
	if err != nil {
		t.Fatalf("NewLaplace: %v", err)
	}
	seen := make(map[float64]bool)
	for i := 0; i < 100; i++ {
		seen[lap.Perturb(0)] = true
	}
	if len(seen) < 50 {
		t.Errorf("100 draws from the same mechanism produced only %d distinct values", len(seen))
	}
}

func TestLaplaceOutputIsNotClamped(t *testing.T) {
	// A huge scale relative to the input makes leaving [0, 1] nearly certain.
	lap, err := NewLaplace(&LaplaceOptions{Epsilon: 0.01, Sensitivity: 1, Source: rand.NewSeededSource(9)})
	if err != nil {
		t.Fatalf("NewLaplace: %v", err)
	}
	outside := false
	for i := 0; i < 100 && !outside; i++ {
		if v := lap.Perturb(0.5); v < 0 || v > 1 {
			outside = true
		}
	}
	if !outside {
		t.Errorf("Perturb never left [0, 1] with scale 100; noised values must not be clamped")
	}
}

func TestLaplaceConfidenceInterval(t *testing.T) {
	lap, err := NewLaplace(&LaplaceOptions{Epsilon: ln3, Sensitivity: 1})
	if err != nil {
		t.Fatalf("NewLaplace: %v", err)
	}
	for _, tc := range []struct {
		noisedX, alpha float64
		want           ConfidenceInterval
	}{
		{0, 0.1, ConfidenceInterval{-2.0959, 2.0959}},
		{13.5, 0.5, ConfidenceInterval{12.8691, 14.1309}},
	} {
		got, err := lap.ConfidenceInterval(tc.noisedX, tc.alpha)
		if err != nil {
			t.Fatalf("ConfidenceInterval(%f, %f): %v", tc.noisedX, tc.alpha, err)
		}
		if !nearEqual(got.LowerBound, tc.want.LowerBound, 1e-3) || !nearEqual(got.UpperBound, tc.want.UpperBound, 1e-3) {
			t.Errorf("ConfidenceInterval(%f, %f) = %+v, want %+v", tc.noisedX, tc.alpha, got, tc.want)
		}
	}
	if _, err := lap.ConfidenceInterval(0, 1.5); err == nil {
		t.Errorf("ConfidenceInterval with alpha 1.5: got nil error")
	}
}

func TestGeometricStatistics(t *testing.T) {
	const numberOfSamples = 125000
	src := rand.NewSeededSource(17)
	for _, tc := range []struct {
		lambda, mean, stdDev float64
	}{
		{lambda: 0.1, mean: 10.50833, stdDev: 9.99583},
		{lambda: 0.0001, mean: 10000.50001, stdDev: 9999.99999},
		{lambda: 0.0000001, mean: 10000000.5, stdDev: 9999999.99999},
	} {
		geometricSamples := make(stat.IntSlice, numberOfSamples)
		for i := 0; i < numberOfSamples; i++ {
			geometricSamples[i] = int(geometric(src, tc.lambda))
		}
		sampleMean := stat.Mean(geometricSamples)
		// The sample mean is approximately Gaussian distributed with the
		// specified mean and a standard deviation of tc.stdDev / sqrt(numberOfSamples).
		meanErrorTolerance := 4.41717 * tc.stdDev / math.Sqrt(float64(numberOfSamples))
		if !nearEqual(sampleMean, tc.mean, meanErrorTolerance) {
			t.Errorf("got mean = %f, want %f (parameters %+v)", sampleMean, tc.mean, tc)
		}
	}
}
