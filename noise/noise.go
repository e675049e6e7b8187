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

// Package noise contains the noise mechanisms used to make query results
// differentially private.
//
// A Mechanism is calibrated once at construction and can then perturb any
// number of values; every call to Perturb is an independent draw. Mechanisms
// hold no privacy-budget state.
package noise

import (
	"fmt"
	"math"

	"github.com/google/differential-privacy/dpquery/rand"
)

// Kind is an enum type. Its values are the supported noise mechanisms.
type Kind int

// Noise mechanisms used to achieve differential privacy.
const (
	Unrecognised Kind = iota
	LaplaceNoise
	GaussianAnalyticNoise
)

// String returns the wire name of the mechanism kind.
func (k Kind) String() string {
	switch k {
	case LaplaceNoise:
		return "laplace"
	case GaussianAnalyticNoise:
		return "gaussian"
	}
	return "unrecognised"
}

// MarshalText encodes the kind as its wire name.
func (k Kind) MarshalText() ([]byte, error) {
	if k != LaplaceNoise && k != GaussianAnalyticNoise {
		return nil, fmt.Errorf("noise: cannot marshal unrecognised mechanism kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UsesDelta reports whether the mechanism kind is parameterised by δ.
func (k Kind) UsesDelta() bool {
	return k == GaussianAnalyticNoise
}

// Mechanism perturbs values so that the output is differentially private with
// respect to the sensitivity and privacy parameters it was created with.
type Mechanism interface {
	// Perturb returns x plus one independent noise sample. The output is not
	// clamped to any bounds.
	Perturb(x float64) float64
	// Kind returns the mechanism kind.
	Kind() Kind
	// Scale returns the noise scale: b = Δ/ε for Laplace, σ for Gaussian.
	Scale() float64
	// ConfidenceInterval returns an interval containing the raw value from
	// which noisedX was computed with probability 1 - alpha.
	ConfidenceInterval(noisedX, alpha float64) (ConfidenceInterval, error)
}

// Options contains the parameters needed to construct any Mechanism.
type Options struct {
	Epsilon     float64 // Privacy parameter ε. Required.
	Delta       float64 // Privacy parameter δ. Required for GaussianAnalyticNoise, ignored for LaplaceNoise.
	Sensitivity float64 // How much a single record can change the perturbed value. Required.
	// Source of randomness for the noise draws. Defaults to rand.Default().
	Source *rand.Source
}

// New constructs the mechanism of the given kind. It fails if the parameters
// violate the mechanism's preconditions.
func New(k Kind, opt *Options) (Mechanism, error) {
	if opt == nil {
		opt = &Options{} // Prevents panicking due to a nil pointer dereference.
	}
	switch k {
	case LaplaceNoise:
		return NewLaplace(&LaplaceOptions{Epsilon: opt.Epsilon, Sensitivity: opt.Sensitivity, Source: opt.Source})
	case GaussianAnalyticNoise:
		return NewGaussianAnalytic(&GaussianOptions{Epsilon: opt.Epsilon, Delta: opt.Delta, Sensitivity: opt.Sensitivity, Source: opt.Source})
	}
	return nil, fmt.Errorf("noise.New: unrecognised mechanism kind %d", int(k))
}

// ConfidenceInterval holds lower and upper bounds as float64 for the confidence interval.
type ConfidenceInterval struct {
	LowerBound, UpperBound float64
}

// ConfidenceIntervalFor computes the 1 - alpha confidence interval around
// noisedX for a mechanism of kind k with the given noise scale. It allows
// callers that only kept a result's scale to recover its accuracy.
func ConfidenceIntervalFor(k Kind, scale, noisedX, alpha float64) (ConfidenceInterval, error) {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return ConfidenceInterval{}, fmt.Errorf("ConfidenceIntervalFor: scale is %f, must be strictly positive and finite", scale)
	}
	switch k {
	case LaplaceNoise:
		return confidenceIntervalLaplace(noisedX, scale, alpha)
	case GaussianAnalyticNoise:
		return confidenceIntervalGaussian(noisedX, scale, alpha)
	}
	return ConfidenceInterval{}, fmt.Errorf("ConfidenceIntervalFor: unrecognised mechanism kind %d", int(k))
}

func sourceOrDefault(src *rand.Source) *rand.Source {
	if src == nil {
		return rand.Default()
	}
	return src
}
