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
	"fmt"
	"math"

	"github.com/google/differential-privacy/dpquery/checks"
	"github.com/google/differential-privacy/dpquery/rand"
)

// granularityParam determines the resolution of the numerical noise that is
// being generated relative to the noise scale λ = Δ/ε. Larger values result in
// more fine grained noise, but increase the chance of sampling inaccuracies due
// to overflows. The probability of an overflow is less than 2⁻¹⁰⁰⁰ if the
// parameter is 2⁴⁰ or less and ε is at least 2⁻⁵⁰.
//
// This parameter should be a power of 2.
var granularityParam = math.Exp2(40)

// LaplaceOptions contains the options necessary to initialize a LaplaceMechanism.
type LaplaceOptions struct {
	Epsilon     float64 // Privacy parameter ε. Required.
	Sensitivity float64 // L_1 sensitivity Δ of the perturbed value. Required.
	// Source of randomness for the noise draws. Defaults to rand.Default().
	Source *rand.Source
}

// LaplaceMechanism adds noise drawn from a zero-centered Laplace distribution
// with scale Δ/ε, which makes its output ε-differentially private.
//
// The noise is based on a geometric sampling mechanism that is robust against
// unintentional privacy leaks due to artifacts of floating point arithmetic. See
// https://github.com/google/differential-privacy/blob/main/common_docs/Secure_Noise_Generation.pdf
// for more information.
type LaplaceMechanism struct {
	epsilon     float64
	sensitivity float64
	lambda      float64
	granularity float64
	src         *rand.Source
}

// NewLaplace returns a LaplaceMechanism calibrated to the given ε and Δ.
func NewLaplace(opt *LaplaceOptions) (*LaplaceMechanism, error) {
	if opt == nil {
		opt = &LaplaceOptions{} // Prevents panicking due to a nil pointer dereference.
	}
	if err := checkArgsLaplace(opt.Epsilon, opt.Sensitivity); err != nil {
		return nil, fmt.Errorf("NewLaplace: %w", err)
	}
	lambda := laplaceLambda(opt.Sensitivity, opt.Epsilon)
	if math.IsInf(lambda, 0) {
		return nil, fmt.Errorf("NewLaplace: noise scale Δ/ε = %f/%f overflows", opt.Sensitivity, opt.Epsilon)
	}
	granularity, err := granularityFor(lambda, granularityParam)
	if err != nil {
		return nil, fmt.Errorf("NewLaplace: %w", err)
	}
	return &LaplaceMechanism{
		epsilon:     opt.Epsilon,
		sensitivity: opt.Sensitivity,
		lambda:      lambda,
		granularity: granularity,
		src:         sourceOrDefault(opt.Source),
	}, nil
}

// Perturb adds one Laplace noise sample to x.
func (m *LaplaceMechanism) Perturb(x float64) float64 {
	sample := twoSidedGeometric(m.src, m.granularity*m.epsilon/(m.sensitivity+m.granularity))
	return roundToMultipleOfPowerOfTwo(x, m.granularity) + float64(sample)*m.granularity
}

// Kind returns LaplaceNoise.
func (m *LaplaceMechanism) Kind() Kind { return LaplaceNoise }

// Scale returns the Laplace scale parameter λ = Δ/ε.
func (m *LaplaceMechanism) Scale() float64 { return m.lambda }

// Epsilon returns the privacy parameter the mechanism was calibrated to.
func (m *LaplaceMechanism) Epsilon() float64 { return m.epsilon }

// Sensitivity returns the sensitivity the mechanism was calibrated to.
func (m *LaplaceMechanism) Sensitivity() float64 { return m.sensitivity }

// ConfidenceInterval computes a confidence interval that contains the raw value x from which
// noisedX is computed with a probability equal to 1 - alpha.
//
// See https://github.com/google/differential-privacy/tree/main/common_docs/confidence_intervals.md.
func (m *LaplaceMechanism) ConfidenceInterval(noisedX, alpha float64) (ConfidenceInterval, error) {
	return confidenceIntervalLaplace(noisedX, m.lambda, alpha)
}

func (m *LaplaceMechanism) String() string {
	return fmt.Sprintf("Laplace Noise (ε=%g, Δ=%g)", m.epsilon, m.sensitivity)
}

func checkArgsLaplace(epsilon, sensitivity float64) error {
	if err := checks.CheckEpsilonVeryStrict(epsilon); err != nil {
		return err
	}
	return checks.CheckSensitivity(sensitivity)
}

// laplaceLambda computes the scale parameter λ for the Laplace noise
// distribution required for achieving ε-differential privacy on a value with
// the given L_1 sensitivity.
func laplaceLambda(l1Sensitivity, epsilon float64) float64 {
	return l1Sensitivity / epsilon
}

func confidenceIntervalLaplace(noisedX, lambda, alpha float64) (ConfidenceInterval, error) {
	if err := checks.CheckAlpha(alpha); err != nil {
		return ConfidenceInterval{}, err
	}
	z := inverseCDFLaplace(lambda, alpha/2)
	// Because of the symmetry of the Laplace distribution, -z corresponds to
	// the (1 - alpha/2)-quantile. alpha/2 is more accurately representable than
	// 1 - alpha/2 when alpha is small.
	return ConfidenceInterval{LowerBound: noisedX + z, UpperBound: noisedX - z}, nil
}

// inverseCDFLaplace computes the quantile z satisfying Pr[Y <= z] = p for a random variable Y
// that is Laplace distributed with the specified lambda where mean is zero.
func inverseCDFLaplace(lambda, p float64) float64 {
	if p < 0.5 {
		return lambda * math.Log(2*p)
	}
	return -lambda * math.Log(2*(1-p))
}

// geometric draws a sample drawn from a geometric distribution with parameter
//
//	p = 1 - e^-λ.
//
// More precisely, it returns the number of Bernoulli trials until the first success
// where the success probability is p = 1 - e^-λ. The returned sample is truncated
// to the max int64 value.
//
// Note that to ensure that a truncation happens with probability less than 10⁻⁶,
// λ must be greater than 2⁻⁵⁹.
func geometric(src *rand.Source, lambda float64) int64 {
	// Return truncated sample in the case that the sample exceeds the max int64.
	if src.Uniform() > -1.0*math.Expm1(-1.0*lambda*math.MaxInt64) {
		return math.MaxInt64
	}

	// Binary search for the sample in (left, right]. Each iteration keeps
	// either subinterval with the probability of the sample being in it.
	var left int64 = 0              // exclusive bound
	var right int64 = math.MaxInt64 // inclusive bound

	for left+1 < right {
		// The midpoint splits the remaining probability mass approximately in
		// half, which is at or below the arithmetic mean of the interval.
		mid := left - int64(math.Floor((math.Log(0.5)+math.Log1p(math.Exp(lambda*float64(left-right))))/lambda))
		// Keep mid inside the interval despite finite precision arithmetic.
		if mid <= left {
			mid = left + 1
		} else if mid >= right {
			mid = right - 1
		}

		// q = Pr[X ≤ mid | left < X ≤ right], approximately one half.
		q := math.Expm1(lambda*float64(left-mid)) / math.Expm1(lambda*float64(left-right))
		if src.Uniform() <= q {
			right = mid
		} else {
			left = mid
		}
	}
	return right
}

// twoSidedGeometric draws a sample from a geometric distribution that is
// mirrored at 0. The non-negative part of the distribution's PDF matches
// the PDF of a geometric distribution of parameter p = 1 - e^-λ that is
// shifted to the left by 1 and scaled accordingly.
func twoSidedGeometric(src *rand.Source, lambda float64) int64 {
	var sample int64 = 0
	var sign int64 = -1
	// Keep a sample of 0 only if the sign is positive. Otherwise, the
	// probability of 0 would be twice as high as it should be.
	for sample == 0 && sign == -1 {
		sample = geometric(src, lambda) - 1
		sign = int64(src.Sign())
	}
	return sample * sign
}
