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

	log "github.com/golang/glog"
	"github.com/google/differential-privacy/dpquery/checks"
	"github.com/google/differential-privacy/dpquery/rand"
	lru "github.com/hashicorp/golang-lru/v2"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// The square root of the maximum number n of Bernoulli trials from which a binomial
	// sample is drawn. Larger values result in more fine-grained noise, but increase the
	// chance of sampling inaccuracies due to overflows. The probability of such an event
	// will be roughly 2⁻⁴⁵ or less, if the square root is set to 2⁵⁷.
	binomialBound float64 = math.Exp2(57.0)
	// The absolute bound of the two-sided geometric samples k that are used for creating
	// a binomial sample is m + n / 2. For performance reasons, m is not composed of n
	// Bernoulli trials. Instead, m is obtained via a rejection sampling technique, which sets
	//   m = (k + l) * (sqrt(2 * n) + 1),
	// where l is a uniform random sample between 0 and 1. Bounding k is therefore necessary
	// to prevent m from overflowing.
	//
	// The probability of a single sample k being bounded is 2⁻⁴⁵.
	geometricBound int64 = (math.MaxInt64 / int64(math.Round(math.Sqrt2*binomialBound+1.0))) - 1
	// gaussianSigmaAccuracy is the relative accuracy up to which the smallest σ
	// satisfying the privacy parameters is searched for.
	gaussianSigmaAccuracy = 1e-9
	// maxCalibrationSteps bounds the doubling and bisection steps of the σ search.
	maxCalibrationSteps = 4096
)

const sigmaCacheSize = 512

type sigmaKey struct {
	epsilon, delta, sensitivity float64
}

// sigmaCache memoizes calibrations; the σ search dominates the cost of
// constructing a Gaussian mechanism.
var sigmaCache = newSigmaCache()

func newSigmaCache() *lru.Cache[sigmaKey, float64] {
	c, err := lru.New[sigmaKey, float64](sigmaCacheSize)
	if err != nil {
		log.Fatalf("noise: creating sigma cache: %v", err)
	}
	return c
}

// GaussianOptions contains the options necessary to initialize a GaussianMechanism.
type GaussianOptions struct {
	Epsilon     float64 // Privacy parameter ε. Required.
	Delta       float64 // Privacy parameter δ. Required, must be in (0, 1).
	Sensitivity float64 // L_2 sensitivity Δ of the perturbed value. Required.
	// Source of randomness for the noise draws. Defaults to rand.Default().
	Source *rand.Source
}

// GaussianMechanism adds noise drawn from a zero-centered normal distribution
// whose standard deviation σ is the smallest one for which the output is
// (ε,δ)-differentially private, following the analytic calibration of Balle and
// Wang's "Improving the Gaussian Mechanism for Differential Privacy: Analytical
// Calibration and Optimal Denoising" (https://arxiv.org/abs/1805.06530v2).
//
// The noise is based on a binomial sampling mechanism that is robust against
// unintentional privacy leaks due to artifacts of floating-point arithmetic. See
// https://github.com/google/differential-privacy/blob/main/common_docs/Secure_Noise_Generation.pdf
// for more information.
type GaussianMechanism struct {
	epsilon     float64
	delta       float64
	sensitivity float64
	sigma       float64
	granularity float64
	sqrtN       float64
	src         *rand.Source
}

// NewGaussianAnalytic returns a GaussianMechanism calibrated to the given ε, δ and Δ.
func NewGaussianAnalytic(opt *GaussianOptions) (*GaussianMechanism, error) {
	if opt == nil {
		opt = &GaussianOptions{} // Prevents panicking due to a nil pointer dereference.
	}
	if err := checkArgsGaussian(opt.Epsilon, opt.Delta, opt.Sensitivity); err != nil {
		return nil, fmt.Errorf("NewGaussianAnalytic: %w", err)
	}
	sigma, err := calibratedSigma(opt.Sensitivity, opt.Epsilon, opt.Delta)
	if err != nil {
		return nil, fmt.Errorf("NewGaussianAnalytic: %w", err)
	}
	granularity, err := granularityFor(2.0*sigma, binomialBound)
	if err != nil {
		return nil, fmt.Errorf("NewGaussianAnalytic: %w", err)
	}
	return &GaussianMechanism{
		epsilon:     opt.Epsilon,
		delta:       opt.Delta,
		sensitivity: opt.Sensitivity,
		sigma:       sigma,
		granularity: granularity,
		// sqrtN lies between binomialBound / 2 and binomialBound, so the binomial
		// distribution has enough Bernoulli samples to closely approximate a Gaussian.
		sqrtN: 2.0 * sigma / granularity,
		src:   sourceOrDefault(opt.Source),
	}, nil
}

// Perturb adds one Gaussian noise sample of standard deviation σ to x.
func (m *GaussianMechanism) Perturb(x float64) float64 {
	sample := symmetricBinomial(m.src, m.sqrtN)
	return roundToMultipleOfPowerOfTwo(x, m.granularity) + float64(sample)*m.granularity
}

// Kind returns GaussianAnalyticNoise.
func (m *GaussianMechanism) Kind() Kind { return GaussianAnalyticNoise }

// Scale returns the calibrated standard deviation σ.
func (m *GaussianMechanism) Scale() float64 { return m.sigma }

// Epsilon returns the privacy parameter ε the mechanism was calibrated to.
func (m *GaussianMechanism) Epsilon() float64 { return m.epsilon }

// Delta returns the privacy parameter δ the mechanism was calibrated to.
func (m *GaussianMechanism) Delta() float64 { return m.delta }

// Sensitivity returns the sensitivity the mechanism was calibrated to.
func (m *GaussianMechanism) Sensitivity() float64 { return m.sensitivity }

// ConfidenceInterval computes a confidence interval that contains the raw value x from which
// noisedX is computed with a probability equal to 1 - alpha.
func (m *GaussianMechanism) ConfidenceInterval(noisedX, alpha float64) (ConfidenceInterval, error) {
	return confidenceIntervalGaussian(noisedX, m.sigma, alpha)
}

func (m *GaussianMechanism) String() string {
	return fmt.Sprintf("Gaussian Noise (ε=%g, δ=%g, Δ=%g, σ=%g)", m.epsilon, m.delta, m.sensitivity, m.sigma)
}

func checkArgsGaussian(epsilon, delta, sensitivity float64) error {
	if err := checks.CheckEpsilonStrict(epsilon); err != nil {
		return err
	}
	if err := checks.CheckDeltaStrict(delta); err != nil {
		return err
	}
	return checks.CheckSensitivity(sensitivity)
}

func confidenceIntervalGaussian(noisedX, sigma, alpha float64) (ConfidenceInterval, error) {
	if err := checks.CheckAlpha(alpha); err != nil {
		return ConfidenceInterval{}, err
	}
	z := distuv.Normal{Mu: 0, Sigma: sigma}.Quantile(alpha / 2)
	return ConfidenceInterval{LowerBound: noisedX + z, UpperBound: noisedX - z}, nil
}

// symmetricBinomial returns a random sample m where the term m + n / 2 is drawn from
// a binomial distribution of n Bernoulli trials that have a success probability of
// 0.5 each. The sampling technique is based on Bringmann et al.'s rejection sampling
// approach proposed in "Internal DLA: Efficient Simulation of a Physical Growth Model"
// (https://people.mpi-inf.mpg.de/~kbringma/paper/2014ICALP.pdf).
func symmetricBinomial(src *rand.Source, sqrtN float64) int64 {
	stepSize := int64(math.Round(math.Sqrt2*sqrtN + 1.0))
	for {
		// 1 is subtracted from the geometric sample to count the number of Bernoulli fails
		// rather than the number of trials until the first success.
		boundedGeometricSample := int64(math.Min(src.Geometric()-1.0, float64(geometricBound)))
		twoSidedGeometricSample := boundedGeometricSample
		if src.Boolean() {
			twoSidedGeometricSample = -twoSidedGeometricSample - 1
		}

		result := stepSize*twoSidedGeometricSample + src.I63n(stepSize)
		resultProbability := binomialProbability(sqrtN, result)
		rejectProbability := src.Uniform()
		if resultProbability > 0.0 &&
			rejectProbability < resultProbability*float64(stepSize)*math.Pow(2.0, float64(boundedGeometricSample))/4.0 {
			return result
		}
	}
}

// Approximates the probability of a random sample m + n / 2 drawn from a binomial
// distribution of n Bernoulli trials that have a success probability of 1 / 2 each.
// The approximation is based on Lemma 7 of
// https://github.com/google/differential-privacy/blob/main/common_docs/Secure_Noise_Generation.pdf
func binomialProbability(sqrtN float64, m int64) float64 {
	if math.Abs(float64(m)) > sqrtN*math.Sqrt(math.Log(sqrtN)/2.0) {
		return 0.0
	}
	return (math.Sqrt(2.0/math.Pi) / sqrtN) *
		math.Exp((-2.0*float64(m)*float64(m))/(sqrtN*sqrtN)) *
		(1 - 0.4*math.Pow(2.0, 1.5)*math.Pow(math.Log(sqrtN), 1.5)/sqrtN)
}

// DeltaForGaussian computes the smallest δ such that the Gaussian mechanism
// with fixed standard deviation σ is (ε,δ)-differentially private for a value
// with L_2 sensitivity Δ. The calculation is based on Theorem 8 of Balle and
// Wang (https://arxiv.org/abs/1805.06530v2):
//
//	δ(σ,Δ,ε) = Φ(Δ/(2σ) - εσ/Δ) - exp(ε)Φ(-Δ/(2σ) - εσ/Δ)
//
// where Φ is the standard normal CDF.
func DeltaForGaussian(sigma, sensitivity, epsilon float64) float64 {
	// With a := Δ/(2σ), b := εσ/Δ and c := exp(ε), δ(σ,Δ,ε) = Φ(a - b) - cΦ(-a - b).
	a := sensitivity / (2 * sigma)
	b := epsilon * sigma / sensitivity
	c := math.Exp(epsilon)

	if math.IsInf(c, +1) {
		// δ(σ,Δ,ε) –> 0 as ε –> ∞.
		return 0
	}
	if math.IsInf(b, +1) {
		// δ(σ,Δ,ε) –> 0 as Δ –> 0.
		return 0
	}
	return distuv.UnitNormal.CDF(a-b) - c*distuv.UnitNormal.CDF(-a-b)
}

// SigmaForGaussian returns the smallest standard deviation σ (up to a relative
// error of gaussianSigmaAccuracy, rounded up) for which adding Gaussian noise to
// a value with L_2 sensitivity Δ is (ε,δ)-differentially private. Results are
// memoized per (ε, δ, Δ).
func SigmaForGaussian(sensitivity, epsilon, delta float64) (float64, error) {
	if err := checkArgsGaussian(epsilon, delta, sensitivity); err != nil {
		return 0, fmt.Errorf("SigmaForGaussian: %w", err)
	}
	return calibratedSigma(sensitivity, epsilon, delta)
}

func calibratedSigma(sensitivity, epsilon, delta float64) (float64, error) {
	key := sigmaKey{epsilon: epsilon, delta: delta, sensitivity: sensitivity}
	if sigma, ok := sigmaCache.Get(key); ok {
		return sigma, nil
	}
	sigma, err := sigmaForGaussian(sensitivity, epsilon, delta)
	if err != nil {
		return 0, err
	}
	sigmaCache.Add(key, sigma)
	return sigma, nil
}

// sigmaForGaussian searches σ with a doubling phase followed by bisection.
// δ(σ) is decreasing in σ, so the returned upper end of the final interval
// always satisfies δ(σ) ≤ δ.
func sigmaForGaussian(sensitivity, epsilon, delta float64) (float64, error) {
	// The required noise grows linearly with the sensitivity, which makes it a
	// good first guess for the upper bound.
	upperBound := sensitivity
	var lowerBound float64

	steps := 0
	// Increase upperBound until it is an upper bound of σ_tight. When this
	// loop exits, upperBound - lowerBound <= σ_tight and, if it ran at least
	// once, lowerBound >= 0.5*σ_tight.
	for {
		d := DeltaForGaussian(upperBound, sensitivity, epsilon)
		if math.IsNaN(d) {
			return 0, fmt.Errorf("analytic Gaussian calibration failed: δ(σ=%e) is NaN", upperBound)
		}
		if d <= delta {
			break
		}
		lowerBound = upperBound
		upperBound *= 2
		steps++
		if math.IsInf(upperBound, 0) || steps > maxCalibrationSteps {
			return 0, fmt.Errorf("analytic Gaussian calibration failed: no σ found for ε=%g, δ=%g, Δ=%g", epsilon, delta, sensitivity)
		}
	}

	// Bisection. If σ_tight < Δ it first takes O(log(Δ/σ_tight)) steps for
	// lowerBound to become positive, then O(log(1/gaussianSigmaAccuracy)).
	for upperBound-lowerBound > gaussianSigmaAccuracy*lowerBound {
		middle := lowerBound*0.5 + upperBound*0.5
		if middle == lowerBound || middle == upperBound {
			// The interval cannot be split any further in float64.
			break
		}
		if DeltaForGaussian(middle, sensitivity, epsilon) > delta {
			lowerBound = middle
		} else {
			upperBound = middle
		}
		steps++
		if steps > maxCalibrationSteps {
			return 0, fmt.Errorf("analytic Gaussian calibration did not converge for ε=%g, δ=%g, Δ=%g", epsilon, delta, sensitivity)
		}
	}
	if upperBound <= 0 || math.IsNaN(upperBound) {
		return 0, fmt.Errorf("analytic Gaussian calibration produced invalid σ=%e", upperBound)
	}
	return upperBound, nil
}
