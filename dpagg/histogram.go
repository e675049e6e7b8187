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
	"math"
	"sort"

	log "github.com/golang/glog"
	"github.com/google/differential-privacy/dpquery/checks"
	"github.com/google/differential-privacy/dpquery/noise"
	"github.com/google/differential-privacy/dpquery/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Histogram calculates differentially private counts of the values falling
// into Bins equal-width bins spanning [Lower, Upper].
//
// Every bin is half-open [a, b) except the last one, which also contains
// Upper. Values are clamped into the bounds before binning, so values below
// Lower land in the first bin and values above Upper in the last.
//
// One record changes exactly one bin by at most 1, so each bin count is
// perturbed independently with noise calibrated to a sensitivity of 1.
//
// Not thread-safe.
type Histogram struct {
	params
	lower  float64
	upper  float64
	bins   int
	values []float64
	state  aggregationState
}

// HistogramOptions contains the options necessary to initialize a Histogram.
type HistogramOptions struct {
	Epsilon float64    // Privacy parameter ε. Required.
	Delta   float64    // Privacy parameter δ. Required with Gaussian noise, ignored with Laplace noise.
	Lower   float64    // Left edge of the first bin. Required.
	Upper   float64    // Right edge of the last bin. Required, must be greater than Lower.
	Bins    int        // Number of bins. Required, must be at least 1.
	Noise   noise.Kind // Type of noise used. Defaults to Laplace noise.
	// Source of randomness for the noise draws. Defaults to rand.Default().
	Source *rand.Source
}

// NewHistogram returns a new Histogram with all bins empty.
func NewHistogram(opt *HistogramOptions) (*Histogram, error) {
	if opt == nil {
		opt = &HistogramOptions{} // Prevents panicking due to a nil pointer dereference.
	}
	if err := checks.CheckBins(opt.Bins); err != nil {
		return nil, fmt.Errorf("NewHistogram: %w", err)
	}
	p := params{epsilon: opt.Epsilon, delta: opt.Delta, noiseKind: noiseKindOrDefault(opt.Noise), src: opt.Source}
	if err := checks.CheckBoundsFloat64Strict(opt.Lower, opt.Upper); err != nil {
		return nil, fmt.Errorf("NewHistogram: %w", err)
	}
	if _, err := p.mechanism(1); err != nil {
		return nil, fmt.Errorf("NewHistogram: %w", err)
	}
	return &Histogram{params: p, lower: opt.Lower, upper: opt.Upper, bins: opt.Bins}, nil
}

// Add clamps e into the bounds and records it. NaN values are ignored.
func (h *Histogram) Add(e float64) error {
	if err := checkState(h.state); err != nil {
		return fmt.Errorf("Histogram.Add: %w", err)
	}
	if math.IsNaN(e) {
		log.V(2).Infof("Histogram.Add: ignoring NaN")
		return nil
	}
	clamped, err := ClampFloat64(e, h.lower, h.upper)
	if err != nil {
		return fmt.Errorf("Histogram.Add: %w", err)
	}
	h.values = append(h.values, clamped)
	return nil
}

// Count returns the number of values added so far.
func (h *Histogram) Count() int64 { return int64(len(h.values)) }

// Sensitivity returns 1, the sensitivity of every bin count.
func (h *Histogram) Sensitivity() float64 { return 1 }

// BinEdges returns the Bins + 1 bin edges, evenly spaced from Lower to Upper.
func (h *Histogram) BinEdges() []float64 {
	return floats.Span(make([]float64, h.bins+1), h.lower, h.upper)
}

// RawCounts returns the per-bin counts without noise. They sum to Count().
func (h *Histogram) RawCounts() []float64 {
	dividers := h.BinEdges()
	// stat.Histogram treats every bin as half-open; nudging the last divider
	// past Upper closes the last bin on the right.
	dividers[h.bins] = math.Nextafter(h.upper, math.Inf(1))
	sorted := make([]float64, len(h.values))
	copy(sorted, h.values)
	sort.Float64s(sorted)
	return stat.Histogram(nil, dividers, sorted, nil)
}

// Mechanism returns the noise mechanism each bin is perturbed with.
func (h *Histogram) Mechanism() (noise.Mechanism, error) {
	return h.mechanism(h.Sensitivity())
}

// Result returns differentially private estimates of the bin counts. The
// method can be called only once.
//
// Noised counts are neither rounded nor clamped at 0.
func (h *Histogram) Result() ([]float64, error) {
	if err := checkState(h.state); err != nil {
		return nil, fmt.Errorf("Histogram.Result: %w", err)
	}
	m, err := h.Mechanism()
	if err != nil {
		return nil, fmt.Errorf("Histogram.Result: %w", err)
	}
	h.state = resultReturned
	counts := h.RawCounts()
	for i, c := range counts {
		counts[i] = m.Perturb(c)
	}
	return counts, nil
}
