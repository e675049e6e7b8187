//
// Copyright 2024 Google LLC
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

// Package dpquery computes differentially private statistics over one column
// of a table.
//
// A Configuration collects the parameters while they are edited; its Snapshot
// is passed to an Engine, which validates it against the data, clips the
// values into the configured bounds, derives the sensitivity of the requested
// statistic and releases the statistic with Laplace or analytic Gaussian
// noise. Every failure is returned as an *Error whose Kind callers branch on.
package dpquery

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	log "github.com/golang/glog"
	"github.com/google/differential-privacy/dpquery/checks"
	"github.com/google/differential-privacy/dpquery/dataset"
	"github.com/google/differential-privacy/dpquery/dpagg"
	"github.com/google/differential-privacy/dpquery/noise"
	"github.com/google/differential-privacy/dpquery/rand"
)

// DefaultHistogramBins is the number of histogram bins used when
// EngineOptions.HistogramBins is 0.
const DefaultHistogramBins = 10

// Table is the view of a dataset the engine needs.
type Table interface {
	// HasColumn reports whether a column with the given name exists.
	HasColumn(name string) bool
	// Numeric returns the named column with missing and non-numeric entries
	// marked invalid.
	Numeric(name string) (dataset.NumericColumn, error)
}

// EngineOptions contains the options necessary to initialize an Engine.
type EngineOptions struct {
	// Source of randomness for all noise draws. Defaults to rand.Default().
	// Engines serving concurrent requests may share a Source.
	Source *rand.Source
	// Number of equal-width histogram bins. Defaults to DefaultHistogramBins.
	HistogramBins int
	// StrictDelta makes an empty or unparsable δ a ConfigurationError for
	// Gaussian noise instead of falling back to DefaultDelta.
	StrictDelta bool
}

// Engine runs differentially private queries. It holds no mutable state and
// is safe for concurrent use.
type Engine struct {
	src         *rand.Source
	bins        int
	strictDelta bool
}

// NewEngine returns an Engine configured by opt. A nil opt uses the defaults.
func NewEngine(opt *EngineOptions) (*Engine, error) {
	if opt == nil {
		opt = &EngineOptions{}
	}
	bins := opt.HistogramBins
	if bins == 0 {
		bins = DefaultHistogramBins
	}
	if err := checks.CheckBins(bins); err != nil {
		return nil, fmt.Errorf("NewEngine: %w", err)
	}
	src := opt.Source
	if src == nil {
		src = rand.Default()
	}
	return &Engine{src: src, bins: bins, strictDelta: opt.StrictDelta}, nil
}

// Run validates cfg against t and returns the noised statistic.
//
// Validation fails fast in this order: column, bounds, column data, δ,
// mechanism and query. Neither cfg nor t is modified.
func (e *Engine) Run(cfg Snapshot, t Table) (*Result, error) {
	if err := checkColumn(cfg.Column, t); err != nil {
		return nil, err
	}
	bounds, err := parseBounds(cfg.Min, cfg.Max)
	if err != nil {
		return nil, err
	}
	col, err := t.Numeric(cfg.Column)
	if err != nil {
		return nil, newError(DataError, err, "converting column %q to numbers failed", cfg.Column)
	}
	values := col.Retained()
	if len(values) == 0 {
		return nil, &Error{Kind: DataError, Message: fmt.Sprintf("column %q has no valid numeric values", cfg.Column)}
	}

	res := &Result{
		Epsilon:   cfg.Epsilon,
		Mechanism: cfg.Mechanism,
		Query:     cfg.Query,
		Column:    cfg.Column,
		Bounds:    bounds,
		N:         len(values),
	}
	switch cfg.Mechanism {
	case noise.LaplaceNoise:
	case noise.GaussianAnalyticNoise:
		delta, err := e.parseDelta(cfg.Delta)
		if err != nil {
			return nil, err
		}
		res.Delta = &delta
	default:
		return nil, &Error{Kind: MechanismError, Message: fmt.Sprintf("unsupported mechanism: %s", cfg.Mechanism)}
	}

	if err := e.compute(res, values); err != nil {
		return nil, err
	}
	log.V(1).Infof("dpquery: %s %s of %q over %d values: sensitivity %g, noise scale %g",
		res.Mechanism, res.Query, res.Column, res.N, res.Sensitivity, res.NoiseScale)
	return res, nil
}

func checkColumn(column string, t Table) error {
	if column == "" {
		return &Error{Kind: ConfigurationError, Message: "no target column selected"}
	}
	if !t.HasColumn(column) {
		return &Error{Kind: ConfigurationError, Message: fmt.Sprintf("column not found: %s", column)}
	}
	return nil
}

func parseBounds(min, max string) (Bounds, error) {
	lower, errMin := strconv.ParseFloat(strings.TrimSpace(min), 64)
	upper, errMax := strconv.ParseFloat(strings.TrimSpace(max), 64)
	if errMin != nil || errMax != nil {
		return Bounds{}, &Error{
			Kind:    ConfigurationError,
			Message: fmt.Sprintf("bounds must be numbers, got min %q and max %q", min, max),
		}
	}
	if lower >= upper {
		return Bounds{}, &Error{
			Kind:    ConfigurationError,
			Message: fmt.Sprintf("invalid bounds: min (%g) must be less than max (%g)", lower, upper),
		}
	}
	if err := checks.CheckBoundsFloat64Strict(lower, upper); err != nil {
		return Bounds{}, newError(ConfigurationError, err, "invalid bounds")
	}
	return Bounds{Min: lower, Max: upper}, nil
}

// parseDelta parses the δ text of a Gaussian run. Values outside (0, 1) are
// returned as parsed and rejected when the mechanism is constructed.
func (e *Engine) parseDelta(text string) (float64, error) {
	delta, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err == nil && !math.IsNaN(delta) && !math.IsInf(delta, 0) {
		return delta, nil
	}
	if e.strictDelta {
		return 0, &Error{Kind: ConfigurationError, Message: fmt.Sprintf("delta must be a number, got %q", text)}
	}
	log.Warningf("dpquery: delta %q is not a number, using %g", text, DefaultDelta)
	return DefaultDelta, nil
}

// compute fills in the statistic, sensitivity and noise scale of res.
func (e *Engine) compute(res *Result, values []float64) error {
	eps, delta := res.Epsilon, res.delta()
	lower, upper := res.Bounds.Min, res.Bounds.Max

	mechErr := func(err error) error {
		return newError(MechanismError, err, "differentially private %s with %s noise failed", res.Query, res.Mechanism)
	}
	// scalar is the shape shared by the scalar aggregations.
	type scalar interface {
		Add(float64) error
		Sensitivity() float64
		Mechanism() (noise.Mechanism, error)
		Result() (float64, error)
	}
	var agg scalar
	switch res.Query {
	case Mean:
		bm, err := dpagg.NewBoundedMean(&dpagg.BoundedMeanOptions{
			Epsilon: eps, Delta: delta, Lower: lower, Upper: upper, Noise: res.Mechanism, Source: e.src,
		})
		if err != nil {
			return mechErr(err)
		}
		agg = bm
	case Sum:
		bs, err := dpagg.NewBoundedSum(&dpagg.BoundedSumOptions{
			Epsilon: eps, Delta: delta, Lower: lower, Upper: upper, Noise: res.Mechanism, Source: e.src,
		})
		if err != nil {
			return mechErr(err)
		}
		agg = bs
	case Count:
		c, err := dpagg.NewCount(&dpagg.CountOptions{Epsilon: eps, Delta: delta, Noise: res.Mechanism, Source: e.src})
		if err != nil {
			return mechErr(err)
		}
		agg = countAdder{c}
	case Histogram:
		return e.computeHistogram(res, values, mechErr)
	default:
		return &Error{Kind: MechanismError, Message: fmt.Sprintf("unsupported query: %s", res.Query)}
	}

	for _, v := range values {
		if err := agg.Add(v); err != nil {
			return mechErr(err)
		}
	}
	m, err := agg.Mechanism()
	if err != nil {
		return mechErr(err)
	}
	value, err := agg.Result()
	if err != nil {
		return mechErr(err)
	}
	res.Value = &value
	res.Sensitivity = agg.Sensitivity()
	res.NoiseScale = m.Scale()
	return nil
}

func (e *Engine) computeHistogram(res *Result, values []float64, mechErr func(error) error) error {
	h, err := dpagg.NewHistogram(&dpagg.HistogramOptions{
		Epsilon: res.Epsilon,
		Delta:   res.delta(),
		Lower:   res.Bounds.Min,
		Upper:   res.Bounds.Max,
		Bins:    e.bins,
		Noise:   res.Mechanism,
		Source:  e.src,
	})
	if err != nil {
		return mechErr(err)
	}
	for _, v := range values {
		if err := h.Add(v); err != nil {
			return mechErr(err)
		}
	}
	m, err := h.Mechanism()
	if err != nil {
		return mechErr(err)
	}
	hist, err := h.Result()
	if err != nil {
		return mechErr(err)
	}
	res.Hist = hist
	res.BinEdges = h.BinEdges()
	res.Sensitivity = h.Sensitivity()
	res.NoiseScale = m.Scale()
	return nil
}

// countAdder counts every retained value.
type countAdder struct{ *dpagg.Count }

func (c countAdder) Add(float64) error { return c.Increment() }
