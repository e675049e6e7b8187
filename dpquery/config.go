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

package dpquery

import (
	"sync"

	"github.com/google/differential-privacy/dpquery/noise"
)

// DefaultDelta is used for Gaussian noise when δ is left empty or cannot be
// parsed.
const DefaultDelta = 1e-5

// Snapshot is an immutable copy of a Configuration taken for one run. Bounds
// and δ are kept as entered; Engine.Run parses and validates every field.
type Snapshot struct {
	Epsilon   float64
	Mechanism noise.Kind
	Delta     string
	Query     Query
	Column    string // Empty if no column was selected.
	Min       string
	Max       string
}

// Configuration holds the parameters of a computation while they are being
// edited. Setters store values verbatim and never fail.
//
// Configuration is safe for concurrent use; engines only ever see Snapshots.
type Configuration struct {
	mu sync.RWMutex
	s  Snapshot
}

// NewConfiguration returns a Configuration with ε = 1, Laplace noise, the
// mean query, δ = 1e-5, no column and no bounds.
func NewConfiguration() *Configuration {
	return &Configuration{s: Snapshot{
		Epsilon:   1.0,
		Mechanism: noise.LaplaceNoise,
		Delta:     "1e-5",
		Query:     Mean,
	}}
}

func (c *Configuration) update(f func(s *Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f(&c.s)
}

// SetEpsilon sets the privacy parameter ε.
func (c *Configuration) SetEpsilon(epsilon float64) {
	c.update(func(s *Snapshot) { s.Epsilon = epsilon })
}

// SetMechanism sets the noise mechanism.
func (c *Configuration) SetMechanism(k noise.Kind) {
	c.update(func(s *Snapshot) { s.Mechanism = k })
}

// SetDelta sets the privacy parameter δ as entered by the user.
func (c *Configuration) SetDelta(delta string) {
	c.update(func(s *Snapshot) { s.Delta = delta })
}

// SetQuery sets the statistic to compute.
func (c *Configuration) SetQuery(q Query) {
	c.update(func(s *Snapshot) { s.Query = q })
}

// SetColumn selects the target column. An empty name clears the selection.
func (c *Configuration) SetColumn(column string) {
	c.update(func(s *Snapshot) { s.Column = column })
}

// SetBounds sets the clipping bounds as entered by the user.
func (c *Configuration) SetBounds(min, max string) {
	c.update(func(s *Snapshot) { s.Min, s.Max = min, max })
}

// Snapshot returns a copy of the current parameters. Later setter calls do not
// affect it.
func (c *Configuration) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.s
}
