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

import "fmt"

// Query is an enum type. Its values are the supported statistics.
type Query int

// Statistics the engine can release.
const (
	UnknownQuery Query = iota
	Mean
	Sum
	Count
	Histogram
)

// String returns the wire name of the query.
func (q Query) String() string {
	switch q {
	case Mean:
		return "mean"
	case Sum:
		return "sum"
	case Count:
		return "count"
	case Histogram:
		return "histogram"
	}
	return "unknown"
}

// MarshalText encodes the query as its wire name.
func (q Query) MarshalText() ([]byte, error) {
	if q < Mean || q > Histogram {
		return nil, fmt.Errorf("dpquery: cannot marshal unknown query %d", int(q))
	}
	return []byte(q.String()), nil
}

// Queries lists the supported statistics in display order.
func Queries() []Query {
	return []Query{Mean, Sum, Count, Histogram}
}
