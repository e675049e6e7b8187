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

package cli

import (
	"fmt"
	"strings"

	"github.com/google/differential-privacy/dpquery/dpquery"
	"github.com/google/differential-privacy/dpquery/noise"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// normalizeLabel maps compatibility forms such as full-width letters to
// their canonical form and folds case.
func normalizeLabel(label string) string {
	return cases.Fold().String(norm.NFKC.String(strings.TrimSpace(label)))
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// ParseMechanism maps a display label such as "Laplace", "Gaussian 機制" or
// "高斯機制" to a mechanism kind.
func ParseMechanism(label string) (noise.Kind, error) {
	s := normalizeLabel(label)
	switch {
	case containsAny(s, "laplace", "拉普拉斯"):
		return noise.LaplaceNoise, nil
	case containsAny(s, "gauss", "高斯"):
		return noise.GaussianAnalyticNoise, nil
	}
	return noise.Unrecognised, fmt.Errorf("unknown mechanism %q, want laplace or gaussian", label)
}

// ParseQuery maps a display label such as "Mean", "平均值 (Mean)" or
// "直方圖" to a query.
func ParseQuery(label string) (dpquery.Query, error) {
	s := normalizeLabel(label)
	switch {
	case containsAny(s, "mean", "平均"):
		return dpquery.Mean, nil
	case containsAny(s, "sum", "總和", "总和"):
		return dpquery.Sum, nil
	case containsAny(s, "count", "計數", "计数"):
		return dpquery.Count, nil
	case containsAny(s, "hist", "直方圖", "直方图"):
		return dpquery.Histogram, nil
	}
	return dpquery.UnknownQuery, fmt.Errorf("unknown query %q, want mean, sum, count or histogram", label)
}
