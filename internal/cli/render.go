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
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/google/differential-privacy/dpquery/dpquery"
	"github.com/jedib0t/go-pretty/v6/table"
)

func renderEnvelope(w io.Writer, env dpquery.Envelope, format string, alpha float64) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(env)
	case "table", "":
		if !env.OK {
			_, err := fmt.Fprintf(w, "%s: %s\n", env.Failure.Kind, env.Message)
			return err
		}
		return renderTable(w, env.Result, alpha)
	}
	return fmt.Errorf("unknown output format %q, want table or json", format)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func renderTable(w io.Writer, res *dpquery.Result, alpha float64) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Parameter", "Value"})
	t.AppendRow(table.Row{"mechanism", res.Mechanism.String()})
	t.AppendRow(table.Row{"query", res.Query.String()})
	t.AppendRow(table.Row{"column", res.Column})
	t.AppendRow(table.Row{"epsilon", formatFloat(res.Epsilon)})
	if res.Delta != nil {
		t.AppendRow(table.Row{"delta", formatFloat(*res.Delta)})
	}
	t.AppendRow(table.Row{"bounds", fmt.Sprintf("[%s, %s]", formatFloat(res.Bounds.Min), formatFloat(res.Bounds.Max))})
	t.AppendRow(table.Row{"values used", res.N})
	t.AppendRow(table.Row{"sensitivity", formatFloat(res.Sensitivity)})
	t.AppendRow(table.Row{"noise scale", formatFloat(res.NoiseScale)})
	if res.Value != nil {
		t.AppendRow(table.Row{"noised value", formatFloat(*res.Value)})
		if ci, err := res.ConfidenceInterval(alpha); err == nil {
			t.AppendRow(table.Row{
				formatFloat(100*(1-alpha)) + "% interval",
				fmt.Sprintf("[%s, %s]", formatFloat(ci.LowerBound), formatFloat(ci.UpperBound)),
			})
		}
	}
	t.Render()

	if res.Hist == nil {
		return nil
	}
	h := table.NewWriter()
	h.SetOutputMirror(w)
	h.SetStyle(table.StyleLight)
	h.AppendHeader(table.Row{"Bin", "Range", "Noised count"})
	for i, c := range res.Hist {
		closing := ")"
		if i == len(res.Hist)-1 {
			closing = "]"
		}
		h.AppendRow(table.Row{
			i + 1,
			fmt.Sprintf("[%s, %s%s", formatFloat(res.BinEdges[i]), formatFloat(res.BinEdges[i+1]), closing),
			formatFloat(c),
		})
	}
	h.Render()
	return nil
}
