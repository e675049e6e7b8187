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
	"errors"
	"fmt"

	log "github.com/golang/glog"
	"github.com/google/differential-privacy/dpquery/dataset"
	"github.com/google/differential-privacy/dpquery/dpquery"
	"github.com/google/differential-privacy/dpquery/rand"
	"github.com/spf13/cobra"
)

func newRunCommand(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compute a differentially private statistic of one column",
		Example: `  # Laplace mean of the age column clipped to [0, 100]
  dpquery run -i people.csv -c age --min 0 --max 100

  # Gaussian histogram as JSON
  dpquery run -i people.csv -c age --min 0 --max 100 -m gaussian --delta 1e-6 -q histogram --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(*cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			q, err := newQuery(cfg)
			if err != nil {
				return err
			}
			res, err := q.run()
			if rerr := renderEnvelope(cmd.OutOrStdout(), dpquery.Response(res, err), cfg.Format, cfg.Alpha); rerr != nil {
				return errors.Join(err, rerr)
			}
			return err
		},
	}
	addQueryFlags(cmd)
	cmd.Flags().Float64("alpha", defaults()["alpha"].(float64), "confidence level 1-α of the reported interval")
	cmd.Flags().String("format", defaults()["format"].(string), "output format (table|json)")
	return cmd
}

// query is one configured engine invocation.
type query struct {
	engine   *dpquery.Engine
	data     *dataset.Dataset
	snapshot dpquery.Snapshot
}

func newQuery(cfg *Config) (*query, error) {
	if cfg.Input == "" {
		return nil, errors.New("no input file, set --input")
	}
	mech, err := ParseMechanism(cfg.Mechanism)
	if err != nil {
		return nil, err
	}
	q, err := ParseQuery(cfg.Query)
	if err != nil {
		return nil, err
	}
	d, err := dataset.LoadCSV(cfg.Input)
	if err != nil {
		return nil, err
	}

	conf := dpquery.NewConfiguration()
	conf.SetEpsilon(cfg.Epsilon)
	conf.SetMechanism(mech)
	conf.SetDelta(cfg.Delta)
	conf.SetQuery(q)
	conf.SetColumn(cfg.Column)
	conf.SetBounds(cfg.Min, cfg.Max)

	e, err := dpquery.NewEngine(&dpquery.EngineOptions{
		Source:        sourceFor(cfg.Seed),
		HistogramBins: cfg.Bins,
		StrictDelta:   cfg.StrictDelta,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid engine options: %w", err)
	}
	return &query{engine: e, data: d, snapshot: conf.Snapshot()}, nil
}

func (q *query) run() (*dpquery.Result, error) {
	return q.engine.Run(q.snapshot, q.data)
}

func sourceFor(seed uint64) *rand.Source {
	if seed == 0 {
		return rand.Default()
	}
	log.Warningf("cli: seeded noise is reproducible and must not be used to release data")
	return rand.NewSeededSource(seed)
}
