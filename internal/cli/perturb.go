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

	"github.com/spf13/cobra"
)

func newPerturbCommand(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "perturb",
		Short: "Export a copy of the input with one column perturbed value by value",
		Long: `perturb validates the query settings like run, then writes a copy of the
input in which every value of the target column is clipped into [min, max]
and noised with sensitivity max - min. Missing and non-numeric values are
written as empty fields; other columns are copied unchanged.`,
		Example: `  dpquery perturb -i people.csv -c age --min 0 --max 100 -o people_dp.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(*cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			if cfg.Output == "" {
				return errors.New("no output file, set --output")
			}
			q, err := newQuery(cfg)
			if err != nil {
				return err
			}
			res, err := q.run()
			if err != nil {
				return err
			}
			if err := q.engine.ExportFile(res, q.data, cfg.Output); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", q.data.NumRows(), cfg.Output)
			return err
		},
	}
	addQueryFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "output CSV file (required)")
	return cmd
}
