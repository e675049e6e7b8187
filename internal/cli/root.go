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

// Package cli provides the command-line interface of dpquery.
package cli

import (
	"flag"

	"github.com/spf13/cobra"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string
	rootCmd := &cobra.Command{
		Use:   "dpquery",
		Short: "dpquery - differentially private statistics over CSV columns",
		Long: `dpquery releases the mean, sum, count or histogram of one CSV column with
Laplace or analytic Gaussian noise, and exports datasets whose column is
perturbed value by value.

Settings are read from dpquery.yaml, DPQUERY_* environment variables and
flags, in increasing order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./dpquery.yaml)")
	// glog registers -v, -logtostderr and friends on the standard flag set.
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	rootCmd.AddCommand(newRunCommand(&cfgFile))
	rootCmd.AddCommand(newPerturbCommand(&cfgFile))
	return rootCmd
}

// addQueryFlags registers the flags shared by all commands that run a query.
func addQueryFlags(cmd *cobra.Command) {
	d := defaults()
	f := cmd.Flags()
	f.StringP("input", "i", "", "input CSV file (required)")
	f.StringP("column", "c", "", "target column")
	f.String("min", "", "lower clipping bound")
	f.String("max", "", "upper clipping bound")
	f.Float64P("epsilon", "e", d["epsilon"].(float64), "privacy parameter ε")
	f.String("delta", d["delta"].(string), "privacy parameter δ (Gaussian only)")
	f.StringP("mechanism", "m", d["mechanism"].(string), "noise mechanism (laplace|gaussian)")
	f.StringP("query", "q", d["query"].(string), "statistic (mean|sum|count|histogram)")
	f.Int("bins", d["bins"].(int), "number of histogram bins")
	f.Uint64("seed", 0, "seed for reproducible, non-cryptographic noise (0 uses crypto/rand)")
	f.Bool("strict-delta", false, "reject an empty or malformed δ instead of using 1e-5")

	_ = cmd.RegisterFlagCompletionFunc("mechanism", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"laplace", "gaussian"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("query", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"mean", "sum", "count", "histogram"}, cobra.ShellCompDirectiveNoFileComp
	})
}
