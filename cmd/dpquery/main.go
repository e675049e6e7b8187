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

// Command dpquery computes differentially private statistics of CSV columns.
package main

import (
	"fmt"
	"os"

	log "github.com/golang/glog"
	"github.com/google/differential-privacy/dpquery/internal/cli"
)

func main() {
	err := cli.NewRootCmd().Execute()
	log.Flush()
	if err != nil {
		fmt.Fprintln(os.Stderr, "dpquery:", err)
		os.Exit(1)
	}
}
