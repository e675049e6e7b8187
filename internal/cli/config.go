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
	"os"
	"strings"

	log "github.com/golang/glog"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// DefaultConfigFile is read from the working directory when no --config is given.
const DefaultConfigFile = "dpquery.yaml"

// envPrefix marks environment variables that override configuration keys,
// e.g. DPQUERY_EPSILON or DPQUERY_STRICT_DELTA.
const envPrefix = "DPQUERY_"

// Config holds the settings of one invocation. Bounds and δ stay text so the
// engine reports malformed values the same way for every source.
type Config struct {
	Input       string  `koanf:"input"`
	Output      string  `koanf:"output"`
	Column      string  `koanf:"column"`
	Min         string  `koanf:"min"`
	Max         string  `koanf:"max"`
	Epsilon     float64 `koanf:"epsilon"`
	Delta       string  `koanf:"delta"`
	Mechanism   string  `koanf:"mechanism"`
	Query       string  `koanf:"query"`
	Bins        int     `koanf:"bins"`
	Seed        uint64  `koanf:"seed"` // 0 draws noise from crypto/rand.
	Alpha       float64 `koanf:"alpha"`
	Format      string  `koanf:"format"`
	StrictDelta bool    `koanf:"strict_delta"`
}

func defaults() map[string]any {
	return map[string]any{
		"epsilon":      1.0,
		"delta":        "1e-5",
		"mechanism":    "laplace",
		"query":        "mean",
		"bins":         10,
		"alpha":        0.05,
		"format":       "table",
		"strict_delta": false,
	}
}

// LoadConfig merges, from lowest to highest precedence, the defaults, the
// YAML file cfgFile (or DefaultConfigFile if present), DPQUERY_* environment
// variables and the flags that were set explicitly.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if cfgFile == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			cfgFile = DefaultConfigFile
		}
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
		log.V(1).Infof("cli: using config file %s", cfgFile)
	}

	// DPQUERY_STRICT_DELTA -> strict_delta
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}
