// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package mine

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/macrodiff/macrodiff/linegraph"
	"github.com/macrodiff/macrodiff/runtimex"
)

// Config describes one mining run: a set of datasets and how to process
// them. Loaded from a TOML file.
type Config struct {
	// Workers bounds patch-level parallelism. Defaults to NumCPU.
	Workers int `toml:"workers"`
	// Strategy selects when trees are exported: "collect" gathers all
	// results before writing, "incremental" writes each tree as soon as
	// it is analyzed. Defaults to "collect".
	Strategy string `toml:"strategy"`

	Datasets []Dataset `toml:"datasets"`
}

// Dataset is one directory of patch files and its processing options.
type Dataset struct {
	Name string `toml:"name"`
	// Patches is a directory of full-diff files, one patch per file.
	Patches string `toml:"patches"`
	// Output is the linegraph path. Defaults to <name>.lg, with .gz
	// appended when Gzip is set.
	Output string `toml:"output"`

	CollapseCode     bool `toml:"collapse_code"`
	IgnoreBlankLines bool `toml:"ignore_blank_lines"`
	// NodeStyle is one of "verbose", "type", "pretty". Only "verbose"
	// output can be imported again. Defaults to "verbose".
	NodeStyle string `toml:"node_style"`
	Gzip      bool   `toml:"gzip"`
}

// LoadConfig reads and validates a TOML mining config.
func LoadConfig(path string) (Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := toml.Unmarshal(buf, &cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.setDefaults(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (cfg *Config) setDefaults() error {
	if cfg.Workers <= 0 {
		cfg.Workers = runtimex.NumCPU()
	}
	switch cfg.Strategy {
	case "":
		cfg.Strategy = "collect"
	case "collect", "incremental":
	default:
		return fmt.Errorf("unknown strategy %q", cfg.Strategy)
	}
	if len(cfg.Datasets) == 0 {
		return fmt.Errorf("no datasets configured")
	}
	seen := make(map[string]bool, len(cfg.Datasets))
	for i := range cfg.Datasets {
		ds := &cfg.Datasets[i]
		if ds.Name == "" {
			return fmt.Errorf("dataset %d has no name", i)
		}
		if seen[ds.Name] {
			return fmt.Errorf("dataset %q configured twice", ds.Name)
		}
		seen[ds.Name] = true
		if ds.Patches == "" {
			return fmt.Errorf("dataset %q has no patches directory", ds.Name)
		}
		if ds.Output == "" {
			ds.Output = ds.Name + ".lg"
			if ds.Gzip {
				ds.Output += ".gz"
			}
		}
		if _, err := ds.nodeStyle(); err != nil {
			return fmt.Errorf("dataset %q: %w", ds.Name, err)
		}
	}
	return nil
}

func (ds *Dataset) nodeStyle() (linegraph.NodeStyle, error) {
	switch ds.NodeStyle {
	case "", "verbose":
		return linegraph.StyleVerbose, nil
	case "type":
		return linegraph.StyleType, nil
	case "pretty":
		return linegraph.StylePretty, nil
	}
	return 0, fmt.Errorf("unknown node style %q", ds.NodeStyle)
}
