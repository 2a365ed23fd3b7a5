// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package minecmd is the mine subcommand to batch-analyze directories of
// patches into linegraph exports.
package minecmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/system/signals"

	"github.com/macrodiff/macrodiff/mine"
)

const usage = `mine a set of patch datasets into linegraph exports.

 $ macrodiff mine -config run.toml

The config maps datasets to parse and export options:

 workers = 8
 strategy = "collect"

 [[datasets]]
 name = "busybox"
 patches = "patches/busybox"
 collapse_code = true
 gzip = true

Each dataset produces its linegraph next to a .metadata.txt with node,
pattern and failure counts. Patches that fail to parse are counted and
skipped; the run fails only on internal errors.
`

// Cmd returns the Command for the `mine` subcommand provided by this package.
func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "mine -config <config.toml>",
		ShortDesc: "batch-analyze patch datasets",
		LongDesc:  usage,
		CommandRun: func() subcommands.CommandRun {
			c := &run{}
			c.init()
			return c
		},
	}
}

type run struct {
	subcommands.CommandRunBase

	config   string
	workers  int
	strategy string
}

func (c *run) init() {
	c.Flags.StringVar(&c.config, "config", "", "TOML run config. required")
	c.Flags.IntVar(&c.workers, "workers", 0, "override the config's worker count")
	c.Flags.StringVar(&c.strategy, "strategy", "", "override the config's export strategy: collect or incremental")
}

func (c *run) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := cli.GetContext(a, c, env)
	err := c.run(ctx, args)
	if err != nil {
		switch {
		case errors.Is(err, flag.ErrHelp):
			fmt.Fprintf(os.Stderr, "%s\n", usage)
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func (c *run) run(ctx context.Context, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer signals.HandleInterrupt(cancel)()

	if len(args) != 0 {
		return fmt.Errorf("position arguments not expected: %w", flag.ErrHelp)
	}
	if c.config == "" {
		return fmt.Errorf("-config is required: %w", flag.ErrHelp)
	}
	cfg, err := mine.LoadConfig(c.config)
	if err != nil {
		return err
	}
	if c.workers > 0 {
		cfg.Workers = c.workers
	}
	switch c.strategy {
	case "":
	case "collect", "incremental":
		cfg.Strategy = c.strategy
	default:
		return fmt.Errorf("unknown strategy %q: %w", c.strategy, flag.ErrHelp)
	}

	stats, err := mine.Run(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Printf("patches: %d (%d failed)\n", stats.Patches, stats.Failed)
	fmt.Printf("trees:   %d (non=%d add=%d rem=%d)\n",
		stats.Export.Trees, stats.Export.NonNodes, stats.Export.AddNodes, stats.Export.RemNodes)
	return nil
}
