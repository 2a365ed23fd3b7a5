// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package parsecmd is the parse subcommand to turn one diff into a tree
// and print it as a linegraph.
package parsecmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"

	"github.com/macrodiff/macrodiff/difftree/parse"
	"github.com/macrodiff/macrodiff/difftree/transform"
	"github.com/macrodiff/macrodiff/linegraph"
	"github.com/macrodiff/macrodiff/pattern"
	"github.com/macrodiff/macrodiff/unidiff"
)

const usage = `parse one diff into an annotation tree and print it as a linegraph.

To parse a full diff (no hunk headers, every line prefixed " ", "+" or "-"):

 $ macrodiff parse patch.diff

To expand a sparse git diff against the before revision first:

 $ macrodiff parse -before old/main.c patch.diff

To diff two file revisions directly:

 $ macrodiff parse old/main.c new/main.c

Reads stdin when no file is given. Output goes to stdout, or to -o;
an -o path ending in .gz is gzip-compressed.
`

// Cmd returns the Command for the `parse` subcommand provided by this package.
func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "parse [flags] [diff-file | before-file after-file]",
		ShortDesc: "parse a diff into an annotation tree",
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

	before           string
	collapseCode     bool
	ignoreBlankLines bool
	style            string
	transforms       string
	patterns         bool
	output           string
}

func (c *run) init() {
	c.Flags.StringVar(&c.before, "before", "", "treat the input as a sparse git diff and expand it against this before revision")
	c.Flags.BoolVar(&c.collapseCode, "collapse_code", false, "merge runs of equally-changed code lines into one node")
	c.Flags.BoolVar(&c.ignoreBlankLines, "ignore_blank_lines", false, "skip blank lines instead of treating them as code")
	c.Flags.StringVar(&c.style, "style", "verbose", "node label style: verbose, type or pretty. only verbose output can be imported again")
	c.Flags.StringVar(&c.transforms, "transform", "", "comma-separated transformations to apply: cut, collapse, relabel")
	c.Flags.BoolVar(&c.patterns, "patterns", false, "print matched edit patterns to stderr")
	c.Flags.StringVar(&c.output, "o", "", "output path. defaults to stdout")
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
	fullDiff, source, err := c.fullDiff(args)
	if err != nil {
		return err
	}

	opts := parse.Options{
		CollapseMultipleCodeLines: c.collapseCode,
		IgnoreEmptyLines:          c.ignoreBlankLines,
	}
	tree, err := parse.FullDiff(fullDiff, opts)
	if err != nil {
		return err
	}
	tree.Source = source

	if c.patterns {
		matches, err := pattern.Analyze(tree)
		if err != nil {
			return err
		}
		for _, m := range matches {
			fmt.Fprintln(os.Stderr, m)
		}
	}

	ts, err := c.transformers()
	if err != nil {
		return err
	}
	if err := transform.Apply(tree, ts...); err != nil {
		return err
	}

	style, err := nodeStyle(c.style)
	if err != nil {
		return err
	}
	var w io.WriteCloser = os.Stdout
	if c.output != "" {
		w, err = linegraph.Create(c.output)
		if err != nil {
			return err
		}
	}
	_, err = linegraph.ExportTree(w, tree, linegraph.ExportOptions{Style: style})
	if c.output != "" {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// fullDiff resolves the positional arguments to the full diff to parse
// and a name for the resulting tree.
func (c *run) fullDiff(args []string) (fullDiff, source string, err error) {
	switch {
	case len(args) == 2 && c.before == "":
		before, err := os.ReadFile(args[0])
		if err != nil {
			return "", "", err
		}
		after, err := os.ReadFile(args[1])
		if err != nil {
			return "", "", err
		}
		return unidiff.Compute(string(before), string(after)), args[1], nil
	case len(args) > 1:
		return "", "", fmt.Errorf("too many arguments: %w", flag.ErrHelp)
	}

	in := "-"
	if len(args) == 1 {
		in = args[0]
	}
	var buf []byte
	if in == "-" {
		buf, err = io.ReadAll(os.Stdin)
	} else {
		buf, err = os.ReadFile(in)
	}
	if err != nil {
		return "", "", err
	}
	diff := string(buf)
	source = in
	if in == "-" {
		source = "stdin"
	}
	if c.before != "" {
		before, err := os.ReadFile(c.before)
		if err != nil {
			return "", "", err
		}
		diff, err = unidiff.Reconstruct(string(before), diff)
		if err != nil {
			return "", "", err
		}
		source = c.before
	}
	return diff, source, nil
}

func (c *run) transformers() ([]transform.Transformer, error) {
	if c.transforms == "" {
		return nil, nil
	}
	var ts []transform.Transformer
	for _, name := range strings.Split(c.transforms, ",") {
		switch strings.TrimSpace(name) {
		case "cut":
			ts = append(ts, transform.CutNonEditedSubtrees())
		case "collapse":
			ts = append(ts, transform.CollapseNestedNonEditedMacros())
		case "relabel":
			ts = append(ts, transform.RelabelNodes(pattern.Labeler()))
		default:
			return nil, fmt.Errorf("unknown transformation %q: %w", name, flag.ErrHelp)
		}
	}
	return ts, nil
}

func nodeStyle(s string) (linegraph.NodeStyle, error) {
	switch s {
	case "verbose":
		return linegraph.StyleVerbose, nil
	case "type":
		return linegraph.StyleType, nil
	case "pretty":
		return linegraph.StylePretty, nil
	}
	return 0, fmt.Errorf("unknown node style %q: %w", s, flag.ErrHelp)
}
