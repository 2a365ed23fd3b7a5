// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package mine runs batch analyses over directories of patch files: each
// patch is parsed into a diff tree, classified against the pattern
// catalogs, transformed, and exported as a linegraph, with statistics
// accumulated across patches and datasets.
package mine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/macrodiff/macrodiff/difftree"
	"github.com/macrodiff/macrodiff/difftree/parse"
	"github.com/macrodiff/macrodiff/difftree/transform"
	"github.com/macrodiff/macrodiff/linegraph"
	"github.com/macrodiff/macrodiff/pattern"
	"github.com/macrodiff/macrodiff/sync/semaphore"
)

// Patch is one full diff to analyze.
type Patch struct {
	// Name identifies the patch and becomes the exported tree's source,
	// conventionally "<file>$$$<commit>".
	Name     string
	FullDiff string
}

// Source yields the patches of a dataset.
type Source interface {
	Patches(ctx context.Context) ([]Patch, error)
}

// DirSource reads every regular file of a directory as one patch. The
// patch name is the file name without its .diff or .patch extension.
type DirSource struct {
	Dir string
}

// Patches implements Source. Files are returned in name order so runs
// are reproducible.
func (s DirSource) Patches(ctx context.Context) ([]Patch, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, err
	}
	var patches []Patch
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		buf, err := os.ReadFile(filepath.Join(s.Dir, e.Name()))
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(strings.TrimSuffix(e.Name(), ".diff"), ".patch")
		patches = append(patches, Patch{Name: name, FullDiff: string(buf)})
	}
	sort.Slice(patches, func(i, j int) bool { return patches[i].Name < patches[j].Name })
	return patches, nil
}

// Result is the outcome of analyzing one patch: a transformed tree with
// its pattern matches, or a structured parse error.
type Result struct {
	Patch   string
	Tree    *difftree.DiffTree
	Matches []pattern.Match
	Err     error
}

// Stats accumulates counts over a run. Mergeable, so per-dataset and
// per-run totals use the same type.
type Stats struct {
	Patches int
	Failed  int
	Export  linegraph.Stats
	// Failures counts failed patches by parse error kind.
	Failures map[difftree.DiffError]int
	// Patterns counts pattern matches by pattern name.
	Patterns map[string]int
}

// Merge folds other into s.
func (s *Stats) Merge(other Stats) {
	s.Patches += other.Patches
	s.Failed += other.Failed
	s.Export.Merge(other.Export)
	for k, v := range other.Failures {
		if s.Failures == nil {
			s.Failures = make(map[difftree.DiffError]int)
		}
		s.Failures[k] += v
	}
	for k, v := range other.Patterns {
		if s.Patterns == nil {
			s.Patterns = make(map[string]int)
		}
		s.Patterns[k] += v
	}
}

func (s *Stats) countFailure(kind difftree.DiffError) {
	s.Failed++
	if s.Failures == nil {
		s.Failures = make(map[difftree.DiffError]int)
	}
	s.Failures[kind]++
}

func (s *Stats) countMatches(matches []pattern.Match) {
	if len(matches) > 0 && s.Patterns == nil {
		s.Patterns = make(map[string]int)
	}
	for _, m := range matches {
		s.Patterns[m.Pattern]++
	}
}

// Run mines every dataset of the config and returns the merged stats.
// Patch-level parse errors are counted, logged and skipped; internal
// inconsistencies abort the run.
func Run(ctx context.Context, cfg Config) (Stats, error) {
	runID := uuid.NewString()
	start := time.Now()
	log.Infof("mining run %s: %d datasets, %d workers, %s export",
		runID, len(cfg.Datasets), cfg.Workers, cfg.Strategy)

	var total Stats
	for _, ds := range cfg.Datasets {
		stats, err := runDataset(ctx, cfg, ds, runID)
		if err != nil {
			return total, fmt.Errorf("dataset %s: %w", ds.Name, err)
		}
		total.Merge(stats)
	}
	log.Infof("mining run %s: %d patches (%d failed), %d trees exported in %s",
		runID, total.Patches, total.Failed, total.Export.Trees, time.Since(start).Round(time.Millisecond))
	return total, nil
}

func runDataset(ctx context.Context, cfg Config, ds Dataset, runID string) (Stats, error) {
	start := time.Now()
	patches, err := DirSource{Dir: ds.Patches}.Patches(ctx)
	if err != nil {
		return Stats{}, err
	}
	log.Infof("dataset %s: %d patches from %s", ds.Name, len(patches), ds.Patches)

	style, err := ds.nodeStyle()
	if err != nil {
		return Stats{}, err
	}
	opts := parse.Options{
		CollapseMultipleCodeLines: ds.CollapseCode,
		IgnoreEmptyLines:          ds.IgnoreBlankLines,
	}
	exportOpts := linegraph.ExportOptions{Style: style, SkipEmptyTrees: true}

	out, err := linegraph.Create(ds.Output)
	if err != nil {
		return Stats{}, err
	}

	stats, err := mineInto(ctx, cfg, ds, patches, opts, exportOpts, out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return stats, err
	}
	if err := writeMetadata(ds, runID, stats, time.Since(start)); err != nil {
		return stats, err
	}
	log.Infof("dataset %s: %d trees exported to %s (%d patches failed)",
		ds.Name, stats.Export.Trees, ds.Output, stats.Failed)
	return stats, nil
}

func mineInto(ctx context.Context, cfg Config, ds Dataset, patches []Patch, opts parse.Options, exportOpts linegraph.ExportOptions, out io.Writer) (Stats, error) {
	var stats Stats
	stats.Patches = len(patches)

	results := make([]Result, len(patches))
	sem := semaphore.New("mine:"+ds.Name, cfg.Workers)

	var mu sync.Mutex // guards out and stats during incremental export
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range patches {
		g.Go(func() error {
			return sem.Do(gctx, func(ctx context.Context) error {
				res := analyzePatch(p, opts)
				if res.Err != nil {
					if _, ok := difftree.ErrorKind(res.Err); !ok {
						// Not a user-data error. Abort.
						return fmt.Errorf("patch %s: %w", p.Name, res.Err)
					}
					results[i] = res
					return nil
				}
				if cfg.Strategy == "incremental" && !(exportOpts.SkipEmptyTrees && res.Tree.IsEmpty()) {
					mu.Lock()
					defer mu.Unlock()
					es, err := linegraph.ExportTree(out, res.Tree, exportOpts)
					if err != nil {
						return err
					}
					stats.Export.Merge(es)
					stats.countMatches(res.Matches)
					// The tree is written; no need to keep it.
					res.Tree = nil
				}
				results[i] = res
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	for _, res := range results {
		if res.Err != nil {
			log.Warnf("dataset %s: patch %s: %v", ds.Name, res.Patch, res.Err)
			kind, _ := difftree.ErrorKind(res.Err)
			stats.countFailure(kind)
			continue
		}
		if cfg.Strategy != "collect" {
			continue
		}
		if exportOpts.SkipEmptyTrees && res.Tree.IsEmpty() {
			continue
		}
		es, err := linegraph.ExportTree(out, res.Tree, exportOpts)
		if err != nil {
			return stats, err
		}
		stats.Export.Merge(es)
		stats.countMatches(res.Matches)
	}
	return stats, nil
}

// analyzePatch parses one patch, classifies its nodes, and condenses the
// tree to its edited core for export.
func analyzePatch(p Patch, opts parse.Options) Result {
	tree, err := parse.FullDiff(p.FullDiff, opts)
	if err != nil {
		return Result{Patch: p.Name, Err: err}
	}
	tree.Source = p.Name

	// Patterns are matched on the untransformed tree so unchanged context
	// still participates in presence conditions.
	matches, err := pattern.Analyze(tree)
	if err != nil {
		return Result{Patch: p.Name, Err: err}
	}
	err = transform.Apply(tree,
		transform.CutNonEditedSubtrees(),
		transform.CollapseNestedNonEditedMacros(),
		transform.RelabelNodes(pattern.Labeler()),
	)
	if err != nil {
		return Result{Patch: p.Name, Err: err}
	}
	return Result{Patch: p.Name, Tree: tree, Matches: matches}
}

func writeMetadata(ds Dataset, runID string, stats Stats, elapsed time.Duration) error {
	path := ds.Output + ".metadata.txt"
	var b strings.Builder
	fmt.Fprintf(&b, "runid: %s\n", runID)
	fmt.Fprintf(&b, "dataset: %s\n", ds.Name)
	fmt.Fprintf(&b, "runtime: %s\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(&b, "patches: %d\n", stats.Patches)
	fmt.Fprintf(&b, "failed: %d\n", stats.Failed)
	fmt.Fprintf(&b, "trees: %d\n", stats.Export.Trees)
	fmt.Fprintf(&b, "nodes/non: %d\n", stats.Export.NonNodes)
	fmt.Fprintf(&b, "nodes/add: %d\n", stats.Export.AddNodes)
	fmt.Fprintf(&b, "nodes/rem: %d\n", stats.Export.RemNodes)
	for _, k := range sortedKeys(stats.Failures) {
		fmt.Fprintf(&b, "error/%s: %d\n", k, stats.Failures[k])
	}
	for _, k := range sortedKeys(stats.Patterns) {
		fmt.Fprintf(&b, "pattern/%s: %d\n", k, stats.Patterns[k])
	}
	return os.WriteFile(path, []byte(b.String()), 0644)
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
