// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package linegraph serializes diff trees to a line-oriented textual graph
// format and back.
//
// The format has three record kinds:
//
//	t # <name>                                    one tree
//	v <id> <type>_<difftype> <six span fields> <label>   one node
//	e <parent> <child> <b|a|ba>                   one edge per revision set
//
// Node labels are the last field and may contain escaped newlines, so the
// records stay one physical line each.
package linegraph

import (
	"fmt"
	"io"
	"strings"

	"github.com/macrodiff/macrodiff/difftree"
)

// TreeNameSeparator joins the file name and commit hash in a tree header.
const TreeNameSeparator = "$$$"

// NodeStyle selects how node labels are rendered on export.
type NodeStyle int

const (
	// StyleVerbose writes the node's raw label. Only this style
	// round-trips through Import.
	StyleVerbose NodeStyle = iota
	// StyleType writes the node's type and diff type instead of a label.
	StyleType
	// StylePretty writes a compact human-readable label.
	StylePretty
)

// ExportOptions configures one export pass.
type ExportOptions struct {
	Style NodeStyle
	// SkipEmptyTrees drops trees holding nothing but their root, e.g.
	// after cutting all unedited content from an annotation-free patch.
	SkipEmptyTrees bool
}

// Stats counts exported nodes by diff type. Mergeable across exports.
type Stats struct {
	NonNodes int
	AddNodes int
	RemNodes int
	Trees    int
}

// Merge folds other into s.
func (s *Stats) Merge(other Stats) {
	s.NonNodes += other.NonNodes
	s.AddNodes += other.AddNodes
	s.RemNodes += other.RemNodes
	s.Trees += other.Trees
}

// Export writes the given trees in linegraph format.
func Export(w io.Writer, trees []*difftree.DiffTree, opts ExportOptions) (Stats, error) {
	var stats Stats
	for _, t := range trees {
		if opts.SkipEmptyTrees && t.IsEmpty() {
			continue
		}
		ts, err := ExportTree(w, t, opts)
		if err != nil {
			return stats, err
		}
		stats.Merge(ts)
	}
	return stats, nil
}

// ExportTree writes one tree in linegraph format.
func ExportTree(w io.Writer, t *difftree.DiffTree, opts ExportOptions) (Stats, error) {
	stats := Stats{Trees: 1}
	if _, err := fmt.Fprintf(w, "t # %s\n", t.Source); err != nil {
		return stats, err
	}
	nodes := t.Nodes()
	for _, n := range nodes {
		switch n.DiffType {
		case difftree.Non:
			stats.NonNodes++
		case difftree.Add:
			stats.AddNodes++
		case difftree.Rem:
			stats.RemNodes++
		}
		_, err := fmt.Fprintf(w, "v %d %s_%s %d %d %d %d %d %d %s\n",
			n.ID, n.NodeType, n.DiffType,
			n.From.InDiff, n.From.Before, n.From.After,
			n.To.InDiff, n.To.Before, n.To.After,
			escapeLabel(label(n, opts.Style)))
		if err != nil {
			return stats, err
		}
	}
	for _, n := range nodes {
		if n.IsRoot() {
			continue
		}
		bp := n.Parent(difftree.Before)
		ap := n.Parent(difftree.After)
		switch {
		case bp != difftree.NoNode && bp == ap:
			if _, err := fmt.Fprintf(w, "e %d %d ba\n", bp, n.ID); err != nil {
				return stats, err
			}
		default:
			if bp != difftree.NoNode {
				if _, err := fmt.Fprintf(w, "e %d %d b\n", bp, n.ID); err != nil {
					return stats, err
				}
			}
			if ap != difftree.NoNode {
				if _, err := fmt.Fprintf(w, "e %d %d a\n", ap, n.ID); err != nil {
					return stats, err
				}
			}
		}
	}
	_, err := fmt.Fprintln(w)
	return stats, err
}

func label(n *difftree.DiffNode, style NodeStyle) string {
	switch style {
	case StyleType:
		return fmt.Sprintf("%s_%s", n.NodeType, n.DiffType)
	case StylePretty:
		switch {
		case n.IsRoot():
			return "root"
		case n.NodeType == difftree.Else:
			return "#else"
		case n.IsAnnotation():
			return fmt.Sprintf("#%s %s", strings.ToLower(n.NodeType.String()), n.Label)
		}
		return strings.TrimSpace(n.Label)
	}
	return n.Label
}

func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "\n", `\n`)
}

func unescapeLabel(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
