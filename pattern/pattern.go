// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package pattern classifies diff tree nodes into a fixed taxonomy of edit
// patterns.
//
// Two families exist: atomic patterns are matched against code nodes and
// describe what happened to a line of code, semantic patterns are matched
// against annotation nodes and describe recurring shapes of annotation
// edits. Matching is first-match-wins per node per family. Every code node
// matches exactly one atomic pattern; an annotation node matches at most
// one semantic pattern.
package pattern

import (
	"fmt"

	"github.com/macrodiff/macrodiff/difftree"
)

// Match records one pattern occurrence and where in the diff it was found.
type Match struct {
	Pattern string
	// FromLine and ToLine delimit the node's span in diff coordinates,
	// inclusive-exclusive.
	FromLine int
	ToLine   int
}

func (m Match) String() string {
	return fmt.Sprintf("%s@[%d,%d)", m.Pattern, m.FromLine, m.ToLine)
}

// MatchAtomic matches the atomic catalog against a code node. Every code
// node matches exactly one pattern.
func MatchAtomic(t *difftree.DiffTree, n *difftree.DiffNode) (Match, error) {
	if !n.IsCode() {
		return Match{}, fmt.Errorf("%w: atomic pattern requested for %v", difftree.ErrInconsistent, n)
	}
	for _, p := range atomicCatalog {
		ok, err := p.matches(t, n)
		if err != nil {
			return Match{}, err
		}
		if ok {
			return Match{Pattern: p.name, FromLine: n.From.InDiff, ToLine: n.To.InDiff}, nil
		}
	}
	// Unchanged is a catch-all, so this is unreachable on a valid tree.
	return Match{}, fmt.Errorf("%w: no atomic pattern matched %v", difftree.ErrInconsistent, n)
}

// MatchSemantic matches the semantic catalog against an annotation node.
// The second return value reports whether any pattern matched.
func MatchSemantic(t *difftree.DiffTree, n *difftree.DiffNode) (Match, bool, error) {
	if !n.IsAnnotation() {
		return Match{}, false, fmt.Errorf("%w: semantic pattern requested for %v", difftree.ErrInconsistent, n)
	}
	for _, p := range semanticCatalog {
		ok, err := p.matches(t, n)
		if err != nil {
			return Match{}, false, err
		}
		if ok {
			return Match{Pattern: p.name, FromLine: n.From.InDiff, ToLine: n.To.InDiff}, true, nil
		}
	}
	return Match{}, false, nil
}

// Analyze matches both catalogs over a whole tree: the atomic one on its
// code nodes, the semantic one on its annotation nodes.
func Analyze(t *difftree.DiffTree) ([]Match, error) {
	var out []Match
	for _, n := range t.CodeNodes() {
		m, err := MatchAtomic(t, n)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	for _, n := range t.AnnotationNodes() {
		m, ok, err := MatchSemantic(t, n)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// Labeler labels code nodes with their atomic pattern name and every other
// node with its node type, for use with transform.RelabelNodes.
func Labeler() func(*difftree.DiffTree, *difftree.DiffNode) (string, error) {
	return func(t *difftree.DiffTree, n *difftree.DiffNode) (string, error) {
		if n.IsCode() {
			m, err := MatchAtomic(t, n)
			if err != nil {
				return "", err
			}
			return m.Pattern, nil
		}
		return n.NodeType.String(), nil
	}
}

type catalogEntry struct {
	name    string
	matches func(*difftree.DiffTree, *difftree.DiffNode) (bool, error)
}
