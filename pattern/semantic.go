// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package pattern

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/macrodiff/macrodiff/difftree"
)

// moveSimilarity is the minimum line similarity for treating a removed and
// an added code line as the same line moved between branches.
const moveSimilarity = 0.75

// The semantic catalog, in match priority order. The wrap variants are more
// specific than the plain add variants and must come first.
var semanticCatalog = []catalogEntry{
	{"AddIfdefWrapElse", matchAddIfdefWrapElse},
	{"AddIfdefWrapThen", matchAddIfdefWrapThen},
	{"AddIfdefElif", matchAddIfdefElif},
	{"AddIfdefElse", matchAddIfdefElse},
	{"MoveElse", matchMoveElse},
}

// branches returns the conditional construct opened by ifNode as seen in
// the revision at the given time: the If itself and the chain of Elif/Else
// branches hanging below it.
func branches(t *difftree.DiffTree, ifNode *difftree.DiffNode, when difftree.Time) []*difftree.DiffNode {
	out := []*difftree.DiffNode{ifNode}
	cur := ifNode
	for {
		var next *difftree.DiffNode
		for _, id := range t.Children(cur, when) {
			c := t.Node(id)
			if c.NodeType == difftree.Elif || c.NodeType == difftree.Else {
				next = c
				break
			}
		}
		if next == nil {
			return out
		}
		out = append(out, next)
		cur = next
	}
}

// codeIn collects the code nodes of one branch's body, not following the
// Elif/Else continuation of the construct.
func codeIn(t *difftree.DiffTree, branch *difftree.DiffNode) []*difftree.DiffNode {
	var out []*difftree.DiffNode
	var rec func(n *difftree.DiffNode)
	rec = func(n *difftree.DiffNode) {
		if n.IsCode() {
			out = append(out, n)
		}
		for _, c := range t.ChildNodes(n) {
			rec(c)
		}
	}
	for _, c := range t.ChildNodes(branch) {
		if c.NodeType == difftree.Elif || c.NodeType == difftree.Else {
			continue
		}
		rec(c)
	}
	return out
}

func anyCode(nodes []*difftree.DiffNode, pred func(*difftree.DiffNode) bool) bool {
	for _, n := range nodes {
		if pred(n) {
			return true
		}
	}
	return false
}

func isAddedIf(n *difftree.DiffNode) bool {
	return n.IsAdd() && n.NodeType == difftree.If
}

// AddIfdefWrapElse: a new construct whose added Else branch wraps code that
// existed before the edit.
func matchAddIfdefWrapElse(t *difftree.DiffTree, n *difftree.DiffNode) (bool, error) {
	if !isAddedIf(n) {
		return false, nil
	}
	for _, b := range branches(t, n, difftree.After) {
		if b.NodeType == difftree.Else && b.IsAdd() {
			if anyCode(codeIn(t, b), (*difftree.DiffNode).IsNon) {
				return true, nil
			}
		}
	}
	return false, nil
}

// AddIfdefWrapThen: a new construct whose then branch wraps code that
// existed before the edit.
func matchAddIfdefWrapThen(t *difftree.DiffTree, n *difftree.DiffNode) (bool, error) {
	if !isAddedIf(n) {
		return false, nil
	}
	return anyCode(codeIn(t, n), (*difftree.DiffNode).IsNon), nil
}

// AddIfdefElif: a new construct including an added Elif branch.
func matchAddIfdefElif(t *difftree.DiffTree, n *difftree.DiffNode) (bool, error) {
	if !isAddedIf(n) {
		return false, nil
	}
	for _, b := range branches(t, n, difftree.After) {
		if b.NodeType == difftree.Elif && b.IsAdd() {
			return true, nil
		}
	}
	return false, nil
}

// AddIfdefElse: a new construct including an added Else branch.
func matchAddIfdefElse(t *difftree.DiffTree, n *difftree.DiffNode) (bool, error) {
	if !isAddedIf(n) {
		return false, nil
	}
	for _, b := range branches(t, n, difftree.After) {
		if b.NodeType == difftree.Else && b.IsAdd() {
			return true, nil
		}
	}
	return false, nil
}

// MoveElse: code migrated between an Else branch and the other branches of
// its construct. Moved lines are paired by edit-distance similarity, since
// moves routinely come with whitespace or small token changes.
func matchMoveElse(t *difftree.DiffTree, n *difftree.DiffNode) (bool, error) {
	if n.NodeType != difftree.Else {
		return false, nil
	}
	when := difftree.After
	if n.DiffType.ExistsBefore() {
		when = difftree.Before
	}
	opening := n
	for opening.NodeType == difftree.Elif || opening.NodeType == difftree.Else {
		p := t.Node(opening.Parent(when))
		if p == nil || !p.IsAnnotation() && p.NodeType != difftree.If {
			return false, nil
		}
		opening = p
	}
	if opening.NodeType != difftree.If {
		return false, nil
	}

	var inElse, elsewhere []*difftree.DiffNode
	for _, b := range branches(t, opening, when) {
		if b == n {
			inElse = codeIn(t, b)
		} else {
			elsewhere = append(elsewhere, codeIn(t, b)...)
		}
	}
	return movedBetween(inElse, elsewhere) || movedBetween(elsewhere, inElse), nil
}

// movedBetween reports whether some line added in dst matches a line
// removed from src.
func movedBetween(dst, src []*difftree.DiffNode) bool {
	for _, a := range dst {
		if !a.IsAdd() {
			continue
		}
		for _, r := range src {
			if !r.IsRem() {
				continue
			}
			if linesSimilar(a.Label, r.Label) {
				return true
			}
		}
	}
	return false
}

func linesSimilar(a, b string) bool {
	for _, la := range strings.Split(a, "\n") {
		la = strings.TrimSpace(la)
		if la == "" {
			continue
		}
		for _, lb := range strings.Split(b, "\n") {
			lb = strings.TrimSpace(lb)
			if lb == "" {
				continue
			}
			if similarity(la, lb) >= moveSimilarity {
				return true
			}
		}
	}
	return false
}

func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	max := la
	if lb > max {
		max = lb
	}
	if max == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(max)
}
