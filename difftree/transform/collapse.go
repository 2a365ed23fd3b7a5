// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package transform

import (
	"fmt"

	"github.com/crillab/gophersat/bf"

	"github.com/macrodiff/macrodiff/difftree"
)

// CollapsedLabel marks annotation nodes synthesized by
// CollapseNestedNonEditedMacros.
const CollapsedLabel = "$Collapsed Nested Annotations$"

// CollapseNestedNonEditedMacros merges maximal chains of unchanged, purely
// conditional nodes where each node is the sole child of its predecessor
// and none of the chain's eventual children were edited away from under it.
// The chain is replaced by one synthetic If node whose formula is the
// conjunction of the replaced nodes' feature mappings, so the merged node's
// presence condition is equivalent to the chain's deepest one. Requires
// CutNonEditedSubtrees to have pruned unedited siblings first.
func CollapseNestedNonEditedMacros() Transformer { return &collapseNested{} }

type collapseNested struct {
	candidates [][]*difftree.DiffNode
	chains     [][]*difftree.DiffNode
}

func (*collapseNested) Kind() Kind   { return KindCollapseNested }
func (*collapseNested) Deps() []Kind { return []Kind{KindCutNonEdited} }

func (c *collapseNested) Transform(t *difftree.DiffTree) error {
	c.candidates = nil
	c.chains = nil
	t.Walk(func(n *difftree.DiffNode) error {
		c.findChains(t, n)
		return nil
	})
	// Unfinished candidates never saw an end and are not collapsed.
	c.candidates = nil

	for _, chain := range c.chains {
		if err := collapseChain(t, chain); err != nil {
			return err
		}
	}
	c.chains = nil
	return nil
}

func (c *collapseNested) findChains(t *difftree.DiffTree, n *difftree.DiffNode) {
	if !n.IsNon() || !n.IsAnnotation() {
		return
	}
	switch {
	case isChainHead(t, n):
		c.candidates = append(c.candidates, []*difftree.DiffNode{n})
	case inChainTail(t, n):
		parent := t.Node(n.Parent(difftree.Before)) // == after parent
		for i, cand := range c.candidates {
			if cand[len(cand)-1] == parent {
				c.candidates[i] = append(cand, n)
				if isChainEnd(t, n) {
					c.chains = append(c.chains, c.candidates[i])
					c.candidates = append(c.candidates[:i], c.candidates[i+1:]...)
				}
				break
			}
		}
	}
}

// inChainTail reports whether n continues a chain: unchanged in both
// revisions below the same parent, which has no other children.
func inChainTail(t *difftree.DiffTree, n *difftree.DiffNode) bool {
	bp := n.Parent(difftree.Before)
	if bp == difftree.NoNode || bp != n.Parent(difftree.After) {
		return false
	}
	return len(t.ChildNodes(t.Node(bp))) == 1
}

func isChainHead(t *difftree.DiffTree, n *difftree.DiffNode) bool {
	if isChainEnd(t, n) {
		return false
	}
	if !inChainTail(t, n) {
		return true
	}
	return t.Node(n.Parent(difftree.Before)).IsRoot()
}

// isChainEnd reports whether every chain reaching n has to stop here:
// below n the single-child, nothing-edited property breaks.
func isChainEnd(t *difftree.DiffTree, n *difftree.DiffNode) bool {
	if !inChainTail(t, n) {
		return false
	}
	children := t.ChildNodes(n)
	if len(children) != 1 {
		return true
	}
	for _, c := range children {
		if !c.IsNon() {
			return true
		}
	}
	return false
}

func collapseChain(t *difftree.DiffTree, chain []*difftree.DiffNode) error {
	if len(chain) < 2 {
		return fmt.Errorf("%w: collapse chain of length %d", difftree.ErrInconsistent, len(chain))
	}
	deepest := chain[len(chain)-1]
	children := t.RemoveChildren(deepest)

	// Deepest first. An Elif/Else contributes its full feature mapping,
	// which already accounts for the formulas of the branches above it in
	// the chain, so those are skipped instead of double-counted.
	var mappings []bf.Formula
	for i := len(chain) - 1; i >= 0; {
		n := chain[i]
		i--
		switch n.NodeType {
		case difftree.If, difftree.Elif, difftree.Else:
			fm, err := t.FeatureMapping(n, difftree.After)
			if err != nil {
				return err
			}
			mappings = append(mappings, fm)
			if n.NodeType != difftree.If {
				for i >= 0 && chain[i].NodeType != difftree.If {
					i--
				}
				i--
			}
		default:
			return fmt.Errorf("%w: unexpected %v node inside a macro chain", difftree.ErrInconsistent, n)
		}
	}

	head := chain[0]
	beforeParent := head.Parent(difftree.Before)
	afterParent := head.Parent(difftree.After)

	merged := t.NewNode(difftree.Non, difftree.If, CollapsedLabel, bf.And(mappings...), head.From)
	merged.To = head.To

	t.Detach(head)
	// AddBelow appends, so the merged node lands at the end of its parents'
	// child lists rather than in the head's old position among its siblings.
	t.AddBelow(merged, beforeParent, afterParent)
	for _, child := range children {
		t.AddBelow(child, merged.ID, merged.ID)
	}
	return nil
}
