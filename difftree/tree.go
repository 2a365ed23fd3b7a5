// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package difftree models edits to preprocessor-annotated source code.
//
// A DiffTree is parsed from the full unified diff of one patch. Its nodes
// represent nested conditional-compilation blocks (#if/#elif/#else) and runs
// of code lines. Every node carries a diff type: added, removed or
// unchanged. Unchanged nodes are shared between both revisions' nesting
// structures, so the same tree simultaneously describes the nesting of the
// before revision and of the after revision.
package difftree

import (
	"fmt"

	"github.com/crillab/gophersat/bf"
)

// DiffTree owns an arena of nodes and the unique root. Nodes detached by
// transformations keep their arena slot but become unreachable from the
// root; traversal only ever yields reachable nodes.
type DiffTree struct {
	// Source names where the diff came from, e.g. "file$$$commit".
	Source string

	nodes []*DiffNode
	root  NodeID
}

// New creates an empty tree holding only a root node.
func New(source string) *DiffTree {
	t := &DiffTree{Source: source, root: 0}
	t.nodes = append(t.nodes, &DiffNode{
		ID:           0,
		DiffType:     Non,
		NodeType:     Root,
		beforeParent: NoNode,
		afterParent:  NoNode,
	})
	return t
}

// Root returns the tree's unique entry point.
func (t *DiffTree) Root() *DiffNode { return t.nodes[t.root] }

// Node resolves an id to its node, or nil for NoNode.
func (t *DiffTree) Node(id NodeID) *DiffNode {
	if id == NoNode {
		return nil
	}
	return t.nodes[id]
}

// NewNode allocates a detached node in the tree's arena.
func (t *DiffTree) NewNode(d DiffType, nt NodeType, label string, mapping bf.Formula, from DiffLineNumber) *DiffNode {
	n := &DiffNode{
		ID:           NodeID(len(t.nodes)),
		DiffType:     d,
		NodeType:     nt,
		Label:        label,
		Mapping:      mapping,
		From:         from,
		beforeParent: NoNode,
		afterParent:  NoNode,
	}
	t.nodes = append(t.nodes, n)
	return n
}

// AddBelow attaches n as the last child of beforeParent in the before
// revision and of afterParent in the after revision. Attachment is skipped
// for revisions the node does not exist in.
func (t *DiffTree) AddBelow(n *DiffNode, beforeParent, afterParent NodeID) {
	if beforeParent != NoNode && n.DiffType.ExistsBefore() {
		n.beforeParent = beforeParent
		p := t.nodes[beforeParent]
		p.beforeChildren = append(p.beforeChildren, n.ID)
	}
	if afterParent != NoNode && n.DiffType.ExistsAfter() {
		n.afterParent = afterParent
		p := t.nodes[afterParent]
		p.afterChildren = append(p.afterChildren, n.ID)
	}
}

func removeID(ids []NodeID, id NodeID) []NodeID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// Detach removes n from both parents' child lists and clears its parent
// links. The subtree below n keeps its internal links and becomes
// unreachable together with n.
func (t *DiffTree) Detach(n *DiffNode) {
	if p := t.Node(n.beforeParent); p != nil {
		p.beforeChildren = removeID(p.beforeChildren, n.ID)
	}
	if p := t.Node(n.afterParent); p != nil {
		p.afterChildren = removeID(p.afterChildren, n.ID)
	}
	n.beforeParent = NoNode
	n.afterParent = NoNode
}

// RemoveChildren detaches all children of n and returns them in insertion
// order, shared children once.
func (t *DiffTree) RemoveChildren(n *DiffNode) []*DiffNode {
	children := t.ChildNodes(n)
	for _, c := range children {
		if c.beforeParent == n.ID {
			c.beforeParent = NoNode
		}
		if c.afterParent == n.ID {
			c.afterParent = NoNode
		}
	}
	n.beforeChildren = nil
	n.afterChildren = nil
	return children
}

// SpliceOut removes n and re-attaches n's children, per revision, to n's
// parent at n's position. This keeps sibling order intact. Used by the
// feature-expression filter, which is allowed to damage tree semantics.
func (t *DiffTree) SpliceOut(n *DiffNode) {
	if p := t.Node(n.beforeParent); p != nil {
		p.beforeChildren = spliceIDs(p.beforeChildren, n.ID, n.beforeChildren)
		for _, cid := range n.beforeChildren {
			t.nodes[cid].beforeParent = p.ID
		}
	}
	if p := t.Node(n.afterParent); p != nil {
		p.afterChildren = spliceIDs(p.afterChildren, n.ID, n.afterChildren)
		for _, cid := range n.afterChildren {
			t.nodes[cid].afterParent = p.ID
		}
	}
	n.beforeParent = NoNode
	n.afterParent = NoNode
	n.beforeChildren = nil
	n.afterChildren = nil
}

func spliceIDs(ids []NodeID, at NodeID, repl []NodeID) []NodeID {
	out := make([]NodeID, 0, len(ids)+len(repl))
	for _, v := range ids {
		if v == at {
			out = append(out, repl...)
			continue
		}
		out = append(out, v)
	}
	return out
}

// Children returns n's children in the revision at the given time.
func (t *DiffTree) Children(n *DiffNode, when Time) []NodeID {
	if when == Before {
		return n.beforeChildren
	}
	return n.afterChildren
}

// ChildNodes returns n's children across both revisions in source-line
// order, yielding each shared child exactly once.
func (t *DiffTree) ChildNodes(n *DiffNode) []*DiffNode {
	out := make([]*DiffNode, 0, len(n.beforeChildren)+len(n.afterChildren))
	for _, id := range n.beforeChildren {
		out = append(out, t.nodes[id])
	}
	for _, id := range n.afterChildren {
		c := t.nodes[id]
		if c.beforeParent == n.ID {
			// Shared child, already yielded from the before list.
			continue
		}
		out = append(out, c)
	}
	return out
}

// Walk visits every reachable node exactly once in preorder, no matter how
// many parent links reference it. Returning an error aborts the walk.
func (t *DiffTree) Walk(visit func(*DiffNode) error) error {
	seen := make(map[NodeID]bool, len(t.nodes))
	var rec func(n *DiffNode) error
	rec = func(n *DiffNode) error {
		if seen[n.ID] {
			return nil
		}
		seen[n.ID] = true
		if err := visit(n); err != nil {
			return err
		}
		for _, c := range t.ChildNodes(n) {
			if err := rec(c); err != nil {
				return err
			}
		}
		return nil
	}
	return rec(t.Root())
}

// Nodes returns all reachable nodes in preorder, including the root.
func (t *DiffTree) Nodes() []*DiffNode {
	var out []*DiffNode
	t.Walk(func(n *DiffNode) error {
		out = append(out, n)
		return nil
	})
	return out
}

// CodeNodes returns all reachable code nodes.
func (t *DiffTree) CodeNodes() []*DiffNode {
	var out []*DiffNode
	t.Walk(func(n *DiffNode) error {
		if n.IsCode() {
			out = append(out, n)
		}
		return nil
	})
	return out
}

// AnnotationNodes returns all reachable conditional directive nodes.
func (t *DiffTree) AnnotationNodes() []*DiffNode {
	var out []*DiffNode
	t.Walk(func(n *DiffNode) error {
		if n.IsAnnotation() {
			out = append(out, n)
		}
		return nil
	})
	return out
}

// Count returns the number of reachable nodes including the root.
func (t *DiffTree) Count() int {
	c := 0
	t.Walk(func(*DiffNode) error {
		c++
		return nil
	})
	return c
}

// IsEmpty reports whether the tree holds nothing but its root.
func (t *DiffTree) IsEmpty() bool {
	return len(t.Root().beforeChildren) == 0 && len(t.Root().afterChildren) == 0
}

// Verify checks the structural invariants: every reachable non-root node has
// at least one parent, and both per-revision parent chains terminate at the
// root without cycles.
func (t *DiffTree) Verify() error {
	return t.Walk(func(n *DiffNode) error {
		if n.IsRoot() {
			return nil
		}
		if n.beforeParent == NoNode && n.afterParent == NoNode {
			return fmt.Errorf("%w: node %v has no parent in either revision", ErrInconsistent, n)
		}
		for _, when := range []Time{Before, After} {
			if !n.DiffType.ExistsAt(when) {
				continue
			}
			steps := 0
			for c := n; !c.IsRoot(); c = t.Node(c.Parent(when)) {
				if c.Parent(when) == NoNode {
					return fmt.Errorf("%w: node %v is disconnected from the root at time %v", ErrInconsistent, n, when)
				}
				if steps++; steps > len(t.nodes) {
					return fmt.Errorf("%w: parent cycle through node %v at time %v", ErrInconsistent, n, when)
				}
			}
		}
		return nil
	})
}
