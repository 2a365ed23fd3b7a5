// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package difftree

import (
	"fmt"

	"github.com/crillab/gophersat/bf"
)

// DiffType describes whether a diff element was added, removed or left
// unchanged between the two revisions of a patch.
type DiffType uint8

const (
	// Add marks elements only present in the after revision.
	Add DiffType = iota
	// Rem marks elements only present in the before revision.
	Rem
	// Non marks elements present in both revisions.
	Non
)

// DiffTypeOfLine returns the diff type encoded by the change marker of a
// unified-diff line. Lines without marker count as unchanged.
func DiffTypeOfLine(line string) DiffType {
	if line == "" {
		return Non
	}
	switch line[0] {
	case '+':
		return Add
	case '-':
		return Rem
	}
	return Non
}

func (d DiffType) String() string {
	switch d {
	case Add:
		return "ADD"
	case Rem:
		return "REM"
	case Non:
		return "NON"
	}
	return fmt.Sprintf("DiffType(%d)", uint8(d))
}

// ExistsBefore reports whether an element of this diff type is part of the
// before revision.
func (d DiffType) ExistsBefore() bool { return d != Add }

// ExistsAfter reports whether an element of this diff type is part of the
// after revision.
func (d DiffType) ExistsAfter() bool { return d != Rem }

// ExistsAt reports whether an element of this diff type is part of the
// revision at the given time.
func (d DiffType) ExistsAt(when Time) bool {
	if when == Before {
		return d.ExistsBefore()
	}
	return d.ExistsAfter()
}

// Time selects one of the two revisions a patch transforms between.
type Time uint8

const (
	// Before is the revision the patch was applied to.
	Before Time = iota
	// After is the revision the patch produced.
	After
)

func (w Time) String() string {
	if w == Before {
		return "before"
	}
	return "after"
}

// NodeType tags the kind of element a node represents.
type NodeType uint8

const (
	// Root is the unique entry point of a tree.
	Root NodeType = iota
	// If opens a conditional block and carries a formula.
	If
	// Elif continues a conditional construct with a formula.
	Elif
	// Else is the final, formula-free branch of a construct.
	Else
	// Endif closes a construct. Endif nodes are transient: they adjust the
	// span of the block they close and are never part of the output tree.
	Endif
	// Code is a (possibly collapsed) run of plain source lines.
	Code
)

func (t NodeType) String() string {
	switch t {
	case Root:
		return "ROOT"
	case If:
		return "IF"
	case Elif:
		return "ELIF"
	case Else:
		return "ELSE"
	case Endif:
		return "ENDIF"
	case Code:
		return "CODE"
	}
	return fmt.Sprintf("NodeType(%d)", uint8(t))
}

// IsAnnotation reports whether the type is a retained conditional directive.
func (t NodeType) IsAnnotation() bool {
	return t == If || t == Elif || t == Else
}

// InvalidLine marks a line-number coordinate that is not meaningful for a
// node, e.g. the before coordinate of an added node.
const InvalidLine = -1

// DiffLineNumber locates a position in a patch in three coordinate systems
// at once: the raw diff text, the before file and the after file.
// Exactly one or two of the counters advance per consumed diff line,
// depending on the line's diff type.
type DiffLineNumber struct {
	InDiff int
	Before int
	After  int
}

// Step advances the counters for one consumed line of the given diff type.
func (l *DiffLineNumber) Step(d DiffType) {
	l.InDiff++
	if d.ExistsBefore() {
		l.Before++
	}
	if d.ExistsAfter() {
		l.After++
	}
}

// Add returns the line number with n added to every coordinate.
func (l DiffLineNumber) Add(n int) DiffLineNumber {
	return DiffLineNumber{InDiff: l.InDiff + n, Before: l.Before + n, After: l.After + n}
}

// Project invalidates the coordinates that are not meaningful for the given
// diff type. The diff coordinate is always meaningful.
func (l *DiffLineNumber) Project(d DiffType) {
	if !d.ExistsBefore() {
		l.Before = InvalidLine
	}
	if !d.ExistsAfter() {
		l.After = InvalidLine
	}
}

// NodeID addresses a node slot in its tree's arena.
type NodeID int32

// NoNode is the null node reference.
const NoNode NodeID = -1

// DiffNode is one element of a DiffTree: a conditional directive, a run of
// code lines, or the root. A node participates in up to two nesting
// structures, one per revision. A node unchanged between revisions is shared:
// the same arena slot is referenced as a child by both revisions' parents.
type DiffNode struct {
	ID       NodeID
	DiffType DiffType
	NodeType NodeType

	// Label is the node's raw text: the condition text for If/Elif nodes,
	// the source text for Code nodes. Transformations may relabel it.
	Label string

	// Mapping is the formula parsed from the condition text of If/Elif
	// nodes and nil for all other node types. It is the node's local
	// feature mapping before sibling negation is applied.
	Mapping bf.Formula

	// From and To delimit the node's line span, inclusive-exclusive.
	// To is filled in when the node's block closes.
	From DiffLineNumber
	To   DiffLineNumber

	beforeParent NodeID
	afterParent  NodeID

	beforeChildren []NodeID
	afterChildren  []NodeID
}

// Parent returns the node's parent in the revision at the given time, or
// NoNode if the node is not part of that revision.
func (n *DiffNode) Parent(when Time) NodeID {
	if when == Before {
		return n.beforeParent
	}
	return n.afterParent
}

// IsRoot reports whether the node is the tree's entry point.
func (n *DiffNode) IsRoot() bool { return n.NodeType == Root }

// IsCode reports whether the node is a run of plain source lines.
func (n *DiffNode) IsCode() bool { return n.NodeType == Code }

// IsAnnotation reports whether the node is a conditional directive.
func (n *DiffNode) IsAnnotation() bool { return n.NodeType.IsAnnotation() }

// IsAdd reports whether the node only exists in the after revision.
func (n *DiffNode) IsAdd() bool { return n.DiffType == Add }

// IsRem reports whether the node only exists in the before revision.
func (n *DiffNode) IsRem() bool { return n.DiffType == Rem }

// IsNon reports whether the node is unchanged between the revisions.
func (n *DiffNode) IsNon() bool { return n.DiffType == Non }

func (n *DiffNode) String() string {
	return fmt.Sprintf("%d:%s_%s(%q)", n.ID, n.NodeType, n.DiffType, n.Label)
}
