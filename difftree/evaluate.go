// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package difftree

import (
	"fmt"

	"github.com/crillab/gophersat/bf"
)

// FeatureMapping computes the boolean condition introduced locally at n in
// the revision at the given time.
//
// An If node maps to its own formula. An Elif maps to its formula conjoined
// with the negation of every earlier branch formula of its construct. An
// Else maps to the conjunction of the negations of all its construct's
// branch formulas ("none of the other branches held"). Root maps to true.
// A Code node has no mapping of its own and inherits its parent's.
func (t *DiffTree) FeatureMapping(n *DiffNode, when Time) (bf.Formula, error) {
	if !n.DiffType.ExistsAt(when) {
		return nil, fmt.Errorf("%w: feature mapping of %v requested at time %v, but the node does not exist then", ErrInconsistent, n, when)
	}
	switch n.NodeType {
	case Root:
		return bf.True, nil
	case If:
		return n.Mapping, nil
	case Elif, Else:
		prior, err := t.priorBranchMappings(n, when)
		if err != nil {
			return nil, err
		}
		conj := make([]bf.Formula, 0, len(prior)+1)
		if n.NodeType == Elif {
			conj = append(conj, n.Mapping)
		}
		for _, m := range prior {
			conj = append(conj, bf.Not(m))
		}
		return bf.And(conj...), nil
	case Code:
		p, err := t.parentAt(n, when)
		if err != nil {
			return nil, err
		}
		return t.FeatureMapping(p, when)
	}
	return nil, fmt.Errorf("%w: feature mapping requested for %v", ErrInconsistent, n)
}

// PresenceCondition computes the condition under which n's content is
// compiled in the revision at the given time: the conjunction of feature
// mappings from the root down to n.
//
// For Elif/Else nodes the enclosing scope is the parent of the construct's
// opening If, not the immediately preceding branch; the branch exclusion is
// already part of the node's feature mapping.
func (t *DiffTree) PresenceCondition(n *DiffNode, when Time) (bf.Formula, error) {
	if !n.DiffType.ExistsAt(when) {
		return nil, fmt.Errorf("%w: presence condition of %v requested at time %v, but the node does not exist then", ErrInconsistent, n, when)
	}
	switch n.NodeType {
	case Root:
		return bf.True, nil
	case Elif, Else:
		fm, err := t.FeatureMapping(n, when)
		if err != nil {
			return nil, err
		}
		openingIf, err := t.openingIf(n, when)
		if err != nil {
			return nil, err
		}
		scope, err := t.parentAt(openingIf, when)
		if err != nil {
			return nil, err
		}
		outer, err := t.PresenceCondition(scope, when)
		if err != nil {
			return nil, err
		}
		return bf.And(fm, outer), nil
	case If:
		p, err := t.parentAt(n, when)
		if err != nil {
			return nil, err
		}
		outer, err := t.PresenceCondition(p, when)
		if err != nil {
			return nil, err
		}
		return bf.And(n.Mapping, outer), nil
	case Code:
		p, err := t.parentAt(n, when)
		if err != nil {
			return nil, err
		}
		return t.PresenceCondition(p, when)
	}
	return nil, fmt.Errorf("%w: presence condition requested for %v", ErrInconsistent, n)
}

func (t *DiffTree) parentAt(n *DiffNode, when Time) (*DiffNode, error) {
	p := t.Node(n.Parent(when))
	if p == nil {
		return nil, fmt.Errorf("%w: node %v has no parent at time %v", ErrInconsistent, n, when)
	}
	return p, nil
}

// priorBranchMappings collects the raw formulas of the branches preceding n
// in its conditional construct, i.e. the chain of Elif ancestors up to and
// including the opening If.
func (t *DiffTree) priorBranchMappings(n *DiffNode, when Time) ([]bf.Formula, error) {
	var mappings []bf.Formula
	cur := n
	for {
		p, err := t.parentAt(cur, when)
		if err != nil {
			return nil, err
		}
		switch p.NodeType {
		case If:
			return append(mappings, p.Mapping), nil
		case Elif:
			mappings = append(mappings, p.Mapping)
			cur = p
		default:
			return nil, fmt.Errorf("%w: %v branch of a construct with %v parent", ErrInconsistent, n, p)
		}
	}
}

// openingIf walks from an Elif/Else branch to the If that opened its
// construct in the revision at the given time.
func (t *DiffTree) openingIf(n *DiffNode, when Time) (*DiffNode, error) {
	cur := n
	for cur.NodeType == Elif || cur.NodeType == Else {
		p, err := t.parentAt(cur, when)
		if err != nil {
			return nil, err
		}
		cur = p
	}
	if cur.NodeType != If {
		return nil, fmt.Errorf("%w: construct of %v opens with %v", ErrInconsistent, n, cur)
	}
	return cur, nil
}
